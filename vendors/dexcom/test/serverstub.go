package test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/google/uuid"
)

const (
	Username = "publisher@example.com"
	Password = "correct-horse"
)

type authRequest struct {
	AccountName   string `json:"accountName"`
	AccountID     string `json:"accountId"`
	Password      string `json:"password"`
	ApplicationID string `json:"applicationId"`
}

// ShareServer stubs the Dexcom Share publisher endpoints. Each login issues
// a fresh session GUID; sessions can be rejected afterwards to force the
// re-authentication path.
type ShareServer struct {
	*httptest.Server

	AccountID string

	AuthCalls  int
	LoginCalls int
	FetchCalls int

	SessionIDs []string

	// RejectAllSessions makes every fetch fail with SessionIdNotFound, even
	// for freshly issued sessions.
	RejectAllSessions bool

	rejected map[string]bool
	values   []byte
}

func ServerStub() *ShareServer {
	share := &ShareServer{
		AccountID: uuid.NewString(),
		rejected:  map[string]bool{},
		values:    []byte(`[]`),
	}
	share.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		switch r.URL.Path {
		case "/General/AuthenticatePublisherAccount":
			share.AuthCalls++
			var body authRequest
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			if body.AccountName != Username {
				shareError(w, "SSO_AuthenticateAccountNotFound")
				return
			}
			if body.Password != Password {
				shareError(w, "AccountPasswordInvalid")
				return
			}
			respond(w, share.AccountID)
		case "/General/LoginPublisherAccountById":
			share.LoginCalls++
			var body authRequest
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			if body.AccountID != share.AccountID || body.Password != Password {
				shareError(w, "AccountPasswordInvalid")
				return
			}
			sessionID := uuid.NewString()
			share.SessionIDs = append(share.SessionIDs, sessionID)
			respond(w, sessionID)
		case "/Publisher/ReadPublisherLatestGlucoseValues":
			share.FetchCalls++
			sessionID := r.URL.Query().Get("sessionId")
			if share.RejectAllSessions || !share.issued(sessionID) || share.rejected[sessionID] {
				shareError(w, "SessionIdNotFound")
				return
			}
			w.Header().Add("content-type", "application/json")
			w.Write(share.values)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	return share
}

// SetValues installs the latest-values response body.
func (s *ShareServer) SetValues(values any) {
	body, err := json.Marshal(values)
	if err != nil {
		panic(err)
	}
	s.values = body
}

// SetValuesBody installs a raw latest-values payload verbatim, for responses
// captured in fixture files.
func (s *ShareServer) SetValuesBody(body []byte) {
	s.values = body
}

// RejectSession makes subsequent fetches with the session id fail the way
// Share reports expired sessions.
func (s *ShareServer) RejectSession(sessionID string) {
	s.rejected[sessionID] = true
}

func (s *ShareServer) issued(sessionID string) bool {
	for _, id := range s.SessionIDs {
		if id == sessionID {
			return true
		}
	}
	return false
}

func shareError(w http.ResponseWriter, code string) {
	w.Header().Add("content-type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(map[string]string{
		"Code":    code,
		"Message": code,
	})
}

func respond(w http.ResponseWriter, value string) {
	w.Header().Add("content-type", "application/json")
	json.NewEncoder(w).Encode(value)
}
