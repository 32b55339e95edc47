package test

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
)

const (
	Email    = "follower@example.com"
	Password = "correct-horse"
)

// LinkUpServer stubs the LibreLinkUp follower API for every region at once.
// Point the adapter at URL() + "/{region}" and the first path segment names
// the regional deployment a request was sent to.
type LinkUpServer struct {
	*httptest.Server

	UserID      string
	PatientID   string
	PatientName string

	// HomeRegion is the only region that answers logins with a ticket;
	// the rest redirect to it.
	HomeRegion string

	// AlwaysRedirect makes every region redirect, for exercising the hop
	// cap.
	AlwaysRedirect bool

	NoConnections bool

	LoginCalls       map[string]int
	ConnectionsCalls int
	GraphCalls       int

	Tokens []string

	rejected map[string]bool
	graph    []byte
}

func ServerStub() *LinkUpServer {
	linkup := &LinkUpServer{
		UserID:      "user-5d41402a",
		PatientID:   "patient-7d79",
		PatientName: "Alice Cook",
		HomeRegion:  "us",
		LoginCalls:  map[string]int{},
		rejected:    map[string]bool{},
		graph:       []byte(`{"data":{"connection":{},"graphData":[]}}`),
	}
	linkup.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("product") != "llu.android" || r.Header.Get("version") == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		region, rest, ok := strings.Cut(strings.TrimPrefix(r.URL.Path, "/"), "/")
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		switch {
		case r.Method == http.MethodPost && rest == "llu/auth/login":
			linkup.login(w, r, region)
		case r.Method == http.MethodGet && rest == "llu/connections":
			linkup.ConnectionsCalls++
			if !linkup.authorized(r) {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			linkup.connections(w)
		case r.Method == http.MethodGet && rest == fmt.Sprintf("llu/connections/%s/graph", linkup.PatientID):
			linkup.GraphCalls++
			if !linkup.authorized(r) {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Header().Add("content-type", "application/json")
			w.Write(linkup.graph)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	return linkup
}

// BaseURL is the URL template for the adapter configuration.
func (s *LinkUpServer) BaseURL() string {
	return s.Server.URL + "/{region}"
}

// SetGraph installs the graph response. current may be nil when the
// connection has no live measurement.
func (s *LinkUpServer) SetGraph(current map[string]any, history []map[string]any) {
	payload := map[string]any{
		"data": map[string]any{
			"connection": map[string]any{},
			"graphData":  history,
		},
	}
	if current != nil {
		payload["data"].(map[string]any)["connection"] = map[string]any{
			"glucoseMeasurement": current,
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		panic(err)
	}
	s.graph = body
}

// RejectToken makes authorized calls with the token fail the way an expired
// JWT does.
func (s *LinkUpServer) RejectToken(token string) {
	s.rejected[token] = true
}

func (s *LinkUpServer) login(w http.ResponseWriter, r *http.Request, region string) {
	s.LoginCalls[region]++

	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if body.Email != Email || body.Password != Password {
		w.Header().Add("content-type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]any{
			"status": 2,
			"error":  map[string]any{"message": "notAuthenticated"},
		})
		return
	}

	if s.AlwaysRedirect || region != s.HomeRegion {
		target := s.HomeRegion
		if s.AlwaysRedirect && region == s.HomeRegion {
			target = "fr"
		}
		w.Header().Add("content-type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"status": 2,
			"data":   map[string]any{"redirect": true, "region": target},
		})
		return
	}

	token := fmt.Sprintf("token-%d", len(s.Tokens)+1)
	s.Tokens = append(s.Tokens, token)

	w.Header().Add("content-type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status": 0,
		"data": map[string]any{
			"authTicket": map[string]any{"token": token},
			"user":       map[string]any{"id": s.UserID},
		},
	})
}

func (s *LinkUpServer) connections(w http.ResponseWriter) {
	connections := []map[string]any{}
	if !s.NoConnections {
		first, last, _ := strings.Cut(s.PatientName, " ")
		connections = append(connections, map[string]any{
			"patientId": s.PatientID,
			"firstName": first,
			"lastName":  last,
		})
	}

	w.Header().Add("content-type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"data": connections})
}

func (s *LinkUpServer) authorized(r *http.Request) bool {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || s.rejected[token] {
		return false
	}

	issued := false
	for _, issuedToken := range s.Tokens {
		if issuedToken == token {
			issued = true
			break
		}
	}
	if !issued {
		return false
	}

	digest := sha256.Sum256([]byte(s.UserID))
	return r.Header.Get("account-id") == hex.EncodeToString(digest[:])
}
