package test

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
)

const APISecret = "correct-horse-battery"

// NightscoutServer stubs a self-hosted instance. Reads require the hashed
// api-secret header unless Public is set.
type NightscoutServer struct {
	*httptest.Server

	Name    string
	Version string
	Public  bool

	// FailWith, when nonzero, answers every request with that status.
	FailWith int

	StatusCalls  int
	EntriesCalls int
	LastQuery    url.Values

	entries []byte
}

func ServerStub() *NightscoutServer {
	nightscout := &NightscoutServer{
		Name:    "nightscout",
		Version: "14.2.6",
		entries: []byte(`[]`),
	}
	nightscout.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		if nightscout.FailWith != 0 {
			w.WriteHeader(nightscout.FailWith)
			return
		}

		if !nightscout.Public && r.Header.Get("api-secret") != hashedSecret() {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		switch r.URL.Path {
		case "/api/v1/status.json":
			nightscout.StatusCalls++
			w.Header().Add("content-type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{
				"name":    nightscout.Name,
				"version": nightscout.Version,
			})
		case "/api/v1/entries/sgv.json":
			nightscout.EntriesCalls++
			nightscout.LastQuery = r.URL.Query()
			w.Header().Add("content-type", "application/json")
			w.Write(nightscout.entries)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	return nightscout
}

// SetEntries installs the sgv response body.
func (s *NightscoutServer) SetEntries(entries any) {
	body, err := json.Marshal(entries)
	if err != nil {
		panic(err)
	}
	s.entries = body
}

func hashedSecret() string {
	digest := sha1.Sum([]byte(APISecret))
	return hex.EncodeToString(digest[:])
}
