package libre

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/glucolink/cgm/errors"
	"github.com/glucolink/cgm/readings"
	"github.com/glucolink/cgm/sessions"
)

// The follower API rejects clients that do not identify as the official app.
const (
	productHeader = "llu.android"
	versionHeader = "4.7.0"
)

const (
	loginPath       = "/llu/auth/login"
	connectionsPath = "/llu/connections"

	// measurementLayout is how the API spells FactoryTimestamp, in UTC.
	measurementLayout = "1/2/2006 3:04:05 PM"

	// redirectStatus marks a login answered by the wrong regional
	// deployment.
	redirectStatus = 2
)

// session carries what authorized calls need. PatientName survives only
// until the session is cached; it is presentation data, not auth state.
type session struct {
	Token       string
	UserID      string
	Region      string
	PatientID   string
	PatientName string
}

func (s *session) toCache() sessions.Session {
	return sessions.Session{
		Token:      s.Token,
		AccountRef: s.PatientID,
		AccountID:  s.UserID,
		Region:     s.Region,
	}
}

func sessionFromCache(cached *sessions.Session) *session {
	return &session{
		Token:     cached.Token,
		UserID:    cached.AccountID,
		Region:    cached.Region,
		PatientID: cached.AccountRef,
	}
}

// hashedAccountID is the account-id header value: the SHA-256 hex digest of
// the raw user id.
func (s *session) hashedAccountID() string {
	digest := sha256.Sum256([]byte(s.UserID))
	return hex.EncodeToString(digest[:])
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Status int `json:"status"`
	Data   struct {
		Redirect   bool   `json:"redirect"`
		Region     string `json:"region"`
		AuthTicket struct {
			Token string `json:"token"`
		} `json:"authTicket"`
		User struct {
			ID string `json:"id"`
		} `json:"user"`
	} `json:"data"`
}

type connectionsResponse struct {
	Data []struct {
		PatientID string `json:"patientId"`
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
	} `json:"data"`
}

type measurement struct {
	FactoryTimestamp string  `json:"FactoryTimestamp"`
	ValueInMgPerDl   float64 `json:"ValueInMgPerDl"`
	TrendArrow       int     `json:"TrendArrow"`
}

type graphResponse struct {
	Data struct {
		Connection struct {
			GlucoseMeasurement *measurement `json:"glucoseMeasurement"`
		} `json:"connection"`
		GraphData []measurement `json:"graphData"`
	} `json:"data"`
}

// authenticate logs in, following at most the configured number of regional
// redirects, then resolves the first connection's patient.
func (a *Adapter) authenticate(ctx context.Context, creds *Credentials) (*session, error) {
	session, err := a.login(ctx, creds, creds.Region, 0)
	if err != nil {
		return nil, err
	}

	if err := a.resolveConnection(ctx, session); err != nil {
		return nil, err
	}

	return session, nil
}

func (a *Adapter) login(ctx context.Context, creds *Credentials, region string, hops int) (*session, error) {
	body, err := a.do(ctx, http.MethodPost, region, loginPath, nil, &loginRequest{
		Email:    creds.Email,
		Password: creds.Password,
	})
	if err != nil {
		return nil, err
	}

	var response loginResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, errors.WrapTransport(vendorName, "malformed login response", err)
	}

	if response.Status == redirectStatus && response.Data.Redirect {
		if hops >= a.maxRedirects {
			return nil, errors.NewTransport(vendorName, 0, "too many login redirects")
		}
		target := strings.ToLower(response.Data.Region)
		a.logger.Debugw("login redirected", "from", region, "to", target)
		return a.login(ctx, creds, target, hops+1)
	}

	if response.Data.AuthTicket.Token == "" {
		return nil, errors.NewTransport(vendorName, 0, "login response missing auth ticket")
	}

	return &session{
		Token:  response.Data.AuthTicket.Token,
		UserID: response.Data.User.ID,
		Region: region,
	}, nil
}

// resolveConnection picks the first connection shared with the account. An
// account with no connections has no data to report yet.
func (a *Adapter) resolveConnection(ctx context.Context, session *session) error {
	body, err := a.do(ctx, http.MethodGet, session.Region, connectionsPath, session, nil)
	if err != nil {
		return err
	}

	var response connectionsResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return errors.WrapTransport(vendorName, "malformed connections response", err)
	}

	if len(response.Data) == 0 {
		return errors.NewNoData(vendorName, "no connections yet, sensor may still be warming up")
	}

	session.PatientID = response.Data[0].PatientID
	session.PatientName = strings.TrimSpace(response.Data[0].FirstName + " " + response.Data[0].LastName)

	return nil
}

// fetchGraph merges the graph history with the connection's current
// measurement. A history entry within a minute of the current one wins.
func (a *Adapter) fetchGraph(ctx context.Context, session *session) ([]readings.GlucoseReading, error) {
	body, err := a.do(ctx, http.MethodGet, session.Region, connectionsPath+"/"+session.PatientID+"/graph", session, nil)
	if err != nil {
		return nil, err
	}

	var response graphResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, errors.WrapTransport(vendorName, "malformed graph response", err)
	}

	batch := make([]readings.GlucoseReading, 0, len(response.Data.GraphData)+1)
	for _, entry := range response.Data.GraphData {
		reading, ok := a.reading(entry)
		if !ok {
			continue
		}
		batch = append(batch, reading)
	}

	if current := response.Data.Connection.GlucoseMeasurement; current != nil {
		if reading, ok := a.reading(*current); ok {
			batch = readings.MergeCurrent(batch, reading)
		}
	}

	return batch, nil
}

func (a *Adapter) reading(entry measurement) (readings.GlucoseReading, bool) {
	at, err := time.ParseInLocation(measurementLayout, entry.FactoryTimestamp, time.UTC)
	if err != nil {
		a.logger.Debugw("skipping measurement with unparseable timestamp", "timestamp", entry.FactoryTimestamp)
		return readings.GlucoseReading{}, false
	}

	trend := readings.TrendFromLibreArrow(entry.TrendArrow)
	return readings.New(int(entry.ValueInMgPerDl), trend, at, readings.VendorLibreLinkUp, deviceName), true
}

// do issues one API call. A session argument adds the bearer token and
// hashed account-id headers.
func (a *Adapter) do(ctx context.Context, method string, region string, path string, session *session, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.regionURL(region)+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("product", productHeader)
	req.Header.Set("version", versionHeader)
	if session != nil {
		req.Header.Set("Authorization", "Bearer "+session.Token)
		req.Header.Set("account-id", session.hashedAccountID())
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, errors.WrapTransport(vendorName, "request failed", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.WrapTransport(vendorName, "reading response failed", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		if session != nil {
			return nil, errors.NewSessionExpired(vendorName)
		}
		return nil, errors.NewCredential(vendorName, "invalid credentials")
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, errors.NewTransport(vendorName, resp.StatusCode, vendorMessage(data))
	}

	return data, nil
}

func (a *Adapter) regionURL(region string) string {
	return strings.Replace(a.urlTemplate, "{region}", region, 1)
}

// vendorMessage pulls the human-readable message out of an error body, when
// there is one.
func vendorMessage(body []byte) string {
	var envelope struct {
		Message string `json:"message"`
		Error   struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Message != "" {
			return envelope.Message
		}
		if envelope.Error.Message != "" {
			return envelope.Error.Message
		}
	}
	return "unexpected response"
}
