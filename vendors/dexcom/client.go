package dexcom

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/glucolink/cgm/errors"
	"github.com/glucolink/cgm/readings"
	"github.com/glucolink/cgm/sessions"
)

// applicationID is the publisher application id the Share apps ship with.
const applicationID = "d89443d2-327c-4a6f-89e5-496bbb0317db"

const (
	authenticatePath = "/General/AuthenticatePublisherAccount"
	loginPath        = "/General/LoginPublisherAccountById"
	latestValuesPath = "/Publisher/ReadPublisherLatestGlucoseValues"
)

// wallTimePattern matches Share timestamps like "Date(1699000000000)".
var wallTimePattern = regexp.MustCompile(`Date\((\d+)\)`)

// glucoseValue is one entry of the latest-values response. Trend is a
// numeric code on older API versions and a direction name on newer ones.
type glucoseValue struct {
	WT    string          `json:"WT"`
	Value int             `json:"Value"`
	Trend json.RawMessage `json:"Trend"`
}

func (v glucoseValue) trend() readings.TrendDirection {
	var code int
	if err := json.Unmarshal(v.Trend, &code); err == nil {
		return readings.TrendFromDexcomCode(code)
	}

	var name string
	if err := json.Unmarshal(v.Trend, &name); err == nil {
		return readings.TrendFromName(name)
	}

	return readings.TrendNone
}

// authenticate runs the two-step handshake: the account name resolves to an
// account GUID, which then logs in for a session GUID.
func (a *Adapter) authenticate(ctx context.Context, creds *Credentials) (*sessions.Session, error) {
	accountID, err := a.postForGUID(ctx, authenticatePath, map[string]string{
		"accountName":   creds.Username,
		"password":      creds.Password,
		"applicationId": applicationID,
	})
	if err != nil {
		return nil, err
	}

	sessionID, err := a.postForGUID(ctx, loginPath, map[string]string{
		"accountId":     accountID,
		"password":      creds.Password,
		"applicationId": applicationID,
	})
	if err != nil {
		return nil, err
	}

	return &sessions.Session{
		Token:      sessionID,
		AccountRef: accountID,
	}, nil
}

func (a *Adapter) fetchLatestValues(ctx context.Context, sessionID string, windowMinutes int, maxCount int) ([]readings.GlucoseReading, error) {
	query := url.Values{}
	query.Set("sessionId", sessionID)
	query.Set("minutes", strconv.Itoa(windowMinutes))
	query.Set("maxCount", strconv.Itoa(maxCount))

	body, err := a.post(ctx, latestValuesPath, query, nil)
	if err != nil {
		return nil, err
	}

	var values []glucoseValue
	if err := json.Unmarshal(body, &values); err != nil {
		return nil, errors.WrapTransport(vendorName, "malformed glucose values response", err)
	}

	batch := make([]readings.GlucoseReading, 0, len(values))
	for _, value := range values {
		at, ok := parseWallTime(value.WT)
		if !ok {
			a.logger.Debugw("skipping value with unparseable timestamp", "wt", value.WT)
			continue
		}
		batch = append(batch, readings.New(value.Value, value.trend(), at, readings.VendorDexcomShare, deviceName))
	}

	return batch, nil
}

// postForGUID posts the payload and parses the plain JSON string response as
// a GUID. The zero GUID is how Share spells "no such account".
func (a *Adapter) postForGUID(ctx context.Context, path string, payload map[string]string) (string, error) {
	body, err := a.post(ctx, path, nil, payload)
	if err != nil {
		return "", err
	}

	var raw string
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", errors.WrapTransport(vendorName, "malformed handshake response", err)
	}

	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return "", errors.NewCredential(vendorName, "invalid credentials")
	}

	return id.String(), nil
}

func (a *Adapter) post(ctx context.Context, path string, query url.Values, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(data)
	}

	target := a.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, errors.WrapTransport(vendorName, "request failed", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.WrapTransport(vendorName, "reading response failed", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, errorFromResponse(resp.StatusCode, data)
	}

	return data, nil
}

// errorFromResponse classifies Share failures by the error code embedded in
// the body. Share reports session and credential problems with a 500 as
// often as with a 401, so the code string is the reliable signal.
func errorFromResponse(statusCode int, body []byte) error {
	payload := string(body)
	switch {
	case strings.Contains(payload, "SessionIdNotFound"), strings.Contains(payload, "SessionNotValid"):
		return errors.NewSessionExpired(vendorName)
	case statusCode == http.StatusUnauthorized,
		strings.Contains(payload, "AccountPasswordInvalid"),
		strings.Contains(payload, "AccountNotFound"):
		return errors.NewCredential(vendorName, "invalid credentials")
	default:
		return errors.NewTransport(vendorName, statusCode, "unexpected response")
	}
}

func parseWallTime(wt string) (time.Time, bool) {
	matches := wallTimePattern.FindStringSubmatch(wt)
	if len(matches) < 2 {
		return time.Time{}, false
	}

	ms, err := strconv.ParseInt(matches[1], 10, 64)
	if err != nil {
		return time.Time{}, false
	}

	return time.UnixMilli(ms).UTC(), true
}
