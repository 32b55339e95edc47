package nightscout

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/glucolink/cgm/errors"
	"github.com/glucolink/cgm/readings"
	"github.com/glucolink/cgm/vendors"
)

const (
	statusPath  = "/api/v1/status.json"
	entriesPath = "/api/v1/entries/sgv.json"
)

const (
	currentWindowMinutes = 30
	currentMaxCount      = 2
)

var vendorName = readings.VendorNightscout.String()

// Credentials are the fields the Nightscout adapter decodes from the opaque
// envelope. APISecret is optional for instances that allow public reads.
type Credentials struct {
	URL       string `mapstructure:"url"`
	APISecret string `mapstructure:"apiSecret"`
}

type Params struct {
	fx.In

	HTTPClient *http.Client
	Logger     *zap.SugaredLogger
}

// Adapter reads entries from a self-hosted Nightscout instance. Every call
// is stateless: the instance URL comes from the credentials and there is no
// session to cache.
type Adapter struct {
	client *http.Client
	logger *zap.SugaredLogger
}

var _ vendors.Adapter = &Adapter{}

func NewAdapter(p Params) (*Adapter, error) {
	return &Adapter{
		client: p.HTTPClient,
		logger: p.Logger.With("vendor", vendorName),
	}, nil
}

func (a *Adapter) Vendor() readings.Vendor {
	return readings.VendorNightscout
}

type statusResponse struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// entry is one sgv document. sgv arrives as a float on some uploader
// configurations.
type entry struct {
	SGV       float64 `json:"sgv"`
	Date      int64   `json:"date"`
	Direction string  `json:"direction"`
	Device    string  `json:"device"`
}

func (a *Adapter) TestConnection(ctx context.Context, credentials vendors.Credentials) (*vendors.ConnectionResult, error) {
	creds, err := decodeCredentials(credentials)
	if err != nil {
		return &vendors.ConnectionResult{Message: err.Error()}, nil
	}

	body, err := a.get(ctx, creds, statusPath, nil)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return &vendors.ConnectionResult{Message: err.Error()}, nil
	}

	var status statusResponse
	if err := json.Unmarshal(body, &status); err != nil {
		return &vendors.ConnectionResult{Message: "malformed status response"}, nil
	}

	return &vendors.ConnectionResult{
		Success:     true,
		Message:     "connected to Nightscout",
		AccountInfo: strings.TrimSpace(status.Name + " " + status.Version),
	}, nil
}

func (a *Adapter) GetGlucoseReadings(ctx context.Context, credentials vendors.Credentials, windowMinutes int, maxCount int) ([]readings.GlucoseReading, error) {
	creds, err := decodeCredentials(credentials)
	if err != nil {
		return nil, err
	}

	start := time.Now().UTC().Add(-time.Duration(windowMinutes) * time.Minute)
	query := url.Values{}
	query.Set("find[dateString][$gte]", start.Format(time.RFC3339))
	query.Set("count", strconv.Itoa(maxCount))

	body, err := a.get(ctx, creds, entriesPath, query)
	if err != nil {
		return nil, err
	}

	var entries []entry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, errors.WrapTransport(vendorName, "malformed entries response", err)
	}

	batch := make([]readings.GlucoseReading, 0, len(entries))
	for _, e := range entries {
		device := e.Device
		if device == "" {
			device = "Nightscout"
		}
		trend := readings.TrendFromName(e.Direction)
		batch = append(batch, readings.New(int(e.SGV), trend, time.UnixMilli(e.Date).UTC(), readings.VendorNightscout, device))
	}

	readings.SortNewestFirst(batch)
	return batch, nil
}

func (a *Adapter) GetCurrentGlucose(ctx context.Context, credentials vendors.Credentials) (*vendors.CurrentGlucose, error) {
	batch, err := a.GetGlucoseReadings(ctx, credentials, currentWindowMinutes, currentMaxCount)
	if err != nil {
		return nil, err
	}

	return vendors.NewCurrentGlucose(batch, time.Now()), nil
}

func (a *Adapter) get(ctx context.Context, creds *Credentials, path string, query url.Values) ([]byte, error) {
	target := creds.URL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if creds.APISecret != "" {
		req.Header.Set("api-secret", hashSecret(creds.APISecret))
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, errors.WrapTransport(vendorName, "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.WrapTransport(vendorName, "reading response failed", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return nil, errors.NewCredential(vendorName, "authentication failed")
	case resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices:
		return nil, errors.NewTransport(vendorName, resp.StatusCode, "connection failed")
	}

	return body, nil
}

func decodeCredentials(credentials vendors.Credentials) (*Credentials, error) {
	creds := &Credentials{}
	if err := vendors.DecodeCredentials(credentials, creds); err != nil {
		return nil, err
	}
	if creds.URL == "" {
		return nil, errors.NewCredential(vendorName, "instance URL is required")
	}

	normalized, err := NormalizeURL(creds.URL)
	if err != nil {
		return nil, err
	}
	creds.URL = normalized

	return creds, nil
}

// NormalizeURL makes user-entered instance addresses usable: a missing
// scheme defaults to https and trailing slashes are dropped.
func NormalizeURL(raw string) (string, error) {
	normalized := strings.TrimSpace(raw)
	if !strings.Contains(normalized, "://") {
		normalized = "https://" + normalized
	}
	normalized = strings.TrimRight(normalized, "/")

	parsed, err := url.Parse(normalized)
	if err != nil || parsed.Host == "" {
		return "", errors.NewCredential(vendorName, fmt.Sprintf("invalid instance URL %q", raw))
	}

	return normalized, nil
}

// hashSecret is how Nightscout expects the api-secret header: the SHA-1 hex
// digest of the raw secret.
func hashSecret(secret string) string {
	digest := sha1.Sum([]byte(secret))
	return hex.EncodeToString(digest[:])
}
