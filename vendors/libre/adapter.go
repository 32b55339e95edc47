package libre

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go"
	mapset "github.com/deckarep/golang-set/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/glucolink/cgm/config"
	"github.com/glucolink/cgm/errors"
	"github.com/glucolink/cgm/readings"
	"github.com/glucolink/cgm/sessions"
	"github.com/glucolink/cgm/vendors"
)

const deviceName = "FreeStyle Libre"

var vendorName = readings.VendorLibreLinkUp.String()

// knownRegions are the regional API deployments an account may name
// explicitly. Redirect targets reported by the vendor are trusted as is.
var knownRegions = mapset.NewSet("us", "eu", "de", "fr", "jp", "ap", "au")

// Credentials are the fields the LibreLinkUp adapter decodes from the opaque
// envelope. Region is optional and falls back to the configured default.
type Credentials struct {
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
	Region   string `mapstructure:"region"`
}

type Params struct {
	fx.In

	Config     *config.Config
	HTTPClient *http.Client
	Sessions   sessions.Cache
	Logger     *zap.SugaredLogger
}

// Adapter fetches glucose data through the LibreLinkUp follower API: login
// against the regional deployment, resolve the first connection's patient,
// then read its measurement graph.
type Adapter struct {
	urlTemplate   string
	defaultRegion string
	maxRedirects  int
	client        *http.Client
	sessions      sessions.Cache
	logger        *zap.SugaredLogger
}

var _ vendors.Adapter = &Adapter{}

func NewAdapter(p Params) (*Adapter, error) {
	return &Adapter{
		urlTemplate:   p.Config.LibreBaseURL,
		defaultRegion: strings.ToLower(p.Config.LibreRegion),
		maxRedirects:  p.Config.LibreMaxRedirects,
		client:        p.HTTPClient,
		sessions:      p.Sessions,
		logger:        p.Logger.With("vendor", vendorName),
	}, nil
}

func (a *Adapter) Vendor() readings.Vendor {
	return readings.VendorLibreLinkUp
}

func (a *Adapter) TestConnection(ctx context.Context, credentials vendors.Credentials) (*vendors.ConnectionResult, error) {
	creds, err := a.decodeCredentials(credentials)
	if err != nil {
		return &vendors.ConnectionResult{Message: err.Error()}, nil
	}

	session, err := a.authenticate(ctx, creds)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.IsNoData(err) {
			return &vendors.ConnectionResult{
				Success: true,
				Message: "connected, no sensor data shared yet",
			}, nil
		}
		return &vendors.ConnectionResult{Message: err.Error()}, nil
	}

	a.sessions.Put(a.sessionKey(creds), session.toCache())

	return &vendors.ConnectionResult{
		Success:     true,
		Message:     "connected to LibreLinkUp",
		AccountInfo: session.PatientName,
	}, nil
}

// GetGlucoseReadings reads the graph for the account's first connection,
// re-authenticating exactly once when the vendor rejects the session. The
// graph endpoint has no window parameters, so the window and count are
// applied client side.
func (a *Adapter) GetGlucoseReadings(ctx context.Context, credentials vendors.Credentials, windowMinutes int, maxCount int) ([]readings.GlucoseReading, error) {
	creds, err := a.decodeCredentials(credentials)
	if err != nil {
		return nil, err
	}

	var batch []readings.GlucoseReading
	err = retry.Do(
		func() error {
			session, err := a.session(ctx, creds)
			if err != nil {
				return err
			}

			batch, err = a.fetchGraph(ctx, session)
			return err
		},
		retry.Attempts(2),
		retry.RetryIf(errors.IsSessionExpired),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			a.sessions.Invalidate(a.sessionKey(creds))
			a.logger.Warnw("session rejected, re-authenticating", "attempt", n+1)
		}),
	)
	if err != nil {
		if errors.IsSessionExpired(err) {
			return nil, errors.WrapTransport(vendorName, "session rejected after re-authentication", err)
		}
		return nil, err
	}

	readings.SortNewestFirst(batch)
	return clampWindow(batch, windowMinutes, maxCount), nil
}

func (a *Adapter) GetCurrentGlucose(ctx context.Context, credentials vendors.Credentials) (*vendors.CurrentGlucose, error) {
	batch, err := a.GetGlucoseReadings(ctx, credentials, 60, 2)
	if err != nil {
		return nil, err
	}

	return vendors.NewCurrentGlucose(batch, time.Now()), nil
}

// session returns the cached session for the account or logs in and resolves
// the patient connection, caching the result.
func (a *Adapter) session(ctx context.Context, creds *Credentials) (*session, error) {
	key := a.sessionKey(creds)
	if cached, ok := a.sessions.Get(key); ok {
		return sessionFromCache(cached), nil
	}

	session, err := a.authenticate(ctx, creds)
	if err != nil {
		return nil, err
	}

	a.sessions.Put(key, session.toCache())
	a.logger.Debugw("authenticated", "region", session.Region, "patient", session.PatientID)

	return session, nil
}

func (a *Adapter) sessionKey(creds *Credentials) string {
	return sessions.Key(readings.VendorLibreLinkUp, creds.Email)
}

func (a *Adapter) decodeCredentials(credentials vendors.Credentials) (*Credentials, error) {
	creds := &Credentials{}
	if err := vendors.DecodeCredentials(credentials, creds); err != nil {
		return nil, err
	}
	if creds.Email == "" || creds.Password == "" {
		return nil, errors.NewCredential(vendorName, "email and password are required")
	}

	creds.Region = strings.ToLower(creds.Region)
	if creds.Region == "" {
		creds.Region = a.defaultRegion
	}
	if !knownRegions.Contains(creds.Region) {
		return nil, errors.NewCredential(vendorName, "unknown region "+creds.Region)
	}

	return creds, nil
}

// clampWindow keeps the newest readings inside the window, newest first.
func clampWindow(batch []readings.GlucoseReading, windowMinutes int, maxCount int) []readings.GlucoseReading {
	cutoff := time.Now().Add(-time.Duration(windowMinutes) * time.Minute)
	clamped := make([]readings.GlucoseReading, 0, len(batch))
	for _, reading := range batch {
		if reading.Time.Before(cutoff) {
			continue
		}
		if len(clamped) == maxCount {
			break
		}
		clamped = append(clamped, reading)
	}
	return clamped
}
