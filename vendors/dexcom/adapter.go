package dexcom

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/glucolink/cgm/config"
	"github.com/glucolink/cgm/errors"
	"github.com/glucolink/cgm/readings"
	"github.com/glucolink/cgm/sessions"
	"github.com/glucolink/cgm/vendors"
)

const deviceName = "Dexcom Share"

// GetCurrentGlucose needs the newest sample plus its predecessor for the delta.
const (
	currentWindowMinutes = 30
	currentMaxCount      = 2
)

var vendorName = readings.VendorDexcomShare.String()

// Credentials are the fields the Dexcom Share adapter decodes from the
// opaque envelope.
type Credentials struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type Params struct {
	fx.In

	Config     *config.Config
	HTTPClient *http.Client
	Sessions   sessions.Cache
	Logger     *zap.SugaredLogger
}

// Adapter fetches glucose readings from the Dexcom Share publisher API using
// the two-step account/session GUID handshake.
type Adapter struct {
	baseURL  string
	client   *http.Client
	sessions sessions.Cache
	logger   *zap.SugaredLogger
}

var _ vendors.Adapter = &Adapter{}

func NewAdapter(p Params) (*Adapter, error) {
	return &Adapter{
		baseURL:  strings.TrimRight(p.Config.DexcomBaseURL, "/"),
		client:   p.HTTPClient,
		sessions: p.Sessions,
		logger:   p.Logger.With("vendor", vendorName),
	}, nil
}

func (a *Adapter) Vendor() readings.Vendor {
	return readings.VendorDexcomShare
}

func (a *Adapter) TestConnection(ctx context.Context, credentials vendors.Credentials) (*vendors.ConnectionResult, error) {
	creds, err := decodeCredentials(credentials)
	if err != nil {
		return &vendors.ConnectionResult{Message: err.Error()}, nil
	}

	session, err := a.authenticate(ctx, creds)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return &vendors.ConnectionResult{Message: err.Error()}, nil
	}

	a.sessions.Put(a.sessionKey(creds), *session)

	return &vendors.ConnectionResult{
		Success:     true,
		Message:     "connected to Dexcom Share",
		AccountInfo: session.AccountRef,
	}, nil
}

// GetGlucoseReadings fetches the latest values, re-authenticating exactly
// once when the vendor rejects the cached session.
func (a *Adapter) GetGlucoseReadings(ctx context.Context, credentials vendors.Credentials, windowMinutes int, maxCount int) ([]readings.GlucoseReading, error) {
	creds, err := decodeCredentials(credentials)
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

			batch, err = a.fetchLatestValues(ctx, session.Token, windowMinutes, maxCount)
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
	return batch, nil
}

func (a *Adapter) GetCurrentGlucose(ctx context.Context, credentials vendors.Credentials) (*vendors.CurrentGlucose, error) {
	batch, err := a.GetGlucoseReadings(ctx, credentials, currentWindowMinutes, currentMaxCount)
	if err != nil {
		return nil, err
	}

	return vendors.NewCurrentGlucose(batch, time.Now()), nil
}

// session returns the cached session for the account or runs the full
// handshake and caches the result.
func (a *Adapter) session(ctx context.Context, creds *Credentials) (*sessions.Session, error) {
	key := a.sessionKey(creds)
	if session, ok := a.sessions.Get(key); ok {
		return session, nil
	}

	session, err := a.authenticate(ctx, creds)
	if err != nil {
		return nil, err
	}

	a.sessions.Put(key, *session)
	a.logger.Debugw("authenticated", "account", session.AccountRef)

	return session, nil
}

func (a *Adapter) sessionKey(creds *Credentials) string {
	return sessions.Key(readings.VendorDexcomShare, creds.Username)
}

func decodeCredentials(credentials vendors.Credentials) (*Credentials, error) {
	creds := &Credentials{}
	if err := vendors.DecodeCredentials(credentials, creds); err != nil {
		return nil, err
	}
	if creds.Username == "" || creds.Password == "" {
		return nil, errors.NewCredential(vendorName, "username and password are required")
	}

	return creds, nil
}
