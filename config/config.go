package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// HTTPTimeout bounds every vendor round trip. Timeouts surface as
	// retryable transport errors, not vendor rejections.
	HTTPTimeout time.Duration `envconfig:"CGM_HTTP_TIMEOUT" default:"10s"`

	// SessionTTL is a conservative client-side cap, applied regardless of
	// the lifetime the vendor grants its own tokens.
	SessionTTL       time.Duration `envconfig:"CGM_SESSION_TTL" default:"10m"`
	SessionCacheSize int           `envconfig:"CGM_SESSION_CACHE_SIZE" default:"256"`

	DexcomBaseURL string `envconfig:"CGM_DEXCOM_BASE_URL" default:"https://share2.dexcom.com/ShareWebServices/Services"`

	// LibreBaseURL is a template; {region} is replaced with the lowercased
	// regional code a login resolves to.
	LibreBaseURL      string `envconfig:"CGM_LIBRE_BASE_URL" default:"https://api-{region}.libreview.io"`
	LibreRegion       string `envconfig:"CGM_LIBRE_REGION" default:"US"`
	LibreMaxRedirects int    `envconfig:"CGM_LIBRE_MAX_REDIRECTS" default:"1"`

	// PatternsTimezone names the location used to bucket readings into
	// time-of-day windows. "Local" follows the host timezone.
	PatternsTimezone string `envconfig:"CGM_PATTERNS_TIMEZONE" default:"Local"`
}

func NewConfig() (*Config, error) {
	cfg := &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
