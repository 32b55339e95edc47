package vendors

import (
	"net/http"

	"github.com/glucolink/cgm/config"
)

// NewHTTPClient is the shared client for all vendor adapters. Vendor APIs sit
// behind public CAs so the default transport is kept as is.
func NewHTTPClient(cfg *config.Config) *http.Client {
	return &http.Client{
		Timeout: cfg.HTTPTimeout,
	}
}
