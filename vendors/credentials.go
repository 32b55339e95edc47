package vendors

import (
	"github.com/mitchellh/mapstructure"

	"github.com/glucolink/cgm/errors"
	"github.com/glucolink/cgm/readings"
)

// Credentials is the opaque credential envelope handed to adapters. The
// engine never interprets Fields; each adapter decodes the keys it needs.
// Dispatch happens on Vendor alone, never on which fields are populated.
type Credentials struct {
	Vendor readings.Vendor `json:"vendor"`
	Fields map[string]any  `json:"fields"`
}

// DecodeCredentials maps the opaque fields onto an adapter's typed
// credentials. Unknown keys are rejected so typos surface as credential
// errors instead of silently empty values.
func DecodeCredentials(credentials Credentials, target any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      target,
		ErrorUnused: true,
	})
	if err != nil {
		return err
	}

	if err := decoder.Decode(credentials.Fields); err != nil {
		return errors.NewCredential(credentials.Vendor.String(), "malformed credentials")
	}

	return nil
}
