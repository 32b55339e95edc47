package vendors

import (
	"context"
	"time"

	"github.com/glucolink/cgm/pointer"
	"github.com/glucolink/cgm/readings"
)

//go:generate mockgen --build_flags=--mod=mod -source=./vendors.go -destination=./test/mock_vendors.go -package test MockAdapter

// ConnectionResult reports the outcome of a credential check. Credential and
// vendor-side failures land in Success/Message rather than in an error so
// callers can surface them to the account owner.
type ConnectionResult struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	AccountInfo string `json:"accountInfo,omitempty"`
}

// CurrentGlucose is the most recent reading plus recency metadata. Delta is
// the change since the previous reading and is nil when the batch holds a
// single sample.
type CurrentGlucose struct {
	readings.GlucoseReading
	MinutesAgo int  `json:"minutesAgo"`
	Delta      *int `json:"delta,omitempty"`
}

// Adapter is the contract every vendor integration satisfies. Implementations
// decode their own credential fields from the opaque envelope and normalize
// all results to readings values.
type Adapter interface {
	Vendor() readings.Vendor
	TestConnection(ctx context.Context, credentials Credentials) (*ConnectionResult, error)
	GetGlucoseReadings(ctx context.Context, credentials Credentials, windowMinutes int, maxCount int) ([]readings.GlucoseReading, error)
	GetCurrentGlucose(ctx context.Context, credentials Credentials) (*CurrentGlucose, error)
}

// NewCurrentGlucose summarizes a newest-first batch. Returns nil for an empty
// batch so adapters report "no current value" uniformly.
func NewCurrentGlucose(rs []readings.GlucoseReading, now time.Time) *CurrentGlucose {
	if len(rs) == 0 {
		return nil
	}

	current := &CurrentGlucose{
		GlucoseReading: rs[0],
		MinutesAgo:     int(now.Sub(rs[0].Time).Minutes()),
	}
	if len(rs) > 1 {
		current.Delta = pointer.FromAny(rs[0].Value - rs[1].Value)
	}

	return current
}
