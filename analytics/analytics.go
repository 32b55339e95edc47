package analytics

import (
	"context"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/glucolink/cgm/errors"
	"github.com/glucolink/cgm/patterns"
	"github.com/glucolink/cgm/readings"
	"github.com/glucolink/cgm/stats"
	"github.com/glucolink/cgm/vendors"
)

const (
	defaultWindowDays = 14

	// One reading every five minutes.
	readingsPerDay = 288
)

// Request asks for one patient's readings to be fetched and analyzed.
// WindowDays defaults to fourteen when unset.
type Request struct {
	Vendor      readings.Vendor     `json:"vendor"`
	Credentials vendors.Credentials `json:"credentials"`
	PatientID   string              `json:"patientIdentifier"`
	WindowDays  int                 `json:"windowDays"`
}

// Bundle is the analysis product for one request. Persistence, display, and
// alerting belong to the calling layer.
type Bundle struct {
	Readings   []readings.GlucoseReading `json:"readings"`
	Statistics stats.Snapshot            `json:"statistics"`
	Patterns   []patterns.Finding        `json:"patterns"`
}

type Service interface {
	Analyze(ctx context.Context, request Request) (*Bundle, error)
	AnalyzeAll(ctx context.Context, requests []Request) ([]*Bundle, error)
}

type service struct {
	registry vendors.Registry
	detector patterns.Detector
	logger   *zap.SugaredLogger
}

var _ Service = &service{}

type Params struct {
	fx.In

	Registry vendors.Registry
	Detector patterns.Detector
	Logger   *zap.SugaredLogger
}

func NewService(p Params) (Service, error) {
	return &service{
		registry: p.Registry,
		detector: p.Detector,
		logger:   p.Logger.With("component", "analytics"),
	}, nil
}

// Analyze fetches the request's reading window and derives statistics and
// pattern findings from it. A vendor that is reachable but has no data yet
// produces an empty bundle rather than an error.
func (s *service) Analyze(ctx context.Context, request Request) (*Bundle, error) {
	adapter, err := s.registry.Adapter(request.Vendor)
	if err != nil {
		return nil, err
	}
	request.Credentials.Vendor = request.Vendor

	days := request.WindowDays
	if days <= 0 {
		days = defaultWindowDays
	}

	rs, err := adapter.GetGlucoseReadings(ctx, request.Credentials, days*24*60, days*readingsPerDay)
	if err != nil {
		if errors.IsNoData(err) {
			s.logger.Debugw("no readings shared yet", "vendor", request.Vendor, "patientId", request.PatientID)
			return &Bundle{
				Readings:   []readings.GlucoseReading{},
				Statistics: stats.Compute(nil),
				Patterns:   []patterns.Finding{},
			}, nil
		}
		return nil, err
	}

	s.logger.Debugw("analyzed readings", "vendor", request.Vendor, "patientId", request.PatientID, "count", len(rs))
	return &Bundle{
		Readings:   rs,
		Statistics: stats.Compute(rs),
		Patterns:   s.detector.Detect(rs),
	}, nil
}

// AnalyzeAll runs the requests concurrently. Results line up with the input
// order. The first failure cancels the remaining fetches and no partial
// results are returned.
func (s *service) AnalyzeAll(ctx context.Context, requests []Request) ([]*Bundle, error) {
	bundles := make([]*Bundle, len(requests))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, request := range requests {
		i, request := i, request
		eg.Go(func() error {
			bundle, err := s.Analyze(egCtx, request)
			if err != nil {
				return fmt.Errorf("patient %s: %w", request.PatientID, err)
			}
			bundles[i] = bundle
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return bundles, nil
}
