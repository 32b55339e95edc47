package patterns

import (
	"fmt"
	"time"
	// Keeps PatternsTimezone resolvable on hosts without a zone database.
	_ "time/tzdata"

	mapset "github.com/deckarep/golang-set/v2"
	mathstats "github.com/montanaflynn/stats"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/glucolink/cgm/config"
	"github.com/glucolink/cgm/readings"
	"github.com/glucolink/cgm/stats"
)

const (
	// Day-level frequencies only look at the most recent seven calendar
	// days, however much history is supplied.
	frequencyDays = 7

	highDayMinimum     = 3
	highDaySignificant = 5

	lowDayMinimum     = 2
	lowDaySignificant = 4

	variabilityMinReadings = 10
	variabilityThreshold   = 36.0
	variabilitySignificant = 45.0

	dawnDeltaThreshold   = 30.0
	dawnDayMinimum       = 3
	dawnSignificantDelta = 50.0

	dayLayout = "2006-01-02"
)

type Detector interface {
	Detect(rs []readings.GlucoseReading) []Finding
}

type detector struct {
	location *time.Location
	logger   *zap.SugaredLogger
}

var _ Detector = &detector{}

type Params struct {
	fx.In

	Config *config.Config
	Logger *zap.SugaredLogger
}

func NewDetector(p Params) (Detector, error) {
	location, err := time.LoadLocation(p.Config.PatternsTimezone)
	if err != nil {
		return nil, fmt.Errorf("unable to load patterns timezone: %w", err)
	}
	return &detector{
		location: location,
		logger:   p.Logger.With("component", "patterns"),
	}, nil
}

// Detect buckets readings by calendar date and time-of-day window and
// reports recurring highs, recurring lows, high variability, and the dawn
// phenomenon. It never fails; insufficient data yields no findings.
func (d *detector) Detect(rs []readings.GlucoseReading) []Finding {
	if len(rs) == 0 {
		return nil
	}

	newest := rs[0].Time
	for _, r := range rs[1:] {
		if r.Time.After(newest) {
			newest = r.Time
		}
	}
	earliest := newest.In(d.location).AddDate(0, 0, -(frequencyDays - 1)).Format(dayLayout)

	buckets := make(map[Window]map[string][]float64)
	for _, r := range rs {
		local := r.Time.In(d.location)
		day := local.Format(dayLayout)
		if day < earliest {
			continue
		}
		window := windowOf(local.Hour())
		if buckets[window] == nil {
			buckets[window] = make(map[string][]float64)
		}
		buckets[window][day] = append(buckets[window][day], float64(r.Value))
	}

	findings := make([]Finding, 0)
	for _, window := range windowOrder {
		findings = append(findings, d.windowFindings(window, buckets[window])...)
	}
	if finding := d.dawnFinding(buckets[Overnight], buckets[Morning]); finding != nil {
		findings = append(findings, *finding)
	}

	d.logger.Debugw("pattern detection finished", "readings", len(rs), "findings", len(findings))
	return findings
}

func (d *detector) windowFindings(window Window, byDay map[string][]float64) []Finding {
	if len(byDay) == 0 {
		return nil
	}

	highDays := mapset.NewSet[string]()
	lowDays := mapset.NewSet[string]()
	highAverages := make([]float64, 0, len(byDay))
	lows := make([]float64, 0)
	all := make([]float64, 0, len(byDay))

	for day, values := range byDay {
		avg, _ := mathstats.Mean(values)
		if avg > float64(stats.HighThreshold) {
			highDays.Add(day)
			highAverages = append(highAverages, avg)
		}
		for _, value := range values {
			if value < float64(stats.LowThreshold) {
				lowDays.Add(day)
				lows = append(lows, value)
			}
		}
		all = append(all, values...)
	}

	findings := make([]Finding, 0)

	if count := highDays.Cardinality(); count >= highDayMinimum {
		avg, _ := mathstats.Mean(highAverages)
		severity := Moderate
		if count >= highDaySignificant {
			severity = Significant
		}
		findings = append(findings, Finding{
			Type:         RecurringHighs,
			Window:       window,
			Severity:     severity,
			Frequency:    frequency(count),
			AverageValue: round1(avg),
			Detail:       fmt.Sprintf("average glucose above %d mg/dL during the %s window", stats.HighThreshold, window),
		})
	}

	if count := lowDays.Cardinality(); count >= lowDayMinimum {
		avg, _ := mathstats.Mean(lows)
		severity := Moderate
		if count >= lowDaySignificant {
			severity = Significant
		}
		findings = append(findings, Finding{
			Type:         RecurringLows,
			Window:       window,
			Severity:     severity,
			Frequency:    frequency(count),
			AverageValue: round1(avg),
			Detail:       fmt.Sprintf("readings below %d mg/dL during the %s window", stats.LowThreshold, window),
		})
	}

	if len(all) >= variabilityMinReadings {
		mean, _ := mathstats.Mean(all)
		stdev, _ := mathstats.StdDevP(all)
		if mean > 0 {
			if cv := stdev / mean * 100; cv > variabilityThreshold {
				severity := Moderate
				if cv > variabilitySignificant {
					severity = Significant
				}
				findings = append(findings, Finding{
					Type:         HighVariability,
					Window:       window,
					Severity:     severity,
					Frequency:    fmt.Sprintf("%d readings over the last %d days", len(all), frequencyDays),
					AverageValue: round1(cv),
					Detail:       fmt.Sprintf("glucose swings of %.1f%% around the %s average", cv, window),
				})
			}
		}
	}

	return findings
}

// dawnFinding compares overnight and morning averages per day. Only days
// carrying readings in both windows participate.
func (d *detector) dawnFinding(overnight, morning map[string][]float64) *Finding {
	if len(overnight) == 0 || len(morning) == 0 {
		return nil
	}

	shared := mapset.NewSetFromMapKeys(overnight).Intersect(mapset.NewSetFromMapKeys(morning))

	deltas := make([]float64, 0, shared.Cardinality())
	shared.Each(func(day string) bool {
		overnightAvg, _ := mathstats.Mean(overnight[day])
		morningAvg, _ := mathstats.Mean(morning[day])
		if delta := morningAvg - overnightAvg; delta >= dawnDeltaThreshold {
			deltas = append(deltas, delta)
		}
		return false
	})

	if len(deltas) < dawnDayMinimum {
		return nil
	}

	meanDelta, _ := mathstats.Mean(deltas)
	severity := Moderate
	if meanDelta > dawnSignificantDelta {
		severity = Significant
	}
	return &Finding{
		Type:         DawnPhenomenon,
		Window:       Morning,
		Severity:     severity,
		Frequency:    frequency(len(deltas)),
		AverageValue: round1(meanDelta),
		Detail:       fmt.Sprintf("glucose rose %.1f mg/dL on average between the overnight and morning windows", meanDelta),
	}
}

func frequency(days int) string {
	return fmt.Sprintf("%d of the last %d days", days, frequencyDays)
}

func round1(value float64) float64 {
	rounded, _ := mathstats.Round(value, 1)
	return rounded
}
