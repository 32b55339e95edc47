package readings

import (
	"math"
	"sort"
	"strings"
	"time"
)

// Vendor identifies the CGM backend a reading was fetched from.
type Vendor string

const (
	VendorDexcomShare Vendor = "dexcomShare"
	VendorLibreLinkUp Vendor = "libreLinkUp"
	VendorNightscout  Vendor = "nightscout"
)

func (v Vendor) String() string {
	return string(v)
}

// TrendDirection is the shared trend vocabulary all vendor codes normalize to.
type TrendDirection string

const (
	TrendNone           TrendDirection = "None"
	TrendDoubleUp       TrendDirection = "DoubleUp"
	TrendSingleUp       TrendDirection = "SingleUp"
	TrendFortyFiveUp    TrendDirection = "FortyFiveUp"
	TrendFlat           TrendDirection = "Flat"
	TrendFortyFiveDown  TrendDirection = "FortyFiveDown"
	TrendSingleDown     TrendDirection = "SingleDown"
	TrendDoubleDown     TrendDirection = "DoubleDown"
	TrendNotComputable  TrendDirection = "NotComputable"
	TrendRateOutOfRange TrendDirection = "RateOutOfRange"
)

// Dexcom Share numeric trend codes, used by responses that predate the
// string Trend field.
var dexcomTrendCodes = map[int]TrendDirection{
	0: TrendNone,
	1: TrendDoubleUp,
	2: TrendSingleUp,
	3: TrendFortyFiveUp,
	4: TrendFlat,
	5: TrendFortyFiveDown,
	6: TrendSingleDown,
	7: TrendDoubleDown,
	8: TrendNotComputable,
	9: TrendRateOutOfRange,
}

// LibreLinkUp measurement TrendArrow codes.
var libreTrendCodes = map[int]TrendDirection{
	1: TrendSingleDown,
	2: TrendFortyFiveDown,
	3: TrendFlat,
	4: TrendFortyFiveUp,
	5: TrendSingleUp,
}

var trendArrows = map[TrendDirection]string{
	TrendNone:           "",
	TrendDoubleUp:       "↑↑",
	TrendSingleUp:       "↑",
	TrendFortyFiveUp:    "↗",
	TrendFlat:           "→",
	TrendFortyFiveDown:  "↘",
	TrendSingleDown:     "↓",
	TrendDoubleDown:     "↓↓",
	TrendNotComputable:  "?",
	TrendRateOutOfRange: "⚠",
}

var trendNames = map[string]TrendDirection{
	"none":           TrendNone,
	"doubleup":       TrendDoubleUp,
	"singleup":       TrendSingleUp,
	"fortyfiveup":    TrendFortyFiveUp,
	"flat":           TrendFlat,
	"fortyfivedown":  TrendFortyFiveDown,
	"singledown":     TrendSingleDown,
	"doubledown":     TrendDoubleDown,
	"notcomputable":  TrendNotComputable,
	"rateoutofrange": TrendRateOutOfRange,
}

func TrendFromDexcomCode(code int) TrendDirection {
	if trend, ok := dexcomTrendCodes[code]; ok {
		return trend
	}
	return TrendNone
}

func TrendFromLibreArrow(code int) TrendDirection {
	if trend, ok := libreTrendCodes[code]; ok {
		return trend
	}
	return TrendNone
}

// TrendFromName normalizes the spelled-out directions used by modern Dexcom
// responses and Nightscout entries, e.g. "Flat" or "RATE OUT OF RANGE".
func TrendFromName(name string) TrendDirection {
	normalized := strings.ToLower(strings.ReplaceAll(name, " ", ""))
	if trend, ok := trendNames[normalized]; ok {
		return trend
	}
	return TrendNone
}

// Arrow returns the display glyph for the direction. Glyphs are derived from
// the normalized direction only, never from raw vendor codes.
func (t TrendDirection) Arrow() string {
	return trendArrows[t]
}

const (
	mgdlPerMmoll = 18.0182

	// staleAfter is how old the newest reading may be before a feed is
	// considered interrupted.
	staleAfter = 15 * time.Minute

	// duplicateWindow is the spacing under which a vendor's "current"
	// reading is treated as already present in its history batch.
	duplicateWindow = 60 * time.Second
)

// GlucoseReading is one normalized CGM sample. Value is mg/dL. Immutable
// once produced by an adapter.
type GlucoseReading struct {
	Value      int            `json:"value"`
	Trend      TrendDirection `json:"trendDirection"`
	Arrow      string         `json:"trendArrow"`
	Time       time.Time      `json:"timestamp"`
	Vendor     Vendor         `json:"sourceVendor"`
	DeviceName string         `json:"deviceName"`
}

func New(value int, trend TrendDirection, at time.Time, vendor Vendor, deviceName string) GlucoseReading {
	return GlucoseReading{
		Value:      value,
		Trend:      trend,
		Arrow:      trend.Arrow(),
		Time:       at.UTC(),
		Vendor:     vendor,
		DeviceName: deviceName,
	}
}

// Mmol converts to mmol/L rounded to the one decimal CGM apps display.
func (r GlucoseReading) Mmol() float64 {
	return math.Round(float64(r.Value)/mgdlPerMmoll*10) / 10
}

func (r GlucoseReading) Age(now time.Time) time.Duration {
	return now.Sub(r.Time)
}

func (r GlucoseReading) Stale(now time.Time) bool {
	return r.Age(now) > staleAfter
}

func SortNewestFirst(rs []GlucoseReading) {
	sort.SliceStable(rs, func(i, j int) bool {
		return rs[i].Time.After(rs[j].Time)
	})
}

func SortOldestFirst(rs []GlucoseReading) {
	sort.SliceStable(rs, func(i, j int) bool {
		return rs[i].Time.Before(rs[j].Time)
	})
}

// MergeCurrent folds a vendor's single "current" reading into a history
// batch. The current reading is dropped when any history entry sits within
// the duplicate window; the history entry wins.
func MergeCurrent(history []GlucoseReading, current GlucoseReading) []GlucoseReading {
	for _, r := range history {
		delta := r.Time.Sub(current.Time)
		if delta < 0 {
			delta = -delta
		}
		if delta < duplicateWindow {
			return history
		}
	}
	return append(history, current)
}
