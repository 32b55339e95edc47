package patterns_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/glucolink/cgm/config"
	"github.com/glucolink/cgm/patterns"
	"github.com/glucolink/cgm/readings"
)

// base anchors fixture days. Day zero is the most recent day; the detector
// derives its seven day window from the newest reading it is given.
var base = time.Date(2026, time.May, 20, 0, 0, 0, 0, time.UTC)

func at(daysAgo, hour, minute, value int) readings.GlucoseReading {
	ts := base.AddDate(0, 0, -daysAgo).Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
	return readings.New(value, readings.TrendFlat, ts, readings.VendorDexcomShare, "simulator")
}

var _ = Describe("Detector", func() {
	var detector patterns.Detector

	BeforeEach(func() {
		var err error
		detector, err = patterns.NewDetector(patterns.Params{
			Config: &config.Config{PatternsTimezone: "UTC"},
			Logger: zap.NewNop().Sugar(),
		})
		Expect(err).ToNot(HaveOccurred())
	})

	It("fails on an unknown timezone", func() {
		_, err := patterns.NewDetector(patterns.Params{
			Config: &config.Config{PatternsTimezone: "Mars/Olympus"},
			Logger: zap.NewNop().Sugar(),
		})
		Expect(err).To(HaveOccurred())
	})

	It("finds nothing in an empty history", func() {
		Expect(detector.Detect(nil)).To(BeEmpty())
	})

	Context("recurring highs", func() {
		It("flags five straight days of high daytime averages as significant", func() {
			rs := make([]readings.GlucoseReading, 0)
			for day := 0; day < 5; day++ {
				rs = append(rs,
					at(day, 2, 0, 100),
					at(day, 7, 0, 110),
					at(day, 10, 0, 200),
					at(day, 14, 0, 220),
					at(day, 19, 0, 120),
				)
			}

			findings := detector.Detect(rs)
			Expect(findings).To(HaveLen(1))
			Expect(findings[0].Type).To(Equal(patterns.RecurringHighs))
			Expect(findings[0].Window).To(Equal(patterns.Daytime))
			Expect(findings[0].Severity).To(Equal(patterns.Significant))
			Expect(findings[0].Frequency).To(Equal("5 of the last 7 days"))
			Expect(findings[0].AverageValue).To(Equal(210.0))
			Expect(findings[0].Detail).To(ContainSubstring("daytime"))
		})

		It("grades three high days as moderate", func() {
			rs := []readings.GlucoseReading{
				at(0, 10, 0, 200),
				at(1, 10, 0, 210),
				at(2, 10, 0, 190),
			}

			findings := detector.Detect(rs)
			Expect(findings).To(HaveLen(1))
			Expect(findings[0].Type).To(Equal(patterns.RecurringHighs))
			Expect(findings[0].Severity).To(Equal(patterns.Moderate))
			Expect(findings[0].Frequency).To(Equal("3 of the last 7 days"))
			Expect(findings[0].AverageValue).To(Equal(200.0))
		})

		It("ignores high days older than a week", func() {
			rs := []readings.GlucoseReading{at(0, 12, 0, 120)}
			for day := 7; day < 12; day++ {
				rs = append(rs, at(day, 10, 0, 220))
			}

			Expect(detector.Detect(rs)).To(BeEmpty())
		})
	})

	Context("recurring lows", func() {
		It("flags two days with overnight dips", func() {
			rs := []readings.GlucoseReading{
				at(0, 3, 0, 65),
				at(1, 4, 0, 58),
				at(2, 3, 30, 100),
				at(3, 3, 30, 100),
				at(4, 3, 30, 100),
			}

			findings := detector.Detect(rs)
			Expect(findings).To(HaveLen(1))
			Expect(findings[0].Type).To(Equal(patterns.RecurringLows))
			Expect(findings[0].Window).To(Equal(patterns.Overnight))
			Expect(findings[0].Severity).To(Equal(patterns.Moderate))
			Expect(findings[0].Frequency).To(Equal("2 of the last 7 days"))
			Expect(findings[0].AverageValue).To(Equal(61.5))
		})

		It("escalates four low days to significant", func() {
			rs := make([]readings.GlucoseReading, 0)
			for day := 0; day < 4; day++ {
				rs = append(rs, at(day, 2, 0, 60))
			}

			findings := detector.Detect(rs)
			Expect(findings).To(HaveLen(1))
			Expect(findings[0].Type).To(Equal(patterns.RecurringLows))
			Expect(findings[0].Severity).To(Equal(patterns.Significant))
		})
	})

	Context("high variability", func() {
		It("flags wide swings once a window carries ten readings", func() {
			rs := make([]readings.GlucoseReading, 0)
			for day := 0; day < 5; day++ {
				rs = append(rs, at(day, 10, 0, 80), at(day, 14, 0, 280))
			}

			findings := detector.Detect(rs)
			Expect(findings).To(HaveLen(1))
			Expect(findings[0].Type).To(Equal(patterns.HighVariability))
			Expect(findings[0].Window).To(Equal(patterns.Daytime))
			Expect(findings[0].Severity).To(Equal(patterns.Significant))
			Expect(findings[0].AverageValue).To(Equal(55.6))
		})

		It("stays quiet below ten readings", func() {
			rs := make([]readings.GlucoseReading, 0)
			for day := 0; day < 4; day++ {
				rs = append(rs, at(day, 10, 0, 80), at(day, 14, 0, 280))
			}

			Expect(detector.Detect(rs)).To(BeEmpty())
		})

		It("reports variability alongside recurring highs without suppression", func() {
			rs := make([]readings.GlucoseReading, 0)
			for day := 0; day < 5; day++ {
				rs = append(rs, at(day, 10, 0, 120), at(day, 14, 0, 260))
			}

			findings := detector.Detect(rs)
			Expect(findings).To(HaveLen(2))
			Expect(findings[0].Type).To(Equal(patterns.RecurringHighs))
			Expect(findings[0].Severity).To(Equal(patterns.Significant))
			Expect(findings[1].Type).To(Equal(patterns.HighVariability))
			Expect(findings[1].Severity).To(Equal(patterns.Moderate))
			Expect(findings[1].AverageValue).To(Equal(36.8))
		})
	})

	Context("dawn phenomenon", func() {
		It("reports a moderate rise between overnight and morning averages", func() {
			rs := make([]readings.GlucoseReading, 0)
			for day := 0; day < 3; day++ {
				rs = append(rs,
					at(day, 2, 0, 85),
					at(day, 4, 0, 95),
					at(day, 7, 0, 120),
					at(day, 8, 0, 130),
				)
			}

			findings := detector.Detect(rs)
			Expect(findings).To(HaveLen(1))
			Expect(findings[0].Type).To(Equal(patterns.DawnPhenomenon))
			Expect(findings[0].Window).To(Equal(patterns.Morning))
			Expect(findings[0].Severity).To(Equal(patterns.Moderate))
			Expect(findings[0].Frequency).To(Equal("3 of the last 7 days"))
			Expect(findings[0].AverageValue).To(BeNumerically("~", 35, 0.01))
		})

		It("only counts days covered by both windows", func() {
			rs := []readings.GlucoseReading{
				at(0, 7, 0, 140),
				at(1, 7, 0, 140),
				at(2, 7, 0, 140),
				at(0, 2, 0, 90),
				at(1, 2, 0, 90),
			}

			Expect(detector.Detect(rs)).To(BeEmpty())
		})

		It("buckets a reading at exactly six o'clock into the morning window", func() {
			rs := make([]readings.GlucoseReading, 0)
			for day := 0; day < 3; day++ {
				rs = append(rs, at(day, 3, 0, 90), at(day, 6, 0, 125))
			}

			findings := detector.Detect(rs)
			Expect(findings).To(HaveLen(1))
			Expect(findings[0].Type).To(Equal(patterns.DawnPhenomenon))
			Expect(findings[0].Window).To(Equal(patterns.Morning))
		})
	})

	It("buckets hours in the configured timezone", func() {
		eastern, err := patterns.NewDetector(patterns.Params{
			Config: &config.Config{PatternsTimezone: "America/New_York"},
			Logger: zap.NewNop().Sugar(),
		})
		Expect(err).ToNot(HaveOccurred())

		// 02:00 UTC is 22:00 the previous evening in New York.
		rs := []readings.GlucoseReading{
			at(0, 2, 0, 60),
			at(1, 2, 0, 55),
		}

		findings := eastern.Detect(rs)
		Expect(findings).To(HaveLen(1))
		Expect(findings[0].Type).To(Equal(patterns.RecurringLows))
		Expect(findings[0].Window).To(Equal(patterns.Evening))
	})
})
