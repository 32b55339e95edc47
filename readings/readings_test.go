package readings_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/glucolink/cgm/readings"
	readingsTest "github.com/glucolink/cgm/readings/test"
)

var _ = Describe("TrendDirection", func() {
	Describe("TrendFromDexcomCode", func() {
		It("maps every documented code", func() {
			Expect(readings.TrendFromDexcomCode(0)).To(Equal(readings.TrendNone))
			Expect(readings.TrendFromDexcomCode(1)).To(Equal(readings.TrendDoubleUp))
			Expect(readings.TrendFromDexcomCode(2)).To(Equal(readings.TrendSingleUp))
			Expect(readings.TrendFromDexcomCode(3)).To(Equal(readings.TrendFortyFiveUp))
			Expect(readings.TrendFromDexcomCode(4)).To(Equal(readings.TrendFlat))
			Expect(readings.TrendFromDexcomCode(5)).To(Equal(readings.TrendFortyFiveDown))
			Expect(readings.TrendFromDexcomCode(6)).To(Equal(readings.TrendSingleDown))
			Expect(readings.TrendFromDexcomCode(7)).To(Equal(readings.TrendDoubleDown))
			Expect(readings.TrendFromDexcomCode(8)).To(Equal(readings.TrendNotComputable))
			Expect(readings.TrendFromDexcomCode(9)).To(Equal(readings.TrendRateOutOfRange))
		})

		It("returns None for codes outside the table", func() {
			Expect(readings.TrendFromDexcomCode(10)).To(Equal(readings.TrendNone))
			Expect(readings.TrendFromDexcomCode(-1)).To(Equal(readings.TrendNone))
		})
	})

	Describe("TrendFromLibreArrow", func() {
		It("maps arrows one through five", func() {
			Expect(readings.TrendFromLibreArrow(1)).To(Equal(readings.TrendSingleDown))
			Expect(readings.TrendFromLibreArrow(2)).To(Equal(readings.TrendFortyFiveDown))
			Expect(readings.TrendFromLibreArrow(3)).To(Equal(readings.TrendFlat))
			Expect(readings.TrendFromLibreArrow(4)).To(Equal(readings.TrendFortyFiveUp))
			Expect(readings.TrendFromLibreArrow(5)).To(Equal(readings.TrendSingleUp))
		})

		It("returns None for unknown arrows", func() {
			Expect(readings.TrendFromLibreArrow(0)).To(Equal(readings.TrendNone))
			Expect(readings.TrendFromLibreArrow(6)).To(Equal(readings.TrendNone))
		})
	})

	Describe("TrendFromName", func() {
		It("matches names case insensitively", func() {
			Expect(readings.TrendFromName("Flat")).To(Equal(readings.TrendFlat))
			Expect(readings.TrendFromName("doubleUp")).To(Equal(readings.TrendDoubleUp))
			Expect(readings.TrendFromName("FORTYFIVEDOWN")).To(Equal(readings.TrendFortyFiveDown))
		})

		It("tolerates embedded spaces", func() {
			Expect(readings.TrendFromName("NOT COMPUTABLE")).To(Equal(readings.TrendNotComputable))
			Expect(readings.TrendFromName("rate out of range")).To(Equal(readings.TrendRateOutOfRange))
		})

		It("returns None for unrecognized names", func() {
			Expect(readings.TrendFromName("sideways")).To(Equal(readings.TrendNone))
			Expect(readings.TrendFromName("")).To(Equal(readings.TrendNone))
		})
	})

	Describe("Arrow", func() {
		It("renders a glyph for each direction", func() {
			Expect(readings.TrendDoubleUp.Arrow()).To(Equal("↑↑"))
			Expect(readings.TrendSingleUp.Arrow()).To(Equal("↑"))
			Expect(readings.TrendFortyFiveUp.Arrow()).To(Equal("↗"))
			Expect(readings.TrendFlat.Arrow()).To(Equal("→"))
			Expect(readings.TrendFortyFiveDown.Arrow()).To(Equal("↘"))
			Expect(readings.TrendSingleDown.Arrow()).To(Equal("↓"))
			Expect(readings.TrendDoubleDown.Arrow()).To(Equal("↓↓"))
			Expect(readings.TrendNotComputable.Arrow()).To(Equal("?"))
			Expect(readings.TrendRateOutOfRange.Arrow()).To(Equal("⚠"))
		})

		It("renders nothing when the trend is absent", func() {
			Expect(readings.TrendNone.Arrow()).To(BeEmpty())
		})
	})
})

var _ = Describe("GlucoseReading", func() {
	Describe("New", func() {
		It("derives the arrow from the trend", func() {
			reading := readings.New(120, readings.TrendFlat, time.Now(), readings.VendorDexcomShare, "Dexcom Share")
			Expect(reading.Arrow).To(Equal("→"))
		})

		It("stores the timestamp in UTC", func() {
			loc, err := time.LoadLocation("America/New_York")
			Expect(err).ToNot(HaveOccurred())

			at := time.Date(2023, 4, 5, 17, 30, 0, 0, loc)
			reading := readings.New(120, readings.TrendFlat, at, readings.VendorNightscout, "nightscout")
			Expect(reading.Time.Location()).To(Equal(time.UTC))
			Expect(reading.Time.Equal(at)).To(BeTrue())
		})
	})

	Describe("Mmol", func() {
		It("converts mg/dL to one decimal", func() {
			reading := readingsTest.RandomReading()
			reading.Value = 180
			Expect(reading.Mmol()).To(Equal(10.0))

			reading.Value = 100
			Expect(reading.Mmol()).To(Equal(5.5))
		})
	})

	Describe("Stale", func() {
		It("is false within fifteen minutes", func() {
			now := time.Now()
			reading := readings.New(110, readings.TrendFlat, now.Add(-14*time.Minute), readings.VendorLibreLinkUp, "")
			Expect(reading.Stale(now)).To(BeFalse())
		})

		It("is true beyond fifteen minutes", func() {
			now := time.Now()
			reading := readings.New(110, readings.TrendFlat, now.Add(-16*time.Minute), readings.VendorLibreLinkUp, "")
			Expect(reading.Stale(now)).To(BeTrue())
		})
	})
})

var _ = Describe("Sorting", func() {
	var rs []readings.GlucoseReading

	BeforeEach(func() {
		rs = make([]readings.GlucoseReading, 20)
		for i := range rs {
			rs[i] = readingsTest.RandomReading()
		}
	})

	It("orders newest first", func() {
		readings.SortNewestFirst(rs)
		for i := 1; i < len(rs); i++ {
			Expect(rs[i-1].Time.Before(rs[i].Time)).To(BeFalse())
		}
	})

	It("orders oldest first", func() {
		readings.SortOldestFirst(rs)
		for i := 1; i < len(rs); i++ {
			Expect(rs[i-1].Time.After(rs[i].Time)).To(BeFalse())
		}
	})
})

var _ = Describe("MergeCurrent", func() {
	var history []readings.GlucoseReading
	var newest time.Time

	BeforeEach(func() {
		newest = time.Now().UTC().Truncate(time.Second)
		history = []readings.GlucoseReading{
			readings.New(142, readings.TrendFlat, newest, readings.VendorLibreLinkUp, ""),
			readings.New(138, readings.TrendFlat, newest.Add(-5*time.Minute), readings.VendorLibreLinkUp, ""),
		}
	})

	It("drops the current reading when history already covers it", func() {
		current := readings.New(143, readings.TrendFortyFiveUp, newest.Add(30*time.Second), readings.VendorLibreLinkUp, "")
		merged := readings.MergeCurrent(history, current)
		Expect(merged).To(HaveLen(2))
		Expect(merged).To(Equal(history))
	})

	It("appends the current reading when it is distinct", func() {
		current := readings.New(150, readings.TrendSingleUp, newest.Add(3*time.Minute), readings.VendorLibreLinkUp, "")
		merged := readings.MergeCurrent(history, current)
		Expect(merged).To(HaveLen(3))
		Expect(merged[2]).To(Equal(current))
	})

	It("treats exactly sixty seconds as distinct", func() {
		current := readings.New(150, readings.TrendSingleUp, newest.Add(time.Minute), readings.VendorLibreLinkUp, "")
		merged := readings.MergeCurrent(history, current)
		Expect(merged).To(HaveLen(3))
	})
})
