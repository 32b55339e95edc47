package test

import (
	"time"

	"github.com/glucolink/cgm/readings"
	"github.com/glucolink/cgm/test"
)

var vendors = []readings.Vendor{
	readings.VendorDexcomShare,
	readings.VendorLibreLinkUp,
	readings.VendorNightscout,
}

var trends = []readings.TrendDirection{
	readings.TrendDoubleUp,
	readings.TrendSingleUp,
	readings.TrendFortyFiveUp,
	readings.TrendFlat,
	readings.TrendFortyFiveDown,
	readings.TrendSingleDown,
	readings.TrendDoubleDown,
}

func RandomVendor() readings.Vendor {
	return vendors[test.Rand.Intn(len(vendors))]
}

func RandomTrend() readings.TrendDirection {
	return trends[test.Rand.Intn(len(trends))]
}

func RandomReading() readings.GlucoseReading {
	at := time.Now().UTC().Add(-time.Duration(test.Faker.IntBetween(0, 60*24*14)) * time.Minute)
	return readings.New(
		test.Faker.IntBetween(40, 400),
		RandomTrend(),
		at,
		RandomVendor(),
		test.Faker.Company().Name(),
	)
}

// RandomHistory returns count readings spaced five minutes apart, newest
// first, the way vendor feeds return them.
func RandomHistory(count int) []readings.GlucoseReading {
	newest := time.Now().UTC().Truncate(time.Second)
	history := make([]readings.GlucoseReading, 0, count)
	for i := 0; i < count; i++ {
		history = append(history, readings.New(
			test.Faker.IntBetween(40, 400),
			RandomTrend(),
			newest.Add(-time.Duration(i*5)*time.Minute),
			RandomVendor(),
			test.Faker.Company().Name(),
		))
	}
	return history
}
