package nightscout_test

import (
	"context"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/glucolink/cgm/config"
	"github.com/glucolink/cgm/errors"
	"github.com/glucolink/cgm/readings"
	"github.com/glucolink/cgm/vendors"
	"github.com/glucolink/cgm/vendors/nightscout"
	nightscoutTest "github.com/glucolink/cgm/vendors/nightscout/test"
)

var _ = Describe("NormalizeURL", func() {
	It("defaults to https when the scheme is missing", func() {
		normalized, err := nightscout.NormalizeURL("cgm.example.com")
		Expect(err).ToNot(HaveOccurred())
		Expect(normalized).To(Equal("https://cgm.example.com"))
	})

	It("keeps an explicit scheme", func() {
		normalized, err := nightscout.NormalizeURL("http://localhost:1337")
		Expect(err).ToNot(HaveOccurred())
		Expect(normalized).To(Equal("http://localhost:1337"))
	})

	It("drops trailing slashes", func() {
		normalized, err := nightscout.NormalizeURL("https://cgm.example.com///")
		Expect(err).ToNot(HaveOccurred())
		Expect(normalized).To(Equal("https://cgm.example.com"))
	})

	It("rejects addresses without a host", func() {
		_, err := nightscout.NormalizeURL("https://")
		Expect(err).To(HaveOccurred())
		Expect(errors.IsCredential(err)).To(BeTrue())
	})
})

var _ = Describe("Adapter", func() {
	var server *nightscoutTest.NightscoutServer
	var adapter *nightscout.Adapter

	credentials := func(fields map[string]any) vendors.Credentials {
		return vendors.Credentials{
			Vendor: readings.VendorNightscout,
			Fields: fields,
		}
	}

	validCredentials := func() vendors.Credentials {
		return credentials(map[string]any{
			"url":       server.URL,
			"apiSecret": nightscoutTest.APISecret,
		})
	}

	BeforeEach(func() {
		server = nightscoutTest.ServerStub()

		cfg := &config.Config{HTTPTimeout: 5 * time.Second}

		var err error
		adapter, err = nightscout.NewAdapter(nightscout.Params{
			HTTPClient: vendors.NewHTTPClient(cfg),
			Logger:     zap.NewNop().Sugar(),
		})
		Expect(err).ToNot(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	Describe("Vendor", func() {
		It("identifies as Nightscout", func() {
			Expect(adapter.Vendor()).To(Equal(readings.VendorNightscout))
		})
	})

	Describe("TestConnection", func() {
		It("reports the server name and version", func() {
			result, err := adapter.TestConnection(context.Background(), validCredentials())
			Expect(err).ToNot(HaveOccurred())
			Expect(result.Success).To(BeTrue())
			Expect(result.AccountInfo).To(Equal("nightscout 14.2.6"))
			Expect(server.StatusCalls).To(Equal(1))
		})

		It("reports a wrong secret without an error", func() {
			result, err := adapter.TestConnection(context.Background(), credentials(map[string]any{
				"url":       server.URL,
				"apiSecret": "wrong",
			}))
			Expect(err).ToNot(HaveOccurred())
			Expect(result.Success).To(BeFalse())
			Expect(result.Message).To(ContainSubstring("authentication failed"))
		})

		It("reports a missing URL without an error", func() {
			result, err := adapter.TestConnection(context.Background(), credentials(map[string]any{
				"apiSecret": nightscoutTest.APISecret,
			}))
			Expect(err).ToNot(HaveOccurred())
			Expect(result.Success).To(BeFalse())
			Expect(result.Message).To(ContainSubstring("required"))
		})

		It("connects to public instances without a secret", func() {
			server.Public = true

			result, err := adapter.TestConnection(context.Background(), credentials(map[string]any{
				"url": server.URL,
			}))
			Expect(err).ToNot(HaveOccurred())
			Expect(result.Success).To(BeTrue())
		})
	})

	Describe("GetGlucoseReadings", func() {
		var newest time.Time

		BeforeEach(func() {
			newest = time.Now().UTC().Truncate(time.Second)
			server.SetEntries([]map[string]any{
				{"sgv": 130.0, "date": newest.Add(-10 * time.Minute).UnixMilli(), "direction": "FortyFiveUp", "device": "xDrip"},
				{"sgv": 142.0, "date": newest.UnixMilli(), "direction": "Flat", "device": "xDrip"},
				{"sgv": 120.0, "date": newest.Add(-5 * time.Minute).UnixMilli(), "direction": "NOT COMPUTABLE"},
			})
		})

		It("normalizes and sorts entries", func() {
			batch, err := adapter.GetGlucoseReadings(context.Background(), validCredentials(), 60, 100)
			Expect(err).ToNot(HaveOccurred())
			Expect(batch).To(HaveLen(3))

			Expect(batch[0].Value).To(Equal(142))
			Expect(batch[0].Trend).To(Equal(readings.TrendFlat))
			Expect(batch[0].Time).To(BeTemporally("==", newest))
			Expect(batch[0].Vendor).To(Equal(readings.VendorNightscout))
			Expect(batch[0].DeviceName).To(Equal("xDrip"))

			Expect(batch[1].Value).To(Equal(120))
			Expect(batch[1].Trend).To(Equal(readings.TrendNotComputable))
			Expect(batch[1].DeviceName).To(Equal("Nightscout"))

			Expect(batch[2].Value).To(Equal(130))
			Expect(batch[2].Trend).To(Equal(readings.TrendFortyFiveUp))
		})

		It("queries the requested window and count", func() {
			_, err := adapter.GetGlucoseReadings(context.Background(), validCredentials(), 120, 25)
			Expect(err).ToNot(HaveOccurred())

			Expect(server.LastQuery.Get("count")).To(Equal("25"))

			start, err := time.Parse(time.RFC3339, server.LastQuery.Get("find[dateString][$gte]"))
			Expect(err).ToNot(HaveOccurred())
			Expect(start).To(BeTemporally("~", time.Now().Add(-120*time.Minute), 5*time.Second))
		})

		It("treats a wrong secret as a credential error", func() {
			_, err := adapter.GetGlucoseReadings(context.Background(), credentials(map[string]any{
				"url":       server.URL,
				"apiSecret": "wrong",
			}), 60, 100)
			Expect(err).To(HaveOccurred())
			Expect(errors.IsCredential(err)).To(BeTrue())
		})

		It("treats server failures as transport errors", func() {
			server.FailWith = http.StatusServiceUnavailable

			_, err := adapter.GetGlucoseReadings(context.Background(), validCredentials(), 60, 100)
			Expect(err).To(HaveOccurred())
			Expect(errors.IsTransport(err)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("status 503"))
		})
	})

	Describe("GetCurrentGlucose", func() {
		It("summarizes the newest entry", func() {
			newest := time.Now().UTC().Truncate(time.Second).Add(-2 * time.Minute)
			server.SetEntries([]map[string]any{
				{"sgv": 142.0, "date": newest.UnixMilli(), "direction": "Flat", "device": "xDrip"},
				{"sgv": 150.0, "date": newest.Add(-5 * time.Minute).UnixMilli(), "direction": "Flat", "device": "xDrip"},
			})

			current, err := adapter.GetCurrentGlucose(context.Background(), validCredentials())
			Expect(err).ToNot(HaveOccurred())
			Expect(current).ToNot(BeNil())
			Expect(current.Value).To(Equal(142))
			Expect(current.MinutesAgo).To(Equal(2))
			Expect(current.Delta).ToNot(BeNil())
			Expect(*current.Delta).To(Equal(-8))
		})

		It("returns nil when there are no entries", func() {
			current, err := adapter.GetCurrentGlucose(context.Background(), validCredentials())
			Expect(err).ToNot(HaveOccurred())
			Expect(current).To(BeNil())
		})
	})
})
