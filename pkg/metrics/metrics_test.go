package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManagerCreation(t *testing.T) {
	Convey("Given a fresh registry", t, func() {
		registry := prometheus.NewRegistry()

		Convey("When creating a manager with custom options", func() {
			m := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 10}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the collectors are registered under the namespace", func() {
				So(m, ShouldNotBeNil)
				m.profilesBuilt.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(names, ShouldContain, "test_unit_profiles_built_total")
			})
		})
	})
}

func TestRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording profile builds", func() {
			built := testutil.ToFloat64(globalManager.profilesBuilt)
			empty := testutil.ToFloat64(globalManager.profilesEmpty)
			RecordProfileBuilt(false)
			RecordProfileBuilt(true)

			Convey("Then only empty profiles bump the empty counter", func() {
				So(testutil.ToFloat64(globalManager.profilesBuilt), ShouldEqual, built+2)
				So(testutil.ToFloat64(globalManager.profilesEmpty), ShouldEqual, empty+1)
			})
		})

		Convey("When recording cache activity", func() {
			hits := testutil.ToFloat64(globalManager.cacheHits)
			misses := testutil.ToFloat64(globalManager.cacheMisses)
			RecordCacheHit()
			RecordCacheMiss()
			RecordCacheMiss()

			Convey("Then hits and misses are counted separately", func() {
				So(testutil.ToFloat64(globalManager.cacheHits), ShouldEqual, hits+1)
				So(testutil.ToFloat64(globalManager.cacheMisses), ShouldEqual, misses+2)
			})
		})

		Convey("When recording labelled metrics", func() {
			So(func() {
				RecordAggregation(12)
				RecordAnalysisLatency("aggregate_field", 3.5)
				RecordBinning("age")
				RecordEmptyResult("field_pace")
				RecordMissingCheckpoint()
				RecordStoreQueryLatency("sqlite", "split", 0.4)
				UpdateStoreRunners(369)
				RecordIngestRow()
				RecordIngestRunner()
				RecordIngestFormatError()
				RecordIngestDataQualityError()
				RecordHTTPRequest("/field/pace", "GET", "200")
				RecordHTTPRequestDuration("/field/pace", "GET", "200", 12)
				RecordErrorByComponent("store", "query_failed")
				RecordErrorByEndpoint("/runners", "GET", "not_found")
				UpdateSystemMemoryUsage(1 << 20)
				UpdateSystemGoroutineCount(12)
			}, ShouldNotPanic)

			Convey("Then the labelled series are observable", func() {
				So(testutil.ToFloat64(globalManager.storeRunners), ShouldEqual, 369)
				So(testutil.ToFloat64(globalManager.binningRequests.WithLabelValues("age")), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		Convey("Then the custom registry is exposed under the service prefix", func() {
			So(GetRegistry(), ShouldNotBeNil)
			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)
			names := make([]string, 0, len(families))
			for _, f := range families {
				names = append(names, f.GetName())
			}
			So(names, ShouldContain, Namespace+"_"+Subsystem+"_profiles_built_total")
		})
	})
}
