package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should use the service namespace", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "orbit")
				So(manager.subsystem, ShouldEqual, "recommendation")
				So(manager.Enabled(), ShouldBeTrue)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithMetricPrefix("pfx"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithCustomLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)
			manager.RecordDecision("COLD_START")

			Convey("Then the metric names carry the options", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)

				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(names, ShouldContain, "test_unit_pfx_decisions_total")
			})
		})

		Convey("When empty options are passed", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithNamespace(""), WithSubsystem(""), WithPrometheusRegistry(registry))

			Convey("Then defaults are kept", func() {
				So(manager.namespace, ShouldEqual, "orbit")
				So(manager.subsystem, ShouldEqual, "recommendation")
			})
		})
	})
}

func TestManagerRecording(t *testing.T) {
	Convey("Given an isolated manager", t, func() {
		registry := prometheus.NewRegistry()
		manager := NewManager(WithPrometheusRegistry(registry))

		Convey("When decisions, fallbacks and cache results are recorded", func() {
			manager.RecordDecision("INACTIVITY_NUDGE")
			manager.RecordDecision("INACTIVITY_NUDGE")
			manager.RecordFallback(FallbackNoMatch)
			manager.RecordCacheResult(CacheHit)
			manager.RecordCacheResult(CacheCorrupt)

			Convey("Then the counters reflect them", func() {
				So(testutil.ToFloat64(manager.decisions.WithLabelValues("INACTIVITY_NUDGE")), ShouldEqual, 2)
				So(testutil.ToFloat64(manager.fallbacks.WithLabelValues(FallbackNoMatch)), ShouldEqual, 1)
				So(testutil.ToFloat64(manager.cacheRequests.WithLabelValues(CacheHit)), ShouldEqual, 1)
				So(testutil.ToFloat64(manager.cacheRequests.WithLabelValues(CacheCorrupt)), ShouldEqual, 1)
			})
		})

		Convey("When the manager is disabled", func() {
			disabled := NewManager(WithPrometheusRegistry(prometheus.NewRegistry()), WithMetricsEnabled(false))
			disabled.RecordDecision("COLD_START")

			Convey("Then nothing is counted", func() {
				So(testutil.ToFloat64(disabled.decisions.WithLabelValues("COLD_START")), ShouldEqual, 0)
			})
		})
	})
}

func TestGlobalHelpers(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording through package helpers", func() {
			before := testutil.ToFloat64(globalManager.upstreamRequests.WithLabelValues("user_summary", UpstreamOK))

			So(func() {
				RecordDecision("SAFE_DEFAULT")
				RecordFallback(FallbackFailure)
				RecordDecisionLatency(12)
				RecordAggregationLatency(8)
				RecordCacheResult(CacheMiss)
				RecordCacheWriteError()
				RecordUpstreamRequest("user_summary", UpstreamOK, 3)
				UpdateCircuitBreakerState("analytics", 2)
				RecordCircuitBreakerTransition("analytics", "closed", "open")
				RecordHTTPRequest("next", "GET", "200")
				RecordHTTPRequestDuration("next", "GET", "200", 4)
				UpdateSystemMemoryUsage(1024)
				UpdateSystemGoroutineCount(10)
				RecordSystemGCPauseTime(0.3)
			}, ShouldNotPanic)

			Convey("Then the shared registry exposes them", func() {
				So(testutil.ToFloat64(globalManager.upstreamRequests.WithLabelValues("user_summary", UpstreamOK)), ShouldEqual, before+1)
				So(testutil.ToFloat64(globalManager.circuitBreakerState.WithLabelValues("analytics")), ShouldEqual, 2)
				So(GetRegistry(), ShouldNotBeNil)
			})
		})
	})
}
