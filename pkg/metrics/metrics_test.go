package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a custom registry and options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test_namespace"),
				WithSubsystem("test_subsystem"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then collectors are registered under the namespace", func() {
				So(manager, ShouldNotBeNil)
				manager.RecordPrediction("diabetes", "1", 0.3)

				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := map[string]bool{}
				for _, f := range families {
					names[f.GetName()] = true
				}
				So(names["test_namespace_test_subsystem_predictions_total"], ShouldBeTrue)
				So(names["test_namespace_test_subsystem_prediction_latency_milliseconds"], ShouldBeTrue)
			})
		})

		Convey("When creating two managers on separate registries", func() {
			So(func() {
				NewManager(WithPrometheusRegistry(prometheus.NewRegistry()))
				NewManager(WithPrometheusRegistry(prometheus.NewRegistry()))
			}, ShouldNotPanic)
		})
	})
}

func TestPredictionMetrics(t *testing.T) {
	Convey("Given a fresh manager", t, func() {
		m := NewManager(WithPrometheusRegistry(prometheus.NewRegistry()))

		Convey("When recording prediction outcomes", func() {
			m.RecordPrediction("heart", "1", 1.2)
			m.RecordPrediction("heart", "1", 0.8)
			m.RecordPrediction("heart", "0", 0.5)
			m.RecordFeatureMismatch("diabetes")
			m.RecordValidationFailure("heart")
			m.RecordPredictionError("heart")
			m.SetModelFeatures("diabetes", "random_forest", 13)

			Convey("Then counters reflect each label", func() {
				So(testutil.ToFloat64(m.predictions.WithLabelValues("heart", "1")), ShouldEqual, 2)
				So(testutil.ToFloat64(m.predictions.WithLabelValues("heart", "0")), ShouldEqual, 1)
				So(testutil.ToFloat64(m.featureMismatches.WithLabelValues("diabetes")), ShouldEqual, 1)
				So(testutil.ToFloat64(m.validationFailures.WithLabelValues("heart")), ShouldEqual, 1)
				So(testutil.ToFloat64(m.predictionErrors.WithLabelValues("heart")), ShouldEqual, 1)
				So(testutil.ToFloat64(m.modelFeatures.WithLabelValues("diabetes", "random_forest")), ShouldEqual, 13)
			})
		})
	})
}

func TestGlobalMetricsRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("Then recording helpers should not panic", func() {
			So(func() {
				RecordHTTPRequest("predict_heart", "POST", "200")
				RecordHTTPRequestDuration("predict_heart", "POST", "200", 2.5)
				RecordErrorByType("client_error", "medium")
				RecordErrorByEndpoint("predict_heart", "POST", "client_error")
				RecordErrorLatency("http", "client_error", 1.0)
				UpdateSystemMemoryUsage(1024)
				UpdateSystemGoroutineCount(8)
				RecordSystemGCPauseTime(0.3)
			}, ShouldNotPanic)
		})

		Convey("Then the custom registry exposes them", func() {
			RecordHTTPRequest("liveness", "GET", "200")
			So(Global(), ShouldNotBeNil)
			So(testutil.ToFloat64(Global().httpRequests.WithLabelValues("liveness", "GET", "200")), ShouldBeGreaterThanOrEqualTo, 1)

			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)
			So(len(families), ShouldBeGreaterThan, 0)
		})
	})
}
