package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsOptions(t *testing.T) {
	Convey("Given metrics options", t, func() {
		Convey("When creating options", func() {
			namespaceOpt := WithNamespace("test-namespace")
			subsystemOpt := WithSubsystem("test-subsystem")
			histogramBucketsOpt := WithHistogramBuckets([]float64{0.1, 0.5, 1.0})
			registryOpt := WithPrometheusRegistry(prometheus.NewRegistry())

			Convey("Then they should be valid functions", func() {
				So(namespaceOpt, ShouldNotBeNil)
				So(subsystemOpt, ShouldNotBeNil)
				So(histogramBucketsOpt, ShouldNotBeNil)
				So(registryOpt, ShouldNotBeNil)
			})
		})
	})
}

func TestManagerCreation(t *testing.T) {
	Convey("Given manager creation", t, func() {
		Convey("When creating with a custom registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test-namespace"),
				WithSubsystem("test-subsystem"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics", t, func() {
		Convey("When recording ingestion metrics", func() {
			So(func() {
				RecordResponseRecorded()
				RecordResponseInvalid()
			}, ShouldNotPanic)
		})

		Convey("When recording prediction metrics", func() {
			So(func() {
				RecordPrediction("ensemble")
				RecordPrediction("heuristic")
				RecordPredictionLatency(1.5)
			}, ShouldNotPanic)
		})

		Convey("When recording training metrics", func() {
			So(func() {
				RecordTraining()
				RecordTrainingFailure()
				RecordTrainingDuration(12.0)
			}, ShouldNotPanic)
		})

		Convey("When updating model gauges", func() {
			So(func() {
				UpdateModelVersion(3)
				UpdateModelTrained(true)
				UpdateModelTrained(false)
				UpdateModelBytes(1024)
				RecordDecodeFailure()
			}, ShouldNotPanic)
		})

		Convey("When updating store gauges", func() {
			So(func() {
				UpdateTrackedWindows(4)
				UpdateStoredRecords(120)
			}, ShouldNotPanic)
		})

		Convey("When gathering the custom registry", func() {
			families, err := GetRegistry().Gather()

			Convey("Then the engine metrics are registered", func() {
				So(err, ShouldBeNil)
				names := make(map[string]bool, len(families))
				for _, fam := range families {
					names[fam.GetName()] = true
				}
				So(names["geoquiz_engine_predictions_total"], ShouldBeTrue)
				So(names["geoquiz_engine_model_version"], ShouldBeTrue)
			})
		})
	})
}
