package service_test

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	service "github.com/okian/healthguard/internal/app"
	"github.com/okian/healthguard/internal/domain/classifier"
	"github.com/okian/healthguard/internal/domain/schema"
	"github.com/okian/healthguard/pkg/logger"
	"github.com/okian/healthguard/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

var diabetesVector = []float64{45, 1, 0, 27.5, 6.1, 140, 1, 0, 0, 1, 0, 0, 0}

var heartVector = []float64{54, 1, 2, 130, 246, 0, 1, 150, 0, 1.5, 2}

func newService(diabetes, heart *spyModel, opts ...service.Option) *service.Service {
	opts = append(opts, service.WithMetrics(metrics.NewManager(metrics.WithPrometheusRegistry(prometheus.NewRegistry()))))
	svc, err := service.New(diabetes, heart, opts...)
	So(err, ShouldBeNil)
	return svc
}

func TestService_New(t *testing.T) {
	Convey("Given nil model handles", t, func() {
		_, errDiabetes := service.New(nil, newSpy(11, 0))
		_, errHeart := service.New(newSpy(13, 0, 0.5, 0.5), nil)

		Convey("Then construction fails", func() {
			So(errors.Is(errDiabetes, service.ErrModelMissing), ShouldBeTrue)
			So(errors.Is(errHeart, service.ErrModelMissing), ShouldBeTrue)
		})
	})
}

func TestService_PredictDiabetes(t *testing.T) {
	ctx := context.Background()

	Convey("Given a diabetes model expecting 13 features", t, func() {
		diabetes := newSpy(13, 1, 0.27, 0.73456)
		svc := newService(diabetes, newSpy(11, 0))

		Convey("When predicting the reference patient", func() {
			res, err := svc.PredictDiabetes(ctx, diabetesVector)

			Convey("Then the label and rounded positive-class probability are returned", func() {
				So(err, ShouldBeNil)
				So(res.Prediction, ShouldEqual, 1)
				So(res.RiskProbability, ShouldEqual, 0.735)
				So(diabetes.predictCalls.Load(), ShouldEqual, 1)
				So(diabetes.probaCalls.Load(), ShouldEqual, 1)
				So(*diabetes.lastInput.Load(), ShouldResemble, diabetesVector)
			})
		})
	})

	Convey("Given a diabetes model stub declaring 10 features", t, func() {
		diabetes := newSpy(10, 1, 0.5, 0.5)
		svc := newService(diabetes, newSpy(11, 0))

		Convey("When predicting a 13-feature vector", func() {
			_, err := svc.PredictDiabetes(ctx, diabetesVector)

			Convey("Then a soft mismatch error carries both counts", func() {
				var mm *service.MismatchError
				So(errors.As(err, &mm), ShouldBeTrue)
				So(errors.Is(err, service.ErrFeatureCountMismatch), ShouldBeTrue)
				So(mm.Expected, ShouldEqual, 10)
				So(mm.Received, ShouldEqual, 13)
				So(diabetes.calls(), ShouldEqual, 0)
			})

			Convey("And the service keeps serving", func() {
				_, err := svc.PredictHeart(ctx, heartVector)
				So(err, ShouldBeNil)
			})
		})
	})

	Convey("Given a diabetes model that fails", t, func() {
		diabetes := newSpy(13, 0)
		diabetes.err = classifier.ErrDimension
		svc := newService(diabetes, newSpy(11, 0))

		Convey("Then the failure is wrapped as ErrPredict", func() {
			_, err := svc.PredictDiabetes(ctx, diabetesVector)
			So(errors.Is(err, service.ErrPredict), ShouldBeTrue)
			So(errors.Is(err, classifier.ErrDimension), ShouldBeTrue)
		})
	})

	Convey("Given a model returning a single probability", t, func() {
		svc := newService(newSpy(13, 0, 1.0), newSpy(11, 0))

		Convey("Then the missing positive class is an error", func() {
			_, err := svc.PredictDiabetes(ctx, diabetesVector)
			So(errors.Is(err, service.ErrPredict), ShouldBeTrue)
		})
	})

	Convey("Given a model whose probabilities are not finite or out of range", t, func() {
		cases := [][]float64{
			{math.NaN(), math.NaN()},
			{math.Inf(-1), math.Inf(1)},
			{-0.5, 1.5},
			{1.2, -0.2},
		}

		Convey("Then the prediction fails instead of returning the value", func() {
			for _, proba := range cases {
				svc := newService(newSpy(13, 1, proba...), newSpy(11, 0))
				_, err := svc.PredictDiabetes(ctx, diabetesVector)
				So(errors.Is(err, service.ErrPredict), ShouldBeTrue)
			}
		})
	})

	Convey("Given a logistic model whose score overflows on large finite inputs", t, func() {
		m, err := classifier.Decode(strings.NewReader(`{
			"kind": "logistic_regression",
			"n_features_in": 13,
			"classes": [0, 1],
			"coef": [[2, 0, 0, -2, 0, 0, 0, 0, 0, 0, 0, 0, 0]],
			"intercept": [0]
		}`))
		So(err, ShouldBeNil)
		svc, err := service.New(m, newSpy(11, 0),
			service.WithMetrics(metrics.NewManager(metrics.WithPrometheusRegistry(prometheus.NewRegistry()))))
		So(err, ShouldBeNil)

		x := append([]float64(nil), diabetesVector...)
		x[0], x[3] = 1e308, 1e308

		Convey("Then the NaN probability is reported as a prediction failure", func() {
			_, err := svc.PredictDiabetes(ctx, x)
			So(errors.Is(err, service.ErrPredict), ShouldBeTrue)
		})
	})

	Convey("Given probabilities needing rounding", t, func() {
		cases := map[float64]float64{0: 0, 1: 1, 0.0004: 0, 0.9996: 1, 0.12345: 0.123, 0.33333: 0.333, 0.6666: 0.667}

		Convey("Then risk_probability stays in [0,1] with three decimals", func() {
			for p, want := range cases {
				svc := newService(newSpy(13, 0, 1-p, p), newSpy(11, 0))
				res, err := svc.PredictDiabetes(ctx, diabetesVector)
				So(err, ShouldBeNil)
				So(res.RiskProbability, ShouldAlmostEqual, want, 1e-9)
				So(res.RiskProbability, ShouldBeBetweenOrEqual, 0.0, 1.0)
			}
		})
	})
}

func TestService_PredictHeart(t *testing.T) {
	ctx := context.Background()

	Convey("Given a heart model", t, func() {
		heart := newSpy(11, 1)
		svc := newService(newSpy(13, 0, 1, 0), heart)

		Convey("Then the label is returned and probabilities are never requested", func() {
			res, err := svc.PredictHeart(ctx, heartVector)
			So(err, ShouldBeNil)
			So(res.Prediction, ShouldEqual, 1)
			So(heart.predictCalls.Load(), ShouldEqual, 1)
			So(heart.probaCalls.Load(), ShouldEqual, 0)
			So(*heart.lastInput.Load(), ShouldResemble, heartVector)
		})
	})

	Convey("Given a heart model trained on a different width", t, func() {
		heart := newSpy(9, 1)

		Convey("When the feature check is off", func() {
			svc := newService(newSpy(13, 0, 1, 0), heart)
			_, err := svc.PredictHeart(ctx, heartVector)

			Convey("Then no count check happens and the model is invoked", func() {
				So(err, ShouldBeNil)
				So(heart.predictCalls.Load(), ShouldEqual, 1)
			})
		})

		Convey("When the feature check is on", func() {
			svc := newService(newSpy(13, 0, 1, 0), heart, service.WithHeartFeatureCheck(true))
			_, err := svc.PredictHeart(ctx, heartVector)

			Convey("Then the mismatch is reported before the model runs", func() {
				var mm *service.MismatchError
				So(errors.As(err, &mm), ShouldBeTrue)
				So(mm.Model, ShouldEqual, service.ModelHeart)
				So(mm.Expected, ShouldEqual, 9)
				So(mm.Received, ShouldEqual, 11)
				So(heart.calls(), ShouldEqual, 0)
			})
		})
	})
}

func TestService_ConcurrentReads(t *testing.T) {
	Convey("Given a service shared by many goroutines", t, func() {
		diabetes := newSpy(13, 1, 0.2, 0.8)
		heart := newSpy(11, 0)
		svc := newService(diabetes, heart)

		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = svc.PredictDiabetes(context.Background(), diabetesVector)
				_, _ = svc.PredictHeart(context.Background(), heartVector)
			}()
		}
		wg.Wait()

		Convey("Then every request reached its model", func() {
			So(diabetes.predictCalls.Load(), ShouldEqual, 50)
			So(heart.predictCalls.Load(), ShouldEqual, 50)
		})
	})
}

func TestService_CheckSchemas(t *testing.T) {
	ctx := context.Background()

	Convey("Given models matching both schemas", t, func() {
		diabetes := newSpy(13, 0, 1, 0)
		diabetes.names = schema.Diabetes.Names()
		svc := newService(diabetes, newSpy(11, 0))

		Convey("Then no problems are reported", func() {
			So(svc.CheckSchemas(ctx), ShouldBeEmpty)
		})
	})

	Convey("Given models that disagree with the schemas", t, func() {
		diabetes := newSpy(13, 0, 1, 0)
		names := schema.Diabetes.Names()
		names[0], names[1] = names[1], names[0]
		diabetes.names = names
		svc := newService(diabetes, newSpy(10, 0))

		Convey("Then order and width problems are both reported", func() {
			problems := svc.CheckSchemas(ctx)
			So(len(problems), ShouldEqual, 2)
			So(errors.Is(problems[0], service.ErrFeatureOrder), ShouldBeTrue)
			So(errors.Is(problems[1], service.ErrFeatureCountMismatch), ShouldBeTrue)
		})
	})
}

func TestService_Models(t *testing.T) {
	Convey("Given a service", t, func() {
		svc := newService(newSpy(13, 0, 1, 0), newSpy(11, 0), service.WithHeartFeatureCheck(true))

		Convey("Then both handles are described", func() {
			models := svc.Models()
			So(len(models), ShouldEqual, 2)
			So(models[0].Name, ShouldEqual, service.ModelDiabetes)
			So(models[0].ExpectedFeatures, ShouldEqual, 13)
			So(models[0].Probability, ShouldBeTrue)
			So(models[1].Name, ShouldEqual, service.ModelHeart)
			So(models[1].SchemaFeatures, ShouldResemble, schema.Heart.Names())
			So(models[1].FeatureCheck, ShouldBeTrue)
		})
	})
}

func TestService_Load(t *testing.T) {
	ctx := context.Background()

	Convey("Given model artifacts on disk", t, func() {
		dir := t.TempDir()
		diabetesPath := filepath.Join(dir, "diabetes.json")
		heartPath := filepath.Join(dir, "heart.json")
		So(os.WriteFile(diabetesPath, []byte(`{
			"kind": "logistic_regression", "n_features_in": 13, "classes": [0, 1],
			"coef": [[0.01, 0.3, 0.2, 0.05, 1.2, 0.02, 0.1, 0, 0.1, 0.05, -0.1, 0, 0.2]],
			"intercept": [-14]
		}`), 0o600), ShouldBeNil)
		So(os.WriteFile(heartPath, []byte(`{
			"kind": "decision_tree", "n_features_in": 11, "classes": [0, 1],
			"tree": {"nodes": [
				{"feature": 10, "threshold": 1.5, "left": 1, "right": 2},
				{"left": -1, "right": -1, "value": [10, 90]},
				{"left": -1, "right": -1, "value": [80, 20]}
			]}
		}`), 0o600), ShouldBeNil)

		Convey("When loading the service", func() {
			svc, err := service.Load(ctx, diabetesPath, heartPath,
				service.WithMetrics(metrics.NewManager(metrics.WithPrometheusRegistry(prometheus.NewRegistry()))))

			Convey("Then real models serve predictions", func() {
				So(err, ShouldBeNil)
				So(svc.CheckSchemas(ctx), ShouldBeEmpty)

				res, err := svc.PredictDiabetes(ctx, diabetesVector)
				So(err, ShouldBeNil)
				So(res.Prediction, ShouldBeIn, 0, 1)
				So(res.RiskProbability, ShouldBeBetweenOrEqual, 0.0, 1.0)

				heart, err := svc.PredictHeart(ctx, heartVector)
				So(err, ShouldBeNil)
				So(heart.Prediction, ShouldEqual, 0)
			})
		})

		Convey("When an artifact is missing", func() {
			_, err := service.Load(ctx, diabetesPath, filepath.Join(dir, "absent.json"))

			Convey("Then loading fails", func() {
				So(errors.Is(err, service.ErrLoadModel), ShouldBeTrue)
				So(errors.Is(err, os.ErrNotExist), ShouldBeTrue)
			})
		})

		Convey("When an artifact is corrupt", func() {
			So(os.WriteFile(heartPath, []byte("garbage"), 0o600), ShouldBeNil)
			_, err := service.Load(ctx, diabetesPath, heartPath)

			Convey("Then loading fails", func() {
				So(errors.Is(err, service.ErrLoadModel), ShouldBeTrue)
				So(errors.Is(err, classifier.ErrInvalidModel), ShouldBeTrue)
			})
		})
	})
}
