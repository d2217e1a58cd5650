// Package service holds the prediction service: two immutable model handles
// and the operations that turn validated feature vectors into results.
package service

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strconv"
	"time"

	"github.com/okian/healthguard/internal/domain/classifier"
	"github.com/okian/healthguard/internal/domain/schema"
	"github.com/okian/healthguard/pkg/logger"
	"github.com/okian/healthguard/pkg/metrics"
)

// Model names used in logs, metrics and errors.
const (
	ModelDiabetes = "diabetes"
	ModelHeart    = "heart"
)

// positiveClass is the index of the "at risk" class in predict_proba output.
const positiveClass = 1

// DiabetesResult is a successful diabetes prediction.
type DiabetesResult struct {
	Prediction      int     `json:"prediction"`
	RiskProbability float64 `json:"risk_probability"`
}

// HeartResult is a successful heart-disease prediction.
type HeartResult struct {
	Prediction int `json:"prediction"`
}

// ModelInfo describes a loaded model handle.
type ModelInfo struct {
	Name             string   `json:"name"`
	Kind             string   `json:"kind"`
	ExpectedFeatures int      `json:"expected_features"`
	SchemaFeatures   []string `json:"schema_features"`
	ModelFeatures    []string `json:"model_features,omitempty"`
	Probability      bool     `json:"probability"`
	FeatureCheck     bool     `json:"feature_check"`
}

// Service serves predictions from two models loaded once at startup. It has
// no mutable state and is safe for concurrent use.
type Service struct {
	diabetes classifier.ProbabilityEstimator
	heart    classifier.Classifier

	heartFeatureCheck bool

	logger  logger.Logger
	metrics *metrics.Manager
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics records to m instead of the global metrics manager.
func WithMetrics(m *metrics.Manager) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithHeartFeatureCheck makes the heart path report feature-count
// mismatches the way the diabetes path does.
func WithHeartFeatureCheck(enabled bool) Option {
	return func(s *Service) {
		s.heartFeatureCheck = enabled
	}
}

// New constructs a Service around already loaded models.
func New(diabetes classifier.ProbabilityEstimator, heart classifier.Classifier, opts ...Option) (*Service, error) {
	if diabetes == nil {
		return nil, fmt.Errorf("%w: %s", ErrModelMissing, ModelDiabetes)
	}
	if heart == nil {
		return nil, fmt.Errorf("%w: %s", ErrModelMissing, ModelHeart)
	}

	s := &Service{
		diabetes: diabetes,
		heart:    heart,
		metrics:  metrics.Global(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.metrics.SetModelFeatures(ModelDiabetes, diabetes.Kind(), diabetes.NumFeatures())
	s.metrics.SetModelFeatures(ModelHeart, heart.Kind(), heart.NumFeatures())
	return s, nil
}

// Load reads both model artifacts and builds the Service. Any missing or
// corrupt artifact is returned as an error; the caller is expected to exit.
func Load(ctx context.Context, diabetesPath, heartPath string, opts ...Option) (*Service, error) {
	diabetes, err := classifier.Load(diabetesPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoadModel, ModelDiabetes, err)
	}
	heart, err := classifier.Load(heartPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoadModel, ModelHeart, err)
	}

	s, err := New(diabetes, heart, opts...)
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "models loaded",
		logger.String("diabetes_path", diabetesPath),
		logger.String("diabetes_kind", diabetes.Kind()),
		logger.Int("diabetes_features", diabetes.NumFeatures()),
		logger.String("heart_path", heartPath),
		logger.String("heart_kind", heart.Kind()),
		logger.Int("heart_features", heart.NumFeatures()),
	)
	return s, nil
}

// CheckSchemas compares each request schema with the feature count and, when
// recorded, the feature names its model declares. Disagreements are logged
// and returned but never stop the service: the diabetes path still reports
// count mismatches per request.
func (s *Service) CheckSchemas(ctx context.Context) []error {
	var problems []error
	check := func(name string, sc schema.Schema, m classifier.Classifier) {
		if sc.Len() != m.NumFeatures() {
			err := &MismatchError{Model: name, Expected: m.NumFeatures(), Received: sc.Len()}
			problems = append(problems, err)
			s.logger.Warn(ctx, "schema width differs from model",
				logger.String("model", name),
				logger.Int("expected_features", m.NumFeatures()),
				logger.Int("schema_features", sc.Len()),
			)
			return
		}
		if names := m.FeatureNames(); names != nil && !slices.Equal(names, sc.Names()) {
			err := fmt.Errorf("%w: %s: model %v, schema %v", ErrFeatureOrder, name, names, sc.Names())
			problems = append(problems, err)
			s.logger.Warn(ctx, "schema field order differs from model training columns",
				logger.String("model", name),
				logger.Any("model_features", names),
				logger.Any("schema_features", sc.Names()),
			)
		}
	}
	check(ModelDiabetes, schema.Diabetes, s.diabetes)
	check(ModelHeart, schema.Heart, s.heart)
	return problems
}

// PredictDiabetes classifies x with the diabetes model. A vector whose width
// differs from the model's declared feature count yields a *MismatchError
// and the model is not invoked.
func (s *Service) PredictDiabetes(ctx context.Context, x []float64) (DiabetesResult, error) {
	if expected := s.diabetes.NumFeatures(); len(x) != expected {
		return DiabetesResult{}, s.mismatch(ctx, ModelDiabetes, expected, len(x))
	}

	start := time.Now()
	label, err := s.diabetes.Predict(x)
	if err != nil {
		return DiabetesResult{}, s.predictFailed(ctx, ModelDiabetes, err)
	}
	proba, err := s.diabetes.PredictProba(x)
	if err != nil {
		return DiabetesResult{}, s.predictFailed(ctx, ModelDiabetes, err)
	}
	if len(proba) <= positiveClass {
		return DiabetesResult{}, s.predictFailed(ctx, ModelDiabetes,
			fmt.Errorf("model returned %d class probabilities", len(proba)))
	}
	risk := proba[positiveClass]
	if math.IsNaN(risk) || risk < 0 || risk > 1 {
		return DiabetesResult{}, s.predictFailed(ctx, ModelDiabetes,
			fmt.Errorf("risk probability %v outside [0, 1]", risk))
	}
	s.metrics.RecordPrediction(ModelDiabetes, strconv.Itoa(label), sinceMs(start))

	res := DiabetesResult{
		Prediction:      label,
		RiskProbability: round3(risk),
	}
	s.logger.Debug(ctx, "diabetes prediction",
		logger.Int("prediction", res.Prediction),
		logger.Float64("risk_probability", res.RiskProbability),
	)
	return res, nil
}

// PredictHeart classifies x with the heart model. The feature count is only
// checked when the service was built WithHeartFeatureCheck(true); otherwise
// the model's own dimension check surfaces as ErrPredict.
func (s *Service) PredictHeart(ctx context.Context, x []float64) (HeartResult, error) {
	if expected := s.heart.NumFeatures(); s.heartFeatureCheck && len(x) != expected {
		return HeartResult{}, s.mismatch(ctx, ModelHeart, expected, len(x))
	}

	start := time.Now()
	label, err := s.heart.Predict(x)
	if err != nil {
		return HeartResult{}, s.predictFailed(ctx, ModelHeart, err)
	}
	s.metrics.RecordPrediction(ModelHeart, strconv.Itoa(label), sinceMs(start))

	s.logger.Debug(ctx, "heart prediction", logger.Int("prediction", label))
	return HeartResult{Prediction: label}, nil
}

// Models describes both loaded model handles.
func (s *Service) Models() []ModelInfo {
	return []ModelInfo{
		{
			Name:             ModelDiabetes,
			Kind:             s.diabetes.Kind(),
			ExpectedFeatures: s.diabetes.NumFeatures(),
			SchemaFeatures:   schema.Diabetes.Names(),
			ModelFeatures:    s.diabetes.FeatureNames(),
			Probability:      true,
			FeatureCheck:     true,
		},
		{
			Name:             ModelHeart,
			Kind:             s.heart.Kind(),
			ExpectedFeatures: s.heart.NumFeatures(),
			SchemaFeatures:   schema.Heart.Names(),
			ModelFeatures:    s.heart.FeatureNames(),
			Probability:      false,
			FeatureCheck:     s.heartFeatureCheck,
		},
	}
}

// RecordValidationFailure counts a request for model that never reached it.
func (s *Service) RecordValidationFailure(model string) {
	s.metrics.RecordValidationFailure(model)
}

func (s *Service) mismatch(ctx context.Context, model string, expected, received int) error {
	s.metrics.RecordFeatureMismatch(model)
	s.logger.Warn(ctx, "feature count mismatch",
		logger.String("model", model),
		logger.Int("expected_features", expected),
		logger.Int("received_features", received),
	)
	return &MismatchError{Model: model, Expected: expected, Received: received}
}

func (s *Service) predictFailed(ctx context.Context, model string, err error) error {
	s.metrics.RecordPredictionError(model)
	s.logger.Error(ctx, "prediction failed", logger.String("model", model), logger.Error(err))
	return fmt.Errorf("%w: %s: %w", ErrPredict, model, err)
}

// round3 rounds half away from zero to three decimal places.
func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func sinceMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
