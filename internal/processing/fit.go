package processing

import (
	"errors"
	"fmt"
	"log"
	"math"
	"strconv"
	"time"

	"github.com/kacperjurak/gofourpl"
	"github.com/kacperjurak/gofourpl/pkg/config"
)

// Value is a float that encodes non-finite numbers as JSON null.
type Value float64

func (v Value) MarshalJSON() ([]byte, error) {
	f := float64(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, f, 'g', -1, 64), nil
}

// Point pairs a query value with its prediction. Error is set for checked
// inverse predictions that fell outside the curve's domain.
type Point struct {
	X     Value  `json:"x"`
	Y     Value  `json:"y"`
	Error string `json:"error,omitempty"`
}

// Report is everything a fit produces, ready to print or encode.
type Report struct {
	Method             string          `json:"method"`
	Parameters         []string        `json:"parameters"`
	Params             [4]Value        `json:"params"`
	InitialParams      [4]Value        `json:"initial_params"`
	RSquared           Value           `json:"r_squared"`
	RSquaredText       string          `json:"r_squared_text"`
	RSS                Value           `json:"rss"`
	Converged          bool            `json:"converged"`
	Status             string          `json:"status"`
	Iterations         int             `json:"iterations"`
	FuncEvaluations    int             `json:"func_evaluations"`
	ProcessingTime     string          `json:"processing_time"`
	Predictions        []Point         `json:"predictions,omitempty"`
	InversePredictions []Point         `json:"inverse_predictions,omitempty"`
	Model              *gofourpl.Model `json:"-"`
}

// Processor handles 4PL fitting requests
type Processor struct {
	logger  *log.Logger
	metrics *Metrics
}

// NewProcessor creates a processor logging to logger; nil logs nothing.
func NewProcessor(logger *log.Logger) *Processor {
	return &Processor{logger: logger}
}

// WithMetrics records every processed fit in m.
func (p *Processor) WithMetrics(m *Metrics) *Processor {
	p.metrics = m
	return p
}

func (p *Processor) logf(format string, args ...interface{}) {
	if p.logger != nil {
		p.logger.Printf(format, args...)
	}
}

// Process fits the observations and evaluates the configured queries.
func (p *Processor) Process(x, y []float64, cfg *config.Config) (Report, error) {
	if len(x) == 0 {
		return Report{}, fmt.Errorf("no concentration data provided")
	}
	if len(y) == 0 {
		return Report{}, fmt.Errorf("no response data provided")
	}

	opts, err := cfg.FitOptions()
	if err != nil {
		return Report{}, err
	}
	if p.logger != nil {
		opts = append(opts, gofourpl.WithLogger(p.logger))
	}

	p.logf("Processing %d standards with method %s", len(x), cfg.Method)

	startTime := time.Now()
	model, err := gofourpl.Fit(x, y, opts...)
	duration := time.Since(startTime)
	if err != nil {
		p.logf("4PL fit FAILED - Method: %s, error: %v", cfg.Method, err)
		p.metrics.failed(cfg.Method)
		return Report{}, err
	}

	res := model.Result()
	report := Report{
		Method:          string(res.Method),
		Parameters:      model.Parameters(),
		RSquared:        Value(model.RSquared()),
		RSquaredText:    model.RSquaredString(true),
		RSS:             Value(res.Min),
		Converged:       res.Converged,
		Status:          res.Status,
		Iterations:      res.Iters,
		FuncEvaluations: res.FuncEval,
		ProcessingTime:  duration.String(),
		Model:           model,
	}
	for i, v := range model.Params() {
		report.Params[i] = Value(v)
	}
	for i, v := range model.InitialParams() {
		report.InitialParams[i] = Value(v)
	}

	for _, xq := range cfg.PredictX {
		report.Predictions = append(report.Predictions, Point{X: Value(xq), Y: Value(model.Predict(xq))})
	}
	for _, yq := range cfg.PredictY {
		report.InversePredictions = append(report.InversePredictions, p.inverse(model, yq, cfg.Strict))
	}

	if !res.Converged {
		p.logf("WARNING: %s did not converge (status %s), reporting best point found", res.Method, res.Status)
	}
	p.logf("4PL fit completed - Method: %s, RSS: %.14e, %s", res.Method, res.Min, report.RSquaredText)
	p.logf("Processing time: %v", duration)
	p.metrics.observe(report, duration.Seconds())
	return report, nil
}

func (p *Processor) inverse(model *gofourpl.Model, yq float64, strict bool) Point {
	if !strict {
		return Point{X: Value(model.InversePredict(yq)), Y: Value(yq)}
	}
	xq, err := model.InversePredictChecked(yq)
	pt := Point{X: Value(xq), Y: Value(yq)}
	var de *gofourpl.DomainError
	if errors.As(err, &de) {
		pt.Error = de.Reason
		p.logf("WARNING: cannot invert response %v: %s", yq, de.Reason)
	}
	return pt
}
