package models

import "time"

// Simulation methods.
const (
	MethodRegression = "regression"
	MethodGaussian   = "gaussian"
)

// Fallback reasons recorded per asset.
const (
	FallbackNoData       = "no_data"
	FallbackInsufficient = "insufficient_history"
	FallbackTraining     = "training_failed"
)

// AssetFallback records an asset that did not get a trained model.
type AssetFallback struct {
	Ticker string `json:"ticker"`
	Reason string `json:"reason"`
	Detail string `json:"detail,omitempty"`
}

// TrainingReport describes the model fitted for one asset.
type TrainingReport struct {
	Ticker         string  `json:"ticker"`
	Rows           int     `json:"rows"`
	TrainRows      int     `json:"train_rows"`
	ValidationRows int     `json:"validation_rows"`
	ValidationRMSE float64 `json:"validation_rmse"`
}

// SimulationResult is the set of generated portfolio value paths.
type SimulationResult struct {
	ID           string           `json:"id"`
	RequestID    string           `json:"request_id,omitempty"`
	Method       string           `json:"method"`
	CreatedAt    time.Time        `json:"created_at"`
	Steps        int              `json:"steps"`
	InitialValue float64          `json:"initial_value"`
	Paths        [][]float64      `json:"paths,omitempty"`
	Fallbacks    []AssetFallback  `json:"fallbacks,omitempty"`
	Training     []TrainingReport `json:"training,omitempty"`
	Summary      *Summary         `json:"summary,omitempty"`
}

// Summary describes the distribution of final portfolio values.
type Summary struct {
	Paths  int     `json:"paths"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	P05    float64 `json:"p05"`
	P50    float64 `json:"p50"`
	P95    float64 `json:"p95"`
}

// FinalValues returns the last value of every path.
func (r *SimulationResult) FinalValues() []float64 {
	out := make([]float64, 0, len(r.Paths))
	for _, p := range r.Paths {
		if len(p) > 0 {
			out = append(out, p[len(p)-1])
		}
	}
	return out
}

// SimulationEvent is the message published once a run completes.
type SimulationEvent struct {
	ID           string          `json:"id"`
	RequestID    string          `json:"request_id,omitempty"`
	Method       string          `json:"method"`
	CreatedAt    time.Time       `json:"created_at"`
	Steps        int             `json:"steps"`
	InitialValue float64         `json:"initial_value"`
	Summary      *Summary        `json:"summary,omitempty"`
	Fallbacks    []AssetFallback `json:"fallbacks,omitempty"`
}

// Event strips the paths from a result.
func (r *SimulationResult) Event() SimulationEvent {
	return SimulationEvent{
		ID:           r.ID,
		RequestID:    r.RequestID,
		Method:       r.Method,
		CreatedAt:    r.CreatedAt,
		Steps:        r.Steps,
		InitialValue: r.InitialValue,
		Summary:      r.Summary,
		Fallbacks:    r.Fallbacks,
	}
}
