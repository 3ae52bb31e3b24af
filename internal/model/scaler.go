package model

import "fmt"

// Scaler standardizes each column to zero mean and unit variance using the
// statistics the training pipeline persisted. Column order must match the
// feature order the regressor was trained with.
type Scaler struct {
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
}

// Width is the number of feature columns the scaler was fitted on.
func (s *Scaler) Width() int { return len(s.Mean) }

// Validate checks that the persisted statistics are usable.
func (s *Scaler) Validate() error {
	if len(s.Mean) == 0 {
		return fmt.Errorf("scaler has no columns")
	}
	if len(s.Mean) != len(s.Std) {
		return fmt.Errorf("scaler mean has %d columns, std has %d", len(s.Mean), len(s.Std))
	}
	return nil
}

// Transform standardizes a single row. The input is not mutated.
func (s *Scaler) Transform(row []float64) ([]float64, error) {
	if len(row) != s.Width() {
		return nil, fmt.Errorf("scaler expects %d features, got %d", s.Width(), len(row))
	}
	out := make([]float64, len(row))
	for j, v := range row {
		std := s.Std[j]
		if std == 0 {
			std = 1
		}
		out[j] = (v - s.Mean[j]) / std
	}
	return out, nil
}
