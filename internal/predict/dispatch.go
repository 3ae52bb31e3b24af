// Package predict implements the inference dispatch policy: per target model,
// decide whether the user-supplied feature set is complete enough to invoke
// it, run the model over an ordered input row, and normalize the result into
// a tagged outcome.
package predict

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/homevalai/homeval/internal/artifact"
	"github.com/homevalai/homeval/internal/feature"
	"github.com/homevalai/homeval/internal/model"
)

// Prediction target identifiers.
const (
	TargetMarketSegment = "market_segment"
	TargetPriceLevel    = "price_level"
	TargetUnitPrice     = "unit_price"
)

// Raw exception detail is logged, never shown; users get this instead.
const genericFailureMessage = "分析时出现问题，请检查输入或联系管理员。"

// Spec describes one prediction target: the ordered features it requires, the
// model to invoke, an optional pre-transform, and how to decode the output.
type Spec struct {
	Target   string
	Title    string
	Required []string
	Model    model.Model
	// Scaler, when set, standardizes the assembled row before prediction.
	Scaler *model.Scaler
	// Labels decodes classifier output codes. Nil means the raw value is the
	// result (regression), clamped non-negative.
	Labels *artifact.LabelMap
}

// Dispatcher runs the three prediction targets over a feature vector. It is
// read-only after construction and safe for concurrent use.
type Dispatcher struct {
	specs []Spec
}

// NewDispatcher builds the dispatcher from a loaded artifact bundle.
func NewDispatcher(b *artifact.Bundle) (*Dispatcher, error) {
	marketLabels, err := b.Mappings.Labels(artifact.MapMarket)
	if err != nil {
		return nil, fmt.Errorf("market segment labels: %w", err)
	}
	priceLevelLabels, err := b.Mappings.Labels(artifact.MapPriceLevel)
	if err != nil {
		return nil, fmt.Errorf("price level labels: %w", err)
	}

	return &Dispatcher{specs: []Spec{
		{
			Target:   TargetMarketSegment,
			Title:    "市场细分",
			Required: b.Features.Market,
			Model:    b.MarketModel,
			Labels:   &marketLabels,
		},
		{
			Target:   TargetPriceLevel,
			Title:    "价格水平",
			Required: b.Features.PriceLevel,
			Model:    b.PriceLevelModel,
			Labels:   &priceLevelLabels,
		},
		{
			Target:   TargetUnitPrice,
			Title:    "均价预测",
			Required: artifact.RegressionFeatures,
			Model:    b.UnitPriceModel,
			Scaler:   b.Scaler,
		},
	}}, nil
}

// Specs exposes the configured target specs, in dispatch order.
func (d *Dispatcher) Specs() []Spec { return d.specs }

// Dispatch evaluates every target independently: one target running out of
// data or failing never stops the others.
func (d *Dispatcher) Dispatch(vec feature.Vector) Result {
	outcomes := make([]Outcome, 0, len(d.specs))
	for _, spec := range d.specs {
		outcomes = append(outcomes, dispatchOne(spec, vec))
	}
	return Result{Outcomes: outcomes, Summary: summarize(outcomes)}
}

// dispatchOne applies the per-target policy: config check,
// sufficiency check, row assembly in declared order, optional scaling,
// prediction, output decoding.
func dispatchOne(spec Spec, vec feature.Vector) Outcome {
	out := Outcome{Target: spec.Target, Title: spec.Title}

	if len(spec.Required) == 0 {
		log.Warn().Str("target", spec.Target).Msg("No feature list configured for target")
		out.Status = StatusConfigMissing
		return out
	}

	sufficient, missing := Check(spec, vec)
	if !sufficient {
		log.Debug().
			Str("target", spec.Target).
			Strs("missing", missing).
			Msg("Insufficient input for target")
		out.Status = StatusInsufficientData
		out.Missing = missing
		return out
	}

	row, ok := vec.Row(spec.Required)
	if !ok {
		// Unreachable after a sufficient Check; kept as a failure rather than
		// a panic so a bad spec degrades like any other runtime error.
		return failure(spec, out, fmt.Errorf("row assembly lost a required feature"))
	}

	if spec.Scaler != nil {
		scaled, err := spec.Scaler.Transform(row)
		if err != nil {
			return failure(spec, out, fmt.Errorf("scaling input: %w", err))
		}
		row = scaled
	}

	raw, err := spec.Model.Predict(row)
	if err != nil {
		return failure(spec, out, fmt.Errorf("predicting: %w", err))
	}

	out.Status = StatusSuccess
	if spec.Labels != nil {
		label, code := spec.Labels.Decode(raw)
		out.Label = label
		out.Code = &code
	} else {
		value := raw
		if value < 0 {
			value = 0
		}
		out.Value = &value
	}
	return out
}

// failure logs the detailed error and returns an outcome carrying only the
// generic user-facing message.
func failure(spec Spec, out Outcome, err error) Outcome {
	log.Error().
		Err(err).
		Str("target", spec.Target).
		Msg("Prediction failed")
	out.Status = StatusFailed
	out.Message = genericFailureMessage
	return out
}
