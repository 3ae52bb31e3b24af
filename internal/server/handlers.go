package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/homevalai/homeval/internal/artifact"
	"github.com/homevalai/homeval/internal/feature"
)

// SchemaField describes one form field for clients rendering the input form.
type SchemaField struct {
	Key   string `json:"key"`
	Name  string `json:"name"`
	Label string `json:"label"`
	Type  string `json:"type"`

	// Categorical fields
	Options       []artifact.Option `json:"options,omitempty"`
	DefaultCode   *int              `json:"default_code,omitempty"`
	NotApplicable string            `json:"not_applicable,omitempty"`

	// Numeric fields
	Min     *float64 `json:"min,omitempty"`
	Max     *float64 `json:"max,omitempty"`
	Default *float64 `json:"default,omitempty"`
	Step    *float64 `json:"step,omitempty"`
	Integer bool     `json:"integer,omitempty"`
}

// Selector defaults the original form preselected when the mapping offers
// them; everything else defaults to the middle option.
var selectorDefaults = map[string]int{
	feature.FloorLevel: 1,
	feature.AgeBand:    2,
}

// handlePredict runs the three prediction targets over one submitted input.
func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var input feature.Input
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&input); err != nil {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}

	if problems := s.validateInput(input); len(problems) > 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"error":    "invalid input",
			"problems": problems,
		})
		return
	}

	result := s.dispatcher.Dispatch(input.Vector())
	s.metrics.ObserveOutcomes(result.Outcomes)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// handleSchema returns the form-field metadata, including selector options
// from the mapping artifact, so clients can build the input form without
// hard-coding categories.
func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	fields := make([]SchemaField, 0, len(feature.Schema))
	for _, def := range feature.Schema {
		field := SchemaField{
			Key:   def.Key,
			Name:  def.Name,
			Label: def.Label,
		}
		switch def.Kind {
		case feature.Categorical:
			field.Type = "categorical"
			field.NotApplicable = "无 (不适用)"
			opts, err := s.bundle.Mappings.Options(def.MappingKey)
			if err != nil {
				http.Error(w, "schema unavailable", http.StatusInternalServerError)
				return
			}
			field.Options = opts
			if code, ok := defaultCode(def.Name, opts); ok {
				field.DefaultCode = &code
			}
		case feature.Numeric:
			field.Type = "numeric"
			min, max, dflt, step := def.Min, def.Max, def.Default, def.Step
			field.Min, field.Max, field.Default, field.Step = &min, &max, &dflt, &step
			field.Integer = def.Integer
		}
		fields = append(fields, field)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"fields": fields})
}

// handleHealth reports readiness; the bundle either loaded at startup or the
// process never got here.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"targets": len(s.dispatcher.Specs()),
	})
}

// defaultCode picks the preselected option for a selector: the fixed default
// when the mapping carries that code, otherwise the middle option.
func defaultCode(name string, opts []artifact.Option) (int, bool) {
	if len(opts) == 0 {
		return 0, false
	}
	if want, ok := selectorDefaults[name]; ok {
		for _, opt := range opts {
			if opt.Code == want {
				return want, true
			}
		}
	}
	return opts[len(opts)/2].Code, true
}

// validateInput checks numeric bounds against the schema and categorical
// codes against the loaded mappings. Absent fields are always valid; absence
// is handled per target by the sufficiency check.
func (s *Server) validateInput(in feature.Input) []string {
	var problems []string
	vec := in.Vector()
	for _, def := range feature.Schema {
		val, ok := vec[def.Name]
		if !ok {
			continue
		}
		switch def.Kind {
		case feature.Numeric:
			if val < def.Min || val > def.Max {
				problems = append(problems, fmt.Sprintf("%s: %g out of range [%g, %g]", def.Key, val, def.Min, def.Max))
			}
		case feature.Categorical:
			opts, err := s.bundle.Mappings.Options(def.MappingKey)
			if err != nil {
				continue
			}
			known := false
			for _, opt := range opts {
				if float64(opt.Code) == val {
					known = true
					break
				}
			}
			if !known {
				problems = append(problems, fmt.Sprintf("%s: unknown code %d", def.Key, int(val)))
			}
		}
	}
	return problems
}
