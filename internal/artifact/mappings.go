package artifact

import (
	"fmt"
	"math"
	"sort"
	"strconv"
)

// Mapping table names the bundle must provide. The first four code user
// selections, the last two decode model outputs.
const (
	MapOrientation = "方位"
	MapFloorLevel  = "楼层"
	MapDistrict    = "所属区域"
	MapAgeBand     = "房龄"
	MapMarket      = "市场类别"
	MapPriceLevel  = "是否高于区域均价"
)

// Mappings holds the categorical code tables exactly as deserialized. Input
// tables map option label to code; output tables map code to display label.
type Mappings map[string]map[string]any

// Option is one selectable categorical value.
type Option struct {
	Code  int    `json:"code"`
	Label string `json:"label"`
}

// Options returns the selector options for an input table, sorted by code so
// clients render them in a stable order.
func (m Mappings) Options(key string) ([]Option, error) {
	table, ok := m[key]
	if !ok {
		return nil, fmt.Errorf("mapping %q not found", key)
	}
	opts := make([]Option, 0, len(table))
	for label, raw := range table {
		code, err := asCode(raw)
		if err != nil {
			return nil, fmt.Errorf("mapping %q entry %q: %w", key, label, err)
		}
		opts = append(opts, Option{Code: code, Label: label})
	}
	sort.Slice(opts, func(i, j int) bool {
		if opts[i].Code != opts[j].Code {
			return opts[i].Code < opts[j].Code
		}
		return opts[i].Label < opts[j].Label
	})
	return opts, nil
}

// LabelMap decodes raw model output codes into display labels. Integer keys
// are preferred; non-numeric keys are kept as a string fallback table.
type LabelMap struct {
	codes   map[int]string
	strings map[string]string
}

// Labels returns the output label table for a mapping key.
func (m Mappings) Labels(key string) (LabelMap, error) {
	table, ok := m[key]
	if !ok {
		return LabelMap{}, fmt.Errorf("mapping %q not found", key)
	}
	lm := LabelMap{
		codes:   make(map[int]string, len(table)),
		strings: make(map[string]string),
	}
	for rawKey, rawLabel := range table {
		label, ok := rawLabel.(string)
		if !ok {
			return LabelMap{}, fmt.Errorf("mapping %q entry %q: label is %T, want string", key, rawKey, rawLabel)
		}
		if code, err := strconv.Atoi(rawKey); err == nil {
			lm.codes[code] = label
		} else {
			lm.strings[rawKey] = label
		}
	}
	return lm, nil
}

// Len reports the number of entries across both key spaces.
func (lm LabelMap) Len() int { return len(lm.codes) + len(lm.strings) }

// Decode maps a raw prediction to its display label and integer code. An
// unmapped code yields the unknown-code placeholder label.
func (lm LabelMap) Decode(raw float64) (string, int) {
	code := int(math.Round(raw))
	if label, ok := lm.codes[code]; ok {
		return label, code
	}
	if label, ok := lm.strings[strconv.FormatFloat(raw, 'g', -1, 64)]; ok {
		return label, code
	}
	return fmt.Sprintf("未知编码 (%d)", code), code
}

// asCode coerces a deserialized mapping value to an integer category code.
func asCode(raw any) (int, error) {
	switch v := raw.(type) {
	case float64:
		return int(v), nil
	case int:
		return v, nil
	case string:
		code, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("code %q is not numeric", v)
		}
		return code, nil
	default:
		return 0, fmt.Errorf("code is %T, want number", raw)
	}
}
