// Package feature defines the static property-attribute schema and the
// request-scoped feature vector the prediction pipeline operates on.
package feature

// Kind distinguishes coded selector features from free numeric ones.
type Kind int

const (
	Categorical Kind = iota
	Numeric
)

// Canonical feature names. These are the names the serialized artifacts were
// trained with, so they are data, not display strings.
const (
	Orientation = "方位"
	FloorLevel  = "楼层"
	District    = "所属区域"
	AgeBand     = "房龄"
	TotalPrice  = "总价(万)"
	Area        = "面积(㎡)"
	BuildYear   = "建造时间"
	FloorCount  = "楼层数"
	Rooms       = "室"
	Halls       = "厅"
	Baths       = "卫"
)

// Def describes a single input feature.
type Def struct {
	// Name is the canonical feature name used by models and mappings.
	Name string `json:"name"`
	// Key is the stable ASCII field key used in API payloads and CLI flags.
	Key string `json:"key"`
	// Label is the user-facing label, also used in insufficiency feedback.
	Label string `json:"label"`
	Kind  Kind   `json:"-"`
	// MappingKey names the categorical code table in the mappings artifact.
	MappingKey string `json:"mapping,omitempty"`

	// Numeric bounds and defaults, mirroring the original input widgets.
	Min     float64 `json:"min,omitempty"`
	Max     float64 `json:"max,omitempty"`
	Default float64 `json:"default,omitempty"`
	Step    float64 `json:"step,omitempty"`
	Integer bool    `json:"integer,omitempty"`
}

// Schema is the fixed 11-feature input schema: 4 categorical selectors
// followed by 7 numeric fields.
var Schema = []Def{
	{Name: Orientation, Key: "orientation", Label: "房屋方位", Kind: Categorical, MappingKey: Orientation},
	{Name: FloorLevel, Key: "floor_level", Label: "楼层位置", Kind: Categorical, MappingKey: FloorLevel},
	{Name: District, Key: "district", Label: "所属区域", Kind: Categorical, MappingKey: District},
	{Name: AgeBand, Key: "age_band", Label: "房龄", Kind: Categorical, MappingKey: AgeBand},
	{Name: TotalPrice, Key: "total_price", Label: "总价(万)", Kind: Numeric, Min: 0, Max: 10000, Default: 120, Step: 5},
	{Name: Area, Key: "area", Label: "面积(㎡)", Kind: Numeric, Min: 1, Max: 2000, Default: 95, Step: 1},
	{Name: BuildYear, Key: "build_year", Label: "建造时间 (年份)", Kind: Numeric, Min: 1900, Max: 2025, Default: 2015, Step: 1, Integer: true},
	{Name: FloorCount, Key: "floor_count", Label: "总楼层数", Kind: Numeric, Min: 1, Max: 100, Default: 18, Step: 1, Integer: true},
	{Name: Rooms, Key: "rooms", Label: "室", Kind: Numeric, Min: 0, Max: 20, Default: 3, Step: 1, Integer: true},
	{Name: Halls, Key: "halls", Label: "厅", Kind: Numeric, Min: 0, Max: 10, Default: 2, Step: 1, Integer: true},
	{Name: Baths, Key: "baths", Label: "卫", Kind: Numeric, Min: 0, Max: 10, Default: 1, Step: 1, Integer: true},
}

// Lookup returns the definition for a canonical feature name.
func Lookup(name string) (Def, bool) {
	for _, def := range Schema {
		if def.Name == name {
			return def, true
		}
	}
	return Def{}, false
}

// LabelFor returns the display label for a feature name, falling back to the
// name itself so unknown names still produce readable feedback.
func LabelFor(name string) string {
	if def, ok := Lookup(name); ok {
		return def.Label
	}
	return name
}

// Vector maps canonical feature names to resolved values. Absent features
// simply have no key; presence is the tri-state "provided" marker, so a real
// category code can never collide with a not-applicable sentinel.
type Vector map[string]float64

// Has reports whether the feature resolved to a non-absent value.
func (v Vector) Has(name string) bool {
	_, ok := v[name]
	return ok
}

// Row assembles a single model-input row following the given feature order.
// Ordering is taken entirely from names, so reordering the required list
// reorders the row identically.
func (v Vector) Row(names []string) ([]float64, bool) {
	row := make([]float64, 0, len(names))
	for _, name := range names {
		val, ok := v[name]
		if !ok {
			return nil, false
		}
		row = append(row, val)
	}
	return row, true
}
