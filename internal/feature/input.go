package feature

// Input is the request-scoped form payload, built once per submit action and
// passed by value through the dispatch pipeline. Nil pointers are the explicit
// "not applicable" marker for both selectors and numeric fields.
type Input struct {
	Orientation *int     `json:"orientation,omitempty"`
	FloorLevel  *int     `json:"floor_level,omitempty"`
	District    *int     `json:"district,omitempty"`
	AgeBand     *int     `json:"age_band,omitempty"`
	TotalPrice  *float64 `json:"total_price,omitempty"`
	Area        *float64 `json:"area,omitempty"`
	BuildYear   *int     `json:"build_year,omitempty"`
	FloorCount  *int     `json:"floor_count,omitempty"`
	Rooms       *int     `json:"rooms,omitempty"`
	Halls       *int     `json:"halls,omitempty"`
	Baths       *int     `json:"baths,omitempty"`
}

// Vector resolves the input into a feature vector keyed by canonical names.
func (in Input) Vector() Vector {
	vec := make(Vector, len(Schema))
	putInt := func(name string, p *int) {
		if p != nil {
			vec[name] = float64(*p)
		}
	}
	putFloat := func(name string, p *float64) {
		if p != nil {
			vec[name] = *p
		}
	}

	putInt(Orientation, in.Orientation)
	putInt(FloorLevel, in.FloorLevel)
	putInt(District, in.District)
	putInt(AgeBand, in.AgeBand)
	putFloat(TotalPrice, in.TotalPrice)
	putFloat(Area, in.Area)
	putInt(BuildYear, in.BuildYear)
	putInt(FloorCount, in.FloorCount)
	putInt(Rooms, in.Rooms)
	putInt(Halls, in.Halls)
	putInt(Baths, in.Baths)
	return vec
}

// Defaults returns an input populated with the schema defaults for the seven
// numeric fields. Selectors stay unset; the caller chooses codes explicitly.
func Defaults() Input {
	totalPrice := 120.0
	area := 95.0
	buildYear := 2015
	floorCount := 18
	rooms := 3
	halls := 2
	baths := 1
	return Input{
		TotalPrice: &totalPrice,
		Area:       &area,
		BuildYear:  &buildYear,
		FloorCount: &floorCount,
		Rooms:      &rooms,
		Halls:      &halls,
		Baths:      &baths,
	}
}
