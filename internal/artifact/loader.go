// Package artifact loads the serialized model bundle the prediction pipeline
// runs on: three tree-ensemble models, the regression scaler, the per-model
// feature-name lists, and the categorical mapping tables.
package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/homevalai/homeval/internal/feature"
	"github.com/homevalai/homeval/internal/model"
)

// Fixed artifact file names, resolved relative to the bundle directory.
const (
	MarketModelFile     = "market_segment_model.json"
	PriceLevelModelFile = "price_level_model.json"
	UnitPriceModelFile  = "unit_price_model.json"
	ScalerFile          = "regression_scaler.json"
	FeatureNamesFile    = "feature_names.json"
	MappingsFile        = "mappings.json"
)

// RequiredFiles lists every artifact a bundle must contain.
var RequiredFiles = []string{
	MarketModelFile,
	PriceLevelModelFile,
	UnitPriceModelFile,
	ScalerFile,
	FeatureNamesFile,
	MappingsFile,
}

// RegressionFeatures is the fixed required-feature order for the unit-price
// model. It is the source of truth: the list persisted in the feature-name
// artifact is only cross-checked against it, and the scaler must have been
// fitted on exactly this order.
var RegressionFeatures = []string{
	feature.District,
	feature.AgeBand,
	feature.Area,
	feature.FloorCount,
	feature.BuildYear,
	feature.Rooms,
	feature.Halls,
	feature.Baths,
}

// FeatureNames lists, per target model, the ordered features it consumes.
type FeatureNames struct {
	Market     []string `json:"market"`
	PriceLevel []string `json:"price_level"`
	Regression []string `json:"regression"`
}

// Bundle is the full set of loaded artifacts, immutable after Load returns.
type Bundle struct {
	MarketModel     *model.Ensemble
	PriceLevelModel *model.Ensemble
	UnitPriceModel  *model.Ensemble
	Scaler          *model.Scaler
	Features        FeatureNames
	Mappings        Mappings
}

// Load reads and validates all artifacts from dir. Missing files are
// enumerated in a single error; decode failures carry the offending file
// name; a scaler fitted on a different width than RegressionFeatures is a
// fatal configuration mismatch.
func Load(dir string) (*Bundle, error) {
	var missing []string
	for _, name := range RequiredFiles {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingFilesError{Dir: dir, Files: missing}
	}

	b := &Bundle{}
	loads := []struct {
		file string
		dst  any
	}{
		{MarketModelFile, &b.MarketModel},
		{PriceLevelModelFile, &b.PriceLevelModel},
		{UnitPriceModelFile, &b.UnitPriceModel},
		{ScalerFile, &b.Scaler},
		{FeatureNamesFile, &b.Features},
		{MappingsFile, &b.Mappings},
	}
	for _, l := range loads {
		if err := decodeFile(filepath.Join(dir, l.file), l.dst); err != nil {
			return nil, &InvalidResourceError{File: l.file, Err: err}
		}
	}

	for _, m := range []struct {
		file string
		ens  *model.Ensemble
	}{
		{MarketModelFile, b.MarketModel},
		{PriceLevelModelFile, b.PriceLevelModel},
		{UnitPriceModelFile, b.UnitPriceModel},
	} {
		if err := m.ens.Validate(); err != nil {
			return nil, &InvalidResourceError{File: m.file, Err: err}
		}
	}
	if err := b.Scaler.Validate(); err != nil {
		return nil, &InvalidResourceError{File: ScalerFile, Err: err}
	}
	if err := b.validateMappings(); err != nil {
		return nil, &InvalidResourceError{File: MappingsFile, Err: err}
	}

	b.reconcileRegressionFeatures()

	if b.Scaler.Width() != len(RegressionFeatures) {
		return nil, &ConfigMismatchError{Reason: fmt.Sprintf(
			"scaler was fitted on %d features, regression feature list has %d",
			b.Scaler.Width(), len(RegressionFeatures))}
	}
	if b.UnitPriceModel.NumFeatures() != len(RegressionFeatures) {
		return nil, &ConfigMismatchError{Reason: fmt.Sprintf(
			"unit price model expects %d features, regression feature list has %d",
			b.UnitPriceModel.NumFeatures(), len(RegressionFeatures))}
	}

	log.Info().
		Str("dir", dir).
		Int("market_features", len(b.Features.Market)).
		Int("price_level_features", len(b.Features.PriceLevel)).
		Int("regression_features", len(RegressionFeatures)).
		Msg("Artifact bundle loaded")

	return b, nil
}

// validateMappings checks that every required mapping table is present and
// parseable before any request reaches the dispatcher.
func (b *Bundle) validateMappings() error {
	for _, key := range []string{MapOrientation, MapFloorLevel, MapDistrict, MapAgeBand} {
		if _, err := b.Mappings.Options(key); err != nil {
			return err
		}
	}
	for _, key := range []string{MapMarket, MapPriceLevel} {
		labels, err := b.Mappings.Labels(key)
		if err != nil {
			return err
		}
		if labels.Len() == 0 {
			return fmt.Errorf("mapping %q has no entries", key)
		}
	}
	return nil
}

// reconcileRegressionFeatures compares the persisted regression list against
// RegressionFeatures. The hard-coded list always wins; a disagreement is
// logged, not fatal. Missing market or price-level lists are left as-is and
// surface per request as config-missing outcomes.
func (b *Bundle) reconcileRegressionFeatures() {
	loaded := b.Features.Regression
	if len(loaded) == 0 {
		log.Warn().
			Str("file", FeatureNamesFile).
			Msg("No regression feature list in artifact, using built-in list")
		return
	}
	if !sameSet(loaded, RegressionFeatures) {
		log.Warn().
			Str("file", FeatureNamesFile).
			Strs("loaded", loaded).
			Strs("using", RegressionFeatures).
			Msg("Regression feature list in artifact differs from built-in list, preferring built-in")
	}
}

// decodeFile strictly decodes one JSON artifact into dst.
func decodeFile(path string, dst any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

// sameSet reports whether two name lists contain the same names, ignoring
// order.
func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, name := range a {
		set[name] = struct{}{}
	}
	for _, name := range b {
		if _, ok := set[name]; !ok {
			return false
		}
	}
	return true
}

// Loader memoizes a bundle for the lifetime of the process. The bundle is
// read-only after load, so no locking beyond the once is needed.
type Loader struct {
	dir    string
	once   sync.Once
	bundle *Bundle
	err    error
}

// NewLoader creates a loader for the given bundle directory.
func NewLoader(dir string) *Loader {
	return &Loader{dir: dir}
}

// Bundle loads the artifacts on first use and returns the cached result
// afterwards, including a cached failure.
func (l *Loader) Bundle() (*Bundle, error) {
	l.once.Do(func() {
		l.bundle, l.err = Load(l.dir)
	})
	return l.bundle, l.err
}
