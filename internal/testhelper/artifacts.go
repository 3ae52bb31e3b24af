package testhelper

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/homevalai/homeval/internal/artifact"
	"github.com/homevalai/homeval/internal/feature"
	"github.com/homevalai/homeval/internal/model"
)

// Fixture models are tiny but input-dependent so dispatch tests exercise real
// tree walks:
//   - market segment boosts over total price: <=100 low, <=200 mid, else high
//   - price level votes 1 only when total price > 150
//   - unit price averages two trees around the scaled area column, yielding
//     10000 for the default 95 square meters

// MarketModel returns the fixture market-segment classifier.
func MarketModel() *model.Ensemble {
	return &model.Ensemble{
		Kind:     model.KindBoostClassifier,
		Features: 6,
		Classes:  []int{0, 1, 2},
		Trees: []model.Tree{
			{Class: 0, Nodes: []model.Node{
				{Feature: 4, Threshold: 100, Left: 1, Right: 2},
				{Feature: -1, Value: 10},
				{Feature: -1, Value: 0},
			}},
			{Class: 1, Nodes: []model.Node{
				{Feature: 4, Threshold: 100, Left: 1, Right: 2},
				{Feature: -1, Value: 0},
				{Feature: 4, Threshold: 200, Left: 3, Right: 4},
				{Feature: -1, Value: 5},
				{Feature: -1, Value: 0},
			}},
			{Class: 2, Nodes: []model.Node{
				{Feature: 4, Threshold: 200, Left: 1, Right: 2},
				{Feature: -1, Value: 0},
				{Feature: -1, Value: 3},
			}},
		},
	}
}

// PriceLevelModel returns the fixture price-level classifier.
func PriceLevelModel() *model.Ensemble {
	return &model.Ensemble{
		Kind:     model.KindVoteClassifier,
		Features: 3,
		Classes:  []int{0, 1},
		Trees: []model.Tree{
			{Nodes: []model.Node{
				{Feature: 1, Threshold: 150, Left: 1, Right: 2},
				{Feature: -1, Value: 0},
				{Feature: -1, Value: 1},
			}},
			{Nodes: []model.Node{
				{Feature: 1, Threshold: 150, Left: 1, Right: 2},
				{Feature: -1, Value: 0},
				{Feature: -1, Value: 1},
			}},
			{Nodes: []model.Node{
				{Feature: -1, Value: 1},
			}},
		},
	}
}

// UnitPriceModel returns the fixture unit-price regressor. The split is on
// the scaled area column, so 95 square meters lands exactly on the boundary.
func UnitPriceModel() *model.Ensemble {
	return &model.Ensemble{
		Kind:     model.KindRegressor,
		Features: 8,
		Trees: []model.Tree{
			{Nodes: []model.Node{
				{Feature: 2, Threshold: 0, Left: 1, Right: 2},
				{Feature: -1, Value: 9000},
				{Feature: -1, Value: 13000},
			}},
			{Nodes: []model.Node{
				{Feature: -1, Value: 11000},
			}},
		},
	}
}

// Scaler returns the fixture regression scaler, fitted on the eight
// regression features in their required order.
func Scaler() *model.Scaler {
	return &model.Scaler{
		Mean: []float64{3, 2, 95, 18, 2015, 3, 2, 1},
		Std:  []float64{1, 1, 50, 10, 10, 1, 1, 1},
	}
}

// FeatureNames returns the fixture per-model feature lists.
func FeatureNames() artifact.FeatureNames {
	return artifact.FeatureNames{
		Market: []string{
			feature.Orientation, feature.FloorLevel, feature.District,
			feature.AgeBand, feature.TotalPrice, feature.Area,
		},
		PriceLevel: []string{feature.District, feature.TotalPrice, feature.Area},
		Regression: artifact.RegressionFeatures,
	}
}

// Mappings returns the fixture categorical tables.
func Mappings() artifact.Mappings {
	return artifact.Mappings{
		artifact.MapOrientation: {"东": 0.0, "南": 1.0, "西": 2.0, "北": 3.0},
		artifact.MapFloorLevel:  {"低层": 0.0, "中层": 1.0, "高层": 2.0},
		artifact.MapDistrict: {
			"亭湖区": 0.0, "盐都区": 1.0, "大丰区": 2.0, "东台市": 3.0,
			"建湖县": 4.0, "射阳县": 5.0, "阜宁县": 6.0,
		},
		artifact.MapAgeBand:    {"5年以内": 0.0, "5-10年": 1.0, "10-20年": 2.0, "20年以上": 3.0},
		artifact.MapMarket:     {"0": "低端市场", "1": "中端市场", "2": "高端市场"},
		artifact.MapPriceLevel: {"0": "不高于区域均价", "1": "高于区域均价"},
	}
}

// WriteBundle writes the full fixture bundle into dir.
func WriteBundle(t *testing.T, dir string) {
	t.Helper()
	WriteBundleExcept(t, dir)
}

// WriteBundleExcept writes the fixture bundle, skipping the named files so
// missing-file behavior can be tested.
func WriteBundleExcept(t *testing.T, dir string, skip ...string) {
	t.Helper()

	skipped := make(map[string]bool, len(skip))
	for _, name := range skip {
		skipped[name] = true
	}

	files := map[string]any{
		artifact.MarketModelFile:     MarketModel(),
		artifact.PriceLevelModelFile: PriceLevelModel(),
		artifact.UnitPriceModelFile:  UnitPriceModel(),
		artifact.ScalerFile:          Scaler(),
		artifact.FeatureNamesFile:    FeatureNames(),
		artifact.MappingsFile:        Mappings(),
	}
	for name, content := range files {
		if skipped[name] {
			continue
		}
		WriteArtifact(t, dir, name, content)
	}
}

// WriteArtifact serializes one artifact into dir, overwriting any fixture
// version so tests can inject inconsistent content.
func WriteArtifact(t *testing.T, dir, name string, content any) {
	t.Helper()
	data, err := json.Marshal(content)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0644))
}

// FullInput returns an input with every feature populated; the fixture models
// map it to the mid market segment, price level 0, and unit price 10000.
func FullInput() feature.Input {
	in := feature.Defaults()
	orientation, floorLevel, district, ageBand := 1, 1, 3, 2
	in.Orientation = &orientation
	in.FloorLevel = &floorLevel
	in.District = &district
	in.AgeBand = &ageBand
	return in
}
