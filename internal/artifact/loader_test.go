package artifact_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homevalai/homeval/internal/artifact"
	"github.com/homevalai/homeval/internal/model"
	"github.com/homevalai/homeval/internal/testhelper"
)

func TestLoadValidBundle(t *testing.T) {
	dir := t.TempDir()
	testhelper.WriteBundle(t, dir)

	bundle, err := artifact.Load(dir)
	require.NoError(t, err)

	assert.Equal(t, model.KindBoostClassifier, bundle.MarketModel.Kind)
	assert.Equal(t, model.KindVoteClassifier, bundle.PriceLevelModel.Kind)
	assert.Equal(t, model.KindRegressor, bundle.UnitPriceModel.Kind)
	assert.Equal(t, len(artifact.RegressionFeatures), bundle.Scaler.Width())
	assert.Len(t, bundle.Features.Market, 6)
}

func TestLoadEnumeratesMissingFiles(t *testing.T) {
	dir := t.TempDir()
	testhelper.WriteBundleExcept(t, dir, artifact.ScalerFile, artifact.MappingsFile)

	_, err := artifact.Load(dir)
	var missing *artifact.MissingFilesError
	require.ErrorAs(t, err, &missing)
	assert.ElementsMatch(t, []string{artifact.ScalerFile, artifact.MappingsFile}, missing.Files)
}

func TestLoadEmptyDir(t *testing.T) {
	_, err := artifact.Load(t.TempDir())
	var missing *artifact.MissingFilesError
	require.ErrorAs(t, err, &missing)
	assert.Len(t, missing.Files, len(artifact.RequiredFiles))
}

func TestLoadInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	testhelper.WriteBundle(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, artifact.MarketModelFile), []byte("{not json"), 0644))

	_, err := artifact.Load(dir)
	var invalid *artifact.InvalidResourceError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, artifact.MarketModelFile, invalid.File)
}

func TestLoadStructurallyInvalidModel(t *testing.T) {
	dir := t.TempDir()
	testhelper.WriteBundle(t, dir)
	broken := testhelper.PriceLevelModel()
	broken.Trees = nil
	testhelper.WriteArtifact(t, dir, artifact.PriceLevelModelFile, broken)

	_, err := artifact.Load(dir)
	var invalid *artifact.InvalidResourceError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, artifact.PriceLevelModelFile, invalid.File)
}

func TestLoadScalerWidthMismatchIsFatal(t *testing.T) {
	dir := t.TempDir()
	testhelper.WriteBundle(t, dir)
	testhelper.WriteArtifact(t, dir, artifact.ScalerFile, &model.Scaler{
		Mean: []float64{0, 0, 0},
		Std:  []float64{1, 1, 1},
	})

	_, err := artifact.Load(dir)
	var mismatch *artifact.ConfigMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Contains(t, mismatch.Reason, "scaler was fitted on 3 features")
}

func TestLoadPrefersBuiltInRegressionList(t *testing.T) {
	dir := t.TempDir()
	testhelper.WriteBundle(t, dir)

	// Persisted regression list disagrees with the built-in one; loading
	// still succeeds and dispatch keeps using the built-in order.
	names := testhelper.FeatureNames()
	names.Regression = []string{"所属区域", "面积(㎡)"}
	testhelper.WriteArtifact(t, dir, artifact.FeatureNamesFile, names)

	bundle, err := artifact.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"所属区域", "面积(㎡)"}, bundle.Features.Regression)
	assert.Len(t, artifact.RegressionFeatures, 8)
}

func TestLoadMissingMappingTable(t *testing.T) {
	dir := t.TempDir()
	testhelper.WriteBundle(t, dir)
	mappings := testhelper.Mappings()
	delete(mappings, artifact.MapMarket)
	testhelper.WriteArtifact(t, dir, artifact.MappingsFile, mappings)

	_, err := artifact.Load(dir)
	var invalid *artifact.InvalidResourceError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, artifact.MappingsFile, invalid.File)
}

func TestLoadMissingTargetFeatureListIsSoft(t *testing.T) {
	dir := t.TempDir()
	testhelper.WriteBundle(t, dir)
	names := testhelper.FeatureNames()
	names.Market = nil
	testhelper.WriteArtifact(t, dir, artifact.FeatureNamesFile, names)

	// A target without a feature list surfaces per request as a
	// config-missing outcome, never as a load failure.
	bundle, err := artifact.Load(dir)
	require.NoError(t, err)
	assert.Empty(t, bundle.Features.Market)
}

func TestLoaderMemoizes(t *testing.T) {
	dir := t.TempDir()
	testhelper.WriteBundle(t, dir)

	loader := artifact.NewLoader(dir)
	first, err := loader.Bundle()
	require.NoError(t, err)

	// Removing the files afterwards must not matter: the bundle is cached
	// for the process lifetime.
	for _, name := range artifact.RequiredFiles {
		require.NoError(t, os.Remove(filepath.Join(dir, name)))
	}
	second, err := loader.Bundle()
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestLoaderCachesFailure(t *testing.T) {
	dir := t.TempDir()
	loader := artifact.NewLoader(dir)

	_, err := loader.Bundle()
	require.Error(t, err)

	testhelper.WriteBundle(t, dir)
	_, err = loader.Bundle()
	assert.Error(t, err, "first load result is sticky")
}
