package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homevalai/homeval/internal/artifact"
	"github.com/homevalai/homeval/internal/predict"
	"github.com/homevalai/homeval/internal/testhelper"
)

func TestValidateArtifactsValidBundle(t *testing.T) {
	dir := t.TempDir()
	testhelper.WriteBundle(t, dir)

	viper.Set("output", "json")
	t.Cleanup(func() { viper.Set("output", "text") })

	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	validateArtifacts(cmd, dir)

	var report BundleReport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &report))
	assert.True(t, report.Valid)
	assert.Empty(t, report.Error)
	assert.Equal(t, []string{
		predict.TargetMarketSegment,
		predict.TargetPriceLevel,
		predict.TargetUnitPrice,
	}, report.Targets)

	require.Len(t, report.Files, len(artifact.RequiredFiles))
	for _, fs := range report.Files {
		assert.True(t, fs.Present, fs.File)
	}
}
