package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/homevalai/homeval/internal/artifact"
	"github.com/homevalai/homeval/internal/predict"
	"github.com/homevalai/homeval/internal/style"
)

// artifactsCmd represents the artifacts command
var artifactsCmd = &cobra.Command{
	Use:   "artifacts [dir]",
	Short: "Validate an artifact bundle",
	Long: `Validate a directory of serialized model artifacts without starting the
server.

This command checks:
- all six artifact files are present
- every file deserializes into a structurally valid model, scaler or mapping
- the regression feature list agrees with the scaler width
- output mapping tables decode every configured target

Examples:
  homeval artifacts ./artifacts                # Validate a bundle
  homeval artifacts --output json ./artifacts  # JSON output for CI/CD`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		dir := "artifacts"
		if len(args) > 0 {
			dir = args[0]
		}
		validateArtifacts(cmd, dir)
	},
}

func init() {
	rootCmd.AddCommand(artifactsCmd)
}

// BundleReport is the result of validating one artifact bundle.
type BundleReport struct {
	Dir      string        `json:"dir" yaml:"dir"`
	Valid    bool          `json:"valid" yaml:"valid"`
	Duration time.Duration `json:"duration_ms" yaml:"duration_ms"`
	Files    []FileStatus  `json:"files" yaml:"files"`
	Targets  []string      `json:"targets,omitempty" yaml:"targets,omitempty"`
	Error    string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// FileStatus reports presence of one required artifact file.
type FileStatus struct {
	File    string `json:"file" yaml:"file"`
	Present bool   `json:"present" yaml:"present"`
}

func validateArtifacts(cmd *cobra.Command, dir string) {
	start := time.Now()

	report := BundleReport{Dir: dir}
	for _, name := range artifact.RequiredFiles {
		_, err := os.Stat(filepath.Join(dir, name))
		report.Files = append(report.Files, FileStatus{File: name, Present: err == nil})
	}

	bundle, err := artifact.Load(dir)
	if err != nil {
		report.Error = err.Error()
	} else {
		dispatcher, derr := predict.NewDispatcher(bundle)
		if derr != nil {
			report.Error = derr.Error()
		} else {
			report.Valid = true
			for _, spec := range dispatcher.Specs() {
				report.Targets = append(report.Targets, spec.Target)
			}
		}
	}
	report.Duration = time.Since(start)

	switch viper.GetString("output") {
	case "json":
		style.PrintJSON(cmd.OutOrStdout(), report)
	case "yaml":
		style.PrintYAML(cmd.OutOrStdout(), report)
	default:
		printReport(cmd, report)
	}

	if !report.Valid {
		os.Exit(1)
	}
}

func printReport(cmd *cobra.Command, report BundleReport) {
	out := cmd.OutOrStdout()
	for _, fs := range report.Files {
		if fs.Present {
			if !viper.GetBool("quiet") {
				style.Success(out, fs.File)
			}
		} else {
			style.Error(out, fmt.Sprintf("%s (missing)", fs.File))
		}
	}

	if report.Valid {
		style.Success(out, fmt.Sprintf("Bundle %s is valid (%d targets, %v)", report.Dir, len(report.Targets), report.Duration))
		return
	}

	style.Error(cmd.OutOrStderr(), fmt.Sprintf("Bundle %s is invalid: %s", report.Dir, report.Error))
}
