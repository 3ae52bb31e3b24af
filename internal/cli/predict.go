package cli

import (
	"encoding/json"
	"fmt"
	"image/color"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/homevalai/homeval/internal/artifact"
	"github.com/homevalai/homeval/internal/feature"
	"github.com/homevalai/homeval/internal/predict"
	"github.com/homevalai/homeval/internal/style"
)

var (
	// Predict command flags
	predictArtifacts string
	predictInputFile string
	predictSkip      []string

	predictOrientation int
	predictFloorLevel  int
	predictDistrict    int
	predictAgeBand     int
	predictTotalPrice  float64
	predictArea        float64
	predictBuildYear   int
	predictFloorCount  int
	predictRooms       int
	predictHalls       int
	predictBaths       int
)

// predictCmd represents the predict command
var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Run a one-shot prediction from the command line",
	Long: `Run the three prediction targets over a single property described by flags
or an input JSON document.

Numeric fields default to the same values the input form pre-fills. Selector
codes come from the mapping artifact ('homeval artifacts --output json' lists
them); leave a selector at -1 or list a field in --skip to mark it not
applicable. Targets whose required features are incomplete report
insufficient data instead of predicting.

Examples:
  homeval predict --district 3 --age-band 2 --orientation 1 --floor-level 1
  homeval predict --input house.json --output json
  homeval predict --district 3 --age-band 2 --skip area`,
	Run: func(cmd *cobra.Command, args []string) {
		runPredict(cmd)
	},
}

func init() {
	rootCmd.AddCommand(predictCmd)

	predictCmd.Flags().StringVarP(&predictArtifacts, "artifacts", "a", "artifacts", "artifact bundle directory")
	predictCmd.Flags().StringVarP(&predictInputFile, "input", "i", "", "input JSON document (overrides field flags)")
	predictCmd.Flags().StringSliceVar(&predictSkip, "skip", nil, "field keys to mark as not applicable")

	predictCmd.Flags().IntVar(&predictOrientation, "orientation", -1, "orientation code (-1 = not applicable)")
	predictCmd.Flags().IntVar(&predictFloorLevel, "floor-level", -1, "floor level code (-1 = not applicable)")
	predictCmd.Flags().IntVar(&predictDistrict, "district", -1, "district code (-1 = not applicable)")
	predictCmd.Flags().IntVar(&predictAgeBand, "age-band", -1, "age band code (-1 = not applicable)")
	predictCmd.Flags().Float64Var(&predictTotalPrice, "total-price", 120, "total price (万)")
	predictCmd.Flags().Float64Var(&predictArea, "area", 95, "area (㎡)")
	predictCmd.Flags().IntVar(&predictBuildYear, "build-year", 2015, "construction year")
	predictCmd.Flags().IntVar(&predictFloorCount, "floor-count", 18, "total floors in the building")
	predictCmd.Flags().IntVar(&predictRooms, "rooms", 3, "bedrooms")
	predictCmd.Flags().IntVar(&predictHalls, "halls", 2, "living/dining rooms")
	predictCmd.Flags().IntVar(&predictBaths, "baths", 1, "bathrooms")
}

func runPredict(cmd *cobra.Command) {
	input, err := buildInput()
	if err != nil {
		style.Error(cmd.OutOrStderr(), fmt.Sprintf("Invalid input: %v", err))
		os.Exit(1)
	}

	bundle, err := artifact.Load(predictArtifacts)
	if err != nil {
		style.Error(cmd.OutOrStderr(), fmt.Sprintf("Failed to load artifacts: %v", err))
		os.Exit(1)
	}
	dispatcher, err := predict.NewDispatcher(bundle)
	if err != nil {
		style.Error(cmd.OutOrStderr(), fmt.Sprintf("Failed to configure targets: %v", err))
		os.Exit(1)
	}

	result := dispatcher.Dispatch(input.Vector())

	switch viper.GetString("output") {
	case "json":
		style.PrintJSON(cmd.OutOrStdout(), result)
	case "yaml":
		style.PrintYAML(cmd.OutOrStdout(), result)
	default:
		renderResult(cmd.OutOrStdout(), result)
	}
}

// buildInput assembles the request input from the --input document or from
// field flags, then applies --skip.
func buildInput() (feature.Input, error) {
	var input feature.Input

	if predictInputFile != "" {
		data, err := os.ReadFile(predictInputFile)
		if err != nil {
			return input, err
		}
		if err := json.Unmarshal(data, &input); err != nil {
			return input, fmt.Errorf("parsing %s: %w", predictInputFile, err)
		}
	} else {
		setCode := func(dst **int, code int) {
			if code >= 0 {
				v := code
				*dst = &v
			}
		}
		setCode(&input.Orientation, predictOrientation)
		setCode(&input.FloorLevel, predictFloorLevel)
		setCode(&input.District, predictDistrict)
		setCode(&input.AgeBand, predictAgeBand)

		totalPrice, area := predictTotalPrice, predictArea
		buildYear, floorCount := predictBuildYear, predictFloorCount
		rooms, halls, baths := predictRooms, predictHalls, predictBaths
		input.TotalPrice = &totalPrice
		input.Area = &area
		input.BuildYear = &buildYear
		input.FloorCount = &floorCount
		input.Rooms = &rooms
		input.Halls = &halls
		input.Baths = &baths
	}

	for _, key := range predictSkip {
		if err := clearField(&input, key); err != nil {
			return input, err
		}
	}
	return input, nil
}

// clearField marks one field as not applicable by its schema key.
func clearField(in *feature.Input, key string) error {
	fields := map[string]func(){
		"orientation": func() { in.Orientation = nil },
		"floor_level": func() { in.FloorLevel = nil },
		"district":    func() { in.District = nil },
		"age_band":    func() { in.AgeBand = nil },
		"total_price": func() { in.TotalPrice = nil },
		"area":        func() { in.Area = nil },
		"build_year":  func() { in.BuildYear = nil },
		"floor_count": func() { in.FloorCount = nil },
		"rooms":       func() { in.Rooms = nil },
		"halls":       func() { in.Halls = nil },
		"baths":       func() { in.Baths = nil },
	}
	fn, ok := fields[key]
	if !ok {
		return fmt.Errorf("unknown field key %q", key)
	}
	fn()
	return nil
}

// renderResult prints the three outcome panels side by side followed by a
// summary line.
func renderResult(w io.Writer, result predict.Result) {
	panels := make([]string, 0, len(result.Outcomes))
	for _, outcome := range result.Outcomes {
		panels = append(panels, style.RenderPanel(outcome.Title, outcomeText(outcome), outcomeColor(outcome)))
	}
	fmt.Fprintln(w, lipgloss.JoinHorizontal(lipgloss.Top, panels...))

	switch result.Summary {
	case predict.SummaryComplete:
		style.Success(w, "分析预测完成")
	case predict.SummaryPartial:
		style.Warning(w, "部分预测因输入数据不足或配置缺失未能完成")
		for _, outcome := range result.Outcomes {
			if outcome.Status == predict.StatusInsufficientData {
				fmt.Fprintf(w, "  %s 缺少: %v\n", outcome.Title, outcome.Missing)
			}
		}
	default:
		style.Error(w, "执行过程中遇到运行时错误")
		for _, outcome := range result.Outcomes {
			if outcome.Status == predict.StatusFailed {
				fmt.Fprintf(w, "  %s: %s\n", outcome.Title, outcome.Message)
			}
		}
	}
}

// outcomeText mirrors the result cells of the original dashboard.
func outcomeText(outcome predict.Outcome) string {
	switch outcome.Status {
	case predict.StatusConfigMissing:
		return "特征配置缺失"
	case predict.StatusInsufficientData:
		return "数据不足，无法判断"
	case predict.StatusFailed:
		return "预测失败"
	}
	if outcome.Value != nil {
		return fmt.Sprintf("%.0f 元/㎡", *outcome.Value)
	}
	return outcome.Label
}

func outcomeColor(outcome predict.Outcome) color.Color {
	switch outcome.Status {
	case predict.StatusConfigMissing:
		return style.WarningColor
	case predict.StatusInsufficientData:
		return style.MutedColor
	case predict.StatusFailed:
		return style.ErrorColor
	}

	switch outcome.Target {
	case predict.TargetPriceLevel:
		if outcome.Code != nil && *outcome.Code == 1 {
			return style.AboveAverageColor
		}
		return style.BelowAverageColor
	case predict.TargetUnitPrice:
		return style.UnitPricePanelColor
	default:
		return style.MarketPanelColor
	}
}
