package cli

import (
	"bytes"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/lipgloss/v2"
	"github.com/gkampitakis/go-snaps/snaps"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homevalai/homeval/internal/predict"
	"github.com/homevalai/homeval/internal/style"
)

func TestMain(m *testing.M) {
	code := m.Run()
	snaps.Clean(m)
	os.Exit(code)
}

// resetPredictFlags restores the flag globals to their registered defaults
// after a test mutated them.
func resetPredictFlags(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		predictInputFile = ""
		predictSkip = nil
		predictOrientation, predictFloorLevel = -1, -1
		predictDistrict, predictAgeBand = -1, -1
		predictTotalPrice, predictArea = 120, 95
		predictBuildYear, predictFloorCount = 2015, 18
		predictRooms, predictHalls, predictBaths = 3, 2, 1
	})
}

func TestBuildInputFromFlags(t *testing.T) {
	resetPredictFlags(t)
	predictDistrict = 3
	predictAgeBand = 2
	predictArea = 88.5

	input, err := buildInput()
	require.NoError(t, err)

	require.NotNil(t, input.District)
	assert.Equal(t, 3, *input.District)
	require.NotNil(t, input.AgeBand)
	assert.Equal(t, 2, *input.AgeBand)
	assert.Nil(t, input.Orientation, "selector left at -1 stays not applicable")
	require.NotNil(t, input.Area)
	assert.Equal(t, 88.5, *input.Area)
	require.NotNil(t, input.TotalPrice)
	assert.Equal(t, 120.0, *input.TotalPrice)
}

func TestBuildInputSkip(t *testing.T) {
	resetPredictFlags(t)
	predictDistrict = 3
	predictSkip = []string{"area", "total_price"}

	input, err := buildInput()
	require.NoError(t, err)
	assert.Nil(t, input.Area)
	assert.Nil(t, input.TotalPrice)
	assert.NotNil(t, input.Rooms)
}

func TestBuildInputSkipUnknownKey(t *testing.T) {
	resetPredictFlags(t)
	predictSkip = []string{"basement"}

	_, err := buildInput()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "basement")
}

func TestBuildInputFromFile(t *testing.T) {
	resetPredictFlags(t)

	path := filepath.Join(t.TempDir(), "house.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"district": 5, "area": 70}`), 0644))
	predictInputFile = path
	predictDistrict = 3

	input, err := buildInput()
	require.NoError(t, err)
	require.NotNil(t, input.District)
	assert.Equal(t, 5, *input.District, "file overrides field flags")
	require.NotNil(t, input.Area)
	assert.Equal(t, 70.0, *input.Area)
	assert.Nil(t, input.TotalPrice, "file inputs carry no flag defaults")
}

func TestBuildInputFileNotFound(t *testing.T) {
	resetPredictFlags(t)
	predictInputFile = filepath.Join(t.TempDir(), "missing.json")

	_, err := buildInput()
	assert.Error(t, err)
}

func TestOutcomeText(t *testing.T) {
	value := 9876.4
	code := 1
	tests := []struct {
		name    string
		outcome predict.Outcome
		want    string
	}{
		{"config missing", predict.Outcome{Status: predict.StatusConfigMissing}, "特征配置缺失"},
		{"insufficient", predict.Outcome{Status: predict.StatusInsufficientData}, "数据不足，无法判断"},
		{"failed", predict.Outcome{Status: predict.StatusFailed}, "预测失败"},
		{"regression value", predict.Outcome{Status: predict.StatusSuccess, Value: &value}, "9876 元/㎡"},
		{"classifier label", predict.Outcome{Status: predict.StatusSuccess, Label: "高于区域均价", Code: &code}, "高于区域均价"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, outcomeText(tt.outcome))
		})
	}
}

func TestOutcomeColor(t *testing.T) {
	above, below := 1, 0

	assert.Equal(t, style.MutedColor, outcomeColor(predict.Outcome{Status: predict.StatusInsufficientData}))
	assert.Equal(t, style.ErrorColor, outcomeColor(predict.Outcome{Status: predict.StatusFailed}))
	assert.Equal(t, style.WarningColor, outcomeColor(predict.Outcome{Status: predict.StatusConfigMissing}))

	assert.Equal(t, style.AboveAverageColor, outcomeColor(predict.Outcome{
		Target: predict.TargetPriceLevel, Status: predict.StatusSuccess, Code: &above,
	}))
	assert.Equal(t, style.BelowAverageColor, outcomeColor(predict.Outcome{
		Target: predict.TargetPriceLevel, Status: predict.StatusSuccess, Code: &below,
	}))
	assert.Equal(t, style.UnitPricePanelColor, outcomeColor(predict.Outcome{
		Target: predict.TargetUnitPrice, Status: predict.StatusSuccess,
	}))
	assert.Equal(t, style.MarketPanelColor, outcomeColor(predict.Outcome{
		Target: predict.TargetMarketSegment, Status: predict.StatusSuccess,
	}))
}

func completeResult() predict.Result {
	marketCode, levelCode := 1, 0
	unitPrice := 10000.0
	outcomes := []predict.Outcome{
		{
			Target: predict.TargetMarketSegment, Title: "市场细分",
			Status: predict.StatusSuccess, Label: "中端市场", Code: &marketCode,
		},
		{
			Target: predict.TargetPriceLevel, Title: "价格水平",
			Status: predict.StatusSuccess, Label: "不高于区域均价", Code: &levelCode,
		},
		{
			Target: predict.TargetUnitPrice, Title: "均价预测",
			Status: predict.StatusSuccess, Value: &unitPrice,
		},
	}
	return predict.Result{Outcomes: outcomes, Summary: predict.SummaryComplete}
}

func TestRenderResultComplete(t *testing.T) {
	var buf bytes.Buffer
	renderResult(&buf, completeResult())

	out := buf.String()
	assert.Contains(t, out, "市场细分")
	assert.Contains(t, out, "中端市场")
	assert.Contains(t, out, "10000 元/㎡")
	assert.Contains(t, out, "分析预测完成")
}

func TestRenderResultPartial(t *testing.T) {
	result := predict.Result{
		Outcomes: []predict.Outcome{
			{
				Target: predict.TargetUnitPrice, Title: "均价预测",
				Status: predict.StatusInsufficientData, Missing: []string{"面积(㎡)"},
			},
		},
		Summary: predict.SummaryPartial,
	}

	var buf bytes.Buffer
	renderResult(&buf, result)

	out := buf.String()
	assert.Contains(t, out, "数据不足，无法判断")
	assert.Contains(t, out, "面积(㎡)")
	assert.Contains(t, out, "部分预测因输入数据不足或配置缺失未能完成")
}

func TestRenderResultError(t *testing.T) {
	result := predict.Result{
		Outcomes: []predict.Outcome{
			{
				Target: predict.TargetMarketSegment, Title: "市场细分",
				Status: predict.StatusFailed, Message: "分析时出现问题，请检查输入或联系管理员。",
			},
		},
		Summary: predict.SummaryError,
	}

	var buf bytes.Buffer
	renderResult(&buf, result)

	out := buf.String()
	assert.Contains(t, out, "预测失败")
	assert.Contains(t, out, "分析时出现问题，请检查输入或联系管理员。")
}

func TestResultJSONShape(t *testing.T) {
	var buf bytes.Buffer
	style.PrintJSON(&buf, completeResult())
	snaps.MatchSnapshot(t, buf.String())
}

func TestOutcomeColorSatisfiesColorInterface(t *testing.T) {
	// Panel colors flow into lipgloss styles and the fang color scheme as
	// plain image/color values; any color.Color must be usable.
	var c color.Color = outcomeColor(predict.Outcome{Status: predict.StatusFailed})
	assert.Equal(t, style.ErrorColor, c)

	panel := style.RenderPanel("均价预测", "10000 元/㎡", color.RGBA{R: 0x2C, G: 0xA0, B: 0x2C, A: 0xFF})
	assert.Contains(t, panel, "均价预测")
}

func TestPanelsJoinHorizontally(t *testing.T) {
	left := style.RenderPanel("市场细分", "中端市场", style.MarketPanelColor)
	right := style.RenderPanel("均价预测", "10000 元/㎡", style.UnitPricePanelColor)
	joined := lipgloss.JoinHorizontal(lipgloss.Top, left, right)
	assert.Contains(t, joined, "市场细分")
	assert.Contains(t, joined, "10000 元/㎡")
}
