package viewmodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendview/internal/core"
)

func forecasts() []core.CategoryForecast {
	return []core.CategoryForecast{
		{Category: "Food", Points: []core.ForecastPoint{
			{Month: "Feb 2025", Amount: money(1200)},
			{Month: "Mar 2025", Amount: money(1300)},
		}},
		{Category: "Rent", Points: []core.ForecastPoint{
			{Month: "Jan 2025", Amount: money(50000)},
			{Month: "Mar 2025", Amount: money(50000)},
		}},
		{Category: "Misc", Points: nil},
	}
}

func TestBuildForecastChartAll(t *testing.T) {
	chart := BuildForecastChart(forecasts(), AllCategories)
	assert.Equal(t, []string{"Jan 2025", "Feb 2025", "Mar 2025"}, chart.Labels)
	require.Len(t, chart.Series, 3)
	assert.Equal(t, []core.Money{money(0), money(1200), money(1300)}, chart.Series[0].Values)
	assert.Equal(t, []core.Money{money(50000), money(0), money(50000)}, chart.Series[1].Values)
	assert.Equal(t, []core.Money{money(0), money(0), money(0)}, chart.Series[2].Values)
}

func TestBuildForecastChartSingleCategory(t *testing.T) {
	chart := BuildForecastChart(forecasts(), "Rent")
	assert.Equal(t, []string{"Jan 2025", "Mar 2025"}, chart.Labels)
	require.Len(t, chart.Series, 1)
	assert.Equal(t, "Rent", chart.Series[0].Label)

	empty := BuildForecastChart(forecasts(), "Travel")
	assert.Empty(t, empty.Labels)
	assert.Empty(t, empty.Series)
}

func TestForecastLabelsUnparseableLast(t *testing.T) {
	fs := []core.CategoryForecast{{Category: "A", Points: []core.ForecastPoint{
		{Month: "soon"}, {Month: "2025-03"}, {Month: "later"}, {Month: "2025-01"},
	}}}
	chart := BuildForecastChart(fs, "")
	assert.Equal(t, []string{"2025-01", "2025-03", "soon", "later"}, chart.Labels)
}

func TestNextMonthTotal(t *testing.T) {
	assert.Equal(t, money(51200), NextMonthTotal(forecasts()))
	assert.Equal(t, money(0), NextMonthTotal(nil))
}
