package viewmodel

import (
	"slices"
	"strings"
	"time"

	"spendview/internal/core"
)

// AllCategories selects every category in the forecast chart.
const AllCategories = "all"

var monthLayouts = []string{"2006-01", "Jan 2006", "January 2006", "2006-01-02"}

// ChartSeries is one line of the forecast chart, aligned with its labels.
type ChartSeries struct {
	Label  string       `json:"label"`
	Values []core.Money `json:"values"`
}

// ForecastChart holds month labels in chronological order and one series per
// selected category.
type ForecastChart struct {
	Labels []string      `json:"labels"`
	Series []ChartSeries `json:"series"`
}

// BuildForecastChart lays out forecasts for category, or for every category
// when category is empty or AllCategories. Months missing from a category
// chart as zero. An unknown category yields an empty chart.
func BuildForecastChart(forecasts []core.CategoryForecast, category string) ForecastChart {
	selected := forecasts
	if category != "" && category != AllCategories {
		selected = nil
		for _, f := range forecasts {
			if f.Category == category {
				selected = []core.CategoryForecast{f}
				break
			}
		}
	}
	chart := ForecastChart{Labels: []string{}, Series: []ChartSeries{}}
	seen := make(map[string]struct{})
	for _, f := range selected {
		for _, p := range f.Points {
			if _, ok := seen[p.Month]; ok {
				continue
			}
			seen[p.Month] = struct{}{}
			chart.Labels = append(chart.Labels, p.Month)
		}
	}
	chart.Labels = sortMonthLabels(chart.Labels)
	for _, f := range selected {
		byMonth := make(map[string]core.Money, len(f.Points))
		for _, p := range f.Points {
			if _, ok := byMonth[p.Month]; !ok {
				byMonth[p.Month] = p.Amount
			}
		}
		s := ChartSeries{Label: f.Category, Values: make([]core.Money, len(chart.Labels))}
		for i, l := range chart.Labels {
			s.Values[i] = byMonth[l]
		}
		chart.Series = append(chart.Series, s)
	}
	return chart
}

// NextMonthTotal sums the nearest predicted month of every category.
func NextMonthTotal(forecasts []core.CategoryForecast) core.Money {
	var total core.Money
	for _, f := range forecasts {
		if len(f.Points) > 0 {
			total = total.Add(f.Points[0].Amount)
		}
	}
	return total
}

// ParseMonthLabel understands the month label formats the backends emit.
func ParseMonthLabel(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range monthLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// sortMonthLabels orders parseable labels chronologically; the rest follow in
// their original order.
func sortMonthLabels(labels []string) []string {
	type entry struct {
		label string
		at    time.Time
		ok    bool
	}
	entries := make([]entry, len(labels))
	for i, l := range labels {
		at, ok := ParseMonthLabel(l)
		entries[i] = entry{label: l, at: at, ok: ok}
	}
	slices.SortStableFunc(entries, func(a, b entry) int {
		switch {
		case a.ok && b.ok:
			return a.at.Compare(b.at)
		case a.ok:
			return -1
		case b.ok:
			return 1
		}
		return 0
	})
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.label
	}
	return out
}
