package core

import "time"

// CategoryAggregate is an amount summed over the expenses sharing a category name.
type CategoryAggregate struct {
	Category string `json:"category"`
	Total    Money  `json:"total"`
}

// MonthlyAggregate is an amount summed over one calendar month.
type MonthlyAggregate struct {
	Month string    `json:"month"` // "Jan 2024"
	Start time.Time `json:"-"`
	Total Money     `json:"total"`
}

// ForecastPoint is a predicted amount for one month label.
type ForecastPoint struct {
	Month  string `json:"month"`
	Amount Money  `json:"predicted_amount"`
}

// CategoryForecast holds the upcoming monthly predictions for a category,
// nearest month first.
type CategoryForecast struct {
	Category string          `json:"category"`
	Points   []ForecastPoint `json:"predictions"`
}
