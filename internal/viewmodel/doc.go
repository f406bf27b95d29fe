// Package viewmodel turns a snapshot of expense records into the derived
// values the dashboard and history screens show: totals, category and monthly
// aggregates, filtered, sorted and paginated lists, and export parameters.
//
// Every function is a pure function of its arguments. Inputs are never
// modified; results are freshly allocated.
package viewmodel
