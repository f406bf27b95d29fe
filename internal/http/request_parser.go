// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data:
// JSON or form bodies, the dashboard period and the history view state.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"spendview/internal/core"
	"spendview/internal/viewmodel"
)

// maxBodyBytes bounds every request body the server reads.
const maxBodyBytes = 1 << 20

// errInvalidParam marks malformed query or body parameters.
var errInvalidParam = errors.New("invalid parameter")

func invalidParam(name, value string) error {
	return fmt.Errorf("%w %s=%q", errInvalidParam, name, value)
}

// RequestBodyParser reads a JSON object or a form-encoded body once and
// serves typed fields from it.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]json.RawMessage
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser reads r's body, at most maxBodyBytes of it.
func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	if r.Body != nil {
		p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	}
	return p
}

// Parse decodes the body. Bodies starting with '{' are JSON, anything else is
// treated as form data. An empty body parses to no fields.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	trimmed := bytes.TrimSpace(p.body)
	if len(trimmed) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if trimmed[0] == '{' {
		p.jsonData = make(map[string]json.RawMessage)
		if err := json.Unmarshal(trimmed, &p.jsonData); err != nil {
			p.err = fmt.Errorf("%w: malformed JSON body", errInvalidParam)
			return p.err
		}
		return nil
	}
	if trimmed[0] == '[' {
		p.err = fmt.Errorf("%w: body must be an object", errInvalidParam)
		return p.err
	}

	p.formData, p.err = url.ParseQuery(string(trimmed))
	if p.err != nil {
		p.err = fmt.Errorf("%w: malformed form body", errInvalidParam)
	}
	return p.err
}

// Has reports whether key was sent at all, even empty.
func (p *RequestBodyParser) Has(key string) bool {
	if p.jsonData != nil {
		v, ok := p.jsonData[key]
		return ok && !bytes.Equal(bytes.TrimSpace(v), []byte("null"))
	}
	if p.formData != nil {
		_, ok := p.formData[key]
		return ok
	}
	return false
}

// Get returns a sanitized string field. JSON numbers and booleans come back
// in their literal form.
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if raw, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(raw))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// Raw returns the untouched password-like field; sanitizing would change it.
func (p *RequestBodyParser) Raw(key string) string {
	if p.jsonData != nil {
		var s string
		if raw, ok := p.jsonData[key]; ok && json.Unmarshal(raw, &s) == nil {
			return s
		}
		return ""
	}
	if p.formData != nil {
		return p.formData.Get(key)
	}
	return ""
}

// Money reads a non-negative amount. JSON accepts numbers and numeric
// strings; forms also accept a decimal comma.
func (p *RequestBodyParser) Money(key string) (core.Money, error) {
	if p.jsonData != nil {
		raw, ok := p.jsonData[key]
		if !ok {
			return core.Money{}, fmt.Errorf("%w: %s is required", core.ErrInvalidAmount, key)
		}
		return core.ParseMoneyJSON(raw)
	}
	return parseMoneyString(p.Get(key))
}

// Date reads an ISO date field in loc.
func (p *RequestBodyParser) Date(key string, loc *time.Location) (core.Date, error) {
	v := p.Get(key)
	if v == "" {
		return core.Date{}, fmt.Errorf("%w: %s is required", core.ErrInvalidDate, key)
	}
	return core.ParseDate(v, loc)
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	raw = bytes.TrimSpace(raw)
	if bytes.Equal(raw, []byte("null")) {
		return ""
	}
	return string(raw)
}

func parseMoneyString(s string) (core.Money, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return core.Money{}, core.ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return core.Money{}, core.ErrInvalidAmount
	}
	return core.MoneyFromDecimal(d)
}

// ParsePeriod reads month and year from the query. Missing, empty and "all"
// values select everything.
func ParsePeriod(query url.Values) (viewmodel.Period, error) {
	var p viewmodel.Period
	var err error
	if p.Month, err = optionalInt(query, "month"); err != nil {
		return p, err
	}
	if p.Year, err = optionalInt(query, "year"); err != nil {
		return p, err
	}
	if err := p.Validate(); err != nil {
		return p, fmt.Errorf("%w: month=%d year=%d", err, p.Month, p.Year)
	}
	return p, nil
}

func optionalInt(query url.Values, key string) (int, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" || strings.EqualFold(v, "all") {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, invalidParam(key, v)
	}
	return n, nil
}

// ParseCriteria builds the history filters from the query. Empty values are
// inactive; malformed ones are errors, never ignored.
func ParseCriteria(query url.Values, loc *time.Location) (viewmodel.Criteria, error) {
	c := viewmodel.Criteria{
		Category: sanitizeInput(query.Get("category")),
		Search:   sanitizeInput(query.Get("q")),
	}
	for _, b := range []struct {
		key string
		dst **core.Date
	}{{"start", &c.Start}, {"end", &c.End}} {
		if v := strings.TrimSpace(query.Get(b.key)); v != "" {
			d, err := core.ParseDate(v, loc)
			if err != nil {
				return c, err
			}
			*b.dst = &d
		}
	}
	for _, b := range []struct {
		key string
		dst **core.Money
	}{{"min", &c.Min}, {"max", &c.Max}} {
		if v := strings.TrimSpace(query.Get(b.key)); v != "" {
			m, err := parseMoneyString(v)
			if err != nil {
				return c, fmt.Errorf("%w: %s=%q", err, b.key, v)
			}
			*b.dst = &m
		}
	}
	return c, nil
}

// ParseHistoryState rebuilds the history selection from the query: filters,
// then sort and direction, then page, then an optional toggle of a sort
// column. reset=true starts over from the initial state.
func ParseHistoryState(query url.Values, loc *time.Location, pageSize int) (viewmodel.HistoryState, error) {
	state := viewmodel.NewHistoryState().WithPageSize(pageSize)
	if strings.EqualFold(query.Get("reset"), "true") {
		return state.Reset(), nil
	}

	if v := strings.TrimSpace(query.Get("sort")); v != "" {
		field, err := viewmodel.ParseSortField(v)
		if err != nil {
			return state, invalidParam("sort", v)
		}
		dir := viewmodel.Asc
		if d := strings.TrimSpace(query.Get("dir")); d != "" {
			if dir, err = viewmodel.ParseDirection(d); err != nil {
				return state, invalidParam("dir", d)
			}
		}
		state = state.WithSort(field, dir)
	} else if d := strings.TrimSpace(query.Get("dir")); d != "" {
		dir, err := viewmodel.ParseDirection(d)
		if err != nil {
			return state, invalidParam("dir", d)
		}
		state = state.WithSort(state.Field, dir)
	}

	criteria, err := ParseCriteria(query, loc)
	if err != nil {
		return state, err
	}
	state = state.WithCriteria(criteria)

	if v := strings.TrimSpace(query.Get("page")); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil {
			return state, invalidParam("page", v)
		}
		state = state.WithPage(page)
	}

	if v := strings.TrimSpace(query.Get("toggle")); v != "" {
		field, err := viewmodel.ParseSortField(v)
		if err != nil {
			return state, invalidParam("toggle", v)
		}
		state = state.ToggleSort(field)
	}
	return state, nil
}
