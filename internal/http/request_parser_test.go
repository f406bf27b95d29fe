package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"spendview/internal/core"
	"spendview/internal/viewmodel"
)

func newParser(t *testing.T, contentType, body string) *RequestBodyParser {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	if contentType != "" {
		r.Header.Set("Content-Type", contentType)
	}
	return NewRequestBodyParser(httptest.NewRecorder(), r)
}

func TestRequestBodyParserJSON(t *testing.T) {
	p := newParser(t, "application/json", `{"description":"  Lunch\u0007 ","amount":12.5,"flag":true,"password":" s3cret ","none":null}`)
	if err := p.Parse(); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !p.IsJSON() {
		t.Fatalf("expected JSON")
	}
	if got := p.Get("description"); got != "Lunch" {
		t.Fatalf("description=%q", got)
	}
	if got := p.Get("flag"); got != "true" {
		t.Fatalf("flag=%q", got)
	}
	if got := p.Raw("password"); got != " s3cret " {
		t.Fatalf("password=%q", got)
	}
	if p.Has("none") || p.Has("missing") || !p.Has("amount") {
		t.Fatalf("Has mismatch")
	}
	m, err := p.Money("amount")
	if err != nil || m.Cents != 1250 {
		t.Fatalf("amount=%v err=%v", m, err)
	}
	if _, err := p.Money("missing"); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("missing amount err=%v", err)
	}
}

func TestRequestBodyParserForm(t *testing.T) {
	p := newParser(t, "application/x-www-form-urlencoded", "description=Taxi&amount=7%2C35&date=2024-03-02")
	if err := p.Parse(); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if p.IsJSON() {
		t.Fatalf("form parsed as JSON")
	}
	m, err := p.Money("amount")
	if err != nil || m.Cents != 735 {
		t.Fatalf("amount=%v err=%v", m, err)
	}
	d, err := p.Date("date", time.UTC)
	if err != nil || d.String() != "2024-03-02" {
		t.Fatalf("date=%v err=%v", d, err)
	}
}

func TestRequestBodyParserRejects(t *testing.T) {
	for name, body := range map[string]string{
		"broken json": `{"amount":`,
		"array":       `[1,2]`,
	} {
		t.Run(name, func(t *testing.T) {
			p := newParser(t, "application/json", body)
			if err := p.Parse(); !errors.Is(err, errInvalidParam) {
				t.Fatalf("err=%v", err)
			}
			if err := p.Parse(); err == nil {
				t.Fatalf("second Parse must return the same error")
			}
		})
	}
}

func TestRequestBodyParserMoney(t *testing.T) {
	cases := []struct {
		body    string
		want    int64
		wantErr bool
	}{
		{`{"amount":"10.005"}`, 1001, false},
		{`{"amount":0}`, 0, false},
		{`{"amount":-1}`, 0, true},
		{`{"amount":"abc"}`, 0, true},
		{`{"amount":null}`, 0, true},
		{`amount=`, 0, true},
		{`amount=3.1`, 310, false},
	}
	for _, tc := range cases {
		p := newParser(t, "", tc.body)
		if err := p.Parse(); err != nil {
			t.Fatalf("%s: parse: %v", tc.body, err)
		}
		m, err := p.Money("amount")
		if tc.wantErr {
			if err == nil {
				t.Fatalf("%s: expected error, got %v", tc.body, m)
			}
			continue
		}
		if err != nil || m.Cents != tc.want {
			t.Fatalf("%s: got %d err=%v want %d", tc.body, m.Cents, err, tc.want)
		}
	}
}

func TestParsePeriod(t *testing.T) {
	cases := []struct {
		query   string
		want    viewmodel.Period
		wantErr bool
	}{
		{"", viewmodel.Period{}, false},
		{"month=all&year=all", viewmodel.Period{}, false},
		{"month=3&year=2024", viewmodel.Period{Month: 3, Year: 2024}, false},
		{"year=2023", viewmodel.Period{Year: 2023}, false},
		{"month=13", viewmodel.Period{}, true},
		{"month=march", viewmodel.Period{}, true},
	}
	for _, tc := range cases {
		q, _ := url.ParseQuery(tc.query)
		got, err := ParsePeriod(q)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("%q: expected error", tc.query)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("%q: got %+v err=%v", tc.query, got, err)
		}
	}
}

func TestParseCriteria(t *testing.T) {
	q, _ := url.ParseQuery("category=Food&start=2024-01-01&end=2024-01-31&min=5&max=20.5&q=coffee")
	c, err := ParseCriteria(q, time.UTC)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Category != "Food" || c.Search != "coffee" {
		t.Fatalf("criteria=%+v", c)
	}
	if c.Start == nil || c.Start.String() != "2024-01-01" || c.End == nil || c.End.String() != "2024-01-31" {
		t.Fatalf("dates=%v %v", c.Start, c.End)
	}
	if c.Min == nil || c.Min.Cents != 500 || c.Max == nil || c.Max.Cents != 2050 {
		t.Fatalf("amounts=%v %v", c.Min, c.Max)
	}

	empty, err := ParseCriteria(url.Values{}, time.UTC)
	if err != nil || empty.Active() {
		t.Fatalf("empty criteria active=%v err=%v", empty.Active(), err)
	}

	for _, bad := range []string{"start=yesterday", "min=-3", "max=lots"} {
		q, _ := url.ParseQuery(bad)
		if _, err := ParseCriteria(q, time.UTC); err == nil {
			t.Fatalf("%q: expected error", bad)
		}
	}
}

func TestParseHistoryState(t *testing.T) {
	parse := func(query string) viewmodel.HistoryState {
		t.Helper()
		q, _ := url.ParseQuery(query)
		s, err := ParseHistoryState(q, time.UTC, 20)
		if err != nil {
			t.Fatalf("%q: %v", query, err)
		}
		return s
	}

	s := parse("")
	if s.Field != viewmodel.SortByDate || s.Direction != viewmodel.Desc || s.Page != 1 || s.PageSize != 20 {
		t.Fatalf("default state=%+v", s)
	}

	s = parse("sort=amount&page=3")
	if s.Field != viewmodel.SortByAmount || s.Direction != viewmodel.Asc || s.Page != 3 {
		t.Fatalf("explicit sort=%+v", s)
	}

	s = parse("sort=amount&dir=asc&page=3&toggle=amount")
	if s.Field != viewmodel.SortByAmount || s.Direction != viewmodel.Desc || s.Page != 1 {
		t.Fatalf("toggle same key=%+v", s)
	}

	s = parse("sort=amount&dir=desc&toggle=category")
	if s.Field != viewmodel.SortByCategory || s.Direction != viewmodel.Asc {
		t.Fatalf("toggle new key=%+v", s)
	}

	s = parse("category=Food&sort=amount&page=4&reset=true")
	if s.Criteria.Active() || s.Field != viewmodel.SortByDate || s.Page != 1 || s.PageSize != 20 {
		t.Fatalf("reset=%+v", s)
	}

	for _, bad := range []string{"sort=price", "dir=up", "page=two", "toggle=name"} {
		q, _ := url.ParseQuery(bad)
		if _, err := ParseHistoryState(q, time.UTC, 20); !errors.Is(err, errInvalidParam) {
			t.Fatalf("%q: err=%v", bad, err)
		}
	}
}
