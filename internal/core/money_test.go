package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{"-1", 0, false},
		{"0", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestParseMoneyJSON(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{`100`, 10000, true},
		{`"100.50"`, 10050, true},
		{`12.345`, 1235, true},
		{`0`, 0, true},
		{`"0.00"`, 0, true},
		{`-5`, 0, false},
		{`"abc"`, 0, false},
		{`null`, 0, false},
		{``, 0, false},
	}
	for _, tc := range cases {
		got, err := ParseMoneyJSON([]byte(tc.in))
		if tc.ok {
			if err != nil || got.Cents != tc.out {
				t.Fatalf("%s expected %d, got %d (err=%v)", tc.in, tc.out, got.Cents, err)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("%s expected ErrInvalidAmount, got %v", tc.in, err)
		}
	}
}

func TestMoneyFormatting(t *testing.T) {
	m := Money{Cents: 35000}
	if m.String() != "350.00" {
		t.Fatalf("unexpected string %q", m.String())
	}
	b, _ := Money{Cents: 1205}.MarshalJSON()
	if string(b) != "12.05" {
		t.Fatalf("unexpected json %s", b)
	}
	if !m.Decimal().Equal(decimal.NewFromInt(350)) {
		t.Fatalf("unexpected decimal %s", m.Decimal())
	}
	var back Money
	if err := back.UnmarshalJSON([]byte(`"12.05"`)); err != nil || back.Cents != 1205 {
		t.Fatalf("unmarshal: %v %d", err, back.Cents)
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Money{Cents: 0}).Validate(); err == nil {
		t.Fatalf("expected error for zero")
	}
}

func TestParseSignedMoneyJSON(t *testing.T) {
	got, err := ParseSignedMoneyJSON([]byte(`"-42.10"`))
	if err != nil || got.Cents != -4210 {
		t.Fatalf("expected -4210, got %d (err=%v)", got.Cents, err)
	}
	if _, err := ParseSignedMoneyJSON([]byte(`""`)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for empty string, got %v", err)
	}
}
