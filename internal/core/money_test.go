package core

import (
	"encoding/json"
	"testing"
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
		{"5000.00", 500000, true},
		{"-1", 0, false},
		{"0", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
		{"12.345", 1235, true},
		{"12.3449", 1234, true},
		{"1.٣", 0, false},
		{"٥", 0, false},
		{"５.00", 0, false},
		{"1.5٣", 0, false},
		{"+5", 0, false},
		{".", 0, false},
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

func TestParseAmountCentsAcceptsZero(t *testing.T) {
	got, err := ParseAmountCents("0")
	if err != nil || got != 0 {
		t.Fatalf("expected 0, got %d (err=%v)", got, err)
	}
	if _, err := ParseAmountCents("-5"); err == nil {
		t.Fatalf("expected error for negative amount")
	}
}

func TestMoneyString(t *testing.T) {
	cases := map[int64]string{
		0:       "0.00",
		5:       "0.05",
		500000:  "5000.00",
		-1250:   "-12.50",
		7500000: "75000.00",
	}
	for cents, want := range cases {
		if got := Cents(cents).String(); got != want {
			t.Errorf("Cents(%d).String() = %q, want %q", cents, got, want)
		}
	}
	if got := Cents(123456).Display("Rs."); got != "Rs. 1234.56" {
		t.Errorf("Display = %q", got)
	}
}

func TestMoneyJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		Amount Money `json:"amount"`
	}{Cents(200000)})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"amount":2000.00}` {
		t.Fatalf("unexpected JSON %s", b)
	}

	inputs := map[string]int64{
		`{"amount":5000}`:      500000,
		`{"amount":"3000.50"}`: 300050,
		`{"amount":12.345}`:    1235,
	}
	for in, want := range inputs {
		var v struct {
			Amount Money `json:"amount"`
		}
		if err := json.Unmarshal([]byte(in), &v); err != nil {
			t.Fatalf("%s: %v", in, err)
		}
		if v.Amount.Cents != want {
			t.Fatalf("%s: got %d want %d", in, v.Amount.Cents, want)
		}
	}

	var v struct {
		Amount Money `json:"amount"`
	}
	if err := json.Unmarshal([]byte(`{"amount":-1}`), &v); err == nil {
		t.Fatalf("expected error for negative amount")
	}
	for _, in := range []string{`{"amount":"5.٥"}`, `{"amount":"٣٠٠٠"}`} {
		v.Amount = Money{}
		if err := json.Unmarshal([]byte(in), &v); err == nil {
			t.Errorf("%s: expected error, got %d cents", in, v.Amount.Cents)
		}
	}
}
