package extract

import "testing"

func TestExtract_RoundTrip(t *testing.T) {
	t.Parallel()

	f := Extract("Deal: Alpha Corp Financing, Amount: $1,250,000.00, expires 12/31/2025")

	if f.DealName != "Alpha Corp Financing" {
		t.Errorf("DealName = %q, want %q", f.DealName, "Alpha Corp Financing")
	}
	if f.Amount == nil || *f.Amount != 1250000.00 {
		t.Errorf("Amount = %v, want 1250000.00", f.Amount)
	}
	if f.ExpirationDate != "2025-12-31" {
		t.Errorf("ExpirationDate = %q, want %q", f.ExpirationDate, "2025-12-31")
	}
}

func TestExtract_NoMatches(t *testing.T) {
	t.Parallel()

	f := Extract("hello, nothing structured in here")
	if !f.Empty() {
		t.Errorf("expected empty fields, got %+v", f)
	}
}

func TestExtract_DealName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"deal label", "Deal: Beta Holdings\nmore text", "Beta Holdings"},
		{"re label", "Re: Gamma-2 Refinance", "Gamma-2 Refinance"},
		{"stops at punctuation", "Deal: Delta Fund, please advise", "Delta Fund"},
		{"stops at line break", "Deal: Epsilon\nAmount: $5", "Epsilon"},
		{"case insensitive label", "deal: Zeta Partners", "Zeta Partners"},
		{"absent", "no labels here", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Extract(tt.in).DealName; got != tt.want {
				t.Errorf("DealName = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtract_Amount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want float64
		none bool
	}{
		{"dollar sign", "wire $1,234,567.89 today", 1234567.89, false},
		{"dollar with space", "wire $ 500 today", 500, false},
		{"currency suffix", "send 1234567.89 USD now", 1234567.89, false},
		{"eur suffix", "send 250.50 EUR now", 250.50, false},
		{"no cents", "pay $42", 42, false},
		{"first match wins", "fee of $100 then $999", 100, false},
		{"bare number ignored", "call me at 5551234", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Extract(tt.in).Amount
			if tt.none {
				if got != nil {
					t.Errorf("Amount = %v, want unset", *got)
				}
				return
			}
			if got == nil {
				t.Fatalf("Amount unset, want %v", tt.want)
			}
			if *got != tt.want {
				t.Errorf("Amount = %v, want %v", *got, tt.want)
			}
		})
	}
}

func TestExtract_ExpirationDate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"iso", "valid until 2025-12-31", "2025-12-31"},
		{"slash month first", "expires 12/31/2025", "2025-12-31"},
		{"slash day first resolvable", "expires 31/12/2025", "2025-12-31"},
		{"slash equal parts", "expires 3/3/2026", "2026-03-03"},
		{"slash ambiguous left unset", "expires 04/05/2025", ""},
		{"month name", "expires December 31, 2025", "2025-12-31"},
		{"month name no comma", "due January 5 2026", "2026-01-05"},
		{"invalid day left unset", "expires 2/30/2025", ""},
		{"absent", "no dates here", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Extract(tt.in).ExpirationDate; got != tt.want {
				t.Errorf("ExpirationDate = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtract_PartialResult(t *testing.T) {
	t.Parallel()

	f := Extract("Deal: Omega\nno amount, no date, expires someday")
	if f.DealName != "Omega" {
		t.Errorf("DealName = %q, want %q", f.DealName, "Omega")
	}
	if f.Amount != nil || f.ExpirationDate != "" {
		t.Errorf("expected only deal name, got %+v", f)
	}
}
