package forms

import "testing"

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
		ok   bool
	}{
		{name: "local ten digits", raw: "0991234567", want: "+380 991234567", ok: true},
		{name: "full with plus", raw: "+380991234567", want: "+380 991234567", ok: true},
		{name: "full without plus", raw: "380991234567", want: "+380 991234567", ok: true},
		{name: "spaces and dashes", raw: "099 123-45-67", want: "+380 991234567", ok: true},
		{name: "parens", raw: "(099) 123 45 67", want: "+380 991234567", ok: true},
		{name: "nine digits bare", raw: "991234567", want: "+380 991234567", ok: true},
		{name: "too short", raw: "12345678", ok: false},
		{name: "too long", raw: "+3809912345678901", ok: false},
		{name: "letters inside", raw: "099abc4567", ok: false},
		{name: "empty", raw: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizePhone(tt.raw)
			if ok != tt.ok {
				t.Fatalf("NormalizePhone(%q) ok = %v, want %v", tt.raw, ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("NormalizePhone(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNormalizeCard(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
		ok   bool
	}{
		{name: "sixteen digits", raw: "4441114467891234", want: "4441114467891234", ok: true},
		{name: "grouped by spaces", raw: "4441 1144 6789 1234", want: "4441114467891234", ok: true},
		{name: "grouped by dashes", raw: "4441-1144-6789-1234", want: "4441114467891234", ok: true},
		{name: "iban-length nineteen", raw: "4441114467891234567", want: "4441114467891234567", ok: true},
		{name: "twelve digits minimum", raw: "444111446789", want: "444111446789", ok: true},
		{name: "eleven digits", raw: "44411144678", ok: false},
		{name: "twenty digits", raw: "44411144678912345678", ok: false},
		{name: "letters", raw: "4441 abcd 6789 1234", ok: false},
		{name: "empty", raw: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeCard(tt.raw)
			if ok != tt.ok {
				t.Fatalf("NormalizeCard(%q) ok = %v, want %v", tt.raw, ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("NormalizeCard(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestBankKey(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain word lowered", in: "ПУМБ", want: "пумб"},
		{name: "already lower", in: "пумб", want: "пумб"},
		{name: "guillemets", in: "АО «ПУМБ» Украина", want: "пумб"},
		{name: "straight quotes", in: `Банк "Мопо" онлайн`, want: "мопо"},
		{name: "hyphenated", in: "Приват-24", want: "приват"},
		{name: "trailing digits cut", in: "Моно09", want: "моно"},
		{name: "spaces trimmed", in: "  Sense  ", want: "sense"},
		{name: "empty", in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BankKey(tt.in); got != tt.want {
				t.Errorf("BankKey(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSameBank(t *testing.T) {
	tests := []struct {
		name  string
		aID   int64
		aName string
		bID   int64
		bName string
		want  bool
	}{
		{name: "both ids equal", aID: 3, aName: "ПУМБ", bID: 3, bName: "другое имя", want: true},
		{name: "both ids differ", aID: 3, aName: "ПУМБ", bID: 4, bName: "ПУМБ", want: false},
		{name: "id missing falls back to key", aID: 0, aName: "ПУМБ", bID: 5, bName: "пумб", want: true},
		{name: "keys differ", aID: 0, aName: "ПУМБ", bID: 0, bName: "Моно", want: false},
		{name: "quoted vs plain", aID: 0, aName: "АО «Мопо»", bID: 0, bName: "мопо", want: true},
		{name: "empty names never match", aID: 0, aName: "", bID: 0, bName: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SameBank(tt.aID, tt.aName, tt.bID, tt.bName); got != tt.want {
				t.Errorf("SameBank(%d, %q, %d, %q) = %v, want %v",
					tt.aID, tt.aName, tt.bID, tt.bName, got, tt.want)
			}
		})
	}
}
