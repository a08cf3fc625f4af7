package credentials

import (
	"strings"
	"testing"
)

func TestGenerateReferralCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		code, err := GenerateReferralCode()
		if err != nil {
			t.Fatalf("GenerateReferralCode() error = %v", err)
		}

		if len(code) != ReferralCodeLength {
			t.Errorf("code %q has length %d, want %d", code, len(code), ReferralCodeLength)
		}
		for _, r := range code {
			if !strings.ContainsRune(referralAlphabet, r) {
				t.Errorf("code %q contains %q outside the alphabet", code, r)
			}
		}

		if seen[code] {
			t.Errorf("duplicate code generated: %s", code)
		}
		seen[code] = true
	}
}

func TestReferralAlphabetIsUnambiguous(t *testing.T) {
	for _, r := range "0O1IL" {
		if strings.ContainsRune(referralAlphabet, r) {
			t.Errorf("alphabet contains ambiguous character %q", r)
		}
	}
}

func TestNormalizeReferralCode(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"ABCD2345", "ABCD2345"},
		{"  abcd2345 ", "ABCD2345"},
		{"AbCd2345\n", "ABCD2345"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeReferralCode(tt.in); got != tt.want {
			t.Errorf("NormalizeReferralCode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
