package service

import (
	"strings"
	"testing"
)

func TestGenerateCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code, err := GenerateCode()
		if err != nil {
			t.Fatalf("GenerateCode: %v", err)
		}
		if len(code) != codeLength {
			t.Fatalf("len = %d, want %d", len(code), codeLength)
		}
		for _, r := range code {
			if !strings.ContainsRune(codeAlphabet, r) {
				t.Fatalf("code %q contains %q outside alphabet", code, r)
			}
		}
		if seen[code] {
			t.Fatalf("duplicate code %q after %d draws", code, i)
		}
		seen[code] = true
	}
}

func TestCodeAlphabetExcludesLookalikes(t *testing.T) {
	for _, r := range "0O1I" {
		if strings.ContainsRune(codeAlphabet, r) {
			t.Fatalf("alphabet contains lookalike %q", r)
		}
	}
}
