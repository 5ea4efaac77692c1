package security

import (
	"strings"
	"testing"
	"unicode"
)

func TestRandomString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		length   int
		alphabet string
		wantErr  bool
	}{
		{name: "negative length", length: -1, alphabet: "abc", wantErr: true},
		{name: "empty alphabet", length: 4, alphabet: "", wantErr: true},
		{name: "zero length", length: 0, alphabet: "abc"},
		{name: "regular", length: 32, alphabet: "xyz"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			value, err := RandomString(tc.length, tc.alphabet)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("RandomString returned error: %v", err)
			}
			if len(value) != tc.length {
				t.Fatalf("len = %d, want %d", len(value), tc.length)
			}
			for _, char := range value {
				if !strings.ContainsRune(tc.alphabet, char) {
					t.Fatalf("value %q contains %q outside alphabet", value, char)
				}
			}
		})
	}
}

func TestTemporaryPassword(t *testing.T) {
	t.Parallel()

	for _, length := range []int{2, 8, 24} {
		password, err := TemporaryPassword(length)
		if err != nil {
			t.Fatalf("TemporaryPassword(%d) returned error: %v", length, err)
		}
		want := length
		if want < minTemporaryPasswordLength {
			want = minTemporaryPasswordLength
		}
		if len(password) != want {
			t.Fatalf("TemporaryPassword(%d) len = %d, want %d", length, len(password), want)
		}

		var upper, lower, digit bool
		for _, char := range password {
			if !strings.ContainsRune(TemporaryPasswordAlphabet, char) {
				t.Fatalf("password %q contains %q outside alphabet", password, char)
			}
			upper = upper || unicode.IsUpper(char)
			lower = lower || unicode.IsLower(char)
			digit = digit || unicode.IsDigit(char)
		}
		if !upper || !lower || !digit {
			t.Fatalf("password %q misses a character class", password)
		}
	}
}
