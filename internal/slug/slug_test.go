package slug

import (
	"regexp"
	"testing"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"ampersand", "Glander Excavating & Sons", "glander-excavating-and-sons"},
		{"city", "Lake City", "lake-city"},
		{"empty", "", ""},
		{"only separators", "  --- !! ", ""},
		{"leading and trailing", "  Red Wing!  ", "red-wing"},
		{"runs collapse", "A  --  B", "a-b"},
		{"digits kept", "Plow 24/7 LLC", "plow-24-7-llc"},
		{"ampersand no spaces", "B&B Snow", "bandb-snow"},
		{"non ascii is separator", "Café Plowing", "caf-plowing"},
		{"apostrophe", "Joe's Snow Removal", "joe-s-snow-removal"},
		{"already slug", "cottage-grove", "cottage-grove"},
		{"uppercase", "HASTINGS", "hastings"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"Glander Excavating & Sons",
		"&&&",
		"---a---b---",
		"Ünïcødé Straße",
		"x_y.z",
		"  trailing  ",
		"İstanbul Plow",
		"\x00\xff raw bytes",
		"lake-city-mn-snow-removal",
	}

	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: %q then %q", in, once, twice)
		}
		if once != "" && !slugPattern.MatchString(once) {
			t.Errorf("Normalize(%q) = %q, does not match slug pattern", in, once)
		}
		if !Valid(once) {
			t.Errorf("Valid(Normalize(%q)) = false", in)
		}
	}
}

func TestValid(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"", true},
		{"lake-city", true},
		{"a", true},
		{"-a", false},
		{"a-", false},
		{"a--b", false},
		{"A-b", false},
		{"a b", false},
	}

	for _, tt := range tests {
		if got := Valid(tt.in); got != tt.want {
			t.Errorf("Valid(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
