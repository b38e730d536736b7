package smtp

import (
	"testing"
)

func TestParseAddress(t *testing.T) {
	valid := []struct {
		in   string
		want Address
	}{
		{"a@b.example", Address{"a", "b.example"}},
		{"<a@b.example>", Address{"a", "b.example"}},
		{" < a@b.example > ", Address{"a", "b.example"}},
		{"first.last@sub.b.example", Address{"first.last", "sub.b.example"}},
	}
	for _, tt := range valid {
		a, err := ParseAddress(tt.in)
		if err != nil {
			t.Errorf("ParseAddress(%q): unexpected error %v", tt.in, err)
			continue
		}
		if a != tt.want {
			t.Errorf("ParseAddress(%q): got %v, expected %v", tt.in, a, tt.want)
		}
	}

	invalid := []string{
		"",
		"<>",
		"a",
		"a@",
		"@b.example",
		"a@b@c.example",
		"a b@c.example",
		"a@nodot",
		"a@.example",
		"a@example.",
		"a@b..example",
		"a@-b.example",
		"a@b.-c.example",
		"a@b.x",
	}
	for _, in := range invalid {
		if a, err := ParseAddress(in); err == nil {
			t.Errorf("ParseAddress(%q): got %v, expected error", in, a)
		}
	}
}
