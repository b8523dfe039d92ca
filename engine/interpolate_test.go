package engine

import (
	"strings"
	"testing"
	"time"
)

func TestInterpolate(t *testing.T) {
	vars := map[string]string{
		"nombre": "Ana",
		"tipo":   "virtual",
		"empty":  "",
	}

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no placeholders", "hola", "hola"},
		{"single", "Hola {{nombre}}", "Hola Ana"},
		{"repeated", "{{nombre}} y {{nombre}}", "Ana y Ana"},
		{"multiple", "{{nombre}}: {{tipo}}", "Ana: virtual"},
		{"whitespace inside braces", "Hola {{ nombre }}", "Hola Ana"},
		{"unresolved left verbatim", "Hola {{desconocido}}", "Hola {{desconocido}}"},
		{"empty value resolves", "[{{empty}}]", "[]"},
		{"empty input", "", ""},
		{"malformed braces ignored", "{{nombre} {nombre}}", "{{nombre} {nombre}}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Interpolate(tt.in, vars)
			if got != tt.want {
				t.Errorf("Interpolate(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestInterpolateIdempotent(t *testing.T) {
	vars := map[string]string{"nombre": "Ana"}
	once := Interpolate("Hola {{nombre}}, falta {{otro}}", vars)
	twice := Interpolate(once, vars)
	if once != twice {
		t.Errorf("second pass changed output: %q != %q", once, twice)
	}
}

func TestInterpolateSystemVariables(t *testing.T) {
	now := time.Now()

	got := Interpolate("{{current_date}}", nil)
	if got != now.Format("2006-01-02") {
		t.Errorf("current_date = %q, want %q", got, now.Format("2006-01-02"))
	}

	got = Interpolate("{{timestamp}}", nil)
	if _, err := time.Parse(time.RFC3339, got); err != nil {
		t.Errorf("timestamp %q is not RFC3339: %v", got, err)
	}

	got = Interpolate("{{current_time}}", nil)
	if !strings.Contains(got, ":") || len(got) != 5 {
		t.Errorf("current_time = %q, want HH:MM", got)
	}
}

func TestInterpolateSystemWinsOverVars(t *testing.T) {
	vars := map[string]string{"current_date": "overridden"}
	got := Interpolate("{{current_date}}", vars)
	if got == "overridden" {
		t.Error("conversation variable shadowed a reserved system variable")
	}
}
