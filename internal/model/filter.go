package model

import (
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Allowed generation filter values. The first entry of each set is the default.
var (
	Countries    = []string{"Ecuador", "México", "Colombia", "Argentina", "España"}
	Sectors      = []string{"Salud", "Educación", "Automotriz", "Alimentos", "Tecnología"}
	CompanyTypes = []string{"Pública", "Privada", "ONG", "Startup"}
	CompanySizes = []string{"Microempresa", "Pequeña", "Mediana", "Grande"}
)

// GenerationFilter narrows the kind of case study requested from the
// generation service. It is an input only and never persisted.
type GenerationFilter struct {
	Country     string `json:"pais"`
	Sector      string `json:"sector"`
	CompanyType string `json:"tipo_empresa"`
	CompanySize string `json:"tamano_empresa"`
}

// DefaultFilter returns the filter preselected by the generation form.
func DefaultFilter() GenerationFilter {
	return GenerationFilter{
		Country:     Countries[0],
		Sector:      Sectors[0],
		CompanyType: CompanyTypes[0],
		CompanySize: CompanySizes[0],
	}
}

// ParseFilter resolves user input against the allowed sets. Matching ignores
// case and diacritics, so "publica" selects "Pública". Blank inputs take the
// default value.
func ParseFilter(country, sector, companyType, companySize string) (GenerationFilter, error) {
	var f GenerationFilter
	var err error
	if f.Country, err = pick("country", country, Countries); err != nil {
		return f, err
	}
	if f.Sector, err = pick("sector", sector, Sectors); err != nil {
		return f, err
	}
	if f.CompanyType, err = pick("company type", companyType, CompanyTypes); err != nil {
		return f, err
	}
	if f.CompanySize, err = pick("company size", companySize, CompanySizes); err != nil {
		return f, err
	}
	return f, nil
}

// Validate checks that every field holds one of the allowed values verbatim.
func (f GenerationFilter) Validate() error {
	checks := []struct {
		name, value string
		allowed     []string
	}{
		{"country", f.Country, Countries},
		{"sector", f.Sector, Sectors},
		{"company type", f.CompanyType, CompanyTypes},
		{"company size", f.CompanySize, CompanySizes},
	}
	for _, c := range checks {
		if !contains(c.allowed, c.value) {
			return eris.Errorf("model: invalid %s %q (allowed: %s)", c.name, c.value, strings.Join(c.allowed, ", "))
		}
	}
	return nil
}

func pick(name, input string, allowed []string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return allowed[0], nil
	}
	key := Fold(input)
	for _, v := range allowed {
		if Fold(v) == key {
			return v, nil
		}
	}
	return "", eris.Errorf("model: invalid %s %q (allowed: %s)", name, input, strings.Join(allowed, ", "))
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}

// Fold lowercases s and strips combining marks.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}
