package clean

import (
	"regexp"
	"strings"
)

var multiSpace = regexp.MustCompile(`\s+`)

// CanonicalText trims, collapses internal whitespace, and uppercases free
// text so downstream keyword matching and de-duplication see one form.
func CanonicalText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	s = multiSpace.ReplaceAllString(s, " ")
	return strings.ToUpper(s)
}

// VariantFromCode extracts the tariff variant discriminator encoded as a
// service code suffix: -K (local), -NK (non-local), -P (private).
// Returns nil when the code carries no variant suffix.
func VariantFromCode(code string) *string {
	for _, v := range []string{"NK", "K", "P"} {
		if strings.HasSuffix(code, "-"+v) {
			variant := v
			return &variant
		}
	}
	return nil
}
