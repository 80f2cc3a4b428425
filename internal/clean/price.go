package clean

import (
	"regexp"
	"strconv"
	"strings"
)

// Currency tokens seen in raw tariff price cells: "KSH 1,200", "1,500/=",
// "Kshs. 300", "$40".
var (
	currencyWords  = regexp.MustCompile(`(?i)\b(kshs|ksh|kes|shs|sh)\b\.?`)
	currencySigns  = regexp.MustCompile(`[$€£]`)
	shillingSuffix = regexp.MustCompile(`/[=\-]\s*$`)
)

// ParseRate parses one raw price cell into a float64. The boolean reports
// whether the cell parsed cleanly; callers coerce failures to the default
// rate and record the coercion. A blank cell is not a parse failure, it is
// the zero-filled "no price info" case.
func (c *Cleaner) ParseRate(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return c.opts.DefaultRate, true
	}
	if c.opts.StripCurrency {
		s = currencyWords.ReplaceAllString(s, "")
		s = currencySigns.ReplaceAllString(s, "")
		s = shillingSuffix.ReplaceAllString(s, "")
		s = strings.TrimSpace(s)
	}
	if c.opts.StripThousands {
		s = strings.ReplaceAll(s, ",", "")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return c.opts.DefaultRate, false
	}
	return v, true
}
