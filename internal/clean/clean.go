// Package clean normalizes raw tariff rows into typed ServiceRecords.
// Cleaning is deliberately best-effort: unparsable prices coerce to the
// configured default instead of failing the row, and every coercion is
// tracked because coerced values feed the placeholder-rate detector later.
package clean

import (
	"errors"
	"fmt"
	"strings"

	"github.com/toonshi/pharmiliar/internal/config"
	"github.com/toonshi/pharmiliar/internal/model"
	"github.com/toonshi/pharmiliar/internal/tabular"
)

// ErrEmptyRow marks a row with no content in any watched column. Such rows
// are filler in real tariff spreadsheets and are dropped, not rejected.
var ErrEmptyRow = errors.New("row is effectively empty")

// RowError is a malformed row: a required column is missing. The row is
// rejected and reported; the run continues.
type RowError struct {
	RowNumber int64
	Reason    string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.RowNumber, e.Reason)
}

// Coercion records one rate cell whose raw text failed to parse and was
// replaced by the default rate.
type Coercion struct {
	RowNumber int64
	Tier      model.RateTier
	Raw       string
}

// Cleaner turns raw tabular rows into ServiceRecords.
type Cleaner struct {
	opts config.CleaningOptions
}

// New returns a Cleaner with the given options.
func New(opts config.CleaningOptions) *Cleaner {
	return &Cleaner{opts: opts}
}

// CleanRow produces a ServiceRecord from one raw row.
//
// Outcomes:
//   - (record, coercions, nil): usable row, possibly with coerced rates
//   - (nil, nil, ErrEmptyRow): filler row, drop silently
//   - (nil, nil, *RowError): malformed row, reject and report
//
// A blank code is synthesized from the row content rather than rejected, so
// price-only lines under a department header still get stable identity.
func (c *Cleaner) CleanRow(row *tabular.Row) (*model.ServiceRecord, []Coercion, error) {
	code := strings.TrimSpace(row.Cell(tabular.ColCode))
	desc := CanonicalText(row.Cell(tabular.ColDescription))

	rawRates := [3]string{
		row.Cell(tabular.ColNormalRate),
		row.Cell(tabular.ColSpecialRate),
		row.Cell(tabular.ColNonEARate),
	}
	ratesBlank := true
	for _, raw := range rawRates {
		if strings.TrimSpace(raw) != "" {
			ratesBlank = false
			break
		}
	}

	if code == "" && desc == "" && ratesBlank {
		return nil, nil, ErrEmptyRow
	}
	if desc == "" {
		reason := "missing description"
		if ratesBlank {
			reason = "missing description and all rate columns"
		}
		return nil, nil, &RowError{RowNumber: row.Number, Reason: reason}
	}

	rec := &model.ServiceRecord{Description: desc}

	var coercions []Coercion
	rates := [3]float64{}
	for i, tier := range model.AllRateTiers {
		v, ok := c.ParseRate(rawRates[i])
		rates[i] = v
		if !ok {
			coercions = append(coercions, Coercion{
				RowNumber: row.Number,
				Tier:      tier,
				Raw:       strings.TrimSpace(rawRates[i]),
			})
			rec.CoercedTiers = append(rec.CoercedTiers, tier)
		}
	}
	rec.NormalRate, rec.SpecialRate, rec.NonEARate = rates[0], rates[1], rates[2]

	if code == "" {
		code = SynthesizeCode(row.Number, desc, rawRates[0], rawRates[1], rawRates[2])
	}
	rec.Code = code

	if gl := strings.TrimSpace(row.Cell(tabular.ColGLAccount)); gl != "" {
		rec.GLAccount = &gl
	}
	if v := strings.TrimSpace(row.Cell(tabular.ColVariantType)); v != "" {
		variant := strings.ToUpper(v)
		rec.VariantType = &variant
	} else {
		rec.VariantType = VariantFromCode(code)
	}

	return rec, coercions, nil
}
