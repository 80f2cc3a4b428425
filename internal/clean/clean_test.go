package clean

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toonshi/pharmiliar/internal/config"
	"github.com/toonshi/pharmiliar/internal/model"
	"github.com/toonshi/pharmiliar/internal/tabular"
)

func testCleaner() *Cleaner {
	return New(config.DefaultRules().Cleaning)
}

func row(num int64, cells map[string]string) *tabular.Row {
	return &tabular.Row{Number: num, Cells: cells}
}

func TestCleanRow_TypicalRow(t *testing.T) {
	rec, coercions, err := testCleaner().CleanRow(row(2, map[string]string{
		tabular.ColCode:        "X1",
		tabular.ColDescription: "CHEST X-RAY",
		tabular.ColNormalRate:  "1,200.00",
		tabular.ColSpecialRate: "1,500",
		tabular.ColNonEARate:   "5",
	}))
	require.NoError(t, err)
	require.Empty(t, coercions)

	assert.Equal(t, "X1", rec.Code)
	assert.Equal(t, "CHEST X-RAY", rec.Description)
	assert.Equal(t, 1200.0, rec.NormalRate)
	assert.Equal(t, 1500.0, rec.SpecialRate)
	assert.Equal(t, 5.0, rec.NonEARate)
	assert.Empty(t, rec.CoercedTiers)
}

func TestCleanRow_CanonicalizesDescription(t *testing.T) {
	rec, _, err := testCleaner().CleanRow(row(2, map[string]string{
		tabular.ColCode:        "X1",
		tabular.ColDescription: "  chest   x-ray \t ",
		tabular.ColNormalRate:  "100",
	}))
	require.NoError(t, err)
	assert.Equal(t, "CHEST X-RAY", rec.Description)
}

func TestCleanRow_EmptyRowDropped(t *testing.T) {
	_, _, err := testCleaner().CleanRow(row(5, map[string]string{
		tabular.ColCode:        "",
		tabular.ColDescription: "   ",
		tabular.ColNormalRate:  "",
	}))
	assert.ErrorIs(t, err, ErrEmptyRow)
}

func TestCleanRow_MissingDescriptionRejected(t *testing.T) {
	_, _, err := testCleaner().CleanRow(row(7, map[string]string{
		tabular.ColCode:       "X9",
		tabular.ColNormalRate: "100",
	}))
	var rowErr *RowError
	require.True(t, errors.As(err, &rowErr))
	assert.Equal(t, int64(7), rowErr.RowNumber)
	assert.Contains(t, rowErr.Reason, "missing description")
}

func TestCleanRow_CoercesUnparsableRate(t *testing.T) {
	rec, coercions, err := testCleaner().CleanRow(row(3, map[string]string{
		tabular.ColCode:        "SUR01",
		tabular.ColDescription: "HERNIA REPAIR SURGERY",
		tabular.ColNormalRate:  "N/A",
		tabular.ColSpecialRate: "40000",
		tabular.ColNonEARate:   "45000",
	}))
	require.NoError(t, err)

	assert.Equal(t, 0.0, rec.NormalRate)
	assert.Equal(t, 40000.0, rec.SpecialRate)

	require.Len(t, coercions, 1)
	assert.Equal(t, model.TierNormal, coercions[0].Tier)
	assert.Equal(t, "N/A", coercions[0].Raw)
	assert.True(t, rec.Coerced(model.TierNormal))
	assert.False(t, rec.Coerced(model.TierSpecial))
}

func TestCleanRow_BlankRateIsNotCoercion(t *testing.T) {
	rec, coercions, err := testCleaner().CleanRow(row(4, map[string]string{
		tabular.ColCode:        "LAB01",
		tabular.ColDescription: "BLOOD TEST",
		tabular.ColNormalRate:  "450",
	}))
	require.NoError(t, err)
	assert.Empty(t, coercions)
	assert.Equal(t, 0.0, rec.SpecialRate)
	assert.Equal(t, 0.0, rec.NonEARate)
}

func TestCleanRow_SynthesizesBlankCode(t *testing.T) {
	cells := map[string]string{
		tabular.ColDescription: "DENTAL CHECKUP",
		tabular.ColNormalRate:  "600",
	}
	rec1, _, err := testCleaner().CleanRow(row(9, cells))
	require.NoError(t, err)
	rec2, _, err := testCleaner().CleanRow(row(9, cells))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(rec1.Code, "GEN-"))
	assert.Equal(t, rec1.Code, rec2.Code, "synthesized code must be stable for identical content")

	rec3, _, err := testCleaner().CleanRow(row(10, cells))
	require.NoError(t, err)
	assert.NotEqual(t, rec1.Code, rec3.Code, "different row number must synthesize a different code")
}

func TestCleanRow_VariantFromCodeSuffix(t *testing.T) {
	rec, _, err := testCleaner().CleanRow(row(2, map[string]string{
		tabular.ColCode:        "SUR100-NK",
		tabular.ColDescription: "APPENDECTOMY",
		tabular.ColNormalRate:  "45000",
	}))
	require.NoError(t, err)
	require.NotNil(t, rec.VariantType)
	assert.Equal(t, "NK", *rec.VariantType)
}

func TestCleanRow_ExplicitVariantColumnWins(t *testing.T) {
	rec, _, err := testCleaner().CleanRow(row(2, map[string]string{
		tabular.ColCode:        "SUR100-NK",
		tabular.ColDescription: "APPENDECTOMY",
		tabular.ColNormalRate:  "45000",
		tabular.ColVariantType: "p",
	}))
	require.NoError(t, err)
	require.NotNil(t, rec.VariantType)
	assert.Equal(t, "P", *rec.VariantType)
}

func TestParseRate(t *testing.T) {
	cleaner := testCleaner()
	tests := []struct {
		raw    string
		want   float64
		parsed bool
	}{
		{"1200", 1200, true},
		{"1,200.00", 1200, true},
		{"1,234,567.89", 1234567.89, true},
		{"KSH 450", 450, true},
		{"Kshs. 300", 300, true},
		{"kes 1,000", 1000, true},
		{"1,500/=", 1500, true},
		{"$40", 40, true},
		{"  750  ", 750, true},
		{"", 0, true}, // blank means no price info, not a failure
		{"N/A", 0, false},
		{"FREE", 0, false},
		{"-100", 0, false},
		{"12.3.4", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := cleaner.ParseRate(tt.raw)
			assert.Equal(t, tt.want, got, "value for %q", tt.raw)
			assert.Equal(t, tt.parsed, ok, "parsed flag for %q", tt.raw)
		})
	}
}

func TestVariantFromCode(t *testing.T) {
	tests := []struct {
		code string
		want string // "" means nil
	}{
		{"XR100-K", "K"},
		{"XR100-NK", "NK"},
		{"XR100-P", "P"},
		{"XR100", ""},
		{"XRK", ""},
		{"GEN-ABCDEF", ""},
	}
	for _, tt := range tests {
		got := VariantFromCode(tt.code)
		if tt.want == "" {
			assert.Nil(t, got, "code %q", tt.code)
			continue
		}
		require.NotNil(t, got, "code %q", tt.code)
		assert.Equal(t, tt.want, *got, "code %q", tt.code)
	}
}
