// mkfixture generates a synthetic hospital tariff fixture with seeded
// anomalies: placeholder non-EA rates, inverted tiers, a dropped-digit
// surgery price, raw currency text and a malformed row. Output goes to CSV
// and Parquet so both input paths can be exercised against the same data.
// Usage: go run ./cmd/mkfixture --out testdata/tariff-sample
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"strconv"

	goparquet "github.com/parquet-go/parquet-go"

	"github.com/toonshi/pharmiliar/internal/tabular"
)

type fixtureRow struct {
	code, desc, normal, special, nonEA, gl, variant string
}

func main() {
	out := flag.String("out", "testdata/tariff-sample", "output path prefix (.csv and .parquet appended)")
	flag.Parse()

	rows := buildRows()

	if err := writeCSV(*out+".csv", rows); err != nil {
		fmt.Fprintf(os.Stderr, "write csv: %v\n", err)
		os.Exit(1)
	}
	if err := writeParquet(*out+".parquet", rows); err != nil {
		fmt.Fprintf(os.Stderr, "write parquet: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("wrote %d rows to %s.{csv,parquet}\n", len(rows), *out)
}

func buildRows() []fixtureRow {
	rng := rand.New(rand.NewSource(42))
	var rows []fixtureRow

	jitter := func(base float64) string {
		v := base * (0.8 + 0.4*rng.Float64())
		return strconv.FormatFloat(float64(int(v)), 'f', 2, 64)
	}

	// Radiology block: ~15% carry the 5.00 placeholder non-EA rate.
	for i := 0; i < 40; i++ {
		nonEA := jitter(450)
		if i%7 == 0 {
			nonEA = "5.00"
		}
		rows = append(rows, fixtureRow{
			code:   fmt.Sprintf("XR%04d", 1000+i),
			desc:   fmt.Sprintf("X-RAY EXAMINATION VIEW %d", i+1),
			normal: jitter(1200), special: jitter(1600), nonEA: nonEA,
			gl: "4100",
		})
	}

	// Laboratory block with raw currency text.
	for i := 0; i < 30; i++ {
		rows = append(rows, fixtureRow{
			code:   fmt.Sprintf("LAB%04d", 2000+i),
			desc:   fmt.Sprintf("BLOOD TEST PANEL %d", i+1),
			normal: "KSH " + jitter(400), special: jitter(550), nonEA: jitter(300),
			gl: "4200",
		})
	}

	// Surgery block: one dropped-digit price, one inverted tier pair.
	for i := 0; i < 20; i++ {
		normal, special := jitter(50000), jitter(65000)
		switch i {
		case 3:
			normal = "500.00" // dropped digit
		case 7:
			normal, special = special, normal // inverted tiers
		}
		rows = append(rows, fixtureRow{
			code:   fmt.Sprintf("SUR%04d-K", 3000+i),
			desc:   fmt.Sprintf("GENERAL SURGERY PROCEDURE %d", i+1),
			normal: normal, special: special, nonEA: jitter(70000),
			gl: "4300", variant: "K",
		})
	}

	// Unparsable price and a malformed row.
	rows = append(rows,
		fixtureRow{code: "PH0001", desc: "DRUG DISPENSING FEE", normal: "N/A", special: "150", nonEA: "100", gl: "4400"},
		fixtureRow{code: "BAD001", desc: "", normal: "", special: "", nonEA: "", gl: ""},
	)
	return rows
}

func writeCSV(path string, rows []fixtureRow) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"code", "description", "normal_rate", "special_rate", "non_ea_rate", "gl_account", "variant_type"}); err != nil {
		return err
	}
	for _, r := range rows {
		if err := w.Write([]string{r.code, r.desc, r.normal, r.special, r.nonEA, r.gl, r.variant}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeParquet(path string, rows []fixtureRow) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := goparquet.NewGenericWriter[tabular.TariffParquetRow](f)
	for _, r := range rows {
		prow := tabular.TariffParquetRow{
			Code:        optStr(r.code),
			Description: optStr(r.desc),
			NormalRate:  optRate(r.normal),
			SpecialRate: optRate(r.special),
			NonEARate:   optRate(r.nonEA),
			GLAccount:   optStr(r.gl),
			VariantType: optStr(r.variant),
		}
		if _, err := w.Write([]tabular.TariffParquetRow{prow}); err != nil {
			return err
		}
	}
	return w.Close()
}

func optStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// optRate parses only cleanly numeric fixture prices; currency-text and
// unparsable cells stay nil in the Parquet variant since its rate columns
// are typed.
func optRate(s string) *float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
