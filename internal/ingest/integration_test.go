package ingest_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/toonshi/pharmiliar/internal/anomaly"
	"github.com/toonshi/pharmiliar/internal/config"
	"github.com/toonshi/pharmiliar/internal/ingest"
	"github.com/toonshi/pharmiliar/internal/logging"
	"github.com/toonshi/pharmiliar/internal/model"
	"github.com/toonshi/pharmiliar/internal/store"
)

const (
	testPort     = 15433
	testDB       = "tarifftest"
	testUser     = "postgres"
	testPassword = "postgres"
)

var (
	testDSN string
	pg      *embeddedpostgres.EmbeddedPostgres
)

// fixtureCSV exercises every row outcome: clean rows, thousands separators,
// currency text, a coerced price, a synthesized code, a duplicate code, an
// empty filler row and a malformed row.
const fixtureCSV = `code,description,normal_rate,special_rate,non_ea_rate,gl_account,variant_type
XR001,CHEST X-RAY,"1,200.00","1,500",5.00,4100,
XR002,SKULL X-RAY,800,900,5.00,4100,
XR003,ABDOMINAL ULTRASOUND,1500,1800,700,4100,
LAB001,FULL BLOOD COUNT TEST,KSH 450,500,300,4200,
SUR001-K,APPENDECTOMY SURGERY,45000,52000,60000,4300,
SUR002,HERNIA REPAIR SURGERY,N/A,40000,45000,4300,
,DENTAL CHECKUP VISIT,600,700,400,4400,
XR001,CHEST X-RAY REPEAT,1300,1600,5.00,4100,
,,,,,,
BAD01,,100,,,,
`

// Expected outcomes for fixtureCSV.
const (
	fixtureRowsRead  = 10
	fixtureDropped   = 1 // the all-blank filler row
	fixtureRejected  = 1 // BAD01 has no description
	fixtureStaged    = 8
	fixtureCoerced   = 1 // SUR002 normal_rate "N/A"
	fixtureUpserted  = 7 // XR001 appears twice, last occurrence wins
	fixtureRadiology = 3
)

func TestMain(m *testing.M) {
	testDSN = fmt.Sprintf("postgresql://%s:%s@localhost:%d/%s?sslmode=disable",
		testUser, testPassword, testPort, testDB)

	pg = embeddedpostgres.NewDatabase(
		embeddedpostgres.DefaultConfig().
			Port(uint32(testPort)).
			Database(testDB).
			Username(testUser).
			Password(testPassword).
			Version(embeddedpostgres.V16).
			StartTimeout(30 * time.Second),
	)

	if err := pg.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start embedded postgres: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()

	if err := pg.Stop(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to stop embedded postgres: %v\n", err)
	}

	os.Exit(code)
}

// setupDB connects, resets all schemas and applies migrations.
func setupDB(t *testing.T) (*store.Store, *pgxpool.Pool) {
	t.Helper()
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, testDSN)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}

	for _, schema := range []string{"ingest", "tariff", "analysis"} {
		if _, err := pool.Exec(ctx, fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", schema)); err != nil {
			t.Fatalf("drop schema %s: %v", schema, err)
		}
	}

	st := store.NewWithPool(pool)
	log := logging.Setup("text")
	if err := st.ApplyMigrations(ctx, log); err != nil {
		pool.Close()
		t.Fatalf("migrations: %v", err)
	}

	t.Cleanup(func() { pool.Close() })
	return st, pool
}

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func runIngest(t *testing.T, st *store.Store, cfg *config.Config) *model.IngestSummary {
	t.Helper()
	log := logging.Setup("text")
	summary, err := ingest.Run(context.Background(), st, log, cfg, config.DefaultRules())
	if err != nil {
		t.Fatalf("ingest.Run: %v", err)
	}
	return summary
}

func TestEndToEnd_CSVIngest(t *testing.T) {
	st, pool := setupDB(t)
	ctx := context.Background()
	path := writeFixture(t, "tariff.csv", fixtureCSV)

	summary := runIngest(t, st, &config.Config{
		DSN:         testDSN,
		FilePath:    path,
		LogFormat:   "text",
		KeepStaging: true,
	})

	t.Run("summary_metrics", func(t *testing.T) {
		if summary.RowsRead != fixtureRowsRead {
			t.Errorf("RowsRead: got %d, want %d", summary.RowsRead, fixtureRowsRead)
		}
		if summary.RowsDropped != fixtureDropped {
			t.Errorf("RowsDropped: got %d, want %d", summary.RowsDropped, fixtureDropped)
		}
		if summary.RowsRejected != fixtureRejected {
			t.Errorf("RowsRejected: got %d, want %d", summary.RowsRejected, fixtureRejected)
		}
		if summary.RowsStaged != fixtureStaged {
			t.Errorf("RowsStaged: got %d, want %d", summary.RowsStaged, fixtureStaged)
		}
		if summary.RowsCoerced != fixtureCoerced {
			t.Errorf("RowsCoerced: got %d, want %d", summary.RowsCoerced, fixtureCoerced)
		}
		if summary.RowsUpserted != fixtureUpserted {
			t.Errorf("RowsUpserted: got %d, want %d", summary.RowsUpserted, fixtureUpserted)
		}
		if summary.RowsUnclassified != 0 {
			t.Errorf("RowsUnclassified: got %d, want 0", summary.RowsUnclassified)
		}
		if len(summary.RowErrors) != fixtureRejected {
			t.Fatalf("RowErrors: got %d, want %d", len(summary.RowErrors), fixtureRejected)
		}
		if !strings.Contains(summary.RowErrors[0].Reason, "missing description") {
			t.Errorf("rejection reason: got %q", summary.RowErrors[0].Reason)
		}
	})

	t.Run("staging_row_count", func(t *testing.T) {
		var count int64
		if err := pool.QueryRow(ctx, "SELECT count(*) FROM ingest.stage_service_rows").Scan(&count); err != nil {
			t.Fatalf("query: %v", err)
		}
		if count != fixtureStaged {
			t.Errorf("staging rows: got %d, want %d", count, fixtureStaged)
		}
	})

	t.Run("services_count", func(t *testing.T) {
		var count int64
		if err := pool.QueryRow(ctx, "SELECT count(*) FROM tariff.services").Scan(&count); err != nil {
			t.Fatalf("query: %v", err)
		}
		if count != fixtureUpserted {
			t.Errorf("services: got %d, want %d", count, fixtureUpserted)
		}
	})

	t.Run("duplicate_code_last_occurrence_wins", func(t *testing.T) {
		var desc string
		var normal float64
		err := pool.QueryRow(ctx,
			"SELECT description, normal_rate::float8 FROM tariff.services WHERE code = 'XR001'").
			Scan(&desc, &normal)
		if err != nil {
			t.Fatalf("query: %v", err)
		}
		if desc != "CHEST X-RAY REPEAT" {
			t.Errorf("description: got %q, want the later row's text", desc)
		}
		if normal != 1300 {
			t.Errorf("normal_rate: got %v, want 1300", normal)
		}
	})

	t.Run("blank_code_synthesized", func(t *testing.T) {
		var code string
		err := pool.QueryRow(ctx,
			"SELECT code FROM tariff.services WHERE description = 'DENTAL CHECKUP VISIT'").
			Scan(&code)
		if err != nil {
			t.Fatalf("query: %v", err)
		}
		if !strings.HasPrefix(code, "GEN-") {
			t.Errorf("expected synthesized GEN- code, got %q", code)
		}
	})

	t.Run("coerced_rate_stored_with_marker", func(t *testing.T) {
		var normal float64
		var coercedTiers *string
		err := pool.QueryRow(ctx,
			"SELECT normal_rate::float8, coerced_tiers FROM tariff.services WHERE code = 'SUR002'").
			Scan(&normal, &coercedTiers)
		if err != nil {
			t.Fatalf("query: %v", err)
		}
		if normal != 0 {
			t.Errorf("coerced normal_rate: got %v, want 0", normal)
		}
		if coercedTiers == nil || *coercedTiers != "normal_rate" {
			t.Errorf("coerced_tiers: got %v, want normal_rate", coercedTiers)
		}
	})

	t.Run("variant_extracted_from_code_suffix", func(t *testing.T) {
		var variant *string
		err := pool.QueryRow(ctx,
			"SELECT variant_type FROM tariff.services WHERE code = 'SUR001-K'").
			Scan(&variant)
		if err != nil {
			t.Fatalf("query: %v", err)
		}
		if variant == nil || *variant != "K" {
			t.Errorf("variant_type: got %v, want K", variant)
		}
	})

	t.Run("currency_text_parsed", func(t *testing.T) {
		var normal float64
		err := pool.QueryRow(ctx,
			"SELECT normal_rate::float8 FROM tariff.services WHERE code = 'LAB001'").
			Scan(&normal)
		if err != nil {
			t.Fatalf("query: %v", err)
		}
		if normal != 450 {
			t.Errorf("normal_rate from 'KSH 450': got %v, want 450", normal)
		}
	})

	t.Run("source_file_loaded", func(t *testing.T) {
		var status string
		err := pool.QueryRow(ctx,
			"SELECT status FROM ingest.source_files WHERE source_file_id = $1",
			summary.SourceFileID).Scan(&status)
		if err != nil {
			t.Fatalf("query: %v", err)
		}
		if status != store.StatusLoaded {
			t.Errorf("status: got %q, want %q", status, store.StatusLoaded)
		}
	})
}

func TestEndToEnd_Idempotency(t *testing.T) {
	st, pool := setupDB(t)
	ctx := context.Background()
	path := writeFixture(t, "tariff.csv", fixtureCSV)

	cfg := &config.Config{DSN: testDSN, FilePath: path, LogFormat: "text"}

	summary1 := runIngest(t, st, cfg)
	if summary1.RowsStaged != fixtureStaged {
		t.Fatalf("first run staged %d rows, want %d", summary1.RowsStaged, fixtureStaged)
	}

	// Same bytes again: short-circuits on the content hash.
	summary2 := runIngest(t, st, cfg)
	if summary2.RowsStaged != 0 {
		t.Errorf("second run should skip (already loaded), but staged %d rows", summary2.RowsStaged)
	}
	if summary2.FileSHA256 != summary1.FileSHA256 {
		t.Errorf("hash mismatch across runs: %s vs %s", summary2.FileSHA256, summary1.FileSHA256)
	}

	var count int64
	if err := pool.QueryRow(ctx, "SELECT count(*) FROM tariff.services").Scan(&count); err != nil {
		t.Fatalf("query: %v", err)
	}
	if count != fixtureUpserted {
		t.Errorf("services after idempotent re-run: got %d, want %d", count, fixtureUpserted)
	}

	// --force re-imports the same bytes.
	cfg.Force = true
	summary3 := runIngest(t, st, cfg)
	if summary3.RowsStaged != fixtureStaged {
		t.Errorf("forced run staged %d rows, want %d", summary3.RowsStaged, fixtureStaged)
	}
	if err := pool.QueryRow(ctx, "SELECT count(*) FROM tariff.services").Scan(&count); err != nil {
		t.Fatalf("query: %v", err)
	}
	if count != fixtureUpserted {
		t.Errorf("services after forced re-run: got %d, want %d", count, fixtureUpserted)
	}
}

func TestEndToEnd_PriceHistory(t *testing.T) {
	st, pool := setupDB(t)
	ctx := context.Background()

	runIngest(t, st, &config.Config{
		DSN:       testDSN,
		FilePath:  writeFixture(t, "v1.csv", fixtureCSV),
		LogFormat: "text",
	})

	// A corrected re-issue of the tariff: XR002's normal rate moves 800 -> 850.
	v2 := strings.Replace(fixtureCSV,
		"XR002,SKULL X-RAY,800,900,5.00,4100,",
		"XR002,SKULL X-RAY,850,900,5.00,4100,", 1)
	runIngest(t, st, &config.Config{
		DSN:       testDSN,
		FilePath:  writeFixture(t, "v2.csv", v2),
		LogFormat: "text",
	})

	var histCount int64
	if err := pool.QueryRow(ctx, "SELECT count(*) FROM tariff.price_history").Scan(&histCount); err != nil {
		t.Fatalf("query: %v", err)
	}
	if histCount != 1 {
		t.Fatalf("price history rows: got %d, want 1 (only XR002 changed)", histCount)
	}

	var code string
	var oldNormal float64
	err := pool.QueryRow(ctx,
		"SELECT code, normal_rate::float8 FROM tariff.price_history").Scan(&code, &oldNormal)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if code != "XR002" || oldNormal != 800 {
		t.Errorf("history row: got (%s, %v), want (XR002, 800)", code, oldNormal)
	}

	var newNormal float64
	err = pool.QueryRow(ctx,
		"SELECT normal_rate::float8 FROM tariff.services WHERE code = 'XR002'").Scan(&newNormal)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if newNormal != 850 {
		t.Errorf("serving rate after re-issue: got %v, want 850", newNormal)
	}
}

func TestAnalyze_FindsPlaceholderRates(t *testing.T) {
	st, pool := setupDB(t)
	ctx := context.Background()
	log := logging.Setup("text")

	runIngest(t, st, &config.Config{
		DSN:       testDSN,
		FilePath:  writeFixture(t, "tariff.csv", fixtureCSV),
		LogFormat: "text",
	})

	summary, findings, err := anomaly.Scan(ctx, st, log, store.Filter{}, config.DefaultRules().Detectors)
	if err != nil {
		t.Fatalf("anomaly.Scan: %v", err)
	}

	if summary.RecordsScanned != fixtureUpserted {
		t.Errorf("RecordsScanned: got %d, want %d", summary.RecordsScanned, fixtureUpserted)
	}

	// XR001 and XR002 carry the 5.00 non-EA placeholder: 2 of the 3
	// radiology records, well past the tolerated share.
	var placeholderCodes []string
	for _, f := range findings {
		if f.Kind != model.KindFixedRate {
			continue
		}
		placeholderCodes = append(placeholderCodes, f.Code)
	}
	if len(placeholderCodes) != 2 {
		t.Fatalf("FIXED_RATE findings: got %v, want [XR001 XR002]", placeholderCodes)
	}
	if placeholderCodes[0] != "XR001" || placeholderCodes[1] != "XR002" {
		t.Errorf("FIXED_RATE codes: got %v, want [XR001 XR002]", placeholderCodes)
	}

	t.Run("findings_persisted", func(t *testing.T) {
		var count int64
		if err := pool.QueryRow(ctx, "SELECT count(*) FROM analysis.findings").Scan(&count); err != nil {
			t.Fatalf("query: %v", err)
		}
		if count != summary.FindingCount {
			t.Errorf("persisted findings: got %d, want %d", count, summary.FindingCount)
		}
	})

	t.Run("list_findings_roundtrip", func(t *testing.T) {
		runID, err := uuid.Parse(summary.RunID)
		if err != nil {
			t.Fatalf("parse run id: %v", err)
		}
		stored, err := st.ListFindings(ctx, runID)
		if err != nil {
			t.Fatalf("ListFindings: %v", err)
		}
		if len(stored) != len(findings) {
			t.Fatalf("stored findings: got %d, want %d", len(stored), len(findings))
		}
		for i := range stored {
			if stored[i] != findings[i] {
				t.Errorf("finding %d: stored %+v, want %+v", i, stored[i], findings[i])
			}
		}
	})
}

func TestListServices_Filters(t *testing.T) {
	st, _ := setupDB(t)
	ctx := context.Background()

	runIngest(t, st, &config.Config{
		DSN:       testDSN,
		FilePath:  writeFixture(t, "tariff.csv", fixtureCSV),
		LogFormat: "text",
	})

	t.Run("by_department", func(t *testing.T) {
		dept := model.DeptRadiology
		recs, err := st.ListServices(ctx, store.Filter{Department: &dept})
		if err != nil {
			t.Fatalf("ListServices: %v", err)
		}
		if len(recs) != fixtureRadiology {
			t.Fatalf("radiology records: got %d, want %d", len(recs), fixtureRadiology)
		}
		for _, rec := range recs {
			if rec.Department != model.DeptRadiology {
				t.Errorf("record %s: department %s", rec.Code, rec.Department)
			}
		}
	})

	t.Run("by_rate_range", func(t *testing.T) {
		min := 40000.0
		recs, err := st.ListServices(ctx, store.Filter{MinRate: &min})
		if err != nil {
			t.Fatalf("ListServices: %v", err)
		}
		if len(recs) != 1 || recs[0].Code != "SUR001-K" {
			t.Errorf("high-rate records: got %+v, want only SUR001-K", recs)
		}
	})

	t.Run("coerced_tiers_roundtrip", func(t *testing.T) {
		recs, err := st.ListServices(ctx, store.Filter{})
		if err != nil {
			t.Fatalf("ListServices: %v", err)
		}
		var sur002 *model.ServiceRecord
		for i := range recs {
			if recs[i].Code == "SUR002" {
				sur002 = &recs[i]
			}
		}
		if sur002 == nil {
			t.Fatal("SUR002 not returned")
		}
		if !sur002.Coerced(model.TierNormal) {
			t.Error("SUR002 normal_rate should read back as coerced")
		}
		if sur002.Coerced(model.TierSpecial) {
			t.Error("SUR002 special_rate should not read back as coerced")
		}
	})
}
