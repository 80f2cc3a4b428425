// Package anomaly runs the detector battery over stored service records.
// Every detector is a pure function of its cohort's data, so department
// scans run concurrently and findings merge deterministically after a final
// stable sort.
package anomaly

import (
	"runtime"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/toonshi/pharmiliar/internal/config"
	"github.com/toonshi/pharmiliar/internal/model"
)

// Run executes all detectors over the record set and returns the findings
// sorted by (severity desc, code, kind). A record may accumulate findings of
// several kinds; that is expected and not deduplicated.
func Run(records []model.ServiceRecord, th config.DetectorThresholds, log zerolog.Logger) []model.Finding {
	byDept := make(map[model.Department][]model.ServiceRecord)
	for _, rec := range records {
		byDept[rec.Department] = append(byDept[rec.Department], rec)
	}

	var (
		mu       sync.Mutex
		findings []model.Finding
	)
	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())

	for dept, recs := range byDept {
		dept, recs := dept, recs
		g.Go(func() error {
			fs := scanDepartment(dept, recs, th)
			mu.Lock()
			findings = append(findings, fs...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // department scans never fail

	sortFindings(findings)

	byKind := make(map[model.FindingKind]int)
	for _, f := range findings {
		byKind[f.Kind]++
	}
	log.Info().
		Int("records", len(records)).
		Int("departments", len(byDept)).
		Int("findings", len(findings)).
		Interface("by_kind", byKind).
		Msg("anomaly scan complete")

	return findings
}

// scanDepartment runs the department-scoped detectors, then the cohort
// detectors per (department, service type) group.
func scanDepartment(dept model.Department, recs []model.ServiceRecord, th config.DetectorThresholds) []model.Finding {
	findings := detectFixedRates(dept, recs, th)
	findings = append(findings, detectCrossTier(dept, recs, th)...)

	cohorts := make(map[model.ServiceType][]model.ServiceRecord)
	for _, rec := range recs {
		cohorts[rec.ServiceType] = append(cohorts[rec.ServiceType], rec)
	}
	for svcType, cohort := range cohorts {
		findings = append(findings, detectOutliers(dept, svcType, cohort, th)...)
		findings = append(findings, detectLowComplex(dept, svcType, cohort, th)...)
	}
	return findings
}

func sortFindings(findings []model.Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].Severity != findings[j].Severity {
			return findings[i].Severity > findings[j].Severity
		}
		if findings[i].Code != findings[j].Code {
			return findings[i].Code < findings[j].Code
		}
		return findings[i].Kind < findings[j].Kind
	})
}
