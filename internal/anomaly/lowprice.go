package anomaly

import (
	"fmt"
	"math"
	"strings"

	"github.com/toonshi/pharmiliar/internal/config"
	"github.com/toonshi/pharmiliar/internal/model"
)

// Description keywords that mark a service as a complex procedure. A
// token-priced record matching these is far more likely a data-entry error
// (a missing digit) than a genuine low-cost variant.
var complexTerms = []string{"surgery", "transplant", "implant", "scan"}

// detectLowComplex flags complex procedures whose normal rate sits below the
// cohort's low-percentile floor.
func detectLowComplex(dept model.Department, svcType model.ServiceType, cohort []model.ServiceRecord, th config.DetectorThresholds) []model.Finding {
	if len(cohort) < th.MinCohortSize {
		return nil
	}

	var values []float64
	for i := range cohort {
		if v := cohort[i].NormalRate; v > 0 {
			values = append(values, v)
		}
	}
	if len(values) < th.MinCohortSize {
		return nil
	}
	floor := Percentile(values, th.LowPricePercentile)
	median := Median(values)
	if floor <= 0 {
		return nil
	}

	var findings []model.Finding
	for i := range cohort {
		rec := &cohort[i]
		if !isComplex(rec) {
			continue
		}
		v := rec.NormalRate
		if v <= 0 || v >= floor {
			continue
		}
		severity := 1 - v/median
		if median <= 0 {
			severity = 1 - v/floor
		}
		findings = append(findings, model.Finding{
			Code:     rec.Code,
			Kind:     model.KindLowComplex,
			Severity: math.Min(1, math.Max(0, severity)),
			Explanation: fmt.Sprintf(
				"normal_rate %.2f for complex service %q is below the %.0fth percentile floor %.2f (%s/%s cohort median %.2f)",
				v, rec.Description, th.LowPricePercentile*100, floor, dept, svcType, median),
		})
	}
	return findings
}

func isComplex(rec *model.ServiceRecord) bool {
	if rec.Department == model.DeptSurgery || rec.ServiceType == model.TypeTherapeutic {
		return true
	}
	desc := strings.ToLower(rec.Description)
	for _, term := range complexTerms {
		if strings.Contains(desc, term) {
			return true
		}
	}
	return false
}
