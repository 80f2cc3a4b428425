package anomaly

import (
	"fmt"
	"math"

	"github.com/toonshi/pharmiliar/internal/config"
	"github.com/toonshi/pharmiliar/internal/model"
)

// detectOutliers flags records whose rate falls outside the configured
// number of MADs from their (department, service type) cohort median, per
// tier. Degenerate cohorts are skipped silently: a singleton cohort or one
// with zero spread yields no findings and no error.
func detectOutliers(dept model.Department, svcType model.ServiceType, cohort []model.ServiceRecord, th config.DetectorThresholds) []model.Finding {
	if len(cohort) < th.MinCohortSize {
		return nil
	}

	var findings []model.Finding
	for _, tier := range model.AllRateTiers {
		var values []float64
		for i := range cohort {
			if v := cohort[i].Rate(tier); v > 0 {
				values = append(values, v)
			}
		}
		if len(values) < th.MinCohortSize {
			continue
		}
		median := Median(values)
		mad := MAD(values, median)
		if mad == 0 {
			continue
		}

		limit := th.OutlierMADMultiplier * mad
		for i := range cohort {
			rec := &cohort[i]
			v := rec.Rate(tier)
			if v <= 0 {
				continue
			}
			dev := math.Abs(v - median)
			if dev <= limit {
				continue
			}
			mads := dev / mad
			findings = append(findings, model.Finding{
				Code:     rec.Code,
				Kind:     model.KindOutlier,
				Severity: math.Min(1, mads/(10*th.OutlierMADMultiplier)),
				Explanation: fmt.Sprintf(
					"%s %.2f deviates %.1f MADs from the %s/%s median %.2f (MAD %.2f, threshold %.1f)",
					tier, v, mads, dept, svcType, median, mad, th.OutlierMADMultiplier),
			})
		}
	}
	return findings
}
