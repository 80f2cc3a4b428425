package anomaly

import (
	"fmt"
	"math"

	"github.com/toonshi/pharmiliar/internal/config"
	"github.com/toonshi/pharmiliar/internal/model"
)

// detectFixedRates flags records carrying a known placeholder rate when that
// value appears in an excessive share of the department's records, which
// signals systemic default-filling rather than genuine pricing.
func detectFixedRates(dept model.Department, recs []model.ServiceRecord, th config.DetectorThresholds) []model.Finding {
	if len(recs) == 0 {
		return nil
	}

	var findings []model.Finding
	for _, tier := range model.AllRateTiers {
		var positives []float64
		for i := range recs {
			if v := recs[i].Rate(tier); v > 0 {
				positives = append(positives, v)
			}
		}
		deptMedian := Median(positives)

		for _, placeholder := range th.PlaceholderRates {
			if placeholder <= 0 {
				continue
			}
			var matched []*model.ServiceRecord
			for i := range recs {
				if recs[i].Rate(tier) == placeholder {
					matched = append(matched, &recs[i])
				}
			}
			share := float64(len(matched)) / float64(len(recs))
			if share <= th.PlaceholderMaxShare {
				continue
			}

			severity := math.Min(1, share*2)
			for _, rec := range matched {
				explanation := fmt.Sprintf(
					"%s %.2f appears in %d of %d %s records (%.1f%% > %.1f%% threshold); department median %s is %.2f",
					tier, placeholder, len(matched), len(recs), dept,
					share*100, th.PlaceholderMaxShare*100, tier, deptMedian)
				if rec.Coerced(tier) {
					explanation += "; value was coerced from unparsable source text"
				}
				findings = append(findings, model.Finding{
					Code:        rec.Code,
					Kind:        model.KindFixedRate,
					Severity:    severity,
					Explanation: explanation,
				})
			}
		}
	}
	return findings
}
