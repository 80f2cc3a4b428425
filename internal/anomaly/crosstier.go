package anomaly

import (
	"fmt"
	"math"

	"github.com/toonshi/pharmiliar/internal/config"
	"github.com/toonshi/pharmiliar/internal/model"
)

// detectCrossTier flags records whose tier amounts violate the expected
// ordering (special is the premium tier, so special >= normal) or whose
// spread between tiers is an extreme multiple of the department's median
// spread. Records with any zero tier are ignored: a zero means "no price
// info", not a comparable amount.
func detectCrossTier(dept model.Department, recs []model.ServiceRecord, th config.DetectorThresholds) []model.Finding {
	var spreads []float64
	for i := range recs {
		if fullyPriced(&recs[i]) {
			spreads = append(spreads, tierSpread(&recs[i]))
		}
	}
	var medianSpread float64
	if len(spreads) >= th.MinCohortSize {
		medianSpread = Median(spreads)
	}

	var findings []model.Finding
	for i := range recs {
		rec := &recs[i]
		if !fullyPriced(rec) {
			continue
		}

		if rec.SpecialRate < rec.NormalRate {
			gap := rec.NormalRate - rec.SpecialRate
			findings = append(findings, model.Finding{
				Code:     rec.Code,
				Kind:     model.KindCrossTier,
				Severity: math.Min(1, gap/rec.NormalRate),
				Explanation: fmt.Sprintf(
					"special_rate %.2f is below normal_rate %.2f by %.2f; premium tier expected to be >= normal (%s)",
					rec.SpecialRate, rec.NormalRate, gap, dept),
			})
		}

		if medianSpread > 0 && rec.NormalRate >= th.MinRateForRatios {
			spread := tierSpread(rec)
			limit := th.TierSpreadMultiplier * medianSpread
			if spread > limit {
				ratio := spread / medianSpread
				findings = append(findings, model.Finding{
					Code:     rec.Code,
					Kind:     model.KindCrossTier,
					Severity: math.Min(1, ratio/(2*th.TierSpreadMultiplier)),
					Explanation: fmt.Sprintf(
						"tier spread %.2f (normal %.2f, special %.2f, non-EA %.2f) is %.1fx the %s median spread %.2f; limit is %.0fx",
						spread, rec.NormalRate, rec.SpecialRate, rec.NonEARate,
						ratio, dept, medianSpread, th.TierSpreadMultiplier),
				})
			}
		}
	}
	return findings
}

func fullyPriced(rec *model.ServiceRecord) bool {
	return rec.NormalRate > 0 && rec.SpecialRate > 0 && rec.NonEARate > 0
}

func tierSpread(rec *model.ServiceRecord) float64 {
	lo := math.Min(rec.NormalRate, math.Min(rec.SpecialRate, rec.NonEARate))
	hi := math.Max(rec.NormalRate, math.Max(rec.SpecialRate, rec.NonEARate))
	return hi - lo
}
