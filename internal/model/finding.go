package model

// FindingKind identifies which anomaly detector produced a finding.
type FindingKind string

const (
	KindFixedRate  FindingKind = "FIXED_RATE"
	KindCrossTier  FindingKind = "CROSS_TIER"
	KindOutlier    FindingKind = "OUTLIER"
	KindLowComplex FindingKind = "LOW_PRICE_FOR_COMPLEXITY"
)

// Finding is one anomaly flagged against a stored service record.
// Severity is a 0..1 score used only for ranking; the explanation carries
// the concrete numbers that triggered the detector.
type Finding struct {
	Code        string      `json:"code"`
	Kind        FindingKind `json:"kind"`
	Severity    float64     `json:"severity"`
	Explanation string      `json:"explanation"`
}
