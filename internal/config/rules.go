package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/toonshi/pharmiliar/internal/model"
)

// CatalogRule binds a department or service-type name to its keyword
// triggers. Rule order in the catalog is the classification precedence.
type CatalogRule struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// CleaningOptions controls how raw price and text cells are normalized.
type CleaningOptions struct {
	StripCurrency  bool    `yaml:"strip_currency"`
	StripThousands bool    `yaml:"strip_thousands"`
	DefaultRate    float64 `yaml:"default_rate"`
}

// DetectorThresholds are the tunable knobs of the anomaly engine.
type DetectorThresholds struct {
	// Rate values treated as suspected data-entry placeholders.
	PlaceholderRates []float64 `yaml:"placeholder_rates"`
	// Share of a department's records sharing a placeholder value above
	// which the value is considered systemic default-filling.
	PlaceholderMaxShare float64 `yaml:"placeholder_max_share"`
	// Multiple of the department's median tier spread above which a
	// record's own tier spread is flagged.
	TierSpreadMultiplier float64 `yaml:"tier_spread_multiplier"`
	// MAD multiplier for the per-cohort statistical outlier detector.
	OutlierMADMultiplier float64 `yaml:"outlier_mad_multiplier"`
	// Cohort percentile used as the floor for the low-price-for-complexity
	// detector (0.10 = bottom decile).
	LowPricePercentile float64 `yaml:"low_price_percentile"`
	// Ratio checks ignore records whose normal rate is below this floor,
	// token prices produce meaningless ratios.
	MinRateForRatios float64 `yaml:"min_rate_for_ratios"`
	// Cohorts smaller than this are skipped by the statistical detectors.
	MinCohortSize int `yaml:"min_cohort_size"`
}

// Rules is the declarative ruleset: classification catalogs, cleaning
// options, and detector thresholds. This is the only customization surface
// the pipeline takes from its environment besides flags.
type Rules struct {
	Departments  []CatalogRule      `yaml:"departments"`
	ServiceTypes []CatalogRule      `yaml:"service_types"`
	Cleaning     CleaningOptions    `yaml:"cleaning"`
	Detectors    DetectorThresholds `yaml:"detectors"`
}

// DefaultRules returns the compiled-in ruleset. The keyword catalogs cover
// the fixed department and service-type buckets; thresholds carry the
// documented defaults.
func DefaultRules() *Rules {
	return &Rules{
		Departments: []CatalogRule{
			{Name: "RADIOLOGY", Keywords: []string{"x-ray", "xray", "scan", "ultrasound", "mri", "ct", "imaging"}},
			{Name: "LABORATORY", Keywords: []string{"lab", "test", "blood", "urine", "sample", "culture"}},
			{Name: "PHARMACY", Keywords: []string{"drug", "medication", "tablet", "capsule", "injection"}},
			{Name: "CONSULTATION", Keywords: []string{"consultation", "visit", "checkup", "review"}},
			{Name: "SURGERY", Keywords: []string{"surgery", "operation", "procedure", "incision"}},
			{Name: "EMERGENCY", Keywords: []string{"emergency", "casualty", "accident", "trauma"}},
			{Name: "MATERNITY", Keywords: []string{"delivery", "birth", "prenatal", "postnatal", "obstetric"}},
			{Name: "PEDIATRIC", Keywords: []string{"child", "baby", "infant", "pediatric"}},
			{Name: "DENTAL", Keywords: []string{"dental", "tooth", "teeth", "oral"}},
			{Name: "PHYSIOTHERAPY", Keywords: []string{"physio", "therapy", "rehabilitation", "exercise"}},
			{Name: "OUTPATIENT", Keywords: []string{"opd", "outpatient", "clinic"}},
			{Name: "INPATIENT", Keywords: []string{"admission", "ward", "bed", "inpatient"}},
		},
		ServiceTypes: []CatalogRule{
			{Name: "DIAGNOSTIC", Keywords: []string{"test", "scan", "x-ray", "examination", "analysis"}},
			{Name: "THERAPEUTIC", Keywords: []string{"treatment", "therapy", "surgery", "procedure"}},
			{Name: "PREVENTIVE", Keywords: []string{"vaccination", "immunization", "screening", "prevention"}},
			{Name: "CONSULTATION", Keywords: []string{"consultation", "counseling", "advisory"}},
			{Name: "MEDICATION", Keywords: []string{"drug", "medicine", "prescription"}},
			{Name: "EMERGENCY", Keywords: []string{"emergency", "urgent", "casualty"}},
		},
		Cleaning: CleaningOptions{
			StripCurrency:  true,
			StripThousands: true,
			DefaultRate:    0.0,
		},
		Detectors: DetectorThresholds{
			PlaceholderRates:     []float64{5.0},
			PlaceholderMaxShare:  0.10,
			TierSpreadMultiplier: 10.0,
			OutlierMADMultiplier: 3.0,
			LowPricePercentile:   0.10,
			MinRateForRatios:     100.0,
			MinCohortSize:        2,
		},
	}
}

// LoadRules returns the default ruleset overlaid with the YAML file at path.
// An empty path yields the defaults unchanged.
func LoadRules(path string) (*Rules, error) {
	r := DefaultRules()
	if path == "" {
		return r, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	if err := yaml.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("parse rules file: %w", err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Validate checks catalog names against the fixed buckets and rejects
// nonsensical thresholds.
func (r *Rules) Validate() error {
	for _, rule := range r.Departments {
		if _, ok := model.DepartmentByName(rule.Name); !ok {
			return fmt.Errorf("unknown department %q in rules", rule.Name)
		}
		if len(rule.Keywords) == 0 {
			return fmt.Errorf("department %s has no keywords", rule.Name)
		}
	}
	for _, rule := range r.ServiceTypes {
		if _, ok := model.ServiceTypeByName(rule.Name); !ok {
			return fmt.Errorf("unknown service type %q in rules", rule.Name)
		}
		if len(rule.Keywords) == 0 {
			return fmt.Errorf("service type %s has no keywords", rule.Name)
		}
	}
	d := r.Detectors
	if d.PlaceholderMaxShare <= 0 || d.PlaceholderMaxShare > 1 {
		return fmt.Errorf("placeholder_max_share must be in (0, 1], got %v", d.PlaceholderMaxShare)
	}
	if d.TierSpreadMultiplier <= 0 {
		return fmt.Errorf("tier_spread_multiplier must be positive, got %v", d.TierSpreadMultiplier)
	}
	if d.OutlierMADMultiplier <= 0 {
		return fmt.Errorf("outlier_mad_multiplier must be positive, got %v", d.OutlierMADMultiplier)
	}
	if d.LowPricePercentile <= 0 || d.LowPricePercentile >= 1 {
		return fmt.Errorf("low_price_percentile must be in (0, 1), got %v", d.LowPricePercentile)
	}
	if d.MinCohortSize < 2 {
		return fmt.Errorf("min_cohort_size must be at least 2, got %d", d.MinCohortSize)
	}
	if r.Cleaning.DefaultRate < 0 {
		return fmt.Errorf("default_rate must be non-negative, got %v", r.Cleaning.DefaultRate)
	}
	return nil
}
