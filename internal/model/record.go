package model

// Department is one of the fixed hospital department buckets a service can
// be classified into. Classification is keyword-driven; records whose
// description matches no department catalog entry carry DeptUnclassified.
type Department string

const (
	DeptRadiology     Department = "RADIOLOGY"
	DeptLaboratory    Department = "LABORATORY"
	DeptPharmacy      Department = "PHARMACY"
	DeptConsultation  Department = "CONSULTATION"
	DeptSurgery       Department = "SURGERY"
	DeptEmergency     Department = "EMERGENCY"
	DeptMaternity     Department = "MATERNITY"
	DeptPediatric     Department = "PEDIATRIC"
	DeptDental        Department = "DENTAL"
	DeptPhysiotherapy Department = "PHYSIOTHERAPY"
	DeptOutpatient    Department = "OUTPATIENT"
	DeptInpatient     Department = "INPATIENT"

	DeptUnclassified Department = "UNCLASSIFIED"
)

// AllDepartments lists the classifiable departments in catalog order.
// Catalog order doubles as classification precedence.
var AllDepartments = []Department{
	DeptRadiology,
	DeptLaboratory,
	DeptPharmacy,
	DeptConsultation,
	DeptSurgery,
	DeptEmergency,
	DeptMaternity,
	DeptPediatric,
	DeptDental,
	DeptPhysiotherapy,
	DeptOutpatient,
	DeptInpatient,
}

// ServiceType is the orthogonal what-kind-of-care axis.
type ServiceType string

const (
	TypeDiagnostic   ServiceType = "DIAGNOSTIC"
	TypeTherapeutic  ServiceType = "THERAPEUTIC"
	TypePreventive   ServiceType = "PREVENTIVE"
	TypeConsultation ServiceType = "CONSULTATION"
	TypeMedication   ServiceType = "MEDICATION"
	TypeEmergency    ServiceType = "EMERGENCY"

	TypeUnclassified ServiceType = "UNCLASSIFIED"
)

// AllServiceTypes lists the classifiable service types in catalog order.
var AllServiceTypes = []ServiceType{
	TypeDiagnostic,
	TypeTherapeutic,
	TypePreventive,
	TypeConsultation,
	TypeMedication,
	TypeEmergency,
}

// DepartmentByName returns the Department for a catalog name, or ok=false.
func DepartmentByName(name string) (Department, bool) {
	for _, d := range AllDepartments {
		if string(d) == name {
			return d, true
		}
	}
	return "", false
}

// ServiceTypeByName returns the ServiceType for a catalog name, or ok=false.
func ServiceTypeByName(name string) (ServiceType, bool) {
	for _, t := range AllServiceTypes {
		if string(t) == name {
			return t, true
		}
	}
	return "", false
}

// RateTier names one of the three price tiers of a service.
type RateTier string

const (
	TierNormal  RateTier = "normal_rate"
	TierSpecial RateTier = "special_rate"
	TierNonEA   RateTier = "non_ea_rate"
)

// AllRateTiers lists the tiers in canonical column order.
var AllRateTiers = []RateTier{TierNormal, TierSpecial, TierNonEA}

// ServiceRecord is one cleaned, classified service price line.
// All three rates are guaranteed numeric and non-negative after cleaning;
// unparsable source text is coerced to the configured default and the
// affected tiers are listed in CoercedTiers.
type ServiceRecord struct {
	Code        string
	Description string
	Department  Department
	ServiceType ServiceType

	NormalRate  float64
	SpecialRate float64
	NonEARate   float64

	GLAccount   *string
	VariantType *string

	CoercedTiers []RateTier
}

// Rate returns the value of the named tier.
func (r *ServiceRecord) Rate(tier RateTier) float64 {
	switch tier {
	case TierSpecial:
		return r.SpecialRate
	case TierNonEA:
		return r.NonEARate
	default:
		return r.NormalRate
	}
}

// Coerced reports whether the named tier's value came from an unparsable
// source cell rather than genuine pricing.
func (r *ServiceRecord) Coerced(tier RateTier) bool {
	for _, t := range r.CoercedTiers {
		if t == tier {
			return true
		}
	}
	return false
}
