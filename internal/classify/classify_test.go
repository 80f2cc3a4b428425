package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toonshi/pharmiliar/internal/config"
	"github.com/toonshi/pharmiliar/internal/model"
)

func TestClassify_CommonDescriptions(t *testing.T) {
	catalog := Default()
	tests := []struct {
		desc     string
		wantDept model.Department
		wantType model.ServiceType
	}{
		{"CHEST X-RAY", model.DeptRadiology, model.TypeDiagnostic},
		{"CT SCAN HEAD", model.DeptRadiology, model.TypeDiagnostic},
		{"FULL BLOOD COUNT TEST", model.DeptLaboratory, model.TypeDiagnostic},
		{"PARACETAMOL TABLET 500MG", model.DeptPharmacy, model.TypeUnclassified},
		{"GENERAL CONSULTATION", model.DeptConsultation, model.TypeConsultation},
		{"APPENDECTOMY SURGERY", model.DeptSurgery, model.TypeTherapeutic},
		{"NORMAL DELIVERY", model.DeptMaternity, model.TypeUnclassified},
		{"TOOTH EXTRACTION", model.DeptDental, model.TypeUnclassified},
		{"WARD BED PER DAY", model.DeptInpatient, model.TypeUnclassified},
		{"CHILD IMMUNIZATION", model.DeptPediatric, model.TypePreventive},
		{"MORTUARY STORAGE PER DAY", model.DeptUnclassified, model.TypeUnclassified},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			dept, svcType := catalog.Classify(tt.desc)
			assert.Equal(t, tt.wantDept, dept)
			assert.Equal(t, tt.wantType, svcType)
		})
	}
}

// Bare keywords match whole tokens only: "ct" must hit "CT SCAN" without
// also hitting every description containing the letters c-t.
func TestClassify_BareKeywordsRespectTokenBoundaries(t *testing.T) {
	catalog := Default()

	dept, _ := catalog.Classify("DOCTOR HOME REVIEW")
	assert.NotEqual(t, model.DeptRadiology, dept, "'ct' must not match inside DOCTOR")
	assert.Equal(t, model.DeptConsultation, dept)

	dept, _ = catalog.Classify("CT ANGIOGRAPHY")
	assert.Equal(t, model.DeptRadiology, dept)
}

func TestClassify_MultiTokenKeywordsMatchAsSubstrings(t *testing.T) {
	catalog := Default()
	dept, _ := catalog.Classify("PORTABLE X-RAY(WARD)")
	assert.Equal(t, model.DeptRadiology, dept, "'x-ray' must match through adjacent punctuation")
}

// Catalog order is the precedence: a description matching several
// departments takes the first one declared.
func TestClassify_FirstMatchingRuleWins(t *testing.T) {
	catalog := Default()

	// "scan" is a RADIOLOGY keyword, "blood" a LABORATORY one; RADIOLOGY
	// is declared first.
	dept, _ := catalog.Classify("BLOOD VESSEL SCAN")
	assert.Equal(t, model.DeptRadiology, dept)

	// "test" is both a DIAGNOSTIC keyword and a LABORATORY one; each axis
	// resolves independently.
	dept, svcType := catalog.Classify("URINE TEST")
	assert.Equal(t, model.DeptLaboratory, dept)
	assert.Equal(t, model.TypeDiagnostic, svcType)
}

func TestClassify_Deterministic(t *testing.T) {
	catalog := Default()
	wantDept, wantType := catalog.Classify("ABDOMINAL ULTRASOUND SCAN")
	for i := 0; i < 100; i++ {
		dept, svcType := catalog.Classify("ABDOMINAL ULTRASOUND SCAN")
		require.Equal(t, wantDept, dept)
		require.Equal(t, wantType, svcType)
	}
}

func TestClassify_CaseInsensitive(t *testing.T) {
	catalog := Default()
	dept1, type1 := catalog.Classify("chest x-ray")
	dept2, type2 := catalog.Classify("CHEST X-RAY")
	assert.Equal(t, dept1, dept2)
	assert.Equal(t, type1, type2)
}

func TestNewCatalog_RejectsUnknownNames(t *testing.T) {
	_, err := NewCatalog(
		[]config.CatalogRule{{Name: "CARDIOLOGY", Keywords: []string{"heart"}}},
		nil,
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CARDIOLOGY")

	_, err = NewCatalog(
		nil,
		[]config.CatalogRule{{Name: "COSMETIC", Keywords: []string{"botox"}}},
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COSMETIC")
}

func TestNewCatalog_CustomRulesetOverridesPrecedence(t *testing.T) {
	catalog, err := NewCatalog(
		[]config.CatalogRule{
			{Name: "LABORATORY", Keywords: []string{"blood"}},
			{Name: "RADIOLOGY", Keywords: []string{"scan"}},
		},
		nil,
	)
	require.NoError(t, err)

	dept, _ := catalog.Classify("BLOOD VESSEL SCAN")
	assert.Equal(t, model.DeptLaboratory, dept)
}
