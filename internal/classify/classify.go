// Package classify assigns each cleaned service record a Department and a
// ServiceType by keyword matching against the canonicalized description.
// Classification is a pure function of (catalog, description): rule order is
// the precedence, so the same description always classifies identically.
package classify

import (
	"fmt"
	"strings"

	"github.com/toonshi/pharmiliar/internal/config"
	"github.com/toonshi/pharmiliar/internal/model"
)

type deptRule struct {
	dept     model.Department
	keywords []string
}

type typeRule struct {
	svcType  model.ServiceType
	keywords []string
}

// Catalog holds the compiled keyword rule tables.
type Catalog struct {
	departments  []deptRule
	serviceTypes []typeRule
}

// NewCatalog compiles the declarative catalog rules, preserving their order.
// Keywords are lowercased once here so matching never re-normalizes.
func NewCatalog(departments, serviceTypes []config.CatalogRule) (*Catalog, error) {
	c := &Catalog{}
	for _, rule := range departments {
		dept, ok := model.DepartmentByName(rule.Name)
		if !ok {
			return nil, fmt.Errorf("unknown department %q in catalog", rule.Name)
		}
		c.departments = append(c.departments, deptRule{dept: dept, keywords: lowerAll(rule.Keywords)})
	}
	for _, rule := range serviceTypes {
		st, ok := model.ServiceTypeByName(rule.Name)
		if !ok {
			return nil, fmt.Errorf("unknown service type %q in catalog", rule.Name)
		}
		c.serviceTypes = append(c.serviceTypes, typeRule{svcType: st, keywords: lowerAll(rule.Keywords)})
	}
	return c, nil
}

// Default returns a catalog compiled from the built-in ruleset.
func Default() *Catalog {
	c, err := NewCatalog(config.DefaultRules().Departments, config.DefaultRules().ServiceTypes)
	if err != nil {
		panic(err) // built-in rules are validated by tests
	}
	return c
}

// Classify assigns exactly one Department and one ServiceType to the
// description, or the UNCLASSIFIED sentinel for each axis with no match.
// The first matching rule in catalog order wins.
func (c *Catalog) Classify(description string) (model.Department, model.ServiceType) {
	lower, padded := matchForms(description)

	dept := model.DeptUnclassified
	for _, rule := range c.departments {
		if matchesAny(lower, padded, rule.keywords) {
			dept = rule.dept
			break
		}
	}

	svcType := model.TypeUnclassified
	for _, rule := range c.serviceTypes {
		if matchesAny(lower, padded, rule.keywords) {
			svcType = rule.svcType
			break
		}
	}

	return dept, svcType
}

// matchForms prepares the two matching views of a description: the plain
// lowercase text for multi-token keywords like "x-ray", and a token-padded
// form for bare-word keywords so "ct" matches "CT SCAN" but not "DOCTOR".
func matchForms(description string) (lower, padded string) {
	lower = strings.ToLower(strings.TrimSpace(description))
	tokens := strings.FieldsFunc(lower, func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})
	padded = " " + strings.Join(tokens, " ") + " "
	return lower, padded
}

func matchesAny(lower, padded string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.ContainsAny(kw, " -./") {
			if strings.Contains(lower, kw) {
				return true
			}
		} else if strings.Contains(padded, " "+kw+" ") {
			return true
		}
	}
	return false
}

func lowerAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = strings.ToLower(strings.TrimSpace(s))
	}
	return out
}
