package engine

import (
	"strings"

	"github.com/OpenNSW/tariff/internal/tariff/model"
)

// complianceRules map agreement name fragments to advisory notes, in output order.
var complianceRules = []struct {
	keyword string
	note    string
}{
	{"USMCA", "USMCA: preference requires a certification of origin and compliance with the product-specific rules of origin."},
	{"GSP", "GSP: goods must be the growth, product or manufacture of a designated beneficiary country and meet the 35% value-content requirement."},
	{"KORUS", "KORUS: importer must hold documentation supporting the Korean origin of the goods at the time of the claim."},
	{"CAFTA", "CAFTA-DR: preference requires accumulation records when materials from other parties are used."},
}

const (
	mfnAppliesNote    = "No preferential program offers a lower duty; the MFN rate applies."
	claimRequiredNote = "Preferential treatment must be claimed at entry and supporting origin records kept for five years."
)

// ComplianceNotes annotates a result from the names of the evaluated agreements.
func ComplianceNotes(evaluated []model.PreferentialDuty, preferenceSelected bool) []string {
	notes := make([]string, 0, len(complianceRules)+1)
	if preferenceSelected {
		notes = append(notes, claimRequiredNote)
	} else {
		notes = append(notes, mfnAppliesNote)
	}

	for _, rule := range complianceRules {
		for _, duty := range evaluated {
			if mentions(duty.AgreementName, rule.keyword) || mentions(duty.AgreementCode, rule.keyword) {
				notes = append(notes, rule.note)
				break
			}
		}
	}
	return notes
}

func mentions(s, keyword string) bool {
	return strings.Contains(strings.ToUpper(s), keyword)
}
