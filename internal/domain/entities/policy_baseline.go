package entities

// BaselineRulesetName identifies the built-in generalised policy version.
const BaselineRulesetName = "MediAudit Generalised Health Insurance Baseline v1.0"

func capAt(v float64) *float64 { return &v }

// BaselineRuleset returns the built-in generalised policy baseline. The table
// mirrors common Indian health insurance sub-limits: conservative coverage
// percentages, per-category caps, and hard exclusions for cosmetic and dental
// work. The catch-all Miscellaneous rule is last and covers nothing, so an
// unrecognized charge is never silently reimbursed.
//
// Returned rulesets are fresh copies; callers may hold them for the duration
// of a run without sharing state across runs.
func BaselineRuleset() *PolicyRuleset {
	return &PolicyRuleset{
		Name:   BaselineRulesetName,
		Source: PolicySourceBaseline,
		Rules: []PolicyRule{
			{
				Category:        "Consultation",
				CoveragePercent: 100,
				CapAmount:       capAt(2000),
				Keywords:        []string{"consultation", "consult", "opd", "doctor", "visit", "physician", "specialist"},
			},
			{
				Category:        "Diagnostics",
				CoveragePercent: 80,
				CapAmount:       capAt(8000),
				Keywords:        []string{"mri", "ct", "scan", "xray", "x-ray", "ultrasound", "ecg", "diagnostic", "lab", "test", "pathology", "blood", "biopsy"},
			},
			{
				Category:        "Room Rent",
				CoveragePercent: 100,
				CapAmount:       capAt(5000),
				Keywords:        []string{"room", "ward", "bed", "icu", "rent", "stay", "accommodation", "rm"},
			},
			{
				Category:        "Surgery",
				CoveragePercent: 80,
				CapAmount:       capAt(150000),
				Keywords:        []string{"surgery", "surgical", "operation", "procedure", "theatre", "ot", "anaesthesia", "anesthesia"},
			},
			{
				Category:        "Pharmacy",
				CoveragePercent: 70,
				CapAmount:       capAt(10000),
				Keywords:        []string{"pharmacy", "medicine", "medicines", "drug", "tablet", "capsule", "injection", "syrup", "medication"},
			},
			{
				Category:        "Ambulance",
				CoveragePercent: 100,
				CapAmount:       capAt(2000),
				Keywords:        []string{"ambulance", "transport", "evacuation"},
			},
			{
				Category: "Cosmetic",
				Excluded: true,
				Keywords: []string{"cosmetic", "aesthetic", "rhinoplasty", "botox", "liposuction"},
			},
			{
				Category: "Dental",
				Excluded: true,
				Keywords: []string{"dental", "tooth", "teeth", "orthodontic", "implant"},
			},
			{
				Category:        FallbackCategory,
				CoveragePercent: 0,
				Keywords:        nil,
			},
		},
	}
}
