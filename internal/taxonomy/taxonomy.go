package taxonomy

// ClauseCategory is one entry of the fixed contract clause taxonomy. The
// keywords are informational and only ever surface in prompt text; matching
// never keys off them.
type ClauseCategory struct {
	Name        string
	Priority    int
	Description string
	Keywords    []string
}

// Clauses is the priority-ordered clause taxonomy the analysis is organized
// around (priority 1 = most important). Loaded once; never mutated.
var Clauses = []ClauseCategory{
	{
		Name:        "IP Ownership & Licenses",
		Priority:    1,
		Description: "Who owns the intellectual property and what rights are granted",
		Keywords: []string{"intellectual property", "IP", "ownership", "license", "proprietary",
			"work product", "deliverables", "copyright", "patent", "trade secret",
			"background IP", "foreground IP", "derivative works"},
	},
	{
		Name:        "Limitation of Liability",
		Priority:    2,
		Description: "Caps on damages and exclusions of liability types",
		Keywords: []string{"limitation of liability", "liability cap", "damages", "consequential",
			"indirect damages", "special damages", "punitive", "exclusion", "waiver",
			"maximum liability", "aggregate liability"},
	},
	{
		Name:        "Indemnification",
		Priority:    3,
		Description: "Who protects whom from third-party claims",
		Keywords: []string{"indemnify", "indemnification", "hold harmless", "defend", "third party claims",
			"IP indemnity", "infringement", "indemnitor", "indemnitee"},
	},
	{
		Name:        "Warranties & Disclaimers",
		Priority:    4,
		Description: "Promises about quality and functionality",
		Keywords: []string{"warranty", "warranties", "represents", "warrants", "disclaimer",
			"AS IS", "merchantability", "fitness for purpose", "non-infringement",
			"warranty period", "remedy"},
	},
	{
		Name:        "Data Security & Privacy",
		Priority:    5,
		Description: "Protection of data and compliance with privacy laws",
		Keywords: []string{"data security", "privacy", "personal data", "confidential", "GDPR",
			"CCPA", "data protection", "breach notification", "encryption",
			"data processing", "PII", "sensitive data"},
	},
	{
		Name:        "Termination Rights",
		Priority:    6,
		Description: "How and when the agreement can be ended",
		Keywords: []string{"termination", "terminate", "expiration", "renewal", "cancellation",
			"for cause", "for convenience", "cure period", "wind-down", "survival"},
	},
	{
		Name:        "Acceptance Testing",
		Priority:    7,
		Description: "Process for accepting deliverables",
		Keywords: []string{"acceptance", "testing", "acceptance criteria", "acceptance period",
			"rejection", "defects", "bugs", "remediation", "milestone"},
	},
	{
		Name:        "SLAs & Support",
		Priority:    8,
		Description: "Service levels and ongoing support obligations",
		Keywords: []string{"SLA", "service level", "uptime", "availability", "response time",
			"support", "maintenance", "credits", "performance"},
	},
}
