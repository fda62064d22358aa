package models

// CompliancePolicy from yaml
type CompliancePolicy struct {
	Name  string           `yaml:"name"`
	Rules []ComplianceRule `yaml:"rules"`
}

// ComplianceRule cel rule over the scan summary
type ComplianceRule struct {
	Name       string `yaml:"name"`
	Expr       string `yaml:"expr"`
	Severity   string `yaml:"severity"` // "error" or "warn"
	FailureMsg string `yaml:"failure_msg"`
}

// Compliance rule severities
const (
	ComplianceSeverityError = "error"
	ComplianceSeverityWarn  = "warn"
)

// ComplianceResult eval result
type ComplianceResult struct {
	RuleName   string `json:"ruleName"`
	Passed     bool   `json:"passed"`
	Severity   string `json:"severity"`
	FailureMsg string `json:"failureMsg,omitempty"`
}
