package models

// Rule is a named pattern with a severity. Patterns are literal
// substrings unless prefixed with "re:", which marks a regular
// expression. Matching is case-sensitive and per line.
type Rule struct {
	ID             string   `yaml:"id" json:"id"`
	Description    string   `yaml:"description,omitempty" json:"description,omitempty"`
	Severity       Severity `yaml:"severity" json:"severity"`
	Patterns       []string `yaml:"patterns" json:"patterns"`
	Category       string   `yaml:"category,omitempty" json:"category,omitempty"`
	ComplianceTags []string `yaml:"compliance_tags,omitempty" json:"complianceTags,omitempty"`
}

// RuleSource is one ordered list of external rules, already read into
// memory by the configuration loader. Name identifies the origin
// (global schema, project schema, CLI file) for warnings.
type RuleSource struct {
	Name  string `yaml:"name" json:"name"`
	Rules []Rule `yaml:"rules" json:"rules"`
}
