package models

// RequirementKeys lists the JSON keys every analyzer response must carry, in
// document order.
var RequirementKeys = []string{"summary", "problem", "goal", "artifacts", "criteria", "risks"}

// RequirementRecord is the structured requirement produced by the analyzer and
// consumed by the publisher. It is the only contract between the two stages.
type RequirementRecord struct {
	Summary   string `json:"summary"`
	Problem   string `json:"problem"`
	Goal      string `json:"goal"`
	Artifacts string `json:"artifacts"`
	Criteria  string `json:"criteria"`
	Risks     string `json:"risks"`
}
