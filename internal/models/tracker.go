package models

// FeatureRequest carries the fields used to create a work item. Empty optional
// fields are left out of the request sent to the tracker.
type FeatureRequest struct {
	Title              string
	Description        string
	ProblemStatement   string
	AcceptanceCriteria string
	AreaPath           string
}

type WorkItem struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Type        string `json:"type"`
	State       string `json:"state"`
	AreaPath    string `json:"area_path,omitempty"`
	AssignedTo  string `json:"assigned_to"`
	Description string `json:"description"`
}

type AreaPath struct {
	Name string `json:"name"`
	Path string `json:"path"`
	ID   string `json:"id"`
}

// WorkItemRef identifies a work item created in the tracker. ID is a string of digits.
type WorkItemRef struct {
	ID  string `json:"id"`
	URL string `json:"url,omitempty"`
}
