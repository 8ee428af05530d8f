package models

import (
	"fmt"
	"strings"
)

// PublishResult holds the identifiers of the artifacts materialized for one
// requirement plus the rendered document.
type PublishResult struct {
	WorkItemID  string `json:"work_item_id"`
	WorkItemURL string `json:"work_item_url,omitempty"`
	PageID      string `json:"confluence_page_id"`
	PageTitle   string `json:"page_title"`
	PageURL     string `json:"page_url,omitempty"`
	Document    string `json:"document"`
}

// String renders the final pipeline product: identifiers, links and the
// markdown document.
func (r *PublishResult) String() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Work Item ID: %s\n", r.WorkItemID))
	if r.WorkItemURL != "" {
		sb.WriteString(fmt.Sprintf("Work Item Link: %s\n", r.WorkItemURL))
	}
	sb.WriteString(fmt.Sprintf("Confluence Page ID: %s\n", r.PageID))
	sb.WriteString(fmt.Sprintf("Confluence Page Title: %s\n", r.PageTitle))
	if r.PageURL != "" {
		sb.WriteString(fmt.Sprintf("Confluence Page Link: %s\n", r.PageURL))
	}
	sb.WriteString("\n")
	sb.WriteString(r.Document)

	return sb.String()
}
