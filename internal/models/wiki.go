package models

type Space struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	ID          string `json:"id"`
	Description string `json:"description"`
}

// Page is a wiki page as listed inside a space. ParentID is nil for root pages.
type Page struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Space    string  `json:"space"`
	URL      string  `json:"url"`
	Content  string  `json:"content,omitempty"`
	Version  int     `json:"version"`
	ParentID *string `json:"parent_id"`
}

type PageContent struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Space        string `json:"space"`
	Content      string `json:"content"`
	Version      int    `json:"version"`
	LastModified string `json:"last_modified"`
	URL          string `json:"url,omitempty"`
}

// PageNode is one node of a page tree built from a flat page listing.
type PageNode struct {
	ID       string      `json:"id"`
	Title    string      `json:"title"`
	URL      string      `json:"url"`
	Children []*PageNode `json:"children,omitempty"`
}

// PageRef identifies a page created in the wiki.
type PageRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url,omitempty"`
}
