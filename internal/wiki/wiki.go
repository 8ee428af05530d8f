package wiki

import (
	"context"

	"github.com/thomas-vilte/reqtracker/internal/models"
)

// Wiki is the page capability the publisher drives.
type Wiki interface {
	// CreatePage creates a page under parentID, or at the space root when
	// parentID is empty. body is storage-format HTML.
	CreatePage(ctx context.Context, space, title, body, parentID string) (*models.PageRef, error)

	// UpdatePageTitle renames a page and keeps its body.
	UpdatePageTitle(ctx context.Context, pageID, title string) (*models.PageRef, error)

	ListSpaces(ctx context.Context) ([]models.Space, error)
	ListPages(ctx context.Context, spaceKey string) ([]models.Page, error)
	GetPageContent(ctx context.Context, pageID string) (*models.PageContent, error)
	DeletePage(ctx context.Context, pageID string) error
}

// BuildPageTree nests a flat page listing. Pages without a parent, or whose
// parent is not part of the listing, become roots. Sibling order follows the
// listing.
func BuildPageTree(pages []models.Page) []*models.PageNode {
	nodes := make(map[string]*models.PageNode, len(pages))
	for _, p := range pages {
		nodes[p.ID] = &models.PageNode{ID: p.ID, Title: p.Title, URL: p.URL}
	}

	roots := make([]*models.PageNode, 0)
	for _, p := range pages {
		node := nodes[p.ID]
		if p.ParentID != nil && *p.ParentID != p.ID {
			if parent, ok := nodes[*p.ParentID]; ok {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}
	return roots
}
