package tracker

import (
	"context"

	"github.com/thomas-vilte/reqtracker/internal/models"
)

// IssueTracker is the work item capability the publisher drives.
type IssueTracker interface {
	// CreateFeature creates a work item and returns its numeric id as a string.
	CreateFeature(ctx context.Context, req models.FeatureRequest) (*models.WorkItemRef, error)

	ListProjects(ctx context.Context) ([]string, error)

	// ListWorkItems returns the work items of one type, optionally restricted to
	// an area path and everything under it.
	ListWorkItems(ctx context.Context, project, workItemType, areaPath string) ([]models.WorkItem, error)

	// ListAreaPaths flattens the project's area tree into backslash-joined paths.
	ListAreaPaths(ctx context.Context, project string) ([]models.AreaPath, error)

	// DeleteWorkItem removes a work item. Only cleanup tooling uses it.
	DeleteWorkItem(ctx context.Context, id int) error
}
