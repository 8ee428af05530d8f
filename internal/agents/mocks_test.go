package agents

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/thomas-vilte/reqtracker/internal/ai"
	"github.com/thomas-vilte/reqtracker/internal/models"
)

type MockBackend struct {
	mock.Mock
	handle ai.BackendHandle
}

func (m *MockBackend) Generate(ctx context.Context, req ai.Request) (*ai.Response, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ai.Response), args.Error(1)
}

func (m *MockBackend) Handle() ai.BackendHandle {
	return m.handle
}

type MockTracker struct {
	mock.Mock
}

func (m *MockTracker) CreateFeature(ctx context.Context, req models.FeatureRequest) (*models.WorkItemRef, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WorkItemRef), args.Error(1)
}

func (m *MockTracker) ListProjects(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockTracker) ListWorkItems(ctx context.Context, project, workItemType, areaPath string) ([]models.WorkItem, error) {
	args := m.Called(ctx, project, workItemType, areaPath)
	return args.Get(0).([]models.WorkItem), args.Error(1)
}

func (m *MockTracker) ListAreaPaths(ctx context.Context, project string) ([]models.AreaPath, error) {
	args := m.Called(ctx, project)
	return args.Get(0).([]models.AreaPath), args.Error(1)
}

func (m *MockTracker) DeleteWorkItem(ctx context.Context, id int) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockWiki struct {
	mock.Mock
}

func (m *MockWiki) CreatePage(ctx context.Context, space, title, body, parentID string) (*models.PageRef, error) {
	args := m.Called(ctx, space, title, body, parentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PageRef), args.Error(1)
}

func (m *MockWiki) UpdatePageTitle(ctx context.Context, pageID, title string) (*models.PageRef, error) {
	args := m.Called(ctx, pageID, title)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PageRef), args.Error(1)
}

func (m *MockWiki) ListSpaces(ctx context.Context) ([]models.Space, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Space), args.Error(1)
}

func (m *MockWiki) ListPages(ctx context.Context, spaceKey string) ([]models.Page, error) {
	args := m.Called(ctx, spaceKey)
	return args.Get(0).([]models.Page), args.Error(1)
}

func (m *MockWiki) GetPageContent(ctx context.Context, pageID string) (*models.PageContent, error) {
	args := m.Called(ctx, pageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PageContent), args.Error(1)
}

func (m *MockWiki) DeletePage(ctx context.Context, pageID string) error {
	args := m.Called(ctx, pageID)
	return args.Error(0)
}
