package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/thomas-vilte/reqtracker/internal/ai"
	"github.com/thomas-vilte/reqtracker/internal/config"
	domainErrors "github.com/thomas-vilte/reqtracker/internal/errors"
	"github.com/thomas-vilte/reqtracker/internal/logger"
	"github.com/thomas-vilte/reqtracker/internal/models"
	"github.com/thomas-vilte/reqtracker/internal/tracker"
	"github.com/thomas-vilte/reqtracker/internal/wiki"
)

// PublishOptions routes the published artifacts.
type PublishOptions struct {
	Space    string
	ParentID string
	AreaPath string
}

// Publisher materializes a RequirementRecord as a work item and a wiki page.
// It makes no model call; the handle only labels the rendered document.
type Publisher struct {
	handle  ai.BackendHandle
	tracker tracker.IssueTracker
	wiki    wiki.Wiki
	opts    PublishOptions
}

func NewPublisher(handle ai.BackendHandle, t tracker.IssueTracker, w wiki.Wiki, opts PublishOptions) *Publisher {
	if opts.AreaPath == "" {
		opts.AreaPath = config.DefaultAreaPath
	}
	return &Publisher{
		handle:  handle,
		tracker: t,
		wiki:    w,
		opts:    opts,
	}
}

// PageTitle is the final title of a published page.
func PageTitle(workItemID, summary string) string {
	return fmt.Sprintf("BR %s %s", workItemID, summary)
}

// Run creates the work item, creates the page titled with the summary and
// then renames it to include the work item id. Adapter errors are returned
// unchanged and no step is retried.
func (p *Publisher) Run(ctx context.Context, record models.RequirementRecord) (*models.PublishResult, error) {
	log := logger.FromContext(ctx)
	log.Debug("publishing requirement",
		"summary", record.Summary,
		"area_path", p.opts.AreaPath,
		"space", p.opts.Space)

	item, err := p.tracker.CreateFeature(ctx, models.FeatureRequest{
		Title:              record.Summary,
		Description:        record.Goal,
		ProblemStatement:   record.Problem,
		AcceptanceCriteria: record.Criteria,
		AreaPath:           p.opts.AreaPath,
	})
	if err != nil {
		return nil, err
	}
	if !isDigits(item.ID) {
		return nil, domainErrors.ErrInvalidWorkItemID.WithContext("id", item.ID)
	}

	document := RenderMarkdown(record, p.handle)
	body, err := RenderHTML(document)
	if err != nil {
		return nil, domainErrors.NewAppError(domainErrors.TypeInternal, "failed to render wiki body", err)
	}

	page, err := p.wiki.CreatePage(ctx, p.opts.Space, record.Summary, body, p.opts.ParentID)
	if err != nil {
		return nil, err
	}
	if !isDigits(page.ID) {
		return nil, domainErrors.ErrInvalidPageID.WithContext("id", page.ID)
	}

	title := PageTitle(item.ID, record.Summary)
	renamed, err := p.wiki.UpdatePageTitle(ctx, page.ID, title)
	if err != nil {
		return nil, err
	}

	pageURL := page.URL
	if renamed != nil && renamed.URL != "" {
		pageURL = renamed.URL
	}

	log.Info("requirement published",
		"work_item_id", item.ID,
		"page_id", page.ID,
		"page_title", title)

	return &models.PublishResult{
		WorkItemID:  item.ID,
		WorkItemURL: item.URL,
		PageID:      page.ID,
		PageTitle:   title,
		PageURL:     pageURL,
		Document:    document,
	}, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	return strings.IndexFunc(s, func(r rune) bool { return r < '0' || r > '9' }) < 0
}
