package confluence

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/thomas-vilte/reqtracker/internal/config"
	domainErrors "github.com/thomas-vilte/reqtracker/internal/errors"
	"github.com/thomas-vilte/reqtracker/internal/httpclient"
	"github.com/thomas-vilte/reqtracker/internal/logger"
	"github.com/thomas-vilte/reqtracker/internal/models"
	"github.com/thomas-vilte/reqtracker/internal/wiki"
)

const (
	pageLimit = 100

	representationStorage = "storage"
	contentTypePage       = "page"
)

var _ wiki.Wiki = (*Client)(nil)

// Client talks to the Confluence content REST API. baseURL includes the
// context path, for example https://example.atlassian.net/wiki.
type Client struct {
	baseURL string
	client  httpclient.HTTPClient
}

func NewClient(settings config.ConfluenceSettings, client httpclient.HTTPClient) (*Client, error) {
	if settings.URL == "" || settings.Token == "" {
		return nil, domainErrors.ErrWikiNotConfigured
	}
	return &Client{baseURL: settings.URL, client: client}, nil
}

// NewFromSettings authenticates with basic auth when CONFLUENCE_USER is set
// (cloud sites) and with a bearer personal access token otherwise.
func NewFromSettings(ctx context.Context, settings *config.Settings) (*Client, error) {
	cs := settings.Confluence
	var client httpclient.HTTPClient
	if cs.User != "" {
		client = httpclient.NewBasic(cs.User, cs.Token, settings.HTTPTimeout)
	} else {
		client = httpclient.NewBearer(ctx, cs.Token, settings.HTTPTimeout)
	}
	return NewClient(cs, client)
}

type (
	spaceRef struct {
		Key  string `json:"key"`
		Name string `json:"name,omitempty"`
	}

	storageBody struct {
		Value          string `json:"value"`
		Representation string `json:"representation"`
	}

	contentBody struct {
		Storage storageBody `json:"storage"`
	}

	links struct {
		WebUI string `json:"webui"`
		Base  string `json:"base"`
	}

	content struct {
		ID        string       `json:"id,omitempty"`
		Type      string       `json:"type,omitempty"`
		Title     string       `json:"title"`
		Space     *spaceRef    `json:"space,omitempty"`
		Body      *contentBody `json:"body,omitempty"`
		Ancestors []ancestor   `json:"ancestors,omitempty"`
		Version   *version     `json:"version,omitempty"`
		History   *history     `json:"history,omitempty"`
		Links     *links       `json:"_links,omitempty"`
	}

	ancestor struct {
		ID string `json:"id"`
	}

	version struct {
		Number int `json:"number"`
	}

	history struct {
		CreatedDate string `json:"createdDate"`
		LastUpdated *struct {
			When string `json:"when"`
		} `json:"lastUpdated,omitempty"`
	}

	page[T any] struct {
		Results []T `json:"results"`
		Start   int `json:"start"`
		Size    int `json:"size"`
		Links   struct {
			Next string `json:"next"`
		} `json:"_links"`
	}
)

func (c *Client) CreatePage(ctx context.Context, space, title, body, parentID string) (*models.PageRef, error) {
	req := content{
		Type:  contentTypePage,
		Title: title,
		Space: &spaceRef{Key: space},
		Body:  &contentBody{Storage: storageBody{Value: body, Representation: representationStorage}},
	}
	if parentID != "" {
		req.Ancestors = []ancestor{{ID: parentID}}
	}

	logger.Debug(ctx, "creating wiki page", "space", space, "parent_id", parentID)

	var created content
	if err := c.do(ctx, http.MethodPost, c.endpoint("/rest/api/content", nil), req, &created); err != nil {
		return nil, err
	}
	if created.ID == "" {
		return nil, domainErrors.ErrInvalidPageID.WithContext("title", title)
	}

	logger.Info(ctx, "wiki page created", "page_id", created.ID)
	return &models.PageRef{ID: created.ID, Title: created.Title, URL: c.pageURL(created, space)}, nil
}

// UpdatePageTitle reads the current version and body, then writes them back
// under the new title as version+1.
func (c *Client) UpdatePageTitle(ctx context.Context, pageID, title string) (*models.PageRef, error) {
	if pageID == "" {
		return nil, domainErrors.ErrInvalidPageID
	}

	current, err := c.getContent(ctx, pageID, "body.storage,version,space")
	if err != nil {
		return nil, err
	}

	next := 1
	if current.Version != nil {
		next = current.Version.Number + 1
	}
	body := current.Body
	if body == nil {
		body = &contentBody{Storage: storageBody{Representation: representationStorage}}
	}
	body.Storage.Representation = representationStorage

	req := content{
		ID:      pageID,
		Type:    contentTypePage,
		Title:   title,
		Space:   current.Space,
		Body:    body,
		Version: &version{Number: next},
	}

	var updated content
	if err := c.do(ctx, http.MethodPut, c.endpoint("/rest/api/content/"+url.PathEscape(pageID), nil), req, &updated); err != nil {
		return nil, err
	}

	logger.Info(ctx, "wiki page renamed", "page_id", pageID, "version", next)
	return &models.PageRef{ID: pageID, Title: title, URL: c.pageURL(updated, spaceKey(current))}, nil
}

func (c *Client) ListSpaces(ctx context.Context) ([]models.Space, error) {
	type spaceResult struct {
		ID          int    `json:"id"`
		Key         string `json:"key"`
		Name        string `json:"name"`
		Description struct {
			Plain struct {
				Value string `json:"value"`
			} `json:"plain"`
		} `json:"description"`
	}

	results, err := list[spaceResult](ctx, c, "/rest/api/space", url.Values{"expand": {"description.plain"}})
	if err != nil {
		return nil, err
	}

	spaces := make([]models.Space, 0, len(results))
	for _, s := range results {
		spaces = append(spaces, models.Space{
			Key:         s.Key,
			Name:        s.Name,
			ID:          strconv.Itoa(s.ID),
			Description: s.Description.Plain.Value,
		})
	}
	return spaces, nil
}

// ListPages lists every page of a space. The parent of a page is its last
// ancestor.
func (c *Client) ListPages(ctx context.Context, spaceKey string) ([]models.Page, error) {
	query := url.Values{
		"spaceKey": {spaceKey},
		"type":     {contentTypePage},
		"expand":   {"space,history,ancestors,version"},
	}
	results, err := list[content](ctx, c, "/rest/api/content", query)
	if err != nil {
		return nil, err
	}

	pages := make([]models.Page, 0, len(results))
	for _, r := range results {
		p := models.Page{
			ID:    r.ID,
			Title: r.Title,
			Space: spaceKey,
			URL:   c.pageURL(r, spaceKey),
		}
		if r.Version != nil {
			p.Version = r.Version.Number
		}
		if n := len(r.Ancestors); n > 0 {
			parent := r.Ancestors[n-1].ID
			p.ParentID = &parent
		}
		pages = append(pages, p)
	}
	return pages, nil
}

func (c *Client) GetPageContent(ctx context.Context, pageID string) (*models.PageContent, error) {
	if pageID == "" {
		return nil, domainErrors.ErrInvalidPageID
	}
	r, err := c.getContent(ctx, pageID, "space,history,body.storage,version")
	if err != nil {
		return nil, err
	}

	pc := &models.PageContent{
		ID:    r.ID,
		Title: r.Title,
		Space: spaceKey(r),
		URL:   c.pageURL(*r, spaceKey(r)),
	}
	if r.Body != nil {
		pc.Content = r.Body.Storage.Value
	}
	if r.Version != nil {
		pc.Version = r.Version.Number
	}
	if r.History != nil && r.History.LastUpdated != nil {
		pc.LastModified = r.History.LastUpdated.When
	}
	return pc, nil
}

func (c *Client) DeletePage(ctx context.Context, pageID string) error {
	if pageID == "" {
		return domainErrors.ErrInvalidPageID
	}
	if err := c.do(ctx, http.MethodDelete, c.endpoint("/rest/api/content/"+url.PathEscape(pageID), nil), nil, nil); err != nil {
		return err
	}
	logger.Info(ctx, "wiki page deleted", "page_id", pageID)
	return nil
}

func (c *Client) getContent(ctx context.Context, pageID, expand string) (*content, error) {
	var r content
	endpoint := c.endpoint("/rest/api/content/"+url.PathEscape(pageID), url.Values{"expand": {expand}})
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// list follows start/limit pagination until the server stops returning a next link.
func list[T any](ctx context.Context, c *Client, path string, query url.Values) ([]T, error) {
	var all []T
	start := 0
	for {
		q := url.Values{}
		for k, v := range query {
			q[k] = v
		}
		q.Set("start", strconv.Itoa(start))
		q.Set("limit", strconv.Itoa(pageLimit))

		var p page[T]
		if err := c.do(ctx, http.MethodGet, c.endpoint(path, q), nil, &p); err != nil {
			return nil, err
		}
		all = append(all, p.Results...)

		if p.Links.Next == "" || len(p.Results) == 0 {
			return all, nil
		}
		start += len(p.Results)
	}
}

func spaceKey(r *content) string {
	if r.Space == nil {
		return ""
	}
	return r.Space.Key
}

func (c *Client) pageURL(r content, space string) string {
	if r.Links != nil && r.Links.WebUI != "" {
		base := r.Links.Base
		if base == "" {
			base = c.baseURL
		}
		return base + r.Links.WebUI
	}
	if r.ID == "" {
		return ""
	}
	return fmt.Sprintf("%s/spaces/%s/pages/%s", c.baseURL, url.PathEscape(space), r.ID)
}

func (c *Client) endpoint(path string, query url.Values) string {
	if len(query) == 0 {
		return c.baseURL + path
	}
	return c.baseURL + path + "?" + query.Encode()
}

func (c *Client) do(ctx context.Context, method, endpoint string, in, out any) error {
	var reader io.Reader
	if in != nil {
		body, err := json.Marshal(in)
		if err != nil {
			return domainErrors.NewAppError(domainErrors.TypeInternal, "failed to encode wiki request", err)
		}
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return domainErrors.ErrWikiRequest.WithError(err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return domainErrors.ErrWikiRequest.WithError(err).WithContext("method", method)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		return statusError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return domainErrors.ErrWikiRequest.WithError(fmt.Errorf("decoding response: %w", err))
	}
	return nil
}

func statusError(resp *http.Response) error {
	body := httpclient.ReadErrorBody(resp)
	var base *domainErrors.AppError
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		base = domainErrors.ErrWikiUnauthorized
	case http.StatusNotFound:
		base = domainErrors.ErrWikiNotFound
	default:
		base = domainErrors.ErrWikiRequest
	}
	return base.
		WithContext("status", resp.StatusCode).
		WithContext("response", body)
}
