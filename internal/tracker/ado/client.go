package ado

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/thomas-vilte/reqtracker/internal/config"
	domainErrors "github.com/thomas-vilte/reqtracker/internal/errors"
	"github.com/thomas-vilte/reqtracker/internal/httpclient"
	"github.com/thomas-vilte/reqtracker/internal/logger"
	"github.com/thomas-vilte/reqtracker/internal/models"
	"github.com/thomas-vilte/reqtracker/internal/tracker"
)

const (
	apiVersion = "7.1"

	// batchSize is the largest id list workitemsbatch accepts.
	batchSize        = 200
	batchConcurrency = 4

	contentTypeJSON  = "application/json"
	contentTypePatch = "application/json-patch+json"

	unassigned = "Unassigned"
)

var listFields = []string{
	"System.Title",
	"System.WorkItemType",
	"System.State",
	"System.AssignedTo",
	"System.Description",
	"System.AreaPath",
}

var _ tracker.IssueTracker = (*Client)(nil)

// Client talks to the Azure DevOps work item tracking REST API.
type Client struct {
	orgURL      string
	project     string
	featureType string
	client      httpclient.HTTPClient
}

// NewClient builds a client for the organization in settings. The http client
// is expected to carry the PAT, see httpclient.NewBasic.
func NewClient(settings config.ADOSettings, client httpclient.HTTPClient) (*Client, error) {
	if !settings.Configured() {
		return nil, domainErrors.ErrTrackerNotConfigured
	}
	featureType := settings.FeatureType
	if featureType == "" {
		featureType = config.DefaultFeatureType
	}
	return &Client{
		orgURL:      strings.TrimRight(settings.OrgURL, "/"),
		project:     settings.Project,
		featureType: featureType,
		client:      client,
	}, nil
}

// NewFromSettings builds a client authenticated with the PAT in settings.
func NewFromSettings(settings *config.Settings) (*Client, error) {
	return NewClient(settings.ADO, httpclient.NewBasic("", settings.ADO.PAT, settings.HTTPTimeout))
}

type patchOperation struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value string `json:"value"`
}

type workItemResponse struct {
	ID     int                        `json:"id"`
	Fields map[string]json.RawMessage `json:"fields"`
	Links  struct {
		HTML struct {
			Href string `json:"href"`
		} `json:"html"`
	} `json:"_links"`
}

// CreateFeature creates a work item of the configured feature type.
func (c *Client) CreateFeature(ctx context.Context, req models.FeatureRequest) (*models.WorkItemRef, error) {
	ops := buildPatch(c.featureType, req)
	body, err := json.Marshal(ops)
	if err != nil {
		return nil, domainErrors.NewAppError(domainErrors.TypeInternal, "failed to encode work item patch", err)
	}

	endpoint := fmt.Sprintf("%s/%s/_apis/wit/workitems/$%s?api-version=%s",
		c.orgURL, url.PathEscape(c.project), url.PathEscape(c.featureType), apiVersion)

	logger.Debug(ctx, "creating work item",
		"type", c.featureType,
		"area_path", req.AreaPath,
		"fields", len(ops))

	var created workItemResponse
	if err := c.do(ctx, http.MethodPost, endpoint, contentTypePatch, body, &created); err != nil {
		return nil, err
	}
	if created.ID <= 0 {
		return nil, domainErrors.ErrInvalidWorkItemID.WithContext("id", created.ID)
	}

	id := strconv.Itoa(created.ID)
	link := created.Links.HTML.Href
	if link == "" {
		link = c.WorkItemURL(id)
	}

	logger.Info(ctx, "work item created", "id", id)
	return &models.WorkItemRef{ID: id, URL: link}, nil
}

// WorkItemURL returns the browser link of a work item.
func (c *Client) WorkItemURL(id string) string {
	return fmt.Sprintf("%s/%s/_workitems/edit/%s", c.orgURL, url.PathEscape(c.project), id)
}

// buildPatch always sets title, type and area path. The other fields are only
// sent when they have content.
func buildPatch(workItemType string, req models.FeatureRequest) []patchOperation {
	ops := []patchOperation{
		{Op: "add", Path: "/fields/System.Title", Value: req.Title},
		{Op: "add", Path: "/fields/System.WorkItemType", Value: workItemType},
		{Op: "add", Path: "/fields/System.AreaPath", Value: req.AreaPath},
	}
	optional := []struct {
		field string
		value string
	}{
		{"System.Description", req.Description},
		{"Custom.Problem", req.ProblemStatement},
		{"Custom.Acceptance", req.AcceptanceCriteria},
	}
	for _, f := range optional {
		if f.value == "" {
			continue
		}
		ops = append(ops, patchOperation{Op: "add", Path: "/fields/" + f.field, Value: f.value})
	}
	return ops
}

// ListProjects follows continuation tokens until every project name is read.
func (c *Client) ListProjects(ctx context.Context) ([]string, error) {
	var names []string
	token := ""
	for {
		endpoint := fmt.Sprintf("%s/_apis/projects?api-version=%s", c.orgURL, apiVersion)
		if token != "" {
			endpoint += "&continuationToken=" + url.QueryEscape(token)
		}

		var page struct {
			Value []struct {
				Name string `json:"name"`
			} `json:"value"`
		}
		resp, err := c.send(ctx, http.MethodGet, endpoint, "", nil)
		if err != nil {
			return nil, err
		}
		err = decode(resp, &page)
		if err != nil {
			return nil, err
		}
		for _, p := range page.Value {
			names = append(names, p.Name)
		}

		token = resp.Header.Get("x-ms-continuationtoken")
		if token == "" {
			return names, nil
		}
	}
}

// ListWorkItems queries ids with WIQL and then reads their fields in batches.
func (c *Client) ListWorkItems(ctx context.Context, project, workItemType, areaPath string) ([]models.WorkItem, error) {
	if project == "" {
		project = c.project
	}
	if workItemType == "" {
		workItemType = c.featureType
	}

	query, err := json.Marshal(map[string]string{"query": buildWIQL(project, workItemType, areaPath)})
	if err != nil {
		return nil, domainErrors.NewAppError(domainErrors.TypeInternal, "failed to encode wiql query", err)
	}

	var result struct {
		WorkItems []struct {
			ID int `json:"id"`
		} `json:"workItems"`
	}
	endpoint := fmt.Sprintf("%s/%s/_apis/wit/wiql?api-version=%s", c.orgURL, url.PathEscape(project), apiVersion)
	if err := c.do(ctx, http.MethodPost, endpoint, contentTypeJSON, query, &result); err != nil {
		return nil, err
	}

	ids := make([]int, 0, len(result.WorkItems))
	for _, wi := range result.WorkItems {
		ids = append(ids, wi.ID)
	}
	logger.Debug(ctx, "wiql query returned", "count", len(ids), "project", project)

	return c.fetchWorkItems(ctx, project, ids)
}

func buildWIQL(project, workItemType, areaPath string) string {
	var b strings.Builder
	b.WriteString("SELECT [System.Id] FROM WorkItems WHERE [System.TeamProject] = '")
	b.WriteString(wiqlEscape(project))
	b.WriteString("' AND [System.WorkItemType] = '")
	b.WriteString(wiqlEscape(workItemType))
	b.WriteString("'")
	if areaPath != "" {
		b.WriteString(" AND [System.AreaPath] UNDER '")
		b.WriteString(wiqlEscape(areaPath))
		b.WriteString("'")
	}
	b.WriteString(" ORDER BY [System.Id] DESC")
	return b.String()
}

func wiqlEscape(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// fetchWorkItems reads ids in batches concurrently and keeps the WIQL order.
func (c *Client) fetchWorkItems(ctx context.Context, project string, ids []int) ([]models.WorkItem, error) {
	if len(ids) == 0 {
		return []models.WorkItem{}, nil
	}

	batches := make([][]models.WorkItem, (len(ids)+batchSize-1)/batchSize)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency)

	for i := range batches {
		start := i * batchSize
		end := min(start+batchSize, len(ids))
		chunk := ids[start:end]
		g.Go(func() error {
			items, err := c.fetchBatch(gctx, project, chunk)
			if err != nil {
				return err
			}
			batches[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	items := make([]models.WorkItem, 0, len(ids))
	for _, batch := range batches {
		items = append(items, batch...)
	}
	return items, nil
}

func (c *Client) fetchBatch(ctx context.Context, project string, ids []int) ([]models.WorkItem, error) {
	body, err := json.Marshal(map[string]any{
		"ids":    ids,
		"fields": listFields,
	})
	if err != nil {
		return nil, domainErrors.NewAppError(domainErrors.TypeInternal, "failed to encode work item batch", err)
	}

	var result struct {
		Value []workItemResponse `json:"value"`
	}
	endpoint := fmt.Sprintf("%s/%s/_apis/wit/workitemsbatch?api-version=%s", c.orgURL, url.PathEscape(project), apiVersion)
	if err := c.do(ctx, http.MethodPost, endpoint, contentTypeJSON, body, &result); err != nil {
		return nil, err
	}

	items := make([]models.WorkItem, 0, len(result.Value))
	for _, wi := range result.Value {
		items = append(items, toWorkItem(wi))
	}
	return items, nil
}

func toWorkItem(wi workItemResponse) models.WorkItem {
	item := models.WorkItem{
		ID:          wi.ID,
		Title:       stringField(wi.Fields, "System.Title"),
		Type:        stringField(wi.Fields, "System.WorkItemType"),
		State:       stringField(wi.Fields, "System.State"),
		AreaPath:    stringField(wi.Fields, "System.AreaPath"),
		Description: stringField(wi.Fields, "System.Description"),
		AssignedTo:  unassigned,
	}
	if raw, ok := wi.Fields["System.AssignedTo"]; ok {
		var identity struct {
			DisplayName string `json:"displayName"`
		}
		if err := json.Unmarshal(raw, &identity); err == nil && identity.DisplayName != "" {
			item.AssignedTo = identity.DisplayName
		}
	}
	return item
}

func stringField(fields map[string]json.RawMessage, name string) string {
	raw, ok := fields[name]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

type classificationNode struct {
	ID       int                  `json:"id"`
	Name     string               `json:"name"`
	Children []classificationNode `json:"children"`
}

// ListAreaPaths returns every area under the project root. A project without
// sub areas yields the root alone.
func (c *Client) ListAreaPaths(ctx context.Context, project string) ([]models.AreaPath, error) {
	if project == "" {
		project = c.project
	}
	endpoint := fmt.Sprintf("%s/%s/_apis/wit/classificationnodes/areas?$depth=100&api-version=%s",
		c.orgURL, url.PathEscape(project), apiVersion)

	var root classificationNode
	if err := c.do(ctx, http.MethodGet, endpoint, "", nil, &root); err != nil {
		return nil, err
	}
	return flattenAreas(root), nil
}

func flattenAreas(root classificationNode) []models.AreaPath {
	if len(root.Children) == 0 {
		return []models.AreaPath{{Name: root.Name, Path: root.Name, ID: strconv.Itoa(root.ID)}}
	}
	var areas []models.AreaPath
	var walk func(node classificationNode, parent string)
	walk = func(node classificationNode, parent string) {
		path := node.Name
		if parent != "" {
			path = parent + `\` + node.Name
		}
		areas = append(areas, models.AreaPath{Name: node.Name, Path: path, ID: strconv.Itoa(node.ID)})
		for _, child := range node.Children {
			walk(child, path)
		}
	}
	for _, child := range root.Children {
		walk(child, "")
	}
	return areas
}

func (c *Client) DeleteWorkItem(ctx context.Context, id int) error {
	if id <= 0 {
		return domainErrors.ErrInvalidWorkItemID.WithContext("id", id)
	}
	endpoint := fmt.Sprintf("%s/%s/_apis/wit/workitems/%d?api-version=%s",
		c.orgURL, url.PathEscape(c.project), id, apiVersion)
	if err := c.do(ctx, http.MethodDelete, endpoint, "", nil, nil); err != nil {
		return err
	}
	logger.Info(ctx, "work item deleted", "id", id)
	return nil
}

// do sends a request and decodes a JSON response into out when out is not nil.
func (c *Client) do(ctx context.Context, method, endpoint, contentType string, body []byte, out any) error {
	resp, err := c.send(ctx, method, endpoint, contentType, body)
	if err != nil {
		return err
	}
	return decode(resp, out)
}

func (c *Client) send(ctx context.Context, method, endpoint, contentType string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, domainErrors.ErrTrackerRequest.WithError(err)
	}
	req.Header.Set("Accept", contentTypeJSON)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, domainErrors.ErrTrackerRequest.WithError(err).WithContext("method", method)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		defer closeBody(resp)
		return nil, statusError(resp)
	}
	return resp, nil
}

func decode(resp *http.Response, out any) error {
	defer closeBody(resp)
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return domainErrors.ErrTrackerRequest.WithError(fmt.Errorf("decoding response: %w", err))
	}
	return nil
}

func statusError(resp *http.Response) error {
	body := httpclient.ReadErrorBody(resp)
	var base *domainErrors.AppError
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		base = domainErrors.ErrTrackerUnauthorized
	case http.StatusNotFound:
		base = domainErrors.ErrTrackerNotFound
	default:
		base = domainErrors.ErrTrackerRequest
	}
	return base.
		WithContext("status", resp.StatusCode).
		WithContext("response", body)
}

func closeBody(resp *http.Response) {
	_ = resp.Body.Close()
}
