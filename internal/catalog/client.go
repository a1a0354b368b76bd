package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dfedorov/statement-desk/internal/domain"
	"github.com/dfedorov/statement-desk/internal/rules"
	"github.com/dfedorov/statement-desk/internal/workspace"
)

// Client is the typed HTTP client for a remote catalog service. Status codes
// are mapped back onto the same domain sentinels the service raises, so
// callers handle local and remote catalogs identically.
type Client struct {
	baseURL    string
	owner      string
	httpClient *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithOwner scopes all requests to an owner identity.
func WithOwner(owner string) ClientOption {
	return func(c *Client) { c.owner = owner }
}

// WithClientHTTP swaps the underlying HTTP client.
func WithClientHTTP(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a catalog client against a base URL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListGroups fetches all groups for the owner.
func (c *Client) ListGroups(ctx context.Context) ([]domain.CategoryGroup, error) {
	var resp struct {
		Groups []domain.CategoryGroup `json:"groups"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/category-groups", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Groups, nil
}

// CreateGroup creates a group seeded with the default categories.
func (c *Client) CreateGroup(ctx context.Context, name string) (*domain.CategoryGroup, error) {
	var g domain.CategoryGroup
	err := c.do(ctx, http.MethodPost, "/api/v1/category-groups", map[string]string{"name": name}, &g)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// GetGroup fetches one group.
func (c *Client) GetGroup(ctx context.Context, id string) (*domain.CategoryGroup, error) {
	var g domain.CategoryGroup
	if err := c.do(ctx, http.MethodGet, "/api/v1/category-groups/"+id, nil, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// RenameGroup changes a group's name.
func (c *Client) RenameGroup(ctx context.Context, id, name string) (*domain.CategoryGroup, error) {
	var g domain.CategoryGroup
	err := c.do(ctx, http.MethodPatch, "/api/v1/category-groups/"+id, map[string]string{"name": name}, &g)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// DeleteGroup removes a group.
func (c *Client) DeleteGroup(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/category-groups/"+id, nil, nil)
}

// ActivateGroup makes a group the owner's active one.
func (c *Client) ActivateGroup(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/api/v1/category-groups/"+id+"/activate", nil, nil)
}

// CategoryResult is a category mutation outcome plus its optional advisory.
type CategoryResult struct {
	Category domain.CategoryItem `json:"category"`
	Warning  *rules.Warning      `json:"warning,omitempty"`
}

// AddCategory appends a category to a group.
func (c *Client) AddCategory(ctx context.Context, groupID, name, description string) (*CategoryResult, error) {
	var out CategoryResult
	err := c.do(ctx, http.MethodPost, "/api/v1/category-groups/"+groupID+"/categories",
		map[string]string{"name": name, "description": description}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateCategory applies a partial category update.
func (c *Client) UpdateCategory(ctx context.Context, categoryID string, patch CategoryPatch) (*CategoryResult, error) {
	body := map[string]any{}
	if patch.Name != nil {
		body["name"] = *patch.Name
	}
	if patch.Description != nil {
		body["description"] = *patch.Description
	}
	if patch.SortOrder != nil {
		body["sort_order"] = *patch.SortOrder
	}
	var out CategoryResult
	err := c.do(ctx, http.MethodPatch, "/api/v1/categories/"+categoryID, body, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteCategory removes a category.
func (c *Client) DeleteCategory(ctx context.Context, categoryID string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/categories/"+categoryID, nil, nil)
}

// RuleResult is a rule creation outcome plus its optional advisory.
type RuleResult struct {
	Rule    domain.CategoryRule `json:"rule"`
	Warning *rules.Warning      `json:"warning,omitempty"`
}

// AddRule attaches a rule to a category.
func (c *Client) AddRule(ctx context.Context, categoryID string, ruleType domain.RuleType, pattern string) (*RuleResult, error) {
	var out RuleResult
	err := c.do(ctx, http.MethodPost, "/api/v1/categories/"+categoryID+"/rules",
		map[string]string{"rule_type": string(ruleType), "pattern": pattern}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateRule applies a partial rule update.
func (c *Client) UpdateRule(ctx context.Context, ruleID string, patch RulePatch) (*RuleResult, error) {
	body := map[string]any{}
	if patch.RuleType != nil {
		body["rule_type"] = string(*patch.RuleType)
	}
	if patch.Pattern != nil {
		body["pattern"] = *patch.Pattern
	}
	var out RuleResult
	err := c.do(ctx, http.MethodPatch, "/api/v1/rules/"+ruleID, body, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteRule removes one rule.
func (c *Client) DeleteRule(ctx context.Context, ruleID string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/rules/"+ruleID, nil, nil)
}

// ApplyRules reruns rule resolution remotely. An empty groupID targets the
// active group.
func (c *Client) ApplyRules(ctx context.Context, groupID string, transactions []domain.Transaction) ([]rules.Outcome, int, error) {
	path := "/api/v1/apply-rules"
	if groupID != "" {
		path = "/api/v1/category-groups/" + groupID + "/apply-rules"
	}
	var resp struct {
		Results      []rules.Outcome `json:"results"`
		RulesApplied int             `json:"rules_applied"`
	}
	err := c.do(ctx, http.MethodPost, path, map[string]any{"transactions": transactions}, &resp)
	if err != nil {
		return nil, 0, err
	}
	return resp.Results, resp.RulesApplied, nil
}

// LoadSession fetches the persisted session state.
func (c *Client) LoadSession(ctx context.Context) (*workspace.State, error) {
	var state workspace.State
	if err := c.do(ctx, http.MethodGet, "/api/v1/session", nil, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// SaveSession persists the session state.
func (c *Client) SaveSession(ctx context.Context, state workspace.State) error {
	return c.do(ctx, http.MethodPut, "/api/v1/session", state, nil)
}

// ClearSession drops the persisted session state.
func (c *Client) ClearSession(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/session", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.owner != "" {
		req.Header.Set("X-Owner-ID", c.owner)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if err := statusError(resp); err != nil {
		return err
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func statusError(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	reason := resp.Status
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error != "" {
		reason = body.Error
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%s: %w", reason, domain.ErrSessionExpired)
	case http.StatusNotFound:
		return fmt.Errorf("%s: %w", reason, domain.ErrNotFound)
	case http.StatusConflict:
		return fmt.Errorf("%s: %w", reason, domain.ErrConflict)
	case http.StatusBadRequest:
		return fmt.Errorf("%s: %w", reason, domain.ErrInvalid)
	default:
		return fmt.Errorf("catalog service: %s", reason)
	}
}
