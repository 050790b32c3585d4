// Package sonar talks to the SonarQube / SonarCloud web API.
package sonar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"sqfix/internal/issue"
)

const (
	defaultTimeout = 30 * time.Second
	pageSize       = 100
	ruleDetailMax  = 500
)

// Rule holds the details behind a rule key such as "python:S1481".
type Rule struct {
	Key      string `json:"key"`
	Name     string `json:"name"`
	HTMLDesc string `json:"htmlDesc"`
	Type     string `json:"type"`
	Severity string `json:"severity"`
}

// Client is a thin HTTP client for the issues and rules endpoints.
// The token is optional; unauthenticated requests work against public
// projects but may be rate-limited.
type Client struct {
	BaseURL string
	Token   string

	http *http.Client
}

// NewClient builds a client for the given server. An empty token falls
// back to the SONAR_TOKEN environment variable.
func NewClient(baseURL, token string) *Client {
	if token == "" {
		token = os.Getenv("SONAR_TOKEN")
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		http:    &http.Client{Timeout: defaultTimeout},
	}
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	if c.Token != "" {
		req.SetBasicAuth(c.Token, "")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("sonar: %s returned %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// GetRule fetches a single rule's details.
func (c *Client) GetRule(ctx context.Context, ruleKey string) (*Rule, error) {
	params := url.Values{"key": {ruleKey}}
	var payload struct {
		Rule Rule `json:"rule"`
	}
	if err := c.get(ctx, "/api/rules/show", params, &payload); err != nil {
		return nil, err
	}
	if payload.Rule.Key == "" {
		payload.Rule.Key = ruleKey
	}
	return &payload.Rule, nil
}

// SearchRules lists rules for a language, optionally filtered by a query.
func (c *Client) SearchRules(ctx context.Context, language, query string) ([]Rule, error) {
	params := url.Values{
		"languages": {language},
		"ps":        {strconv.Itoa(pageSize)},
	}
	if query != "" {
		params.Set("q", query)
	}
	var payload struct {
		Rules []Rule `json:"rules"`
	}
	if err := c.get(ctx, "/api/rules/search", params, &payload); err != nil {
		return nil, err
	}
	return payload.Rules, nil
}

// SearchIssues pages through unresolved issues for a project until limit
// non-external issues are collected or the server runs out of pages.
// Issues raised by external linters (rule keys starting with "external_")
// are excluded because their rules cannot be looked up.
func (c *Client) SearchIssues(ctx context.Context, projectKey string, limit int) ([]issue.Issue, error) {
	var collected []issue.Issue
	page := 1

	for len(collected) < limit {
		params := url.Values{
			"componentKeys": {projectKey},
			"types":         {"CODE_SMELL,BUG,VULNERABILITY"},
			"resolved":      {"false"},
			"ps":            {strconv.Itoa(pageSize)},
			"p":             {strconv.Itoa(page)},
		}
		var payload issue.SearchResponse
		if err := c.get(ctx, "/api/issues/search", params, &payload); err != nil {
			return nil, err
		}

		for _, is := range payload.Issues {
			if strings.HasPrefix(is.Rule, "external_") {
				continue
			}
			collected = append(collected, is)
		}

		if page*pageSize >= payload.Total || len(payload.Issues) == 0 {
			break
		}
		page++
	}

	if len(collected) > limit {
		collected = collected[:limit]
	}
	return collected, nil
}

var htmlTag = regexp.MustCompile(`<[^>]+>`)

// RuleDetail turns a rule's HTML description into plain text bounded
// for prompt use. Returns "" when there is nothing usable.
func RuleDetail(r *Rule) string {
	if r == nil || r.HTMLDesc == "" {
		return ""
	}
	clean := htmlTag.ReplaceAllString(r.HTMLDesc, "")
	clean = strings.TrimSpace(clean)
	if len(clean) > ruleDetailMax {
		clean = clean[:ruleDetailMax]
	}
	return clean
}
