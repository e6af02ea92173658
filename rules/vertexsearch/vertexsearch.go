package vertexsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	contractx "github.com/brandguard-ai/brandguard/audit/contract"
)

const maxResponseSizeBytes = 4 << 20

type Config struct {
	Endpoint      string        `envconfig:"ENDPOINT" split_words:"true" default:"https://discoveryengine.googleapis.com"`
	ServingConfig string        `envconfig:"SERVING_CONFIG" split_words:"true" required:"true"`
	AccessToken   string        `envconfig:"ACCESS_TOKEN" split_words:"true" required:"true"`
	Timeout       time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"15s"`
}

// Option customizes a Client.
type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// Client queries a managed document-search serving config over REST and maps
// ranked results into rule excerpts.
type Client struct {
	baseURL       string
	servingConfig string
	token         string
	httpClient    *http.Client
}

func New(cfg Config, opts ...Option) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	if baseURL == "" {
		return nil, errors.New("vertexsearch: endpoint is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("vertexsearch: invalid endpoint: %w", err)
	}

	servingConfig := strings.Trim(strings.TrimSpace(cfg.ServingConfig), "/")
	if servingConfig == "" {
		return nil, errors.New("vertexsearch: serving config is required")
	}

	token := strings.TrimSpace(cfg.AccessToken)
	if token == "" {
		return nil, errors.New("vertexsearch: access token is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	client := &Client{
		baseURL:       baseURL,
		servingConfig: servingConfig,
		token:         token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

type searchRequest struct {
	Query             string             `json:"query"`
	PageSize          int                `json:"pageSize"`
	ContentSearchSpec *contentSearchSpec `json:"contentSearchSpec,omitempty"`
}

type contentSearchSpec struct {
	ExtractiveContentSpec *extractiveContentSpec `json:"extractiveContentSpec,omitempty"`
}

type extractiveContentSpec struct {
	MaxExtractiveAnswerCount int `json:"maxExtractiveAnswerCount"`
}

type searchResponse struct {
	Results []searchResult `json:"results"`
}

type searchResult struct {
	Document searchDocument `json:"document"`
}

type searchDocument struct {
	Name              string          `json:"name"`
	DerivedStructData json.RawMessage `json:"derivedStructData"`
}

type derivedStructData struct {
	Title              string              `json:"title"`
	Link               string              `json:"link"`
	ExtractiveAnswers  []extractiveAnswer  `json:"extractive_answers"`
	ExtractiveSegments []extractiveSegment `json:"extractive_segments"`
}

type extractiveAnswer struct {
	Content string `json:"content"`
}

type extractiveSegment struct {
	Content string `json:"content"`
}

// Retrieve runs one search call and returns up to k excerpts. An empty
// result set is not an error; the caller decides whether to fall back.
func (c *Client) Retrieve(ctx context.Context, query string, k int) ([]contractx.RuleExcerpt, error) {
	if k <= 0 {
		k = 3
	}

	body, err := json.Marshal(searchRequest{
		Query:    query,
		PageSize: k,
		ContentSearchSpec: &contentSearchSpec{
			ExtractiveContentSpec: &extractiveContentSpec{MaxExtractiveAnswerCount: 1},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("vertexsearch: marshal search request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/%s:search", c.baseURL, c.servingConfig)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("vertexsearch: build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vertexsearch: search call: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return nil, fmt.Errorf("vertexsearch: read search response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("vertexsearch: search returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var parsed searchResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, fmt.Errorf("vertexsearch: decode search response: %w", err)
	}

	excerpts := make([]contractx.RuleExcerpt, 0, len(parsed.Results))
	for _, result := range parsed.Results {
		excerpt, ok := toExcerpt(result.Document)
		if !ok {
			continue
		}
		excerpts = append(excerpts, excerpt)
	}
	return excerpts, nil
}

// toExcerpt pulls the best available text out of a ranked document:
// extractive answers first, then extractive segments.
func toExcerpt(doc searchDocument) (contractx.RuleExcerpt, bool) {
	if len(doc.DerivedStructData) == 0 {
		return contractx.RuleExcerpt{}, false
	}

	var data derivedStructData
	if err := json.Unmarshal(doc.DerivedStructData, &data); err != nil {
		return contractx.RuleExcerpt{}, false
	}

	content := ""
	if len(data.ExtractiveAnswers) > 0 {
		content = data.ExtractiveAnswers[0].Content
	} else if len(data.ExtractiveSegments) > 0 {
		content = data.ExtractiveSegments[0].Content
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return contractx.RuleExcerpt{}, false
	}

	source := data.Title
	if source == "" {
		source = data.Link
	}
	return contractx.RuleExcerpt{
		Content: content,
		Source:  source,
	}, true
}
