// Package search issues free-text queries to a web answer service and
// returns the raw passages it finds.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/mikeboe/prospect-research/pkg/metrics"
	"github.com/mikeboe/prospect-research/pkg/splitter"
)

const (
	DefaultBaseURL = "https://api.perplexity.ai/chat/completions"
	DefaultModel   = "sonar"

	defaultTimeout     = 30 * time.Second
	passageChunkSize   = 1500
	passageOverlap     = 100
	maxPassagesPerCall = 3
)

// Passage is one titled, sourced block of text returned for a query.
type Passage struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// Options configures a PerplexityClient. Zero values take defaults.
type Options struct {
	APIKey            string
	BaseURL           string
	Model             string
	Timeout           time.Duration
	RequestsPerSecond float64
	HTTPClient        *http.Client
	Logger            *slog.Logger
}

// PerplexityClient queries the Perplexity chat completions API. It never
// returns an error: every failure degrades to an empty result.
type PerplexityClient struct {
	apiKey   string
	baseURL  string
	model    string
	timeout  time.Duration
	http     *http.Client
	limiter  *rate.Limiter
	splitter *splitter.PassageSplitter
	logger   *slog.Logger
}

func NewPerplexityClient(opts Options) *PerplexityClient {
	c := &PerplexityClient{
		apiKey:   opts.APIKey,
		baseURL:  opts.BaseURL,
		model:    opts.Model,
		timeout:  opts.Timeout,
		http:     opts.HTTPClient,
		logger:   opts.Logger,
		splitter: splitter.NewPassageSplitter(passageChunkSize, passageOverlap, maxPassagesPerCall),
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.model == "" {
		c.model = DefaultModel
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if opts.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return c
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Citations     []string `json:"citations"`
	SearchResults []struct {
		Title string `json:"title"`
		URL   string `json:"url"`
		Date  string `json:"date"`
	} `json:"search_results"`
}

// Search runs a single query.
func (c *PerplexityClient) Search(ctx context.Context, query string) []Passage {
	if c.apiKey == "" {
		c.logger.Warn("Search skipped: no API key configured", "query", query)
		return nil
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			c.logger.Warn("Search rate limiter wait failed", "query", query, "error", err)
			return nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.do(ctx, query)
	if err != nil {
		metrics.SearchFailures.Inc()
		c.logger.Warn("Search failed", "query", query, "error", err)
		return nil
	}

	passages := c.toPassages(query, resp)
	c.logger.Info("Search completed", "query", query, "passages", len(passages))
	return passages
}

func (c *PerplexityClient) do(ctx context.Context, query string) (*chatResponse, error) {
	body, err := json.Marshal(chatRequest{
		Model:     c.model,
		Messages:  []chatMessage{{Role: "user", Content: query}},
		MaxTokens: 800,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	httpResp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make API request: %w", err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, fmt.Errorf("API request failed with status: %s, body: %s", httpResp.Status, truncate(string(raw), 300))
	}

	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal search response: %w", err)
	}
	return &out, nil
}

func (c *PerplexityClient) toPassages(query string, resp *chatResponse) []Passage {
	if len(resp.Choices) == 0 {
		return nil
	}

	chunks := c.splitter.Split(resp.Choices[0].Message.Content)
	passages := make([]Passage, 0, len(chunks))
	for i, chunk := range chunks {
		title, url := query, ""
		switch {
		case i < len(resp.SearchResults):
			title, url = resp.SearchResults[i].Title, resp.SearchResults[i].URL
		case i < len(resp.Citations):
			url = resp.Citations[i]
		case len(resp.Citations) > 0:
			url = resp.Citations[0]
		}
		if title == "" {
			title = query
		}
		passages = append(passages, Passage{Title: title, URL: url, Content: chunk})
	}
	return passages
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
