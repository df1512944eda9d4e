// Package openlibrary provides a client for the Open Library search API used
// by the textbook search aggregator.
package openlibrary

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/example/unispaces/internal/application"
)

// DefaultBaseURL is the public Open Library endpoint. The API is free and
// requires no key.
const DefaultBaseURL = "https://openlibrary.org"

// Client queries the Open Library search index.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a client. A nil httpClient gets a 5 second timeout,
// keeping library searches responsive when the external index is slow.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	return &Client{baseURL: baseURL, httpClient: httpClient}
}

type searchResponse struct {
	Docs []searchDoc `json:"docs"`
}

type searchDoc struct {
	Title            string   `json:"title"`
	AuthorName       []string `json:"author_name"`
	FirstPublishYear int      `json:"first_publish_year"`
	Key              string   `json:"key"`
	CoverID          int64    `json:"cover_i"`
	HasFulltext      bool     `json:"has_fulltext"`
	EbookCount       int      `json:"ebook_count_i"`
	IA               []string `json:"ia"`
	ISBN             []string `json:"isbn"`
}

// SearchBooks queries search.json and maps each document into a BookResult,
// deriving cover and shopping URLs the same way the web UI consumes them.
func (c *Client) SearchBooks(ctx context.Context, query string, limit int) ([]application.BookResult, error) {
	endpoint := fmt.Sprintf("%s/search.json?q=%s&limit=%d", c.baseURL, url.QueryEscape(query), limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("open library call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("open library returned status %d", resp.StatusCode)
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	results := make([]application.BookResult, 0, len(parsed.Docs))
	for _, doc := range parsed.Docs {
		results = append(results, mapDoc(doc))
	}
	return results, nil
}

func mapDoc(doc searchDoc) application.BookResult {
	result := application.BookResult{
		Title:       doc.Title,
		Author:      joinAuthors(doc.AuthorName),
		Year:        doc.FirstPublishYear,
		Key:         doc.Key,
		HasFulltext: doc.HasFulltext,
		EbookCount:  doc.EbookCount,
	}

	if doc.CoverID != 0 {
		result.CoverURL = fmt.Sprintf("https://covers.openlibrary.org/b/id/%d-M.jpg", doc.CoverID)
	}
	if len(doc.IA) > 0 {
		result.ArchiveID = doc.IA[0]
	}
	if len(doc.ISBN) > 0 {
		result.ShoppingURL = "https://www.google.com/search?tbm=shop&q=isbn:" + url.QueryEscape(doc.ISBN[0])
	} else {
		result.ShoppingURL = "https://www.google.com/search?tbm=shop&q=" + url.QueryEscape(doc.Title)
	}
	return result
}

// joinAuthors keeps the first two author names, matching the result card
// layout.
func joinAuthors(names []string) string {
	if len(names) > 2 {
		names = names[:2]
	}
	return strings.Join(names, ", ")
}
