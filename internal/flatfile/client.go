// Package flatfile reads a pre-aggregated surge table from a delimited file
// served over HTTP. Deployments without direct time-series access use it as a
// drop-in substitute for the live ranking calculator.
package flatfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"oi-radar/internal/domain"
)

// Default configuration values.
const (
	DefaultTimeout   = 5 * time.Second
	DefaultDelimiter = ','
)

// Entry is one row of the pre-aggregated surge table.
type Entry struct {
	Symbol             string
	IncreaseRatio      float64
	IncreaseAmountUSDT *float64
	Price              *float64
	CircSupply         *float64
}

// Client fetches and decodes the surge table.
type Client struct {
	endpoint  string
	client    *http.Client
	delimiter rune
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// WithDelimiter sets the column delimiter.
func WithDelimiter(d rune) ClientOption {
	return func(c *Client) {
		c.delimiter = d
	}
}

// NewClient creates a surge table client for the given URL.
func NewClient(endpoint string, opts ...ClientOption) *Client {
	c := &Client{
		endpoint:  endpoint,
		client:    &http.Client{Timeout: DefaultTimeout},
		delimiter: DefaultDelimiter,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch downloads the table and returns rows with increase_ratio above
// threshold, sorted descending by increase_ratio. Rows whose symbol or
// increase_ratio cannot be parsed are dropped; the remaining numeric columns
// are absent when missing or non-positive.
func (c *Client) Fetch(ctx context.Context, threshold float64) ([]Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	entries, err := c.decode(resp.Body, threshold)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].IncreaseRatio > entries[j].IncreaseRatio
	})
	return entries, nil
}

// Required header columns.
const (
	colSymbol        = "symbol"
	colIncreaseRatio = "increase_ratio"
	colIncreaseUSDT  = "increase_amount_usdt"
	colPrice         = "price"
	colCircSupply    = "circ_supply"
)

func (c *Client) decode(r io.Reader, threshold float64) ([]Entry, error) {
	reader := csv.NewReader(r)
	reader.Comma = c.delimiter
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{colSymbol, colIncreaseRatio} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}

	var entries []Entry
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		symbol := domain.NormalizeSymbol(field(record, cols, colSymbol))
		if symbol == "" {
			continue
		}
		ratio, err := strconv.ParseFloat(field(record, cols, colIncreaseRatio), 64)
		if err != nil || ratio <= threshold {
			continue
		}

		entries = append(entries, Entry{
			Symbol:             symbol,
			IncreaseRatio:      ratio,
			IncreaseAmountUSDT: parseOptional(field(record, cols, colIncreaseUSDT)),
			Price:              parseOptional(field(record, cols, colPrice)),
			CircSupply:         parseOptional(field(record, cols, colCircSupply)),
		})
	}
	return entries, nil
}

func field(record []string, cols map[string]int, name string) string {
	idx, ok := cols[name]
	if !ok || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

// parseOptional keeps only strictly positive parseable values.
func parseOptional(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return nil
	}
	return &v
}

// Page returns the given 1-based page of entries. Out-of-range pages are
// empty; pageSize <= 0 returns everything.
func Page(entries []Entry, page, pageSize int) []Entry {
	if pageSize <= 0 {
		return entries
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * pageSize
	if start >= len(entries) {
		return nil
	}
	end := start + pageSize
	if end > len(entries) {
		end = len(entries)
	}
	return entries[start:end]
}
