// Package restapi reads the dataset from the transaction/category REST
// service. Transactions are paginated; pages after the first are fetched
// concurrently and reassembled in page order.
package restapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"finboard/internal/core"
	"finboard/internal/log"
	ports "finboard/internal/sheets"
	"finboard/internal/taxonomy"

	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"
)

// Ensure interface conformance
var (
	_ ports.TransactionSource = (*Client)(nil)
	_ ports.CategorySource    = (*Client)(nil)
)

// ErrStatus is wrapped by errors for non-2xx responses.
var ErrStatus = errors.New("unexpected status")

// Page is one page of GET /transactions.
type Page struct {
	Items      []core.Transaction `json:"items"`
	Page       int                `json:"page"`
	TotalPages int                `json:"total_pages"`
}

type Options struct {
	BaseURL     string
	PageSize    int
	Concurrency int
	Timeout     time.Duration
	HTTPClient  *http.Client
}

type Client struct {
	base        *url.URL
	pageSize    int
	concurrency int
	http        *http.Client
	logger      *log.Logger
}

func New(opts Options, logger *log.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil || (base.Scheme != "http" && base.Scheme != "https") {
		return nil, fmt.Errorf("invalid base url %q", opts.BaseURL)
	}
	if opts.PageSize < 1 {
		opts.PageSize = 500
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 4
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Client{
		base:        base,
		pageSize:    opts.PageSize,
		concurrency: opts.Concurrency,
		http:        hc,
		logger:      logger.WithComponent(log.ComponentREST),
	}, nil
}

// CategoryTree fetches GET /categories and validates it.
func (c *Client) CategoryTree(ctx context.Context) (*taxonomy.Tree, error) {
	var types []taxonomy.TypeNode
	if err := c.get(ctx, "categories", nil, &types); err != nil {
		return nil, fmt.Errorf("fetch categories: %w", err)
	}
	return taxonomy.Build(types)
}

// ListTransactions fetches every page of GET /transactions. The result is
// the concatenation of pages in page order; any page failure fails the
// whole fetch.
func (c *Client) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	start := time.Now()
	first, err := c.page(ctx, 1)
	if err != nil {
		return nil, err
	}
	if first.TotalPages <= 1 {
		return first.Items, nil
	}

	pages := make([][]core.Transaction, first.TotalPages)
	pages[0] = first.Items

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for n := 2; n <= first.TotalPages; n++ {
		n := n
		g.Go(func() error {
			p, err := c.page(gctx, n)
			if err != nil {
				return err
			}
			pages[n-1] = p.Items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []core.Transaction
	for _, items := range pages {
		out = append(out, items...)
	}
	c.logger.DebugContext(ctx, "Transactions fetched",
		"pages", first.TotalPages,
		log.FieldTransactions, len(out),
		log.FieldDuration, time.Since(start).Milliseconds())
	return out, nil
}

func (c *Client) page(ctx context.Context, n int) (*Page, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(n))
	q.Set("page_size", strconv.Itoa(c.pageSize))
	var p Page
	if err := c.get(ctx, "transactions", q, &p); err != nil {
		return nil, fmt.Errorf("fetch transactions page %d: %w", n, err)
	}
	return &p, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.base.JoinPath(path)
	if query != nil {
		u.RawQuery = query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w %d: %s", ErrStatus, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
