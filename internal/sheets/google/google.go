package google

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"finboard/internal/core"
	"finboard/internal/log"
	ports "finboard/internal/sheets"
	"finboard/internal/taxonomy"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Client reads transactions and the category tree from a spreadsheet.
type Client struct {
	svc               *gsheet.Service
	spreadsheetID     string
	transactionsSheet string
	categoriesSheet   string
	logger            *log.Logger
}

// Ensure interface conformance
var (
	_ ports.TransactionSource = (*Client)(nil)
	_ ports.CategorySource    = (*Client)(nil)
)

// Options configures a Client.
type Options struct {
	SpreadsheetID     string
	TransactionsSheet string
	CategoriesSheet   string
	// Service account credentials; JSON wins over File when both are set.
	CredentialsJSON string
	CredentialsFile string
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, opts Options, logger *log.Logger) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if logger == nil {
		logger = log.Nop()
	}
	logger = logger.WithComponent(log.ComponentSheets)

	creds, err := credentials(opts)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	logger.InfoContext(ctx, "Google Sheets service created",
		"spreadsheet_id", opts.SpreadsheetID,
		"transactions_sheet", opts.TransactionsSheet,
		"categories_sheet", opts.CategoriesSheet)
	return newClient(svc, opts, logger), nil
}

// NewWithEndpoint creates an unauthenticated client talking to endpoint.
// Used against local emulators and in tests.
func NewWithEndpoint(ctx context.Context, endpoint string, opts Options, logger *log.Logger) (*Client, error) {
	svc, err := gsheet.NewService(ctx,
		goption.WithEndpoint(endpoint),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(newHTTPClientWithPooling()))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	if logger == nil {
		logger = log.Nop()
	}
	return newClient(svc, opts, logger.WithComponent(log.ComponentSheets)), nil
}

func newClient(svc *gsheet.Service, opts Options, logger *log.Logger) *Client {
	txSheet := strings.TrimSpace(opts.TransactionsSheet)
	if txSheet == "" {
		txSheet = "Transactions"
	}
	catSheet := strings.TrimSpace(opts.CategoriesSheet)
	if catSheet == "" {
		catSheet = "Categories"
	}
	return &Client{
		svc:               svc,
		spreadsheetID:     opts.SpreadsheetID,
		transactionsSheet: txSheet,
		categoriesSheet:   catSheet,
		logger:            logger,
	}
}

func credentials(opts Options) ([]byte, error) {
	switch {
	case strings.TrimSpace(opts.CredentialsJSON) != "":
		return []byte(opts.CredentialsJSON), nil
	case strings.TrimSpace(opts.CredentialsFile) != "":
		data, err := os.ReadFile(opts.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}
}

// newHTTPClientWithPooling creates an HTTP client with connection pooling
// and bounded timeouts for the Sheets API.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}

// ListTransactions reads the transactions sheet. The first row must be a
// header naming the columns.
func (c *Client) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	values, err := c.read(ctx, c.transactionsSheet, "A:I")
	if err != nil {
		return nil, err
	}
	txs, skipped, err := parseTransactions(values)
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		c.logger.WarnContext(ctx, "Transactions with unusable date or amount",
			log.FieldSkipped, skipped,
			log.FieldTransactions, len(txs))
	}
	return txs, nil
}

// CategoryTree reads the categories sheet and validates the resulting tree.
func (c *Client) CategoryTree(ctx context.Context) (*taxonomy.Tree, error) {
	values, err := c.read(ctx, c.categoriesSheet, "A:G")
	if err != nil {
		return nil, err
	}
	nodes, err := parseCategories(values)
	if err != nil {
		return nil, err
	}
	return taxonomy.NewTree(nodes)
}

func (c *Client) read(ctx context.Context, sheetName, cols string) ([][]interface{}, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!%s", sheetName, cols)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}
