// Package qonto implements the authenticated client for the Qonto
// third-party banking API: organization lookup, paginated transaction
// streaming, transport-level retries, and rate-limit handling.
package qonto

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/qonto-ledger-sync/internal/config"
	"github.com/qonto-ledger-sync/internal/domain/banking"
)

const (
	// ProductionBaseURL is the live third-party API
	ProductionBaseURL = "https://thirdparty.qonto.com/v2/"
	// SandboxBaseURL is the test environment
	SandboxBaseURL = "https://thirdparty-sandbox.qonto.com/v2/"

	endpointOrganization = "organization"
	endpointTransactions = "transactions"

	// DefaultPageSize matches the API's page cap
	DefaultPageSize = 100
	// MaxPageSize is enforced by the API regardless of the requested size
	MaxPageSize = 100

	// defaultRetryAfter applies when a 429 carries no Retry-After header
	defaultRetryAfter = 60 * time.Second

	userAgent = "qonto-ledger-sync/1.0"
)

// Client is a Qonto API client. It is safe for concurrent use.
type Client struct {
	baseURL    string
	login      string
	secretKey  string
	pageSize   int
	httpClient *http.Client
	logger     *slog.Logger

	// sleep is the rate-limit wait; injectable so tests don't block
	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient creates a client for the environment named in the configuration
func NewClient(logger *slog.Logger, cfg *config.QontoConfig) *Client {
	baseURL := SandboxBaseURL
	if cfg.Environment == config.QontoEnvironmentProduction {
		baseURL = ProductionBaseURL
	}

	pageSize := cfg.PageSize
	if pageSize <= 0 || pageSize > MaxPageSize {
		pageSize = DefaultPageSize
	}

	return &Client{
		baseURL:   baseURL,
		login:     cfg.APILogin,
		secretKey: cfg.APISecretKey,
		pageSize:  pageSize,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &retryTransport{
				base:       http.DefaultTransport,
				maxRetries: cfg.MaxRetries,
				backoff:    cfg.BackoffFactor,
			},
		},
		logger: logger,
		sleep:  sleepContext,
	}
}

// Organization is the Qonto organization profile with its bank accounts
type Organization struct {
	Slug         string        `json:"slug"`
	Name         string        `json:"name"`
	LegalName    string        `json:"legal_name"`
	BankAccounts []BankAccount `json:"bank_accounts"`
}

// DisplayName returns the organization's name, falling back to its legal name
func (o *Organization) DisplayName() string {
	if o.Name != "" {
		return o.Name
	}
	return o.LegalName
}

// BankAccount is one account inside the organization profile
type BankAccount struct {
	Slug         string          `json:"slug"`
	Name         string          `json:"name"`
	IBAN         string          `json:"iban"`
	BIC          string          `json:"bic"`
	Currency     string          `json:"currency"`
	Balance      decimal.Decimal `json:"balance"`
	BalanceCents int64           `json:"balance_cents"`
	Status       string          `json:"status"`
}

type organizationResponse struct {
	Organization Organization `json:"organization"`
}

type pageMeta struct {
	CurrentPage int `json:"current_page"`
	TotalPages  int `json:"total_pages"`
	TotalCount  int `json:"total_count"`
	PerPage     int `json:"per_page"`
}

// transactionsResponse keeps items raw so the original payload can be
// preserved verbatim on the normalized record.
type transactionsResponse struct {
	Transactions []json.RawMessage `json:"transactions"`
	Meta         pageMeta          `json:"meta"`
}

// apiTransaction is the wire shape of one Qonto transaction
type apiTransaction struct {
	TransactionID    string          `json:"transaction_id"`
	Amount           decimal.Decimal `json:"amount"`
	Side             string          `json:"side"`
	Status           string          `json:"status"`
	Currency         string          `json:"currency"`
	Label            string          `json:"label"`
	Reference        string          `json:"reference"`
	CounterpartyName string          `json:"counterparty_name"`
	OperationType    string          `json:"operation_type"`
	SettledAt        *time.Time      `json:"settled_at"`
	EmittedAt        time.Time       `json:"emitted_at"`
	AttachmentIDs    []string        `json:"attachment_ids"`
}

// FetchOrganization retrieves the organization profile, including the nested
// bank-account list. Also serves as the connection test.
func (c *Client) FetchOrganization(ctx context.Context) (*Organization, error) {
	var resp organizationResponse
	if err := c.request(ctx, http.MethodGet, endpointOrganization, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Organization, nil
}

// ListAccounts returns the organization's bank accounts
func (c *Client) ListAccounts(ctx context.Context) ([]BankAccount, error) {
	org, err := c.FetchOrganization(ctx)
	if err != nil {
		return nil, err
	}
	return org.BankAccounts, nil
}

// Transactions opens a lazy paginated stream over one account's
// transactions. Pages are fetched strictly in order; a rate-limited page is
// retried in place after the advertised wait, invisibly to the consumer.
func (c *Client) Transactions(accountID string, updatedSince *time.Time, statuses []banking.TransactionStatus) banking.Stream {
	return &TransactionStream{
		client:       c,
		accountID:    accountID,
		updatedSince: updatedSince,
		statuses:     statuses,
		page:         1,
	}
}

// listTransactionsPage fetches a single page. RateLimitError is returned to
// the stream for its sleep-and-retry handling.
func (c *Client) listTransactionsPage(ctx context.Context, accountID string, updatedSince *time.Time, statuses []banking.TransactionStatus, page int) (*transactionsResponse, error) {
	params := url.Values{}
	params.Set("bank_account_id", accountID)
	params.Set("per_page", strconv.Itoa(c.pageSize))
	params.Set("page", strconv.Itoa(page))
	if updatedSince != nil {
		params.Set("updated_at_from", updatedSince.UTC().Format(time.RFC3339))
	}
	for _, status := range statuses {
		params.Add("status[]", string(status))
	}

	var resp transactionsResponse
	if err := c.request(ctx, http.MethodGet, endpointTransactions, params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// request performs one API call and maps the HTTP outcome onto the error
// taxonomy: 401 to AuthError, 429 to RateLimitError, anything else failing
// to APIError.
func (c *Client) request(ctx context.Context, method, endpoint string, params url.Values, out any) error {
	reqURL := c.baseURL + endpoint
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
	if err != nil {
		return &APIError{Message: err.Error(), Err: err}
	}

	req.Header.Set("Authorization", c.login+":"+c.secretKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Qonto API request failed", "method", method, "endpoint", endpoint, "error", err)
		return &APIError{Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return &AuthError{Message: "invalid API credentials"}
	case resp.StatusCode == http.StatusTooManyRequests:
		return &RateLimitError{RetryAfter: retryAfterFrom(resp)}
	case resp.StatusCode >= 400:
		return &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &APIError{StatusCode: resp.StatusCode, Message: "invalid response body", Err: err}
		}
	}
	return nil
}

// retryAfterFrom reads the throttle wait from the Retry-After header
func retryAfterFrom(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if seconds, err := strconv.Atoi(v); err == nil && seconds >= 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultRetryAfter
}

// normalizeTransaction converts a raw API item into the canonical record.
// The rules are fixed: posting date is the settlement timestamp when present
// and the emission timestamp otherwise; debit amounts are negated; the
// description joins label, reference and counterparty name.
func normalizeTransaction(raw json.RawMessage) (*banking.Transaction, error) {
	var tx apiTransaction
	if err := json.Unmarshal(raw, &tx); err != nil {
		return nil, fmt.Errorf("failed to decode transaction payload: %w", err)
	}
	if tx.TransactionID == "" {
		return nil, fmt.Errorf("transaction payload has no transaction_id")
	}

	postingDate := tx.EmittedAt
	if tx.SettledAt != nil {
		postingDate = *tx.SettledAt
	}

	amount := tx.Amount
	if tx.Side == string(banking.SideDebit) {
		amount = amount.Neg()
	}

	currency := tx.Currency
	if currency == "" {
		currency = "EUR"
	}

	return &banking.Transaction{
		ExternalID:    tx.TransactionID,
		PostingDate:   postingDate,
		Amount:        amount,
		Currency:      currency,
		Description:   buildDescription(tx),
		Status:        banking.TransactionStatus(tx.Status),
		Side:          banking.TransactionSide(tx.Side),
		OperationType: tx.OperationType,
		AttachmentIDs: tx.AttachmentIDs,
		Raw:           raw,
	}, nil
}

// buildDescription joins the non-empty parts of [label, reference,
// counterparty name] with an em-dash separator, falling back to a fixed
// placeholder when all three are absent.
func buildDescription(tx apiTransaction) string {
	parts := make([]string, 0, 3)
	if tx.Label != "" {
		parts = append(parts, tx.Label)
	}
	if tx.Reference != "" {
		parts = append(parts, tx.Reference)
	}
	if tx.CounterpartyName != "" {
		parts = append(parts, tx.CounterpartyName)
	}

	if len(parts) == 0 {
		return "Qonto Transaction"
	}
	return strings.Join(parts, " — ")
}

// sleepContext waits for d unless the context ends first
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
