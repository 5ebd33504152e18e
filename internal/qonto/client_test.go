package qonto

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qonto-ledger-sync/internal/config"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func newTestClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	client := NewClient(newTestLogger(), &config.QontoConfig{
		Environment:   config.QontoEnvironmentSandbox,
		APILogin:      "test-login",
		APISecretKey:  "test-secret",
		PageSize:      100,
		MaxRetries:    3,
		BackoffFactor: time.Millisecond,
		Timeout:       5 * time.Second,
	})
	client.baseURL = serverURL + "/"
	return client
}

func TestClient_FetchOrganization(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/organization", r.URL.Path)
			assert.Equal(t, "test-login:test-secret", r.Header.Get("Authorization"))
			assert.Equal(t, "application/json", r.Header.Get("Accept"))

			_, _ = w.Write([]byte(`{"organization":{"slug":"acme-corp","legal_name":"ACME Corp SAS","bank_accounts":[{"slug":"acme-main","iban":"FR7616798000010000001234567","currency":"EUR","status":"active"}]}}`))
		}))
		defer server.Close()

		client := newTestClient(t, server.URL)
		org, err := client.FetchOrganization(context.Background())
		require.NoError(t, err)

		assert.Equal(t, "acme-corp", org.Slug)
		assert.Equal(t, "ACME Corp SAS", org.DisplayName())
		require.Len(t, org.BankAccounts, 1)
		assert.Equal(t, "acme-main", org.BankAccounts[0].Slug)
	})

	t.Run("InvalidCredentials", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		client := newTestClient(t, server.URL)
		_, err := client.FetchOrganization(context.Background())

		var authErr *AuthError
		require.ErrorAs(t, err, &authErr)
	})

	t.Run("ServerErrorAfterRetryBudget", func(t *testing.T) {
		var calls int
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		client := newTestClient(t, server.URL)
		_, err := client.FetchOrganization(context.Background())

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
		assert.Equal(t, 4, calls, "Transport should spend the full retry budget")
	})

	t.Run("TransientErrorRecovered", func(t *testing.T) {
		var calls int
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			if calls < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_, _ = w.Write([]byte(`{"organization":{"slug":"acme-corp"}}`))
		}))
		defer server.Close()

		client := newTestClient(t, server.URL)
		org, err := client.FetchOrganization(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "acme-corp", org.Slug)
		assert.Equal(t, 3, calls)
	})
}

func TestClient_ListAccounts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"organization":{"slug":"acme-corp","bank_accounts":[{"slug":"a1"},{"slug":"a2"}]}}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	accounts, err := client.ListAccounts(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "a1", accounts[0].Slug)
}

func TestNormalizeTransaction(t *testing.T) {
	settled := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	emitted := time.Date(2025, 3, 9, 9, 30, 0, 0, time.UTC)

	testCases := []struct {
		name            string
		payload         string
		wantAmount      string
		wantDate        time.Time
		wantDescription string
		wantCurrency    string
	}{
		{
			name:            "DebitNegatedAndSettledDate",
			payload:         `{"transaction_id":"tx-1","amount":42.50,"side":"debit","status":"settled","currency":"EUR","label":"Office chairs","settled_at":"2025-03-10T14:00:00Z","emitted_at":"2025-03-09T09:30:00Z"}`,
			wantAmount:      "-42.5",
			wantDate:        settled,
			wantDescription: "Office chairs",
			wantCurrency:    "EUR",
		},
		{
			name:            "CreditKeepsSignAndFallsBackToEmittedDate",
			payload:         `{"transaction_id":"tx-2","amount":100,"side":"credit","status":"settled","currency":"USD","label":"Invoice 42","emitted_at":"2025-03-09T09:30:00Z"}`,
			wantAmount:      "100",
			wantDate:        emitted,
			wantDescription: "Invoice 42",
			wantCurrency:    "USD",
		},
		{
			name:            "DescriptionSkipsEmptyParts",
			payload:         `{"transaction_id":"tx-3","amount":12.9,"side":"debit","status":"settled","label":"Lunch","reference":"","counterparty_name":"Cafe","emitted_at":"2025-03-09T09:30:00Z"}`,
			wantAmount:      "-12.9",
			wantDate:        emitted,
			wantDescription: "Lunch — Cafe",
			wantCurrency:    "EUR",
		},
		{
			name:            "DescriptionFallbackAndDefaultCurrency",
			payload:         `{"transaction_id":"tx-4","amount":0,"side":"credit","status":"settled","emitted_at":"2025-03-09T09:30:00Z"}`,
			wantAmount:      "0",
			wantDate:        emitted,
			wantDescription: "Qonto Transaction",
			wantCurrency:    "EUR",
		},
		{
			name:            "DescriptionJoinsAllThreeParts",
			payload:         `{"transaction_id":"tx-5","amount":5,"side":"credit","status":"settled","label":"Refund","reference":"REF-9","counterparty_name":"ACME","emitted_at":"2025-03-09T09:30:00Z"}`,
			wantAmount:      "5",
			wantDate:        emitted,
			wantDescription: "Refund — REF-9 — ACME",
			wantCurrency:    "EUR",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tx, err := normalizeTransaction(json.RawMessage(tc.payload))
			require.NoError(t, err)

			wantAmount, err := decimal.NewFromString(tc.wantAmount)
			require.NoError(t, err)

			assert.True(t, tx.Amount.Equal(wantAmount), "amount: want %s, got %s", wantAmount, tx.Amount)
			assert.True(t, tc.wantDate.Equal(tx.PostingDate), "posting date: want %s, got %s", tc.wantDate, tx.PostingDate)
			assert.Equal(t, tc.wantDescription, tx.Description)
			assert.Equal(t, tc.wantCurrency, tx.Currency)
			assert.JSONEq(t, tc.payload, string(tx.Raw), "raw payload must be preserved verbatim")
		})
	}

	t.Run("MissingTransactionID", func(t *testing.T) {
		_, err := normalizeTransaction(json.RawMessage(`{"amount":1,"side":"credit"}`))
		require.Error(t, err)
	})
}

func TestOutflowSplitInvariant(t *testing.T) {
	// For every debit the normalized amount is negative and abs(amount) is
	// the withdrawal; symmetric for credits.
	tx, err := normalizeTransaction(json.RawMessage(`{"transaction_id":"tx-d","amount":31.07,"side":"debit","status":"settled","emitted_at":"2025-03-09T09:30:00Z"}`))
	require.NoError(t, err)
	require.True(t, tx.Amount.IsNegative())
	assert.True(t, tx.Amount.Abs().Equal(decimal.RequireFromString("31.07")))

	tx, err = normalizeTransaction(json.RawMessage(`{"transaction_id":"tx-c","amount":31.07,"side":"credit","status":"settled","emitted_at":"2025-03-09T09:30:00Z"}`))
	require.NoError(t, err)
	assert.False(t, tx.Amount.IsNegative())
}

// transactionsPageHandler serves deterministic pages for stream tests
func transactionsPageHandler(t *testing.T, pages [][]string, totalPages int, assertQuery func(r *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if assertQuery != nil {
			assertQuery(r)
		}

		idx := 0
		_, err := fmt.Sscanf(r.URL.Query().Get("page"), "%d", &idx)
		require.NoError(t, err)

		// pages[i] entries are pre-encoded JSON objects
		raw := "["
		if idx-1 < len(pages) {
			for i, item := range pages[idx-1] {
				if i > 0 {
					raw += ","
				}
				raw += item
			}
		}
		raw += "]"

		fmt.Fprintf(w, `{"transactions":%s,"meta":{"current_page":%d,"total_pages":%d,"per_page":100}}`, raw, idx, totalPages)
	}
}

func pageItem(id string) string {
	return fmt.Sprintf(`{"transaction_id":%q,"amount":1,"side":"credit","status":"settled","label":"item %s","emitted_at":"2025-03-09T09:30:00Z"}`, id, id)
}
