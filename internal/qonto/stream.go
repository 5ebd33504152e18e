package qonto

import (
	"context"
	"errors"
	"time"

	"github.com/qonto-ledger-sync/internal/domain/banking"
)

// TransactionStream is a stateful cursor over one account's transactions.
// Page tokens are positional, so page N+1 is never requested before page N
// is fully consumed and the stream cannot be restarted.
type TransactionStream struct {
	client       *Client
	accountID    string
	updatedSince *time.Time
	statuses     []banking.TransactionStatus

	page    int // next page to request
	buf     []*banking.Transaction
	idx     int
	current *banking.Transaction
	done    bool
	err     error
}

var _ banking.Stream = (*TransactionStream)(nil)

// Next advances the cursor, fetching the next page when the buffered one is
// exhausted. A rate-limited page fetch sleeps for the advertised wait and
// re-issues the same page, so resumption is transparent to the consumer.
func (s *TransactionStream) Next(ctx context.Context) bool {
	if s.err != nil {
		return false
	}

	if s.idx < len(s.buf) {
		s.current = s.buf[s.idx]
		s.idx++
		return true
	}

	if s.done {
		return false
	}

	for {
		resp, err := s.client.listTransactionsPage(ctx, s.accountID, s.updatedSince, s.statuses, s.page)
		if err != nil {
			var rateLimited *RateLimitError
			if errors.As(err, &rateLimited) {
				s.client.logger.Warn("Qonto rate limit hit, waiting before retrying page",
					"account_id", s.accountID,
					"page", s.page,
					"retry_after", rateLimited.RetryAfter.String(),
				)
				if sleepErr := s.client.sleep(ctx, rateLimited.RetryAfter); sleepErr != nil {
					s.err = sleepErr
					return false
				}
				continue // re-issue the same page
			}
			s.err = err
			return false
		}

		if len(resp.Transactions) == 0 {
			s.done = true
			return false
		}

		buf := make([]*banking.Transaction, 0, len(resp.Transactions))
		for _, raw := range resp.Transactions {
			tx, err := normalizeTransaction(raw)
			if err != nil {
				s.err = err
				return false
			}
			buf = append(buf, tx)
		}

		if resp.Meta.CurrentPage >= resp.Meta.TotalPages {
			s.done = true
		} else {
			s.page++
		}

		s.buf = buf
		s.idx = 1
		s.current = buf[0]
		return true
	}
}

// Current returns the transaction Next advanced to
func (s *TransactionStream) Current() *banking.Transaction {
	return s.current
}

// Err returns the error that terminated the stream, if any
func (s *TransactionStream) Err() error {
	return s.err
}
