package banking

import "context"

// Stream is a lazy, finite, non-restartable sequence of transactions,
// fetched one page at a time. Usage mirrors pgx rows:
//
//	for stream.Next(ctx) {
//	    tx := stream.Current()
//	    ...
//	}
//	if err := stream.Err(); err != nil { ... }
type Stream interface {
	// Next advances to the next transaction, fetching the next page when the
	// current one is exhausted. It returns false at end of stream or on error.
	Next(ctx context.Context) bool
	// Current returns the transaction Next advanced to
	Current() *Transaction
	// Err returns the error that terminated the stream, if any
	Err() error
}
