package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"rig.dev/identity/internal/obs"
)

// ErrNestedTransaction is returned by Transaction when ctx already belongs
// to a transaction opened by this package.
var ErrNestedTransaction = errors.New("pg: nested transactions are not supported")

type txKey struct{}

func inTransaction(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{}).(bool)
	return v
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTxOptions sets the options every transaction begins with.
func WithTxOptions(opts *sql.TxOptions) ClientOption {
	return func(c *Client) { c.txOpts = opts }
}

// WithClientLogger sets the logger used for transaction failures.
func WithClientLogger(log Logger) ClientOption {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// Client is the entry point for callers: it hands out bound query modules,
// either on the pool or inside a transaction.
type Client struct {
	conn   *Connector
	log    Logger
	txOpts *sql.TxOptions
}

// NewClient returns a Client drawing connections from conn.
func NewClient(conn *Connector, opts ...ClientOption) *Client {
	c := &Client{conn: conn, log: obs.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run invokes fn with queries bound to the pool. Each statement may land on
// a different connection; use Transaction when statements must be atomic.
func (c *Client) Run(ctx context.Context, fn func(ctx context.Context, q *Queries) error) error {
	db, err := c.conn.DB(ctx)
	if err != nil {
		return err
	}
	return fn(ctx, Bind(db))
}

// Transaction invokes fn with queries bound to a new transaction and the
// raw *sql.Tx for audit wrappers. It commits when fn returns nil and rolls
// back when fn returns an error or panics. Errors from fn are returned
// unchanged.
func (c *Client) Transaction(ctx context.Context, fn func(ctx context.Context, q *Queries, tx *sql.Tx) error) error {
	if inTransaction(ctx) {
		return ErrNestedTransaction
	}
	db, err := c.conn.DB(ctx)
	if err != nil {
		return err
	}

	start := time.Now()
	tx, err := db.BeginTx(ctx, c.txOpts)
	if err != nil {
		return fmt.Errorf("pg: begin tx: %w", err)
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			c.log.Error("transaction rollback failed", obs.Fields{"error": rbErr.Error()})
		}
		obs.ObserveTransaction(obs.OutcomeRollback, time.Since(start))
	}()

	txCtx, tally := obs.WithAuditTally(context.WithValue(ctx, txKey{}, true))
	if err := fn(txCtx, Bind(tx), tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("pg: commit tx: %w", err)
	}
	committed = true
	tally.Commit()
	obs.ObserveTransaction(obs.OutcomeCommit, time.Since(start))
	return nil
}

// Run is Client.Run for callbacks that produce a value.
func Run[T any](ctx context.Context, c *Client, fn func(ctx context.Context, q *Queries) (T, error)) (T, error) {
	var out T
	err := c.Run(ctx, func(ctx context.Context, q *Queries) error {
		v, err := fn(ctx, q)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// Transaction is Client.Transaction for callbacks that produce a value.
func Transaction[T any](ctx context.Context, c *Client, fn func(ctx context.Context, q *Queries, tx *sql.Tx) (T, error)) (T, error) {
	var out T
	err := c.Transaction(ctx, func(ctx context.Context, q *Queries, tx *sql.Tx) error {
		v, err := fn(ctx, q, tx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}
