package sink

import (
	"context"
	"errors"
	"time"
)

// Retrying wraps a Columnar and retries write operations that fail with
// ErrUnavailable, doubling the backoff between attempts. Retries happen at
// the batch boundary, never per record. Any other error passes through
// untouched.
type Retrying struct {
	Inner       Columnar
	Attempts    int
	BaseBackoff time.Duration
	Sleep       func(time.Duration) // injectable for tests; nil means time.Sleep
	OnRetry     func()              // optional; called once per retried attempt
}

func NewRetrying(inner Columnar, attempts int, base time.Duration) *Retrying {
	return &Retrying{Inner: inner, Attempts: attempts, BaseBackoff: base}
}

func (r *Retrying) retry(ctx context.Context, op func() error) error {
	attempts := r.Attempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := r.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	backoff := r.BaseBackoff
	var err error
	for i := 0; i < attempts; i++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err = op()
		if err == nil || !errors.Is(err, ErrUnavailable) {
			return err
		}
		if i < attempts-1 {
			if r.OnRetry != nil {
				r.OnRetry()
			}
			sleep(backoff)
			backoff *= 2
		}
	}
	return err
}

func (r *Retrying) CreateOrReplaceTableCtx(ctx context.Context, name string, columns []string, rows []Row) error {
	return r.retry(ctx, func() error { return r.Inner.CreateOrReplaceTable(name, columns, rows) })
}

func (r *Retrying) CreateOrReplaceTable(name string, columns []string, rows []Row) error {
	return r.CreateOrReplaceTableCtx(context.Background(), name, columns, rows)
}

func (r *Retrying) InsertRows(table string, rows []Row) error {
	return r.retry(context.Background(), func() error { return r.Inner.InsertRows(table, rows) })
}

func (r *Retrying) UpdateWhere(table string, pred func(Row) bool, assign func(Row) map[string]any) (int, error) {
	var n int
	err := r.retry(context.Background(), func() error {
		var opErr error
		n, opErr = r.Inner.UpdateWhere(table, pred, assign)
		return opErr
	})
	return n, err
}

func (r *Retrying) AlterAddColumn(table string, column string) error {
	return r.retry(context.Background(), func() error { return r.Inner.AlterAddColumn(table, column) })
}

func (r *Retrying) AlterDropColumn(table string, column string) error {
	return r.retry(context.Background(), func() error { return r.Inner.AlterDropColumn(table, column) })
}

func (r *Retrying) QueryGroupBy(table string, q GroupQuery) ([]Row, error) {
	var rows []Row
	err := r.retry(context.Background(), func() error {
		var opErr error
		rows, opErr = r.Inner.QueryGroupBy(table, q)
		return opErr
	})
	return rows, err
}
