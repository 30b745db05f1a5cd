// Package sink is the boundary to the opaque columnar store the pipeline
// writes flattened rows into. The engine itself is an external collaborator;
// this package defines the record-oriented API the pipeline relies on, an
// in-memory reference implementation, and a retrying wrapper for transient
// outages.
package sink

import "errors"

var (
	// ErrUnavailable marks a transient store outage. Batch writes are
	// retried with backoff before surfacing it as fatal.
	ErrUnavailable = errors.New("store unavailable")
	// ErrSchemaMismatch is fatal: operator intervention required, no
	// auto-coercion of schema changes.
	ErrSchemaMismatch = errors.New("schema mismatch")
	// ErrNoSuchTable is returned for operations on unknown tables.
	ErrNoSuchTable = errors.New("no such table")
)

// Row is one record as the store sees it.
type Row = map[string]any

// Aggregate functions supported by QueryGroupBy.
const (
	AggCount         = "count"
	AggCountDistinct = "count_distinct"
	AggSum           = "sum"
)

// Aggregate names one aggregated output column.
type Aggregate struct {
	Fn  string
	Col string // ignored for count
	As  string
}

// GroupQuery describes a grouped read over a table.
type GroupQuery struct {
	Keys       []string
	Aggregates []Aggregate
	Filter     func(Row) bool
	OrderBy    string
	Desc       bool
	Limit      int
}

// Columnar is the opaque store's record-oriented API.
type Columnar interface {
	CreateOrReplaceTable(name string, columns []string, rows []Row) error
	InsertRows(table string, rows []Row) error
	UpdateWhere(table string, pred func(Row) bool, assign func(Row) map[string]any) (int, error)
	AlterAddColumn(table string, column string) error
	AlterDropColumn(table string, column string) error
	QueryGroupBy(table string, q GroupQuery) ([]Row, error)
}
