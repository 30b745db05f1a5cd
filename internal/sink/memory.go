package sink

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"oap/internal/model"
)

// Memory is the in-process reference implementation of Columnar. It doubles
// as the test stand-in for the external engine.
type Memory struct {
	mu     sync.RWMutex
	tables map[string]*memTable
}

type memTable struct {
	columns []string
	colSet  map[string]struct{}
	rows    []Row
}

func NewMemory() *Memory {
	return &Memory{tables: make(map[string]*memTable)}
}

func newMemTable(columns []string) *memTable {
	t := &memTable{columns: append([]string(nil), columns...), colSet: make(map[string]struct{}, len(columns))}
	for _, c := range columns {
		t.colSet[c] = struct{}{}
	}
	return t
}

func (t *memTable) checkRow(r Row) error {
	for k := range r {
		if _, ok := t.colSet[k]; !ok {
			return fmt.Errorf("%w: unknown column %q", ErrSchemaMismatch, k)
		}
	}
	return nil
}

func copyRow(r Row) Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

func (m *Memory) CreateOrReplaceTable(name string, columns []string, rows []Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := newMemTable(columns)
	for _, r := range rows {
		if err := t.checkRow(r); err != nil {
			return err
		}
		t.rows = append(t.rows, copyRow(r))
	}
	m.tables[name] = t
	return nil
}

func (m *Memory) InsertRows(table string, rows []Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[table]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoSuchTable, table)
	}
	for _, r := range rows {
		if err := t.checkRow(r); err != nil {
			return err
		}
	}
	for _, r := range rows {
		t.rows = append(t.rows, copyRow(r))
	}
	return nil
}

func (m *Memory) UpdateWhere(table string, pred func(Row) bool, assign func(Row) map[string]any) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[table]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNoSuchTable, table)
	}
	updated := 0
	for _, r := range t.rows {
		if pred != nil && !pred(r) {
			continue
		}
		for k, v := range assign(r) {
			if _, ok := t.colSet[k]; !ok {
				return updated, fmt.Errorf("%w: unknown column %q", ErrSchemaMismatch, k)
			}
			r[k] = v
		}
		updated++
	}
	return updated, nil
}

func (m *Memory) AlterAddColumn(table string, column string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[table]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoSuchTable, table)
	}
	if _, exists := t.colSet[column]; exists {
		return fmt.Errorf("%w: column %q already exists", ErrSchemaMismatch, column)
	}
	t.columns = append(t.columns, column)
	t.colSet[column] = struct{}{}
	for _, r := range t.rows {
		r[column] = nil
	}
	return nil
}

func (m *Memory) AlterDropColumn(table string, column string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[table]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoSuchTable, table)
	}
	if _, exists := t.colSet[column]; !exists {
		return fmt.Errorf("%w: no column %q", ErrSchemaMismatch, column)
	}
	delete(t.colSet, column)
	cols := t.columns[:0]
	for _, c := range t.columns {
		if c != column {
			cols = append(cols, c)
		}
	}
	t.columns = cols
	for _, r := range t.rows {
		delete(r, column)
	}
	return nil
}

// Rows returns a copy of the table contents in insertion order.
func (m *Memory) Rows(table string) ([]Row, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tables[table]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchTable, table)
	}
	out := make([]Row, 0, len(t.rows))
	for _, r := range t.rows {
		out = append(out, copyRow(r))
	}
	return out, nil
}

type groupAcc struct {
	keyVals  []any
	rowCount int64
	distinct []map[string]struct{}
	sums     []model.Decimal
}

func (m *Memory) QueryGroupBy(table string, q GroupQuery) ([]Row, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tables[table]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchTable, table)
	}

	groups := make(map[string]*groupAcc)
	var order []string // first-seen group order keeps output deterministic
	for _, r := range t.rows {
		if q.Filter != nil && !q.Filter(r) {
			continue
		}
		var sb strings.Builder
		keyVals := make([]any, len(q.Keys))
		for i, k := range q.Keys {
			keyVals[i] = r[k]
			sb.WriteString(fmt.Sprint(r[k]))
			sb.WriteByte('#')
		}
		gk := sb.String()
		g, ok := groups[gk]
		if !ok {
			g = &groupAcc{
				keyVals:  keyVals,
				distinct: make([]map[string]struct{}, len(q.Aggregates)),
				sums:     make([]model.Decimal, len(q.Aggregates)),
			}
			for i := range q.Aggregates {
				g.distinct[i] = make(map[string]struct{})
				g.sums[i] = model.DecimalZero()
			}
			groups[gk] = g
			order = append(order, gk)
		}
		g.rowCount++
		for i, agg := range q.Aggregates {
			switch agg.Fn {
			case AggCountDistinct:
				g.distinct[i][fmt.Sprint(r[agg.Col])] = struct{}{}
			case AggSum:
				d, ok := toDecimal(r[agg.Col])
				if !ok {
					return nil, fmt.Errorf("%w: column %q is not summable", ErrSchemaMismatch, agg.Col)
				}
				g.sums[i] = g.sums[i].Add(d)
			}
		}
	}

	out := make([]Row, 0, len(groups))
	for _, gk := range order {
		g := groups[gk]
		row := make(Row, len(q.Keys)+len(q.Aggregates))
		for i, k := range q.Keys {
			row[k] = g.keyVals[i]
		}
		for i, agg := range q.Aggregates {
			name := agg.As
			if name == "" {
				name = agg.Fn
			}
			switch agg.Fn {
			case AggCount:
				row[name] = g.rowCount
			case AggCountDistinct:
				row[name] = int64(len(g.distinct[i]))
			case AggSum:
				row[name] = g.sums[i]
			default:
				return nil, fmt.Errorf("%w: unknown aggregate %q", ErrSchemaMismatch, agg.Fn)
			}
		}
		out = append(out, row)
	}

	if q.OrderBy != "" {
		sort.SliceStable(out, func(i, j int) bool {
			less := lessValue(out[i][q.OrderBy], out[j][q.OrderBy])
			if q.Desc {
				return lessValue(out[j][q.OrderBy], out[i][q.OrderBy])
			}
			return less
		})
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func toDecimal(v any) (model.Decimal, bool) {
	switch n := v.(type) {
	case model.Decimal:
		return n, true
	case int64:
		return model.NewDecimalFromInt64(n), true
	case int:
		return model.NewDecimalFromInt64(int64(n)), true
	case float64:
		d, err := model.NewDecimal(fmt.Sprintf("%v", n))
		return d, err == nil
	case string:
		d, err := model.NewDecimal(n)
		return d, err == nil
	default:
		return model.Decimal{}, false
	}
}

func lessValue(a, b any) bool {
	if da, ok := toDecimal(a); ok {
		if db, ok := toDecimal(b); ok {
			return da.Cmp(db) < 0
		}
	}
	return fmt.Sprint(a) < fmt.Sprint(b)
}
