// Package export writes the flattened row set to the filesystem for BI
// hand-off: a CSV in flattened-schema column order plus a JSONL copy that
// cmd/report can reload without re-running the pipeline.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"oap/internal/flatten"
)

type Exporter interface {
	WriteRows(runID string, rows []flatten.FlatRow) error
}

type Filesystem struct {
	baseDir string
}

func NewFilesystem(baseDir string) *Filesystem {
	return &Filesystem{baseDir: baseDir}
}

func (f *Filesystem) WriteRows(runID string, rows []flatten.FlatRow) error {
	dir := filepath.Join(f.baseDir, runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	if err := writeCSV(filepath.Join(dir, "flat_rows.csv"), rows); err != nil {
		return err
	}
	return writeJSONL(filepath.Join(dir, "flat_rows.jsonl"), rows)
}

func writeCSV(path string, rows []flatten.FlatRow) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create: %w", err)
	}
	defer out.Close()

	w := csv.NewWriter(out)
	if err := w.Write(flatten.TableColumns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range rows {
		rec := []string{
			r.OrderID, r.CustomerID, r.CustomerCity, r.CustomerState,
			r.OrderStatus, formatTime(r.OrderTimestamp),
			fmt.Sprintf("%d", r.ItemSeq), r.ProductID, r.Price.String(),
			r.SellerID, formatTime(r.ShippingLimitDate),
			r.ItemCampaignDiscount.String(), r.ItemCampaignChannel, r.ItemCampaignCoupon,
			r.OrderCampaignDiscount.String(), r.OrderCampaignChannel, r.OrderCampaignCoupon,
			r.CampaignFlag,
		}
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func writeJSONL(path string, rows []flatten.FlatRow) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create: %w", err)
	}
	defer out.Close()
	enc := json.NewEncoder(out)
	for i := range rows {
		if err := enc.Encode(&rows[i]); err != nil {
			return fmt.Errorf("encode row: %w", err)
		}
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// ReadJSONL reloads an exported flattened row set.
func ReadJSONL(path string) ([]flatten.FlatRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open export: %w", err)
	}
	defer f.Close()
	dec := json.NewDecoder(f)
	var rows []flatten.FlatRow
	for dec.More() {
		var r flatten.FlatRow
		if err := dec.Decode(&r); err != nil {
			return nil, fmt.Errorf("decode export row: %w", err)
		}
		rows = append(rows, r)
	}
	return rows, nil
}
