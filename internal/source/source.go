// Package source yields raw order records for the pipeline: one record per
// logical order, newline-delimited when streamed from a file, or consumed
// from a Kafka topic for incremental loads.
package source

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/segmentio/kafka-go"

	"oap/internal/model"
)

// Record is one raw order plus its source position. A per-record decode
// failure is carried in Err so one bad line never aborts the batch.
type Record struct {
	Offset int64
	Raw    model.RawOrder
	Err    error
}

type Source interface {
	// Read streams records in source order. fn returning an error stops
	// the read and propagates it.
	Read(ctx context.Context, fn func(rec Record) error) error
}

// decodeRaw parses a raw order with UseNumber so numeric text reaches the
// coercion layer unrounded.
func decodeRaw(b []byte) (model.RawOrder, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var raw model.RawOrder
	if err := dec.Decode(&raw); err != nil {
		return model.RawOrder{}, err
	}
	return raw, nil
}

// FileReader streams NDJSON raw orders. Offsets are 1-based line numbers.
type FileReader struct {
	path string
}

func NewFileReader(path string) *FileReader {
	return &FileReader{path: path}
}

func (r *FileReader) Read(ctx context.Context, fn func(rec Record) error) error {
	f, err := os.Open(r.path)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1<<20), 1<<20)
	var line int64
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return err
		}
		b := bytes.TrimSpace(scanner.Bytes())
		if len(b) == 0 {
			continue
		}
		rec := Record{Offset: line}
		raw, derr := decodeRaw(b)
		if derr != nil {
			rec.Err = fmt.Errorf("decode line %d: %w", line, derr)
		} else {
			rec.Raw = raw
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan input: %w", err)
	}
	return nil
}

// KafkaReader consumes raw orders from partition 0 of a topic until no
// message arrives within the timeout. Offsets are kafka offsets.
type KafkaReader struct {
	brokers []string
	topic   string
	timeout time.Duration
}

func NewKafkaReader(brokers []string, topic string, timeout time.Duration) *KafkaReader {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &KafkaReader{brokers: brokers, topic: topic, timeout: timeout}
}

func (r *KafkaReader) Read(ctx context.Context, fn func(rec Record) error) error {
	rd := kafka.NewReader(kafka.ReaderConfig{
		Brokers:   r.brokers,
		Topic:     r.topic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  10e6,
	})
	defer rd.Close()

	for {
		readCtx, cancel := context.WithTimeout(ctx, r.timeout)
		m, err := rd.ReadMessage(readCtx)
		cancel()
		if err != nil {
			if readCtx.Err() != nil && ctx.Err() == nil {
				return nil // drained
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read kafka: %w", err)
		}
		rec := Record{Offset: m.Offset}
		raw, derr := decodeRaw(m.Value)
		if derr != nil {
			rec.Err = fmt.Errorf("decode offset %d: %w", m.Offset, derr)
		} else {
			rec.Raw = raw
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
}
