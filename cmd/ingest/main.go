package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"oap/internal/checkpoint"
	"oap/internal/export"
	"oap/internal/metrics"
	"oap/internal/pipeline"
	"oap/internal/sink"
	"oap/internal/source"
	"oap/internal/store"
)

// Config holds CLI flags for the batch ingest.
type Config struct {
	InputSource  string // file|kafka
	InputFile    string
	Bootstrap    string
	TopicRaw     string
	StoreBackend string // memory|pebble|badger
	PebbleDir    string
	BadgerDir    string
	Table        string
	ExportDir    string
	Workers      int
	Resume       bool
	JournalOn    bool
	JournalSink  string // file|kafka|both
	TopicJournal string
	ManifestSink string // file|kafka|both
	ManifestDir  string
	TopicMan     string
	RetryCount   int
	RetryBackoff time.Duration
	HTTPAddr     string
}

func main() {
	cfg := readFlags()
	if err := run(cfg); err != nil {
		log.Fatalf("ingest failed: %v", err)
	}
}

func readFlags() Config {
	var cfg Config
	flag.StringVar(&cfg.InputSource, "input-source", "file", "raw orders source: file|kafka")
	flag.StringVar(&cfg.InputFile, "input", "raw.orders.jsonl", "raw orders NDJSON file")
	flag.StringVar(&cfg.Bootstrap, "kafka-bootstrap", "", "kafka bootstrap servers, e.g. localhost:9092")
	flag.StringVar(&cfg.TopicRaw, "topic-raw", "orders.raw", "kafka topic for raw orders")
	flag.StringVar(&cfg.StoreBackend, "store-backend", "pebble", "canonical store backend: memory|pebble|badger")
	flag.StringVar(&cfg.PebbleDir, "pebble-dir", "./data/orders", "pebble data directory")
	flag.StringVar(&cfg.BadgerDir, "badger-dir", "./data/orders-badger", "badger data directory")
	flag.StringVar(&cfg.Table, "table", "flat_orders", "flattened table name")
	flag.StringVar(&cfg.ExportDir, "export-dir", "./exports", "export base directory")
	flag.IntVar(&cfg.Workers, "workers", 4, "normalize/merge worker count")
	flag.BoolVar(&cfg.Resume, "resume", false, "skip offsets committed by the last run")
	flag.BoolVar(&cfg.JournalOn, "journal", true, "enable per-record journal")
	flag.StringVar(&cfg.JournalSink, "journal-sink", "file", "journal sink: file|kafka|both")
	flag.StringVar(&cfg.TopicJournal, "topic-journal", "orders.ingest-journal", "kafka topic for the journal")
	flag.StringVar(&cfg.ManifestSink, "manifest-sink", "file", "manifest sink: file|kafka|both")
	flag.StringVar(&cfg.ManifestDir, "manifest-dir", "./checkpoints", "manifest directory")
	flag.StringVar(&cfg.TopicMan, "topic-manifest", "orders.ingest-manifest", "kafka topic for the manifest (compacted)")
	flag.IntVar(&cfg.RetryCount, "sink-retries", 5, "attempts for transient sink failures")
	flag.DurationVar(&cfg.RetryBackoff, "sink-backoff", 200*time.Millisecond, "initial sink retry backoff")
	flag.StringVar(&cfg.HTTPAddr, "http", ":8080", "http listen for /metrics and /healthz")
	flag.Parse()
	return cfg
}

func run(cfg Config) error {
	log.Printf("starting ingest input=%s backend=%s workers=%d table=%s",
		cfg.InputSource, cfg.StoreBackend, cfg.Workers, cfg.Table)

	var st store.Store
	switch cfg.StoreBackend {
	case "pebble":
		ps, err := store.NewPebbleStore(cfg.PebbleDir)
		if err != nil {
			return fmt.Errorf("init pebble: %w", err)
		}
		defer ps.Close()
		st = ps
	case "badger":
		bs, err := store.NewBadgerStore(cfg.BadgerDir)
		if err != nil {
			return fmt.Errorf("init badger: %w", err)
		}
		defer bs.Close()
		st = bs
	default:
		st = store.NewInMemoryStore()
	}

	p := pipeline.New(st, cfg.Workers)

	if cfg.JournalOn {
		var j checkpoint.Journal
		if cfg.JournalSink == "file" || cfg.JournalSink == "both" || cfg.JournalSink == "" {
			fj, err := checkpoint.NewFileJournal("./journal", "ingest.jsonl")
			if err != nil {
				return fmt.Errorf("init journal file: %w", err)
			}
			j = fj
		}
		if (cfg.JournalSink == "kafka" || cfg.JournalSink == "both") && cfg.Bootstrap != "" {
			kj := checkpoint.NewKafkaJournal(cfg.Bootstrap, cfg.TopicJournal)
			if j == nil {
				j = kj
			} else {
				j = checkpoint.NewMultiJournal(j, kj)
			}
		}
		p.Journal = j
	}

	maniFS := checkpoint.NewFilesystemManifest(cfg.ManifestDir)
	var mani checkpoint.Publisher = maniFS
	if (cfg.ManifestSink == "kafka" || cfg.ManifestSink == "both") && cfg.Bootstrap != "" {
		maniK := checkpoint.NewKafkaManifest(cfg.Bootstrap, cfg.TopicMan, "ingest-manifest-latest")
		if cfg.ManifestSink == "kafka" {
			mani = maniK
		} else {
			mani = checkpoint.MultiPublisher(maniFS, maniK)
		}
	}
	p.Manifest = mani
	if cfg.Resume {
		p.Resume = maniFS
	}

	mreg := metrics.NewRegistry()
	p.Metrics = mreg
	go func() {
		http.Handle("/metrics", mreg.Handler())
		http.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok"})
		})
		_ = http.ListenAndServe(cfg.HTTPAddr, nil)
	}()

	var src source.Source
	if cfg.InputSource == "kafka" && cfg.Bootstrap != "" {
		src = source.NewKafkaReader([]string{cfg.Bootstrap}, cfg.TopicRaw, 10*time.Second)
	} else {
		src = source.NewFileReader(cfg.InputFile)
	}

	columnar := sink.NewRetrying(sink.NewMemory(), cfg.RetryCount, cfg.RetryBackoff)
	columnar.OnRetry = mreg.SinkRetries.Inc

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := p.Run(ctx, src, columnar, cfg.Table)
	if err != nil {
		return fmt.Errorf("run batch: %w", err)
	}
	log.Printf("batch done: %s", summary)

	rows, err := p.Project()
	if err != nil {
		return fmt.Errorf("project for export: %w", err)
	}
	runID := time.Now().UTC().Format("20060102T150405Z")
	if err := export.NewFilesystem(cfg.ExportDir).WriteRows(runID, rows); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	log.Printf("exported %d rows to %s/%s", len(rows), cfg.ExportDir, runID)
	return nil
}
