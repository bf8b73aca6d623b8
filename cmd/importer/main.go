package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"inspection-tracking-api/config"
	"inspection-tracking-api/ingest"
	"inspection-tracking-api/services"
	"inspection-tracking-api/store"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	csvPath := flag.String("csv", cfg.Import.CSVPath, "inspections CSV to import")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Import.MetricsAddr != "" {
		go serveHTTP(cfg.Import.MetricsAddr)
	}

	if err := runImport(ctx, cfg, *csvPath); err != nil {
		log.Fatalf("import failed: %v", err)
	}
}

func runImport(ctx context.Context, cfg *config.Config, csvPath string) error {
	st, err := store.OpenPostgres(ctx, cfg.Database.GetDSN())
	if err != nil {
		return err
	}
	defer st.Close()

	cache, err := services.NewCacheService(cfg.Redis)
	if err != nil {
		log.Printf("redis ping failed, import event will not be published: %v", err)
	}
	defer cache.Close()

	f, err := os.Open(csvPath)
	if err != nil {
		return err
	}
	defer f.Close()

	log.Printf("importer running, csv=%s", csvPath)
	start := time.Now()
	run, err := ingest.NewImporter(st, cache).Run(ctx, f)
	log.Printf("import %s finished in %.2fs: read=%d kept=%d dropped=%d written=%v failed=%v",
		run.ID, time.Since(start).Seconds(), run.RowsRead, run.RowsKept, run.RowsDropped, run.CollectionsWritten, run.CollectionsFailed)
	return err
}

func serveHTTP(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Printf("metrics server listening on %s", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("metrics server failed: %v", err)
	}
}
