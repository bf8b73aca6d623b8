package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"inspection-tracking-api/config"
	"inspection-tracking-api/handlers"
	"inspection-tracking-api/metrics"
	"inspection-tracking-api/models"
	"inspection-tracking-api/predictor"
	"inspection-tracking-api/services"
	"inspection-tracking-api/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	st, err := store.OpenPostgres(ctx, cfg.Database.GetDSN())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer st.Close()
	log.Printf("db connected")

	cache, err := services.NewCacheService(cfg.Redis)
	if err != nil {
		log.Printf("redis unavailable, response caching disabled: %v", err)
	}
	defer cache.Close()

	model, err := trainPredictor(ctx, st, cfg.Predictor)
	if err != nil {
		log.Fatalf("Failed to train predictor: %v", err)
	}

	go cache.WatchImports(ctx, func(ev models.ImportEvent) {
		if ev.Partial {
			log.Printf("import %s was partial; some views may be stale", ev.ImportID)
		}
	})

	router := handlers.NewRouter(handlers.RouterDeps{
		Service:   services.NewInspectionService(st),
		Cache:     cache,
		Predictor: model,
		CacheTTL:  cfg.Cache.TTL(),
		CORS:      cfg.CORS,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("Starting server on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("api shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown: %v", err)
	}
}

// trainPredictor fits the score model on every stored inspection. It runs
// once; imports after startup take effect on the next restart.
func trainPredictor(ctx context.Context, st store.Store, cfg config.PredictorConfig) (*predictor.Model, error) {
	cur, err := st.Find(ctx, models.Inspection{}.CollectionName(), nil, store.FindOptions{})
	if err != nil {
		return nil, err
	}
	records, err := store.All[models.Inspection](ctx, cur)
	if err != nil {
		return nil, err
	}

	model, err := predictor.Train(records, predictor.Config{CutoffYear: cfg.CutoffYear, Ridge: cfg.Ridge})
	if err != nil {
		return nil, err
	}
	metrics.PredictorSamples.Set(float64(model.Samples()))
	log.Printf("predictor ready: %d inspections, %d training facilities", len(records), model.Samples())
	return model, nil
}
