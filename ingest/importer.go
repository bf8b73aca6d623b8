package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/google/uuid"

	"inspection-tracking-api/aggregate"
	"inspection-tracking-api/metrics"
	"inspection-tracking-api/models"
	"inspection-tracking-api/store"
)

// Publisher announces finished imports. *services.CacheService satisfies it.
type Publisher interface {
	PublishImport(ctx context.Context, ev models.ImportEvent) error
}

// Importer runs the batch job: normalize every row, write the inspection
// collection, then rebuild every derived view.
type Importer struct {
	store     store.Store
	publisher Publisher
	now       func() time.Time
}

// NewImporter returns an importer writing to st. publisher may be nil.
func NewImporter(st store.Store, publisher Publisher) *Importer {
	return &Importer{store: st, publisher: publisher, now: time.Now}
}

// Run imports the CSV in src. Collections are written independently, so a
// failing write leaves the other collections updated and the failed one at
// its previous state. The returned error joins every collection failure.
func (im *Importer) Run(ctx context.Context, src io.Reader) (models.ImportRun, error) {
	run := models.ImportRun{ID: uuid.NewString(), StartedAt: im.now().UTC()}
	defer func() {
		metrics.ImportDuration.Observe(im.now().Sub(run.StartedAt).Seconds())
	}()

	records, err := im.readAll(ctx, src, &run)
	if err != nil {
		return run, err
	}
	log.Printf("import %s: rows read=%d kept=%d dropped=%d", run.ID, run.RowsRead, run.RowsKept, run.RowsDropped)

	views := aggregate.Build(records)
	writes := []struct {
		collection string
		docs       []any
	}{
		{models.Inspection{}.CollectionName(), store.Docs(records)},
		{models.QueryIndex{}.CollectionName(), []any{views.Queries}},
		{models.AreaRating{}.CollectionName(), store.Docs(views.Ratings)},
		{models.AreaScoreSeries{}.CollectionName(), store.Docs(views.Scores)},
		{models.HeatmapTimeCollection, store.Docs(views.HeatmapTime)},
		{models.HeatmapZipCollection, store.Docs(views.HeatmapZip)},
	}

	var errs []error
	for _, w := range writes {
		if err := im.store.ReplaceAll(ctx, w.collection, w.docs); err != nil {
			metrics.CollectionWrites.WithLabelValues(w.collection, "error").Inc()
			log.Printf("import %s: write %s failed: %v", run.ID, w.collection, err)
			run.CollectionsFailed = append(run.CollectionsFailed, w.collection)
			errs = append(errs, fmt.Errorf("write %s: %w", w.collection, err))
			continue
		}
		metrics.CollectionWrites.WithLabelValues(w.collection, "ok").Inc()
		run.CollectionsWritten = append(run.CollectionsWritten, w.collection)
	}

	run.FinishedAt = im.now().UTC()
	if err := im.store.InsertOne(ctx, run.CollectionName(), run); err != nil {
		errs = append(errs, fmt.Errorf("record import run: %w", err))
	}

	if im.publisher != nil && len(run.CollectionsWritten) > 0 {
		ev := models.ImportEvent{
			ImportID:   run.ID,
			FinishedAt: run.FinishedAt,
			RowsKept:   run.RowsKept,
			Partial:    len(run.CollectionsFailed) > 0,
		}
		if err := im.publisher.PublishImport(ctx, ev); err != nil {
			log.Printf("import %s: publish event failed: %v", run.ID, err)
		}
	}

	return run, errors.Join(errs...)
}

func (im *Importer) readAll(ctx context.Context, src io.Reader, run *models.ImportRun) ([]models.Inspection, error) {
	reader, err := NewCSVReader(src)
	if err != nil {
		return nil, err
	}

	var records []models.Inspection
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		row, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if !errors.As(err, &perr) {
				return nil, fmt.Errorf("read csv: %w", err)
			}
			run.RowsRead++
			metrics.RowsRead.Inc()
			im.drop(run, perr.Line, "csv_syntax", err)
			continue
		}

		run.RowsRead++
		metrics.RowsRead.Inc()
		rec, err := Normalize(row.Cells)
		if err != nil {
			im.drop(run, row.Line, DropReason(err), err)
			continue
		}
		run.RowsKept++
		metrics.RowsKept.Inc()
		records = append(records, rec)
	}
	return records, nil
}

func (im *Importer) drop(run *models.ImportRun, line int, reason string, err error) {
	run.RowsDropped++
	metrics.RowsDropped.WithLabelValues(reason).Inc()
	log.Printf("import %s: dropped line %d (%s): %v", run.ID, line, reason, err)
}
