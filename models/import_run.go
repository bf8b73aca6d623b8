package models

import "time"

type ImportRun struct {
	ID                 string    `json:"id"`
	StartedAt          time.Time `json:"startedAt"`
	FinishedAt         time.Time `json:"finishedAt"`
	RowsRead           int       `json:"rowsRead"`
	RowsKept           int       `json:"rowsKept"`
	RowsDropped        int       `json:"rowsDropped"`
	CollectionsWritten []string  `json:"collectionsWritten"`
	CollectionsFailed  []string  `json:"collectionsFailed,omitempty"`
}

func (ImportRun) CollectionName() string { return "imports" }

// ImportEvent is published on ImportEventsChannel once an import finishes.
type ImportEvent struct {
	ImportID   string    `json:"import_id"`
	FinishedAt time.Time `json:"finished_at"`
	RowsKept   int       `json:"rows_kept"`
	Partial    bool      `json:"partial"`
}

const ImportEventsChannel = "inspections:imports"
