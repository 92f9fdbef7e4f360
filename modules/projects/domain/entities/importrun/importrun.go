// Package importrun records committed imports.
package importrun

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Run struct {
	ID              uuid.UUID
	ActorID         int64
	StartedAt       time.Time
	FinishedAt      time.Time
	RowsTotal       int
	RowsSkipped     int
	ProjectsCreated int
	ProjectsUpdated int
	LinksCreated    int
	// Corrections and SkippedMetadata are stored as JSON documents.
	Corrections     []byte
	SkippedMetadata []byte
}

type Repository interface {
	Record(ctx context.Context, run *Run) error
}
