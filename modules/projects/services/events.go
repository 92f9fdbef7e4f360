package services

import (
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/kwatuha/imes-sub010/pkg/eventbus"
)

// ImportCommitted is published after a confirm transaction commits.
type ImportCommitted struct {
	RunID    uuid.UUID
	ActorID  int64
	Summary  *ImportSummary
	Duration time.Duration
}

// ImportRolledBack is published after a confirm transaction rolls back.
type ImportRolledBack struct {
	RunID    uuid.UUID
	ActorID  int64
	Err      *ImportError
	Duration time.Duration
}

// ImportLogObserver writes one log entry per finished import.
type ImportLogObserver struct {
	log logrus.FieldLogger
}

func NewImportLogObserver(log logrus.FieldLogger) *ImportLogObserver {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ImportLogObserver{log: log}
}

// Subscribe registers the observer's handlers on bus.
func (o *ImportLogObserver) Subscribe(bus eventbus.EventBus) {
	bus.Subscribe(o.OnCommitted)
	bus.Subscribe(o.OnRolledBack)
}

func (o *ImportLogObserver) OnCommitted(e *ImportCommitted) {
	s := e.Summary
	o.log.WithFields(logrus.Fields{
		"run_id":           e.RunID.String(),
		"actor_id":         e.ActorID,
		"duration_ms":      e.Duration.Milliseconds(),
		"projects_created": s.ProjectsCreated,
		"projects_updated": s.ProjectsUpdated,
		"links_created":    s.LinksCreated,
		"rows_skipped":     s.RowsSkipped,
		"corrections":      len(s.DataCorrections),
	}).Info("project import committed")
}

func (o *ImportLogObserver) OnRolledBack(e *ImportRolledBack) {
	entry := o.log.WithFields(logrus.Fields{
		"run_id":      e.RunID.String(),
		"actor_id":    e.ActorID,
		"duration_ms": e.Duration.Milliseconds(),
		"row_errors":  len(e.Err.Errors),
	})
	if e.Err.Cause != nil {
		entry = entry.WithError(e.Err.Cause)
	}
	for _, re := range e.Err.Errors {
		entry.WithField("row", re.Row).Warn(re.Message)
	}
	entry.Error("project import rolled back")
}
