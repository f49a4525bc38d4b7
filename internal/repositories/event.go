package repositories

import (
	"context"
	"github.com/myrjola/caseledger/internal/errors"
	"github.com/myrjola/caseledger/internal/models"
	"github.com/myrjola/caseledger/internal/sqlite"
	"log/slog"
)

type EventRepository struct {
	dbs    *sqlite.Database
	logger *slog.Logger
}

func NewEventRepository(dbs *sqlite.Database, logger *slog.Logger) *EventRepository {
	return &EventRepository{
		dbs:    dbs,
		logger: logger.With("source", "EventRepository"),
	}
}

func (r *EventRepository) ListByCase(ctx context.Context, caseID string) ([]models.TimelineEvent, error) {
	var events []models.TimelineEvent
	stmt := `SELECT id, case_id, date, title, actor, cause, effect, claim, relief,
       source_quote, source_document_id, needs_clarification, clarification_question
FROM events
WHERE case_id = ?
ORDER BY date, id`
	if err := r.dbs.ReadOnly.SelectContext(ctx, &events, stmt, caseID); err != nil {
		return nil, errors.Wrap(err, "list events", slog.String("caseID", caseID))
	}
	return events, nil
}

func (r *EventRepository) Get(ctx context.Context, id string) (*models.TimelineEvent, error) {
	var ev models.TimelineEvent
	stmt := `SELECT id, case_id, date, title, actor, cause, effect, claim, relief,
       source_quote, source_document_id, needs_clarification, clarification_question
FROM events
WHERE id = ?`
	if err := r.dbs.ReadOnly.GetContext(ctx, &ev, stmt, id); err != nil {
		return nil, errors.Wrap(err, "get event", slog.String("id", id))
	}
	return &ev, nil
}

// Save upserts the event keyed by its identifier.
func (r *EventRepository) Save(ctx context.Context, ev models.TimelineEvent) error {
	stmt := `INSERT INTO events (id, case_id, date, title, actor, cause, effect, claim, relief,
                    source_quote, source_document_id, needs_clarification, clarification_question)
VALUES (:id, :case_id, :date, :title, :actor, :cause, :effect, :claim, :relief,
        :source_quote, :source_document_id, :needs_clarification, :clarification_question)
ON CONFLICT (id) DO UPDATE SET date                   = excluded.date,
                               title                  = excluded.title,
                               actor                  = excluded.actor,
                               cause                  = excluded.cause,
                               effect                 = excluded.effect,
                               claim                  = excluded.claim,
                               relief                 = excluded.relief,
                               source_quote           = excluded.source_quote,
                               source_document_id     = excluded.source_document_id,
                               needs_clarification    = excluded.needs_clarification,
                               clarification_question = excluded.clarification_question`
	if _, err := r.dbs.ReadWrite.NamedExecContext(ctx, stmt, ev); err != nil {
		return errors.Wrap(ErrStorageWriteFailed, "save event",
			slog.String("id", ev.ID), slog.String("cause", err.Error()))
	}
	return nil
}

func (r *EventRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.dbs.ReadWrite.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id); err != nil {
		return errors.Wrap(ErrStorageWriteFailed, "delete event",
			slog.String("id", id), slog.String("cause", err.Error()))
	}
	return nil
}
