package repositories

import (
	"context"
	"github.com/myrjola/caseledger/internal/errors"
	"github.com/myrjola/caseledger/internal/models"
	"github.com/myrjola/caseledger/internal/sqlite"
	"log/slog"
)

// ErrStorageWriteFailed signals that one record's transaction failed. The
// caller treats it as fatal for that record only, never for the whole batch.
var ErrStorageWriteFailed = errors.NewSentinel("storage write failed")

type CaseRepository struct {
	dbs    *sqlite.Database
	logger *slog.Logger
}

func NewCaseRepository(dbs *sqlite.Database, logger *slog.Logger) *CaseRepository {
	return &CaseRepository{
		dbs:    dbs,
		logger: logger.With("source", "CaseRepository"),
	}
}

func (r *CaseRepository) List(ctx context.Context) ([]models.Case, error) {
	var cases []models.Case
	stmt := `SELECT id, name, description, created, last_modified FROM cases ORDER BY created`
	if err := r.dbs.ReadOnly.SelectContext(ctx, &cases, stmt); err != nil {
		return nil, errors.Wrap(err, "list cases")
	}
	return cases, nil
}

func (r *CaseRepository) Get(ctx context.Context, id string) (*models.Case, error) {
	var c models.Case
	stmt := `SELECT id, name, description, created, last_modified FROM cases WHERE id = ?`
	if err := r.dbs.ReadOnly.GetContext(ctx, &c, stmt, id); err != nil {
		return nil, errors.Wrap(err, "get case", slog.String("id", id))
	}
	return &c, nil
}

// Save upserts the whole case record by identifier.
func (r *CaseRepository) Save(ctx context.Context, c models.Case) error {
	stmt := `INSERT INTO cases (id, name, description, created, last_modified)
VALUES (:id, :name, :description, :created, :last_modified)
ON CONFLICT (id) DO UPDATE SET name          = excluded.name,
                               description   = excluded.description,
                               last_modified = excluded.last_modified`
	if _, err := r.dbs.ReadWrite.NamedExecContext(ctx, stmt, c); err != nil {
		return errors.Wrap(ErrStorageWriteFailed, "save case",
			slog.String("id", c.ID), slog.String("cause", err.Error()))
	}
	return nil
}
