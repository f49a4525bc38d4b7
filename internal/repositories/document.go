package repositories

import (
	"context"
	"database/sql"
	"fmt"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/myrjola/caseledger/internal/errors"
	"github.com/myrjola/caseledger/internal/models"
	"github.com/myrjola/caseledger/internal/sqlite"
	"log/slog"
)

// ErrContentNotFound signals that no content blob exists for the identifier.
// Absent content is an expected outcome, not an exceptional one.
var ErrContentNotFound = errors.NewSentinel("document content not found")

// contentCacheSize bounds the read-through blob cache. Blobs can be large
// (embedded media payloads), so the cache stays small.
const contentCacheSize = 32

// DocumentRepository implements the split store: metadata rows stay small and
// cheap to list while content blobs live in their own table and are loaded on
// demand. Writes to both halves happen in a single transaction so a reader
// never observes metadata without retrievable content, or vice versa.
type DocumentRepository struct {
	dbs    *sqlite.Database
	cache  *lru.Cache[string, models.DocumentContent]
	logger *slog.Logger
}

func NewDocumentRepository(dbs *sqlite.Database, logger *slog.Logger) (*DocumentRepository, error) {
	cache, err := lru.New[string, models.DocumentContent](contentCacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "create content cache")
	}
	return &DocumentRepository{
		dbs:    dbs,
		cache:  cache,
		logger: logger.With("source", "DocumentRepository"),
	}, nil
}

// ListMetadata returns the metadata records for a case. It never touches the
// blob table, so listing stays cheap regardless of content size.
func (r *DocumentRepository) ListMetadata(ctx context.Context, caseID string) ([]models.DocumentMeta, error) {
	var metas []models.DocumentMeta
	stmt := `SELECT id, title, sequence_label, kind, digest, added_at, reliability_score, case_id
FROM documents
WHERE case_id = ?
ORDER BY sequence_label`
	if err := r.dbs.ReadOnly.SelectContext(ctx, &metas, stmt, caseID); err != nil {
		return nil, errors.Wrap(err, "list document metadata", slog.String("caseID", caseID))
	}
	return metas, nil
}

// GetContent returns the content half only. Returns ErrContentNotFound when
// the blob is absent.
func (r *DocumentRepository) GetContent(ctx context.Context, id string) (*models.DocumentContent, error) {
	if content, ok := r.cache.Get(id); ok {
		return &content, nil
	}
	var content models.DocumentContent
	stmt := `SELECT id, text, media_payload FROM document_blobs WHERE id = ?`
	err := r.dbs.ReadOnly.GetContext(ctx, &content, stmt, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrap(ErrContentNotFound, "get document content", slog.String("id", id))
		}
		return nil, errors.Wrap(err, "get document content", slog.String("id", id))
	}
	r.cache.Add(id, content)
	return &content, nil
}

// Save splits the document into its metadata and content halves and writes
// both under one transaction: either both become visible or neither does.
func (r *DocumentRepository) Save(ctx context.Context, doc models.Document) error {
	doc.Content.ID = doc.ID

	tx, err := r.dbs.ReadWrite.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(ErrStorageWriteFailed, "begin transaction",
			slog.String("id", doc.ID), slog.String("cause", err.Error()))
	}
	defer func() {
		// Rollback is a no-op after a successful commit.
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			r.logger.LogAttrs(ctx, slog.LevelError, "failed to rollback transaction",
				errors.SlogError(rollbackErr))
		}
	}()

	metaStmt := `INSERT INTO documents (id, title, sequence_label, kind, digest, added_at, reliability_score, case_id)
VALUES (:id, :title, :sequence_label, :kind, :digest, :added_at, :reliability_score, :case_id)
ON CONFLICT (id) DO UPDATE SET title             = excluded.title,
                               sequence_label    = excluded.sequence_label,
                               kind              = excluded.kind,
                               digest            = excluded.digest,
                               reliability_score = excluded.reliability_score`
	if _, err = tx.NamedExecContext(ctx, metaStmt, doc.DocumentMeta); err != nil {
		return errors.Wrap(ErrStorageWriteFailed, "save document metadata",
			slog.String("id", doc.ID), slog.String("cause", err.Error()))
	}

	blobStmt := `INSERT INTO document_blobs (id, text, media_payload)
VALUES (:id, :text, :media_payload)
ON CONFLICT (id) DO UPDATE SET text          = excluded.text,
                               media_payload = excluded.media_payload`
	if _, err = tx.NamedExecContext(ctx, blobStmt, doc.Content); err != nil {
		return errors.Wrap(ErrStorageWriteFailed, "save document content",
			slog.String("id", doc.ID), slog.String("cause", err.Error()))
	}

	if err = tx.Commit(); err != nil {
		return errors.Wrap(ErrStorageWriteFailed, "commit document",
			slog.String("id", doc.ID), slog.String("cause", err.Error()))
	}

	r.cache.Remove(doc.ID)
	return nil
}

// Delete removes both halves atomically.
func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.dbs.ReadWrite.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(ErrStorageWriteFailed, "begin transaction",
			slog.String("id", id), slog.String("cause", err.Error()))
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			r.logger.LogAttrs(ctx, slog.LevelError, "failed to rollback transaction",
				errors.SlogError(rollbackErr))
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id); err != nil {
		return errors.Wrap(ErrStorageWriteFailed, "delete document metadata",
			slog.String("id", id), slog.String("cause", err.Error()))
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM document_blobs WHERE id = ?`, id); err != nil {
		return errors.Wrap(ErrStorageWriteFailed, "delete document content",
			slog.String("id", id), slog.String("cause", err.Error()))
	}
	if err = tx.Commit(); err != nil {
		return errors.Wrap(ErrStorageWriteFailed, "commit delete",
			slog.String("id", id), slog.String("cause", err.Error()))
	}

	r.cache.Remove(id)
	return nil
}

// NextSequenceLabel returns the next Bates-style label for the case, e.g.
// DEF-001, DEF-002. The next ordinal derives from the highest stored label
// rather than the row count, so gaps from deletions are not refilled.
func (r *DocumentRepository) NextSequenceLabel(ctx context.Context, caseID string) (string, error) {
	var next int
	stmt := `SELECT COALESCE(MAX(CAST(substr(sequence_label, instr(sequence_label, '-') + 1) AS INTEGER)), 0) + 1
FROM documents
WHERE case_id = ?`
	if err := r.dbs.ReadOnly.GetContext(ctx, &next, stmt, caseID); err != nil {
		return "", errors.Wrap(err, "next sequence label", slog.String("caseID", caseID))
	}
	return fmt.Sprintf("DEF-%03d", next), nil
}
