// Package ingest sequences evidence intake per file: hash, dedupe, extract,
// persist. Files in a batch are isolated from each other's failures.
package ingest

import (
	"context"
	"github.com/google/uuid"
	"github.com/myrjola/caseledger/internal/ai"
	"github.com/myrjola/caseledger/internal/dedupe"
	"github.com/myrjola/caseledger/internal/errors"
	"github.com/myrjola/caseledger/internal/hash"
	"github.com/myrjola/caseledger/internal/models"
	"github.com/myrjola/caseledger/internal/sqlite"
	"log/slog"
	"regexp"
	"time"
)

// State tracks one file through the pipeline.
type State string

const (
	StateReceived          State = "received"
	StateHashed            State = "hashed"
	StateExactDuplicate    State = "exact_duplicate"
	StateSemanticDuplicate State = "semantic_duplicate"
	StateExtracting        State = "extracting"
	StatePersisted         State = "persisted"
	StateFailed            State = "failed"
)

// File is one piece of incoming evidence. Text carries the transcript, OCR or
// pasted body; MediaPayload carries raw media bytes when the evidence is not
// textual. The custody digest covers the media payload when present, the text
// bytes otherwise.
type File struct {
	Name         string
	Kind         models.MediaKind
	Text         string
	MediaPayload []byte
}

func (f File) rawBytes() []byte {
	if len(f.MediaPayload) > 0 {
		return f.MediaPayload
	}
	return []byte(f.Text)
}

// DuplicateRecord surfaces one skipped file so the caller can render a
// post-hoc duplicate report. Skips are never silently discarded.
type DuplicateRecord struct {
	FileName     string
	MatchedTitle string
	Semantic     bool
}

// FailureRecord retains enough context to render a per-file failure.
type FailureRecord struct {
	FileName string
	Err      error
}

// Report summarizes one batch.
type Report struct {
	FilesProcessed           int
	Added                    int
	SkippedExactDuplicate    int
	SkippedSemanticDuplicate int
	Failed                   int
	Duplicates               []DuplicateRecord
	Failures                 []FailureRecord
}

type documentStore interface {
	Save(ctx context.Context, doc models.Document) error
	NextSequenceLabel(ctx context.Context, caseID string) (string, error)
}

type eventStore interface {
	Save(ctx context.Context, ev models.TimelineEvent) error
	Get(ctx context.Context, id string) (*models.TimelineEvent, error)
}

type duplicateGate interface {
	Check(ctx context.Context, caseID string, raw []byte, batch []dedupe.Seen,
		identify dedupe.IdentityFunc) (dedupe.Verdict, *dedupe.Identity, error)
}

type extractor interface {
	GenerateJSON(ctx context.Context, req ai.Request, v any) error
}

type Orchestrator struct {
	documents documentStore
	events    eventStore
	gate      duplicateGate
	client    extractor
	logger    *slog.Logger
	now       func() time.Time
}

func NewOrchestrator(
	documents documentStore,
	events eventStore,
	gate duplicateGate,
	client extractor,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		documents: documents,
		events:    events,
		gate:      gate,
		client:    client,
		logger:    logger.With("source", "ingest.Orchestrator"),
		now:       time.Now,
	}
}

// IngestBatch processes files one at a time in the given order. A file that
// fails moves to StateFailed and is counted separately from duplicates; it
// never aborts its siblings. Only ErrStorageUnavailable aborts the batch.
func (o *Orchestrator) IngestBatch(ctx context.Context, caseID string, files []File) (Report, error) {
	var (
		report Report
		batch  []dedupe.Seen
	)

	for _, file := range files {
		report.FilesProcessed++

		seen, state, err := o.ingestOne(ctx, caseID, file, batch, &report)
		switch state {
		case StatePersisted:
			report.Added++
			batch = append(batch, *seen)
		case StateExactDuplicate:
			report.SkippedExactDuplicate++
		case StateSemanticDuplicate:
			report.SkippedSemanticDuplicate++
		case StateFailed:
			report.Failed++
			report.Failures = append(report.Failures, FailureRecord{FileName: file.Name, Err: err})
			o.logger.LogAttrs(ctx, slog.LevelError, "file failed",
				slog.String("file", file.Name), errors.SlogError(err))
			if errors.Is(err, sqlite.ErrStorageUnavailable) {
				// The store itself is gone; continuing would fail every
				// sibling the same way.
				return report, errors.Wrap(err, "ingest batch aborted", slog.String("caseID", caseID))
			}
		}
	}

	return report, nil
}

// ingestOne walks one file through the state machine.
func (o *Orchestrator) ingestOne(
	ctx context.Context,
	caseID string,
	file File,
	batch []dedupe.Seen,
	report *Report,
) (*dedupe.Seen, State, error) {
	raw := file.rawBytes()
	digest := hash.Digest(raw)

	verdict, identity, err := o.gate.Check(ctx, caseID, raw, batch, func(ctx context.Context) (dedupe.Identity, error) {
		return o.identify(ctx, file)
	})
	if err != nil {
		return nil, StateFailed, err
	}

	switch verdict.Kind {
	case dedupe.VerdictExact:
		report.Duplicates = append(report.Duplicates, DuplicateRecord{
			FileName:     file.Name,
			MatchedTitle: verdict.MatchedTitle,
		})
		return nil, StateExactDuplicate, nil
	case dedupe.VerdictSemantic:
		report.Duplicates = append(report.Duplicates, DuplicateRecord{
			FileName:     file.Name,
			MatchedTitle: verdict.MatchedTitle,
			Semantic:     true,
		})
		return nil, StateSemanticDuplicate, nil
	case dedupe.VerdictNovel:
	}

	// The gate derives the identity only when its semantic tier runs; an
	// empty case resolves Novel without one.
	if identity == nil {
		derived, identifyErr := o.identify(ctx, file)
		if identifyErr != nil {
			return nil, StateFailed, identifyErr
		}
		identity = &derived
	}

	events, err := o.extractEvents(ctx, file)
	if err != nil {
		return nil, StateFailed, err
	}

	doc, err := o.persistDocument(ctx, caseID, file, digest, *identity)
	if err != nil {
		return nil, StateFailed, err
	}

	for i := range events {
		events[i].ID = uuid.NewString()
		events[i].CaseID = caseID
		events[i].SourceDocumentID = doc.ID
		if err = o.events.Save(ctx, events[i]); err != nil {
			return nil, StateFailed, err
		}
	}

	return &dedupe.Seen{Digest: digest, Title: doc.Title, Date: identity.Date}, StatePersisted, nil
}

func (o *Orchestrator) persistDocument(
	ctx context.Context,
	caseID string,
	file File,
	digest string,
	identity dedupe.Identity,
) (models.Document, error) {
	label, err := o.documents.NextSequenceLabel(ctx, caseID)
	if err != nil {
		return models.Document{}, err
	}

	title := identity.Title
	if title == "" {
		title = file.Name
	}
	kind := file.Kind
	if kind == "" {
		kind = models.MediaKindText
	}

	doc := models.Document{
		DocumentMeta: models.DocumentMeta{
			ID:               uuid.NewString(),
			Title:            title,
			SequenceLabel:    label,
			Kind:             kind,
			Digest:           digest,
			AddedAt:          o.now(),
			ReliabilityScore: models.DefaultReliabilityScore,
			CaseID:           caseID,
		},
		Content: models.DocumentContent{
			Text:         file.Text,
			MediaPayload: string(file.MediaPayload),
		},
	}
	if err = o.documents.Save(ctx, doc); err != nil {
		return models.Document{}, err
	}
	return doc, nil
}

// IngestText is the manual path for pasted text. It skips the dedupe gate
// like the original intake did, but still records a custody digest.
func (o *Orchestrator) IngestText(ctx context.Context, caseID string, title string, text string) (models.Document, []models.TimelineEvent, error) {
	file := File{Name: title, Kind: models.MediaKindText, Text: text}

	events, err := o.extractEvents(ctx, file)
	if err != nil {
		return models.Document{}, nil, err
	}

	doc, err := o.persistDocument(ctx, caseID, file, hash.Digest(file.rawBytes()),
		dedupe.Identity{Title: title})
	if err != nil {
		return models.Document{}, nil, err
	}

	for i := range events {
		events[i].ID = uuid.NewString()
		events[i].CaseID = caseID
		events[i].SourceDocumentID = doc.ID
		if err = o.events.Save(ctx, events[i]); err != nil {
			return models.Document{}, nil, err
		}
	}
	return doc, events, nil
}

var isoDate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

var ErrInvalidDate = errors.NewSentinel("date must be YYYY-MM-DD")

// ResolveClarification answers an event's clarification question by supplying
// a concrete date. A valid date clears the flag and the question.
func (o *Orchestrator) ResolveClarification(ctx context.Context, eventID string, date string) error {
	if !isoDate.MatchString(date) {
		return errors.Wrap(ErrInvalidDate, "resolve clarification", slog.String("date", date))
	}
	ev, err := o.events.Get(ctx, eventID)
	if err != nil {
		return err
	}
	ev.Date = date
	ev.NeedsClarification = false
	ev.ClarificationQuestion = ""
	return o.events.Save(ctx, *ev)
}
