package repositories_test

import (
	"context"
	"github.com/myrjola/caseledger/internal/models"
	"github.com/myrjola/caseledger/internal/sqlite"
	"github.com/myrjola/caseledger/internal/testhelpers"
	"io"
	"testing"
	"time"
)

// newTestDB creates a new in-memory database for testing purposes.
func newTestDB(t *testing.T) *sqlite.Database {
	t.Helper()

	dbs, err := sqlite.NewDatabase(context.Background(), ":memory:", testhelpers.NewLogger(io.Discard))
	if err != nil {
		t.Fatal(err)
	}

	t.Cleanup(func() {
		if err = dbs.Close(); err != nil {
			t.Fatal(err)
		}
	})

	return dbs
}

func testCase(id string) models.Case {
	created := time.Date(2023, 5, 1, 12, 0, 0, 0, time.UTC)
	return models.Case{
		ID:           id,
		Name:         "State v. Example",
		Description:  "CR23-0657",
		Created:      created,
		LastModified: created,
	}
}

func testDocument(id, caseID, digest string) models.Document {
	return models.Document{
		DocumentMeta: models.DocumentMeta{
			ID:               id,
			Title:            "Arrest Report",
			SequenceLabel:    "DEF-001",
			Kind:             models.MediaKindPDF,
			Digest:           digest,
			AddedAt:          time.Date(2023, 6, 1, 9, 30, 0, 0, time.UTC),
			ReliabilityScore: models.DefaultReliabilityScore,
			CaseID:           caseID,
		},
		Content: models.DocumentContent{
			ID:   id,
			Text: "On June 1st the defendant was taken into custody.",
		},
	}
}
