package repositories_test

import (
	"context"
	"github.com/myrjola/caseledger/internal/repositories"
	"github.com/myrjola/caseledger/internal/testhelpers"
	"github.com/stretchr/testify/require"
	"io"
	"testing"
	"time"
)

func TestCaseRepository_SaveAndList(t *testing.T) {
	dbs := newTestDB(t)
	logger := testhelpers.NewLogger(io.Discard)
	repo := repositories.NewCaseRepository(dbs, logger)
	ctx := context.Background()

	cases, err := repo.List(ctx)
	require.NoError(t, err)
	require.Empty(t, cases)

	c := testCase("case-1")
	require.NoError(t, repo.Save(ctx, c))

	cases, err = repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, cases, 1)
	require.Equal(t, "State v. Example", cases[0].Name)

	// Save is an upsert keyed by identifier: no second row, updated fields.
	c.Name = "State v. Example (amended)"
	c.LastModified = c.LastModified.Add(time.Hour)
	require.NoError(t, repo.Save(ctx, c))

	cases, err = repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, cases, 1)
	require.Equal(t, "State v. Example (amended)", cases[0].Name)

	got, err := repo.Get(ctx, "case-1")
	require.NoError(t, err)
	require.Equal(t, "State v. Example (amended)", got.Name)
}
