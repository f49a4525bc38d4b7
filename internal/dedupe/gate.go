// Package dedupe decides whether incoming evidence duplicates material already
// on file, first by exact digest, then by a provider-assisted semantic check.
package dedupe

import (
	"context"
	"fmt"
	"github.com/agext/levenshtein"
	"github.com/myrjola/caseledger/internal/ai"
	"github.com/myrjola/caseledger/internal/errors"
	"github.com/myrjola/caseledger/internal/hash"
	"github.com/myrjola/caseledger/internal/models"
	"log/slog"
	"sort"
	"strings"
)

type VerdictKind string

const (
	// VerdictExact means the digest matched an existing or same-batch item.
	VerdictExact VerdictKind = "exact"
	// VerdictSemantic means the extraction provider judged the item to be the
	// same evidence under a different surface form.
	VerdictSemantic VerdictKind = "semantic"
	VerdictNovel    VerdictKind = "novel"
)

// Verdict is the gate's decision. MatchedTitle names the existing item for
// Exact and Semantic verdicts so skips can be reported, never silently lost.
type Verdict struct {
	Kind         VerdictKind
	MatchedTitle string
}

// Seen is an item accepted earlier in the same ingestion batch. Batch items
// are not yet persisted, so the gate has to be told about them.
type Seen struct {
	Digest string
	Title  string
	Date   string
}

// Identity is the derived identity of the incoming item: what the extraction
// provider believes the document is, independent of its filename.
type Identity struct {
	Title   string
	Date    string
	Kind    string
	Summary string
}

// IdentityFunc derives the identity of the incoming item on demand. The gate
// only invokes it when the semantic tier actually runs, so exact duplicates
// and empty cases never pay for an extraction call.
type IdentityFunc func(ctx context.Context) (Identity, error)

// maxCandidates caps how many existing titles go into the comparison prompt.
// Candidates are ranked by title distance so the prompt stays compact even in
// large cases.
const maxCandidates = 40

type metadataLister interface {
	ListMetadata(ctx context.Context, caseID string) ([]models.DocumentMeta, error)
}

type jsonGenerator interface {
	GenerateJSON(ctx context.Context, req ai.Request, v any) error
}

type Gate struct {
	documents metadataLister
	client    jsonGenerator
	logger    *slog.Logger
}

func NewGate(documents metadataLister, client jsonGenerator, logger *slog.Logger) *Gate {
	return &Gate{
		documents: documents,
		client:    client,
		logger:    logger.With("source", "dedupe.Gate"),
	}
}

// judgment is the provider's answer to the comparison prompt. It stays inside
// this package; the verdict is the typed boundary.
type judgment struct {
	IsDuplicate bool   `json:"isDuplicate"`
	DuplicateOf string `json:"duplicateOf"`
}

var judgmentSchema = &ai.Schema{
	Type: "object",
	Properties: map[string]*ai.Schema{
		"isDuplicate": {Type: "boolean"},
		"duplicateOf": {Type: "string"},
	},
	Required: []string{"isDuplicate"},
}

// Check runs the two-tier gate for one incoming item.
//
// Tier one compares the content digest against every stored metadata record in
// the case and against items accepted earlier in the same batch; a match
// short-circuits as Exact without any provider call. Tier two asks the
// extraction client for a semantic judgment against a compact candidate list.
// The client's answer is trusted as-is; a false negative is an accepted risk
// of probabilistic matching.
//
// An empty case with an empty batch resolves Novel immediately to avoid a
// wasted provider call.
//
// The returned identity is non-nil when the semantic tier derived one, so the
// caller can reuse it instead of paying for a second derivation.
func (g *Gate) Check(
	ctx context.Context,
	caseID string,
	raw []byte,
	batch []Seen,
	identify IdentityFunc,
) (Verdict, *Identity, error) {
	digest := hash.Digest(raw)

	metas, err := g.documents.ListMetadata(ctx, caseID)
	if err != nil {
		return Verdict{}, nil, errors.Wrap(err, "list existing metadata", slog.String("caseID", caseID))
	}

	for _, meta := range metas {
		if meta.Digest == digest {
			return Verdict{Kind: VerdictExact, MatchedTitle: meta.Title}, nil, nil
		}
	}
	for _, seen := range batch {
		if seen.Digest == digest {
			return Verdict{Kind: VerdictExact, MatchedTitle: seen.Title}, nil, nil
		}
	}

	if len(metas) == 0 && len(batch) == 0 {
		return Verdict{Kind: VerdictNovel}, nil, nil
	}

	identity, err := identify(ctx)
	if err != nil {
		return Verdict{}, nil, errors.Wrap(err, "derive identity", slog.String("caseID", caseID))
	}

	candidates := rankCandidates(identity.Title, metas, batch)
	prompt := comparisonPrompt(identity, candidates)

	var j judgment
	if err = g.client.GenerateJSON(ctx, ai.Request{
		SystemPrompt: "You compare document identities and answer strictly in JSON.",
		UserPrompt:   prompt,
		Schema:       judgmentSchema,
		Fast:         true,
	}, &j); err != nil {
		return Verdict{}, &identity, errors.Wrap(err, "semantic comparison", slog.String("caseID", caseID))
	}

	if j.IsDuplicate {
		matched := j.DuplicateOf
		if matched == "" {
			matched = "existing record"
		}
		return Verdict{Kind: VerdictSemantic, MatchedTitle: matched}, &identity, nil
	}
	return Verdict{Kind: VerdictNovel}, &identity, nil
}

type candidate struct {
	title    string
	date     string
	pending  bool
	distance int
}

// rankCandidates orders existing and same-batch titles by edit distance to the
// new title and keeps the closest maxCandidates.
func rankCandidates(newTitle string, metas []models.DocumentMeta, batch []Seen) []candidate {
	newLower := strings.ToLower(newTitle)
	candidates := make([]candidate, 0, len(metas)+len(batch))
	for _, meta := range metas {
		candidates = append(candidates, candidate{
			title:    meta.Title,
			date:     meta.AddedAt.Format("2006-01-02"),
			distance: levenshtein.Distance(newLower, strings.ToLower(meta.Title), nil),
		})
	}
	for _, seen := range batch {
		candidates = append(candidates, candidate{
			title:    seen.Title,
			date:     seen.Date,
			pending:  true,
			distance: levenshtein.Distance(newLower, strings.ToLower(seen.Title), nil),
		})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].distance < candidates[j].distance
	})
	if len(candidates) > maxCandidates {
		candidates = candidates[:maxCandidates]
	}
	return candidates
}

func comparisonPrompt(identity Identity, candidates []candidate) string {
	var sb strings.Builder
	sb.WriteString("A new evidence item has been derived:\n")
	fmt.Fprintf(&sb, "Title: %q, Date: %s, Summary: %s\n\n", identity.Title, orUnknown(identity.Date), identity.Summary)
	sb.WriteString("Compare it against this list of documents already on file:\n")
	for _, c := range candidates {
		if c.pending {
			fmt.Fprintf(&sb, "Title: %q (processing in current batch)\n", c.title)
			continue
		}
		fmt.Fprintf(&sb, "Title: %q, Date: %s\n", c.title, c.date)
	}
	sb.WriteString("\nIf the new item is the same document as one in the list, even under a " +
		"different filename or title, set isDuplicate to true and duplicateOf to the existing title.")
	return sb.String()
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
