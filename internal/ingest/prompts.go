package ingest

import (
	"context"
	"fmt"
	"github.com/myrjola/caseledger/internal/ai"
	"github.com/myrjola/caseledger/internal/dedupe"
	"github.com/myrjola/caseledger/internal/models"
	"strings"
)

// maxPromptContent caps how much evidence text goes into one prompt.
const maxPromptContent = 60000

// identityResult is the provider's untyped answer for the identity prompt,
// validated here before anything enters the domain model.
type identityResult struct {
	Title   string `json:"title"`
	Date    string `json:"date"`
	Type    string `json:"type"`
	Summary string `json:"summary"`
}

var identitySchema = &ai.Schema{
	Type: "object",
	Properties: map[string]*ai.Schema{
		"title":   {Type: "string"},
		"date":    {Type: "string", Description: "YYYY-MM-DD or empty if unknown"},
		"type":    {Type: "string"},
		"summary": {Type: "string"},
	},
	Required: []string{"title", "summary"},
}

// identify derives what the document is, independent of its filename.
func (o *Orchestrator) identify(ctx context.Context, file File) (dedupe.Identity, error) {
	prompt := fmt.Sprintf(`Analyze this document.
1. Determine its official title (e.g., "Arrest Report", "Motion to Dismiss").
2. Extract the document date (YYYY-MM-DD), empty if unknown.
3. Summarize it in one sentence.

FILENAME: %s
CONTENT:
%s`, file.Name, clipContent(file))

	var result identityResult
	if err := o.client.GenerateJSON(ctx, ai.Request{
		SystemPrompt: "You classify legal evidence documents and answer strictly in JSON.",
		UserPrompt:   prompt,
		Schema:       identitySchema,
	}, &result); err != nil {
		return dedupe.Identity{}, err
	}
	return dedupe.Identity{
		Title:   result.Title,
		Date:    result.Date,
		Kind:    result.Type,
		Summary: result.Summary,
	}, nil
}

type eventResult struct {
	Date                  string `json:"date"`
	Title                 string `json:"title"`
	Actor                 string `json:"actor"`
	Cause                 string `json:"cause"`
	Effect                string `json:"effect"`
	Claim                 string `json:"claim"`
	Relief                string `json:"relief"`
	SourceCitation        string `json:"sourceCitation"`
	NeedsClarification    bool   `json:"needsClarification"`
	ClarificationQuestion string `json:"clarificationQuestion"`
}

var eventSchema = &ai.Schema{
	Type: "array",
	Items: &ai.Schema{
		Type: "object",
		Properties: map[string]*ai.Schema{
			"date":                  {Type: "string", Description: "YYYY-MM-DD or empty if unknown"},
			"title":                 {Type: "string"},
			"actor":                 {Type: "string", Description: "The acting party"},
			"cause":                 {Type: "string"},
			"effect":                {Type: "string"},
			"claim":                 {Type: "string"},
			"relief":                {Type: "string"},
			"sourceCitation":        {Type: "string", Description: "Direct quote or reference from the text"},
			"needsClarification":    {Type: "boolean"},
			"clarificationQuestion": {Type: "string"},
		},
		Required: []string{"title", "cause", "effect", "claim"},
	},
}

// extractEvents pulls a chronological set of factual assertions out of one
// evidence file.
func (o *Orchestrator) extractEvents(ctx context.Context, file File) ([]models.TimelineEvent, error) {
	prompt := fmt.Sprintf(`Extract a strictly chronological timeline of events from the provided evidence.

RULES:
1. Extract specific dates for every event. If a date is ambiguous (e.g., "last Tuesday"), set needsClarification to true and write a clarificationQuestion asking the user to specify the date.
2. Identify the acting party for each event.
3. Identify the cause (action or omission) and effect (resulting injury or consequence).
4. Identify the asserted legal or factual claim and the relief sought or available.
5. Identify the exact phrase in the text that proves the event occurred and return it as sourceCitation.

Return a JSON array of event objects.

EVIDENCE:
%s`, clipContent(file))

	var results []eventResult
	if err := o.client.GenerateJSON(ctx, ai.Request{
		SystemPrompt: "You are a forensic analyst extracting structured timeline events. Answer strictly in JSON.",
		UserPrompt:   prompt,
		Schema:       eventSchema,
	}, &results); err != nil {
		return nil, err
	}

	events := make([]models.TimelineEvent, 0, len(results))
	for _, r := range results {
		needsClarification := r.NeedsClarification
		if r.Date == "" && !needsClarification {
			// An unresolved date always surfaces as a clarification, even
			// when the provider forgot to flag it.
			needsClarification = true
		}
		events = append(events, models.TimelineEvent{
			Date:                  r.Date,
			Title:                 r.Title,
			Actor:                 r.Actor,
			Cause:                 r.Cause,
			Effect:                r.Effect,
			Claim:                 r.Claim,
			Relief:                r.Relief,
			SourceQuote:           r.SourceCitation,
			NeedsClarification:    needsClarification,
			ClarificationQuestion: r.ClarificationQuestion,
		})
	}
	return events, nil
}

func clipContent(file File) string {
	text := file.Text
	if text == "" && len(file.MediaPayload) > 0 {
		text = fmt.Sprintf("[media payload, %d bytes, kind %s, no transcript]", len(file.MediaPayload), file.Kind)
	}
	if len(text) > maxPromptContent {
		text = text[:maxPromptContent]
	}
	return strings.TrimSpace(text)
}
