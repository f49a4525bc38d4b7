package ai

import (
	"context"
	"github.com/myrjola/caseledger/internal/testhelpers"
	"github.com/stretchr/testify/require"
	"io"
	"testing"
)

// scriptedProvider returns canned responses in order and records every request
// it receives.
type scriptedProvider struct {
	name      string
	responses []string
	errs      []error
	requests  []Request
}

func (p *scriptedProvider) Name() string { return p.name }

func (p *scriptedProvider) Complete(_ context.Context, req Request) (string, error) {
	i := len(p.requests)
	p.requests = append(p.requests, req)
	var err error
	if i < len(p.errs) {
		err = p.errs[i]
	}
	var response string
	if i < len(p.responses) {
		response = p.responses[i]
	}
	return response, err
}

func newTestClient(primary, fallback Provider) *Client {
	return NewClient(primary, fallback, testhelpers.NewLogger(io.Discard))
}

func TestClient_GenerateText_Primary(t *testing.T) {
	primary := &scriptedProvider{name: "primary", responses: []string{"fine"}}
	fallback := &scriptedProvider{name: "fallback"}
	c := newTestClient(primary, fallback)

	got, err := c.GenerateText(context.Background(), Request{UserPrompt: "q"})
	require.NoError(t, err)
	require.Equal(t, "fine", got)
	require.Len(t, primary.requests, 1)
	require.Empty(t, fallback.requests, "fallback must not run when primary succeeds")
}

func TestClient_GenerateText_FallbackSingleHop(t *testing.T) {
	primary := &scriptedProvider{name: "primary", errs: []error{errEmptyResponse, errEmptyResponse}}
	fallback := &scriptedProvider{name: "fallback", responses: []string{"rescued"}}
	c := newTestClient(primary, fallback)

	got, err := c.GenerateText(context.Background(), Request{UserPrompt: "q"})
	require.NoError(t, err)
	require.Equal(t, "rescued", got)
	require.Len(t, primary.requests, 1)
	require.Len(t, fallback.requests, 1)
}

func TestClient_GenerateText_BothFail(t *testing.T) {
	primary := &scriptedProvider{name: "primary", errs: []error{errEmptyResponse}}
	fallback := &scriptedProvider{name: "fallback", errs: []error{errEmptyResponse}}
	c := newTestClient(primary, fallback)

	_, err := c.GenerateText(context.Background(), Request{UserPrompt: "q"})
	require.ErrorIs(t, err, ErrProvider)
	// Single hop: one attempt each, no alternation.
	require.Len(t, primary.requests, 1)
	require.Len(t, fallback.requests, 1)
}

func TestClient_GenerateText_NoFallbackConfigured(t *testing.T) {
	primary := &scriptedProvider{name: "primary", errs: []error{errEmptyResponse}}
	c := newTestClient(primary, nil)

	_, err := c.GenerateText(context.Background(), Request{UserPrompt: "q"})
	require.ErrorIs(t, err, ErrProvider)
	require.Len(t, primary.requests, 1)
}

func TestClient_GenerateJSON_CleanResponse(t *testing.T) {
	primary := &scriptedProvider{name: "primary", responses: []string{`{"title":"Arrest Report"}`}}
	c := newTestClient(primary, nil)

	var out struct {
		Title string `json:"title"`
	}
	err := c.GenerateJSON(context.Background(), Request{UserPrompt: "q"}, &out)
	require.NoError(t, err)
	require.Equal(t, "Arrest Report", out.Title)
	require.True(t, primary.requests[0].JSONMode)
}

func TestClient_GenerateJSON_LocalRepairNoExtraCall(t *testing.T) {
	// Truncated mid-array: local repair must succeed without a repair request.
	truncated := `[{"title":"a"},{"title":"b"`
	primary := &scriptedProvider{name: "primary", responses: []string{truncated}}
	c := newTestClient(primary, nil)

	var out []struct {
		Title string `json:"title"`
	}
	err := c.GenerateJSON(context.Background(), Request{UserPrompt: "q"}, &out)
	require.NoError(t, err)
	require.Len(t, primary.requests, 1, "local repair must not issue provider calls")
	require.Equal(t, "a", out[0].Title)
}

func TestClient_GenerateJSON_RepairRequest(t *testing.T) {
	// Unrepairable locally; the repair request returns valid JSON.
	primary := &scriptedProvider{name: "primary", responses: []string{
		`{"title": certainly not json`,
		`{"title":"fixed"}`,
	}}
	c := newTestClient(primary, nil)

	var out struct {
		Title string `json:"title"`
	}
	err := c.GenerateJSON(context.Background(), Request{UserPrompt: "q"}, &out)
	require.NoError(t, err)
	require.Equal(t, "fixed", out.Title)
	require.Len(t, primary.requests, 2)
	require.True(t, primary.requests[1].Fast, "repair request must use the fast model")
}

func TestClient_GenerateJSON_Unrecoverable(t *testing.T) {
	// Both the original response and the repair response are garbage. The call
	// must terminate after exactly one repair request.
	primary := &scriptedProvider{name: "primary", responses: []string{
		`{"title": certainly not json`,
		`still { not : json`,
	}}
	c := newTestClient(primary, nil)

	var out map[string]any
	err := c.GenerateJSON(context.Background(), Request{UserPrompt: "q"}, &out)
	require.ErrorIs(t, err, ErrExtractionUnrecoverable)
	require.Len(t, primary.requests, 2, "no further calls after the repair request")
}

func TestClient_GenerateJSON_NoProvider(t *testing.T) {
	c := newTestClient(nil, nil)
	var out map[string]any
	err := c.GenerateJSON(context.Background(), Request{UserPrompt: "q"}, &out)
	require.ErrorIs(t, err, ErrNoProvider)
}
