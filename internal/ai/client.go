// Package ai wraps external structured-generation providers behind a single
// client with provider fallback and self-healing JSON parsing.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/myrjola/caseledger/internal/errors"
	"log/slog"
)

var (
	// ErrProvider signals a transient provider fault after the fallback hop
	// has also been tried.
	ErrProvider = errors.NewSentinel("extraction provider error")
	// ErrExtractionUnrecoverable signals that both providers and the repair
	// request have been exhausted. Terminal for this extraction.
	ErrExtractionUnrecoverable = errors.NewSentinel("extraction unrecoverable")
	// ErrNoProvider signals a client constructed without any provider.
	ErrNoProvider = errors.NewSentinel("no extraction provider configured")
)

// Request describes one structured-generation call.
type Request struct {
	SystemPrompt string
	UserPrompt   string
	// Schema constrains structured output for providers that support response
	// schemas. Nil means unconstrained JSON in JSON mode.
	Schema *Schema
	// JSONMode asks the provider for structured output instead of prose.
	JSONMode bool
	// Fast selects the provider's cheap model, used for repair requests and
	// compact judgments.
	Fast        bool
	Temperature float32
}

// Schema is a minimal JSON-schema subset shared by both providers.
type Schema struct {
	Type        string
	Description string
	Properties  map[string]*Schema
	Items       *Schema
	Required    []string
}

// Provider is one external structured-generation service.
type Provider interface {
	// Complete performs one request and returns the raw text of the response.
	Complete(ctx context.Context, req Request) (string, error)
	Name() string
}

// Client holds a primary and an optional fallback provider. The selection is
// plain per-instance configuration so concurrent sessions and tests never
// interfere through shared state.
type Client struct {
	primary  Provider
	fallback Provider
	logger   *slog.Logger
}

func NewClient(primary Provider, fallback Provider, logger *slog.Logger) *Client {
	return &Client{
		primary:  primary,
		fallback: fallback,
		logger:   logger.With("source", "ai.Client"),
	}
}

// GenerateText attempts the primary provider and, on any failure, the fallback
// provider exactly once. Single hop: it never alternates back.
func (c *Client) GenerateText(ctx context.Context, req Request) (string, error) {
	if c.primary == nil {
		return "", errors.Wrap(ErrNoProvider, "generate text")
	}

	text, err := c.primary.Complete(ctx, req)
	if err == nil {
		return text, nil
	}
	c.logger.LogAttrs(ctx, slog.LevelWarn, "primary provider failed",
		slog.String("provider", c.primary.Name()), errors.SlogError(err))

	if c.fallback == nil {
		return "", errors.Wrap(ErrProvider, "generate text",
			slog.String("provider", c.primary.Name()), slog.String("cause", err.Error()))
	}

	text, fallbackErr := c.fallback.Complete(ctx, req)
	if fallbackErr != nil {
		return "", errors.Wrap(ErrProvider, "generate text with fallback",
			slog.String("provider", c.fallback.Name()), slog.String("cause", fallbackErr.Error()))
	}
	c.logger.LogAttrs(ctx, slog.LevelInfo, "fallback provider succeeded",
		slog.String("provider", c.fallback.Name()))
	return text, nil
}

// GenerateJSON generates structured output and unmarshals it into v.
//
// The raw response goes through a tolerant parser that strips wrapping
// artifacts and applies truncation-repair heuristics locally. If local repair
// fails, exactly one additional request goes to the fast model with the broken
// payload and the parser error; its output passes through the tolerant parser
// once more. After that the call fails with ErrExtractionUnrecoverable.
//
// Externally visible attempts per logical call are bounded at three: primary,
// fallback, repair. Local string repairs are in-process and free.
func (c *Client) GenerateJSON(ctx context.Context, req Request, v any) error {
	req.JSONMode = true
	raw, err := c.GenerateText(ctx, req)
	if err != nil {
		return err
	}

	repaired, parseErr := repairParse(raw)
	if parseErr == nil {
		return unmarshalStrict(repaired, v)
	}

	c.logger.LogAttrs(ctx, slog.LevelWarn, "structured response unparseable, requesting repair",
		errors.SlogError(parseErr))

	repairReq := Request{
		SystemPrompt: "You are a rigid JSON fixer. Output only JSON.",
		UserPrompt: fmt.Sprintf(
			"The following JSON is malformed or truncated.\nERROR: %s\n\nRAW BROKEN JSON:\n%s\n\n"+
				"TASK: Return ONLY valid, corrected JSON. Do not explain. Close any open arrays and objects.",
			parseErr.Error(), raw),
		JSONMode: true,
		Fast:     true,
	}
	repairedRaw, err := c.GenerateText(ctx, repairReq)
	if err != nil {
		return errors.Wrap(ErrExtractionUnrecoverable, "repair request failed",
			slog.String("cause", err.Error()))
	}

	repaired, parseErr = repairParse(repairedRaw)
	if parseErr != nil {
		return errors.Wrap(ErrExtractionUnrecoverable, "repaired response still unparseable",
			slog.String("cause", parseErr.Error()))
	}
	return unmarshalStrict(repaired, v)
}

// unmarshalStrict moves the validated payload into the caller's typed value.
// Nothing untyped leaves this package.
func unmarshalStrict(raw json.RawMessage, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return errors.Wrap(ErrExtractionUnrecoverable, "response does not match expected shape",
			slog.String("cause", err.Error()))
	}
	return nil
}
