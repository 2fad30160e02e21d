// Package assist runs generative-model pipelines: image classification
// and recipe synthesis, both consumed as token streams.
package assist

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Pipeline errors.
var (
	// ErrSuperseded reports that a newer request for the same target
	// field started while this one was streaming; the stale result is
	// discarded so it cannot clobber the newer one's output.
	ErrSuperseded = errors.New("superseded by a newer request")

	// ErrNotConfigured reports that no generative model is wired in.
	ErrNotConfigured = errors.New("generative model not configured")

	// ErrNoImage reports a classification request without image data.
	ErrNoImage = errors.New("image data cannot be empty")
)

// classifyPrompt is the fixed classification instruction.
const classifyPrompt = "identify the item in the picture with one word, no punctuation"

// Target fields the pipelines write into. Each carries its own
// generation token, so classification and recipe streams never cancel
// each other.
const (
	targetLabel   = "label"
	targetRecipes = "recipes"
)

// Request describes one generation call: a text prompt and optional
// inline image data.
type Request struct {
	Prompt    string
	ImageData []byte
	ImageMIME string
}

// Stream yields text chunks in arrival order until io.EOF.
type Stream interface {
	// Recv returns the next chunk, or io.EOF when the stream ends.
	Recv() (string, error)

	// Close releases the stream's resources.
	Close()
}

// Model produces a streamed text response for a request.
type Model interface {
	GenerateStream(ctx context.Context, req Request) (Stream, error)
}

// Assistant aggregates streamed model responses into labels and recipe
// text. Per-target generation tokens serialize superseding invocations:
// a new call cancels the previous stream for the same target and the
// stale result is dropped.
type Assistant struct {
	model  Model
	logger *zap.Logger

	mu      sync.Mutex
	gens    map[string]uint64
	cancels map[string]context.CancelFunc
}

// New creates a new Assistant instance. A nil model leaves the
// pipelines disabled; calls then return ErrNotConfigured.
func New(model Model, logger *zap.Logger) *Assistant {
	return &Assistant{
		model:   model,
		logger:  logger,
		gens:    make(map[string]uint64),
		cancels: make(map[string]context.CancelFunc),
	}
}

// Configured reports whether a generative model is wired in.
func (a *Assistant) Configured() bool {
	return a.model != nil
}

// Classify sends the image to the model with the fixed one-word
// instruction and aggregates the streamed response into a trimmed
// label. The caller decides what to do with the label; this pipeline
// never writes to the inventory itself.
func (a *Assistant) Classify(ctx context.Context, image []byte, mime string) (string, error) {
	if len(image) == 0 {
		return "", ErrNoImage
	}

	return a.run(ctx, targetLabel, Request{
		Prompt:    classifyPrompt,
		ImageData: image,
		ImageMIME: mime,
	}, nil)
}

// GenerateRecipes builds one prompt from the comma-joined item names
// and aggregates the streamed response into recipe text.
func (a *Assistant) GenerateRecipes(ctx context.Context, names []string) (string, error) {
	return a.run(ctx, targetRecipes, Request{Prompt: recipePrompt(names)}, nil)
}

// StreamRecipes behaves like GenerateRecipes but additionally delivers
// each chunk to onChunk as it arrives. Chunks from a superseded stream
// are not delivered.
func (a *Assistant) StreamRecipes(ctx context.Context, names []string, onChunk func(string)) (string, error) {
	return a.run(ctx, targetRecipes, Request{Prompt: recipePrompt(names)}, onChunk)
}

// run starts a stream for the target field, canceling any stream the
// call supersedes, and concatenates chunks in arrival order until the
// stream ends.
func (a *Assistant) run(ctx context.Context, target string, req Request, onChunk func(string)) (string, error) {
	if a.model == nil {
		return "", ErrNotConfigured
	}

	ctx, gen := a.begin(ctx, target)
	defer a.finish(target, gen)

	stream, err := a.model.GenerateStream(ctx, req)
	if err != nil {
		a.logger.Warn("model request failed",
			zap.String("target", target),
			zap.Error(err),
		)
		return "", fmt.Errorf("starting model stream: %w", err)
	}
	defer stream.Close()

	var sb strings.Builder
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if !a.isCurrent(target, gen) {
				return "", ErrSuperseded
			}
			a.logger.Warn("model stream failed",
				zap.String("target", target),
				zap.Error(err),
			)
			return "", fmt.Errorf("consuming model stream: %w", err)
		}

		sb.WriteString(chunk)
		if onChunk != nil && a.isCurrent(target, gen) {
			onChunk(chunk)
		}
	}

	if !a.isCurrent(target, gen) {
		return "", ErrSuperseded
	}

	return strings.TrimSpace(sb.String()), nil
}

// begin claims the next generation for the target and cancels the
// stream it supersedes.
func (a *Assistant) begin(ctx context.Context, target string) (context.Context, uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if cancel := a.cancels[target]; cancel != nil {
		cancel()
	}

	a.gens[target]++
	gen := a.gens[target]

	ctx, cancel := context.WithCancel(ctx)
	a.cancels[target] = cancel

	return ctx, gen
}

// finish releases the cancel func if this call is still the current
// generation for its target.
func (a *Assistant) finish(target string, gen uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.gens[target] == gen {
		if cancel := a.cancels[target]; cancel != nil {
			cancel()
		}
		delete(a.cancels, target)
	}
}

// isCurrent reports whether gen is still the newest generation for the
// target field.
func (a *Assistant) isCurrent(target string, gen uint64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.gens[target] == gen
}

// recipePrompt embeds the comma-joined inventory names into the recipe
// instruction.
func recipePrompt(names []string) string {
	return fmt.Sprintf(
		"Suggest a few concise recipes I can cook using only these ingredients: %s. Keep each recipe short.",
		strings.Join(names, ", "),
	)
}
