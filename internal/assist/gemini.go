package assist

import (
	"context"
	"fmt"
	"io"
	"iter"

	"google.golang.org/genai"
)

// GeminiModel implements Model on the Gemini API.
type GeminiModel struct {
	client *genai.Client
	model  string
}

// NewGeminiModel creates a new GeminiModel instance for the given API
// key and model name (e.g. "gemini-2.0-flash").
func NewGeminiModel(ctx context.Context, apiKey, model string) (*GeminiModel, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &GeminiModel{
		client: client,
		model:  model,
	}, nil
}

// GenerateStream sends the prompt (and inline image data, when present)
// as one ordered part list and returns the incrementally streamed
// response.
func (g *GeminiModel) GenerateStream(ctx context.Context, req Request) (Stream, error) {
	var parts []*genai.Part
	if len(req.ImageData) > 0 {
		parts = append(parts, genai.NewPartFromBytes(req.ImageData, req.ImageMIME))
	}
	parts = append(parts, genai.NewPartFromText(req.Prompt))

	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	seq := g.client.Models.GenerateContentStream(ctx, g.model, contents, nil)

	next, stop := iter.Pull2(seq)
	return &geminiStream{next: next, stop: stop}, nil
}

// geminiStream adapts the SDK's push iterator to the pull-based Stream.
type geminiStream struct {
	next func() (*genai.GenerateContentResponse, error, bool)
	stop func()
}

// Recv returns the next text chunk, or io.EOF when the stream ends.
func (s *geminiStream) Recv() (string, error) {
	resp, err, ok := s.next()
	if !ok {
		return "", io.EOF
	}
	if err != nil {
		return "", fmt.Errorf("gemini stream: %w", err)
	}
	return resp.Text(), nil
}

// Close releases the underlying iterator.
func (s *geminiStream) Close() {
	s.stop()
}
