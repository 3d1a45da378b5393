package insight

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// Default Gemini models.
const (
	DefaultTextModel  = "gemini-3-flash-preview"
	DefaultImageModel = "gemini-2.5-flash-image"
)

var ErrNoImage = errors.New("response contained no image")

// GenAI is a Generator backed by the Gemini API.
type GenAI struct {
	client     *genai.Client
	textModel  string
	imageModel string
}

// NewGenAI creates a Gemini client. Empty model names select the defaults.
func NewGenAI(ctx context.Context, apiKey, textModel, imageModel string) (*GenAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if textModel == "" {
		textModel = DefaultTextModel
	}
	if imageModel == "" {
		imageModel = DefaultImageModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GenAI{client: client, textModel: textModel, imageModel: imageModel}, nil
}

// GenerateText sends prompt to the text model and returns the reply text.
func (g *GenAI) GenerateText(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.textModel, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("GenAI generate failed: %w", err)
	}
	return resp.Text(), nil
}

// EditImage sends image plus instruction to the image model and returns the
// first inline image of the reply.
func (g *GenAI) EditImage(ctx context.Context, image []byte, mimeType, instruction string) ([]byte, string, error) {
	parts := []*genai.Part{
		genai.NewPartFromBytes(image, mimeType),
		genai.NewPartFromText(instruction),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	resp, err := g.client.Models.GenerateContent(ctx, g.imageModel, contents, nil)
	if err != nil {
		return nil, "", fmt.Errorf("GenAI image edit failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, "", ErrNoImage
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return part.InlineData.Data, part.InlineData.MIMEType, nil
		}
	}
	return nil, "", ErrNoImage
}
