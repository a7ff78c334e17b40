package imagegen

import "context"

// mockPNG is a 1x1 transparent PNG.
const mockPNG = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="

// MockGenerator returns a placeholder image without network access.
type MockGenerator struct{}

func NewMockGenerator() *MockGenerator { return &MockGenerator{} }

func (g *MockGenerator) Generate(ctx context.Context, req PromptRequest) (Image, error) {
	select {
	case <-ctx.Done():
		return Image{}, ctx.Err()
	default:
	}
	return Image{
		DataURL:  "data:image/png;base64," + mockPNG,
		Prompt:   BuildPrompt(req),
		Provider: "mock",
	}, nil
}
