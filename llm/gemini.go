// Google Gemini Provider implementation using official google.golang.org/genai SDK.
//
// Information Hiding:
// - API authentication and client creation
// - Request/response format for Gemini API
// - JSON response mode plus schema-in-prompt for structured output
// - Image fetching for vision requests (the API wants inline bytes)

package llm

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"google.golang.org/genai"

	jsonx "github.com/edforge/quizrag/internal/json"
)

// maxImageBytes caps how much image data is inlined into a vision request.
const maxImageBytes = 8 << 20

// GeminiProvider implements the Provider interface for Google Gemini.
type GeminiProvider struct {
	client      *genai.Client
	httpClient  *http.Client
	model       string
	maxTokens   int32
	temperature float32
	initErr     error // Stores client initialization error for deferred reporting
}

// NewGeminiProvider creates a new Gemini provider.
// If client initialization fails, the error is stored and returned on first use.
func NewGeminiProvider(apiKey, model string, maxTokens uint32, temperature float32) *GeminiProvider {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})

	p := &GeminiProvider{
		client:      client,
		httpClient:  http.DefaultClient,
		model:       model,
		maxTokens:   int32(maxTokens),
		temperature: temperature,
	}
	if err != nil {
		p.client = nil
		p.initErr = fmt.Errorf("failed to initialize Gemini client: %w", err)
	}
	return p
}

// Name returns the provider name.
func (p *GeminiProvider) Name() string {
	return "gemini"
}

// Model returns the current model.
func (p *GeminiProvider) Model() string {
	return p.model
}

// CompleteStructured sends a chat completion in JSON response mode and
// unmarshals the result into out. The schema travels in the prompt; the
// MIME type constraint keeps the response parseable.
func (p *GeminiProvider) CompleteStructured(ctx context.Context, messages []ChatMessage, format *ResponseFormat, out any) error {
	if p.initErr != nil {
		return p.initErr
	}

	contents, systemInstruction := convertToGeminiMessages(messages, format.schemaInstruction())

	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(p.temperature),
		MaxOutputTokens:  p.maxTokens,
		ResponseMIMEType: "application/json",
	}
	if systemInstruction != "" {
		config.SystemInstruction = genai.NewContentFromText(systemInstruction, genai.RoleUser)
	}

	response, err := p.client.Models.GenerateContent(ctx, p.model, contents, config)
	if err != nil {
		return fmt.Errorf("chat completion failed: %w", err)
	}

	content := response.Text()
	if content == "" {
		return fmt.Errorf("empty response from Gemini")
	}
	return jsonx.Decode(content, out)
}

// DescribeImage fetches the image and sends it inline with the instruction.
func (p *GeminiProvider) DescribeImage(ctx context.Context, imageURL, instruction string) (string, error) {
	if p.initErr != nil {
		return "", p.initErr
	}

	data, mimeType, err := p.fetchImage(ctx, imageURL)
	if err != nil {
		return "", err
	}

	content := genai.NewContentFromParts([]*genai.Part{
		genai.NewPartFromText(instruction),
		genai.NewPartFromBytes(data, mimeType),
	}, genai.RoleUser)

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(p.temperature),
		MaxOutputTokens: p.maxTokens,
	}

	response, err := p.client.Models.GenerateContent(ctx, p.model, []*genai.Content{content}, config)
	if err != nil {
		return "", fmt.Errorf("image description failed: %w", err)
	}

	text := response.Text()
	if text == "" {
		return "", fmt.Errorf("empty image description from Gemini")
	}
	return text, nil
}

func (p *GeminiProvider) fetchImage(ctx context.Context, imageURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("invalid image URL %q: %w", imageURL, err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("failed to fetch image: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image body: %w", err)
	}

	mimeType := resp.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "image/png"
	}
	return data, mimeType, nil
}

// convertToGeminiMessages converts our ChatMessage to Gemini format.
// Extracts system message and returns it separately; suffix is appended to
// the final user message.
func convertToGeminiMessages(messages []ChatMessage, suffix string) ([]*genai.Content, string) {
	var contents []*genai.Content
	var systemInstruction string

	lastUser := -1
	for i, msg := range messages {
		if msg.Role == "user" {
			lastUser = i
		}
	}

	for i, msg := range messages {
		switch msg.Role {
		case "system":
			systemInstruction = msg.Content
		case "user":
			content := msg.Content
			if i == lastUser {
				content += suffix
			}
			contents = append(contents, genai.NewContentFromText(content, genai.RoleUser))
		case "assistant":
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		}
	}

	return contents, systemInstruction
}

// Verify GeminiProvider implements Provider
var _ Provider = (*GeminiProvider)(nil)
