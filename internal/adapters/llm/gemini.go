package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/PabloGalante/threeway-relay/internal/config"
	"github.com/PabloGalante/threeway-relay/internal/domain"
)

// GeminiName is the registry name of the Vertex AI backend.
const GeminiName = "gemini"

// GeminiClient is a completion backend on Vertex AI (Gemini).
type GeminiClient struct {
	client    *genai.Client
	modelName string
}

func NewGeminiClient(ctx context.Context, cfg config.GeminiConfig) (*GeminiClient, error) {
	if cfg.Project == "" || cfg.Location == "" {
		return nil, fmt.Errorf("gemini: project and location must be configured")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  cfg.Project,
		Location: cfg.Location,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: creating client: %w", err)
	}

	return &GeminiClient{
		client:    client,
		modelName: cfg.Model,
	}, nil
}

// GenerateReply implements domain.LLMClient using Vertex AI.
func (g *GeminiClient) GenerateReply(ctx context.Context, userMessage string, convCtx domain.ConversationContext) (string, error) {
	var contents []*genai.Content
	for _, m := range convCtx.History {
		role := genai.Role(genai.RoleUser)
		if m.Sender != domain.RolePhone {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}
	contents = append(contents, genai.NewContentFromText(userMessage, genai.RoleUser))

	temp := float32(0.7)
	topP := float32(0.9)
	outputTokens := int32(1024)

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(RenderSystemContext(convCtx), genai.RoleUser),
		Temperature:       &temp,
		TopP:              &topP,
		MaxOutputTokens:   outputTokens,
	}

	res, err := g.client.Models.GenerateContent(ctx, g.modelName, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}

	return res.Text(), nil
}
