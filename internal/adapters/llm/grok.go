package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/PabloGalante/threeway-relay/internal/config"
	"github.com/PabloGalante/threeway-relay/internal/domain"
)

// GrokName is the registry name of the x.ai backend.
const GrokName = "grok"

// GrokClient talks to the x.ai chat completion endpoint, which is
// OpenAI-compatible, through the langchaingo openai client.
type GrokClient struct {
	model llms.Model
	name  string
}

func NewGrokClient(cfg config.GrokConfig) (*GrokClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("grok: API key is not configured")
	}

	model, err := openai.New(
		openai.WithToken(cfg.APIKey),
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("grok: creating client: %w", err)
	}

	return &GrokClient{model: model, name: cfg.Model}, nil
}

func (g *GrokClient) GenerateReply(ctx context.Context, userMessage string, convCtx domain.ConversationContext) (string, error) {
	msgs := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, RenderSystemContext(convCtx)),
	}
	for _, m := range convCtx.History {
		role := llms.ChatMessageTypeHuman
		if m.Sender != domain.RolePhone {
			// cursor and assistant turns both read as the assistant side
			role = llms.ChatMessageTypeAI
		}
		msgs = append(msgs, llms.TextParts(role, m.Content))
	}
	msgs = append(msgs, llms.TextParts(llms.ChatMessageTypeHuman, userMessage))

	resp, err := g.model.GenerateContent(ctx, msgs,
		llms.WithTemperature(0.7),
		llms.WithMaxTokens(1024),
	)
	if err != nil {
		return "", fmt.Errorf("grok generate content: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Content, nil
}
