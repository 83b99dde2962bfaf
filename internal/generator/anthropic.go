package generator

import (
	"context"
	"fmt"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// anthropicGenerator is the default Generator, backed by
// github.com/anthropics/anthropic-sdk-go's Messages API. Grounded on
// goadesign-goa-ai's features/model/anthropic/client.go adapter, narrowed
// from that package's full tool/streaming surface to the single
// prompt-in/text-out round trip the Worker Pool needs.
type anthropicGenerator struct {
	client    sdk.Client
	model     string
	maxTokens int64
}

func NewAnthropic(apiKey, model string, maxTokens int) Generator {
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &anthropicGenerator{
		client:    sdk.NewClient(option.WithAPIKey(apiKey)),
		model:     model,
		maxTokens: int64(maxTokens),
	}
}

func (g *anthropicGenerator) Name() string { return "anthropic:" + g.model }

func (g *anthropicGenerator) Generate(ctx context.Context, req Request) (*Response, error) {
	params := sdk.MessageNewParams{
		Model:     sdk.Model(g.model),
		MaxTokens: g.maxTokens,
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(req.Prompt)),
		},
	}
	if req.SystemPrompt != "" {
		params.System = []sdk.TextBlockParam{{Text: req.SystemPrompt}}
	}

	msg, err := g.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic messages.new: %w", err)
	}

	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	return &Response{
		Text:         text,
		InputTokens:  int(msg.Usage.InputTokens),
		OutputTokens: int(msg.Usage.OutputTokens),
	}, nil
}
