package agent

import (
	"context"
	"fmt"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/aws/aws-sdk-go-v2/config"
)

// ClientConfig contains configuration for creating an Anthropic client.
type ClientConfig struct {
	// Model is the Claude model to use.
	Model anthropic.Model
	// APIKey is the Anthropic API key. If empty, uses ANTHROPIC_API_KEY env var.
	APIKey string
	// UseAWSBedrock indicates whether to use AWS Bedrock instead of the direct API.
	UseAWSBedrock bool
	// AWSRegion is the AWS region for Bedrock (e.g., "us-west-2").
	AWSRegion string
	// AWSProfile is the optional AWS profile name to use.
	AWSProfile string
}

// NewClient creates an Anthropic client from the given configuration.
func NewClient(cfg ClientConfig) (anthropic.Client, anthropic.Model, error) {
	var opts []option.RequestOption

	if cfg.UseAWSBedrock {
		ctx := context.Background()

		var loadOpts []func(*config.LoadOptions) error
		if cfg.AWSRegion != "" {
			loadOpts = append(loadOpts, config.WithRegion(cfg.AWSRegion))
		}
		if cfg.AWSProfile != "" {
			loadOpts = append(loadOpts, config.WithSharedConfigProfile(cfg.AWSProfile))
		}

		opts = append(opts, bedrock.WithLoadDefaultConfig(ctx, loadOpts...))
	} else {
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if apiKey == "" {
			return anthropic.Client{}, "", fmt.Errorf("ANTHROPIC_API_KEY environment variable is not set")
		}
		opts = append(opts, option.WithAPIKey(apiKey))
	}

	model := cfg.Model
	if model == "" {
		model = anthropic.ModelClaudeSonnet4_20250514
	}

	return anthropic.NewClient(opts...), model, nil
}

// ClaudeAgent is an Agent backed by the Anthropic Messages API. Several
// named agents can share one client, differing only in system prompt.
type ClaudeAgent struct {
	name      string
	system    string
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

// NewClaudeAgent creates a Claude-backed agent with the given registry
// name and system prompt.
func NewClaudeAgent(name, system string, client anthropic.Client, model anthropic.Model) *ClaudeAgent {
	return &ClaudeAgent{
		name:      name,
		system:    system,
		client:    client,
		model:     model,
		maxTokens: 4096,
	}
}

// Name returns the registry name of the agent.
func (a *ClaudeAgent) Name() string {
	return a.name
}

// Stream runs the query against the Messages API, forwarding text
// deltas as they arrive. The final chunk carries Done.
func (a *ClaudeAgent) Stream(ctx context.Context, query, correlationID string) (<-chan StreamChunk, error) {
	out := make(chan StreamChunk, 16)

	go func() {
		defer close(out)

		stream := a.client.Messages.NewStreaming(ctx, anthropic.MessageNewParams{
			Model:     a.model,
			MaxTokens: a.maxTokens,
			System: []anthropic.TextBlockParam{
				{Text: a.system},
			},
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(query)),
			},
		})

		for stream.Next() {
			event := stream.Current()
			switch variant := event.AsAny().(type) {
			case anthropic.ContentBlockDeltaEvent:
				if delta, ok := variant.Delta.AsAny().(anthropic.TextDelta); ok && delta.Text != "" {
					if !deliver(ctx, out, StreamChunk{Content: delta.Text}) {
						return
					}
				}
			}
		}

		if err := stream.Err(); err != nil {
			deliver(ctx, out, StreamChunk{Err: fmt.Errorf("agent %s (%s): %w", a.name, correlationID, err)})
			return
		}
		deliver(ctx, out, StreamChunk{Done: true})
	}()

	return out, nil
}

// deliver sends a chunk unless the consumer is gone. Every send goes
// through here so a cancelled caller that stopped draining the channel
// never strands the producing goroutine.
func deliver(ctx context.Context, out chan<- StreamChunk, chunk StreamChunk) bool {
	select {
	case out <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}

// Verify ClaudeAgent implements Agent at compile time.
var _ Agent = (*ClaudeAgent)(nil)
