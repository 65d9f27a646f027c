// Package llm adapts the Anthropic Messages API to the dialogue engine's
// Generator and Classifier interfaces. Every call is bounded by the
// configured timeout; callers degrade to fixed lines on error.
package llm

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/noirbyte/gumshoe/internal/config"
	"github.com/noirbyte/gumshoe/internal/game/dialogue"
)

// maxHistoryTurns bounds how much conversation history is replayed per call.
const maxHistoryTurns = 8

// Client talks to the Anthropic Messages API. Safe for concurrent use.
type Client struct {
	api       anthropic.Client
	model     anthropic.Model
	maxTokens int64
	timeout   time.Duration
	logger    *zap.Logger
}

// NewClient builds a client from configuration, reading the API key from
// the configured environment variable.
//
// Precondition: cfg must have passed config validation.
func NewClient(cfg config.LLMConfig, logger *zap.Logger) (*Client, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("environment variable %s is not set", cfg.APIKeyEnv)
	}
	return &Client{
		api:       anthropic.NewClient(option.WithAPIKey(key)),
		model:     anthropic.Model(cfg.Model),
		maxTokens: int64(cfg.MaxTokens),
		timeout:   cfg.Timeout,
		logger:    logger,
	}, nil
}

// Generate produces one in-character NPC reply.
//
// Postcondition: the returned text is non-empty on nil error.
func (c *Client) Generate(ctx context.Context, req dialogue.GenerateRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	system := personaPrompt(req)
	messages := historyMessages(req)
	if req.Question == "" {
		messages = append(messages, anthropic.NewUserMessage(
			anthropic.NewTextBlock("The detective walks up to you. Greet them in one or two sentences.")))
	} else {
		messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(req.Question)))
	}

	msg, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System:    []anthropic.TextBlockParam{{Text: system}},
		Messages:  messages,
	})
	if err != nil {
		return "", fmt.Errorf("generating reply: %w", err)
	}
	text := strings.TrimSpace(collectText(msg))
	if text == "" {
		return "", fmt.Errorf("generating reply: empty completion")
	}
	return text, nil
}

// Classify picks the reply bucket best matching the question, returning
// its index into buckets.
func (c *Client) Classify(ctx context.Context, question string, buckets []dialogue.Bucket, allowClue bool) (int, error) {
	if len(buckets) == 0 {
		return -1, fmt.Errorf("classifying question: no buckets")
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var sb strings.Builder
	sb.WriteString("Pick the canned reply that best answers the player's question.\n")
	sb.WriteString("Respond with ONLY the number of the best reply, nothing else.\n")
	if !allowClue {
		sb.WriteString("Prefer a reply that deflects rather than one that gives away evidence.\n")
	}
	sb.WriteString("\nReplies:\n")
	for i, b := range buckets {
		fmt.Fprintf(&sb, "%d. [%s] %s\n", i, b.Tag, b.Text)
	}
	fmt.Fprintf(&sb, "\nQuestion: %s\n", question)

	msg, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: 8,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(sb.String())),
		},
	})
	if err != nil {
		return -1, fmt.Errorf("classifying question: %w", err)
	}
	raw := strings.TrimSpace(collectText(msg))
	idx, err := strconv.Atoi(strings.Trim(raw, ".)"))
	if err != nil || idx < 0 || idx >= len(buckets) {
		return -1, fmt.Errorf("classifying question: unusable completion %q", raw)
	}
	return idx, nil
}

// personaPrompt assembles the system prompt from the NPC's behavior block.
func personaPrompt(req dialogue.GenerateRequest) string {
	npc := req.NPC
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are %s, a character in a noir detective story.\n", npc.Name)
	if npc.Behavior.Persona != "" {
		sb.WriteString(npc.Behavior.Persona)
		sb.WriteString("\n")
	}
	if npc.Behavior.Style != "" {
		fmt.Fprintf(&sb, "Style: %s\n", npc.Behavior.Style)
	}
	if npc.Behavior.Voice != "" {
		fmt.Fprintf(&sb, "Voice: %s\n", npc.Behavior.Voice)
	}
	sb.WriteString("Stay in character. Reply in at most three sentences.\n")
	sb.WriteString("Never invent evidence, names, or places beyond what you are told.\n")
	if req.Inject != "" {
		fmt.Fprintf(&sb, "Work this into your reply, keeping its meaning intact: %s\n", req.Inject)
	} else {
		sb.WriteString("Do not reveal any concrete evidence; deflect if pressed.\n")
	}
	if len(req.Avoid) > 0 {
		sb.WriteString("Do not repeat these lines:\n")
		for _, a := range req.Avoid {
			fmt.Fprintf(&sb, "- %s\n", a)
		}
	}
	return sb.String()
}

// historyMessages replays the tail of the conversation as alternating turns.
func historyMessages(req dialogue.GenerateRequest) []anthropic.MessageParam {
	history := req.History
	if len(history) > maxHistoryTurns {
		history = history[len(history)-maxHistoryTurns:]
	}
	messages := make([]anthropic.MessageParam, 0, len(history)*2+1)
	for _, turn := range history {
		messages = append(messages,
			anthropic.NewUserMessage(anthropic.NewTextBlock(turn.Question)),
			anthropic.NewAssistantMessage(anthropic.NewTextBlock(turn.Answer)),
		)
	}
	return messages
}

// collectText concatenates the text blocks of a completion.
func collectText(msg *anthropic.Message) string {
	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String()
}
