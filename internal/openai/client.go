package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// Client wraps the OpenAI SDK for the reply classifier.
type Client struct {
	client *openai.Client
	model  openai.ChatModel
}

// ErrClientNotInitialised is returned when attempting to call the API without a configured client.
var ErrClientNotInitialised = errors.New("openai client not initialised")

// Labels the classifier may answer with. LabelNone means the message is not
// a reply to a medicine reminder.
const (
	LabelTaken       = "taken"
	LabelRemindLater = "remind later"
	LabelSkipToday   = "skip today"
	LabelNone        = "none"
)

const classifyPrompt = "A patient received a medicine reminder and was asked to reply with one of: " +
	"taken, remind later, skip today. Map their message to exactly one of those labels, " +
	"or none if it does not answer the reminder. Reply with the label only."

// New returns a client. Without an apiKey every call fails with
// ErrClientNotInitialised.
func New(apiKey string, opts ...option.RequestOption) *Client {
	if apiKey == "" {
		return &Client{}
	}
	client := openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)
	return &Client{
		client: &client,
		model:  openai.ChatModelGPT4oMini,
	}
}

// Enabled reports whether an API key was configured.
func (c *Client) Enabled() bool {
	return c != nil && c.client != nil
}

// ClassifyReply maps a free-form message to a reminder reply keyword. It
// returns "" when the model says the message is not a reply.
func (c *Client) ClassifyReply(ctx context.Context, content string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("content cannot be empty")
	}
	if !c.Enabled() {
		return "", ErrClientNotInitialised
	}

	req := openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			{
				OfSystem: &openai.ChatCompletionSystemMessageParam{
					Content: openai.ChatCompletionSystemMessageParamContentUnion{
						OfString: openai.String(classifyPrompt),
					},
				},
			},
			{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{
						OfString: openai.String(content),
					},
				},
			},
		},
		Temperature:         openai.Float(0.0),
		MaxCompletionTokens: openai.Int(8),
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	resp, err := c.client.Chat.Completions.New(ctx, req)
	if err != nil {
		return "", fmt.Errorf("classify reply: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no completion received")
	}
	return normalizeLabel(resp.Choices[0].Message.Content), nil
}

func normalizeLabel(label string) string {
	label = strings.ToLower(strings.TrimSpace(label))
	label = strings.Trim(label, ".\"'`")
	switch label {
	case LabelTaken, LabelRemindLater, LabelSkipToday:
		return label
	default:
		return ""
	}
}
