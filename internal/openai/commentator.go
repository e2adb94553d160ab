package openai

import (
	"context"
	"fmt"
	"strings"

	oa "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Commentator turns portfolio statistics into a short plain-language note.
type Commentator struct {
	cli oa.Client
}

func NewCommentator(apiKey string) *Commentator {
	client := oa.NewClient(option.WithAPIKey(apiKey))
	return &Commentator{cli: client}
}

const commentPrompt = `You are a portfolio analytics assistant. You receive the result of a historical backtest: the symbols, their weights, the date window and the statistics (cumulative return, mean daily return, daily volatility, Sharpe ratio, max drawdown).

Write at most four short sentences for a chat message:
- what the numbers say about risk and return over the window
- which holding likely drove the result, if it is clear from the weights
- one caveat about reading too much into a backtest

Do not give trading advice. Do not repeat every number. Plain text, no markdown headers.`

// Comment asks the model for a note on the given result summary.
func (c *Commentator) Comment(ctx context.Context, summary string) (string, error) {
	resp, err := c.cli.Chat.Completions.New(ctx, oa.ChatCompletionNewParams{
		Model: "gpt-4",
		Messages: []oa.ChatCompletionMessageParamUnion{
			oa.SystemMessage(commentPrompt),
			oa.UserMessage(fmt.Sprintf("Backtest result:\n%s", summary)),
		},
		MaxTokens: oa.Int(300), // one telegram message
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
