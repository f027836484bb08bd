// Package commentary generates optional color commentary for replayed plays.
//
// Commentary is a cosmetic layer on top of the reconstructed state. A failed
// or disabled generator never fails a replay operation; callers treat an
// empty string as "no commentary".
package commentary

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/louisbranch/dugout/internal/platform/timeouts"
	"github.com/louisbranch/dugout/internal/services/replay/domain/play"
)

// PlayContext carries everything the generator may mention about one play.
type PlayContext struct {
	Play          play.Record
	HomeScore     int
	VisitorScore  int
	BatterName    string
	PitcherName   string
	Substitutions []string
	Locale        string
}

// Generator produces one line of commentary for a play.
type Generator interface {
	Comment(ctx context.Context, pc PlayContext) (string, error)
}

// Noop is the generator used when commentary is disabled.
type Noop struct{}

// Comment always returns an empty string.
func (Noop) Comment(context.Context, PlayContext) (string, error) {
	return "", nil
}

const defaultModel = "gpt-4o-mini"

// OpenAI generates commentary through the OpenAI chat completions API.
type OpenAI struct {
	client openai.Client
	model  string
}

// NewOpenAI builds a generator. Model may be empty to use the default.
func NewOpenAI(apiKey, model string) (*OpenAI, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if strings.TrimSpace(model) == "" {
		model = defaultModel
	}
	return &OpenAI{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}, nil
}

// Comment asks the model for a single line of commentary, bounded by the
// commentary timeout.
func (g *OpenAI) Comment(ctx context.Context, pc PlayContext) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Commentary)
	defer cancel()

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(g.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt(pc.Locale)),
			openai.UserMessage(playPrompt(pc)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("generate commentary: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func systemPrompt(locale string) string {
	prompt := "You are a concise baseball radio announcer. Respond with a single sentence of play-by-play color commentary."
	if locale != "" {
		prompt += " Respond in the language of the locale " + locale + "."
	}
	return prompt
}

func playPrompt(pc PlayContext) string {
	var b strings.Builder
	record := pc.Play
	fmt.Fprintf(&b, "Inning %d, %s half. Score: home %d, visitors %d.\n",
		record.Inning, strings.ToLower(string(record.Half)), pc.HomeScore, pc.VisitorScore)
	batter := pc.BatterName
	if batter == "" {
		batter = record.BatterID
	}
	pitcher := pc.PitcherName
	if pitcher == "" {
		pitcher = record.PitcherID
	}
	fmt.Fprintf(&b, "%s batting against %s with %d out.\n", batter, pitcher, record.Outs)
	if record.EventCode != "" {
		fmt.Fprintf(&b, "Scoring notation: %s.\n", record.EventCode)
	}
	if record.Runs > 0 {
		fmt.Fprintf(&b, "%d run(s) scored on the play.\n", record.Runs)
	}
	for _, sub := range pc.Substitutions {
		fmt.Fprintf(&b, "Lineup note: %s.\n", sub)
	}
	return b.String()
}
