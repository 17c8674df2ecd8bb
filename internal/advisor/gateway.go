package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"WealthPulse/internal/model"
)

// ErrEmptyAdvice means the model answered without usable text.
var ErrEmptyAdvice = errors.New("advisor: empty advice")

// Request is everything the gateway needs to answer one question.
type Request struct {
	Message string
	Context Context
	Indices map[string]model.Quote // benchmark quotes keyed by index name
}

// Advice is the gateway's answer.
type Advice struct {
	Advice      string   `json:"advice"`
	Suggestions []string `json:"suggestions"`
}

// Gateway is the single outbound call to a language model.
type Gateway interface {
	Advise(ctx context.Context, req Request) (*Advice, error)
}

// GenAIGateway answers through the Gemini API.
type GenAIGateway struct {
	Client      *genai.Client
	Model       string
	Temperature float32
	MaxTokens   int32
}

// NewGenAIGateway creates a Gemini client with the given API key. An empty key
// falls back to the GEMINI_API_KEY / GOOGLE_API_KEY environment.
func NewGenAIGateway(ctx context.Context, apiKey, model string) (*GenAIGateway, error) {
	var cfg *genai.ClientConfig
	if apiKey != "" {
		cfg = &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init genai client: %w", err)
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &GenAIGateway{Client: client, Model: model, Temperature: 0.7, MaxTokens: 1200}, nil
}

func (g *GenAIGateway) Advise(ctx context.Context, req Request) (*Advice, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: SystemPrompt(req)}}},
		Temperature:       genai.Ptr(g.Temperature),
		MaxOutputTokens:   g.MaxTokens,
		ResponseMIMEType:  "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"advice":      {Type: genai.TypeString},
				"suggestions": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
			},
			Required: []string{"advice"},
		},
	}
	resp, err := g.Client.Models.GenerateContent(ctx, g.Model, genai.Text(req.Message), config)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}
	return ParseAdvice(resp.Text(), req.Message)
}

// ParseAdvice validates the model output. Structured JSON is preferred; plain
// text is accepted as the advice itself. Missing suggestions are filled from
// the keyword suggestions for message.
func ParseAdvice(text, message string) (*Advice, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyAdvice
	}

	var a Advice
	if err := json.Unmarshal([]byte(text), &a); err != nil || strings.TrimSpace(a.Advice) == "" {
		a = Advice{Advice: text}
	}
	var suggestions []string
	for _, s := range a.Suggestions {
		if s = strings.TrimSpace(s); s != "" {
			suggestions = append(suggestions, s)
		}
	}
	if len(suggestions) == 0 {
		suggestions = Suggestions(message)
	}
	a.Suggestions = suggestions
	return &a, nil
}

// SystemPrompt renders the advisor persona with market and portfolio context.
func SystemPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("You are an expert Indian financial advisor with deep knowledge of NSE, BSE, and Indian mutual funds.\n\n")

	b.WriteString("CURRENT MARKET DATA:\n")
	for _, idx := range []struct{ key, label string }{
		{"NIFTY", "NIFTY"}, {"SENSEX", "SENSEX"}, {"BANKNIFTY", "BANK NIFTY"},
	} {
		if q, ok := req.Indices[idx.key]; ok {
			fmt.Fprintf(&b, "- %s: %s (%.2f%%)\n", idx.label, q.Price.StringFixed(2), q.ChangePercent)
		} else {
			fmt.Fprintf(&b, "- %s: N/A\n", idx.label)
		}
	}

	c := req.Context
	b.WriteString("\nUSER PORTFOLIO:\n")
	if c.HoldingsCount == 0 {
		b.WriteString("No portfolio data available\n")
	} else {
		fmt.Fprintf(&b, "Portfolio has %d holdings\n", c.HoldingsCount)
		fmt.Fprintf(&b, "Total Value: ₹%s\n", c.TotalValue.Round(0).String())
		fmt.Fprintf(&b, "Top Holdings: %s\n", joinOr(c.TopHoldings, "None"))
		fmt.Fprintf(&b, "Sector Allocation: %s\n", joinOr(c.SectorList, "Not diversified"))
	}

	b.WriteString(`
Provide specific, actionable advice considering:
1. Current Indian market conditions and trends
2. User's risk profile and portfolio composition
3. Sector diversification opportunities
4. Tax implications (LTCG, STCG, equity vs debt funds)
5. Investment horizon and goals

Answer as JSON with "advice" (bullet-pointed sections) and "suggestions" (three short follow-up questions).`)
	return b.String()
}

func joinOr(xs []string, empty string) string {
	if len(xs) == 0 {
		return empty
	}
	return strings.Join(xs, ", ")
}

// StaticGateway answers every request with fixed advice. Used when no model
// is configured and in tests.
type StaticGateway struct {
	Text string
}

func (g StaticGateway) Advise(_ context.Context, req Request) (*Advice, error) {
	text := g.Text
	if text == "" {
		text = fmt.Sprintf("Your portfolio of %d holdings is worth ₹%s. Automated advice is not configured; consider reviewing diversification across %s.",
			req.Context.HoldingsCount, req.Context.TotalValue.Round(0).String(), joinOr(req.Context.SectorList, "sectors"))
	}
	return &Advice{Advice: text, Suggestions: Suggestions(req.Message)}, nil
}
