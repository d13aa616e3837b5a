// Package nlp is the external classifier collaborator: it turns a free-form
// Spanish message into a structured action parse. The core treats the call
// as synchronous with a bounded result (parse, not-understood, or transport
// error) and owns no retry or timeout policy beyond the HTTP client's.
package nlp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/ffstudios/pantrybot/internal/action"
)

// Parser extracts structured actions from user text.
type Parser interface {
	// Parse classifies a fresh message.
	Parse(ctx context.Context, text string) (action.Parse, error)
	// ParseSupplement extracts only the missing fields of a pending action
	// from a follow-up message.
	ParseSupplement(ctx context.Context, text string, kind action.Kind, missing []action.FieldName) (action.Parse, error)
}

const (
	chatCompletionsURL = "https://api.openai.com/v1/chat/completions"
	defaultModel       = "gpt-4o-mini"

	systemPrompt = `Eres un asistente que analiza mensajes de gestión de una pastelería en español.
Devuelve ÚNICAMENTE un objeto JSON válido con esta estructura exacta:
{
  "action": "purchase" | "expense" | "usage" | "query" | "unknown",
  "fields": {
    "product": "<nombre del producto o null>",
    "quantity": "<cantidad numérica o null>",
    "unit": "<unidad de medida o null>",
    "cost": "<monto numérico o null>",
    "supplier": "<proveedor o null>",
    "payment_method": "<medio de pago o null>",
    "category": "<categoría del gasto o null>",
    "reason": "<motivo del uso o null>"
  },
  "confidence": <número entre 0.0 y 1.0>
}

Definiciones:
- "purchase": compra de insumos que entran al inventario ("compré", "llegaron", "recibimos").
- "expense": gasto sin inventario, pago de servicios ("pagué la luz", "gasté en arriendo").
- "usage": consumo de inventario ("usé", "gasté 500g de", "ocupé").
- "query": consulta de stock ("¿cuánto queda de...?", "stock de...").
- "unknown": no se puede determinar.

Omite del objeto fields las claves que el mensaje no menciona o déjalas en null.
No incluyas texto fuera del JSON.`
)

// OpenAIParser implements Parser over the OpenAI chat completions API using
// net/http only.
type OpenAIParser struct {
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewOpenAIParser builds the parser. An empty model selects gpt-4o-mini.
func NewOpenAIParser(apiKey, model string) *OpenAIParser {
	if model == "" {
		model = defaultModel
	}
	return &OpenAIParser{
		apiKey: apiKey,
		model:  model,
		httpClient: &http.Client{
			Timeout: 25 * time.Second,
		},
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Parse implements Parser.
func (p *OpenAIParser) Parse(ctx context.Context, text string) (action.Parse, error) {
	return p.complete(ctx, systemPrompt, text)
}

// ParseSupplement implements Parser.
func (p *OpenAIParser) ParseSupplement(ctx context.Context, text string, kind action.Kind, missing []action.FieldName) (action.Parse, error) {
	names := make([]string, len(missing))
	for i, f := range missing {
		names[i] = string(f)
	}
	prompt := systemPrompt + fmt.Sprintf(`

El usuario está completando una acción "%s" y solo faltan estos campos: %s.
Interpreta el mensaje como los valores de esos campos (posiblemente separados por comas)
y fija "action" en "%s".`, kind, strings.Join(names, ", "), kind)

	parse, err := p.complete(ctx, prompt, text)
	if err != nil {
		return action.Parse{}, err
	}
	parse.Kind = kind
	return parse, nil
}

func (p *OpenAIParser) complete(ctx context.Context, system, text string) (action.Parse, error) {
	if p.apiKey == "" {
		return action.Parse{}, fmt.Errorf("nlp: OPENAI_API_KEY not configured")
	}

	payload := chatRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: text},
		},
		Temperature: 0.1,
		MaxTokens:   200,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return action.Parse{}, fmt.Errorf("nlp: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, chatCompletionsURL, bytes.NewReader(body))
	if err != nil {
		return action.Parse{}, fmt.Errorf("nlp: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return action.Parse{}, fmt.Errorf("nlp: call openai: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return action.Parse{}, fmt.Errorf("nlp: read response: %w", err)
	}

	var decoded chatResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return action.Parse{}, fmt.Errorf("nlp: decode response: %w", err)
	}
	if decoded.Error != nil {
		return action.Parse{}, fmt.Errorf("nlp: openai error: %s", decoded.Error.Message)
	}
	if resp.StatusCode != http.StatusOK || len(decoded.Choices) == 0 {
		return action.Parse{}, fmt.Errorf("nlp: openai status %d", resp.StatusCode)
	}

	parse, err := DecodeParse(decoded.Choices[0].Message.Content)
	if err != nil {
		return action.Parse{}, err
	}
	parse.Original = text
	return parse, nil
}

// jsonBlockRe extracts the first JSON object even when the model wraps it in
// a markdown code fence.
var jsonBlockRe = regexp.MustCompile(`(?s)\{.*\}`)

type parsePayload struct {
	Action     string             `json:"action"`
	Fields     map[string]*string `json:"fields"`
	Confidence float64            `json:"confidence"`
}

// DecodeParse turns the model's JSON reply into an action.Parse. A reply
// that cannot be decoded yields Kind unknown rather than an error, matching
// the not-understood path.
func DecodeParse(content string) (action.Parse, error) {
	block := jsonBlockRe.FindString(content)
	if block == "" {
		return action.Parse{Kind: action.KindUnknown}, nil
	}

	var payload parsePayload
	if err := json.Unmarshal([]byte(block), &payload); err != nil {
		return action.Parse{Kind: action.KindUnknown}, nil
	}

	kind := action.Kind(strings.ToLower(strings.TrimSpace(payload.Action)))
	switch kind {
	case action.KindPurchase, action.KindExpense, action.KindUsage, action.KindQuery:
	default:
		kind = action.KindUnknown
	}

	raw := make(map[action.FieldName]string, len(payload.Fields))
	for name, value := range payload.Fields {
		if value == nil {
			continue
		}
		v := strings.TrimSpace(*value)
		if v == "" || strings.EqualFold(v, "null") {
			continue
		}
		raw[action.FieldName(name)] = v
	}

	return action.Parse{Kind: kind, Raw: raw, Confidence: payload.Confidence}, nil
}
