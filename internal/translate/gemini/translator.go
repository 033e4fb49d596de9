package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"google.golang.org/genai"

	"github.com/askmongo/askmongo/internal/query"
	"github.com/askmongo/askmongo/internal/schema"
	"github.com/askmongo/askmongo/internal/translate"
)

type Config struct {
	APIKey string
	Model  string

	// BaseURL overrides the Gemini API base URL. Useful for proxies/testing.
	BaseURL string
}

// Translator asks Gemini to turn a question into a MongoDB-style filter/sort
// document, then parses the document into a query.StructuredQuery.
type Translator struct {
	client *genai.Client
	model  string
}

func New(ctx context.Context, cfg Config) (*Translator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("GEMINI_MODEL is required")
	}

	cc := &genai.ClientConfig{
		APIKey:  strings.TrimSpace(cfg.APIKey),
		Backend: genai.BackendGeminiAPI,
	}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		cc.HTTPOptions.BaseURL = strings.TrimSpace(cfg.BaseURL)
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, err
	}
	return &Translator{
		client: client,
		model:  strings.TrimSpace(cfg.Model),
	}, nil
}

func (t *Translator) Translate(ctx context.Context, question string, fields schema.FieldSchema) (query.StructuredQuery, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return query.StructuredQuery{}, &translate.TranslationError{Cause: errors.New("empty question")}
	}
	if len(fields) == 0 {
		return query.StructuredQuery{}, &translate.TranslationError{Cause: errors.New("empty field schema")}
	}

	resp, err := t.client.Models.GenerateContent(
		ctx,
		t.model,
		genai.Text(BuildPrompt(question, fields)),
		&genai.GenerateContentConfig{
			CandidateCount:   1,
			ResponseMIMEType: "application/json",
		},
	)
	if err != nil {
		return query.StructuredQuery{}, classifyErr(err)
	}

	out, err := Decode(resp.Text())
	if err != nil {
		return query.StructuredQuery{}, err
	}
	return out, nil
}

// BuildPrompt renders the translation instructions for one question. The
// schema is inlined so the model only sees real field names and types.
func BuildPrompt(question string, fields schema.FieldSchema) string {
	var cols strings.Builder
	for i, name := range fields.Fields() {
		if i > 0 {
			cols.WriteString(", ")
		}
		cols.WriteString(name)
		cols.WriteString(" (")
		cols.WriteString(string(fields[name]))
		cols.WriteString(")")
	}

	return strings.TrimSpace(`
Convert the question below into a MongoDB query using ONLY these fields: ` + cols.String() + `

Return ONLY a single JSON object of this shape:
{"filter": <MongoDB filter document>, "sort": [{"field": "<name>", "direction": "asc"|"desc"}]}

Rules:
- No explanations, no markdown fences.
- Allowed comparison operators: $eq, $ne, $gt, $gte, $lt, $lte, $in.
- Allowed logical operators: $and, $or.
- Field names must match exactly, including case.
- Dates must be RFC 3339 strings (e.g. "2024-01-31T00:00:00Z").
- Omit "sort" unless the question asks for an ordering.
- If the question needs no filtering, use an empty filter document {}.

Examples:
Question: "price over 100" -> {"filter": {"Price": {"$gt": 100}}}
Question: "Samsung phones, cheapest first" -> {"filter": {"Brand": "Samsung", "Category": "Phone"}, "sort": [{"field": "Price", "direction": "asc"}]}

Question: ` + question + `
`)
}

// wire mirrors the JSON shape the prompt asks for.
type wire struct {
	Filter map[string]any `json:"filter"`
	Sort   []wireSort     `json:"sort"`
}

type wireSort struct {
	Field     string `json:"field"`
	Direction string `json:"direction"`
}

// Decode parses the model's raw text into a StructuredQuery. Models fence or
// truncate JSON often enough that a repair pass runs before giving up.
func Decode(raw string) (query.StructuredQuery, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return query.StructuredQuery{}, &translate.TranslationError{Cause: errors.New("empty model response")}
	}

	var w wire
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		repaired, repErr := jsonrepair.JSONRepair(raw)
		if repErr != nil {
			return query.StructuredQuery{}, &translate.TranslationError{Cause: fmt.Errorf("parse model response: %w", err)}
		}
		if err := json.Unmarshal([]byte(repaired), &w); err != nil {
			return query.StructuredQuery{}, &translate.TranslationError{Cause: fmt.Errorf("parse repaired model response: %w", err)}
		}
	}

	filter, err := query.ParseDocument(w.Filter)
	if err != nil {
		return query.StructuredQuery{}, err
	}

	sorts := make([]query.SortField, 0, len(w.Sort))
	for _, s := range w.Sort {
		field := strings.TrimSpace(s.Field)
		if field == "" {
			continue
		}
		sorts = append(sorts, query.SortField{
			Field: field,
			Desc:  isDescending(s.Direction),
		})
	}
	if len(sorts) == 0 {
		sorts = nil
	}

	return query.StructuredQuery{Filter: filter, Sort: sorts}, nil
}

func isDescending(direction string) bool {
	switch strings.TrimSpace(strings.ToLower(direction)) {
	case "desc", "descending", "-1":
		return true
	default:
		return false
	}
}

func classifyErr(err error) error {
	// Wrap transient failures so the caller's single retry kicks in.
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == 429 || apiErr.Code/100 == 5 {
			return &translate.TransientError{Err: err}
		}
		return &translate.TranslationError{Cause: err}
	}
	var ne net.Error
	if errors.As(err, &ne) && (ne.Timeout() || ne.Temporary()) {
		return &translate.TransientError{Err: err}
	}
	return &translate.TranslationError{Cause: err}
}
