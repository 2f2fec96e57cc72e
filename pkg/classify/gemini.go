package classify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-1.5-flash"

// DefaultCategories is the label set offered to the model.
var DefaultCategories = []string{
	"Food", "Groceries", "Shopping", "Travel", "Utilities",
	"Entertainment", "Health", "Education", "Rent", "Other",
}

// Gemini classifies transaction descriptions with the Gemini API.
type Gemini struct {
	client     *genai.Client
	model      *genai.GenerativeModel
	categories []string
	logger     *slog.Logger
}

// NewGemini creates a Gemini-backed classifier. The model name may be empty.
func NewGemini(ctx context.Context, apiKey, modelName string, logger *slog.Logger) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is not set")
	}
	if modelName == "" {
		modelName = DefaultModel
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &Gemini{
		client:     client,
		model:      client.GenerativeModel(modelName),
		categories: DefaultCategories,
		logger:     logger,
	}, nil
}

// Close releases the underlying API client.
func (g *Gemini) Close() error {
	return g.client.Close()
}

// Classify asks the model for exactly one category label. Rate-limited calls
// are retried once before giving up.
func (g *Gemini) Classify(ctx context.Context, description string) (string, error) {
	prompt := fmt.Sprintf(
		"Categorize this financial transaction counterparty: %q\n\n"+
			"Answer with exactly one of the following category names and nothing else:\n%s",
		description, strings.Join(g.categories, ", "),
	)

	var resp *genai.GenerateContentResponse
	err := retry.Do(
		func() error {
			r, err := g.model.GenerateContent(ctx, genai.Text(prompt))
			if err != nil {
				return err
			}
			resp = r
			return nil
		},
		retry.RetryIf(func(err error) bool {
			var apiErr *googleapi.Error
			return errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests
		}),
		retry.Attempts(2),
		retry.Delay(2*time.Second),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("empty response from model")
	}

	answer := fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0])
	return g.matchCategory(answer), nil
}

// matchCategory maps a model answer onto the known category set,
// case-insensitively, tolerating surrounding prose.
func (g *Gemini) matchCategory(answer string) string {
	answer = strings.ToLower(answer)
	for _, category := range g.categories {
		if strings.Contains(answer, strings.ToLower(category)) {
			return category
		}
	}
	g.logger.Debug("model answer outside category set", "answer", answer)
	return CategoryUncategorized
}
