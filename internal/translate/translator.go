// Package translate renders handoff messages in the municipal office's
// language using Google Cloud Translation.
//
// Graceful degradation: if the API key is not set, translation is disabled
// and callers send English only.
package translate

import (
	"context"
	"fmt"
	"html"
	"log"
	"time"

	"cloud.google.com/go/translate"
	"golang.org/x/text/language"
	"google.golang.org/api/option"

	apperrors "nagarbot/internal/errors"
)

const requestTimeout = 15 * time.Second

// Translator wraps the Cloud Translation client for one target language.
type Translator struct {
	client *translate.Client
	target language.Tag
}

// NewTranslator creates a Translator for the target language (BCP 47, e.g. "hi").
//
// Returns nil, nil if apiKey is empty.
func NewTranslator(ctx context.Context, apiKey, target string) (*Translator, error) {
	if apiKey == "" {
		log.Println("⚠️  GOOGLE_TRANSLATE_API_KEY not set. Handoff translation disabled.")
		return nil, nil
	}

	tag, err := language.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("invalid HANDOFF_LANGUAGE %q: %w", target, err)
	}

	client, err := translate.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create translation client: %w", err)
	}

	log.Printf("✓ Google Cloud Translation configured (target %s)", tag)
	return &Translator{client: client, target: tag}, nil
}

// Translate converts English text to the target language.
//
// A nil Translator returns "", nil so callers fall back to English.
func (t *Translator) Translate(ctx context.Context, text string) (string, error) {
	if t == nil || text == "" {
		return "", nil
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	out, err := t.client.Translate(ctx, []string{text}, t.target, &translate.Options{
		Source: language.English,
		Format: translate.Text,
	})
	if err != nil {
		return "", apperrors.NewDeliveryError("translation request failed", err)
	}
	if len(out) == 0 {
		return "", apperrors.NewDeliveryError("translation returned no result", nil)
	}

	// Text format should come back unescaped, but the API has returned
	// entities for apostrophes before.
	return html.UnescapeString(out[0].Text), nil
}

// Close releases the underlying client.
func (t *Translator) Close() error {
	if t == nil {
		return nil
	}
	return t.client.Close()
}
