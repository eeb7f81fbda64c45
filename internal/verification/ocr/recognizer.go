package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// Recognition is the raw output of one OCR pass
type Recognition struct {
	Text       string
	Confidence int
}

// Recognizer runs text recognition over an image file in one language.
// The interface isolates the Tesseract binding so extraction logic can be
// tested without a tesseract install.
type Recognizer interface {
	Recognize(ctx context.Context, imagePath, language string) (*Recognition, error)
}

// TesseractRecognizer runs recognition through gosseract. A fresh client is
// created per pass; clients are not safe for concurrent reuse and must be
// closed on every exit path.
type TesseractRecognizer struct{}

// NewTesseractRecognizer creates a Tesseract-backed recognizer
func NewTesseractRecognizer() *TesseractRecognizer {
	return &TesseractRecognizer{}
}

// Recognize runs one OCR pass over imagePath in the given language
func (t *TesseractRecognizer) Recognize(ctx context.Context, imagePath, language string) (*Recognition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(language); err != nil {
		return nil, fmt.Errorf("set language %s: %w", language, err)
	}
	if err := client.SetImage(imagePath); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return nil, fmt.Errorf("recognition failed: %w", err)
	}

	return &Recognition{
		Text:       text,
		Confidence: textConfidence(text),
	}, nil
}

// textConfidence estimates recognition confidence (0-100) from text quality
// indicators: length, word count and character distribution
func textConfidence(text string) int {
	if strings.TrimSpace(text) == "" {
		return 0
	}

	confidence := 50

	if len(text) > 100 {
		confidence += 10
	}
	if len(text) > 500 {
		confidence += 10
	}

	words := strings.Fields(text)
	if len(words) > 10 {
		confidence += 10
	}

	letters := 0
	for _, r := range text {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			letters++
		}
	}
	ratio := float64(letters) / float64(len(text))
	if ratio > 0.5 && ratio < 0.9 {
		confidence += 10
	}

	if confidence > 85 {
		confidence = 85
	}
	return confidence
}
