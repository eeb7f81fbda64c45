package ocr

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/idproof/idproof-backend/pkg/logger"
)

// Result is the Text Extractor output for one document image
type Result struct {
	Text       string  `json:"text"`
	Name       *string `json:"name"`
	Age        *int    `json:"age"`
	DOB        *string `json:"dob"`
	Confidence int     `json:"confidence"`
	Language   string  `json:"language"`
	Variant    string  `json:"variant"`
}

// Extractor runs recognition over preprocessed variants of a document image
// in multiple languages and keeps the highest-confidence result
type Extractor struct {
	recognizer Recognizer
	languages  []string
	tempDir    string
	now        func() time.Time
	log        *logger.Logger
}

// NewExtractor creates an extractor. languages are Tesseract language codes;
// tempDir may be empty to use the system default.
func NewExtractor(recognizer Recognizer, languages []string, tempDir string, log *logger.Logger) *Extractor {
	return &Extractor{
		recognizer: recognizer,
		languages:  languages,
		tempDir:    tempDir,
		now:        time.Now,
		log:        log.WithComponent("text_extractor"),
	}
}

// WithNow overrides the clock used for DOB-derived ages (tests)
func (e *Extractor) WithNow(now func() time.Time) *Extractor {
	e.now = now
	return e
}

type passResult struct {
	recognition *Recognition
	language    string
	variant     string
}

// Extract runs all (variant x language) recognition passes concurrently and
// parses fields out of the best text. It errors only when every pass failed,
// which callers surface as a processing error on the document upload.
func (e *Extractor) Extract(ctx context.Context, documentPath string) (*Result, error) {
	variants, cleanup, err := preprocess(documentPath, e.tempDir, func(cleanupErr error) {
		e.log.Warn().Err(cleanupErr).Msg("temp image cleanup failed")
	})
	if err != nil {
		return nil, fmt.Errorf("preprocess document: %w", err)
	}
	defer cleanup()

	var (
		mu      sync.Mutex
		results []passResult
		lastErr error
		wg      sync.WaitGroup
	)

	for _, vf := range variants {
		for _, lang := range e.languages {
			wg.Add(1)
			go func(vf variantFile, lang string) {
				defer wg.Done()
				rec, err := e.recognizer.Recognize(ctx, vf.Path, lang)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					lastErr = err
					e.log.Debug().Err(err).Str("language", lang).Str("variant", vf.Name).Msg("recognition pass failed")
					return
				}
				results = append(results, passResult{recognition: rec, language: lang, variant: vf.Name})
			}(vf, lang)
		}
	}
	wg.Wait()

	if len(results) == 0 {
		if lastErr == nil {
			lastErr = fmt.Errorf("no recognition passes ran")
		}
		return nil, fmt.Errorf("text recognition failed: %w", lastErr)
	}

	best := results[0]
	for _, r := range results[1:] {
		if r.recognition.Confidence > best.recognition.Confidence {
			best = r
		}
	}

	fields := ExtractFields(best.recognition.Text, e.now())

	// Field values are personal data and stay out of logs
	e.log.Info().
		Str("language", best.language).
		Str("variant", best.variant).
		Int("confidence", best.recognition.Confidence).
		Bool("name_found", fields.Name != nil).
		Bool("dob_found", fields.DOB != nil).
		Bool("age_found", fields.Age != nil).
		Msg("document text extracted")

	return &Result{
		Text:       best.recognition.Text,
		Name:       fields.Name,
		Age:        fields.Age,
		DOB:        fields.DOB,
		Confidence: best.recognition.Confidence,
		Language:   best.language,
		Variant:    best.variant,
	}, nil
}
