package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/idproof/idproof-backend/pkg/logger"
)

// RemoteAgeEstimator calls a third-party age-detection web API. Any failure
// (transport, timeout, bad status, unparsable body) falls back to the local
// heuristic estimator so processing never stalls on the external service.
type RemoteAgeEstimator struct {
	url        string
	httpClient *http.Client
	fallback   AgeEstimator
	log        *logger.Logger
}

// NewRemoteAgeEstimator creates a remote estimator with the given bounded
// timeout and local fallback
func NewRemoteAgeEstimator(url string, timeout time.Duration, fallback AgeEstimator, log *logger.Logger) *RemoteAgeEstimator {
	return &RemoteAgeEstimator{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		fallback:   fallback,
		log:        log.WithComponent("remote_age_estimator"),
	}
}

// remoteAgeResponse mirrors the age-detection API payload
type remoteAgeResponse struct {
	Age        int      `json:"age"`
	Confidence int      `json:"confidence"`
	Feedback   []string `json:"feedback,omitempty"`
}

// Estimate posts the selfie to the remote API and falls back locally on error
func (e *RemoteAgeEstimator) Estimate(ctx context.Context, selfiePath string) *AgeEstimate {
	estimate, err := e.callRemote(ctx, selfiePath)
	if err != nil {
		e.log.Warn().Err(err).Msg("remote age detection failed, using local estimator")
		return e.fallback.Estimate(ctx, selfiePath)
	}
	return estimate
}

func (e *RemoteAgeEstimator) callRemote(ctx context.Context, selfiePath string) (*AgeEstimate, error) {
	f, err := os.Open(selfiePath)
	if err != nil {
		return nil, fmt.Errorf("open selfie: %w", err)
	}
	defer f.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("image", filepath.Base(selfiePath))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("copy selfie data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("age detection request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("age detection service returned %d", resp.StatusCode)
	}

	var parsed remoteAgeResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	age := parsed.Age
	feedback := parsed.Feedback
	if feedback == nil {
		feedback = []string{}
	}

	return &AgeEstimate{
		Age:        &age,
		Confidence: clampInt(parsed.Confidence, 0, 100),
		Feedback:   feedback,
	}, nil
}
