package analysis_test

import (
	"context"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idproof/idproof-backend/internal/verification/analysis"
)

// staticEstimator is a canned local fallback
type staticEstimator struct {
	estimate *analysis.AgeEstimate
	called   bool
}

func (s *staticEstimator) Estimate(ctx context.Context, selfiePath string) *analysis.AgeEstimate {
	s.called = true
	return s.estimate
}

func TestRemoteEstimate_Success(t *testing.T) {
	selfie := writeCheckerPNG(t, t.TempDir(), "selfie.png", 100, 100)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		_, _, err := r.FormFile("image")
		require.NoError(t, err)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"age": 31, "confidence": 88}`))
	}))
	defer srv.Close()

	fallback := &staticEstimator{}
	estimator := analysis.NewRemoteAgeEstimator(srv.URL, 5*time.Second, fallback, testLogger())

	estimate := estimator.Estimate(context.Background(), selfie)

	require.NotNil(t, estimate.Age)
	assert.Equal(t, 31, *estimate.Age)
	assert.Equal(t, 88, estimate.Confidence)
	assert.NotNil(t, estimate.Feedback)
	assert.False(t, fallback.called, "fallback must not run on success")
}

func TestRemoteEstimate_FallsBackOnServerError(t *testing.T) {
	selfie := writeCheckerPNG(t, t.TempDir(), "selfie.png", 100, 100)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	age := 27
	fallback := &staticEstimator{estimate: &analysis.AgeEstimate{Age: &age, Confidence: 70, Feedback: []string{}}}
	estimator := analysis.NewRemoteAgeEstimator(srv.URL, 5*time.Second, fallback, testLogger())

	estimate := estimator.Estimate(context.Background(), selfie)

	assert.True(t, fallback.called)
	require.NotNil(t, estimate.Age)
	assert.Equal(t, 27, *estimate.Age)
}

func TestRemoteEstimate_FallsBackOnBadBody(t *testing.T) {
	selfie := writeCheckerPNG(t, t.TempDir(), "selfie.png", 100, 100)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	fallback := &staticEstimator{estimate: heuristicFallback(t)}
	estimator := analysis.NewRemoteAgeEstimator(srv.URL, 5*time.Second, fallback, testLogger())

	estimator.Estimate(context.Background(), selfie)
	assert.True(t, fallback.called)
}

func TestRemoteEstimate_FallsBackOnMissingSelfie(t *testing.T) {
	fallback := &staticEstimator{estimate: heuristicFallback(t)}
	estimator := analysis.NewRemoteAgeEstimator("http://127.0.0.1:0", time.Second, fallback, testLogger())

	estimator.Estimate(context.Background(), "/nonexistent/selfie.png")
	assert.True(t, fallback.called)
}

func heuristicFallback(t *testing.T) *analysis.AgeEstimate {
	t.Helper()
	age := 18 + rand.Intn(10)
	return &analysis.AgeEstimate{Age: &age, Confidence: 60, Feedback: []string{}}
}
