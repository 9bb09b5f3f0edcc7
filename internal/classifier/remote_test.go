package classifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skufu/healthrisk/internal/risk"
)

func newModelServer(t *testing.T, predict http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/predict", predict)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestRemote_Predict(t *testing.T) {
	var got predictRequest
	srv := newModelServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"predictedClass":1,"probabilities":[0.2,0.8]}`))
	})

	c, err := NewRemote(context.Background(), RemoteConfig{BaseURL: srv.URL + "/", Timeout: time.Second, RPS: 5}, zerolog.Nop())
	require.NoError(t, err)

	v := risk.FeatureVector{Age: 60, BMI: 30, BloodPressure: 140, SugarLevel: 150, PhysicalActivity: 0, Smoking: 1}
	out, err := c.Predict(context.Background(), v)
	require.NoError(t, err)

	assert.Equal(t, risk.ClassifierOutput{PredictedClass: 1, Probabilities: []float64{0.2, 0.8}}, out)
	assert.Equal(t, risk.FeatureNames, got.Features)
	assert.Equal(t, v.Values(), got.Instance)
}

func TestRemote_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"bad request", http.StatusBadRequest, `{"error":"shape mismatch"}`, ErrInference},
		{"server error", http.StatusInternalServerError, `boom`, ErrModelUnavailable},
		{"garbage body", http.StatusOK, `not json`, ErrModelUnavailable},
		{"truncated body", http.StatusOK, `{"predictedClass":1,"probabilities":[0.2,`, ErrModelUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newModelServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			c, err := NewRemote(context.Background(), RemoteConfig{BaseURL: srv.URL}, zerolog.Nop())
			require.NoError(t, err)

			_, err = c.Predict(context.Background(), risk.DefaultVector())
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNewRemote_Unavailable(t *testing.T) {
	_, err := NewRemote(context.Background(), RemoteConfig{}, zerolog.Nop())
	assert.ErrorIs(t, err, ErrModelUnavailable)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err = NewRemote(context.Background(), RemoteConfig{BaseURL: srv.URL}, zerolog.Nop())
	assert.ErrorIs(t, err, ErrModelUnavailable)
}

func TestRemote_CancelledContext(t *testing.T) {
	srv := newModelServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"predictedClass":0,"probabilities":[0.9,0.1]}`))
	})
	c, err := NewRemote(context.Background(), RemoteConfig{BaseURL: srv.URL, RPS: 1}, zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Predict(ctx, risk.DefaultVector())
	assert.ErrorIs(t, err, ErrModelUnavailable)
}
