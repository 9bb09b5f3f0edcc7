package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/Skufu/healthrisk/internal/risk"
)

// RemoteConfig configures a Remote classifier.
type RemoteConfig struct {
	BaseURL string
	Timeout time.Duration
	// RPS caps outbound inference calls per second. Zero means unlimited.
	RPS int
}

// Remote calls an external inference service over HTTP.
type Remote struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     zerolog.Logger
}

type predictRequest struct {
	Features []string  `json:"features"`
	Instance []float64 `json:"instance"`
}

// NewRemote probes the service's /healthz endpoint and fails with
// ErrModelUnavailable when it does not answer 200.
func NewRemote(ctx context.Context, cfg RemoteConfig, logger zerolog.Logger) (*Remote, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: remote model url is empty", ErrModelUnavailable)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	limit := rate.Inf
	burst := 1
	if cfg.RPS > 0 {
		limit = rate.Every(time.Second / time.Duration(cfg.RPS))
		burst = cfg.RPS
	}

	r := &Remote{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(limit, burst),
		logger:     logger.With().Str("component", "remote_classifier").Logger(),
	}

	if err := r.probe(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Remote) probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("%w: build probe: %v", ErrModelUnavailable, err)
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: probe %s: %v", ErrModelUnavailable, r.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: probe %s returned %d", ErrModelUnavailable, r.baseURL, resp.StatusCode)
	}
	r.logger.Info().Str("url", r.baseURL).Msg("remote model reachable")
	return nil
}

func (r *Remote) Predict(ctx context.Context, v risk.FeatureVector) (risk.ClassifierOutput, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return risk.ClassifierOutput{}, fmt.Errorf("%w: rate limiter: %v", ErrModelUnavailable, err)
	}

	body, err := json.Marshal(predictRequest{Features: risk.FeatureNames, Instance: v.Values()})
	if err != nil {
		return risk.ClassifierOutput{}, fmt.Errorf("%w: encode request: %v", ErrInference, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return risk.ClassifierOutput{}, fmt.Errorf("%w: build request: %v", ErrModelUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return risk.ClassifierOutput{}, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return risk.ClassifierOutput{}, fmt.Errorf("%w: read response: %v", ErrModelUnavailable, err)
	}

	r.logger.Debug().
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("remote prediction")

	switch {
	case resp.StatusCode >= 500:
		return risk.ClassifierOutput{}, fmt.Errorf("%w: model service returned %d", ErrModelUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return risk.ClassifierOutput{}, fmt.Errorf("%w: model service returned %d: %s", ErrInference, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	// A 200 we cannot read means the service is broken, not that the input was bad.
	var out risk.ClassifierOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return risk.ClassifierOutput{}, fmt.Errorf("%w: decode response: %v", ErrModelUnavailable, err)
	}
	return out, nil
}
