package validator

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"mediacatalog/internal/config"
	"mediacatalog/internal/logging"
	"mediacatalog/internal/metrics"
	"mediacatalog/internal/models"
	"mediacatalog/internal/services"
	"mediacatalog/internal/tracing"
)

const validateBatchSize = 100

// Summary counts the outcome of one validation pass
type Summary struct {
	Checked     int `json:"checked"`
	Deactivated int `json:"deactivated"`
	Reactivated int `json:"reactivated"`
}

// Validator HEAD-probes every source URL and deactivates the broken ones
type Validator struct {
	repo       *services.Repository
	httpClient *http.Client
	limiter    *rate.Limiter
	cfg        config.ValidatorConfig
	logger     *zerolog.Logger
	now        func() time.Time
}

// NewValidator creates a validator with the configured probe timeout
func NewValidator(repo *services.Repository, cfg config.ValidatorConfig) *Validator {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}

	return &Validator{
		repo: repo,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			// Only the source URL's own response counts, so redirects are not followed
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		limiter: limiter,
		cfg:     cfg,
		logger:  logging.WithModule("validator"),
		now:     time.Now,
	}
}

// Validate probes sources one at a time. A probe failure only affects that
// source; the pass stops early only when listing or persisting fails.
func (v *Validator) Validate(ctx context.Context) (Summary, error) {
	var summary Summary

	err := v.repo.EachSourceBatch(ctx, validateBatchSize, func(sources []models.Source) error {
		for _, src := range sources {
			if err := v.limiter.Wait(ctx); err != nil {
				return err
			}

			status, probeErr := v.probe(ctx, src.URL)
			ok := probeErr == nil && status == http.StatusOK

			var active *bool
			switch {
			case !ok && src.Active:
				active = boolPtr(false)
				summary.Deactivated++
			case ok && !src.Active && v.cfg.Reactivate:
				active = boolPtr(true)
				summary.Reactivated++
			}

			if err := v.repo.RecordProbe(ctx, src.ID, status, v.now(), active); err != nil {
				return err
			}
			summary.Checked++

			result := "ok"
			if !ok {
				result = "failed"
				event := v.logger.Warn().Int64("source_id", src.ID).Str("url", src.URL).Int("status", status)
				if probeErr != nil {
					event = event.Err(probeErr)
				}
				event.Msg("Source probe failed")
			}
			metrics.SourceProbesTotal.WithLabelValues(result).Inc()
		}
		return nil
	})
	if err != nil {
		return summary, fmt.Errorf("validate sources: %w", err)
	}

	v.logger.Info().
		Int("checked", summary.Checked).
		Int("deactivated", summary.Deactivated).
		Int("reactivated", summary.Reactivated).
		Msg("Source validation completed")
	return summary, nil
}

// probe issues a HEAD request and returns the status code, or 0 with an
// error when no response arrived.
func (v *Validator) probe(ctx context.Context, url string) (status int, err error) {
	ctx, span := tracing.StartSpan(ctx, "source.probe", attribute.String("source.url", url))
	defer func() {
		span.SetAttributes(attribute.Int("http.response.status_code", status))
		tracing.EndSpan(span, err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return 0, err
	}
	if v.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", v.cfg.UserAgent)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	return resp.StatusCode, nil
}

func boolPtr(b bool) *bool {
	return &b
}
