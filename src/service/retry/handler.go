package retry

import (
	"context"
	"sync"
	"time"

	"redundancy-analyzer/src/config"
	"redundancy-analyzer/src/model"
	"redundancy-analyzer/src/util"
)

// Handler retries recoverable operations with exponential backoff and keeps
// per-operation attempt counts for the run it was created for.
type Handler struct {
	cfg config.RetryConfig

	mu       sync.Mutex
	attempts map[string]int

	// sleep waits for d or until ctx is done
	sleep func(ctx context.Context, d time.Duration) error
}

// NewHandler creates a handler using cfg
func NewHandler(cfg config.RetryConfig) *Handler {
	return &Handler{
		cfg:      cfg,
		attempts: make(map[string]int),
		sleep:    sleepContext,
	}
}

// Do runs fn, retrying it while it fails with a recoverable error and the
// retry budget for operation is not spent. The last error is returned.
func (h *Handler) Do(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt <= h.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := h.Backoff(attempt)
			util.Warn("Retrying %s (attempt %d/%d) after %v: %v", operation, attempt+1, h.cfg.MaxAttempts+1, delay, lastErr)
			if err := h.sleep(ctx, delay); err != nil {
				return err
			}
		}

		h.record(operation)
		err := fn(ctx)
		if err == nil {
			return nil
		}

		lastErr = err
		if !h.ShouldRetry(err) {
			break
		}
	}

	return lastErr
}

// ShouldRetry reports whether err is worth another attempt
func (h *Handler) ShouldRetry(err error) bool {
	return model.IsRecoverable(err)
}

// Backoff returns the delay before the given retry attempt
func (h *Handler) Backoff(attempt int) time.Duration {
	delay := float64(h.cfg.InitialDelay)
	for i := 1; i < attempt; i++ {
		delay *= h.cfg.BackoffFactor
	}
	if h.cfg.MaxDelay > 0 && delay > float64(h.cfg.MaxDelay) {
		delay = float64(h.cfg.MaxDelay)
	}
	return time.Duration(delay)
}

// Attempts returns how many times operation has been tried
func (h *Handler) Attempts(operation string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.attempts[operation]
}

// Reset clears the attempt count of operation
func (h *Handler) Reset(operation string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.attempts, operation)
}

func (h *Handler) record(operation string) {
	h.mu.Lock()
	h.attempts[operation]++
	h.mu.Unlock()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
