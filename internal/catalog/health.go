package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultHealthTimeout = 10 * time.Second

// HealthChecker проверяет доступность каталога по HTTP.
// Любой ответ 2xx считается здоровым.
type HealthChecker struct {
	url        string
	httpClient *http.Client
}

// NewHealthChecker создаёт HealthChecker для url.
func NewHealthChecker(url string, timeout time.Duration) *HealthChecker {
	if timeout <= 0 {
		timeout = defaultHealthTimeout
	}
	return &HealthChecker{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Check выполняет одну проверку.
func (h *HealthChecker) Check(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnhealthy, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: HTTP %d", ErrUnhealthy, resp.StatusCode)
	}
	return nil
}
