package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shaiso/Poistot/internal/domain"
	"github.com/shaiso/Poistot/internal/marc"
)

const defaultTimeout = 30 * time.Second

// LoadOptions — параметры загрузки записи.
type LoadOptions struct {
	// HandleDeleted — вернуть запись, даже если она помечена удалённой
	// (без перенаправления на запись-преемника).
	HandleDeleted bool
}

// Credentials — учётные данные пользователя API.
type Credentials struct {
	Username string
	Password string
}

// Client — HTTP-клиент API записей каталога.
//
// Клиент создаётся на каждую task с учётными данными каталогизатора;
// клиент без учётных данных используется для проверки существования записей.
type Client struct {
	endpoint    string
	credentials Credentials
	httpClient  *http.Client
}

// Config — конфигурация Client.
type Config struct {
	// Endpoint — адрес API, например https://catalog.example.org/API/v1.
	Endpoint string

	// Credentials — опционально.
	Credentials Credentials

	// Timeout — таймаут запроса (default: 30s).
	Timeout time.Duration

	// HTTPClient — опционально, для тестов.
	HTTPClient *http.Client
}

// NewClient создаёт новый Client.
func NewClient(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		endpoint:    strings.TrimRight(cfg.Endpoint, "/"),
		credentials: cfg.Credentials,
		httpClient:  httpClient,
	}
}

// WithCredentials возвращает копию клиента с другими учётными данными.
func (c *Client) WithCredentials(creds Credentials) *Client {
	clone := *c
	clone.credentials = creds
	return &clone
}

// LoadRecord загружает запись по ID.
func (c *Client) LoadRecord(ctx context.Context, id string, opts LoadOptions) (*marc.Record, error) {
	reqURL := c.recordURL(id)
	if opts.HandleDeleted {
		reqURL += "?" + url.Values{"handle_deleted": {"1"}}.Encode()
	}

	var record marc.Record
	if err := c.do(ctx, http.MethodGet, reqURL, nil, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// UpdateRecord сохраняет запись. ID берётся из поля 001.
func (c *Client) UpdateRecord(ctx context.Context, record *marc.Record) (*domain.UpdateResponse, error) {
	id := record.ControlFieldValue("001")
	if id == "" {
		return nil, fmt.Errorf("%w: record has no 001 field", ErrInvalidRequest)
	}

	body, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}

	var resp domain.UpdateResponse
	if err := c.do(ctx, http.MethodPut, c.recordURL(id), body, &resp); err != nil {
		return nil, err
	}
	if resp.RecordID == "" {
		resp.RecordID = domain.RecordID(id)
	}
	return &resp, nil
}

func (c *Client) recordURL(id string) string {
	return c.endpoint + "/bib/" + url.PathEscape(id)
}

// do выполняет запрос и разбирает JSON-ответ в out.
func (c *Client) do(ctx context.Context, method, reqURL string, body []byte, out any) error {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.credentials.Username != "" {
		req.SetBasicAuth(c.credentials.Username, c.credentials.Password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return parseAPIError(resp.StatusCode, respBody)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
