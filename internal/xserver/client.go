package xserver

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultTimeout = 30 * time.Second

// EmptySetMessage — текст ошибки, которым X-server сообщает о пустой выборке.
const EmptySetMessage = "empty set"

// ErrEmptySet — запрос выполнен, но ничего не найдено.
// Это не ошибка для вызывающего кода, а ноль результатов.
var ErrEmptySet = errors.New(EmptySetMessage)

// ErrMalformedResponse — ответ не удалось разобрать.
var ErrMalformedResponse = errors.New("malformed x-server response")

// Error — ошибка, сообщённая самим X-server'ом (элемент <error>).
type Error struct {
	Op      string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// findResponse — ответ op=find.
type findResponse struct {
	XMLName   xml.Name `xml:"find"`
	Errors    []string `xml:"error"`
	SetNumber string   `xml:"set_number"`
	NoEntries string   `xml:"no_entries"`
}

// presentResponse — ответ op=present.
type presentResponse struct {
	XMLName xml.Name `xml:"present"`
	Errors  []string `xml:"error"`
	Records []struct {
		DocNumber []string `xml:"doc_number"`
	} `xml:"record"`
}

// FindResult — результат op=find: номер выборки и количество записей.
type FindResult struct {
	SetNumber string
	NoEntries string
}

// Count возвращает количество записей в выборке.
// Отсутствующее или нечисловое no_entries — ErrMalformedResponse.
func (r FindResult) Count() (int, error) {
	raw := strings.TrimSpace(r.NoEntries)
	if raw == "" {
		return 0, fmt.Errorf("%w: no_entries is missing", ErrMalformedResponse)
	}
	digits := strings.TrimLeft(raw, "0")
	if digits == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: no_entries %q", ErrMalformedResponse, r.NoEntries)
	}
	return n, nil
}

// Client — клиент X-server'а индексов каталога.
type Client struct {
	baseURL    string
	base       string
	httpClient *http.Client
}

// Config — конфигурация Client.
type Config struct {
	// BaseURL — адрес сервера, например https://aleph.example.org.
	BaseURL string

	// Base — логическая база индексов (default: fin01).
	Base string

	// Timeout — таймаут HTTP-запроса (default: 30s).
	Timeout time.Duration

	// HTTPClient — опционально, для тестов.
	HTTPClient *http.Client
}

// NewClient создаёт новый Client.
func NewClient(cfg Config) *Client {
	base := cfg.Base
	if base == "" {
		base = "fin01"
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		base:       base,
		httpClient: httpClient,
	}
}

// Search выполняет find + present и возвращает номера документов.
//
// Пустая выборка возвращается как ErrEmptySet, и только она:
// неразборчивый ответ — ошибка, а не ноль результатов.
func (c *Client) Search(ctx context.Context, request string) ([]string, error) {
	found, err := c.Find(ctx, request)
	if err != nil {
		return nil, err
	}

	count, err := found.Count()
	if err != nil {
		return nil, fmt.Errorf("find %q: %w", request, err)
	}
	if count == 0 {
		return nil, ErrEmptySet
	}

	return c.Present(ctx, found)
}

// Find выполняет op=find.
func (c *Client) Find(ctx context.Context, request string) (FindResult, error) {
	params := url.Values{}
	params.Set("op", "find")
	params.Set("request", request)
	params.Set("base", c.base)

	var resp findResponse
	if err := c.get(ctx, params, &resp); err != nil {
		return FindResult{}, fmt.Errorf("find %q: %w", request, err)
	}

	if len(resp.Errors) > 0 {
		return FindResult{}, serverError("find", resp.Errors[0])
	}

	return FindResult{SetNumber: resp.SetNumber, NoEntries: resp.NoEntries}, nil
}

// Present выполняет op=present для всей выборки.
func (c *Client) Present(ctx context.Context, set FindResult) ([]string, error) {
	params := url.Values{}
	params.Set("op", "present")
	params.Set("set_number", set.SetNumber)
	params.Set("set_entry", fmt.Sprintf("1-%s", set.NoEntries))

	var resp presentResponse
	if err := c.get(ctx, params, &resp); err != nil {
		return nil, fmt.Errorf("present set %s: %w", set.SetNumber, err)
	}

	if len(resp.Errors) > 0 {
		return nil, serverError("present", resp.Errors[0])
	}

	docs := make([]string, 0, len(resp.Records))
	for _, rec := range resp.Records {
		if len(rec.DocNumber) > 0 {
			docs = append(docs, rec.DocNumber[0])
		}
	}
	return docs, nil
}

// get выполняет GET /X с параметрами и разбирает XML-ответ.
func (c *Client) get(ctx context.Context, params url.Values, out any) error {
	reqURL := c.baseURL + "/X?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := xml.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func serverError(op, message string) error {
	message = strings.TrimSpace(message)
	if message == EmptySetMessage {
		return ErrEmptySet
	}
	return &Error{Op: op, Message: message}
}
