package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// JobResponse — пакет из API.
type JobResponse struct {
	ID                  string   `json:"id"`
	ParentJobID         string   `json:"parent_job_id,omitempty"`
	LowTag              string   `json:"low_tag"`
	DeleteUnusedRecords bool     `json:"delete_unused_records"`
	ReplicateRecords    bool     `json:"replicate_records"`
	BypassTagRemoval    bool     `json:"bypass_tag_removal"`
	HandleComponents    bool     `json:"handle_components"`
	Submitter           string   `json:"submitter,omitempty"`
	HostIDs             []string `json:"host_ids,omitempty"`
	TaskCount           int      `json:"task_count"`
	CompletedCount      int      `json:"completed_count"`
	FailedCount         int      `json:"failed_count"`
	Status              string   `json:"status"`
	CreatedAt           string   `json:"created_at"`
	CompletedAt         string   `json:"completed_at,omitempty"`
}

// RecordHints — подсказки для определения записи.
type RecordHints struct {
	CatalogID string   `json:"catalogId,omitempty"`
	LocalID   string   `json:"localId,omitempty"`
	Links     []string `json:"links,omitempty"`
}

// JobResultResponse — результат task из API.
type JobResultResponse struct {
	TaskID        string      `json:"task_id"`
	RecordIDHints RecordHints `json:"record_id_hints"`
	RecordID      string      `json:"record_id,omitempty"`
	Failed        bool        `json:"failed"`
	FailureReason string      `json:"failure_reason,omitempty"`
	Report        []string    `json:"report"`
	ReceivedAt    string      `json:"received_at"`
}

// --- Request types ---

// CreateJobRequest — создание пакета.
type CreateJobRequest struct {
	Records             []RecordHints `json:"records"`
	LowTag              string        `json:"lowTag"`
	DeleteUnusedRecords bool          `json:"deleteUnusedRecords,omitempty"`
	ReplicateRecords    bool          `json:"replicateRecords,omitempty"`
	BypassTagRemoval    bool          `json:"bypassTagRemoval,omitempty"`
	HandleComponents    bool          `json:"handleComponents,omitempty"`
}

// ListJobsOpts — параметры фильтрации пакетов.
type ListJobsOpts struct {
	Status    string
	Submitter string
	Limit     int
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// --- Client ---

// sessionCookie — cookie с токеном сессии каталогизатора.
const sessionCookie = "sessionToken"

// Client — HTTP-клиент для Poistot API.
type Client struct {
	baseURL      string
	sessionToken string
	httpClient   *http.Client
}

// NewClient создаёт клиент для API.
// sessionToken нужен только для создания пакетов.
func NewClient(baseURL, sessionToken string) *Client {
	return &Client{
		baseURL:      baseURL,
		sessionToken: sessionToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// --- Jobs ---

// SubmitJob создаёт пакет.
func (c *Client) SubmitJob(req CreateJobRequest) (*JobResponse, error) {
	var job JobResponse
	err := c.post("/api/v1/jobs", req, &job)
	return &job, err
}

// ListJobs возвращает список пакетов с фильтрацией.
func (c *Client) ListJobs(opts ListJobsOpts) ([]JobResponse, error) {
	params := url.Values{}
	if opts.Status != "" {
		params.Set("status", opts.Status)
	}
	if opts.Submitter != "" {
		params.Set("submitter", opts.Submitter)
	}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}

	var jobs []JobResponse
	err := c.list("/api/v1/jobs", params, &jobs)
	return jobs, err
}

// GetJob возвращает пакет по ID.
func (c *Client) GetJob(id string) (*JobResponse, error) {
	var job JobResponse
	err := c.get("/api/v1/jobs/"+id, &job)
	return &job, err
}

// ListResults возвращает результаты tasks пакета.
func (c *Client) ListResults(jobID string) ([]JobResultResponse, error) {
	var results []JobResultResponse
	err := c.list("/api/v1/jobs/"+jobID+"/results", nil, &results)
	return results, err
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) list(path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.sessionToken != "" {
		req.AddCookie(&http.Cookie{Name: sessionCookie, Value: c.sessionToken})
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
}
