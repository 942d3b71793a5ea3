package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/shaiso/Poistot/internal/domain"
	"github.com/shaiso/Poistot/internal/jobs"
	"github.com/shaiso/Poistot/internal/repo"
	"github.com/shaiso/Poistot/internal/telemetry"
)

// sessionCookie — cookie с токеном сессии каталогизатора.
const sessionCookie = "sessionToken"

// CreateJob создаёт пакет и ставит его tasks в очередь.
// POST /api/v1/jobs
func (h *Handler) CreateJob(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil || cookie.Value == "" {
		Unauthorized(w, "missing session")
		return
	}

	creds, err := h.sessions.Read(cookie.Value)
	if err != nil {
		Unauthorized(w, "invalid session")
		return
	}

	var req CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	logger := telemetry.FromContext(r.Context())

	job, err := h.submitter.Submit(r.Context(), req.ToDomain(cookie.Value, creds.Username))
	if err != nil {
		if jobs.IsValidationError(err) {
			logger.Info("job rejected", "submitter", creds.Username, "error", err)
			BadRequest(w, err.Error())
			return
		}
		InternalError(w, logger, err)
		return
	}

	logger.Info("job accepted", "job_id", job.ID.String(), "submitter", creds.Username, "records", job.TaskCount)

	Success(w, JobFromDomain(*job))
}

// ListJobs возвращает список пакетов.
// GET /api/v1/jobs?status=...&submitter=...&limit=...&offset=...
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repo.JobFilter{
		Status:    domain.JobStatus(q.Get("status")),
		Submitter: q.Get("submitter"),
		Limit:     queryInt(q.Get("limit"), 50),
		Offset:    queryInt(q.Get("offset"), 0),
	}

	list, err := h.jobs.List(r.Context(), filter)
	if HandleRepoError(w, telemetry.FromContext(r.Context()), err, "") {
		return
	}

	result := make([]JobResponse, len(list))
	for i, job := range list {
		result[i] = JobFromDomain(job)
	}

	List(w, result, len(result))
}

// GetJob возвращает пакет по ID.
// GET /api/v1/jobs/{id}
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid job id")
		return
	}

	job, err := h.jobs.GetByID(r.Context(), id)
	if HandleRepoError(w, telemetry.FromContext(r.Context()), err, "job not found") {
		return
	}

	Success(w, JobFromDomain(*job))
}

// ListJobResults возвращает результаты tasks пакета.
// GET /api/v1/jobs/{id}/results
func (h *Handler) ListJobResults(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid job id")
		return
	}

	if _, err := h.jobs.GetByID(r.Context(), id); HandleRepoError(w, telemetry.FromContext(r.Context()), err, "job not found") {
		return
	}

	results, err := h.jobs.ListResults(r.Context(), id)
	if HandleRepoError(w, telemetry.FromContext(r.Context()), err, "") {
		return
	}

	out := make([]JobResultResponse, len(results))
	for i, res := range results {
		out[i] = JobResultFromDomain(res)
	}

	List(w, out, len(out))
}

// queryInt разбирает неотрицательное число из query, иначе def.
func queryInt(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return def
	}
	return n
}
