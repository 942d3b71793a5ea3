package api

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/shaiso/Poistot/internal/domain"
	"github.com/shaiso/Poistot/internal/repo"
	"github.com/shaiso/Poistot/internal/session"
)

// JobSubmitter создаёт пакет tasks.
type JobSubmitter interface {
	Submit(ctx context.Context, req domain.JobRequest) (*domain.Job, error)
}

// JobReader читает пакеты и их результаты.
type JobReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error)
	List(ctx context.Context, filter repo.JobFilter) ([]domain.Job, error)
	ListResults(ctx context.Context, jobID uuid.UUID) ([]domain.JobResult, error)
}

// SessionReader расшифровывает токен сессии.
type SessionReader interface {
	Read(token string) (session.Credentials, error)
}

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	submitter JobSubmitter
	jobs      JobReader
	sessions  SessionReader
	logger    *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Submitter JobSubmitter
	Jobs      JobReader
	Sessions  SessionReader
	Logger    *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		submitter: cfg.Submitter,
		jobs:      cfg.Jobs,
		sessions:  cfg.Sessions,
		logger:    logger,
	}
}
