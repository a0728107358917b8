package engine

import (
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"rotaline/internal/config"
	"rotaline/internal/engine/auth"
	"rotaline/internal/events"
	"rotaline/internal/repo"
	"rotaline/internal/rota"
)

// ErrInvalidInput marks caller mistakes such as missing names or unknown day types.
var ErrInvalidInput = errors.New("invalid input")

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Auth   auth.Service
	Events events.Writer
	Config *config.Config
	Logger *slog.Logger
	Now    func() time.Time
}

func New(db *sql.DB, cfg *config.Config, logger *slog.Logger) Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Auth:   auth.Service{DB: db},
		Events: events.Writer{},
		Config: cfg,
		Logger: logger,
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) stamp() string {
	return e.now().UTC().Format(time.RFC3339)
}

func (e Engine) events() events.Writer {
	w := e.Events
	if w.Now == nil {
		w.Now = e.now
	}
	return w
}

// ErrorKind maps sentinel and typed errors to a stable logging label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	var fe auth.ForbiddenError
	switch {
	case errors.As(err, &fe):
		return "forbidden"
	case errors.Is(err, rota.ErrInvalidDate):
		return "invalid_date"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, repo.ErrNotFound):
		return "not_found"
	case errors.Is(err, repo.ErrNotUnique):
		return "not_unique"
	default:
		return "internal"
	}
}
