package service

import (
	"context"
	"time"

	"github.com/renunganku/api/internal/model"
)

// pingTimeout bounds each dependency check
const pingTimeout = 3 * time.Second

// Pinger is a dependency that can report liveness
type Pinger interface {
	Ping(ctx context.Context) error
}

// StatusService reports the health of the API and its stores
type StatusService struct {
	db          Pinger
	alkitab     Pinger
	environment string
	startedAt   time.Time
	now         func() time.Time
}

// NewStatusService creates a new status service. alkitab may be nil when
// the corpus is not configured.
func NewStatusService(db, alkitab Pinger, environment string) *StatusService {
	return &StatusService{
		db:          db,
		alkitab:     alkitab,
		environment: environment,
		startedAt:   time.Now(),
		now:         time.Now,
	}
}

// Status pings every dependency. The overall status is degraded when any
// of them is down.
func (s *StatusService) Status(ctx context.Context) *model.SystemStatus {
	began := s.now()

	out := &model.SystemStatus{
		Status:      model.StatusOK,
		Timestamp:   began.UTC(),
		UptimeSec:   int64(began.Sub(s.startedAt).Seconds()),
		Environment: s.environment,
		Database:    check(ctx, s.db, s.now),
	}
	if s.alkitab != nil {
		out.Alkitab = check(ctx, s.alkitab, s.now)
	} else {
		out.Alkitab = model.ComponentStatus{Status: model.StatusDown, Error: "not configured"}
	}

	if out.Database.Status != model.StatusUp || out.Alkitab.Status != model.StatusUp {
		out.Status = model.StatusDegraded
	}
	out.API.LatencyMs = millis(s.now().Sub(began))
	return out
}

func check(ctx context.Context, p Pinger, now func() time.Time) model.ComponentStatus {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	began := now()
	err := p.Ping(ctx)
	status := model.ComponentStatus{Status: model.StatusUp, LatencyMs: millis(now().Sub(began))}
	if err != nil {
		status.Status = model.StatusDown
		status.Error = err.Error()
	}
	return status
}

func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
