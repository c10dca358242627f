package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/crc-dev/volreg-api/internal/eligibility"
	"github.com/crc-dev/volreg-api/internal/models"
	appErrors "github.com/crc-dev/volreg-api/pkg/errors"
)

const dashboardCacheKey = "dashboard:summary"

type dashboardVolunteerRepo interface {
	ListAll(ctx context.Context) ([]models.Volunteer, error)
}

type dashboardParticipationRepo interface {
	ListAll(ctx context.Context) ([]models.ParticipationDetail, error)
}

type summaryCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// DashboardService computes registry counters. Status is derived per
// volunteer, so the aggregation walks the whole registry; the result is
// cached and invalidated whenever a write goes through.
type DashboardService struct {
	volunteers     dashboardVolunteerRepo
	participations dashboardParticipationRepo
	engine         *eligibility.Engine
	cache          summaryCache
	logger         *zap.Logger
	ttl            time.Duration
	now            func() time.Time
}

// NewDashboardService constructs the dashboard service.
func NewDashboardService(volunteers dashboardVolunteerRepo, participations dashboardParticipationRepo, engine *eligibility.Engine, cache summaryCache, logger *zap.Logger, ttl time.Duration) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if engine == nil {
		engine = eligibility.New(0, 0)
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &DashboardService{
		volunteers:     volunteers,
		participations: participations,
		engine:         engine,
		cache:          cache,
		logger:         logger,
		ttl:            ttl,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// Summary returns the registry counters and whether they came from
// cache.
func (s *DashboardService) Summary(ctx context.Context) (*models.DashboardSummary, bool, error) {
	if s.cache != nil {
		var cached models.DashboardSummary
		err := s.cache.Get(ctx, dashboardCacheKey, &cached)
		if err == nil {
			return &cached, true, nil
		}
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("dashboard cache read failed", zap.Error(err))
		}
	}

	volunteers, err := s.volunteers.ListAll(ctx)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list volunteers")
	}
	parts, err := s.participations.ListAll(ctx)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list participations")
	}

	byVolunteer := map[string][]models.ParticipationDetail{}
	activeStudies := map[string]bool{}
	openEnrollments := 0
	for _, p := range parts {
		byVolunteer[p.VolunteerID] = append(byVolunteer[p.VolunteerID], p)
		if p.IsActive {
			openEnrollments++
			activeStudies[p.StudyID] = true
		}
	}

	at := s.now()
	summary := &models.DashboardSummary{
		TotalVolunteers: len(volunteers),
		ByStatus:        map[models.Status]int{},
		ActiveStudies:   len(activeStudies),
		OpenEnrollments: openEnrollments,
		GeneratedAt:     at,
	}
	for _, v := range volunteers {
		status := s.engine.Compute(v, byVolunteer[v.ID], at)
		summary.ByStatus[status]++
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, dashboardCacheKey, summary, s.ttl); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.Error(err))
		}
	}
	return summary, false, nil
}

// Invalidate drops cached counters. Called after volunteer, study and
// participation writes.
func (s *DashboardService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "dashboard:*"); err != nil {
		s.logger.Warn("dashboard cache invalidation failed", zap.Error(err))
	}
}
