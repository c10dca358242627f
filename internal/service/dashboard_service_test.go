package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crc-dev/volreg-api/internal/eligibility"
	"github.com/crc-dev/volreg-api/internal/models"
	appErrors "github.com/crc-dev/volreg-api/pkg/errors"
)

type mockDashboardVolunteers struct {
	volunteers []models.Volunteer
}

func (m *mockDashboardVolunteers) ListAll(ctx context.Context) ([]models.Volunteer, error) {
	return m.volunteers, nil
}

type mockDashboardParticipations struct {
	parts []models.ParticipationDetail
}

func (m *mockDashboardParticipations) ListAll(ctx context.Context) ([]models.ParticipationDetail, error) {
	return m.parts, nil
}

type memoryCache struct {
	values  map[string][]byte
	deletes []string
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if m.values == nil {
		m.values = make(map[string][]byte)
	}
	m.values[key] = raw
	return nil
}

func (m *memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.deletes = append(m.deletes, pattern)
	m.values = nil
	return nil
}

func TestDashboardServiceSummary(t *testing.T) {
	birth1960 := time.Date(1960, 1, 1, 0, 0, 0, 0, time.UTC)
	volunteers := &mockDashboardVolunteers{volunteers: []models.Volunteer{
		{ID: "v1", ManualStatus: models.StatusWaitingApproval},
		{ID: "v2", ManualStatus: models.StatusEligible, BirthDate: &birth1960},
		{ID: "v3", ManualStatus: models.StatusEligible},
	}}
	parts := &mockDashboardParticipations{parts: []models.ParticipationDetail{
		{Participation: models.Participation{ID: "p1", VolunteerID: "v1", StudyID: "s1", IsActive: true}, StudyIsActive: true},
	}}
	cache := &memoryCache{}
	svc := NewDashboardService(volunteers, parts, eligibility.New(0, 0), cache, zap.NewNop(), time.Minute)
	svc.now = func() time.Time { return time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC) }

	summary, fromCache, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.False(t, fromCache)
	assert.Equal(t, 3, summary.TotalVolunteers)
	assert.Equal(t, 1, summary.ActiveStudies)
	assert.Equal(t, 1, summary.OpenEnrollments)
	assert.Equal(t, 1, summary.ByStatus[models.StatusInStudy])
	assert.Equal(t, 1, summary.ByStatus[models.StatusAgeMismatch])
	assert.Equal(t, 1, summary.ByStatus[models.StatusEligible])

	cached, fromCache, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.True(t, fromCache)
	assert.Equal(t, summary.TotalVolunteers, cached.TotalVolunteers)
}

func TestDashboardServiceInvalidate(t *testing.T) {
	cache := &memoryCache{values: map[string][]byte{dashboardCacheKey: []byte(`{}`)}}
	svc := NewDashboardService(&mockDashboardVolunteers{}, &mockDashboardParticipations{}, nil, cache, zap.NewNop(), time.Minute)

	svc.Invalidate(context.Background())
	assert.Equal(t, []string{"dashboard:*"}, cache.deletes)
	assert.Empty(t, cache.values)
}
