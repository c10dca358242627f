package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crc-dev/volreg-api/internal/models"
)

type mockStudyRepo struct {
	studies   map[string]models.Study
	names     map[string]string
	logs      []models.AuditLog
	deleted   []string
	listTotal int
}

func (m *mockStudyRepo) List(ctx context.Context, filter models.StudyFilter) ([]models.Study, int, error) {
	out := make([]models.Study, 0, len(m.studies))
	for _, s := range m.studies {
		out = append(out, s)
	}
	return out, m.listTotal, nil
}

func (m *mockStudyRepo) FindByID(ctx context.Context, id string) (*models.Study, error) {
	if s, ok := m.studies[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudyRepo) ExistsByName(ctx context.Context, name string, excludeID string) (bool, error) {
	if id, ok := m.names[name]; ok {
		if excludeID == "" || id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockStudyRepo) Create(ctx context.Context, study *models.Study) error {
	if m.studies == nil {
		m.studies = make(map[string]models.Study)
	}
	if study.ID == "" {
		study.ID = "generated"
	}
	m.studies[study.ID] = *study
	return nil
}

func (m *mockStudyRepo) UpdateWithAudit(ctx context.Context, study *models.Study, log *models.AuditLog) error {
	m.studies[study.ID] = *study
	m.logs = append(m.logs, *log)
	return nil
}

func (m *mockStudyRepo) DeleteWithAudit(ctx context.Context, id string, log *models.AuditLog) error {
	delete(m.studies, id)
	m.deleted = append(m.deleted, id)
	m.logs = append(m.logs, *log)
	return nil
}

type mockParticipationGuard struct {
	referenced map[string]bool
}

func (m *mockParticipationGuard) ExistsByStudy(ctx context.Context, studyID string) (bool, error) {
	return m.referenced[studyID], nil
}

func newStudyService(repo *mockStudyRepo, guard *mockParticipationGuard) *StudyService {
	if guard == nil {
		guard = &mockParticipationGuard{}
	}
	svc := NewStudyService(repo, guard, validator.New(), zap.NewNop())
	svc.now = func() time.Time { return time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestStudyServiceCreateClosesPaidStudy(t *testing.T) {
	repo := &mockStudyRepo{names: map[string]string{}}
	svc := newStudyService(repo, nil)

	payment := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	study, err := svc.Create(context.Background(), CreateStudyRequest{
		Name:        "BE-2026-02",
		PaymentDate: &payment,
	}, nil)
	require.NoError(t, err)
	assert.False(t, study.IsActive)
}

func TestStudyServiceCreateFuturePaymentStaysActive(t *testing.T) {
	repo := &mockStudyRepo{names: map[string]string{}}
	svc := newStudyService(repo, nil)

	payment := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	study, err := svc.Create(context.Background(), CreateStudyRequest{
		Name:        "BE-2026-03",
		PaymentDate: &payment,
	}, nil)
	require.NoError(t, err)
	assert.True(t, study.IsActive)
}

func TestStudyServiceCreateDuplicateName(t *testing.T) {
	repo := &mockStudyRepo{names: map[string]string{"BE-2026-02": "other"}}
	svc := newStudyService(repo, nil)

	_, err := svc.Create(context.Background(), CreateStudyRequest{Name: "BE-2026-02"}, nil)
	require.Error(t, err)
}

func TestStudyServiceUpdatePaymentDateForcesClosure(t *testing.T) {
	repo := &mockStudyRepo{
		studies: map[string]models.Study{"s1": {ID: "s1", Name: "BE-2026-01", IsActive: true}},
		names:   map[string]string{"BE-2026-01": "s1"},
	}
	svc := newStudyService(repo, nil)

	payment := time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC)
	study, err := svc.Update(context.Background(), "s1", UpdateStudyRequest{
		PaymentDate:   &payment,
		Justification: "final payments issued to volunteers",
	}, &models.JWTClaims{UserID: "u1"})
	require.NoError(t, err)
	assert.False(t, study.IsActive)
	require.Len(t, repo.logs, 1)
	assert.Contains(t, repo.logs[0].Changes, "payment_date")
	assert.Contains(t, repo.logs[0].Changes, "is_active")
	assert.Equal(t, "false", repo.logs[0].Changes["is_active"].To)
}

func TestStudyServiceUpdateRequiresJustification(t *testing.T) {
	repo := &mockStudyRepo{studies: map[string]models.Study{"s1": {ID: "s1", Name: "BE-2026-01", IsActive: true}}}
	svc := newStudyService(repo, nil)

	active := false
	_, err := svc.Update(context.Background(), "s1", UpdateStudyRequest{IsActive: &active}, nil)
	require.Error(t, err)
	assert.Empty(t, repo.logs)
}

func TestStudyServiceDeleteBlockedByParticipations(t *testing.T) {
	repo := &mockStudyRepo{studies: map[string]models.Study{"s1": {ID: "s1", Name: "BE-2026-01"}}}
	guard := &mockParticipationGuard{referenced: map[string]bool{"s1": true}}
	svc := newStudyService(repo, guard)

	err := svc.Delete(context.Background(), "s1", "created by mistake", nil)
	require.Error(t, err)
	assert.Empty(t, repo.deleted)
}

func TestStudyServiceDelete(t *testing.T) {
	repo := &mockStudyRepo{studies: map[string]models.Study{"s1": {ID: "s1", Name: "BE-2026-01"}}}
	svc := newStudyService(repo, nil)

	require.NoError(t, svc.Delete(context.Background(), "s1", "created by mistake", nil))
	assert.Equal(t, []string{"s1"}, repo.deleted)
	require.Len(t, repo.logs, 1)
	assert.Equal(t, models.AuditActionDelete, repo.logs[0].Action)
}
