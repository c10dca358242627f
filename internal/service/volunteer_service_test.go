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

	"github.com/crc-dev/volreg-api/internal/eligibility"
	"github.com/crc-dev/volreg-api/internal/models"
	appErrors "github.com/crc-dev/volreg-api/pkg/errors"
)

type mockVolunteerRepo struct {
	volunteers map[string]models.Volunteer
	codes      []string
	curps      map[string]string
	logs       []models.AuditLog
	deleted    []string
	listTotal  int
}

func (m *mockVolunteerRepo) List(ctx context.Context, filter models.VolunteerFilter) ([]models.Volunteer, int, error) {
	out := make([]models.Volunteer, 0, len(m.volunteers))
	for _, v := range m.volunteers {
		out = append(out, v)
	}
	return out, m.listTotal, nil
}

func (m *mockVolunteerRepo) FindByID(ctx context.Context, id string) (*models.Volunteer, error) {
	if v, ok := m.volunteers[id]; ok {
		return &v, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockVolunteerRepo) ExistsByCURP(ctx context.Context, curp string, excludeID string) (bool, error) {
	if id, ok := m.curps[curp]; ok {
		if excludeID == "" || id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockVolunteerRepo) ExistsByCode(ctx context.Context, code string) (bool, error) {
	for _, c := range m.codes {
		if c == code {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockVolunteerRepo) ListCodesByYear(ctx context.Context, year int) ([]string, error) {
	return m.codes, nil
}

func (m *mockVolunteerRepo) Create(ctx context.Context, volunteer *models.Volunteer) error {
	return m.CreateWithParticipation(ctx, volunteer, nil)
}

func (m *mockVolunteerRepo) CreateWithParticipation(ctx context.Context, volunteer *models.Volunteer, participation *models.Participation) error {
	if m.volunteers == nil {
		m.volunteers = make(map[string]models.Volunteer)
	}
	if volunteer.ID == "" {
		volunteer.ID = "generated"
	}
	m.volunteers[volunteer.ID] = *volunteer
	m.codes = append(m.codes, volunteer.Code)
	return nil
}

func (m *mockVolunteerRepo) UpdateWithAudit(ctx context.Context, volunteer *models.Volunteer, log *models.AuditLog) error {
	m.volunteers[volunteer.ID] = *volunteer
	m.logs = append(m.logs, *log)
	return nil
}

func (m *mockVolunteerRepo) DeleteWithAudit(ctx context.Context, id string, log *models.AuditLog) error {
	delete(m.volunteers, id)
	m.deleted = append(m.deleted, id)
	m.logs = append(m.logs, *log)
	return nil
}

type mockParticipationReader struct {
	byVolunteer map[string][]models.ParticipationDetail
}

func (m *mockParticipationReader) ListByVolunteer(ctx context.Context, volunteerID string) ([]models.ParticipationDetail, error) {
	return m.byVolunteer[volunteerID], nil
}

type mockStudyReader struct {
	studies map[string]models.Study
}

func (m *mockStudyReader) FindByID(ctx context.Context, id string) (*models.Study, error) {
	if s, ok := m.studies[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func newVolunteerService(repo *mockVolunteerRepo, parts *mockParticipationReader) *VolunteerService {
	if parts == nil {
		parts = &mockParticipationReader{}
	}
	svc := NewVolunteerService(repo, parts, &mockStudyReader{}, eligibility.New(0, 0), validator.New(), zap.NewNop())
	svc.now = func() time.Time { return time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func strPtr(s string) *string { return &s }

func TestVolunteerServiceCreateGeneratesCode(t *testing.T) {
	repo := &mockVolunteerRepo{codes: []string{"FGG-2026-0337", "ABC-2026-0100"}}
	svc := newVolunteerService(repo, nil)

	detail, err := svc.Create(context.Background(), CreateVolunteerRequest{
		FirstName:        "Fernanda",
		LastNamePaternal: "Garcia",
		LastNameMaternal: strPtr("Gomez"),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "FGG-2026-0338", detail.Code)
	assert.Equal(t, models.StatusWaitingApproval, detail.Status)
}

func TestVolunteerServiceCreateRejectsBadCURP(t *testing.T) {
	repo := &mockVolunteerRepo{}
	svc := newVolunteerService(repo, nil)

	_, err := svc.Create(context.Background(), CreateVolunteerRequest{
		FirstName:        "Ana",
		LastNamePaternal: "Lopez",
		CURP:             strPtr("not-a-curp"),
	}, nil)
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, "curp", appErr.Field)
}

func TestVolunteerServiceCreateDuplicateCURP(t *testing.T) {
	repo := &mockVolunteerRepo{curps: map[string]string{"GAGF900101MDFRRN09": "other"}}
	svc := newVolunteerService(repo, nil)

	_, err := svc.Create(context.Background(), CreateVolunteerRequest{
		FirstName:        "Fernanda",
		LastNamePaternal: "Garcia",
		CURP:             strPtr("GAGF900101MDFRRN09"),
	}, nil)
	require.Error(t, err)
}

func TestVolunteerServiceUpdateRequiresJustification(t *testing.T) {
	repo := &mockVolunteerRepo{volunteers: map[string]models.Volunteer{"v1": {ID: "v1", Code: "AAA-2026-0001"}}}
	svc := newVolunteerService(repo, nil)

	_, err := svc.Update(context.Background(), "v1", UpdateVolunteerRequest{
		Phone:         strPtr("5550001111"),
		Justification: "   ",
	}, nil)
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrJustificationRequired.Code, appErr.Code)
	assert.Empty(t, repo.logs)
}

func TestVolunteerServiceUpdateWritesAuditEntry(t *testing.T) {
	repo := &mockVolunteerRepo{volunteers: map[string]models.Volunteer{
		"v1": {ID: "v1", Code: "AAA-2026-0001", FirstName: "Ana", LastNamePaternal: "Lopez", ManualStatus: models.StatusWaitingApproval},
	}}
	svc := newVolunteerService(repo, nil)

	_, err := svc.Update(context.Background(), "v1", UpdateVolunteerRequest{
		Phone:         strPtr("5550001111"),
		Justification: "volunteer reported a new phone number",
	}, &models.JWTClaims{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, repo.logs, 1)
	log := repo.logs[0]
	assert.Equal(t, models.AuditActionUpdate, log.Action)
	assert.Equal(t, "Volunteer", log.Entity)
	assert.Equal(t, "AAA-2026-0001", log.RecordID)
	assert.Equal(t, "u1", *log.UserID)
	require.Contains(t, log.Changes, "phone")
	assert.Equal(t, "5550001111", log.Changes["phone"].To)
}

func TestVolunteerServiceUpdateNoOpSkipsAudit(t *testing.T) {
	repo := &mockVolunteerRepo{volunteers: map[string]models.Volunteer{
		"v1": {ID: "v1", Code: "AAA-2026-0001", FirstName: "Ana", LastNamePaternal: "Lopez", ManualStatus: models.StatusWaitingApproval},
	}}
	svc := newVolunteerService(repo, nil)

	_, err := svc.Update(context.Background(), "v1", UpdateVolunteerRequest{
		FirstName:     strPtr("Ana"),
		Justification: "no actual change",
	}, nil)
	require.NoError(t, err)
	assert.Empty(t, repo.logs)
}

func TestVolunteerServiceGetDerivedStatus(t *testing.T) {
	repo := &mockVolunteerRepo{volunteers: map[string]models.Volunteer{
		"v1": {ID: "v1", Code: "AAA-2026-0001", FirstName: "Ana", LastNamePaternal: "Lopez", ManualStatus: models.StatusEligible},
	}}
	admission := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	parts := &mockParticipationReader{byVolunteer: map[string][]models.ParticipationDetail{
		"v1": {{
			Participation: models.Participation{ID: "p1", VolunteerID: "v1", StudyID: "s1", AdmissionDate: &admission, IsActive: true},
			StudyName:     "BE-2026-01",
			StudyIsActive: true,
		}},
	}}
	svc := newVolunteerService(repo, parts)

	detail, err := svc.Get(context.Background(), "v1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusInStudy, detail.Status)
	require.NotNil(t, detail.ActiveStudy)
	assert.Equal(t, "BE-2026-01", *detail.ActiveStudy)
}

func TestVolunteerServiceDelete(t *testing.T) {
	repo := &mockVolunteerRepo{volunteers: map[string]models.Volunteer{"v1": {ID: "v1", Code: "AAA-2026-0001"}}}
	svc := newVolunteerService(repo, nil)

	require.Error(t, svc.Delete(context.Background(), "v1", "", nil))

	require.NoError(t, svc.Delete(context.Background(), "v1", "duplicate record", nil))
	require.Len(t, repo.logs, 1)
	assert.Equal(t, models.AuditActionDelete, repo.logs[0].Action)
	assert.Equal(t, []string{"v1"}, repo.deleted)
}
