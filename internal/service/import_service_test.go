package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crc-dev/volreg-api/internal/models"
)

type mockImportVolunteerRepo struct {
	byCURP map[string]models.Volunteer
	byCode map[string]models.Volunteer
	codes  []string
	saved  []models.Volunteer
}

func (m *mockImportVolunteerRepo) FindByCURP(ctx context.Context, curp string) (*models.Volunteer, error) {
	if v, ok := m.byCURP[curp]; ok {
		return &v, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockImportVolunteerRepo) FindByCode(ctx context.Context, code string) (*models.Volunteer, error) {
	if v, ok := m.byCode[code]; ok {
		return &v, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockImportVolunteerRepo) ListCodesByYear(ctx context.Context, year int) ([]string, error) {
	return m.codes, nil
}

func (m *mockImportVolunteerRepo) Create(ctx context.Context, volunteer *models.Volunteer) error {
	if volunteer.ID == "" {
		volunteer.ID = volunteer.Code
	}
	m.saved = append(m.saved, *volunteer)
	return nil
}

type mockImportStudyRepo struct {
	byName  map[string]models.Study
	created []models.Study
}

func (m *mockImportStudyRepo) FindByName(ctx context.Context, name string) (*models.Study, error) {
	if s, ok := m.byName[name]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockImportStudyRepo) Create(ctx context.Context, study *models.Study) error {
	if study.ID == "" {
		study.ID = study.Name
	}
	if m.byName == nil {
		m.byName = make(map[string]models.Study)
	}
	m.byName[study.Name] = *study
	m.created = append(m.created, *study)
	return nil
}

type mockImportParticipationRepo struct {
	byVolunteer map[string][]models.ParticipationDetail
	created     []models.Participation
}

func (m *mockImportParticipationRepo) ListByVolunteer(ctx context.Context, volunteerID string) ([]models.ParticipationDetail, error) {
	return m.byVolunteer[volunteerID], nil
}

func (m *mockImportParticipationRepo) Create(ctx context.Context, participation *models.Participation) error {
	if participation.ID == "" {
		participation.ID = "generated"
	}
	m.created = append(m.created, *participation)
	return nil
}

func newImportService(v *mockImportVolunteerRepo, st *mockImportStudyRepo, p *mockImportParticipationRepo) *ImportService {
	svc := NewImportService(v, st, p, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestImportServiceCreatesVolunteersAndStudies(t *testing.T) {
	volunteers := &mockImportVolunteerRepo{}
	studies := &mockImportStudyRepo{}
	parts := &mockImportParticipationRepo{}
	svc := newImportService(volunteers, studies, parts)

	result, err := svc.Import(context.Background(), []models.ImportRow{
		{Line: 2, FirstName: "Fernanda", Paternal: "Garcia", Maternal: "Gomez", Studies: "BE-2026-01", PaymentDate: "2026-01-15"},
		{Line: 3, FirstName: "Juan", Paternal: "Perez"},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Created)
	assert.Empty(t, result.Errors)

	require.Len(t, volunteers.saved, 2)
	assert.Equal(t, "FGG-2026-0001", volunteers.saved[0].Code)
	require.Len(t, studies.created, 1)
	assert.Equal(t, "BE-2026-01", studies.created[0].Name)
	require.Len(t, parts.created, 1)
	// A payment date marks the enrollment as history.
	assert.False(t, parts.created[0].IsActive)
	require.NotNil(t, parts.created[0].PaymentDate)
}

func TestImportServiceGeneratedCodesDoNotCollide(t *testing.T) {
	volunteers := &mockImportVolunteerRepo{codes: []string{"FGG-2026-0003"}}
	svc := newImportService(volunteers, &mockImportStudyRepo{}, &mockImportParticipationRepo{})

	result, err := svc.Import(context.Background(), []models.ImportRow{
		{Line: 2, FirstName: "Fernanda", Paternal: "Garcia", Maternal: "Gomez"},
		{Line: 3, FirstName: "Federico", Paternal: "Guzman", Maternal: "Guerra"},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Created)
	require.Len(t, volunteers.saved, 2)
	assert.Equal(t, "FGG-2026-0004", volunteers.saved[0].Code)
	assert.Equal(t, "FGG-2026-0005", volunteers.saved[1].Code)
}

func TestImportServiceRowErrorsDoNotStopTheRun(t *testing.T) {
	volunteers := &mockImportVolunteerRepo{}
	svc := newImportService(volunteers, &mockImportStudyRepo{}, &mockImportParticipationRepo{})

	result, err := svc.Import(context.Background(), []models.ImportRow{
		{Line: 2, FirstName: "", Paternal: "Garcia"},
		{Line: 3, FirstName: "Ana", Paternal: "Lopez", BirthDate: "not-a-date"},
		{Line: 4, FirstName: "Juan", Paternal: "Perez", CURP: "bogus"},
		{Line: 5, FirstName: "Luis", Paternal: "Diaz"},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
	require.Len(t, result.Errors, 3)
	assert.Equal(t, 2, result.Errors[0].Line)
	assert.Equal(t, 3, result.Errors[1].Line)
	assert.Equal(t, 4, result.Errors[2].Line)
}

func TestImportServiceUpdatesExistingVolunteer(t *testing.T) {
	volunteers := &mockImportVolunteerRepo{byCURP: map[string]models.Volunteer{
		"GAGF900101MDFRRN09": {ID: "v1", Code: "FGG-2025-0001", FirstName: "Fernanda", LastNamePaternal: "Garcia"},
	}}
	studies := &mockImportStudyRepo{byName: map[string]models.Study{
		"BE-2026-01": {ID: "s1", Name: "BE-2026-01", IsActive: true},
	}}
	parts := &mockImportParticipationRepo{byVolunteer: map[string][]models.ParticipationDetail{
		"v1": {{Participation: models.Participation{ID: "p1", VolunteerID: "v1", StudyID: "s0", IsActive: false}}},
	}}
	svc := newImportService(volunteers, studies, parts)

	result, err := svc.Import(context.Background(), []models.ImportRow{
		{Line: 2, FirstName: "Fernanda", Paternal: "Garcia", CURP: "GAGF900101MDFRRN09", Studies: "BE-2026-01"},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Created)
	assert.Equal(t, 1, result.Updated)
	require.Len(t, parts.created, 1)
	assert.Equal(t, "s1", parts.created[0].StudyID)
	assert.True(t, parts.created[0].IsActive)
}

func TestImportServiceSkipsAlreadyLinkedStudy(t *testing.T) {
	volunteers := &mockImportVolunteerRepo{byCURP: map[string]models.Volunteer{
		"GAGF900101MDFRRN09": {ID: "v1", Code: "FGG-2025-0001"},
	}}
	studies := &mockImportStudyRepo{byName: map[string]models.Study{
		"BE-2026-01": {ID: "s1", Name: "BE-2026-01", IsActive: true},
	}}
	parts := &mockImportParticipationRepo{byVolunteer: map[string][]models.ParticipationDetail{
		"v1": {{Participation: models.Participation{ID: "p1", VolunteerID: "v1", StudyID: "s1", IsActive: true}}},
	}}
	svc := newImportService(volunteers, studies, parts)

	result, err := svc.Import(context.Background(), []models.ImportRow{
		{Line: 2, FirstName: "Fernanda", Paternal: "Garcia", CURP: "GAGF900101MDFRRN09", Studies: "BE-2026-01"},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Skipped)
	assert.Empty(t, parts.created)
}
