package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crc-dev/volreg-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestVolunteerRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewVolunteerRepository(db)

	mock.ExpectExec("INSERT INTO volunteers").
		WillReturnResult(sqlmock.NewResult(1, 1))

	volunteer := &models.Volunteer{Code: "FGG-2026-0001", FirstName: "Fernanda", LastNamePaternal: "Gómez"}
	err := repo.Create(context.Background(), volunteer)
	require.NoError(t, err)
	assert.NotEmpty(t, volunteer.ID)
	assert.Equal(t, models.StatusWaitingApproval, volunteer.ManualStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVolunteerRepositoryListCodesByYear(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewVolunteerRepository(db)

	rows := sqlmock.NewRows([]string{"code"}).AddRow("ABC-2026-0001").AddRow("XYZ-2026-0042")
	mock.ExpectQuery("SELECT code FROM volunteers WHERE code LIKE").
		WithArgs("%-2026-%").
		WillReturnRows(rows)

	codes, err := repo.ListCodesByYear(context.Background(), 2026)
	require.NoError(t, err)
	assert.Equal(t, []string{"ABC-2026-0001", "XYZ-2026-0042"}, codes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVolunteerRepositoryUpdateWithAuditCommitsBoth(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewVolunteerRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE volunteers SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO audit_logs").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	volunteer := &models.Volunteer{ID: "v1", FirstName: "Ana", LastNamePaternal: "Beltrán", ManualStatus: models.StatusEligible}
	log := &models.AuditLog{
		Action:        models.AuditActionUpdate,
		Entity:        "Volunteer",
		RecordID:      "ABX-2026-0001",
		Changes:       models.Changes{"phone": {From: "", To: "555"}},
		Justification: "phone provided at screening",
	}
	err := repo.UpdateWithAudit(context.Background(), volunteer, log)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVolunteerRepositoryUpdateWithAuditRollsBackOnLogFailure(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewVolunteerRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE volunteers SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO audit_logs").WillReturnError(assert.AnError)
	mock.ExpectRollback()

	volunteer := &models.Volunteer{ID: "v1", FirstName: "Ana", LastNamePaternal: "Beltrán"}
	log := &models.AuditLog{Action: models.AuditActionUpdate, Entity: "Volunteer", RecordID: "ABX-2026-0001", Justification: "x"}
	err := repo.UpdateWithAudit(context.Background(), volunteer, log)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVolunteerRepositoryExistsByCURP(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewVolunteerRepository(db)

	mock.ExpectQuery("SELECT 1 FROM volunteers WHERE curp").
		WithArgs("GOGF000101MDFMRR09").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.ExistsByCURP(context.Background(), "GOGF000101MDFMRR09", "")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVolunteerRepositoryDeleteWithAudit(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewVolunteerRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM volunteers WHERE id").
		WithArgs("v1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO audit_logs").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	log := &models.AuditLog{Action: models.AuditActionDelete, Entity: "Volunteer", RecordID: "FGG-2026-0001", Justification: "duplicate record", CreatedAt: time.Now()}
	err := repo.DeleteWithAudit(context.Background(), "v1", log)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
