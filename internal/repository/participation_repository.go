package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/crc-dev/volreg-api/internal/models"
)

// ParticipationRepository manages enrollment episodes.
type ParticipationRepository struct {
	db *sqlx.DB
}

// NewParticipationRepository constructs a ParticipationRepository.
func NewParticipationRepository(db *sqlx.DB) *ParticipationRepository {
	return &ParticipationRepository{db: db}
}

const participationDetailColumns = `p.id, p.volunteer_id, p.study_id, p.admission_date, p.payment_date, p.is_active, p.created_at,
        s.name AS study_name, s.admission_date AS study_admission_date, s.payment_date AS study_payment_date, s.is_active AS study_is_active`

// ListByVolunteer returns the volunteer's participations with study
// context, newest first. This is the status engine's input.
func (r *ParticipationRepository) ListByVolunteer(ctx context.Context, volunteerID string) ([]models.ParticipationDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM participations p JOIN studies s ON s.id = p.study_id
        WHERE p.volunteer_id = $1 ORDER BY p.created_at DESC`, participationDetailColumns)
	var parts []models.ParticipationDetail
	if err := r.db.SelectContext(ctx, &parts, query, volunteerID); err != nil {
		return nil, fmt.Errorf("list participations: %w", err)
	}
	return parts, nil
}

// ListAll returns every participation with study context, grouped per
// volunteer by the caller. Used for registry-wide status aggregation.
func (r *ParticipationRepository) ListAll(ctx context.Context) ([]models.ParticipationDetail, error) {
	query := fmt.Sprintf("SELECT %s FROM participations p JOIN studies s ON s.id = p.study_id", participationDetailColumns)
	var parts []models.ParticipationDetail
	if err := r.db.SelectContext(ctx, &parts, query); err != nil {
		return nil, fmt.Errorf("list all participations: %w", err)
	}
	return parts, nil
}

// FindByID fetches one participation with study context.
func (r *ParticipationRepository) FindByID(ctx context.Context, id string) (*models.ParticipationDetail, error) {
	query := fmt.Sprintf("SELECT %s FROM participations p JOIN studies s ON s.id = p.study_id WHERE p.id = $1", participationDetailColumns)
	var detail models.ParticipationDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// FindActiveByVolunteer returns the volunteer's active participation, or
// nil when none exists. The partial unique index guarantees at most one.
func (r *ParticipationRepository) FindActiveByVolunteer(ctx context.Context, volunteerID string) (*models.ParticipationDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM participations p JOIN studies s ON s.id = p.study_id
        WHERE p.volunteer_id = $1 AND p.is_active LIMIT 1`, participationDetailColumns)
	var detail models.ParticipationDetail
	if err := r.db.GetContext(ctx, &detail, query, volunteerID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find active participation: %w", err)
	}
	return &detail, nil
}

// ExistsByStudy reports whether any participation references the study.
// Studies with participants are protected from deletion.
func (r *ParticipationRepository) ExistsByStudy(ctx context.Context, studyID string) (bool, error) {
	var exists int
	if err := r.db.GetContext(ctx, &exists, "SELECT 1 FROM participations WHERE study_id = $1 LIMIT 1", studyID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check study participations: %w", err)
	}
	return true, nil
}

// Create inserts a participation.
func (r *ParticipationRepository) Create(ctx context.Context, participation *models.Participation) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin participation create: %w", err)
	}
	if err := createParticipationTx(ctx, tx, participation); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit participation create: %w", err)
	}
	return nil
}

// CreateWithAudit inserts the participation and its audit entry in one
// transaction.
func (r *ParticipationRepository) CreateWithAudit(ctx context.Context, participation *models.Participation, log *models.AuditLog) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin participation create: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = createParticipationTx(ctx, tx, participation); err != nil {
		return err
	}
	if log != nil {
		if err = CreateAuditLogTx(ctx, tx, log); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit participation create: %w", err)
	}
	return nil
}

// UpdateWithAudit saves participation changes (close-out, payment date)
// together with the audit entry.
func (r *ParticipationRepository) UpdateWithAudit(ctx context.Context, participation *models.Participation, log *models.AuditLog) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin participation update: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `UPDATE participations SET admission_date = :admission_date, payment_date = :payment_date, is_active = :is_active WHERE id = :id`
	if _, err = tx.NamedExecContext(ctx, query, participation); err != nil {
		return fmt.Errorf("update participation: %w", err)
	}
	if log != nil {
		if err = CreateAuditLogTx(ctx, tx, log); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit participation update: %w", err)
	}
	return nil
}

func createParticipationTx(ctx context.Context, tx *sqlx.Tx, participation *models.Participation) error {
	if participation.ID == "" {
		participation.ID = uuid.NewString()
	}
	if participation.CreatedAt.IsZero() {
		participation.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO participations (id, volunteer_id, study_id, admission_date, payment_date, is_active, created_at)
        VALUES (:id, :volunteer_id, :study_id, :admission_date, :payment_date, :is_active, :created_at)`
	if _, err := tx.NamedExecContext(ctx, query, participation); err != nil {
		return fmt.Errorf("create participation: %w", err)
	}
	return nil
}
