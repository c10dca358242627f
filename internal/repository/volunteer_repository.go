package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/crc-dev/volreg-api/internal/models"
)

// VolunteerRepository manages persistence for volunteer records.
type VolunteerRepository struct {
	db *sqlx.DB
}

// NewVolunteerRepository constructs a VolunteerRepository.
func NewVolunteerRepository(db *sqlx.DB) *VolunteerRepository {
	return &VolunteerRepository{db: db}
}

const volunteerColumns = "v.id, v.code, v.first_name, v.middle_name, v.last_name_paternal, v.last_name_maternal, v.birth_date, v.sex, v.curp, v.phone, v.manual_status, v.status_reason, v.created_at, v.updated_at"

// List returns volunteers matching the provided filters.
func (r *VolunteerRepository) List(ctx context.Context, filter models.VolunteerFilter) ([]models.Volunteer, int, error) {
	base := "FROM volunteers v"
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.Sex != "" {
		conditions = append(conditions, fmt.Sprintf("v.sex = $%d", len(args)+1))
		args = append(args, filter.Sex)
	}
	if filter.Search != "" {
		n := len(args) + 1
		conditions = append(conditions, fmt.Sprintf(
			"(LOWER(v.code) LIKE $%d OR LOWER(v.first_name) LIKE $%d OR LOWER(v.last_name_paternal) LIKE $%d OR LOWER(COALESCE(v.last_name_maternal, '')) LIKE $%d OR LOWER(COALESCE(v.curp, '')) LIKE $%d)", n, n, n, n, n))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"code":       "v.code",
		"first_name": "v.first_name",
		"created_at": "v.created_at",
	}
	if sortBy == "" {
		sortBy = "created_at"
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "v.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", volunteerColumns, base, column, order, size, offset)

	var volunteers []models.Volunteer
	if err := r.db.SelectContext(ctx, &volunteers, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list volunteers: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count volunteers: %w", err)
	}
	return volunteers, total, nil
}

// ListAll returns every volunteer, for derived-status aggregation.
func (r *VolunteerRepository) ListAll(ctx context.Context) ([]models.Volunteer, error) {
	query := fmt.Sprintf("SELECT %s FROM volunteers v", volunteerColumns)
	var volunteers []models.Volunteer
	if err := r.db.SelectContext(ctx, &volunteers, query); err != nil {
		return nil, fmt.Errorf("list all volunteers: %w", err)
	}
	return volunteers, nil
}

// FindByID fetches a volunteer by ID.
func (r *VolunteerRepository) FindByID(ctx context.Context, id string) (*models.Volunteer, error) {
	query := fmt.Sprintf("SELECT %s FROM volunteers v WHERE v.id = $1", volunteerColumns)
	var volunteer models.Volunteer
	if err := r.db.GetContext(ctx, &volunteer, query, id); err != nil {
		return nil, err
	}
	return &volunteer, nil
}

// FindByCURP fetches a volunteer by national ID.
func (r *VolunteerRepository) FindByCURP(ctx context.Context, curp string) (*models.Volunteer, error) {
	query := fmt.Sprintf("SELECT %s FROM volunteers v WHERE v.curp = $1", volunteerColumns)
	var volunteer models.Volunteer
	if err := r.db.GetContext(ctx, &volunteer, query, curp); err != nil {
		return nil, err
	}
	return &volunteer, nil
}

// FindByCode fetches a volunteer by registry code.
func (r *VolunteerRepository) FindByCode(ctx context.Context, code string) (*models.Volunteer, error) {
	query := fmt.Sprintf("SELECT %s FROM volunteers v WHERE v.code = $1", volunteerColumns)
	var volunteer models.Volunteer
	if err := r.db.GetContext(ctx, &volunteer, query, code); err != nil {
		return nil, err
	}
	return &volunteer, nil
}

// ExistsByCURP checks if a volunteer with the national ID exists,
// optionally excluding an ID.
func (r *VolunteerRepository) ExistsByCURP(ctx context.Context, curp string, excludeID string) (bool, error) {
	query := "SELECT 1 FROM volunteers WHERE curp = $1"
	args := []interface{}{curp}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check curp: %w", err)
	}
	return true, nil
}

// ExistsByCode checks if a volunteer code is already taken.
func (r *VolunteerRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var exists int
	if err := r.db.GetContext(ctx, &exists, "SELECT 1 FROM volunteers WHERE code = $1 LIMIT 1", code); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check code: %w", err)
	}
	return true, nil
}

// ListCodesByYear returns every code minted in the given year, for the
// max-scan sequence computation.
func (r *VolunteerRepository) ListCodesByYear(ctx context.Context, year int) ([]string, error) {
	var codes []string
	marker := fmt.Sprintf("%%-%d-%%", year)
	if err := r.db.SelectContext(ctx, &codes, "SELECT code FROM volunteers WHERE code LIKE $1", marker); err != nil {
		return nil, fmt.Errorf("list codes: %w", err)
	}
	return codes, nil
}

// Create inserts a new volunteer record.
func (r *VolunteerRepository) Create(ctx context.Context, volunteer *models.Volunteer) error {
	prepareVolunteer(volunteer)
	const query = `INSERT INTO volunteers (id, code, first_name, middle_name, last_name_paternal, last_name_maternal, birth_date, sex, curp, phone, manual_status, status_reason, created_at, updated_at)
        VALUES (:id, :code, :first_name, :middle_name, :last_name_paternal, :last_name_maternal, :birth_date, :sex, :curp, :phone, :manual_status, :status_reason, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, volunteer); err != nil {
		return fmt.Errorf("create volunteer: %w", err)
	}
	return nil
}

// CreateWithParticipation inserts a volunteer together with its initial
// participation in one transaction.
func (r *VolunteerRepository) CreateWithParticipation(ctx context.Context, volunteer *models.Volunteer, participation *models.Participation) (err error) {
	prepareVolunteer(volunteer)
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin volunteer transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `INSERT INTO volunteers (id, code, first_name, middle_name, last_name_paternal, last_name_maternal, birth_date, sex, curp, phone, manual_status, status_reason, created_at, updated_at)
        VALUES (:id, :code, :first_name, :middle_name, :last_name_paternal, :last_name_maternal, :birth_date, :sex, :curp, :phone, :manual_status, :status_reason, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, query, volunteer); err != nil {
		return fmt.Errorf("create volunteer: %w", err)
	}

	if participation != nil {
		participation.VolunteerID = volunteer.ID
		if err = createParticipationTx(ctx, tx, participation); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit volunteer: %w", err)
	}
	return nil
}

// UpdateWithAudit saves the volunteer and, when a log entry is supplied,
// writes it in the same transaction. A failed log write rolls back the
// save so no change escapes the audit trail.
func (r *VolunteerRepository) UpdateWithAudit(ctx context.Context, volunteer *models.Volunteer, log *models.AuditLog) (err error) {
	volunteer.UpdatedAt = time.Now().UTC()
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin volunteer update: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `UPDATE volunteers SET first_name = :first_name, middle_name = :middle_name, last_name_paternal = :last_name_paternal, last_name_maternal = :last_name_maternal, birth_date = :birth_date, sex = :sex, curp = :curp, phone = :phone, manual_status = :manual_status, status_reason = :status_reason, updated_at = :updated_at WHERE id = :id`
	if _, err = tx.NamedExecContext(ctx, query, volunteer); err != nil {
		return fmt.Errorf("update volunteer: %w", err)
	}

	if log != nil {
		if err = CreateAuditLogTx(ctx, tx, log); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit volunteer update: %w", err)
	}
	return nil
}

// DeleteWithAudit removes the volunteer (participations cascade) and
// records the deletion in the same transaction.
func (r *VolunteerRepository) DeleteWithAudit(ctx context.Context, id string, log *models.AuditLog) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin volunteer delete: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, "DELETE FROM volunteers WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete volunteer: %w", err)
	}

	if log != nil {
		if err = CreateAuditLogTx(ctx, tx, log); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit volunteer delete: %w", err)
	}
	return nil
}

func prepareVolunteer(volunteer *models.Volunteer) {
	if volunteer.ID == "" {
		volunteer.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if volunteer.CreatedAt.IsZero() {
		volunteer.CreatedAt = now
	}
	volunteer.UpdatedAt = now
	if volunteer.ManualStatus == "" {
		volunteer.ManualStatus = models.StatusWaitingApproval
	}
}
