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

// StudyRepository manages persistence for studies.
type StudyRepository struct {
	db *sqlx.DB
}

// NewStudyRepository constructs a StudyRepository.
func NewStudyRepository(db *sqlx.DB) *StudyRepository {
	return &StudyRepository{db: db}
}

const studyColumns = "s.id, s.name, s.description, s.admission_date, s.payment_date, s.is_active, s.created_at, s.updated_at"

// List returns studies matching the provided filters.
func (r *StudyRepository) List(ctx context.Context, filter models.StudyFilter) ([]models.Study, int, error) {
	base := "FROM studies s"
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("s.is_active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(s.name) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"name":       "s.name",
		"created_at": "s.created_at",
	}
	if sortBy == "" {
		sortBy = "created_at"
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "s.created_at"
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", studyColumns, base, column, order, size, offset)

	var studies []models.Study
	if err := r.db.SelectContext(ctx, &studies, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list studies: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count studies: %w", err)
	}
	return studies, total, nil
}

// FindByID fetches a study by ID.
func (r *StudyRepository) FindByID(ctx context.Context, id string) (*models.Study, error) {
	query := fmt.Sprintf("SELECT %s FROM studies s WHERE s.id = $1", studyColumns)
	var study models.Study
	if err := r.db.GetContext(ctx, &study, query, id); err != nil {
		return nil, err
	}
	return &study, nil
}

// FindByName fetches a study by its unique name.
func (r *StudyRepository) FindByName(ctx context.Context, name string) (*models.Study, error) {
	query := fmt.Sprintf("SELECT %s FROM studies s WHERE s.name = $1", studyColumns)
	var study models.Study
	if err := r.db.GetContext(ctx, &study, query, name); err != nil {
		return nil, err
	}
	return &study, nil
}

// ExistsByName checks name uniqueness, optionally excluding an ID.
func (r *StudyRepository) ExistsByName(ctx context.Context, name string, excludeID string) (bool, error) {
	query := "SELECT 1 FROM studies WHERE name = $1"
	args := []interface{}{name}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check study name: %w", err)
	}
	return true, nil
}

// Create inserts a new study.
func (r *StudyRepository) Create(ctx context.Context, study *models.Study) error {
	if study.ID == "" {
		study.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if study.CreatedAt.IsZero() {
		study.CreatedAt = now
	}
	study.UpdatedAt = now
	const query = `INSERT INTO studies (id, name, description, admission_date, payment_date, is_active, created_at, updated_at)
        VALUES (:id, :name, :description, :admission_date, :payment_date, :is_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, study); err != nil {
		return fmt.Errorf("create study: %w", err)
	}
	return nil
}

// UpdateWithAudit saves the study and its audit entry in one transaction.
func (r *StudyRepository) UpdateWithAudit(ctx context.Context, study *models.Study, log *models.AuditLog) (err error) {
	study.UpdatedAt = time.Now().UTC()
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin study update: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `UPDATE studies SET name = :name, description = :description, admission_date = :admission_date, payment_date = :payment_date, is_active = :is_active, updated_at = :updated_at WHERE id = :id`
	if _, err = tx.NamedExecContext(ctx, query, study); err != nil {
		return fmt.Errorf("update study: %w", err)
	}
	if log != nil {
		if err = CreateAuditLogTx(ctx, tx, log); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit study update: %w", err)
	}
	return nil
}

// DeleteWithAudit removes a study and logs the deletion. The RESTRICT
// foreign key from participations makes the delete fail while
// participants reference the study; callers should check first and
// surface a conflict.
func (r *StudyRepository) DeleteWithAudit(ctx context.Context, id string, log *models.AuditLog) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin study delete: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, "DELETE FROM studies WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete study: %w", err)
	}
	if log != nil {
		if err = CreateAuditLogTx(ctx, tx, log); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit study delete: %w", err)
	}
	return nil
}
