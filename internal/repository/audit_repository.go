package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/crc-dev/volreg-api/internal/models"
)

// AuditLogRepository persists the immutable change log. It deliberately
// exposes no update or delete operations: rows are written once, inside
// the same transaction as the entity change they describe, and only read
// afterwards.
type AuditLogRepository struct {
	db *sqlx.DB
}

// NewAuditLogRepository constructs an AuditLogRepository.
func NewAuditLogRepository(db *sqlx.DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

const auditInsertQuery = `INSERT INTO audit_logs (id, user_id, action, entity, record_id, changes, justification, created_at)
        VALUES (:id, :user_id, :action, :entity, :record_id, :changes, :justification, :created_at)`

// Create stores an audit entry outside a transaction (creation events
// whose entity insert already succeeded in the same statement batch).
func (r *AuditLogRepository) Create(ctx context.Context, log *models.AuditLog) error {
	prepareAuditLog(log)
	if _, err := r.db.NamedExecContext(ctx, auditInsertQuery, log); err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}

// CreateAuditLogTx stores an audit entry within the caller's transaction so the
// entity save and the log write commit or roll back as one unit.
func CreateAuditLogTx(ctx context.Context, tx *sqlx.Tx, log *models.AuditLog) error {
	prepareAuditLog(log)
	if _, err := tx.NamedExecContext(ctx, auditInsertQuery, log); err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}

func prepareAuditLog(log *models.AuditLog) {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
}

// List returns audit entries matching the filter, newest first by
// default.
func (r *AuditLogRepository) List(ctx context.Context, filter models.AuditLogFilter) ([]models.AuditLog, int, error) {
	base := "FROM audit_logs a LEFT JOIN users u ON u.id = a.user_id"
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.Entity != "" {
		conditions = append(conditions, fmt.Sprintf("a.entity = $%d", len(args)+1))
		args = append(args, filter.Entity)
	}
	if filter.Action != "" {
		conditions = append(conditions, fmt.Sprintf("a.action = $%d", len(args)+1))
		args = append(args, filter.Action)
	}
	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("a.user_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}
	if filter.RecordID != "" {
		conditions = append(conditions, fmt.Sprintf("a.record_id ILIKE $%d", len(args)+1))
		args = append(args, "%"+filter.RecordID+"%")
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("a.created_at >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("a.created_at < $%d", len(args)+1))
		args = append(args, *filter.To)
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

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

	query := fmt.Sprintf(`SELECT a.id, a.user_id, u.email AS user_email, a.action, a.entity, a.record_id, a.changes, a.justification, a.created_at
        %s ORDER BY a.created_at %s LIMIT %d OFFSET %d`, base, order, size, offset)

	var logs []models.AuditLog
	if err := r.db.SelectContext(ctx, &logs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list audit logs: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count audit logs: %w", err)
	}
	return logs, total, nil
}

// FindByID fetches one audit entry.
func (r *AuditLogRepository) FindByID(ctx context.Context, id string) (*models.AuditLog, error) {
	const query = `SELECT a.id, a.user_id, u.email AS user_email, a.action, a.entity, a.record_id, a.changes, a.justification, a.created_at
        FROM audit_logs a LEFT JOIN users u ON u.id = a.user_id WHERE a.id = $1`
	var log models.AuditLog
	if err := r.db.GetContext(ctx, &log, query, id); err != nil {
		return nil, err
	}
	return &log, nil
}
