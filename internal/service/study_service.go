package service

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/crc-dev/volreg-api/internal/audit"
	"github.com/crc-dev/volreg-api/internal/models"
	appErrors "github.com/crc-dev/volreg-api/pkg/errors"
)

type studyRepository interface {
	List(ctx context.Context, filter models.StudyFilter) ([]models.Study, int, error)
	FindByID(ctx context.Context, id string) (*models.Study, error)
	ExistsByName(ctx context.Context, name string, excludeID string) (bool, error)
	Create(ctx context.Context, study *models.Study) error
	UpdateWithAudit(ctx context.Context, study *models.Study, log *models.AuditLog) error
	DeleteWithAudit(ctx context.Context, id string, log *models.AuditLog) error
}

type participationGuard interface {
	ExistsByStudy(ctx context.Context, studyID string) (bool, error)
}

// CreateStudyRequest holds payload for registering a study.
type CreateStudyRequest struct {
	Name          string     `json:"name" validate:"required"`
	Description   *string    `json:"description"`
	AdmissionDate *time.Time `json:"admission_date"`
	PaymentDate   *time.Time `json:"payment_date"`
	IsActive      *bool      `json:"is_active"`
}

// UpdateStudyRequest is a justified partial update for a study.
type UpdateStudyRequest struct {
	Name          *string    `json:"name"`
	Description   *string    `json:"description"`
	AdmissionDate *time.Time `json:"admission_date"`
	PaymentDate   *time.Time `json:"payment_date"`
	IsActive      *bool      `json:"is_active"`
	Justification string     `json:"justification"`
}

// StudyService handles study use-cases.
type StudyService struct {
	repo           studyRepository
	participations participationGuard
	validator      *validator.Validate
	logger         *zap.Logger
	now            func() time.Time
}

// NewStudyService constructs the study service.
func NewStudyService(repo studyRepository, participations participationGuard, validate *validator.Validate, logger *zap.Logger) *StudyService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudyService{
		repo:           repo,
		participations: participations,
		validator:      validate,
		logger:         logger,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// List returns studies matching the filter.
func (s *StudyService) List(ctx context.Context, filter models.StudyFilter) ([]models.Study, *models.Pagination, error) {
	studies, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list studies")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return studies, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one study.
func (s *StudyService) Get(ctx context.Context, id string) (*models.Study, error) {
	study, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "study not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load study")
	}
	return study, nil
}

// Create registers a study. A past payment date forces the study
// inactive regardless of the requested flag.
func (s *StudyService) Create(ctx context.Context, req CreateStudyRequest, actor *models.JWTClaims) (*models.Study, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid study payload")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, appErrors.FieldError("name", "name cannot be empty")
	}
	exists, err := s.repo.ExistsByName(ctx, name, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate name")
	}
	if exists {
		return nil, appErrors.FieldError("name", "study name already registered")
	}

	study := &models.Study{
		Name:          name,
		AdmissionDate: req.AdmissionDate,
		PaymentDate:   req.PaymentDate,
		IsActive:      true,
	}
	if req.Description != nil {
		study.Description = *req.Description
	}
	if req.IsActive != nil {
		study.IsActive = *req.IsActive
	}
	s.enforceClosure(study)

	if err := s.repo.Create(ctx, study); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create study")
	}

	s.logger.Info("study created",
		zap.String("name", study.Name),
		zap.Bool("active", study.IsActive),
		zap.String("actor", actorID(actor)),
	)
	return study, nil
}

// Update applies a justified partial update. The closure rule runs
// after the fields are applied, so setting a past payment date closes
// the study even when is_active was not part of the request.
func (s *StudyService) Update(ctx context.Context, id string, req UpdateStudyRequest, actor *models.JWTClaims) (*models.Study, error) {
	if err := audit.RequireJustification(req.Justification); err != nil {
		return nil, err
	}

	study, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "study not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load study")
	}

	old := map[string]interface{}{}
	proposed := map[string]interface{}{}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, appErrors.FieldError("name", "name cannot be empty")
		}
		if name != study.Name {
			exists, err := s.repo.ExistsByName(ctx, name, id)
			if err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate name")
			}
			if exists {
				return nil, appErrors.FieldError("name", "study name already registered")
			}
		}
		old["name"] = study.Name
		proposed["name"] = name
		study.Name = name
	}
	if req.Description != nil {
		old["description"] = study.Description
		proposed["description"] = req.Description
		study.Description = *req.Description
	}
	if req.AdmissionDate != nil {
		old["admission_date"] = study.AdmissionDate
		proposed["admission_date"] = req.AdmissionDate
		study.AdmissionDate = req.AdmissionDate
	}
	if req.PaymentDate != nil {
		old["payment_date"] = study.PaymentDate
		proposed["payment_date"] = req.PaymentDate
		study.PaymentDate = req.PaymentDate
	}
	if req.IsActive != nil {
		old["is_active"] = study.IsActive
		proposed["is_active"] = *req.IsActive
		study.IsActive = *req.IsActive
	}

	if closed := s.enforceClosure(study); closed {
		if _, tracked := old["is_active"]; !tracked {
			old["is_active"] = true
		}
		proposed["is_active"] = false
	}

	changes := audit.Diff(old, proposed)
	if changes == nil {
		return study, nil
	}

	log := &models.AuditLog{
		UserID:        actorRef(actor),
		Action:        models.AuditActionUpdate,
		Entity:        "Study",
		RecordID:      study.Name,
		Changes:       changes,
		Justification: strings.TrimSpace(req.Justification),
	}
	if err := s.repo.UpdateWithAudit(ctx, study, log); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update study")
	}

	s.logger.Info("study updated",
		zap.String("name", study.Name),
		zap.Strings("fields", audit.Fields(changes)),
		zap.String("actor", actorID(actor)),
	)
	return study, nil
}

// Delete removes a study. Studies with participation history cannot be
// removed; close them instead.
func (s *StudyService) Delete(ctx context.Context, id, justification string, actor *models.JWTClaims) error {
	if err := audit.RequireJustification(justification); err != nil {
		return err
	}
	study, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "study not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load study")
	}

	referenced, err := s.participations.ExistsByStudy(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check participations")
	}
	if referenced {
		return appErrors.Clone(appErrors.ErrConflict, "study has registered participations and cannot be deleted")
	}

	log := &models.AuditLog{
		UserID:        actorRef(actor),
		Action:        models.AuditActionDelete,
		Entity:        "Study",
		RecordID:      study.Name,
		Justification: strings.TrimSpace(justification),
	}
	if err := s.repo.DeleteWithAudit(ctx, id, log); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete study")
	}
	return nil
}

// enforceClosure flips a study inactive when its payment date has
// passed. Reports whether it changed anything.
func (s *StudyService) enforceClosure(study *models.Study) bool {
	if !study.IsActive || study.PaymentDate == nil {
		return false
	}
	today := s.now().Truncate(24 * time.Hour)
	if study.PaymentDate.Before(today) {
		study.IsActive = false
		return true
	}
	return false
}
