package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/crc-dev/volreg-api/internal/audit"
	"github.com/crc-dev/volreg-api/internal/eligibility"
	"github.com/crc-dev/volreg-api/internal/models"
	appErrors "github.com/crc-dev/volreg-api/pkg/errors"
)

type participationRepository interface {
	ListByVolunteer(ctx context.Context, volunteerID string) ([]models.ParticipationDetail, error)
	FindByID(ctx context.Context, id string) (*models.ParticipationDetail, error)
	FindActiveByVolunteer(ctx context.Context, volunteerID string) (*models.ParticipationDetail, error)
	CreateWithAudit(ctx context.Context, participation *models.Participation, log *models.AuditLog) error
	UpdateWithAudit(ctx context.Context, participation *models.Participation, log *models.AuditLog) error
}

type volunteerReader interface {
	FindByID(ctx context.Context, id string) (*models.Volunteer, error)
}

// AddParticipationRequest enrolls a volunteer into a study. An active
// enrollment passes through the eligibility gate; a historic record
// (is_active=false) does not.
type AddParticipationRequest struct {
	StudyID       string     `json:"study_id" validate:"required"`
	AdmissionDate *time.Time `json:"admission_date"`
	PaymentDate   *time.Time `json:"payment_date"`
	IsActive      *bool      `json:"is_active"`
	Justification string     `json:"justification"`
}

// UpdateParticipationRequest closes out or corrects a participation.
type UpdateParticipationRequest struct {
	AdmissionDate *time.Time `json:"admission_date"`
	PaymentDate   *time.Time `json:"payment_date"`
	IsActive      *bool      `json:"is_active"`
	Justification string     `json:"justification"`
}

// ParticipationService handles enrollment use-cases.
type ParticipationService struct {
	repo       participationRepository
	volunteers volunteerReader
	studies    studyReader
	engine     *eligibility.Engine
	validator  *validator.Validate
	logger     *zap.Logger
	now        func() time.Time
}

// NewParticipationService constructs the participation service.
func NewParticipationService(repo participationRepository, volunteers volunteerReader, studies studyReader, engine *eligibility.Engine, validate *validator.Validate, logger *zap.Logger) *ParticipationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if engine == nil {
		engine = eligibility.New(0, 0)
	}
	return &ParticipationService{
		repo:       repo,
		volunteers: volunteers,
		studies:    studies,
		engine:     engine,
		validator:  validate,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// ListByVolunteer returns a volunteer's enrollment history, newest
// first.
func (s *ParticipationService) ListByVolunteer(ctx context.Context, volunteerID string) ([]models.ParticipationDetail, error) {
	if _, err := s.volunteers.FindByID(ctx, volunteerID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "volunteer not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load volunteer")
	}
	parts, err := s.repo.ListByVolunteer(ctx, volunteerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list participations")
	}
	return parts, nil
}

// Create enrolls a volunteer into a study with a justified audit entry.
func (s *ParticipationService) Create(ctx context.Context, volunteerID string, req AddParticipationRequest, actor *models.JWTClaims) (*models.ParticipationDetail, error) {
	if err := audit.RequireJustification(req.Justification); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid participation payload")
	}

	volunteer, err := s.volunteers.FindByID(ctx, volunteerID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "volunteer not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load volunteer")
	}
	study, err := s.studies.FindByID(ctx, req.StudyID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "study not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load study")
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	if active {
		if err := s.checkEligibility(ctx, volunteerID); err != nil {
			return nil, err
		}
	}

	participation := &models.Participation{
		VolunteerID:   volunteerID,
		StudyID:       study.ID,
		AdmissionDate: req.AdmissionDate,
		PaymentDate:   req.PaymentDate,
		IsActive:      active,
	}
	log := &models.AuditLog{
		UserID:        actorRef(actor),
		Action:        models.AuditActionCreate,
		Entity:        "Participation",
		RecordID:      fmt.Sprintf("%s/%s", volunteer.Code, study.Name),
		Changes: models.Changes{
			"study":     {From: "", To: study.Name},
			"is_active": {From: "", To: audit.Stringify(active)},
		},
		Justification: strings.TrimSpace(req.Justification),
	}
	if err := s.repo.CreateWithAudit(ctx, participation, log); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create participation")
	}

	s.logger.Info("participation created",
		zap.String("volunteer", volunteer.Code),
		zap.String("study", study.Name),
		zap.Bool("active", active),
		zap.String("actor", actorID(actor)),
	)
	return s.repo.FindByID(ctx, participation.ID)
}

// Update applies a justified close-out or correction.
func (s *ParticipationService) Update(ctx context.Context, id string, req UpdateParticipationRequest, actor *models.JWTClaims) (*models.ParticipationDetail, error) {
	if err := audit.RequireJustification(req.Justification); err != nil {
		return nil, err
	}

	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "participation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load participation")
	}

	old := map[string]interface{}{}
	proposed := map[string]interface{}{}
	participation := detail.Participation

	if req.AdmissionDate != nil {
		old["admission_date"] = participation.AdmissionDate
		proposed["admission_date"] = req.AdmissionDate
		participation.AdmissionDate = req.AdmissionDate
	}
	if req.PaymentDate != nil {
		old["payment_date"] = participation.PaymentDate
		proposed["payment_date"] = req.PaymentDate
		participation.PaymentDate = req.PaymentDate
	}
	if req.IsActive != nil {
		old["is_active"] = participation.IsActive
		proposed["is_active"] = *req.IsActive
		participation.IsActive = *req.IsActive
	}

	// Reactivating a closed participation goes back through the gate.
	if req.IsActive != nil && *req.IsActive && !detail.IsActive {
		current, err := s.repo.FindActiveByVolunteer(ctx, participation.VolunteerID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check active participation")
		}
		if current != nil && current.ID != participation.ID {
			return nil, appErrors.Clone(appErrors.ErrNotEligible,
				fmt.Sprintf("volunteer is already enrolled in %s", current.StudyName))
		}
	}

	changes := audit.Diff(old, proposed)
	if changes == nil {
		return detail, nil
	}

	log := &models.AuditLog{
		UserID:        actorRef(actor),
		Action:        models.AuditActionUpdate,
		Entity:        "Participation",
		RecordID:      fmt.Sprintf("%s/%s", participation.VolunteerID, detail.StudyName),
		Changes:       changes,
		Justification: strings.TrimSpace(req.Justification),
	}
	if err := s.repo.UpdateWithAudit(ctx, &participation, log); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update participation")
	}
	return s.repo.FindByID(ctx, id)
}

// checkEligibility blocks active enrollments for volunteers who are
// already in a study or still inside the payment cooldown window.
func (s *ParticipationService) checkEligibility(ctx context.Context, volunteerID string) error {
	current, err := s.repo.FindActiveByVolunteer(ctx, volunteerID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check active participation")
	}
	if current != nil {
		return appErrors.Clone(appErrors.ErrNotEligible,
			fmt.Sprintf("volunteer is already enrolled in %s", current.StudyName))
	}

	parts, err := s.repo.ListByVolunteer(ctx, volunteerID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list participations")
	}
	if end, ok := s.engine.CooldownEnd(parts); ok && s.now().Before(end) {
		last, study, _ := s.engine.LastPayment(parts)
		return appErrors.Clone(appErrors.ErrNotEligible,
			fmt.Sprintf("last payment for %s was on %s; eligible again on %s",
				study, last.Format("2006-01-02"), end.Format("2006-01-02")))
	}
	return nil
}
