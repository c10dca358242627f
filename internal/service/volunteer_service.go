package service

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/crc-dev/volreg-api/internal/audit"
	"github.com/crc-dev/volreg-api/internal/eligibility"
	"github.com/crc-dev/volreg-api/internal/models"
	appErrors "github.com/crc-dev/volreg-api/pkg/errors"
)

type volunteerRepository interface {
	List(ctx context.Context, filter models.VolunteerFilter) ([]models.Volunteer, int, error)
	FindByID(ctx context.Context, id string) (*models.Volunteer, error)
	ExistsByCURP(ctx context.Context, curp string, excludeID string) (bool, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	ListCodesByYear(ctx context.Context, year int) ([]string, error)
	Create(ctx context.Context, volunteer *models.Volunteer) error
	CreateWithParticipation(ctx context.Context, volunteer *models.Volunteer, participation *models.Participation) error
	UpdateWithAudit(ctx context.Context, volunteer *models.Volunteer, log *models.AuditLog) error
	DeleteWithAudit(ctx context.Context, id string, log *models.AuditLog) error
}

type participationReader interface {
	ListByVolunteer(ctx context.Context, volunteerID string) ([]models.ParticipationDetail, error)
}

type studyReader interface {
	FindByID(ctx context.Context, id string) (*models.Study, error)
}

// CreateVolunteerRequest holds payload for registering volunteers. When
// Code is absent one is generated; when a study is referenced an initial
// participation is opened in the same transaction.
type CreateVolunteerRequest struct {
	FirstName            string     `json:"first_name" validate:"required"`
	MiddleName           *string    `json:"middle_name"`
	LastNamePaternal     string     `json:"last_name_paternal" validate:"required"`
	LastNameMaternal     *string    `json:"last_name_maternal"`
	BirthDate            *time.Time `json:"birth_date"`
	Sex                  *string    `json:"sex" validate:"omitempty,oneof=M F"`
	CURP                 *string    `json:"curp"`
	Phone                *string    `json:"phone"`
	Code                 string     `json:"code"`
	ManualStatus         string     `json:"manual_status"`
	StatusReason         *string    `json:"status_reason"`
	Justification        string     `json:"justification"`
	InitialStudyID       string     `json:"initial_study_id"`
	InitialAdmissionDate *time.Time `json:"initial_admission_date"`
}

// UpdateVolunteerRequest is a partial update: only non-nil fields are
// proposed, diffed and applied. Justification is mandatory.
type UpdateVolunteerRequest struct {
	FirstName        *string    `json:"first_name"`
	MiddleName       *string    `json:"middle_name"`
	LastNamePaternal *string    `json:"last_name_paternal"`
	LastNameMaternal *string    `json:"last_name_maternal"`
	BirthDate        *time.Time `json:"birth_date"`
	Sex              *string    `json:"sex" validate:"omitempty,oneof=M F"`
	CURP             *string    `json:"curp"`
	Phone            *string    `json:"phone"`
	ManualStatus     *string    `json:"manual_status"`
	StatusReason     *string    `json:"status_reason"`
	Justification    string     `json:"justification"`
}

// VolunteerService handles volunteer use-cases.
type VolunteerService struct {
	repo           volunteerRepository
	participations participationReader
	studies        studyReader
	engine         *eligibility.Engine
	validator      *validator.Validate
	logger         *zap.Logger
	now            func() time.Time
}

// NewVolunteerService constructs the volunteer service.
func NewVolunteerService(repo volunteerRepository, participations participationReader, studies studyReader, engine *eligibility.Engine, validate *validator.Validate, logger *zap.Logger) *VolunteerService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if engine == nil {
		engine = eligibility.New(0, 0)
	}
	return &VolunteerService{
		repo:           repo,
		participations: participations,
		studies:        studies,
		engine:         engine,
		validator:      validate,
		logger:         logger,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// List returns volunteer details with derived status and pagination
// metadata. Status is computed per row; a status filter applies to the
// returned page since derived values have no column to query.
func (s *VolunteerService) List(ctx context.Context, filter models.VolunteerFilter) ([]models.VolunteerDetail, *models.Pagination, error) {
	volunteers, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list volunteers")
	}

	at := s.now()
	details := make([]models.VolunteerDetail, 0, len(volunteers))
	for _, v := range volunteers {
		parts, err := s.participations.ListByVolunteer(ctx, v.ID)
		if err != nil {
			return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load participations")
		}
		detail := s.buildDetail(v, parts, at)
		if filter.Status != "" && detail.Status != filter.Status {
			continue
		}
		details = append(details, detail)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return details, pagination, nil
}

// Get returns one volunteer with derived attributes and history.
func (s *VolunteerService) Get(ctx context.Context, id string) (*models.VolunteerDetail, error) {
	volunteer, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "volunteer not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load volunteer")
	}
	parts, err := s.participations.ListByVolunteer(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load participations")
	}
	detail := s.buildDetail(*volunteer, parts, s.now())
	return &detail, nil
}

// Create registers a new volunteer, generating a code when none was
// supplied.
func (s *VolunteerService) Create(ctx context.Context, req CreateVolunteerRequest, actor *models.JWTClaims) (*models.VolunteerDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid volunteer payload")
	}
	if req.CURP != nil && *req.CURP != "" {
		curp := strings.ToUpper(strings.TrimSpace(*req.CURP))
		if !models.CURPPattern.MatchString(curp) {
			return nil, appErrors.FieldError("curp", "curp does not match the expected format")
		}
		req.CURP = &curp
		exists, err := s.repo.ExistsByCURP(ctx, curp, "")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate curp")
		}
		if exists {
			return nil, appErrors.FieldError("curp", "curp already registered")
		}
	}

	manualStatus := models.StatusWaitingApproval
	if req.ManualStatus != "" {
		manualStatus = models.Status(req.ManualStatus)
		if !manualStatus.Valid() {
			return nil, appErrors.FieldError("manual_status", "unknown status")
		}
	}

	code := strings.TrimSpace(req.Code)
	if code != "" {
		taken, err := s.repo.ExistsByCode(ctx, code)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate code")
		}
		if taken {
			return nil, appErrors.FieldError("code", "code already registered")
		}
	} else {
		year := s.now().Year()
		existing, err := s.repo.ListCodesByYear(ctx, year)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to scan codes")
		}
		maternal := ""
		if req.LastNameMaternal != nil {
			maternal = *req.LastNameMaternal
		}
		code = eligibility.AssignCode(req.FirstName, req.LastNamePaternal, maternal, year, existing)
	}

	volunteer := &models.Volunteer{
		Code:             code,
		FirstName:        req.FirstName,
		MiddleName:       req.MiddleName,
		LastNamePaternal: req.LastNamePaternal,
		LastNameMaternal: req.LastNameMaternal,
		BirthDate:        req.BirthDate,
		Sex:              req.Sex,
		CURP:             req.CURP,
		Phone:            req.Phone,
		ManualStatus:     manualStatus,
		StatusReason:     req.StatusReason,
	}

	var participation *models.Participation
	if req.InitialStudyID != "" {
		study, err := s.studies.FindByID(ctx, req.InitialStudyID)
		if err != nil {
			if err == sql.ErrNoRows {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "initial study not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load study")
		}
		participation = &models.Participation{
			StudyID:       study.ID,
			AdmissionDate: req.InitialAdmissionDate,
			IsActive:      true,
		}
	}

	if err := s.repo.CreateWithParticipation(ctx, volunteer, participation); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create volunteer")
	}

	s.logger.Info("volunteer created",
		zap.String("code", volunteer.Code),
		zap.String("actor", actorID(actor)),
	)

	return s.Get(ctx, volunteer.ID)
}

// Update applies a justified partial update. The justification check
// runs before anything else; field changes are diffed with
// string-normalised equality and a no-op edit saves nothing and logs
// nothing.
func (s *VolunteerService) Update(ctx context.Context, id string, req UpdateVolunteerRequest, actor *models.JWTClaims) (*models.VolunteerDetail, error) {
	if err := audit.RequireJustification(req.Justification); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid volunteer payload")
	}

	volunteer, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "volunteer not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load volunteer")
	}

	old := map[string]interface{}{}
	proposed := map[string]interface{}{}

	apply := func(field string, oldVal interface{}, newVal interface{}, assign func()) {
		old[field] = oldVal
		proposed[field] = newVal
		assign()
	}

	if req.FirstName != nil {
		if strings.TrimSpace(*req.FirstName) == "" {
			return nil, appErrors.FieldError("first_name", "first name cannot be empty")
		}
		apply("first_name", volunteer.FirstName, *req.FirstName, func() { volunteer.FirstName = *req.FirstName })
	}
	if req.MiddleName != nil {
		apply("middle_name", volunteer.MiddleName, req.MiddleName, func() { volunteer.MiddleName = req.MiddleName })
	}
	if req.LastNamePaternal != nil {
		if strings.TrimSpace(*req.LastNamePaternal) == "" {
			return nil, appErrors.FieldError("last_name_paternal", "paternal surname cannot be empty")
		}
		apply("last_name_paternal", volunteer.LastNamePaternal, *req.LastNamePaternal, func() { volunteer.LastNamePaternal = *req.LastNamePaternal })
	}
	if req.LastNameMaternal != nil {
		apply("last_name_maternal", volunteer.LastNameMaternal, req.LastNameMaternal, func() { volunteer.LastNameMaternal = req.LastNameMaternal })
	}
	if req.BirthDate != nil {
		apply("birth_date", volunteer.BirthDate, req.BirthDate, func() { volunteer.BirthDate = req.BirthDate })
	}
	if req.Sex != nil {
		apply("sex", volunteer.Sex, req.Sex, func() { volunteer.Sex = req.Sex })
	}
	if req.CURP != nil {
		curp := strings.ToUpper(strings.TrimSpace(*req.CURP))
		if curp != "" {
			if !models.CURPPattern.MatchString(curp) {
				return nil, appErrors.FieldError("curp", "curp does not match the expected format")
			}
			exists, err := s.repo.ExistsByCURP(ctx, curp, id)
			if err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate curp")
			}
			if exists {
				return nil, appErrors.FieldError("curp", "curp already registered")
			}
		}
		if curp == "" {
			apply("curp", volunteer.CURP, nil, func() { volunteer.CURP = nil })
		} else {
			apply("curp", volunteer.CURP, curp, func() { volunteer.CURP = &curp })
		}
	}
	if req.Phone != nil {
		apply("phone", volunteer.Phone, req.Phone, func() { volunteer.Phone = req.Phone })
	}
	if req.ManualStatus != nil {
		status := models.Status(*req.ManualStatus)
		if !status.Valid() {
			return nil, appErrors.FieldError("manual_status", "unknown status")
		}
		apply("manual_status", volunteer.ManualStatus, status, func() { volunteer.ManualStatus = status })
	}
	if req.StatusReason != nil {
		apply("status_reason", volunteer.StatusReason, req.StatusReason, func() { volunteer.StatusReason = req.StatusReason })
	}

	changes := audit.Diff(old, proposed)
	if changes == nil {
		// Nothing actually changed: no save, no audit row.
		return s.Get(ctx, id)
	}

	log := &models.AuditLog{
		UserID:        actorRef(actor),
		Action:        models.AuditActionUpdate,
		Entity:        "Volunteer",
		RecordID:      volunteer.Code,
		Changes:       changes,
		Justification: strings.TrimSpace(req.Justification),
	}
	if err := s.repo.UpdateWithAudit(ctx, volunteer, log); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update volunteer")
	}

	s.logger.Info("volunteer updated",
		zap.String("code", volunteer.Code),
		zap.Strings("fields", audit.Fields(changes)),
		zap.String("actor", actorID(actor)),
	)

	return s.Get(ctx, id)
}

// Delete removes a volunteer and their participations. Requires a
// justification and records the deletion.
func (s *VolunteerService) Delete(ctx context.Context, id, justification string, actor *models.JWTClaims) error {
	if err := audit.RequireJustification(justification); err != nil {
		return err
	}
	volunteer, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "volunteer not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load volunteer")
	}

	log := &models.AuditLog{
		UserID:        actorRef(actor),
		Action:        models.AuditActionDelete,
		Entity:        "Volunteer",
		RecordID:      volunteer.Code,
		Justification: strings.TrimSpace(justification),
	}
	if err := s.repo.DeleteWithAudit(ctx, id, log); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete volunteer")
	}
	return nil
}

func (s *VolunteerService) buildDetail(v models.Volunteer, parts []models.ParticipationDetail, at time.Time) models.VolunteerDetail {
	status := s.engine.Compute(v, parts, at)
	detail := models.VolunteerDetail{
		Volunteer:      v,
		FullName:       eligibility.FullName(v),
		Age:            eligibility.Age(v.BirthDate, at),
		Status:         status,
		StatusLabel:    status.Label(),
		Participations: parts,
	}
	for i := range parts {
		if parts[i].IsActive && parts[i].StudyIsActive {
			detail.ActiveStudy = &parts[i].StudyName
			break
		}
	}
	return detail
}

func actorRef(actor *models.JWTClaims) *string {
	if actor == nil {
		return nil
	}
	return &actor.UserID
}

func actorID(actor *models.JWTClaims) string {
	if actor == nil {
		return "system"
	}
	return actor.UserID
}
