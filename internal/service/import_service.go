package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/crc-dev/volreg-api/internal/eligibility"
	"github.com/crc-dev/volreg-api/internal/models"
)

type importVolunteerRepo interface {
	FindByCURP(ctx context.Context, curp string) (*models.Volunteer, error)
	FindByCode(ctx context.Context, code string) (*models.Volunteer, error)
	ListCodesByYear(ctx context.Context, year int) ([]string, error)
	Create(ctx context.Context, volunteer *models.Volunteer) error
}

type importStudyRepo interface {
	FindByName(ctx context.Context, name string) (*models.Study, error)
	Create(ctx context.Context, study *models.Study) error
}

type importParticipationRepo interface {
	ListByVolunteer(ctx context.Context, volunteerID string) ([]models.ParticipationDetail, error)
	Create(ctx context.Context, participation *models.Participation) error
}

var importDateLayouts = []string{"2006-01-02", "02/01/2006", "2/1/2006", "01/02/2006 15:04:05"}

// ImportService folds spreadsheet rows into the registry. Each row is
// handled independently: a bad row lands in the error report and the
// rest of the file still goes through.
type ImportService struct {
	volunteers     importVolunteerRepo
	studies        importStudyRepo
	participations importParticipationRepo
	logger         *zap.Logger
	now            func() time.Time
}

// NewImportService constructs the import service.
func NewImportService(volunteers importVolunteerRepo, studies importStudyRepo, participations importParticipationRepo, logger *zap.Logger) *ImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportService{
		volunteers:     volunteers,
		studies:        studies,
		participations: participations,
		logger:         logger,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// Import processes parsed rows best-effort and returns counters plus
// per-line errors.
func (s *ImportService) Import(ctx context.Context, rows []models.ImportRow, actor *models.JWTClaims) (*models.ImportResult, error) {
	result := &models.ImportResult{Errors: []models.ImportError{}}

	year := s.now().Year()
	existingCodes, err := s.volunteers.ListCodesByYear(ctx, year)
	if err != nil {
		return nil, err
	}
	// Codes assigned during this run count against later rows too.
	codes := append([]string{}, existingCodes...)

	studyCache := map[string]*models.Study{}

	for _, row := range rows {
		outcome, err := s.importRow(ctx, row, year, &codes, studyCache)
		if err != nil {
			result.Errors = append(result.Errors, models.ImportError{Line: row.Line, Message: err.Error()})
			continue
		}
		switch outcome {
		case importCreated:
			result.Created++
		case importUpdated:
			result.Updated++
		default:
			result.Skipped++
		}
	}

	s.logger.Info("import finished",
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("skipped", result.Skipped),
		zap.Int("errors", len(result.Errors)),
		zap.String("actor", actorID(actor)),
	)
	return result, nil
}

type importOutcome int

const (
	importSkipped importOutcome = iota
	importCreated
	importUpdated
)

func (s *ImportService) importRow(ctx context.Context, row models.ImportRow, year int, codes *[]string, studyCache map[string]*models.Study) (importOutcome, error) {
	firstName := strings.TrimSpace(row.FirstName)
	paternal := strings.TrimSpace(row.Paternal)
	if firstName == "" || paternal == "" {
		return importSkipped, fmt.Errorf("first name and paternal surname are required")
	}

	curp := strings.ToUpper(strings.TrimSpace(row.CURP))
	if curp != "" && !models.CURPPattern.MatchString(curp) {
		return importSkipped, fmt.Errorf("invalid curp %q", curp)
	}

	birthDate, err := parseImportDate(row.BirthDate)
	if err != nil {
		return importSkipped, fmt.Errorf("invalid birth date %q", row.BirthDate)
	}
	paymentDate, err := parseImportDate(row.PaymentDate)
	if err != nil {
		return importSkipped, fmt.Errorf("invalid payment date %q", row.PaymentDate)
	}

	sex, err := parseSex(row.Sex)
	if err != nil {
		return importSkipped, err
	}

	volunteer, err := s.findExisting(ctx, curp, strings.TrimSpace(row.Code))
	if err != nil {
		return importSkipped, err
	}

	if volunteer == nil {
		volunteer, err = s.createVolunteer(ctx, row, firstName, paternal, curp, sex, birthDate, year, codes)
		if err != nil {
			return importSkipped, err
		}
		if err := s.attachStudies(ctx, volunteer, row.Studies, paymentDate, studyCache); err != nil {
			return importSkipped, err
		}
		return importCreated, nil
	}

	attached, err := s.attachNewStudies(ctx, volunteer, row.Studies, paymentDate, studyCache)
	if err != nil {
		return importSkipped, err
	}
	if attached {
		return importUpdated, nil
	}
	return importSkipped, nil
}

func (s *ImportService) findExisting(ctx context.Context, curp, code string) (*models.Volunteer, error) {
	if curp != "" {
		v, err := s.volunteers.FindByCURP(ctx, curp)
		if err == nil {
			return v, nil
		}
		if err != sql.ErrNoRows {
			return nil, err
		}
	}
	if code != "" {
		v, err := s.volunteers.FindByCode(ctx, code)
		if err == nil {
			return v, nil
		}
		if err != sql.ErrNoRows {
			return nil, err
		}
	}
	return nil, nil
}

func (s *ImportService) createVolunteer(ctx context.Context, row models.ImportRow, firstName, paternal, curp string, sex *string, birthDate *time.Time, year int, codes *[]string) (*models.Volunteer, error) {
	code := strings.TrimSpace(row.Code)
	if code == "" {
		code = eligibility.AssignCode(firstName, paternal, row.Maternal, year, *codes)
	}
	*codes = append(*codes, code)

	volunteer := &models.Volunteer{
		Code:             code,
		FirstName:        firstName,
		LastNamePaternal: paternal,
		ManualStatus:     models.StatusWaitingApproval,
		BirthDate:        birthDate,
		Sex:              sex,
	}
	if m := strings.TrimSpace(row.MiddleName); m != "" {
		volunteer.MiddleName = &m
	}
	if m := strings.TrimSpace(row.Maternal); m != "" {
		volunteer.LastNameMaternal = &m
	}
	if curp != "" {
		volunteer.CURP = &curp
	}
	if p := strings.TrimSpace(row.Phone); p != "" {
		volunteer.Phone = &p
	}

	if err := s.volunteers.Create(ctx, volunteer); err != nil {
		return nil, fmt.Errorf("create volunteer: %w", err)
	}
	return volunteer, nil
}

// attachStudies enrolls a freshly imported volunteer into every study
// named on the row.
func (s *ImportService) attachStudies(ctx context.Context, volunteer *models.Volunteer, studies string, paymentDate *time.Time, cache map[string]*models.Study) error {
	hasActive := false
	for _, name := range splitStudies(studies) {
		study, err := s.resolveStudy(ctx, name, cache)
		if err != nil {
			return err
		}
		if err := s.createParticipation(ctx, volunteer.ID, study, paymentDate, &hasActive); err != nil {
			return err
		}
	}
	return nil
}

// attachNewStudies adds only the studies the volunteer is not already
// linked to. Reports whether anything was added.
func (s *ImportService) attachNewStudies(ctx context.Context, volunteer *models.Volunteer, studies string, paymentDate *time.Time, cache map[string]*models.Study) (bool, error) {
	names := splitStudies(studies)
	if len(names) == 0 {
		return false, nil
	}

	existing, err := s.participations.ListByVolunteer(ctx, volunteer.ID)
	if err != nil {
		return false, err
	}
	linked := map[string]bool{}
	hasActive := false
	for _, p := range existing {
		linked[p.StudyID] = true
		if p.IsActive {
			hasActive = true
		}
	}

	attached := false
	for _, name := range names {
		study, err := s.resolveStudy(ctx, name, cache)
		if err != nil {
			return attached, err
		}
		if linked[study.ID] {
			continue
		}
		if err := s.createParticipation(ctx, volunteer.ID, study, paymentDate, &hasActive); err != nil {
			return attached, err
		}
		attached = true
	}
	return attached, nil
}

func (s *ImportService) createParticipation(ctx context.Context, volunteerID string, study *models.Study, paymentDate *time.Time, hasActive *bool) error {
	// Imported history stays closed: a payment date, an inactive
	// study, or an earlier active enrollment all force is_active off.
	active := paymentDate == nil && study.IsActive && !*hasActive
	admission := s.now().Truncate(24 * time.Hour)
	participation := &models.Participation{
		VolunteerID:   volunteerID,
		StudyID:       study.ID,
		AdmissionDate: &admission,
		PaymentDate:   paymentDate,
		IsActive:      active,
	}
	if err := s.participations.Create(ctx, participation); err != nil {
		return fmt.Errorf("create participation for %s: %w", study.Name, err)
	}
	if active {
		*hasActive = true
	}
	return nil
}

func (s *ImportService) resolveStudy(ctx context.Context, name string, cache map[string]*models.Study) (*models.Study, error) {
	key := strings.ToLower(name)
	if study, ok := cache[key]; ok {
		return study, nil
	}
	study, err := s.studies.FindByName(ctx, name)
	if err == sql.ErrNoRows {
		study = &models.Study{Name: name, IsActive: true}
		if err := s.studies.Create(ctx, study); err != nil {
			return nil, fmt.Errorf("create study %s: %w", name, err)
		}
	} else if err != nil {
		return nil, err
	}
	cache[key] = study
	return study, nil
}

func splitStudies(value string) []string {
	var names []string
	for _, part := range strings.Split(value, ",") {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func parseImportDate(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	for _, layout := range importDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			t = t.Truncate(24 * time.Hour)
			return &t, nil
		}
	}
	return nil, fmt.Errorf("unrecognised date %q", value)
}

func parseSex(value string) (*string, error) {
	value = strings.ToUpper(strings.TrimSpace(value))
	switch value {
	case "":
		return nil, nil
	case "M", "MASCULINO", "H", "HOMBRE":
		m := "M"
		return &m, nil
	case "F", "FEMENINO", "MUJER":
		f := "F"
		return &f, nil
	}
	return nil, fmt.Errorf("invalid sex %q", value)
}
