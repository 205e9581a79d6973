package crm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"sally/internal/middleware"
	"sally/internal/models"
	"sally/internal/repo"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
)

// Repositories the service needs; internal/repo provides the gorm-backed ones.
type OpportunityRepo interface {
	Create(ctx context.Context, o *models.Opportunity) error
	List(ctx context.Context) ([]models.Opportunity, error)
	GetByUUID(ctx context.Context, uuid string) (*models.Opportunity, error)
	Save(ctx context.Context, o *models.Opportunity) error
}

type NoteRepo interface {
	Create(ctx context.Context, n *models.Note) error
	ListForOpportunity(ctx context.Context, opportunityID uint) ([]models.Note, error)
	GetByUUID(ctx context.Context, uuid string) (*models.Note, error)
	Save(ctx context.Context, n *models.Note) error
	Delete(ctx context.Context, uuid string) error
}

type UserRepo interface {
	Ensure(ctx context.Context, authID, email, firstName, lastName string) (*models.User, error)
}

type StageRepo interface {
	ListForOpportunity(ctx context.Context, opportunityID uint) ([]models.EngagementStage, error)
}

type Service struct {
	Opps     OpportunityRepo
	Notes    NoteRepo
	Users    UserRepo
	Stages   StageRepo
	validate *validator.Validate
}

func NewService(opps OpportunityRepo, notes NoteRepo, users UserRepo, stages StageRepo) *Service {
	return &Service{Opps: opps, Notes: notes, Users: users, Stages: stages, validate: validator.New()}
}

type CreateInput struct {
	CompanyName  string          `json:"company_name" validate:"required"`
	ContactName  string          `json:"contact_name" validate:"required"`
	ContactEmail string          `json:"contact_email" validate:"required,email"`
	Value        decimal.Decimal `json:"value"`
	Stage        string          `json:"stage" validate:"required"`
	Priority     string          `json:"priority" validate:"required"`

	Description             string   `json:"description"`
	SARequestNotes          string   `json:"sa_request_notes"`
	NextSteps               string   `json:"next_steps"`
	TechnologyStack         []string `json:"technology_stack"`
	IntegrationRequirements []string `json:"integration_requirements"`
	ComplianceRequirements  []string `json:"compliance_requirements"`
}

// Create validates the payload, lazily provisions the caller's User row and
// stores the opportunity with the caller as both creator and assigned SA.
func (s *Service) Create(ctx context.Context, ident middleware.Identity, in CreateInput) (*models.Opportunity, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if in.Value.IsNegative() {
		return nil, fmt.Errorf("%w: value must be >= 0", ErrValidation)
	}
	if !models.ValidStage(in.Stage) {
		return nil, fmt.Errorf("%w: unknown stage %q", ErrValidation, in.Stage)
	}
	if !models.ValidPriority(in.Priority) {
		return nil, fmt.Errorf("%w: unknown priority %q", ErrValidation, in.Priority)
	}

	creator, err := s.Users.Ensure(ctx, ident.UserID, ident.Email, ident.FirstName, ident.LastName)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	o := &models.Opportunity{
		UUID:                    uuid.NewString(),
		CompanyName:             in.CompanyName,
		ContactName:             in.ContactName,
		ContactEmail:            in.ContactEmail,
		Value:                   in.Value,
		Stage:                   in.Stage,
		Priority:                in.Priority,
		Description:             in.Description,
		SARequestNotes:          in.SARequestNotes,
		NextSteps:               in.NextSteps,
		TechnologyStack:         datatypes.NewJSONSlice(in.TechnologyStack),
		IntegrationRequirements: datatypes.NewJSONSlice(in.IntegrationRequirements),
		ComplianceRequirements:  datatypes.NewJSONSlice(in.ComplianceRequirements),
		CreatedByID:             creator.ID,
		AssignedSAID:            &creator.ID,
		CreatedBy:               creator,
		AssignedSA:              creator,
		LastUpdated:             now,
	}
	o.CreatedAt = now
	if err := s.Opps.Create(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *Service) List(ctx context.Context) ([]models.Opportunity, error) {
	return s.Opps.List(ctx)
}

// Detail is the dashboard read: the opportunity plus its notes (with
// denormalized author names), engagement stages and user summaries.
type Detail struct {
	models.Opportunity
	Notes      []models.NoteView        `json:"notes"`
	Engagement []models.EngagementStage `json:"engagement_stages"`
	CreatedBy  *models.UserSummary      `json:"created_by"`
	AssignedSA *models.UserSummary      `json:"assigned_sa"`
}

func (s *Service) Get(ctx context.Context, oppUUID string) (*Detail, error) {
	o, err := s.Opps.GetByUUID(ctx, oppUUID)
	if err != nil {
		return nil, wrapNotFound(err, "opportunity")
	}
	notes, err := s.Notes.ListForOpportunity(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	stages, err := s.Stages.ListForOpportunity(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	d := &Detail{
		Opportunity: *o,
		Notes:       make([]models.NoteView, 0, len(notes)),
		Engagement:  stages,
		CreatedBy:   o.CreatedBy.Summary(),
		AssignedSA:  o.AssignedSA.Summary(),
	}
	for i := range notes {
		d.Notes = append(d.Notes, notes[i].View())
	}
	return d, nil
}

// UpdateStage moves the opportunity on the pipeline (kanban drag).
func (s *Service) UpdateStage(ctx context.Context, oppUUID, stage string) (*models.Opportunity, error) {
	if !models.ValidStage(stage) {
		return nil, fmt.Errorf("%w: unknown stage %q", ErrValidation, stage)
	}
	o, err := s.Opps.GetByUUID(ctx, oppUUID)
	if err != nil {
		return nil, wrapNotFound(err, "opportunity")
	}
	o.Stage = stage
	o.LastUpdated = time.Now().UTC()
	if err := s.Opps.Save(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// UpdateAssignment hands the opportunity to another SA. An unknown assignee id
// gets a placeholder User row, same as lazy creation on create.
func (s *Service) UpdateAssignment(ctx context.Context, oppUUID, assigneeAuthID string) (*models.Opportunity, error) {
	if assigneeAuthID == "" {
		return nil, fmt.Errorf("%w: assigned_sa_id required", ErrValidation)
	}
	o, err := s.Opps.GetByUUID(ctx, oppUUID)
	if err != nil {
		return nil, wrapNotFound(err, "opportunity")
	}
	sa, err := s.Users.Ensure(ctx, assigneeAuthID, "", "", "")
	if err != nil {
		return nil, err
	}
	o.AssignedSAID = &sa.ID
	o.LastUpdated = time.Now().UTC()
	if err := s.Opps.Save(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// FieldPatch carries the editable dashboard fields; nil means "leave as is".
type FieldPatch struct {
	CompanyName             *string          `json:"company_name"`
	ContactName             *string          `json:"contact_name"`
	ContactEmail            *string          `json:"contact_email"`
	Value                   *decimal.Decimal `json:"value"`
	Priority                *string          `json:"priority"`
	Description             *string          `json:"description"`
	SARequestNotes          *string          `json:"sa_request_notes"`
	NextSteps               *string          `json:"next_steps"`
	TechnologyStack         *[]string        `json:"technology_stack"`
	IntegrationRequirements *[]string        `json:"integration_requirements"`
	ComplianceRequirements  *[]string        `json:"compliance_requirements"`
}

func (s *Service) UpdateFields(ctx context.Context, oppUUID string, patch FieldPatch) (*models.Opportunity, error) {
	if patch.Value != nil && patch.Value.IsNegative() {
		return nil, fmt.Errorf("%w: value must be >= 0", ErrValidation)
	}
	if patch.Priority != nil && !models.ValidPriority(*patch.Priority) {
		return nil, fmt.Errorf("%w: unknown priority %q", ErrValidation, *patch.Priority)
	}
	o, err := s.Opps.GetByUUID(ctx, oppUUID)
	if err != nil {
		return nil, wrapNotFound(err, "opportunity")
	}
	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setString(&o.CompanyName, patch.CompanyName)
	setString(&o.ContactName, patch.ContactName)
	setString(&o.ContactEmail, patch.ContactEmail)
	setString(&o.Description, patch.Description)
	setString(&o.SARequestNotes, patch.SARequestNotes)
	setString(&o.NextSteps, patch.NextSteps)
	if patch.Value != nil {
		o.Value = *patch.Value
	}
	if patch.Priority != nil {
		o.Priority = *patch.Priority
	}
	if patch.TechnologyStack != nil {
		o.TechnologyStack = datatypes.NewJSONSlice(*patch.TechnologyStack)
	}
	if patch.IntegrationRequirements != nil {
		o.IntegrationRequirements = datatypes.NewJSONSlice(*patch.IntegrationRequirements)
	}
	if patch.ComplianceRequirements != nil {
		o.ComplianceRequirements = datatypes.NewJSONSlice(*patch.ComplianceRequirements)
	}
	o.LastUpdated = time.Now().UTC()
	if err := s.Opps.Save(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// AddNote annotates an opportunity. Any authenticated team member may do so.
func (s *Service) AddNote(ctx context.Context, oppUUID string, ident middleware.Identity, content string) (*models.Note, error) {
	if content == "" {
		return nil, fmt.Errorf("%w: content required", ErrValidation)
	}
	o, err := s.Opps.GetByUUID(ctx, oppUUID)
	if err != nil {
		return nil, wrapNotFound(err, "opportunity")
	}
	author, err := s.Users.Ensure(ctx, ident.UserID, ident.Email, ident.FirstName, ident.LastName)
	if err != nil {
		return nil, err
	}
	n := &models.Note{
		UUID:          uuid.NewString(),
		OpportunityID: o.ID,
		AuthorID:      author.ID,
		Content:       content,
		Author:        author,
	}
	if err := s.Notes.Create(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// UpdateNote edits the note text. Team-wide: any authenticated user may edit
// any note, not only its author.
func (s *Service) UpdateNote(ctx context.Context, noteUUID, content string) (*models.Note, error) {
	if content == "" {
		return nil, fmt.Errorf("%w: content required", ErrValidation)
	}
	n, err := s.Notes.GetByUUID(ctx, noteUUID)
	if err != nil {
		return nil, wrapNotFound(err, "note")
	}
	n.Content = content
	if err := s.Notes.Save(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *Service) DeleteNote(ctx context.Context, noteUUID string) error {
	if err := s.Notes.Delete(ctx, noteUUID); err != nil {
		return wrapNotFound(err, "note")
	}
	return nil
}

func wrapNotFound(err error, what string) error {
	if errors.Is(err, repo.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return err
}
