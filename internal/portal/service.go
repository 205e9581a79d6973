package portal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"sally/internal/models"
	"sally/internal/repo"
)

var (
	ErrNotFound   = errors.New("portal not found")
	ErrValidation = errors.New("validation failed")
)

type PortalRepo interface {
	Create(ctx context.Context, p *models.ClientPortal) error
	GetByToken(ctx context.Context, token string) (*models.ClientPortal, error)
	GetByUUID(ctx context.Context, uuid string) (*models.ClientPortal, error)
	ActiveForOpportunity(ctx context.Context, opportunityID uint) (*models.ClientPortal, error)
	Deactivate(ctx context.Context, uuid string) error
	DeactivateAllForOpportunity(ctx context.Context, opportunityID uint) error
	TouchAccessed(ctx context.Context, id uint, at time.Time) error
}

type OpportunityRepo interface {
	GetByUUID(ctx context.Context, uuid string) (*models.Opportunity, error)
	GetByID(ctx context.Context, id uint) (*models.Opportunity, error)
}

type StageRepo interface {
	Create(ctx context.Context, e *models.EngagementStage) error
	ListForOpportunity(ctx context.Context, opportunityID uint) ([]models.EngagementStage, error)
	GetByUUID(ctx context.Context, uuid string) (*models.EngagementStage, error)
	Save(ctx context.Context, e *models.EngagementStage) error
	NextPosition(ctx context.Context, opportunityID uint) (int, error)
}

type Service struct {
	Portals PortalRepo
	Opps    OpportunityRepo
	Stages  StageRepo

	// DefaultExpiryDays applies when issuance does not name a window;
	// 0 keeps links valid until deactivated.
	DefaultExpiryDays int
}

func NewService(portals PortalRepo, opps OpportunityRepo, stages StageRepo, defaultExpiryDays int) *Service {
	return &Service{Portals: portals, Opps: opps, Stages: stages, DefaultExpiryDays: defaultExpiryDays}
}

// Issue creates a new share link for the opportunity. It is additive: links
// issued earlier stay valid, so several external recipients can hold their own.
func (s *Service) Issue(ctx context.Context, oppUUID string, expireDays *int) (*models.ClientPortal, error) {
	o, err := s.Opps.GetByUUID(ctx, oppUUID)
	if err != nil {
		return nil, notFound(err)
	}
	days := s.DefaultExpiryDays
	if expireDays != nil {
		if *expireDays < 0 {
			return nil, fmt.Errorf("%w: expires_in_days must be >= 0", ErrValidation)
		}
		days = *expireDays
	}
	p := &models.ClientPortal{
		UUID:          uuid.NewString(),
		OpportunityID: o.ID,
		AccessToken:   NewToken(),
		IsActive:      true,
	}
	if days > 0 {
		t := time.Now().UTC().AddDate(0, 0, days)
		p.ExpiresAt = &t
	}
	if err := s.Portals.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Reissue revokes every live link for the opportunity and hands out a fresh
// one, for callers who want exactly one recipient at a time.
func (s *Service) Reissue(ctx context.Context, oppUUID string, expireDays *int) (*models.ClientPortal, error) {
	o, err := s.Opps.GetByUUID(ctx, oppUUID)
	if err != nil {
		return nil, notFound(err)
	}
	if err := s.Portals.DeactivateAllForOpportunity(ctx, o.ID); err != nil {
		return nil, err
	}
	return s.Issue(ctx, oppUUID, expireDays)
}

// ActiveFor returns the most recently issued live portal, or nil.
func (s *Service) ActiveFor(ctx context.Context, oppUUID string) (*models.ClientPortal, error) {
	o, err := s.Opps.GetByUUID(ctx, oppUUID)
	if err != nil {
		return nil, notFound(err)
	}
	return s.Portals.ActiveForOpportunity(ctx, o.ID)
}

func (s *Service) Deactivate(ctx context.Context, portalUUID string) error {
	if err := s.Portals.Deactivate(ctx, portalUUID); err != nil {
		return notFound(err)
	}
	return nil
}

// StageView is the engagement checkpoint as the external viewer sees it.
type StageView struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	ArchitectNote    string `json:"architect_note"`
	ProspectResponse string `json:"prospect_response"`
	Status           string `json:"status"`
}

// Projection is everything an unauthenticated viewer may learn about the
// opportunity. Contact details, deal value, internal notes and user identities
// must never be added here.
type Projection struct {
	PortalID        string      `json:"portal_id"`
	CompanyName     string      `json:"company_name"`
	Description     string      `json:"description"`
	TechnologyStack []string    `json:"technology_stack"`
	NextSteps       string      `json:"next_steps"`
	Stages          []StageView `json:"engagement_stages"`
}

// Resolve exchanges an access token for the public projection. Expired,
// deactivated and unknown tokens all come back as ErrNotFound so an outside
// probe cannot tell which it was.
func (s *Service) Resolve(ctx context.Context, token string) (*Projection, error) {
	p, err := s.Portals.GetByToken(ctx, token)
	if err != nil {
		return nil, notFound(err)
	}
	switch classify(p, time.Now().UTC()) {
	case outcomeActive:
	default:
		return nil, ErrNotFound
	}
	o, err := s.Opps.GetByID(ctx, p.OpportunityID)
	if err != nil {
		return nil, notFound(err)
	}
	stages, err := s.Stages.ListForOpportunity(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	_ = s.Portals.TouchAccessed(ctx, p.ID, time.Now().UTC())

	proj := &Projection{
		PortalID:        p.UUID,
		CompanyName:     o.CompanyName,
		Description:     o.Description,
		TechnologyStack: append([]string(nil), o.TechnologyStack...),
		NextSteps:       o.NextSteps,
		Stages:          make([]StageView, 0, len(stages)),
	}
	for _, st := range stages {
		proj.Stages = append(proj.Stages, StageView{
			ID:               st.UUID,
			Name:             st.Name,
			ArchitectNote:    st.ArchitectNote,
			ProspectResponse: st.ProspectResponse,
			Status:           st.Status,
		})
	}
	return proj, nil
}

type outcome int

const (
	outcomeActive outcome = iota
	outcomeExpired
	outcomeDeactivated
)

func classify(p *models.ClientPortal, now time.Time) outcome {
	if !p.IsActive {
		return outcomeDeactivated
	}
	if p.ExpiresAt != nil && now.After(*p.ExpiresAt) {
		return outcomeExpired
	}
	return outcomeActive
}

// AddStage appends an engagement checkpoint for the opportunity.
func (s *Service) AddStage(ctx context.Context, oppUUID, name, architectNote string) (*models.EngagementStage, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name required", ErrValidation)
	}
	o, err := s.Opps.GetByUUID(ctx, oppUUID)
	if err != nil {
		return nil, notFound(err)
	}
	pos, err := s.Stages.NextPosition(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	e := &models.EngagementStage{
		UUID:          uuid.NewString(),
		OpportunityID: o.ID,
		Position:      pos,
		Name:          name,
		ArchitectNote: architectNote,
		Status:        models.EngagementPending,
	}
	if err := s.Stages.Create(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// UpdateStageNote rewrites the architect-authored summary of a checkpoint.
func (s *Service) UpdateStageNote(ctx context.Context, stageUUID, architectNote string) (*models.EngagementStage, error) {
	e, err := s.Stages.GetByUUID(ctx, stageUUID)
	if err != nil {
		return nil, notFound(err)
	}
	e.ArchitectNote = architectNote
	if err := s.Stages.Save(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// Respond records the prospect's reaction through the portal. Only a pending
// stage may be answered, and only with approved or disputed.
func (s *Service) Respond(ctx context.Context, token, stageUUID, response, status string) (*models.EngagementStage, error) {
	if status != models.EngagementApproved && status != models.EngagementDisputed {
		return nil, fmt.Errorf("%w: status must be approved or disputed", ErrValidation)
	}
	p, err := s.Portals.GetByToken(ctx, token)
	if err != nil {
		return nil, notFound(err)
	}
	if classify(p, time.Now().UTC()) != outcomeActive {
		return nil, ErrNotFound
	}
	e, err := s.Stages.GetByUUID(ctx, stageUUID)
	if err != nil {
		return nil, notFound(err)
	}
	if e.OpportunityID != p.OpportunityID {
		return nil, ErrNotFound
	}
	if e.Status != models.EngagementPending {
		return nil, fmt.Errorf("%w: stage already %s", ErrValidation, e.Status)
	}
	e.ProspectResponse = response
	e.Status = status
	if err := s.Stages.Save(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func notFound(err error) error {
	if errors.Is(err, repo.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
