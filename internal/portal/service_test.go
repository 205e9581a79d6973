package portal

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"sally/internal/models"
	"sally/internal/repo"
)

// -------- test fakes --------

type fakePortalRepo struct {
	byToken map[string]*models.ClientPortal
	nextID  uint
}

func newFakePortalRepo() *fakePortalRepo {
	return &fakePortalRepo{byToken: make(map[string]*models.ClientPortal)}
}

func (f *fakePortalRepo) Create(_ context.Context, p *models.ClientPortal) error {
	f.nextID++
	p.ID = f.nextID
	p.CreatedAt = time.Now().UTC().Add(time.Duration(f.nextID) * time.Millisecond)
	f.byToken[p.AccessToken] = p
	return nil
}

func (f *fakePortalRepo) GetByToken(_ context.Context, token string) (*models.ClientPortal, error) {
	p, ok := f.byToken[token]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakePortalRepo) GetByUUID(_ context.Context, uuid string) (*models.ClientPortal, error) {
	for _, p := range f.byToken {
		if p.UUID == uuid {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (f *fakePortalRepo) ActiveForOpportunity(_ context.Context, oppID uint) (*models.ClientPortal, error) {
	var newest *models.ClientPortal
	for _, p := range f.byToken {
		if p.OpportunityID != oppID || !p.IsActive {
			continue
		}
		if newest == nil || p.CreatedAt.After(newest.CreatedAt) {
			newest = p
		}
	}
	if newest == nil {
		return nil, nil
	}
	cp := *newest
	return &cp, nil
}

func (f *fakePortalRepo) Deactivate(_ context.Context, uuid string) error {
	for _, p := range f.byToken {
		if p.UUID == uuid {
			p.IsActive = false
			return nil
		}
	}
	return repo.ErrNotFound
}

func (f *fakePortalRepo) DeactivateAllForOpportunity(_ context.Context, oppID uint) error {
	for _, p := range f.byToken {
		if p.OpportunityID == oppID {
			p.IsActive = false
		}
	}
	return nil
}

func (f *fakePortalRepo) TouchAccessed(_ context.Context, id uint, at time.Time) error {
	for _, p := range f.byToken {
		if p.ID == id {
			t := at
			p.LastAccessed = &t
			return nil
		}
	}
	return repo.ErrNotFound
}

func (f *fakePortalRepo) activeCount(oppID uint) int {
	n := 0
	for _, p := range f.byToken {
		if p.OpportunityID == oppID && p.IsActive {
			n++
		}
	}
	return n
}

type fakeOppLookup struct {
	byUUID map[string]*models.Opportunity
}

func (f *fakeOppLookup) GetByUUID(_ context.Context, uuid string) (*models.Opportunity, error) {
	o, ok := f.byUUID[uuid]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return o, nil
}

func (f *fakeOppLookup) GetByID(_ context.Context, id uint) (*models.Opportunity, error) {
	for _, o := range f.byUUID {
		if o.ID == id {
			return o, nil
		}
	}
	return nil, repo.ErrNotFound
}

type fakeStageRepo struct {
	byUUID map[string]*models.EngagementStage
	order  []string
}

func newFakeStageRepo() *fakeStageRepo {
	return &fakeStageRepo{byUUID: make(map[string]*models.EngagementStage)}
}

func (f *fakeStageRepo) Create(_ context.Context, e *models.EngagementStage) error {
	f.byUUID[e.UUID] = e
	f.order = append(f.order, e.UUID)
	return nil
}

func (f *fakeStageRepo) ListForOpportunity(_ context.Context, oppID uint) ([]models.EngagementStage, error) {
	var out []models.EngagementStage
	for _, id := range f.order {
		if e := f.byUUID[id]; e.OpportunityID == oppID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (f *fakeStageRepo) GetByUUID(_ context.Context, uuid string) (*models.EngagementStage, error) {
	e, ok := f.byUUID[uuid]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (f *fakeStageRepo) Save(_ context.Context, e *models.EngagementStage) error {
	f.byUUID[e.UUID] = e
	return nil
}

func (f *fakeStageRepo) NextPosition(_ context.Context, oppID uint) (int, error) {
	max := 0
	for _, e := range f.byUUID {
		if e.OpportunityID == oppID && e.Position > max {
			max = e.Position
		}
	}
	return max + 1, nil
}

// -------- helpers --------

func newTestService() (*Service, *fakePortalRepo, *fakeOppLookup) {
	portals := newFakePortalRepo()
	opps := &fakeOppLookup{byUUID: map[string]*models.Opportunity{
		"opp-1": {
			ID:              1,
			UUID:            "opp-1",
			CompanyName:     "Acme",
			ContactName:     "Jo",
			ContactEmail:    "jo@acme.com",
			Description:     "Shopify integration",
			NextSteps:       "kickoff call",
			TechnologyStack: datatypes.JSONSlice[string]{"Shopify", "Segment"},
			Stage:           models.StageDiscovery,
		},
	}}
	svc := NewService(portals, opps, newFakeStageRepo(), 0)
	return svc, portals, opps
}

// -------- tests --------

func TestIssueAndResolveRoundTrip(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	p, err := svc.Issue(ctx, "opp-1", nil)
	require.NoError(t, err)
	assert.True(t, p.IsActive)
	assert.Nil(t, p.ExpiresAt)
	assert.NotEmpty(t, p.AccessToken)

	proj, err := svc.Resolve(ctx, p.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "Acme", proj.CompanyName)
	assert.Equal(t, "Shopify integration", proj.Description)
	assert.Equal(t, []string{"Shopify", "Segment"}, proj.TechnologyStack)
	assert.Equal(t, "kickoff call", proj.NextSteps)
	assert.Equal(t, p.UUID, proj.PortalID)
}

// The projection must expose exactly the public fields: no contact details,
// no deal value, no user identities, ever.
func TestProjectionExposesOnlyPublicFields(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	p, err := svc.Issue(ctx, "opp-1", nil)
	require.NoError(t, err)
	proj, err := svc.Resolve(ctx, p.AccessToken)
	require.NoError(t, err)

	raw, err := json.Marshal(proj)
	require.NoError(t, err)
	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))

	want := []string{"portal_id", "company_name", "description", "technology_stack", "next_steps", "engagement_stages"}
	assert.ElementsMatch(t, want, keys(fields))
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestResolveUnknownToken(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.Resolve(context.Background(), "no-such-token")
	assert.ErrorIs(t, err, ErrNotFound)
}

// A deactivated portal must be indistinguishable from one that never existed.
func TestDeactivatedResolvesLikeUnknown(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	p, err := svc.Issue(ctx, "opp-1", nil)
	require.NoError(t, err)
	require.NoError(t, svc.Deactivate(ctx, p.UUID))

	_, errDeactivated := svc.Resolve(ctx, p.AccessToken)
	_, errUnknown := svc.Resolve(ctx, "never-existed")
	assert.ErrorIs(t, errDeactivated, ErrNotFound)
	assert.Equal(t, errUnknown, errDeactivated)
}

func TestExpiredResolvesLikeUnknown(t *testing.T) {
	svc, portals, _ := newTestService()
	ctx := context.Background()

	days := 7
	p, err := svc.Issue(ctx, "opp-1", &days)
	require.NoError(t, err)
	require.NotNil(t, p.ExpiresAt)

	// age the link past its window
	past := time.Now().UTC().Add(-time.Hour)
	portals.byToken[p.AccessToken].ExpiresAt = &past

	_, err = svc.Resolve(ctx, p.AccessToken)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIssueRejectsNegativeExpiry(t *testing.T) {
	svc, _, _ := newTestService()
	days := -1
	_, err := svc.Issue(context.Background(), "opp-1", &days)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestIssueMissingOpportunity(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.Issue(context.Background(), "nope", nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

// Resolution is a pure read of opportunity data: same token, same projection.
func TestResolveIsIdempotent(t *testing.T) {
	svc, portals, _ := newTestService()
	ctx := context.Background()

	p, err := svc.Issue(ctx, "opp-1", nil)
	require.NoError(t, err)

	first, err := svc.Resolve(ctx, p.AccessToken)
	require.NoError(t, err)
	second, err := svc.Resolve(ctx, p.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	assert.NotNil(t, portals.byToken[p.AccessToken].LastAccessed, "lastAccessed bookkeeping")
}

func TestIssueIsAdditive(t *testing.T) {
	svc, portals, _ := newTestService()
	ctx := context.Background()

	a, err := svc.Issue(ctx, "opp-1", nil)
	require.NoError(t, err)
	b, err := svc.Issue(ctx, "opp-1", nil)
	require.NoError(t, err)
	assert.NotEqual(t, a.AccessToken, b.AccessToken)
	assert.Equal(t, 2, portals.activeCount(1))

	// both links resolve
	_, err = svc.Resolve(ctx, a.AccessToken)
	assert.NoError(t, err)
	_, err = svc.Resolve(ctx, b.AccessToken)
	assert.NoError(t, err)
}

func TestReissueLeavesOneActive(t *testing.T) {
	svc, portals, _ := newTestService()
	ctx := context.Background()

	a, err := svc.Issue(ctx, "opp-1", nil)
	require.NoError(t, err)
	b, err := svc.Reissue(ctx, "opp-1", nil)
	require.NoError(t, err)

	assert.Equal(t, 1, portals.activeCount(1))
	_, err = svc.Resolve(ctx, a.AccessToken)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Resolve(ctx, b.AccessToken)
	assert.NoError(t, err)

	active, err := svc.ActiveFor(ctx, "opp-1")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, b.UUID, active.UUID)
}

func TestActiveForPicksNewest(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Issue(ctx, "opp-1", nil)
	require.NoError(t, err)
	b, err := svc.Issue(ctx, "opp-1", nil)
	require.NoError(t, err)

	active, err := svc.ActiveFor(ctx, "opp-1")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, b.UUID, active.UUID)
}

func TestActiveForNone(t *testing.T) {
	svc, _, _ := newTestService()
	active, err := svc.ActiveFor(context.Background(), "opp-1")
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestEngagementStageLifecycle(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	s1, err := svc.AddStage(ctx, "opp-1", "Initial Discovery", "scoped the data model")
	require.NoError(t, err)
	assert.Equal(t, models.EngagementPending, s1.Status)
	assert.Equal(t, 1, s1.Position)

	s2, err := svc.AddStage(ctx, "opp-1", "Technical Review", "")
	require.NoError(t, err)
	assert.Equal(t, 2, s2.Position)

	p, err := svc.Issue(ctx, "opp-1", nil)
	require.NoError(t, err)

	// prospect approves through the portal
	upd, err := svc.Respond(ctx, p.AccessToken, s1.UUID, "looks right to us", models.EngagementApproved)
	require.NoError(t, err)
	assert.Equal(t, models.EngagementApproved, upd.Status)
	assert.Equal(t, "looks right to us", upd.ProspectResponse)

	// no transition out of approved
	_, err = svc.Respond(ctx, p.AccessToken, s1.UUID, "changed our mind", models.EngagementDisputed)
	assert.ErrorIs(t, err, ErrValidation)

	// only approved/disputed are accepted
	_, err = svc.Respond(ctx, p.AccessToken, s2.UUID, "", models.EngagementPending)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.Respond(ctx, p.AccessToken, s2.UUID, "", "maybe")
	assert.ErrorIs(t, err, ErrValidation)

	// stages ride along in the projection
	proj, err := svc.Resolve(ctx, p.AccessToken)
	require.NoError(t, err)
	require.Len(t, proj.Stages, 2)
	assert.Equal(t, models.EngagementApproved, proj.Stages[0].Status)
	assert.Equal(t, models.EngagementPending, proj.Stages[1].Status)
}

func TestRespondRequiresLiveToken(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	s1, err := svc.AddStage(ctx, "opp-1", "Initial Discovery", "")
	require.NoError(t, err)

	p, err := svc.Issue(ctx, "opp-1", nil)
	require.NoError(t, err)
	require.NoError(t, svc.Deactivate(ctx, p.UUID))

	_, err = svc.Respond(ctx, p.AccessToken, s1.UUID, "hi", models.EngagementApproved)
	assert.ErrorIs(t, err, ErrNotFound)
}
