package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"communehub-api/apperrors"
	"communehub-api/models"
)

// ---- in-memory fake ----------------------------------------------------------

type fakeCommunityStore struct {
	byID    map[string]*models.Community
	deleted []string
}

func newFakeCommunityStore() *fakeCommunityStore {
	return &fakeCommunityStore{byID: make(map[string]*models.Community)}
}

func (f *fakeCommunityStore) CreateCommunityWithOwner(ctx context.Context, c *models.Community, interestIDs []string) error {
	copied := *c
	copied.MemberCount = 1
	f.byID[c.ID] = &copied
	return nil
}

func (f *fakeCommunityStore) GetCommunityByID(ctx context.Context, id string) (*models.Community, error) {
	c, ok := f.byID[id]
	if !ok {
		return nil, apperrors.New(apperrors.CodeNotFound, "community not found")
	}
	copied := *c
	return &copied, nil
}

func (f *fakeCommunityStore) GetCommunityBySlug(ctx context.Context, slug string) (*models.Community, error) {
	for _, c := range f.byID {
		if c.Slug == slug {
			copied := *c
			return &copied, nil
		}
	}
	return nil, apperrors.New(apperrors.CodeNotFound, "community not found")
}

func (f *fakeCommunityStore) UpdateCommunity(ctx context.Context, c *models.Community, interestIDs []string) error {
	copied := *c
	f.byID[c.ID] = &copied
	return nil
}

func (f *fakeCommunityStore) DeleteCommunity(ctx context.Context, id string) error {
	delete(f.byID, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeCommunityStore) SlugTaken(ctx context.Context, slug string) bool {
	for _, c := range f.byID {
		if c.Slug == slug {
			return true
		}
	}
	return false
}

func (f *fakeCommunityStore) GetInterests(ctx context.Context, ids []string) ([]models.Interest, error) {
	return nil, nil
}

// ---- Create ------------------------------------------------------------------

func TestCreateCommunity_Succeeds(t *testing.T) {
	store := newFakeCommunityStore()
	service := NewCommunityService(store)

	community, err := service.Create(context.Background(), "owner", models.CreateCommunityRequest{
		Name:        "Weekend Hikers",
		Description: "Trails every Saturday",
	})
	require.NoError(t, err)
	assert.Equal(t, "owner", community.OwnerID)
	assert.Equal(t, "weekend-hikers", community.Slug)
	assert.Equal(t, 1, community.MemberCount)
}

func TestCreateCommunity_SlugCollisionGetsSuffix(t *testing.T) {
	store := newFakeCommunityStore()
	service := NewCommunityService(store)
	ctx := context.Background()

	first, err := service.Create(ctx, "owner", models.CreateCommunityRequest{Name: "Weekend Hikers"})
	require.NoError(t, err)
	second, err := service.Create(ctx, "other", models.CreateCommunityRequest{Name: "Weekend Hikers"})
	require.NoError(t, err)

	assert.Equal(t, "weekend-hikers", first.Slug)
	assert.Equal(t, "weekend-hikers-2", second.Slug)
}

func TestCreateCommunity_BlankName(t *testing.T) {
	service := NewCommunityService(newFakeCommunityStore())
	_, err := service.Create(context.Background(), "owner", models.CreateCommunityRequest{Name: "  "})
	assertCode(t, err, apperrors.CodeBadRequestInput)
}

func TestCreateCommunity_PaidRequiresPriceAndCurrency(t *testing.T) {
	service := NewCommunityService(newFakeCommunityStore())
	ctx := context.Background()

	_, err := service.Create(ctx, "owner", models.CreateCommunityRequest{Name: "Pro Club", IsPaid: true})
	assertCode(t, err, apperrors.CodeBadRequestInput)

	price := 9.99
	_, err = service.Create(ctx, "owner", models.CreateCommunityRequest{Name: "Pro Club", IsPaid: true, Price: &price})
	assertCode(t, err, apperrors.CodeBadRequestInput)

	currency := "EUR"
	community, err := service.Create(ctx, "owner", models.CreateCommunityRequest{
		Name: "Pro Club", IsPaid: true, Price: &price, Currency: &currency,
	})
	require.NoError(t, err)
	assert.True(t, community.IsPaid)
}

func TestCreateCommunity_PricingOnFreeCommunityRejected(t *testing.T) {
	service := NewCommunityService(newFakeCommunityStore())
	price := 5.0
	_, err := service.Create(context.Background(), "owner", models.CreateCommunityRequest{
		Name: "Free Club", Price: &price,
	})
	assertCode(t, err, apperrors.CodeBadRequestInput)
}

func TestCreateCommunity_CoordinateValidation(t *testing.T) {
	service := NewCommunityService(newFakeCommunityStore())
	ctx := context.Background()
	lat := 91.0
	lng := 10.0

	_, err := service.Create(ctx, "owner", models.CreateCommunityRequest{Name: "Geo", Latitude: &lat, Longitude: &lng})
	assertCode(t, err, apperrors.CodeBadRequestInput)

	// One coordinate without the other is also invalid.
	lat = 50.0
	_, err = service.Create(ctx, "owner", models.CreateCommunityRequest{Name: "Geo", Latitude: &lat})
	assertCode(t, err, apperrors.CodeBadRequestInput)
}

// ---- Update / Delete ---------------------------------------------------------

func TestUpdateCommunity_OwnerOnly(t *testing.T) {
	store := newFakeCommunityStore()
	service := NewCommunityService(store)
	ctx := context.Background()

	community, err := service.Create(ctx, "owner", models.CreateCommunityRequest{Name: "Club"})
	require.NoError(t, err)

	name := "Renamed"
	_, err = service.Update(ctx, "intruder", community.ID, models.UpdateCommunityRequest{Name: &name})
	assertCode(t, err, apperrors.CodeForbidden)

	updated, err := service.Update(ctx, "owner", community.ID, models.UpdateCommunityRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
}

func TestDeleteCommunity_OwnerOnly(t *testing.T) {
	store := newFakeCommunityStore()
	service := NewCommunityService(store)
	ctx := context.Background()

	community, err := service.Create(ctx, "owner", models.CreateCommunityRequest{Name: "Club"})
	require.NoError(t, err)

	err = service.Delete(ctx, "intruder", community.ID)
	assertCode(t, err, apperrors.CodeForbidden)

	require.NoError(t, service.Delete(ctx, "owner", community.ID))
	assert.Equal(t, []string{community.ID}, store.deleted)
}
