package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"communehub-api/apperrors"
	"communehub-api/models"
	"communehub-api/repositories"
	"communehub-api/utils"
)

// CommunityService handles community CRUD. Membership lifecycle lives in
// MembershipService; this service only seeds the owner membership at creation.
type CommunityService struct {
	store repositories.CommunityStore
}

func NewCommunityService(store repositories.CommunityStore) *CommunityService {
	return &CommunityService{store: store}
}

func (s *CommunityService) Create(ctx context.Context, ownerID string, req models.CreateCommunityRequest) (*models.Community, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperrors.New(apperrors.CodeBadRequestInput, "community name is required")
	}
	if err := validatePricing(req.IsPaid, req.Price, req.Currency); err != nil {
		return nil, err
	}
	if err := validateCoordinates(req.Latitude, req.Longitude); err != nil {
		return nil, err
	}

	community := &models.Community{
		ID:          uuid.New().String(),
		Name:        name,
		Description: req.Description,
		OwnerID:     ownerID,
		IsPrivate:   req.IsPrivate,
		IsPaid:      req.IsPaid,
		Price:       req.Price,
		Currency:    req.Currency,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
	}
	community.Slug = utils.UniqueSlug(name, func(slug string) bool {
		return s.store.SlugTaken(ctx, slug)
	})

	err := s.store.CreateCommunityWithOwner(ctx, community, req.InterestIDs)
	if errors.Is(err, repositories.ErrDuplicateKey) {
		// Slug raced with a concurrent create; one retry with a fresh suffix.
		community.Slug = utils.UniqueSlug(name, func(slug string) bool {
			return s.store.SlugTaken(ctx, slug)
		})
		err = s.store.CreateCommunityWithOwner(ctx, community, req.InterestIDs)
	}
	if err != nil {
		return nil, wrapInternal(err)
	}
	return s.store.GetCommunityByID(ctx, community.ID)
}

func (s *CommunityService) Get(ctx context.Context, id string) (*models.Community, error) {
	community, err := s.store.GetCommunityByID(ctx, id)
	if err != nil {
		return nil, wrapInternal(err)
	}
	return community, nil
}

func (s *CommunityService) GetBySlug(ctx context.Context, slug string) (*models.Community, error) {
	community, err := s.store.GetCommunityBySlug(ctx, slug)
	if err != nil {
		return nil, wrapInternal(err)
	}
	return community, nil
}

// Update applies the non-nil fields of req. Owner only; pricing is immutable
// after creation so paid members never see the terms change under them.
func (s *CommunityService) Update(ctx context.Context, actorUserID, communityID string, req models.UpdateCommunityRequest) (*models.Community, error) {
	community, err := s.store.GetCommunityByID(ctx, communityID)
	if err != nil {
		return nil, wrapInternal(err)
	}
	if community.OwnerID != actorUserID {
		return nil, apperrors.New(apperrors.CodeForbidden, "only the owner can update the community")
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, apperrors.New(apperrors.CodeBadRequestInput, "community name cannot be empty")
		}
		community.Name = name
	}
	if req.Description != nil {
		community.Description = *req.Description
	}
	if req.IsPrivate != nil {
		community.IsPrivate = *req.IsPrivate
	}
	if req.Latitude != nil || req.Longitude != nil {
		if err := validateCoordinates(req.Latitude, req.Longitude); err != nil {
			return nil, err
		}
		community.Latitude = req.Latitude
		community.Longitude = req.Longitude
	}

	if err := s.store.UpdateCommunity(ctx, community, req.InterestIDs); err != nil {
		return nil, wrapInternal(err)
	}
	return s.store.GetCommunityByID(ctx, communityID)
}

func (s *CommunityService) Delete(ctx context.Context, actorUserID, communityID string) error {
	community, err := s.store.GetCommunityByID(ctx, communityID)
	if err != nil {
		return wrapInternal(err)
	}
	if community.OwnerID != actorUserID {
		return apperrors.New(apperrors.CodeForbidden, "only the owner can delete the community")
	}
	if err := s.store.DeleteCommunity(ctx, communityID); err != nil {
		return wrapInternal(err)
	}
	return nil
}

// validatePricing enforces that price and currency are present exactly when
// the community is paid.
func validatePricing(isPaid bool, price *float64, currency *string) error {
	if isPaid {
		if price == nil || *price <= 0 {
			return apperrors.New(apperrors.CodeBadRequestInput, "paid communities require a positive price")
		}
		if currency == nil || strings.TrimSpace(*currency) == "" {
			return apperrors.New(apperrors.CodeBadRequestInput, "paid communities require a currency")
		}
		return nil
	}
	if price != nil || currency != nil {
		return apperrors.New(apperrors.CodeBadRequestInput, "price and currency are only valid for paid communities")
	}
	return nil
}

// validateCoordinates requires latitude and longitude together, each in range.
func validateCoordinates(lat, lng *float64) error {
	if lat == nil && lng == nil {
		return nil
	}
	if lat == nil || lng == nil {
		return apperrors.New(apperrors.CodeBadRequestInput, "latitude and longitude must be provided together")
	}
	if !utils.IsValidLatitude(*lat) || !utils.IsValidLongitude(*lng) {
		return apperrors.New(apperrors.CodeBadRequestInput, "coordinates out of range")
	}
	return nil
}
