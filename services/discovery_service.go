package services

import (
	"context"
	"math"
	"strings"
	"time"

	"communehub-api/apperrors"
	"communehub-api/models"
	"communehub-api/pagination"
	"communehub-api/repositories"
)

const (
	defaultPageSize = 20

	// tierFetchLimit caps every per-tier candidate query; scoring happens in
	// memory, so the fetch size has to stay bounded.
	tierFetchLimit = 200

	// recommendFetchLimit keeps the recommendation feed cheaper than full discovery.
	recommendFetchLimit = 60

	searchOverfetchFactor = 3
	searchOverfetchCap    = 300

	// proximityRadiusKm bounds the inverse-distance bonus when the caller
	// supplies no max distance.
	proximityRadiusKm = 100.0

	earthRadiusKm = 6371.0
)

// DiscoveryService builds ranked community lists with a tiered retrieval
// strategy: interest match, caller filters, trending, then everything else.
// Tier order only decides retrieval and exclusion; the final order comes from
// the caller-selected score or comparator over the whole deduplicated set.
type DiscoveryService struct {
	store repositories.DiscoveryStore
	stats repositories.StatsProvider
}

func NewDiscoveryService(store repositories.DiscoveryStore, stats repositories.StatsProvider) *DiscoveryService {
	return &DiscoveryService{
		store: store,
		stats: stats,
	}
}

// Discover returns the ranked, paginated list of communities the user has not
// joined, drawn from all four tiers.
func (s *DiscoveryService) Discover(ctx context.Context, userID string, q models.DiscoveryQuery) (*models.CommunityConnection, error) {
	cur, err := normalizeQuery(&q)
	if err != nil {
		return nil, err
	}

	user, err := s.store.GetUserWithInterests(ctx, userID)
	if err != nil {
		return nil, wrapInternal(err)
	}

	candidates, err := s.assembleTiers(ctx, user, q, false)
	if err != nil {
		return nil, wrapInternal(err)
	}

	// A user with neither interests nor location gets a popularity-only
	// listing instead of a relevance ranking that would have nothing to rank on.
	if q.SortBy == models.SortByRelevance && len(user.Interests) == 0 && !user.HasLocation() {
		q.SortBy = models.SortByMemberCount
	}

	return s.rankAndPage(ctx, user, candidates, q, cur)
}

// Recommend is the cheaper recommendation feed: interest and trending tiers
// only, always relevance-ranked.
func (s *DiscoveryService) Recommend(ctx context.Context, userID string, q models.DiscoveryQuery) (*models.CommunityConnection, error) {
	q.SortBy = models.SortByRelevance
	q.SortOrder = models.SortOrderDesc
	cur, err := normalizeQuery(&q)
	if err != nil {
		return nil, err
	}

	user, err := s.store.GetUserWithInterests(ctx, userID)
	if err != nil {
		return nil, wrapInternal(err)
	}

	candidates, err := s.assembleTiers(ctx, user, q, true)
	if err != nil {
		return nil, wrapInternal(err)
	}
	if len(user.Interests) == 0 && !user.HasLocation() {
		q.SortBy = models.SortByMemberCount
	}

	return s.rankAndPage(ctx, user, candidates, q, cur)
}

// Search matches the query against community names and descriptions. For the
// relevance sort the ranking cannot be expressed as one store-side ordering,
// so an over-fetch window is re-ranked in memory.
func (s *DiscoveryService) Search(ctx context.Context, userID string, q models.DiscoveryQuery) (*models.CommunityConnection, error) {
	if strings.TrimSpace(q.Query) == "" {
		return nil, apperrors.New(apperrors.CodeBadRequestInput, "search query is required")
	}
	cur, err := normalizeQuery(&q)
	if err != nil {
		return nil, err
	}

	user, err := s.store.GetUserWithInterests(ctx, userID)
	if err != nil {
		return nil, wrapInternal(err)
	}

	exclude, err := s.store.MembershipCommunityIDs(ctx, userID)
	if err != nil {
		return nil, wrapInternal(err)
	}

	window := q.Limit * searchOverfetchFactor
	if window > searchOverfetchCap {
		window = searchOverfetchCap
	}
	communities, err := s.store.SearchCommunities(ctx, q.Query, exclude, window)
	if err != nil {
		return nil, wrapInternal(err)
	}

	candidates := make([]models.Candidate, 0, len(communities))
	for _, c := range communities {
		candidates = append(candidates, models.Candidate{Community: c, Tier: models.TierCatchAll})
	}

	return s.rankAndPage(ctx, user, candidates, q, cur)
}

// assembleTiers runs the tier queries in order. Each tier excludes every id
// already claimed by the user's memberships or by a higher tier, which keeps
// the tiers disjoint by construction.
func (s *DiscoveryService) assembleTiers(ctx context.Context, user *models.User, q models.DiscoveryQuery, recommendOnly bool) ([]models.Candidate, error) {
	claimed := make(map[string]bool)
	memberOf, err := s.store.MembershipCommunityIDs(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	for _, id := range memberOf {
		claimed[id] = true
	}

	fetchLimit := tierFetchLimit
	if recommendOnly {
		fetchLimit = recommendFetchLimit
	}

	var candidates []models.Candidate
	add := func(communities []models.Community, tier models.Tier) {
		for _, c := range communities {
			if claimed[c.ID] {
				continue
			}
			claimed[c.ID] = true
			candidates = append(candidates, models.Candidate{Community: c, Tier: tier})
		}
	}
	excluded := func() []string {
		ids := make([]string, 0, len(claimed))
		for id := range claimed {
			ids = append(ids, id)
		}
		return ids
	}

	userInterestIDs := make([]string, 0, len(user.Interests))
	for _, it := range user.Interests {
		userInterestIDs = append(userInterestIDs, it.ID)
	}

	// Tier 1: onboarding interest match. With no interests but a location,
	// distance takes over the role of the interest filter.
	if len(userInterestIDs) > 0 {
		communities, err := s.store.CommunitiesByInterests(ctx, userInterestIDs, excluded(), fetchLimit)
		if err != nil {
			return nil, err
		}
		add(communities, models.TierInterest)
	} else if user.HasLocation() {
		communities, err := s.store.LocatedCommunities(ctx, excluded(), fetchLimit)
		if err != nil {
			return nil, err
		}
		add(communities, models.TierNearby)
	}

	// Tier 2: caller-supplied interest filters, only when they differ from
	// the onboarding interests (identical filters would collapse into tier 1).
	if len(q.InterestIDs) > 0 && !sameIDSet(q.InterestIDs, userInterestIDs) {
		communities, err := s.store.CommunitiesByInterests(ctx, q.InterestIDs, excluded(), fetchLimit)
		if err != nil {
			return nil, err
		}
		add(communities, models.TierFilter)
	}

	// Tier 3: trending regardless of interest match.
	communities, err := s.store.TrendingCommunities(ctx, excluded(), fetchLimit)
	if err != nil {
		return nil, err
	}
	add(communities, models.TierTrending)

	// Tier 4: everything else, newest first.
	if !recommendOnly {
		communities, err := s.store.RecentCommunities(ctx, excluded(), fetchLimit)
		if err != nil {
			return nil, err
		}
		add(communities, models.TierCatchAll)
	}

	return candidates, nil
}

// rankAndPage attaches stats, applies the location filter, scores or sorts
// the whole candidate set and slices one page.
func (s *DiscoveryService) rankAndPage(ctx context.Context, user *models.User, candidates []models.Candidate, q models.DiscoveryQuery, cur pagination.Cursor) (*models.CommunityConnection, error) {
	if err := s.attachStats(ctx, candidates); err != nil {
		return nil, wrapInternal(err)
	}
	candidates = applyLocation(user, candidates, q.MaxDistanceKm)

	now := time.Now()
	if q.SortBy.Scored() {
		for i := range candidates {
			candidates[i].Score = s.score(user, &candidates[i], q, now)
		}
	}

	ordering := sortOrdering(q)
	pagination.Sort(candidates, ordering, candidateValue)

	page, err := pagination.Paginate(candidates, ordering, candidateValue, cur, q.Limit)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeBadRequestInput, "malformed cursor", err)
	}

	conn := &models.CommunityConnection{
		Edges: make([]models.CommunityEdge, 0, len(page.Items)),
		PageInfo: models.PageInfo{
			HasNextPage:     page.HasNextPage,
			HasPreviousPage: cur != nil,
			TotalCount:      len(candidates),
			Cursor:          page.EndCursor,
		},
	}
	for _, cand := range page.Items {
		conn.Edges = append(conn.Edges, models.CommunityEdge{
			Node:   cand.Community,
			Cursor: pagination.CursorFor(cand, ordering, candidateValue),
		})
	}
	return conn, nil
}

func (s *DiscoveryService) attachStats(ctx context.Context, candidates []models.Candidate) error {
	if s.stats == nil || len(candidates) == 0 {
		return nil
	}
	ids := make([]string, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.Community.ID)
	}
	statsByID, err := s.stats.StatsFor(ctx, ids)
	if err != nil {
		return err
	}
	for i := range candidates {
		if stats, ok := statsByID[candidates[i].Community.ID]; ok {
			candidates[i].Community.Stats = &stats
		}
	}
	return nil
}

// score computes the candidate's rank value for the scored sorts. RELEVANCE
// and TRENDING share the tie-breakers (member count, then id), which the
// ordering fields handle.
func (s *DiscoveryService) score(user *models.User, cand *models.Candidate, q models.DiscoveryQuery, now time.Time) float64 {
	c := &cand.Community
	stats := c.Stats

	var score float64
	switch q.SortBy {
	case models.SortByTrending:
		if stats != nil {
			score += 3 * float64(stats.WeeklyGrowth)
			score += 2 * float64(stats.RecentPosts)
			score += float64(stats.RecentReactions)
			if stats.LastPostAt != nil && now.Sub(*stats.LastPostAt) <= 48*time.Hour {
				score += 5
			}
		}
		score += float64(c.MemberCount) / 20

	default: // RELEVANCE
		score += 10 * float64(sharedInterestCount(user, c))
		score += float64(c.MemberCount) / 100
		if now.Sub(c.CreatedAt) <= 7*24*time.Hour {
			score += 10
		}
		if stats != nil && stats.LastPostAt != nil && now.Sub(*stats.LastPostAt) <= 72*time.Hour {
			score += 5
		}
		if !c.IsPaid {
			score += 2
		}
		if q.Query != "" {
			score += textMatchBonus(q.Query, c)
		}
	}

	if cand.DistanceKm != nil {
		score += proximityBonus(*cand.DistanceKm, q.MaxDistanceKm)
	}
	return score
}

func sharedInterestCount(user *models.User, c *models.Community) int {
	userSet := user.InterestIDSet()
	shared := 0
	for _, it := range c.Interests {
		if userSet[it.ID] {
			shared++
		}
	}
	return shared
}

// textMatchBonus rewards exact name matches over name substrings over
// description substrings, all case-insensitive.
func textMatchBonus(query string, c *models.Community) float64 {
	q := strings.ToLower(strings.TrimSpace(query))
	name := strings.ToLower(c.Name)
	switch {
	case name == q:
		return 20
	case strings.Contains(name, q):
		return 10
	case strings.Contains(strings.ToLower(c.Description), q):
		return 5
	default:
		return 0
	}
}

// proximityBonus adds up to 20 points, falling off linearly with distance.
func proximityBonus(distanceKm, maxDistanceKm float64) float64 {
	radius := proximityRadiusKm
	if maxDistanceKm > 0 {
		radius = maxDistanceKm
	}
	if distanceKm >= radius {
		return 0
	}
	return 20 * (1 - distanceKm/radius)
}

// applyLocation computes great-circle distances for located candidates and
// drops everything beyond maxDistanceKm when the caller set one.
func applyLocation(user *models.User, candidates []models.Candidate, maxDistanceKm float64) []models.Candidate {
	if !user.HasLocation() {
		return candidates
	}
	kept := candidates[:0]
	for _, cand := range candidates {
		c := cand.Community
		if c.Latitude != nil && c.Longitude != nil {
			d := greatCircleKm(*user.Latitude, *user.Longitude, *c.Latitude, *c.Longitude)
			cand.DistanceKm = &d
			if maxDistanceKm > 0 && d > maxDistanceKm {
				continue
			}
		}
		kept = append(kept, cand)
	}
	return kept
}

// greatCircleKm uses the spherical law of cosines. The acos argument is
// clamped against floating-point drift for near-identical points.
func greatCircleKm(lat1, lon1, lat2, lon2 float64) float64 {
	const rad = math.Pi / 180
	phi1 := lat1 * rad
	phi2 := lat2 * rad
	dLambda := (lon2 - lon1) * rad

	arg := math.Sin(phi1)*math.Sin(phi2) + math.Cos(phi1)*math.Cos(phi2)*math.Cos(dLambda)
	if arg > 1 {
		arg = 1
	} else if arg < -1 {
		arg = -1
	}
	return earthRadiusKm * math.Acos(arg)
}

// sortOrdering maps the request onto the composite ordering handed to the
// paginator. "id" always terminates the tuple for full determinism.
func sortOrdering(q models.DiscoveryQuery) []pagination.OrderField {
	desc := q.SortOrder != models.SortOrderAsc

	if q.SortBy.Scored() {
		return []pagination.OrderField{
			{Field: "score", Desc: desc},
			{Field: "member_count", Desc: true},
			{Field: "id"},
		}
	}

	var field string
	switch q.SortBy {
	case models.SortByCreatedAt:
		field = "created_at"
	case models.SortByMemberCount:
		field = "member_count"
	default: // ACTIVITY
		field = "activity"
	}
	return []pagination.OrderField{
		{Field: field, Desc: desc},
		{Field: "id"},
	}
}

func candidateValue(c models.Candidate, field string) interface{} {
	switch field {
	case "score":
		return c.Score
	case "member_count":
		return c.Community.MemberCount
	case "created_at":
		return c.Community.CreatedAt
	case "activity":
		if c.Community.Stats != nil && c.Community.Stats.LastPostAt != nil {
			return *c.Community.Stats.LastPostAt
		}
		return time.Time{}
	default:
		return c.Community.ID
	}
}

func sameIDSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]bool, len(a))
	for _, id := range a {
		set[id] = true
	}
	for _, id := range b {
		if !set[id] {
			return false
		}
	}
	return true
}

// normalizeQuery validates the caller-supplied knobs and decodes the cursor.
// A supplied-but-malformed cursor is a hard error, never a silent reset.
func normalizeQuery(q *models.DiscoveryQuery) (pagination.Cursor, error) {
	if q.Limit == 0 {
		q.Limit = defaultPageSize
	}
	if q.Limit < 1 || q.Limit > 100 {
		return nil, apperrors.New(apperrors.CodeBadRequestInput, "limit must be between 1 and 100")
	}
	if q.SortBy == "" {
		q.SortBy = models.SortByRelevance
	}
	if !q.SortBy.Valid() {
		return nil, apperrors.New(apperrors.CodeBadRequestInput, "unknown sort_by value")
	}
	if q.SortOrder == "" {
		q.SortOrder = models.SortOrderDesc
	}
	if !q.SortOrder.Valid() {
		return nil, apperrors.New(apperrors.CodeBadRequestInput, "unknown sort_order value")
	}
	cur, err := pagination.DecodeCursor(q.Cursor)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeBadRequestInput, "malformed cursor", err)
	}
	return cur, nil
}
