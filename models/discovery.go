package models

type SortBy string

const (
	SortByRelevance   SortBy = "RELEVANCE"
	SortByTrending    SortBy = "TRENDING"
	SortByCreatedAt   SortBy = "CREATED_AT"
	SortByMemberCount SortBy = "MEMBER_COUNT"
	SortByActivity    SortBy = "ACTIVITY"
)

func (s SortBy) Valid() bool {
	switch s {
	case SortByRelevance, SortByTrending, SortByCreatedAt, SortByMemberCount, SortByActivity:
		return true
	}
	return false
}

// Scored reports whether this sort re-ranks the candidate set with a computed
// score rather than a single stored-field comparator.
func (s SortBy) Scored() bool {
	return s == SortByRelevance || s == SortByTrending
}

type SortOrder string

const (
	SortOrderAsc  SortOrder = "ASC"
	SortOrderDesc SortOrder = "DESC"
)

func (s SortOrder) Valid() bool {
	return s == SortOrderAsc || s == SortOrderDesc
}

// Tier labels the retrieval stage that contributed a candidate. Tiers are
// disjoint: a community id belongs to at most one of them per request.
type Tier string

const (
	TierInterest Tier = "INTEREST"
	TierFilter   Tier = "FILTER"
	TierNearby   Tier = "NEARBY"
	TierTrending Tier = "TRENDING"
	TierCatchAll Tier = "CATCH_ALL"
)

// DiscoveryQuery carries the caller-supplied knobs for discover/search/recommend.
type DiscoveryQuery struct {
	Query         string    `form:"q"`
	Limit         int       `form:"limit"`
	Cursor        string    `form:"cursor"`
	SortBy        SortBy    `form:"sort_by"`
	SortOrder     SortOrder `form:"sort_order"`
	InterestIDs   []string  `form:"interest_ids"`
	MaxDistanceKm float64   `form:"max_distance_km"`
}

// Candidate is a community paired with its tier and computed score for the
// duration of one discovery request. Never persisted.
type Candidate struct {
	Community Community `json:"community"`
	Tier      Tier      `json:"tier"`
	Score     float64   `json:"score"`
	// DistanceKm is set only for location-aware requests where both the user
	// and the community have coordinates.
	DistanceKm *float64 `json:"distance_km,omitempty"`
}
