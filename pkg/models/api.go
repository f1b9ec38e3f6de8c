package models

import (
	"time"

	"github.com/google/uuid"
)

// CreateSessionRequest is the body of POST /api/session.
type CreateSessionRequest struct {
	UserID  string                 `json:"userId" validate:"required"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// CreateSessionResponse is the success body of POST /api/session.
type CreateSessionResponse struct {
	Success       bool                 `json:"success"`
	SessionID     uuid.UUID            `json:"session_id"`
	Algorithm     string               `json:"algorithm"`
	Configuration SessionConfiguration `json:"configuration"`
}

type SessionConfiguration struct {
	Alpha               float64 `json:"alpha"`
	FeatureDimensions   int     `json:"feature_dimensions"`
	ExplorationStrategy string  `json:"exploration_strategy"`
}

// RecommendFilters are the query-string filters accepted by the single
// and batch recommend endpoints.
type RecommendFilters struct {
	MinPrice *float64 `json:"minPrice,omitempty"`
	MaxPrice *float64 `json:"maxPrice,omitempty"`
	Category string   `json:"category,omitempty"`
	Limit    int      `json:"limit,omitempty"`
}

// RecommendedProduct is a single scored recommendation in the response.
type RecommendedProduct struct {
	Product          *Product `json:"product"`
	ConfidenceScore  float64  `json:"confidence_score"`
	BaseScore        float64  `json:"base_score"`
	DiversityBonus   float64  `json:"diversity_bonus"`
	ExplorationBonus float64  `json:"exploration_bonus"`
	Algorithm        string   `json:"algorithm"`
	Reasoning        string   `json:"reasoning"`
}

// RecommendResponse is the success body of GET /api/recommend/{sessionId}.
type RecommendResponse struct {
	Success         bool                 `json:"success"`
	Recommendation  *RecommendedProduct  `json:"recommendation,omitempty"`
	Recommendations []RecommendedProduct `json:"recommendations,omitempty"`
	Partial         bool                 `json:"partial,omitempty"`
	UserStats       UserStats            `json:"user_stats"`
	DiversityInfo   DiversityInfo        `json:"diversity_info"`
	FiltersApplied  RecommendFilters     `json:"filters_applied"`
}

type UserStats struct {
	ProductsSeen      int    `json:"products_seen"`
	TotalInteractions int    `json:"total_interactions"`
	ConfidenceTier    string `json:"confidence_tier"`
}

type DiversityInfo struct {
	ExcludedProducts []string `json:"excluded_products"`
	AvoidedCategory  string   `json:"avoided_category,omitempty"`
	AvoidedColor     string   `json:"avoided_color,omitempty"`
	AvoidedBrand     string   `json:"avoided_brand,omitempty"`
}

// BatchRecommendItem is one entry of the batch recommend request.
type BatchRecommendItem struct {
	SessionID string           `json:"sessionId" validate:"required"`
	Count     int              `json:"count,omitempty"`
	Filters   RecommendFilters `json:"filters,omitempty"`
}

type BatchRecommendRequest struct {
	Requests       []BatchRecommendItem   `json:"requests" validate:"required,min=1,max=10"`
	GlobalSettings map[string]interface{} `json:"globalSettings,omitempty"`
}

type BatchRecommendResult struct {
	SessionID string             `json:"session_id"`
	Success   bool               `json:"success"`
	Error     string             `json:"error,omitempty"`
	Response  *RecommendResponse `json:"response,omitempty"`
}

type BatchRecommendResponse struct {
	Success bool                   `json:"success"`
	Results []BatchRecommendResult `json:"results"`
}

// FeedbackRequest is the body of POST /api/feedback.
type FeedbackRequest struct {
	SessionID      string                 `json:"session_id" validate:"required"`
	ProductID      string                 `json:"product_id" validate:"required"`
	Action         string                 `json:"action" validate:"required"`
	Context        map[string]interface{} `json:"context,omitempty"`
	IdempotencyKey string                 `json:"idempotency_key,omitempty"`
}

type LearningUpdate struct {
	ScoreBefore float64 `json:"score_before"`
	ScoreAfter  float64 `json:"score_after"`
	Reward      float64 `json:"reward"`
	Alpha       float64 `json:"alpha"`
}

type UserInsights struct {
	TopPositiveSlots []string `json:"top_positive_slots"`
	TopNegativeSlots []string `json:"top_negative_slots"`
	ConfidenceTier   string   `json:"confidence_tier"`
	NormTheta        float64  `json:"norm_theta"`
}

type DiversityStats struct {
	SeenCategories int `json:"seen_categories"`
	SeenColors     int `json:"seen_colors"`
	SeenBrands     int `json:"seen_brands"`
}

type ScoreEvolution struct {
	ScoreBefore float64 `json:"score_before"`
	ScoreAfter  float64 `json:"score_after"`
	Delta       float64 `json:"delta"`
}

// FeedbackResponse is the success body of POST /api/feedback.
type FeedbackResponse struct {
	Success        bool           `json:"success"`
	LearningUpdate LearningUpdate `json:"learning_update"`
	UserInsights   UserInsights   `json:"user_insights"`
	DiversityStats DiversityStats `json:"diversity_stats"`
	ScoreEvolution ScoreEvolution `json:"score_evolution"`
}

// BatchFeedbackOptions are the per-call behavior toggles of the batch
// feedback endpoint.
type BatchFeedbackOptions struct {
	ContinueOnError        bool `json:"continueOnError"`
	UpdateModelImmediately bool `json:"updateModelImmediately"`
	IgnoreConflicts        bool `json:"ignoreConflicts"`
}

type BatchFeedbackItem struct {
	SessionID      string                 `json:"session_id" validate:"required"`
	ProductID      string                 `json:"product_id" validate:"required"`
	Action         string                 `json:"action" validate:"required"`
	Context        map[string]interface{} `json:"context,omitempty"`
	IdempotencyKey string                 `json:"idempotency_key,omitempty"`
}

type BatchFeedbackRequest struct {
	Items   []BatchFeedbackItem  `json:"items" validate:"required,min=1,max=50"`
	Options BatchFeedbackOptions `json:"options,omitempty"`
}

type BatchFeedbackError struct {
	Index   int    `json:"index"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

type BatchFeedbackResponse struct {
	SuccessfulFeedbacks int                  `json:"successful_feedbacks"`
	FailedFeedbacks     int                  `json:"failed_feedbacks"`
	Results             []FeedbackResponse   `json:"results"`
	Errors              []BatchFeedbackError `json:"errors,omitempty"`
}

// ErrorResponse is the common error envelope shape from spec §6/§7.
type ErrorResponse struct {
	Success           bool        `json:"success"`
	Error             string      `json:"error"`
	Message           string      `json:"message"`
	ConflictInfo      interface{} `json:"conflict_info,omitempty"`
	RetryAfterSeconds *int        `json:"retry_after_seconds,omitempty"`
	Details           interface{} `json:"details,omitempty"`
	Timestamp         *time.Time  `json:"timestamp,omitempty"`
}
