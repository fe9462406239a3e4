package model

import "time"

// AppStatus describes the review lifecycle of a persisted app.
type AppStatus string

const (
	StatusPendingReview AppStatus = "pending_review"
	StatusApproved      AppStatus = "approved"
	StatusRejected      AppStatus = "rejected"
)

// AppRecord is the row written once per successful submission. Pointer fields
// are nullable columns.
type AppRecord struct {
	ID               string      `json:"id"`
	Name             string      `json:"name"`
	ShortDescription string      `json:"short_description"`
	Description      string      `json:"description"`
	CategoryID       string      `json:"category_id"`
	Tags             []string    `json:"tags"`
	Version          string      `json:"version"`
	DeveloperID      string      `json:"developer_id"`
	LogoURL          string      `json:"logo_url"`
	FileURL          *string     `json:"file_url"`
	WebURL           *string     `json:"web_url"`
	PromoVideoURL    *string     `json:"promo_video_url"`
	BannerURL        *string     `json:"banner_url"`
	ScreenshotURLs   []string    `json:"screenshot_urls"`
	ReleaseNotes     *string     `json:"release_notes"`
	PrivacyPolicyURL *string     `json:"privacy_policy_url"`
	ReleaseType      ReleaseType `json:"release_type"`
	TestUsers        []string    `json:"test_users"`
	CollectFeedback  bool        `json:"collect_feedback"`
	FeedbackPrompt   *string     `json:"feedback_prompt"`
	Status           AppStatus   `json:"status"`
	CreatedAt        time.Time   `json:"created_at"`
}

// ObjectRef locates one uploaded object.
type ObjectRef struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

// NullIfEmpty maps "" to nil for nullable columns.
func NullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
