// Package models contains the data models and DTOs for the rated-history service.
package models

import (
	"time"
)

// RatingMode selects which of the two rated-video listings the session shows.
// The two modes are mutually exclusive; switching resets the collection.
type RatingMode string

// RatingMode constants define the supported listing modes.
const (
	// ModeDislikes lists disliked videos directly via the rating listing.
	ModeDislikes RatingMode = "dislikes"
	// ModeLikes lists liked videos through the liked-videos playlist,
	// which only yields ids and needs a second metadata call.
	ModeLikes RatingMode = "likes"
)

// Valid reports whether the mode is one of the supported listing modes.
func (m RatingMode) Valid() bool {
	return m == ModeDislikes || m == ModeLikes
}

// SortKey identifies a comparator for the filter/sort pipeline.
type SortKey string

// SortKey constants define the supported sort orders.
const (
	SortRecency          SortKey = "recency"
	SortDurationDesc     SortKey = "duration-desc"
	SortUploadOldest     SortKey = "upload-oldest"
	SortCommentsDesc     SortKey = "comments-desc"
	SortViewsDesc        SortKey = "views-desc"
	SortChannelAZ        SortKey = "channel-az"
	SortTitleAZ          SortKey = "title-az"
	SortUnavailableFirst SortKey = "unavailable-first"
	SortMusicLast        SortKey = "music-last"
)

// Valid reports whether the sort key is one of the supported comparators.
func (k SortKey) Valid() bool {
	switch k {
	case SortRecency, SortDurationDesc, SortUploadOldest, SortCommentsDesc,
		SortViewsDesc, SortChannelAZ, SortTitleAZ, SortUnavailableFirst, SortMusicLast:
		return true
	}
	return false
}

// MusicCategoryID is the YouTube category id for music videos.
const MusicCategoryID = "10"

// VideoRecord is one entry of the rated-video collection. Records are
// created when a listing page arrives and live until the collection is
// reset by a mode switch or sign-out.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type VideoRecord struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	ChannelTitle  string    `json:"channel_title"`
	ChannelID     string    `json:"channel_id,omitempty"`
	CategoryID    string    `json:"category_id"`
	PublishedAt   time.Time `json:"published_at"`
	Duration      string    `json:"duration"`
	ViewCount     int64     `json:"view_count"`
	CommentCount  int64     `json:"comment_count"`
	UploadStatus  string    `json:"upload_status,omitempty"`
	PrivacyStatus string    `json:"privacy_status,omitempty"`
	ThumbnailURL  string    `json:"thumbnail_url,omitempty"`

	// HasSnippet, HasStatistics and ThumbnailCount mirror what the
	// remote service actually returned; all three feed the
	// availability heuristics.
	HasSnippet     bool `json:"has_snippet"`
	HasStatistics  bool `json:"has_statistics"`
	ThumbnailCount int  `json:"thumbnail_count"`

	// KnownUnavailable is set by the rendering layer when it observes an
	// unreachable thumbnail. Once set it is never cleared for the
	// lifetime of the record.
	KnownUnavailable bool `json:"known_unavailable"`
}

// WatchURL returns the public watch URL for the video.
func (v *VideoRecord) WatchURL() string {
	return "https://www.youtube.com/watch?v=" + v.ID
}

// Page is the result of one listing call: the records in server order,
// the continuation cursor (empty means no further pages) and the
// server's approximate total.
type Page struct {
	Items       []*VideoRecord `json:"items"`
	NextCursor  string         `json:"next_cursor"`
	TotalApprox int64          `json:"total_approx"`
}

// IDPage is the result of one playlist-indirection listing call: item
// ids only, in playlist order.
type IDPage struct {
	IDs         []string `json:"ids"`
	NextCursor  string   `json:"next_cursor"`
	TotalApprox int64    `json:"total_approx"`
}

// Credential is the single bearer credential of the session, persisted
// wholesale and superseded wholesale on re-authentication.
type Credential struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// ExpiresWithin reports whether the credential expires within the given
// margin of now.
func (c *Credential) ExpiresWithin(now time.Time, margin time.Duration) bool {
	return !c.ExpiresAt.After(now.Add(margin))
}

// UserError is the single user-visible error slot of the view state.
// The latest error overwrites any prior one.
type UserError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// ViewState is the derived, never persisted projection the rendering
// layer reflects. It is rebuilt on every collection, search-term or
// sort-key change.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type ViewState struct {
	Phase          string        `json:"phase"`
	Authenticated  bool          `json:"authenticated"`
	Mode           RatingMode    `json:"mode"`
	SearchTerm     string        `json:"search_term"`
	ActiveTerm     string        `json:"active_term"`
	SortKey        SortKey       `json:"sort_key"`
	Loading        bool          `json:"loading"`
	LoadingMore    bool          `json:"loading_more"`
	FetchingAll    bool          `json:"fetching_all"`
	ShowInsights   bool          `json:"show_insights"`
	Videos         []VideoRecord `json:"videos"`
	ResultCount    int           `json:"result_count"`
	CollectionSize int           `json:"collection_size"`
	HasMore        bool          `json:"has_more"`
	TotalApprox    int64         `json:"total_approx"`
	Error          *UserError    `json:"error,omitempty"`
}

// ChannelStat is one ranked entry of the per-channel breakdown.
// ChannelID is empty for buckets built from unavailable records, so the
// rendering layer never links to a channel that may be gone.
type ChannelStat struct {
	ChannelTitle string `json:"channel_title"`
	ChannelID    string `json:"channel_id,omitempty"`
	Count        int    `json:"count"`
}

// CategoryStat is one ranked entry of the per-category breakdown.
// Percent is relative to the full collection, not the filtered view.
type CategoryStat struct {
	CategoryID string  `json:"category_id"`
	Count      int     `json:"count"`
	Percent    float64 `json:"percent"`
}

// AnalyticsSnapshot is the derived per-channel and per-category
// breakdown of the raw collection. Recomputed on demand, never stored.
type AnalyticsSnapshot struct {
	Channels   []ChannelStat  `json:"channels"`
	Categories []CategoryStat `json:"categories"`
	TotalSize  int            `json:"total_size"`
}

// ErrorResponse represents an error response.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type ErrorResponse struct {
	Timestamp time.Time `json:"timestamp"`
	Status    int       `json:"status"`
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Path      string    `json:"path"`
}
