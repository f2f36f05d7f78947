// Package youtube wraps the YouTube Data API v3 for the three listing
// operations the session core consumes: the direct rated-video listing,
// the playlist-indirection listing, and batch metadata resolution.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"golang.org/x/oauth2"

	"github.com/ratewatch/rated-history-go/internal/models"
)

// listParts are the response parts every listing call requests. Status
// and statistics feed the availability heuristics.
var listParts = []string{"snippet", "contentDetails", "statistics", "status"}

// MaxBatchSize is the API's hard limit on ids per metadata call.
const MaxBatchSize = 50

// Rating values accepted by the rated-video listing.
const (
	RatingLike    = "like"
	RatingDislike = "dislike"
)

// Client wraps the YouTube Data API v3 client. The token source is
// consulted on every request, so a credential superseded or purged in
// the store is picked up without rebuilding the client.
type Client struct {
	service  *youtube.Service
	pageSize int64
}

// NewClient creates a YouTube API client authenticating through the
// given token source.
func NewClient(ctx context.Context, ts oauth2.TokenSource, pageSize int64) (*Client, error) {
	if ts == nil {
		return nil, fmt.Errorf("token source is required")
	}
	if pageSize <= 0 || pageSize > MaxBatchSize {
		pageSize = MaxBatchSize
	}

	service, err := youtube.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}

	return &Client{service: service, pageSize: pageSize}, nil
}

// ListRated fetches one page of videos the user rated with the given
// rating, full metadata included. The service silently caps how deep
// this listing can paginate, so TotalApprox is advisory only.
func (c *Client) ListRated(ctx context.Context, rating, cursor string) (*models.Page, error) {
	call := c.service.Videos.List(listParts).
		MyRating(rating).
		MaxResults(c.pageSize).
		PageToken(cursor).
		Context(ctx)

	response, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("list rated videos: %w", err)
	}

	items := make([]*models.VideoRecord, 0, len(response.Items))
	for _, item := range response.Items {
		items = append(items, mapVideo(item))
	}

	page := &models.Page{
		Items:      items,
		NextCursor: response.NextPageToken,
	}
	if response.PageInfo != nil {
		page.TotalApprox = response.PageInfo.TotalResults
	}

	return page, nil
}

// ListPlaylistItems fetches one page of item ids from a playlist, in
// playlist order.
func (c *Client) ListPlaylistItems(ctx context.Context, playlistID, cursor string) (*models.IDPage, error) {
	call := c.service.PlaylistItems.List([]string{"contentDetails"}).
		PlaylistId(playlistID).
		MaxResults(c.pageSize).
		PageToken(cursor).
		Context(ctx)

	response, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("list playlist items: %w", err)
	}

	ids := make([]string, 0, len(response.Items))
	for _, item := range response.Items {
		if item.ContentDetails != nil && item.ContentDetails.VideoId != "" {
			ids = append(ids, item.ContentDetails.VideoId)
		}
	}

	page := &models.IDPage{
		IDs:        ids,
		NextCursor: response.NextPageToken,
	}
	if response.PageInfo != nil {
		page.TotalApprox = response.PageInfo.TotalResults
	}

	return page, nil
}

// VideosByIDs resolves full metadata for up to MaxBatchSize video ids.
// The response order is unrelated to the request order and ids of gone
// videos may be missing entirely; callers re-project as needed.
func (c *Client) VideosByIDs(ctx context.Context, ids []string) ([]*models.VideoRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > MaxBatchSize {
		return nil, fmt.Errorf("too many video ids (max %d, got %d)", MaxBatchSize, len(ids))
	}

	call := c.service.Videos.List(listParts).Id(ids...).Context(ctx)

	response, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("fetch videos by id: %w", err)
	}

	records := make([]*models.VideoRecord, 0, len(response.Items))
	for _, item := range response.Items {
		records = append(records, mapVideo(item))
	}

	return records, nil
}

// IsUnauthorized reports whether the error is the API's "credentials
// missing, expired or revoked" response.
func IsUnauthorized(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == 401
}

// mapVideo converts an API video item to the collection record model.
func mapVideo(video *youtube.Video) *models.VideoRecord {
	record := &models.VideoRecord{
		ID: video.Id,
	}

	if video.Snippet != nil {
		record.HasSnippet = true
		record.Title = video.Snippet.Title
		record.ChannelTitle = video.Snippet.ChannelTitle
		record.ChannelID = video.Snippet.ChannelId
		record.CategoryID = video.Snippet.CategoryId

		if t, err := time.Parse(time.RFC3339, video.Snippet.PublishedAt); err == nil {
			record.PublishedAt = t
		}

		if video.Snippet.Thumbnails != nil {
			record.ThumbnailCount = countThumbnails(video.Snippet.Thumbnails)
			record.ThumbnailURL = pickThumbnail(video.Snippet.Thumbnails)
		}
	}

	if video.ContentDetails != nil {
		record.Duration = video.ContentDetails.Duration
	}

	if video.Statistics != nil {
		record.HasStatistics = true
		record.ViewCount = int64(video.Statistics.ViewCount)
		record.CommentCount = int64(video.Statistics.CommentCount)
	}

	if video.Status != nil {
		record.UploadStatus = video.Status.UploadStatus
		record.PrivacyStatus = video.Status.PrivacyStatus
	}

	return record
}

func countThumbnails(t *youtube.ThumbnailDetails) int {
	count := 0
	for _, thumb := range []*youtube.Thumbnail{t.Default, t.Medium, t.High, t.Standard, t.Maxres} {
		if thumb != nil {
			count++
		}
	}
	return count
}

// pickThumbnail prefers the medium size and falls back to default,
// matching what the rendering layer displays.
func pickThumbnail(t *youtube.ThumbnailDetails) string {
	if t.Medium != nil {
		return t.Medium.Url
	}
	if t.Default != nil {
		return t.Default.Url
	}
	return ""
}
