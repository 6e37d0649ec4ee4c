package model

import "time"

// Story limits
const (
	StoryTTL              = 24 * time.Hour
	MaxStoryFileSize      = 15 << 20
	MaxStoryVideoSeconds  = 120
	MaxStoriesPerUpload   = 10
	MaxStoryCaptionLength = 500
)

// Story is a short-lived image or video
type Story struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user"`
	MediaURL     string    `json:"media_url"`
	MediaType    MediaType `json:"media_type"`
	ThumbnailURL *string   `json:"thumbnail_url,omitempty"`
	Duration     *float64  `json:"duration,omitempty"`
	Caption      *string   `json:"caption,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
	CreatedOn    time.Time `json:"created_on"`
}

// IsExpired reports whether the story is past its lifetime at now
func (s *Story) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// StoryView records that UserID has seen StoryID
type StoryView struct {
	ID        string    `json:"id"`
	StoryID   string    `json:"story"`
	UserID    string    `json:"user"`
	CreatedOn time.Time `json:"created_on"`
}

// StoryResponse is a story decorated for the viewer
type StoryResponse struct {
	ID           string    `json:"id"`
	MediaURL     string    `json:"mediaUrl"`
	MediaType    MediaType `json:"mediaType"`
	ThumbnailURL *string   `json:"thumbnailUrl"`
	Duration     *float64  `json:"duration"`
	Caption      *string   `json:"caption"`
	ExpiresAt    time.Time `json:"expiresAt"`
	CreatedAt    time.Time `json:"createdAt"`
	IsSeen       bool      `json:"isSeen"`
	ViewCount    int       `json:"viewCount,omitempty"`
}

// StoryGroup is all unexpired stories of one author
type StoryGroup struct {
	User      *UserSummary     `json:"user"`
	Stories   []*StoryResponse `json:"stories"`
	HasUnseen bool             `json:"hasUnseen"`
	IsOwn     bool             `json:"isOwn"`
	LatestAt  time.Time        `json:"latestAt"`
}

// StoryViewer is one row of GET /stories/{id}/viewers
type StoryViewer struct {
	User     *UserSummary `json:"user"`
	ViewedAt time.Time    `json:"viewedAt"`
}

// PresignFile describes a file the client intends to upload
type PresignFile struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// PresignRequest is the body of POST /stories/presigned-urls
type PresignRequest struct {
	Files []PresignFile `json:"files"`
}

// PresignedUpload is an upload target on the media store
type PresignedUpload struct {
	FileName  string    `json:"fileName"`
	Key       string    `json:"key"`
	UploadURL string    `json:"uploadUrl"`
	PublicURL string    `json:"publicUrl"`
	Method    string    `json:"method"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// StoryFromURL is one item of POST /stories/from-urls
type StoryFromURL struct {
	MediaURL  string    `json:"mediaUrl"`
	MediaType MediaType `json:"mediaType"`
	Caption   *string   `json:"caption,omitempty"`
	Duration  *float64  `json:"duration,omitempty"`
}

// StoriesFromURLsRequest is the body of POST /stories/from-urls
type StoriesFromURLsRequest struct {
	Items []StoryFromURL `json:"items"`
}
