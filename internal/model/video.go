package model

import "time"

// VideoStatus is the processing state of an uploaded video
type VideoStatus string

const (
	VideoUploading  VideoStatus = "UPLOADING"
	VideoProcessing VideoStatus = "PROCESSING"
	VideoReady      VideoStatus = "READY"
	VideoFailed     VideoStatus = "FAILED"
)

// Video upload limits
const (
	MaxVideoFileSize    = 100 << 20
	MaxVideosPerUpload  = 5
	MaxVideoTitleLength = 120
	MaxVideoTags        = 10
	MaxVideoTagLength   = 30
	MaxVideoDescWords   = 10000
	DefaultVideoTitle   = "Video tanpa judul"
)

// QualityRung is one rendition of the transcode ladder
type QualityRung struct {
	Name    string
	Height  int
	Bitrate string
}

// QualityLadder lists renditions from lowest to highest
var QualityLadder = []QualityRung{
	{Name: "144p", Height: 144, Bitrate: "200k"},
	{Name: "240p", Height: 240, Bitrate: "400k"},
	{Name: "360p", Height: 360, Bitrate: "800k"},
	{Name: "480p", Height: 480, Bitrate: "1200k"},
	{Name: "720p", Height: 720, Bitrate: "2500k"},
}

// RungsFor returns the renditions not taller than the source. A source of
// unknown height gets the lowest rung only.
func RungsFor(sourceHeight int) []QualityRung {
	if sourceHeight <= 0 {
		return QualityLadder[:1]
	}
	out := make([]QualityRung, 0, len(QualityLadder))
	for _, r := range QualityLadder {
		if r.Height <= sourceHeight {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		out = append(out, QualityLadder[0])
	}
	return out
}

// Video is an uploaded file and its renditions
type Video struct {
	ID           string            `json:"id"`
	UserID       string            `json:"user"`
	PostID       *string           `json:"post,omitempty"`
	Title        string            `json:"title"`
	Description  *string           `json:"description,omitempty"`
	Tags         []string          `json:"tags,omitempty"`
	OriginalURL  string            `json:"original_url"`
	ProcessedURL *string           `json:"processed_url,omitempty"`
	QualityURLs  map[string]string `json:"quality_urls,omitempty"`
	ThumbnailURL *string           `json:"thumbnail_url,omitempty"`
	Duration     *float64          `json:"duration,omitempty"`
	Width        *int              `json:"width,omitempty"`
	Height       *int              `json:"height,omitempty"`
	FileSize     int64             `json:"file_size"`
	Status       VideoStatus       `json:"status"`
	Progress     int               `json:"progress"`
	Error        *string           `json:"error,omitempty"`
	DeletedAt    *time.Time        `json:"deleted_at,omitempty"`
	CreatedOn    time.Time         `json:"created_on"`
	UpdatedOn    time.Time         `json:"updated_on"`
}

// IsDeleted reports whether the video was soft deleted
func (v *Video) IsDeleted() bool {
	return v.DeletedAt != nil
}

// VideoResponse is the API view of a video
type VideoResponse struct {
	ID           string            `json:"id"`
	PostID       *string           `json:"postId"`
	Title        string            `json:"title"`
	Description  *string           `json:"description"`
	Tags         []string          `json:"tags"`
	OriginalURL  string            `json:"originalUrl"`
	ProcessedURL *string           `json:"processedUrl"`
	QualityURLs  map[string]string `json:"qualityUrls"`
	ThumbnailURL *string           `json:"thumbnailUrl"`
	Duration     *float64          `json:"duration"`
	FileSize     int64             `json:"fileSize"`
	Width        *int              `json:"width"`
	Height       *int              `json:"height"`
	Status       VideoStatus       `json:"status"`
	Progress     int               `json:"progress"`
	Error        *string           `json:"error,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}

// ToResponse converts a video
func (v *Video) ToResponse() *VideoResponse {
	q := v.QualityURLs
	if q == nil {
		q = map[string]string{}
	}
	return &VideoResponse{
		ID:           v.ID,
		PostID:       v.PostID,
		Title:        v.Title,
		Description:  v.Description,
		Tags:         v.Tags,
		OriginalURL:  v.OriginalURL,
		ProcessedURL: v.ProcessedURL,
		QualityURLs:  q,
		ThumbnailURL: v.ThumbnailURL,
		Duration:     v.Duration,
		FileSize:     v.FileSize,
		Width:        v.Width,
		Height:       v.Height,
		Status:       v.Status,
		Progress:     v.Progress,
		Error:        v.Error,
		CreatedAt:    v.CreatedOn,
		UpdatedAt:    v.UpdatedOn,
	}
}

// VideoProgress is pushed to the owner while a job runs
type VideoProgress struct {
	VideoID  string      `json:"videoId"`
	Status   VideoStatus `json:"status"`
	Progress int         `json:"progress"`
	Quality  string      `json:"quality,omitempty"`
	Error    string      `json:"error,omitempty"`
}

// VideoUploadResult is the response of POST /videos/upload
type VideoUploadResult struct {
	Message string           `json:"message"`
	Items   []*VideoResponse `json:"items"`
}
