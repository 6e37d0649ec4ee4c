package model

import "time"

// PostType distinguishes plain posts from media and video posts
type PostType string

const (
	PostTypeText  PostType = "text"
	PostTypeMedia PostType = "media"
	PostTypeVideo PostType = "video"
)

// MediaType is the kind of an attached file
type MediaType string

const (
	MediaTypeImage    MediaType = "IMAGE"
	MediaTypeVideo    MediaType = "VIDEO"
	MediaTypeAudio    MediaType = "AUDIO"
	MediaTypeDocument MediaType = "DOCUMENT"
)

// Post limits
const (
	MaxPostWords      = 10000
	MaxPostMediaFiles = 10
	MaxPostTitle      = 200
)

// PostMedia is one attachment of a post
type PostMedia struct {
	URL       string    `json:"url"`
	Type      MediaType `json:"type"`
	Thumbnail *string   `json:"thumbnail,omitempty"`
	Duration  *float64  `json:"duration,omitempty"`
}

// Post is a feed entry
type Post struct {
	ID        string      `json:"id"`
	AuthorID  string      `json:"author"`
	Title     *string     `json:"title,omitempty"`
	Content   string      `json:"content"`
	Type      PostType    `json:"type"`
	Links     []string    `json:"links,omitempty"`
	Media     []PostMedia `json:"media,omitempty"`
	Hashtags  []string    `json:"hashtags,omitempty"`
	Mentions  []string    `json:"mentions,omitempty"`
	VideoID   *string     `json:"video,omitempty"`
	CreatedOn time.Time   `json:"created_on"`
	UpdatedOn time.Time   `json:"updated_on"`
}

// PostCounts are the computed counters of a post
type PostCounts struct {
	Likes     int `json:"likes"`
	Comments  int `json:"comments"`
	Bookmarks int `json:"bookmarks"`
}

// PostRow is a stored post with its computed counters
type PostRow struct {
	Post
	LikesCount     int `json:"likes_count"`
	CommentsCount  int `json:"comments_count"`
	BookmarksCount int `json:"bookmarks_count"`
}

// Counts returns the counters in API form
func (p *PostRow) Counts() PostCounts {
	return PostCounts{Likes: p.LikesCount, Comments: p.CommentsCount, Bookmarks: p.BookmarksCount}
}

// PostResponse is a post decorated for the requesting viewer
type PostResponse struct {
	ID           string       `json:"id"`
	Title        *string      `json:"title"`
	Content      string       `json:"content"`
	Type         PostType     `json:"type"`
	Links        []string     `json:"links"`
	Media        []PostMedia  `json:"media"`
	Hashtags     []string     `json:"hashtags"`
	Mentions     []string     `json:"mentions"`
	Author       *UserSummary `json:"author"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
	IsLiked      bool         `json:"isLiked"`
	IsBookmarked bool         `json:"isBookmarked"`
	IsFollowing  bool         `json:"isFollowing"`
	Counts       PostCounts   `json:"_count"`
}

// Hashtag tracks how many posts use a tag
type Hashtag struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	PostCount int    `json:"post_count"`
}

// FeedMode selects which authors a feed includes
type FeedMode string

const (
	FeedModeAll       FeedMode = ""
	FeedModeFollowing FeedMode = "following"
)

// FeedFilter are the query options of GET /posts/feed
type FeedFilter struct {
	Mode     FeedMode
	Query    string
	Type     PostType
	AuthorID string
	// AuthorIDs restricts to a set of authors (following mode)
	AuthorIDs []string
}

// CreatePostRequest is the JSON body of POST /posts. Multipart requests map
// their form fields onto the same struct.
type CreatePostRequest struct {
	Title   *string     `json:"title,omitempty"`
	Content string      `json:"content"`
	Tags    []string    `json:"tags,omitempty"`
	Media   []PostMedia `json:"media,omitempty"`
	Type    PostType    `json:"type,omitempty"`
}

// UpdatePostRequest is the body of PUT /posts/{postId}
type UpdatePostRequest struct {
	Title   *string  `json:"title,omitempty"`
	Content *string  `json:"content,omitempty"`
	Tags    []string `json:"tags,omitempty"`
}

// LikeUpdate is the realtime payload broadcast after a like toggle
type LikeUpdate struct {
	PostID     string `json:"postId"`
	LikesCount int    `json:"likesCount"`
	UserID     string `json:"userId"`
	Liked      bool   `json:"liked"`
}
