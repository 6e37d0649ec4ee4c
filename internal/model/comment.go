package model

import "time"

// MaxCommentLength bounds a comment body in characters
const MaxCommentLength = 2000

// Comment is a reply on a post. ParentID is set for nested replies.
type Comment struct {
	ID        string    `json:"id"`
	PostID    string    `json:"post"`
	AuthorID  string    `json:"author"`
	ParentID  *string   `json:"parent,omitempty"`
	Content   string    `json:"content"`
	CreatedOn time.Time `json:"created_on"`
	UpdatedOn time.Time `json:"updated_on"`
}

// CommentCounts are the computed counters of a comment
type CommentCounts struct {
	Likes   int `json:"likes"`
	Replies int `json:"replies"`
}

// CommentRow is a stored comment with its computed counters
type CommentRow struct {
	Comment
	LikesCount   int `json:"likes_count"`
	RepliesCount int `json:"replies_count"`
}

// CommentResponse is a comment decorated for the requesting viewer
type CommentResponse struct {
	ID        string             `json:"id"`
	PostID    string             `json:"postId"`
	ParentID  *string            `json:"parentId"`
	Content   string             `json:"content"`
	Author    *UserSummary       `json:"author"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`
	IsLiked   bool               `json:"isLiked"`
	Counts    CommentCounts      `json:"_count"`
	Replies   []*CommentResponse `json:"replies,omitempty"`
}

// CreateCommentRequest is the body of POST /comments/posts/{postId}
type CreateCommentRequest struct {
	Content  string  `json:"content"`
	ParentID *string `json:"parentId,omitempty"`
}

// Validate checks the comment body
func (r *CreateCommentRequest) Validate() []FieldError {
	var errors []FieldError
	if r.Content == "" {
		errors = append(errors, FieldError{Field: "content", Message: "Komentar tidak boleh kosong"})
	} else if len([]rune(r.Content)) > MaxCommentLength {
		errors = append(errors, FieldError{Field: "content", Message: "Komentar maksimal 2000 karakter"})
	}
	return errors
}

// UpdateCommentRequest is the body of PUT /comments/{commentId}
type UpdateCommentRequest struct {
	Content string `json:"content"`
}

// CommentLikeUpdate is the realtime payload after a comment like toggle
type CommentLikeUpdate struct {
	CommentID  string `json:"commentId"`
	PostID     string `json:"postId"`
	LikesCount int    `json:"likesCount"`
	UserID     string `json:"userId"`
	Liked      bool   `json:"liked"`
}
