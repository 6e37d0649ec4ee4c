package model

import "time"

// FollowStatus is the state of a follow request
type FollowStatus string

const (
	FollowStatusPending  FollowStatus = "PENDING"
	FollowStatusAccepted FollowStatus = "ACCEPTED"
	FollowStatusRejected FollowStatus = "REJECTED"
	// FollowStatusNone is reported when no edge exists; it is never stored
	FollowStatusNone FollowStatus = "NONE"
)

// Follow is a directed edge from follower to following. At most one edge
// exists per ordered pair.
type Follow struct {
	ID          string       `json:"id"`
	FollowerID  string       `json:"follower"`
	FollowingID string       `json:"following"`
	Status      FollowStatus `json:"status"`
	CreatedOn   time.Time    `json:"created_on"`
	UpdatedOn   time.Time    `json:"updated_on"`
}

// CanTransition reports whether a request may move to the next status.
// Only PENDING requests are answered.
func (f *Follow) CanTransition(next FollowStatus) bool {
	if f.Status != FollowStatusPending {
		return false
	}
	return next == FollowStatusAccepted || next == FollowStatusRejected
}

// FollowRequestResponse is an incoming pending request
type FollowRequestResponse struct {
	ID        string       `json:"id"`
	Status    FollowStatus `json:"status"`
	Follower  *UserSummary `json:"follower"`
	CreatedAt time.Time    `json:"createdAt"`
}

// FollowResult is returned by follow mutations
type FollowResult struct {
	ID      string       `json:"id,omitempty"`
	Status  FollowStatus `json:"status"`
	Message string       `json:"message"`
	Mutual  bool         `json:"mutual,omitempty"`
}

// FollowCheck describes the relation from the viewer to a target
type FollowCheck struct {
	Status      FollowStatus `json:"status"`
	IsFollowing bool         `json:"isFollowing"`
	IsPending   bool         `json:"isPending"`
	IsMutual    bool         `json:"isMutual"`
	CanMessage  bool         `json:"canMessage"`
}

// FollowStats are the accepted edge counts of a user
type FollowStats struct {
	Followers int `json:"followers"`
	Following int `json:"following"`
}

// FollowRequestBody is the body of POST /follow/request
type FollowRequestBody struct {
	Username string `json:"username"`
}

// FollowAnswerBody is the body of POST /follow/accept and /follow/reject
type FollowAnswerBody struct {
	RequestID string `json:"requestId"`
}
