package repository

import (
	"context"
	"crypto/sha1"
	"encoding/hex"

	"github.com/renunganku/api/internal/database"
	"github.com/renunganku/api/internal/model"
)

// FollowRepository handles the follow graph. Each ordered pair has exactly one
// record whose key is derived from the pair, so writes are plain upserts.
type FollowRepository struct {
	db database.Database
}

// NewFollowRepository creates a new follow repository
func NewFollowRepository(db database.Database) *FollowRepository {
	return &FollowRepository{db: db}
}

// followID returns the record id of the edge follower -> following
func followID(followerID, followingID string) string {
	sum := sha1.Sum([]byte(recordID("user", followerID) + "|" + recordID("user", followingID)))
	return "follow:f" + hex.EncodeToString(sum[:])
}

// upsertFollowStatement writes an edge with the given status
func upsertFollowStatement(followerID, followingID string, status model.FollowStatus) (string, map[string]interface{}) {
	query := `
		UPSERT type::record($id) SET
			follower = type::record($follower),
			following = type::record($following),
			status = $status,
			created_on = created_on ?? time::now(),
			updated_on = time::now()
	`
	vars := map[string]interface{}{
		"id":        followID(followerID, followingID),
		"follower":  recordID("user", followerID),
		"following": recordID("user", followingID),
		"status":    status,
	}
	return query, vars
}

// Get returns the edge follower -> following, or nil
func (r *FollowRepository) Get(ctx context.Context, followerID, followingID string) (*model.Follow, error) {
	return r.GetByID(ctx, followID(followerID, followingID))
}

// GetByID returns an edge by record id, or nil
func (r *FollowRepository) GetByID(ctx context.Context, id string) (*model.Follow, error) {
	return getOne[model.Follow](ctx, r.db, `SELECT * FROM type::record($id)`,
		map[string]interface{}{"id": recordID("follow", id)})
}

// Upsert sets the status of the edge, creating it when missing
func (r *FollowRepository) Upsert(ctx context.Context, followerID, followingID string, status model.FollowStatus) (*model.Follow, error) {
	query, vars := upsertFollowStatement(followerID, followingID, status)
	if err := r.db.Execute(ctx, query, vars); err != nil {
		return nil, err
	}
	return r.Get(ctx, followerID, followingID)
}

// SetStatus changes the status of an existing edge
func (r *FollowRepository) SetStatus(ctx context.Context, id string, status model.FollowStatus) error {
	query := `UPDATE type::record($id) SET status = $status, updated_on = time::now()`
	return r.db.Execute(ctx, query, map[string]interface{}{
		"id":     recordID("follow", id),
		"status": status,
	})
}

// AcceptMutual accepts a pending request, creates or accepts the reverse
// edge and stores the acceptance notification in one transaction
func (r *FollowRepository) AcceptMutual(ctx context.Context, req *model.Follow, notification *model.Notification) error {
	batch := database.NewAtomicBatch().Add(
		`UPDATE type::record($id) SET status = 'ACCEPTED', updated_on = time::now()`,
		map[string]interface{}{"id": recordID("follow", req.ID)},
	)
	batch.Add(upsertFollowStatement(req.FollowingID, req.FollowerID, model.FollowStatusAccepted))
	if notification != nil {
		batch.Add(createNotificationStatement(notification))
	}
	return batch.Execute(ctx, r.db)
}

// Delete removes the edge follower -> following; false when none existed
func (r *FollowRepository) Delete(ctx context.Context, followerID, followingID string) (bool, error) {
	results, err := r.db.Query(ctx, `DELETE type::record($id) RETURN BEFORE`,
		map[string]interface{}{"id": followID(followerID, followingID)})
	if err != nil {
		return false, err
	}
	return len(results) > 0 && len(unwrapResult(results[0])) > 0, nil
}

// ListIncoming pages edges pointing at userID with the given status
func (r *FollowRepository) ListIncoming(ctx context.Context, userID string, status model.FollowStatus, page model.PageParams) ([]*model.Follow, int, error) {
	return r.list(ctx, "following", userID, status, page)
}

// ListOutgoing pages edges from userID with the given status
func (r *FollowRepository) ListOutgoing(ctx context.Context, userID string, status model.FollowStatus, page model.PageParams) ([]*model.Follow, int, error) {
	return r.list(ctx, "follower", userID, status, page)
}

func (r *FollowRepository) list(ctx context.Context, side, userID string, status model.FollowStatus, page model.PageParams) ([]*model.Follow, int, error) {
	where := `WHERE ` + side + ` = type::record($user) AND status = $status`
	query := `
		SELECT * FROM follow ` + where + ` ORDER BY updated_on DESC LIMIT $limit START $offset;
		SELECT count() AS count FROM follow ` + where + ` GROUP ALL;
	`
	results, err := r.db.Query(ctx, query, map[string]interface{}{
		"user":   recordID("user", userID),
		"status": status,
		"limit":  page.Limit,
		"offset": page.Offset(),
	})
	if err != nil {
		return nil, 0, err
	}
	rows, err := decodeList[model.Follow](results)
	if err != nil {
		return nil, 0, err
	}
	return rows, countAt(results, 1), nil
}

// Stats counts accepted followers and followees
func (r *FollowRepository) Stats(ctx context.Context, userID string) (model.FollowStats, error) {
	query := `
		SELECT count() AS count FROM follow WHERE following = type::record($user) AND status = 'ACCEPTED' GROUP ALL;
		SELECT count() AS count FROM follow WHERE follower = type::record($user) AND status = 'ACCEPTED' GROUP ALL;
	`
	results, err := r.db.Query(ctx, query, map[string]interface{}{"user": recordID("user", userID)})
	if err != nil {
		return model.FollowStats{}, err
	}
	return model.FollowStats{Followers: countAt(results, 0), Following: countAt(results, 1)}, nil
}

// FollowingIDs returns the ids userID follows with ACCEPTED status
func (r *FollowRepository) FollowingIDs(ctx context.Context, userID string) ([]string, error) {
	return r.values(ctx,
		`SELECT VALUE <string>following FROM follow WHERE follower = type::record($user) AND status = 'ACCEPTED'`, userID)
}

// MutualIDs returns users that userID follows and that follow back, both accepted
func (r *FollowRepository) MutualIDs(ctx context.Context, userID string) ([]string, error) {
	query := `
		LET $followers = (SELECT VALUE follower FROM follow WHERE following = type::record($user) AND status = 'ACCEPTED');
		SELECT VALUE <string>following FROM follow
		WHERE follower = type::record($user) AND status = 'ACCEPTED' AND following INSIDE $followers;
	`
	results, err := r.db.Query(ctx, query, map[string]interface{}{"user": recordID("user", userID)})
	if err != nil {
		return nil, err
	}
	return stringValues(results, 1), nil
}

func (r *FollowRepository) values(ctx context.Context, query, userID string) ([]string, error) {
	results, err := r.db.Query(ctx, query, map[string]interface{}{"user": recordID("user", userID)})
	if err != nil {
		return nil, err
	}
	return stringValues(results, 0), nil
}

// stringValues reads a SELECT VALUE result of strings from statement idx
func stringValues(results []interface{}, idx int) []string {
	out := []string{}
	if len(results) <= idx {
		return out
	}
	for _, v := range unwrapResult(results[idx]) {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
