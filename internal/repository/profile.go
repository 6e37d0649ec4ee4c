package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/renunganku/api/internal/database"
	"github.com/renunganku/api/internal/model"
)

// profileUpdatable lists the profile fields Update accepts
var profileUpdatable = []string{
	"username", "tanggal_lahir", "tempat_kelahiran", "bio", "websites", "profile_image", "background_image",
}

// userSummaryFields selects a model.UserSummary from a user record.
// $parent is the user row.
const userSummaryFields = `
	id,
	nama_lengkap,
	(SELECT VALUE username FROM profile WHERE user = $parent.id LIMIT 1)[0] AS username,
	(SELECT VALUE profile_image FROM profile WHERE user = $parent.id LIMIT 1)[0] AS profile_image
`

// summaryRow is the stored shape behind model.UserSummary
type summaryRow struct {
	ID           string  `json:"id"`
	NamaLengkap  string  `json:"nama_lengkap"`
	Username     *string `json:"username"`
	ProfileImage *string `json:"profile_image"`
}

func (s *summaryRow) toModel() *model.UserSummary {
	out := &model.UserSummary{ID: s.ID, NamaLengkap: s.NamaLengkap, ProfileImage: s.ProfileImage}
	if s.Username != nil {
		out.Username = *s.Username
	}
	return out
}

// ProfileRepository handles profile data access
type ProfileRepository struct {
	db database.Database
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db database.Database) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Create creates a profile. Optional fields are only written when set.
func (r *ProfileRepository) Create(ctx context.Context, p *model.Profile) error {
	setClause := `user = type::record($user_id), username = $username, websites = $websites, created_on = time::now(), updated_on = time::now()`
	vars := map[string]interface{}{
		"user_id":  recordID("user", p.UserID),
		"username": p.Username,
		"websites": model.CleanWebsites(p.Websites),
	}

	if p.TanggalLahir != nil {
		setClause += ", tanggal_lahir = <datetime>$tanggal_lahir"
		vars["tanggal_lahir"] = p.TanggalLahir.Format(time.RFC3339)
	}
	if p.TempatKelahiran != nil {
		setClause += ", tempat_kelahiran = $tempat_kelahiran"
		vars["tempat_kelahiran"] = *p.TempatKelahiran
	}
	if p.Bio != nil {
		setClause += ", bio = $bio"
		vars["bio"] = *p.Bio
	}
	if p.ProfileImage != nil {
		setClause += ", profile_image = $profile_image"
		vars["profile_image"] = *p.ProfileImage
	}
	if p.BackgroundImage != nil {
		setClause += ", background_image = $background_image"
		vars["background_image"] = *p.BackgroundImage
	}

	created, err := createOne[model.Profile](ctx, r.db, "CREATE profile SET "+setClause, vars)
	if err != nil {
		return err
	}
	p.ID = created.ID
	p.CreatedOn = created.CreatedOn
	p.UpdatedOn = created.UpdatedOn
	return nil
}

// GetByUserID retrieves the profile of an account
func (r *ProfileRepository) GetByUserID(ctx context.Context, userID string) (*model.Profile, error) {
	return getOne[model.Profile](ctx, r.db, `SELECT * FROM profile WHERE user = type::record($user_id) LIMIT 1`,
		map[string]interface{}{"user_id": recordID("user", userID)})
}

// GetByUsername retrieves a profile by exact username
func (r *ProfileRepository) GetByUsername(ctx context.Context, username string) (*model.Profile, error) {
	return getOne[model.Profile](ctx, r.db, `SELECT * FROM profile WHERE username = $username LIMIT 1`,
		map[string]interface{}{"username": username})
}

// UsernameTaken reports whether another account already uses username
func (r *ProfileRepository) UsernameTaken(ctx context.Context, username, exceptUserID string) (bool, error) {
	existing, err := r.GetByUsername(ctx, username)
	if err != nil {
		return false, err
	}
	return existing != nil && existing.UserID != recordID("user", exceptUserID), nil
}

// Update applies the given field updates. Keys are stored field names; a nil
// value clears the field.
func (r *ProfileRepository) Update(ctx context.Context, userID string, updates map[string]interface{}) (*model.Profile, error) {
	query := `UPDATE profile SET updated_on = time::now()`
	vars := map[string]interface{}{"user_id": recordID("user", userID)}

	for _, field := range profileUpdatable {
		value, ok := updates[field]
		if !ok {
			continue
		}
		switch {
		case value == nil:
			query += fmt.Sprintf(", %s = NONE", field)
		case field == "tanggal_lahir":
			query += ", tanggal_lahir = <datetime>$tanggal_lahir"
			if t, ok := value.(time.Time); ok {
				value = t.Format(time.RFC3339)
			}
			vars[field] = value
		default:
			query += fmt.Sprintf(", %s = $%s", field, field)
			vars[field] = value
		}
	}

	query += ` WHERE user = type::record($user_id) RETURN AFTER`

	results, err := r.db.Query(ctx, query, vars)
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, fmt.Errorf("%w: username already taken", database.ErrDuplicate)
		}
		return nil, err
	}
	items, err := decodeList[model.Profile](results)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, database.ErrNotFound
	}
	return items[0], nil
}

// Summaries resolves compact user blocks for a set of user IDs
func (r *ProfileRepository) Summaries(ctx context.Context, userIDs []string) (map[string]*model.UserSummary, error) {
	out := make(map[string]*model.UserSummary, len(userIDs))
	ids := uniqueIDs("user", userIDs)
	if len(ids) == 0 {
		return out, nil
	}

	query := `SELECT ` + userSummaryFields + ` FROM user WHERE <string>id IN $ids`
	rows, err := getList[summaryRow](ctx, r.db, query, map[string]interface{}{"ids": ids})
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row.toModel()
	}
	return out, nil
}

// Summary resolves a single user block; nil when the user does not exist
func (r *ProfileRepository) Summary(ctx context.Context, userID string) (*model.UserSummary, error) {
	m, err := r.Summaries(ctx, []string{userID})
	if err != nil {
		return nil, err
	}
	return m[recordID("user", userID)], nil
}

// Search matches username or name, case-insensitively
func (r *ProfileRepository) Search(ctx context.Context, q string, page model.PageParams) ([]*model.UserSummary, int, error) {
	where := `WHERE string::lowercase(username) CONTAINS $q OR string::lowercase(user.nama_lengkap) CONTAINS $q`
	query := `
		SELECT user AS id, user.nama_lengkap AS nama_lengkap, username, profile_image
		FROM profile ` + where + `
		ORDER BY username ASC LIMIT $limit START $offset;
		SELECT count() AS count FROM profile ` + where + ` GROUP ALL;
	`
	results, err := r.db.Query(ctx, query, map[string]interface{}{
		"q":      lower(q),
		"limit":  page.Limit,
		"offset": page.Offset(),
	})
	if err != nil {
		return nil, 0, err
	}
	rows, err := decodeList[summaryRow](results)
	if err != nil {
		return nil, 0, err
	}
	out := make([]*model.UserSummary, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toModel())
	}
	return out, countAt(results, 1), nil
}

// Suggestions returns completed profiles the user has no follow edge to
func (r *ProfileRepository) Suggestions(ctx context.Context, userID string, limit int) ([]*model.UserSummary, error) {
	query := `
		LET $followed = (SELECT VALUE following FROM follow WHERE follower = type::record($user_id));
		SELECT user AS id, user.nama_lengkap AS nama_lengkap, username, profile_image
		FROM profile
		WHERE user != type::record($user_id)
			AND user NOTINSIDE $followed
			AND !string::starts_with(username, 'temp_')
		ORDER BY created_on DESC
		LIMIT $limit;
	`
	results, err := r.db.Query(ctx, query, map[string]interface{}{
		"user_id": recordID("user", userID),
		"limit":   limit,
	})
	if err != nil {
		return nil, err
	}
	rows, err := decodeStatement[summaryRow](results, 1)
	if err != nil {
		return nil, err
	}
	out := make([]*model.UserSummary, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toModel())
	}
	return out, nil
}

// Delete removes the profile of an account
func (r *ProfileRepository) Delete(ctx context.Context, userID string) error {
	return r.db.Execute(ctx, `DELETE profile WHERE user = type::record($user_id)`,
		map[string]interface{}{"user_id": recordID("user", userID)})
}

// uniqueIDs normalizes, deduplicates and sorts record ids
func uniqueIDs(table string, ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		id = recordID(table, id)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
