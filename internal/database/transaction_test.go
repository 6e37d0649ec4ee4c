package database

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingDB captures the last query sent through Query.
type recordingDB struct {
	query string
	vars  map[string]interface{}
	err   error
}

func (r *recordingDB) Connect(ctx context.Context) error { return nil }
func (r *recordingDB) Close() error                      { return nil }
func (r *recordingDB) Ping(ctx context.Context) error    { return nil }
func (r *recordingDB) Query(ctx context.Context, q string, vars map[string]interface{}) ([]interface{}, error) {
	r.query, r.vars = q, vars
	return nil, r.err
}
func (r *recordingDB) QueryOne(ctx context.Context, q string, vars map[string]interface{}) (interface{}, error) {
	_, err := r.Query(ctx, q, vars)
	return nil, err
}
func (r *recordingDB) Execute(ctx context.Context, q string, vars map[string]interface{}) error {
	_, err := r.Query(ctx, q, vars)
	return err
}
func (r *recordingDB) BeginTx(ctx context.Context) (Transaction, error) { return nil, nil }

func TestTxBuilder_NamespacesVariables(t *testing.T) {
	tb := NewTxBuilder()
	m1 := tb.Add("UPDATE type::record($id) SET status = $status", map[string]interface{}{"id": "follow:a", "status": "ACCEPTED"})
	m2 := tb.Add("UPDATE type::record($id) SET status = $status", map[string]interface{}{"id": "follow:b", "status": "ACCEPTED"})

	query, vars := tb.Build()

	assert.True(t, strings.HasPrefix(query, "BEGIN TRANSACTION;"))
	assert.True(t, strings.HasSuffix(query, "COMMIT TRANSACTION;"))
	assert.NotEqual(t, m1["id"], m2["id"])
	assert.Equal(t, "follow:a", vars[m1["id"]])
	assert.Equal(t, "follow:b", vars[m2["id"]])
	assert.Contains(t, query, "$"+m1["id"])
	assert.Contains(t, query, "$"+m2["id"])
	assert.Equal(t, 2, tb.Len())
}

func TestTxBuilder_PrefixVariablesDoNotCollide(t *testing.T) {
	tb := NewTxBuilder()
	mapping := tb.Add("CREATE post_like SET post = $id, user = $id_user", map[string]interface{}{
		"id":      "post:1",
		"id_user": "user:1",
	})

	query, vars := tb.Build()

	assert.Contains(t, query, "post = $"+mapping["id"]+",")
	assert.Contains(t, query, "user = $"+mapping["id_user"])
	assert.Equal(t, "user:1", vars[mapping["id_user"]])
}

func TestTxBuilder_EmptyBuild(t *testing.T) {
	query, vars := NewTxBuilder().Build()
	assert.Empty(t, query)
	assert.Nil(t, vars)
}

func TestAtomicBatch_ExecutesSingleTransaction(t *testing.T) {
	db := &recordingDB{}
	batch := NewAtomicBatch().
		Add("DELETE post_like WHERE post = $post", map[string]interface{}{"post": "post:1"}).
		Add("DELETE type::record($post)", map[string]interface{}{"post": "post:1"})

	require.NoError(t, batch.Execute(context.Background(), db))
	assert.Equal(t, 2, batch.Len())
	assert.Len(t, db.vars, 2)
	assert.Contains(t, db.query, "BEGIN TRANSACTION;")
}

func TestAtomicBatch_EmptyIsNoop(t *testing.T) {
	db := &recordingDB{}
	require.NoError(t, NewAtomicBatch().Execute(context.Background(), db))
	assert.Empty(t, db.query)
}

func TestClassifyError(t *testing.T) {
	err := classifyError("Database index `user_email` already contains 'a@b.c', with record `user:x`")
	assert.ErrorIs(t, err, ErrDuplicate)

	err = classifyError("Parse error: unexpected token")
	assert.ErrorIs(t, err, ErrQuery)
}

func TestFirstRecord(t *testing.T) {
	_, err := firstRecord(nil)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = firstRecord([]interface{}{map[string]interface{}{"status": "OK", "result": []interface{}{}}})
	assert.ErrorIs(t, err, ErrNotFound)

	rec, err := firstRecord([]interface{}{map[string]interface{}{
		"status": "OK",
		"result": []interface{}{map[string]interface{}{"id": "post:1"}},
	}})
	require.NoError(t, err)
	assert.Equal(t, "post:1", rec.(map[string]interface{})["id"])

	scalar, err := firstRecord([]interface{}{map[string]interface{}{"status": "OK", "result": float64(3)}})
	require.NoError(t, err)
	assert.Equal(t, float64(3), scalar)
}
