package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/renunganku/api/internal/database"
	"github.com/surrealdb/surrealdb.go/pkg/models"
)

// isUniqueConstraintError checks if an error is a unique constraint violation
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "unique") ||
		strings.Contains(errStr, "duplicate") ||
		strings.Contains(errStr, "already exists")
}

// extractRecordID extracts record ID from SurrealDB result
func extractRecordID(id interface{}) string {
	switch v := id.(type) {
	case string:
		return v
	case models.RecordID:
		return v.String()
	case *models.RecordID:
		if v != nil {
			return v.String()
		}
	case map[string]interface{}:
		// Handle {"tb": "table", "id": "xxx"} format
		if tb, ok := v["tb"].(string); ok {
			if id, ok := v["id"].(string); ok {
				return tb + ":" + id
			}
		}
	}

	// Try JSON marshaling as fallback
	if data, err := json.Marshal(id); err == nil {
		var recordID models.RecordID
		if err := json.Unmarshal(data, &recordID); err == nil {
			return recordID.String()
		}
	}

	return ""
}

// parseTime parses time from various formats
func parseTime(v interface{}) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		if parsed, err := time.Parse(time.RFC3339, t); err == nil {
			return parsed
		}
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return parsed
		}
	case models.CustomDateTime:
		return t.Time
	case *models.CustomDateTime:
		if t != nil {
			return t.Time
		}
	}
	return time.Time{}
}

// extractQueryResults extracts query results array from SurrealDB response
func extractQueryResults(result interface{}) ([]interface{}, bool) {
	// Handle SurrealDB response format
	if results, ok := result.([]interface{}); ok {
		if len(results) > 0 {
			if firstResult, ok := results[0].(map[string]interface{}); ok {
				if resultArray, ok := firstResult["result"].([]interface{}); ok {
					return resultArray, true
				}
			}
			// Direct array format
			return results, true
		}
	}
	return nil, false
}

// WithTransaction executes a function within a transaction context
// If the function returns an error, the transaction is rolled back
func WithTransaction(ctx context.Context, db database.Database, fn func(tx database.Transaction) error) error {
	tx, err := db.BeginTx(ctx)
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}

// extractCount extracts count from SurrealDB count query result
func extractCount(result interface{}) int {
	if resp, ok := result.(map[string]interface{}); ok {
		if status, ok := resp["status"].(string); ok && status == "OK" {
			if resultData, ok := resp["result"].([]interface{}); ok && len(resultData) > 0 {
				if data, ok := resultData[0].(map[string]interface{}); ok {
					return extractCountValue(data["count"])
				}
			}
		}
		// Direct access
		return extractCountValue(resp["count"])
	}
	return 0
}

// extractCountValue converts various numeric types to int
func extractCountValue(v interface{}) int {
	switch c := v.(type) {
	case float64:
		return int(c)
	case float32:
		return int(c)
	case int:
		return c
	case int64:
		return int(c)
	case uint64:
		return int(c)
	}
	return 0
}

// getString extracts a string value from a map
func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// getStringPtr extracts an optional string value from a map
func getStringPtr(m map[string]interface{}, key string) *string {
	if v, ok := m[key].(string); ok && v != "" {
		return &v
	}
	return nil
}

// getInt extracts an int value from a map
func getInt(m map[string]interface{}, key string) int {
	if v, ok := m[key].(float64); ok {
		return int(v)
	}
	if v, ok := m[key].(float32); ok {
		return int(v)
	}
	if v, ok := m[key].(int); ok {
		return v
	}
	if v, ok := m[key].(int64); ok {
		return int(v)
	}
	if v, ok := m[key].(uint64); ok {
		return int(v)
	}
	return 0
}

// getFloat extracts a float value from a map
func getFloat(m map[string]interface{}, key string) float64 {
	if v, ok := m[key].(float64); ok {
		return v
	}
	if v, ok := m[key].(float32); ok {
		return float64(v)
	}
	return 0
}

// getBool extracts a bool value from a map
func getBool(m map[string]interface{}, key string) bool {
	if v, ok := m[key].(bool); ok {
		return v
	}
	return false
}

// getTime extracts a time value from a map
func getTime(m map[string]interface{}, key string) *time.Time {
	if v, ok := m[key].(string); ok {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return &t
		}
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return &t
		}
	}
	if t, ok := m[key].(time.Time); ok {
		return &t
	}
	// Handle SurrealDB CustomDateTime type
	if dt, ok := m[key].(models.CustomDateTime); ok {
		t := dt.Time
		return &t
	}
	if dt, ok := m[key].(*models.CustomDateTime); ok && dt != nil {
		t := dt.Time
		return &t
	}
	return nil
}

// getStringSlice extracts a string slice from a map
func getStringSlice(m map[string]interface{}, key string) []string {
	if v, ok := m[key].([]interface{}); ok {
		result := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				result = append(result, s)
			}
		}
		return result
	}
	return nil
}

// recordID accepts "post:abc" or a bare "abc" and returns the full record id
func recordID(table, id string) string {
	if id == "" || strings.HasPrefix(id, table+":") {
		return id
	}
	return table + ":" + id
}

// normalizeValue rewrites SurrealDB driver types (record ids, datetimes) into
// plain JSON-friendly values so results can be decoded with encoding/json.
func normalizeValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		for k, inner := range t {
			t[k] = normalizeValue(inner)
		}
		return t
	case []interface{}:
		for i, inner := range t {
			t[i] = normalizeValue(inner)
		}
		return t
	case models.RecordID, *models.RecordID:
		return convertSurrealID(t)
	case models.CustomDateTime:
		return t.Time.Format(time.RFC3339Nano)
	case *models.CustomDateTime:
		if t == nil {
			return nil
		}
		return t.Time.Format(time.RFC3339Nano)
	case time.Time:
		return t.Format(time.RFC3339Nano)
	}
	return v
}

// unwrapResult strips the {"status","result"} envelope and returns the records
func unwrapResult(result interface{}) []interface{} {
	if resp, ok := result.(map[string]interface{}); ok {
		if isEnvelope(resp) {
			if rows, ok := resp["result"].([]interface{}); ok {
				return rows
			}
			if resp["result"] == nil {
				return nil
			}
			return []interface{}{resp["result"]}
		}
		return []interface{}{resp}
	}
	if rows, ok := result.([]interface{}); ok {
		return rows
	}
	return nil
}

// isEnvelope tells a statement wrapper apart from a record that happens to
// have a status field (follow, video, message)
func isEnvelope(m map[string]interface{}) bool {
	if len(m) != 2 {
		return false
	}
	if _, ok := m["result"]; !ok {
		return false
	}
	status, _ := m["status"].(string)
	return status == "OK" || status == "ERR"
}

// decodeRecord converts a single SurrealDB record into T
func decodeRecord[T any](result interface{}) (*T, error) {
	rows := unwrapResult(result)
	if len(rows) == 0 {
		return nil, database.ErrNotFound
	}
	result = rows[0]

	data, ok := normalizeValue(result).(map[string]interface{})
	if !ok {
		return nil, errors.New("unexpected result format")
	}
	if id, ok := data["id"]; ok {
		data["id"] = convertSurrealID(id)
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decoding record: %w", err)
	}
	return &out, nil
}

// decodeList converts the first statement of a Query result into []*T
func decodeList[T any](results []interface{}) ([]*T, error) {
	return decodeStatement[T](results, 0)
}

// decodeStatement converts statement idx of a multi-statement Query result
func decodeStatement[T any](results []interface{}, idx int) ([]*T, error) {
	if len(results) <= idx {
		return []*T{}, nil
	}
	rows := unwrapResult(results[idx])
	out := make([]*T, 0, len(rows))
	for _, row := range rows {
		item, err := decodeRecord[T](row)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

// countAt reads a `count() ... GROUP ALL` result from statement idx
func countAt(results []interface{}, idx int) int {
	if len(results) <= idx {
		return 0
	}
	return extractCount(results[idx])
}

// getOne runs a single-record query and maps "not found" to (nil, nil)
func getOne[T any](ctx context.Context, db database.Database, query string, vars map[string]interface{}) (*T, error) {
	result, err := db.QueryOne(ctx, query, vars)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	item, err := decodeRecord[T](result)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return item, nil
}

// getList runs a query and decodes the first statement
func getList[T any](ctx context.Context, db database.Database, query string, vars map[string]interface{}) ([]*T, error) {
	results, err := db.Query(ctx, query, vars)
	if err != nil {
		return nil, err
	}
	return decodeList[T](results)
}

// createOne runs a CREATE and decodes the created record
func createOne[T any](ctx context.Context, db database.Database, query string, vars map[string]interface{}) (*T, error) {
	results, err := db.Query(ctx, query, vars)
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, fmt.Errorf("%w: %v", database.ErrDuplicate, err)
		}
		return nil, err
	}
	items, err := decodeList[T](results)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, errors.New("no result returned")
	}
	return items[0], nil
}

// timePtrToNone formats t for a <datetime> cast, passing nil through as NONE
func timePtrToNone(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}

func lower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
