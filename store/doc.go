// Package store provides a generic document-collection layer over DynamoDB.
//
// Vitrine keeps every record (categories, products, homepage sections) as a
// schemaless document inside a named collection. All collections share one
// DynamoDB table: the partition key is the collection name and the sort key
// is the document id, so a single Query lists a whole collection.
//
// # Collections
//
// Callers work through the [Collection] interface:
//
//	Find(ctx, Query{Filter: ..., Sort: ...})
//	FindOne(ctx, Filter{"s_no": 3})
//	InsertOne(ctx, Doc{...})
//	UpdateOne(ctx, Filter{"_id": id, "s_no": 3}, Patch{"s_no": -1})
//	DeleteOne(ctx, Filter{"s_no": 3})
//
// Filters are field-equality matches. UpdateOne and DeleteOne apply the
// filter as the write condition of a single-document atomic update, so a
// filter like {"_id": id, "s_no": 3} is a compare-and-set: the write
// succeeds only if the document still holds that position. The matched
// count reports whether the condition held. There are no multi-document
// transactions in this contract.
//
// # Backends
//
// [Dynamo] is the production backend. [Memory] implements the same
// contract in-process and is used by tests and local tooling.
//
// # Errors
//
//   - [ErrNotFound] - FindOne matched no document
//   - [ErrAlreadyExists] - InsertOne hit an existing document id
package store

import "strconv"

// Doc is a stored document. The "_id" field holds the document id.
type Doc map[string]any

// Filter matches documents by field equality.
type Filter map[string]any

// Patch names the fields to set on a matched document.
type Patch map[string]any

// Sort orders results by a single field.
type Sort struct {
	Field      string
	Descending bool
}

// Query bundles the parameters of a Find call.
type Query struct {
	Filter Filter

	// Sort orders the result set. Nil means document-id order.
	Sort *Sort

	// Limit caps the number of returned documents (0 = no limit).
	Limit int
}

// ID returns the document id, or "" if unset.
func (d Doc) ID() string {
	return d.String(FieldID)
}

// String returns the named field as a string, or "" if absent or mistyped.
func (d Doc) String(key string) string {
	s, _ := d[key].(string)
	return s
}

// Int returns the named field as an int64. DynamoDB numbers unmarshal as
// float64, so both forms are accepted.
func (d Doc) Int(key string) (int64, bool) {
	return toInt64(d[key])
}

// Float returns the named field as a float64.
func (d Doc) Float(key string) (float64, bool) {
	switch n := d[key].(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// Strings returns the named field as a string slice, accepting both the
// native form and the []any form produced by unmarshaling.
func (d Doc) Strings(key string) []string {
	switch v := d[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// FieldID is the reserved document id field.
const FieldID = "_id"

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	case string:
		// Numbers round-tripped through stream images arrive as strings.
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	}
	return 0, false
}
