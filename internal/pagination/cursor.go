// Package pagination implements opaque continuation tokens for stable
// forward-only listing. Tokens are a reversible encoding of the last-seen
// sort key, not a capability; they only exist so clients cannot depend on
// the wire shape.
package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
)

var ErrInvalidCursor = errors.New("invalid cursor")

// Sort names the active sort order a cursor was minted under. Decoding a
// cursor minted under a different sort is rejected so a client cannot mix
// tokens across orderings.
type Sort string

const (
	SortCreated Sort = "created"
	SortPrice   Sort = "price"
	SortName    Sort = "name"
)

func (s Sort) Valid() bool {
	switch s {
	case SortCreated, SortPrice, SortName:
		return true
	}
	return false
}

type cursorPayload struct {
	Sort  Sort   `json:"s"`
	Value string `json:"v"`
}

// Encode mints a token from the last retained row's sort value.
func Encode(sort Sort, lastValue string) string {
	raw, _ := json.Marshal(cursorPayload{Sort: sort, Value: lastValue})
	return base64.RawURLEncoding.EncodeToString(raw)
}

// Decode recovers the sort value a token was minted from. Callers must treat
// ErrInvalidCursor as "start from the first page", never as a request
// failure.
func Decode(token string, want Sort) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", ErrInvalidCursor
	}

	var p cursorPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return "", ErrInvalidCursor
	}
	if p.Sort != want || p.Value == "" {
		return "", ErrInvalidCursor
	}

	return p.Value, nil
}

// Page trims an over-fetched result set. Callers query limit+1 rows; when
// more than limit came back there is a further page and the cursor is minted
// from the last retained row's sort value.
func Page[T any](rows []T, limit int, sort Sort, sortValue func(T) string) ([]T, string) {
	if len(rows) <= limit {
		return rows, ""
	}
	rows = rows[:limit]
	return rows, Encode(sort, sortValue(rows[len(rows)-1]))
}
