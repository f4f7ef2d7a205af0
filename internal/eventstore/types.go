// Package eventstore implements the Dynamic Consistency Boundary event
// log: an append-only `event_log` table, queried by Stream+tag-binding
// predicates, with conditional append checked against a per-stream Query
// Version instead of a single aggregate version counter.
package eventstore

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Event is a committed row of the event log.
type Event struct {
	EventID     int64
	Kind        string
	Payload     json.RawMessage
	CartID      *string
	ProductID   *string
	ItemID      *string
	CommittedAt time.Time
}

// NewEvent is an event awaiting append; the event log assigns EventID and
// CommittedAt.
type NewEvent struct {
	Kind      string
	Payload   any
	CartID    *string
	ProductID *string
	ItemID    *string
}

// Binding pins a StreamQuery to a specific tag value (cart_id, product_id
// or item_id). A zero Binding leaves the stream unbound — it matches every
// row of that kind-set.
type Binding struct {
	Column string
	Value  string
}

// Bound reports whether b restricts the stream to a specific tag value.
func (b Binding) Bound() bool {
	return b.Column != ""
}

// StreamQuery names one contributing stream of a composite Query: the set
// of event kinds it carries, plus an optional tag binding.
type StreamQuery struct {
	Name    string
	Kinds   []string
	Binding Binding
}

// Key returns a stable identifier for this stream within a QueryVersion map.
func (s StreamQuery) Key() string {
	if s.Binding.Bound() {
		return fmt.Sprintf("%s[%s=%s]", s.Name, s.Binding.Column, s.Binding.Value)
	}
	return s.Name
}

func (s StreamQuery) whereClause(argOffset int) (string, []any) {
	placeholders := make([]string, len(s.Kinds))
	args := make([]any, 0, len(s.Kinds)+1)
	for i, k := range s.Kinds {
		placeholders[i] = fmt.Sprintf("$%d", argOffset+i+1)
		args = append(args, k)
	}
	clause := fmt.Sprintf("kind IN (%s)", strings.Join(placeholders, ","))
	if s.Binding.Bound() {
		clause += fmt.Sprintf(" AND %s = $%d", s.Binding.Column, argOffset+len(args)+1)
		args = append(args, s.Binding.Value)
	}
	return clause, args
}

// Query is an OR of StreamQuery predicates — "give me every event matching
// any of these streams" — the unit the Event Store reads and conditionally
// appends against. A single-stream Query is the common case; the carts-
// with-products listener uses a two-stream composite (CartStream ⊕
// PricingStream).
type Query struct {
	Streams []StreamQuery
}

// NewQuery builds a single-stream Query.
func NewQuery(name string, kinds []string, binding Binding) Query {
	return Query{Streams: []StreamQuery{{Name: name, Kinds: kinds, Binding: binding}}}
}

// Union combines q with other into a composite Query (CartStream ⊕
// PricingStream and similar).
func (q Query) Union(other Query) Query {
	return Query{Streams: append(append([]StreamQuery{}, q.Streams...), other.Streams...)}
}

// QueryVersion is the Query's optimistic-concurrency token: the highest
// event id observed for each contributing stream at the time the caller
// folded its State.
type QueryVersion map[string]int64

// Get returns the recorded version for stream s, or 0 if never observed.
func (v QueryVersion) Get(s StreamQuery) int64 {
	return v[s.Key()]
}

// Equal reports whether two QueryVersions hold the same set of streams
// with the same version for each.
func (v QueryVersion) Equal(other QueryVersion) bool {
	if len(v) != len(other) {
		return false
	}
	for k, val := range v {
		if other[k] != val {
			return false
		}
	}
	return true
}

// sortedKeys returns v's keys in deterministic order, useful for stable
// logging/testing output.
func (v QueryVersion) sortedKeys() []string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (v QueryVersion) String() string {
	parts := make([]string, 0, len(v))
	for _, k := range v.sortedKeys() {
		parts = append(parts, fmt.Sprintf("%s=%d", k, v[k]))
	}
	return strings.Join(parts, ",")
}
