package eventstore

// SQL is kept in named constants rather than inline strings so store.go's
// methods stay readable and sqlmock expectations in store_test.go can
// regexp.QuoteMeta against the exact text.
const (
	querySchema = `
CREATE TABLE IF NOT EXISTS event_log (
	event_id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	kind TEXT NOT NULL,
	payload JSONB NOT NULL,
	cart_id UUID NULL,
	product_id UUID NULL,
	item_id UUID NULL,
	committed_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS event_log_kind_idx ON event_log (kind);
CREATE INDEX IF NOT EXISTS event_log_cart_id_idx ON event_log (cart_id);
CREATE INDEX IF NOT EXISTS event_log_product_id_idx ON event_log (product_id);
CREATE INDEX IF NOT EXISTS event_log_item_id_idx ON event_log (item_id);
`

	queryInsertEvent = `
INSERT INTO event_log (kind, payload, cart_id, product_id, item_id)
VALUES ($1, $2, $3, $4, $5)
RETURNING event_id, committed_at`

	// %s is substituted with the stream's WHERE clause by headForStream.
	queryMaxEventID = `SELECT COALESCE(MAX(event_id), 0) FROM event_log WHERE %s`

	// %s is substituted with the query's WHERE clause (kinds/bindings OR'd
	// across streams) by streamRows/pollRows.
	querySelectAfter = `
SELECT event_id, kind, payload, cart_id, product_id, item_id, committed_at
FROM event_log
WHERE event_id > $1 AND (%s)
ORDER BY event_id ASC
LIMIT $2`
)
