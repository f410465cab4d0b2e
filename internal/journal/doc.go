// Package journal records connection lifecycle events to PostgreSQL.
//
// Events come from the primary channel's state changes and the secondary
// channel's dial results. They are buffered in memory and written in
// batches with pgx.Batch, either when the batch fills or on a flush
// interval. Chat content is never recorded.
//
// Table (created by EnsureSchema):
//
//	connection_events(id, occurred_at, channel, kind, from_state, to_state, attempts, error)
package journal
