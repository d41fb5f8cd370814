// Package digest builds and delivers the per-user daily digest.
//
// The pipeline per user is: fetch today's calendar events and all open
// tasks concurrently, render one message (Format), deliver it (Dispatcher).
// The Runner fans that pipeline out across the whole user directory with a
// bounded worker pool; one user's failure is captured in the run summary and
// never disturbs sibling pipelines.
//
// Delivery is two-tier: a direct chat message first, then — only when the
// chat method itself rejects with a client error — a single personal
// notification carrying the same text. Nothing is retried beyond that one
// documented transition.
package digest
