// Package collector runs the periodic collection job. Each run fetches
// the Postman inventory, scores it through the governance engine,
// persists results and snapshots, and records itself in the run
// history. Runs are scheduled by cron expression and can be triggered
// manually; overlapping runs are skipped.
package collector
