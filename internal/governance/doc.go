// Package governance scores the Postman inventory against compliance
// rules. The engine is pure rule evaluation; the repository persists
// the resulting scores and violations per collection run.
package governance
