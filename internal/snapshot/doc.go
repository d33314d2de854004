// Package snapshot keeps the compliance time series. One snapshot is
// recorded per collection run and old points are pruned by the
// configured retention window.
package snapshot
