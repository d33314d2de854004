package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/jaredboynton/postman-probe-sub001/internal/catalog"
)

// WriteScore writes the overall and per-category compliance scores for
// one collection run.
//
// The write is non-blocking; data is batched and sent asynchronously.
// Overall goes to the governance_score measurement, each category to
// governance_category_score tagged by category.
func (c *Client) WriteScore(runID string, overall float64, categories map[string]float64) {
	if !c.IsConnected() {
		return
	}

	now := time.Now()

	c.writeAPI.WritePoint(write.NewPoint(
		"governance_score",
		map[string]string{
			"run_id": runID,
		},
		map[string]interface{}{
			"overall": overall,
		},
		now,
	))

	for category, score := range categories {
		c.writeAPI.WritePoint(write.NewPoint(
			"governance_category_score",
			map[string]string{
				"run_id":   runID,
				"category": category,
			},
			map[string]interface{}{
				"score": score,
			},
			now,
		))
	}
}

// WriteInventoryCounts writes the entity counts observed in one
// collection run.
func (c *Client) WriteInventoryCounts(runID string, counts catalog.Counts) {
	if !c.IsConnected() {
		return
	}

	c.writeAPI.WritePoint(write.NewPoint(
		"inventory",
		map[string]string{
			"run_id": runID,
		},
		map[string]interface{}{
			"workspaces":  counts.Workspaces,
			"collections": counts.Collections,
			"users":       counts.Users,
		},
		time.Now(),
	))
}

// WriteRunDuration writes how long a collection run took and whether it
// succeeded.
func (c *Client) WriteRunDuration(runID string, status string, duration time.Duration) {
	if !c.IsConnected() {
		return
	}

	c.writeAPI.WritePoint(write.NewPoint(
		"collection_run",
		map[string]string{
			"run_id": runID,
			"status": status,
		},
		map[string]interface{}{
			"duration_ms": duration.Milliseconds(),
		},
		time.Now(),
	))
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit the helper methods.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, time.Now()))
}
