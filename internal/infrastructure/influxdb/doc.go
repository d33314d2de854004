// Package influxdb provides optional time-series export of compliance
// scores.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, batched non-blocking writes and health monitoring. The
// export complements the local snapshot table: SQLite remains the
// store of record, InfluxDB feeds external dashboards.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    // ErrDisabled when export is off in config
//	}
//	defer client.Close()
//
//	client.WriteScore("run-abc123", 0.82, categories)
//
// # Thread Safety
//
// All methods are safe for concurrent use. Writes are batched according
// to config.yaml settings (batch_size, flush_interval) and errors are
// delivered asynchronously via SetOnError.
package influxdb
