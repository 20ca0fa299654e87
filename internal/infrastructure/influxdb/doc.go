// Package influxdb records track pipeline outcomes in InfluxDB.
//
// A Recorder is a pipeline.Observer: every processed message, whatever its
// stage, becomes one point in the track_events measurement. Points are
// batched by the influxdb-client-go write API and flushed on an interval, so
// Observe never waits on the network.
//
//	rec, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer rec.Close()
//	rec.SetOnError(func(err error) { log.Error("metrics write failed", "error", err) })
//
// Write failures only reach the SetOnError callback; they never affect
// alarm delivery.
package influxdb
