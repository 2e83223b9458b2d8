// Package telemetry wires structured logging (zerolog), distributed
// tracing (OpenTelemetry), and Prometheus metrics for the machine
// provider.
//
// Initialize once at startup:
//
//	tel, err := telemetry.New(telemetry.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tel.Shutdown(context.Background())
//
// Component loggers and the metrics collector are then handed to the
// reconciler and the CloudAPI client.
package telemetry
