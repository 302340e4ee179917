package tracer

// Config controls OpenTelemetry trace export.
type Config struct {
	// Enabled turns on the OTLP/HTTP exporter. When false the tracer is a no-op.
	Enabled bool `mapstructure:"enabled"`

	// Endpoint is the collector host:port, e.g. "otel-collector:4318".
	// Empty uses the exporter's environment-driven default.
	Endpoint string `mapstructure:"endpoint"`

	// Insecure disables TLS towards the collector.
	Insecure bool `mapstructure:"insecure"`

	ServiceName string `mapstructure:"service_name"`
}
