package metrics

// DefaultMetricsAddress is used when Config.Address is empty.
const DefaultMetricsAddress = ":9090"

// Config defines the configuration structure for the Prometheus metrics server.
type Config struct {
	// Address determines the network address where the Prometheus
	// metrics HTTP server listens.
	//
	// Example values:
	//   - ":9090"          → Listen on all interfaces, port 9090
	//   - "127.0.0.1:9100" → Listen only on localhost, port 9100
	//
	// Default: ":9090"
	Address string `mapstructure:"address"`

	// Enabled controls whether the HTTP endpoint is started. The registry and
	// observers work either way.
	Enabled bool `mapstructure:"enabled"`

	// EnableDefaultCollectors controls whether the built-in Go runtime
	// and process metrics are automatically registered.
	EnableDefaultCollectors bool `mapstructure:"enable_default_collectors"`

	// ServiceName is attached as a constant "service" label to every metric.
	ServiceName string `mapstructure:"service_name"`
}
