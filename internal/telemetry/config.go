package telemetry

// Config selects how command traces are recorded
type Config struct {
	ServiceName    string
	ServiceVersion string

	// Enabled turns tracing on. When false every span is a noop.
	Enabled bool

	// Endpoint is the OTLP/HTTP collector, either host:port or a full URL.
	// Empty records spans without exporting them.
	Endpoint string

	// SampleRate is the fraction of command runs traced, 0.0 to 1.0
	SampleRate float64
}

// DefaultConfig returns the CLI default: tracing off
func DefaultConfig() Config {
	return Config{
		ServiceName:    "grievance",
		ServiceVersion: "dev",
		SampleRate:     1.0,
	}
}
