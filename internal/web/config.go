package web

// Config represents the web server configuration
type Config struct {
	Server   ServerConfig
	Auth     AuthConfig
	Features FeatureConfig
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host string
	Port int
}

// AuthConfig contains API authentication settings
type AuthConfig struct {
	Enabled bool
	APIKey  string
}

// FeatureConfig contains feature toggles
type FeatureConfig struct {
	// ImportEnabled exposes the bulk roll-import endpoints.
	ImportEnabled bool
	// WritesEnabled exposes the reconciler endpoints; disable for a
	// read-only review deployment.
	WritesEnabled bool
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Auth: AuthConfig{
			Enabled: false,
		},
		Features: FeatureConfig{
			ImportEnabled: true,
			WritesEnabled: true,
		},
	}
}
