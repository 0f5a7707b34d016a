package config

// Provider hands out the configuration for one sync run. Implementations may
// re-read their source on every call so edits apply without a restart.
type Provider interface {
	Current() (*Config, error)
}

// FileProvider reloads the .env file on every call.
type FileProvider struct {
	EnvFile string
}

func (p FileProvider) Current() (*Config, error) {
	return Load(p.EnvFile)
}

// Static always returns the same configuration.
type Static struct {
	Config *Config
}

func (s Static) Current() (*Config, error) {
	return s.Config, nil
}
