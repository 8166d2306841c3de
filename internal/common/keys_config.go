package common

// KeysDirConfig contains configuration for key/value file loading.
type KeysDirConfig struct {
	// Dir is the directory containing key/value files in TOML format.
	// A variables.toml file has [key-name] entries with 'value' and
	// optional 'description' fields; a variables/ subdirectory may hold
	// additional TOML files.
	Dir string `toml:"dir"`
}
