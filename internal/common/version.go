package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Version information, overridden via -ldflags at build time.
var (
	Version   = "dev"
	Build     = "unknown"
	GitCommit = "unknown"
)

// GetVersion returns the current version string
func GetVersion() string {
	return Version
}

// GetFullVersion returns version with build info
func GetFullVersion() string {
	return fmt.Sprintf("%s (build: %s, commit: %s)", Version, Build, GitCommit)
}

// LoadVersionFromFile reads a .version file placed next to the binary or
// in the working directory, overriding the compiled-in version. Deployed
// instances get versioned by dropping the file alongside the executable.
func LoadVersionFromFile() string {
	for _, dir := range versionFileDirs() {
		data, err := os.ReadFile(filepath.Join(dir, ".version"))
		if err != nil {
			continue
		}
		if version := strings.TrimSpace(string(data)); version != "" {
			Version = version
			break
		}
	}

	return Version
}

func versionFileDirs() []string {
	var dirs []string
	if execPath, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(execPath))
	}
	if cwd, err := os.Getwd(); err == nil {
		dirs = append(dirs, cwd)
	}
	return dirs
}
