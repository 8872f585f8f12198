package settings

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const (
	// EnvConfigFile names the environment variable that overrides which
	// settings file is used. Its value is normally a file name such as
	// "settings2.json" (or a relative path), searched for inside the XDG
	// config directories; an absolute path is used verbatim.
	EnvConfigFile = "UPLINK_CONFIG_FILE"

	// xdgConfigDir is the directory suffixed to each XDG config root.
	xdgConfigDir = "uplink"

	// defaultConfigFile is the settings file name searched for by default.
	defaultConfigFile = "settings.json"
)

// Locate searches the XDG config directories for the settings file and
// returns the first match. The search respects UPLINK_CONFIG_FILE. When no
// file is found a *NotFoundError lists every path that was checked.
func Locate() (string, error) {
	name := defaultConfigFile
	if override := os.Getenv(EnvConfigFile); override != "" {
		if filepath.IsAbs(override) {
			if fileExists(override) {
				return override, nil
			}
			return "", NewNotFoundError(override)
		}
		name = override
	}

	dirs := append([]string{xdg.ConfigHome}, xdg.ConfigDirs...)
	checked := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		candidate := filepath.Join(dir, xdgConfigDir, name)
		if fileExists(candidate) {
			return candidate, nil
		}
		checked = append(checked, candidate)
	}
	return "", NewNotFoundError(checked...)
}

// DefaultPath returns where a new settings file is written: the settings
// file name under the uplink directory in XDG_CONFIG_HOME, with parent
// directories created. An absolute UPLINK_CONFIG_FILE wins outright.
func DefaultPath() (string, error) {
	name := defaultConfigFile
	if override := os.Getenv(EnvConfigFile); override != "" {
		if filepath.IsAbs(override) {
			return override, nil
		}
		name = override
	}
	path, err := xdg.ConfigFile(filepath.Join(xdgConfigDir, name))
	if err != nil {
		return "", fmt.Errorf("resolving settings path: %w", err)
	}
	return path, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
