package common

import (
	"os"
	"strings"
)

// DefaultConfigFile is the config file name looked for when no -config flag is given
const DefaultConfigFile = "marketlens.toml"

// DiscoverConfigFiles returns paths unchanged when set, otherwise the first config file found
// in $MARKETLENS_CONFIG, the working directory or deployments/local.
func DiscoverConfigFiles(paths []string) []string {
	if len(paths) > 0 {
		return paths
	}

	candidates := []string{os.Getenv("MARKETLENS_CONFIG"), DefaultConfigFile, "deployments/local/" + DefaultConfigFile}
	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		if _, err := os.Stat(candidate); err == nil {
			return []string{candidate}
		}
	}
	return nil
}

// ConfigPaths is a flag.Value collecting repeated -config flags
type ConfigPaths []string

func (c *ConfigPaths) String() string {
	if c == nil {
		return ""
	}
	return strings.Join(*c, ",")
}

func (c *ConfigPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}
