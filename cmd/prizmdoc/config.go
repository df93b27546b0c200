package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// envFlags maps environment variables onto persistent flags.
var envFlags = map[string]string{
	"PRIZMDOC_API_KEY":  "api-key",
	"PRIZMDOC_BASE_URL": "base-url",
}

// loadSettings fills flags the user did not set. Command line flags win over
// the environment (including .env), which wins over the config file.
func loadSettings(cmd *cobra.Command, opts *cliOptions) error {
	_ = godotenv.Load()

	values := make(map[string]string)

	path, explicit := opts.configPath, opts.configPath != ""
	if !explicit {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, ".prizmdoc", "config.toml")
		}
	}
	if path != "" {
		fileValues, err := readConfigFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist) && !explicit:
			// no default config file
		case err != nil:
			return fmt.Errorf("load config %s: %w", path, err)
		default:
			for _, key := range []string{"", cmd.Name()} {
				for name, value := range fileValues {
					if prefix, flag := splitKey(name); prefix == key {
						values[flag] = value
					}
				}
			}
		}
	}

	for env, flag := range envFlags {
		if v := os.Getenv(env); v != "" {
			values[flag] = v
		}
	}

	var setErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Changed || setErr != nil {
			return
		}
		if v, ok := values[f.Name]; ok {
			if err := f.Value.Set(v); err != nil {
				setErr = fmt.Errorf("invalid value %q for %s: %w", v, f.Name, err)
			}
		}
	})
	return setErr
}

// readConfigFile reads a TOML file into flag-name keys. Tables scope keys to
// a subcommand, so [convert] to = "tiff" becomes "convert.to".
func readConfigFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var loaded map[string]any
	if err := toml.Unmarshal(data, &loaded); err != nil {
		return nil, err
	}

	return flattenConfig(loaded, ""), nil
}

func flattenConfig(m map[string]any, prefix string) map[string]string {
	result := make(map[string]string)
	for key, value := range m {
		full := key
		if prefix != "" {
			full = prefix + "." + key
		}
		if nested, ok := value.(map[string]any); ok {
			for k, v := range flattenConfig(nested, full) {
				result[k] = v
			}
			continue
		}
		result[full] = fmt.Sprint(value)
	}
	return result
}

// splitKey separates "convert.to" into its command and flag parts.
func splitKey(key string) (string, string) {
	for i := len(key) - 1; i >= 0; i-- {
		if key[i] == '.' {
			return key[:i], key[i+1:]
		}
	}
	return "", key
}
