package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// ErrConfiguration matches every ConfigurationError via errors.Is.
var ErrConfiguration = errors.New("configuration error")

// ConfigurationError reports a missing or malformed input file, or a key the
// workflow needed but the file did not define.
type ConfigurationError struct {
	Path string
	Key  string
	Err  error
}

func (e *ConfigurationError) Error() string {
	switch {
	case e.Key != "" && e.Path != "":
		return fmt.Sprintf("configuration error: %s: missing key %q", e.Path, e.Key)
	case e.Key != "":
		return fmt.Sprintf("configuration error: missing key %q", e.Key)
	case e.Err != nil:
		return fmt.Sprintf("configuration error: %s: %v", e.Path, e.Err)
	default:
		return fmt.Sprintf("configuration error: %s", e.Path)
	}
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// Load reads one structured file (JSON or YAML, by extension) into a flat
// key/value mapping. An absent file or undecodable content is reported as a
// *ConfigurationError; the caller decides whether that is fatal.
func Load(path string) (map[string]string, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, &ConfigurationError{Path: path, Err: err}
	}

	if _, err := os.Stat(expanded); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &ConfigurationError{Path: expanded, Err: fmt.Errorf("file not found, please create it")}
		}
		return nil, &ConfigurationError{Path: expanded, Err: err}
	}

	v := viper.New()
	v.SetConfigFile(expanded)
	if filepath.Ext(expanded) == "" {
		v.SetConfigType("json")
	}
	if err := v.ReadInConfig(); err != nil {
		return nil, &ConfigurationError{Path: expanded, Err: fmt.Errorf("could not decode file, check its format: %w", err)}
	}

	out := make(map[string]string)
	for _, key := range v.AllKeys() {
		// Nested tables are not part of either file format.
		if strings.Contains(key, ".") {
			return nil, &ConfigurationError{Path: expanded, Err: fmt.Errorf("unexpected nested key %q", key)}
		}
		out[key] = v.GetString(key)
	}
	return out, nil
}
