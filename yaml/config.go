// Package yaml loads crawl configuration from YAML files.
package yaml

import (
	"errors"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/fwojciec/harvest"
)

// Load reads configuration from a YAML file. File values overlay
// harvest.DefaultConfig, so a partial file is valid; the result is
// normalized and validated before it is returned.
func Load(path string) (harvest.Config, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return harvest.Config{}, harvest.Errorf(harvest.ENOTFOUND, "no config file at %s", path)
		}
		return harvest.Config{}, harvest.Errorf(harvest.EPERSISTENCE, "open config: %v", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes configuration from r on top of the defaults. Unknown
// keys are rejected so typos fail loudly instead of silently falling
// back to a default.
func Parse(r io.Reader) (harvest.Config, error) {
	cfg := harvest.DefaultConfig()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return harvest.Config{}, harvest.Errorf(harvest.EINVALID, "decode config: %v", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return harvest.Config{}, err
	}
	return cfg, nil
}
