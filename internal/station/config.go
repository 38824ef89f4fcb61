package station

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig is the station's YAML config file. Command line flags override
// whatever it sets.
type FileConfig struct {
	Server          string        `yaml:"server"`
	EventID         string        `yaml:"event_id"`
	GrantToken      string        `yaml:"grant_token"`
	AuthToken       string        `yaml:"auth_token"`
	FramesDir       string        `yaml:"frames_dir"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	Cooldown        time.Duration `yaml:"cooldown"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	RemoveProcessed bool          `yaml:"remove_processed"`
}

func DefaultFileConfig() FileConfig {
	return FileConfig{
		Server:         "http://127.0.0.1:8090",
		FramesDir:      "./frames",
		PollInterval:   DefaultPollInterval,
		Cooldown:       DefaultCooldown,
		RequestTimeout: DefaultDispatchTimeout,
	}
}

// LoadFileConfig reads path over the defaults. A missing file is not an
// error; unknown keys are.
func LoadFileConfig(path string) (FileConfig, error) {
	cfg := DefaultFileConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read station config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parse station config %s: %w", path, err)
	}
	return cfg, nil
}

func (c FileConfig) Validate() error {
	switch {
	case c.Server == "":
		return errors.New("server is required")
	case c.EventID == "":
		return errors.New("event_id is required")
	case c.GrantToken == "" && c.AuthToken == "":
		return errors.New("grant_token or auth_token is required")
	case c.FramesDir == "":
		return errors.New("frames_dir is required")
	case c.Cooldown < 0:
		return errors.New("cooldown must not be negative")
	}
	return nil
}
