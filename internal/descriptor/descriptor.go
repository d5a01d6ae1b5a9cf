// ABOUTME: Loads the TOML agent descriptor consumed at startup.
// ABOUTME: Structured replacement for per-agent generated worker scripts.

package descriptor

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Defaults applied when the descriptor omits a field.
const (
	DefaultModel       = "gpt-3.5-turbo"
	DefaultVoice       = "nova"
	DefaultTemperature = 0.7
)

// Descriptor describes the agent this process runs: display identity plus the
// voice-pipeline configuration the supervisor passes through untouched.
type Descriptor struct {
	Name        string  `toml:"name"`
	Description string  `toml:"description"`
	Model       string  `toml:"model"`
	Voice       string  `toml:"voice"`
	Temperature float64 `toml:"temperature"`
	Prompt      string  `toml:"prompt"`
}

// Load reads a descriptor from a TOML file and applies defaults.
func Load(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading descriptor file: %w", err)
	}

	var d Descriptor
	if _, err := toml.Decode(string(data), &d); err != nil {
		return nil, fmt.Errorf("parsing descriptor: %w", err)
	}

	d.applyDefaults()

	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("validating descriptor: %w", err)
	}

	return &d, nil
}

func (d *Descriptor) applyDefaults() {
	if d.Model == "" {
		d.Model = DefaultModel
	}
	if d.Voice == "" {
		d.Voice = DefaultVoice
	}
	if d.Temperature == 0 {
		d.Temperature = DefaultTemperature
	}
}

// Validate checks the descriptor fields the backend relies on.
func (d *Descriptor) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("descriptor name is required")
	}
	if d.Temperature < 0 || d.Temperature > 2 {
		return fmt.Errorf("temperature %v out of range [0, 2]", d.Temperature)
	}
	return nil
}
