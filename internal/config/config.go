package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/mlaass/globimap"
)

const (
	ModeSketch = "sketch"
	ModeBitmap = "bitmap"
)

type Config struct {
	Mode        string       `yaml:"mode"`
	Depth       int          `yaml:"depth"`
	Width       int          `yaml:"width"`
	Hash        string       `yaml:"hash"`
	Seed        uint64       `yaml:"seed"`
	CounterBits uint         `yaml:"counter_bits"`
	Bitmap      BitmapConfig `yaml:"bitmap"`
}

type BitmapConfig struct {
	Hashes  int  `yaml:"hashes"`
	LogSize uint `yaml:"log_size"`
}

// Default returns the configuration used for keys missing from a file.
func Default() Config {
	return Config{
		Mode:        ModeSketch,
		Depth:       4,
		Width:       1024,
		Hash:        globimap.Murmur3.String(),
		Seed:        globimap.H1,
		CounterBits: globimap.DefaultCounterBits,
		Bitmap: BitmapConfig{
			Hashes:  12,
			LogSize: 20,
		},
	}
}

func (c *Config) Parse(data []byte) error {
	return yaml.Unmarshal(data, c)
}

// Load reads the YAML file at path over the defaults. An empty path yields
// the defaults.
func Load(path string) (Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := c.Parse(data); err != nil {
		return c, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return c, nil
}

// SketchOptions returns the sketch options the configuration selects.
func (c Config) SketchOptions() ([]globimap.Option, error) {
	h, err := globimap.ParseHash(c.Hash)
	if err != nil {
		return nil, err
	}
	return []globimap.Option{
		globimap.WithHash(h),
		globimap.WithSeed(c.Seed),
		globimap.WithCounterBits(c.CounterBits),
	}, nil
}

// Validate checks the mode. Dimensions are checked by the structures
// themselves when they are configured.
func (c Config) Validate() error {
	switch c.Mode {
	case ModeSketch, ModeBitmap:
		return nil
	}
	return fmt.Errorf("config: unknown mode %q", c.Mode)
}
