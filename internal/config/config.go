// Package config holds the run configuration. A configuration is read once,
// validated against an embedded CUE schema, and then consumed by the
// pipeline at construction.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/ndconvert/internal/chunk"
	"github.com/roach88/ndconvert/internal/record"
	"github.com/roach88/ndconvert/internal/resolve"
	"github.com/roach88/ndconvert/internal/schema"
)

//go:embed config.cue
var schemaCUE string

// OutputSuffix is appended to the first input's base name when no output
// name is given.
const OutputSuffix = "_hits.db"

// Config is the full run configuration.
type Config struct {
	// IsData disables every truth column and uses DataCapacity.
	IsData bool `yaml:"is_data" json:"is_data"`
	// UseFinalHits reads final instead of prompt hits in flat mode.
	UseFinalHits bool   `yaml:"use_final_hits" json:"use_final_hits"`
	OutputName   string `yaml:"output_name" json:"output_name"`

	Mode string `yaml:"mode" json:"mode"`
	// TruthSource is "packet" or "backtrack". Empty picks packet for flat
	// output and backtrack for nested output.
	TruthSource string `yaml:"truth_source" json:"truth_source"`

	Capacity      int `yaml:"capacity" json:"capacity"`
	DataCapacity  int `yaml:"data_capacity" json:"data_capacity"`
	ProgressEvery int `yaml:"progress_every" json:"progress_every"`
	Workers       int `yaml:"workers" json:"workers"`

	// HitOrder is the order nested output emits hit kinds in.
	HitOrder []string `yaml:"hit_order" json:"hit_order"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Mode:          schema.Flat.String(),
		Capacity:      chunk.DefaultCapacity,
		DataCapacity:  chunk.DefaultDataCapacity,
		ProgressEvery: 10,
		Workers:       1,
		HitOrder:      []string{record.Final.String(), record.Prompt.String()},
	}
}

// Load reads a YAML configuration file on top of Default and validates it.
// Unknown keys are rejected.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML configuration on top of Default and validates it.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration against the CUE schema, then checks the
// constraints the schema cannot express.
func (c Config) Validate() error {
	ctx := cuecontext.New()
	def := ctx.CompileString(schemaCUE).LookupPath(cue.ParsePath("#Config"))
	if err := def.Err(); err != nil {
		return fmt.Errorf("config schema: %w", err)
	}
	if c.HitOrder == nil {
		c.HitOrder = []string{}
	}
	v := def.Unify(ctx.Encode(c))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if _, err := c.HitKinds(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// HitKind is the hit collection flat output reads.
func (c Config) HitKind() record.HitKind {
	if c.UseFinalHits {
		return record.Final
	}
	return record.Prompt
}

// HitKinds parses HitOrder.
func (c Config) HitKinds() ([]record.HitKind, error) {
	kinds := make([]record.HitKind, 0, len(c.HitOrder))
	seen := make(map[record.HitKind]bool)
	for _, s := range c.HitOrder {
		var k record.HitKind
		switch s {
		case record.Prompt.String():
			k = record.Prompt
		case record.Final.String():
			k = record.Final
		default:
			return nil, fmt.Errorf("unknown hit kind %q", s)
		}
		if seen[k] {
			return nil, fmt.Errorf("hit kind %q listed twice", s)
		}
		seen[k] = true
		kinds = append(kinds, k)
	}
	return kinds, nil
}

// OutputMode parses Mode.
func (c Config) OutputMode() (schema.Mode, error) {
	return schema.ParseMode(c.Mode)
}

// Source resolves the truth link source, applying the per-mode default.
func (c Config) Source() (resolve.Source, error) {
	if c.TruthSource != "" {
		return resolve.ParseSource(c.TruthSource)
	}
	mode, err := c.OutputMode()
	if err != nil {
		return resolve.Packets, err
	}
	if mode == schema.Nested {
		return resolve.Backtrack, nil
	}
	return resolve.Packets, nil
}

// ChunkCapacity is the window size for this run.
func (c Config) ChunkCapacity() int {
	if c.IsData {
		return c.DataCapacity
	}
	return c.Capacity
}

// OutputPath returns OutputName, or the first input's base name plus
// OutputSuffix in the working directory.
func (c Config) OutputPath(inputs []string) string {
	if c.OutputName != "" {
		return c.OutputName
	}
	if len(inputs) == 0 {
		return "out" + OutputSuffix
	}
	return filepath.Base(inputs[0]) + OutputSuffix
}
