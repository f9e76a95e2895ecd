package flowfile

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/ndconvert/internal/record"
)

// Fixture is the YAML layout of a flow file. It mirrors the dataset tree:
// hits and fractions are keyed by table path, relations list every
// reference dataset with its links.
type Fixture struct {
	Events       []record.Event           `yaml:"events"`
	Hits         map[string][]record.Hit  `yaml:"hits"`
	Relations    []FixtureRelation        `yaml:"relations"`
	Segments     []record.Segment         `yaml:"segments,omitempty"`
	Fractions    map[string][]FractionRow `yaml:"fractions,omitempty"`
	Trajectories []record.Trajectory      `yaml:"trajectories,omitempty"`
	Interactions []record.Vertex          `yaml:"interactions,omitempty"`
}

// FixtureRelation is one reference dataset.
type FixtureRelation struct {
	Parent string            `yaml:"parent"`
	Child  string            `yaml:"child"`
	Links  map[int64][]int64 `yaml:"links,omitempty"`
}

// LoadYAML reads a YAML fixture into a Memory store. Unknown keys are
// rejected so typos in fixtures fail loudly.
func LoadYAML(path string) (*Memory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}

	var fx Fixture
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fx); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return fx.Memory(), nil
}

// Memory builds a Memory store from the fixture.
func (fx *Fixture) Memory() *Memory {
	m := NewMemory().AddEvents(fx.Events...)
	for table, hits := range fx.Hits {
		m.AddHits(table, hits...)
	}
	for _, rel := range fx.Relations {
		m.Register(rel.Parent, rel.Child)
		for parent, children := range rel.Links {
			m.Link(rel.Parent, rel.Child, parent, children...)
		}
	}
	m.AddSegments(fx.Segments...)
	for table, rows := range fx.Fractions {
		m.AddFractions(table, rows...)
	}
	m.AddTrajectories(fx.Trajectories...)
	m.AddInteractions(fx.Interactions...)
	return m
}
