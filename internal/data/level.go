package data

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/storechase/server/internal/world"
	"gopkg.in/yaml.v3"
)

//go:embed schema/level.schema.json
var levelSchemaJSON string

const levelSchemaURL = "level.schema.json"

var (
	levelSchemaOnce sync.Once
	levelSchema     *jsonschema.Schema
	levelSchemaErr  error
)

func compiledLevelSchema() (*jsonschema.Schema, error) {
	levelSchemaOnce.Do(func() {
		levelSchema, levelSchemaErr = jsonschema.CompileString(levelSchemaURL, levelSchemaJSON)
	})
	return levelSchema, levelSchemaErr
}

// ObstacleEntry is one static box in the level file.
type ObstacleEntry struct {
	Position [3]float64 `yaml:"position"`
	Size     [3]float64 `yaml:"size"` // full width, height, depth
	Category string     `yaml:"category"`
	Color    string     `yaml:"color"`
}

// SpawnEntry places a character when the level starts.
type SpawnEntry struct {
	Name       string     `yaml:"name"`
	Position   [3]float64 `yaml:"position"`
	Controller string     `yaml:"controller"`
	Binding    string     `yaml:"binding"`
	Script     string     `yaml:"script"`
	Target     string     `yaml:"target"`
	Color      string     `yaml:"color"`
}

// LevelFile is the document layout of store_level.yaml.
type LevelFile struct {
	Name      string          `yaml:"name"`
	Obstacles []ObstacleEntry `yaml:"obstacles"`
	Spawns    []SpawnEntry    `yaml:"spawns"`
}

// LoadLevel reads a level file, validates it against the embedded schema and
// builds the world model from it.
func LoadLevel(path string) (*world.Level, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read level: %w", err)
	}
	return ParseLevel(raw)
}

// ParseLevel is LoadLevel for an in-memory document.
func ParseLevel(raw []byte) (*world.Level, error) {
	if err := validateLevel(raw); err != nil {
		return nil, err
	}
	var f LevelFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse level: %w", err)
	}
	return f.Build()
}

// validateLevel checks the document shape before it is decoded into typed
// entries. The schema validator works on JSON values, so the YAML tree is
// re-encoded first.
func validateLevel(raw []byte) error {
	schema, err := compiledLevelSchema()
	if err != nil {
		return fmt.Errorf("compile level schema: %w", err)
	}
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse level: %w", err)
	}
	js, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("level to json: %w", err)
	}
	var v any
	if err := json.Unmarshal(js, &v); err != nil {
		return fmt.Errorf("level to json: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("validate level: %w", err)
	}
	return nil
}

// Build converts the decoded file into a world.Level. Spawn names must be
// unique and every AI target must name another spawn.
func (f *LevelFile) Build() (*world.Level, error) {
	obstacles := make([]world.Obstacle, 0, len(f.Obstacles))
	for i, e := range f.Obstacles {
		cat, err := world.ParseCategory(e.Category)
		if err != nil {
			return nil, fmt.Errorf("obstacle %d: %w", i, err)
		}
		o := world.NewObstacle(mgl64.Vec3(e.Position), mgl64.Vec3(e.Size), cat)
		o.Color = e.Color
		obstacles = append(obstacles, o)
	}

	names := make(map[string]bool, len(f.Spawns))
	for _, e := range f.Spawns {
		if names[e.Name] {
			return nil, fmt.Errorf("spawn %q: duplicate name", e.Name)
		}
		names[e.Name] = true
	}

	spawns := make([]world.Spawn, 0, len(f.Spawns))
	for _, e := range f.Spawns {
		ctrl, err := world.ParseController(e.Controller)
		if err != nil {
			return nil, fmt.Errorf("spawn %q: %w", e.Name, err)
		}
		if e.Target != "" && (e.Target == e.Name || !names[e.Target]) {
			return nil, fmt.Errorf("spawn %q: unknown target %q", e.Name, e.Target)
		}
		spawns = append(spawns, world.Spawn{
			Name:       e.Name,
			Position:   mgl64.Vec3(e.Position),
			Controller: ctrl,
			Binding:    e.Binding,
			Script:     e.Script,
			Target:     e.Target,
			Color:      e.Color,
		})
	}
	return world.NewLevel(f.Name, obstacles, spawns), nil
}
