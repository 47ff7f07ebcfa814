// Package script loads and saves click scripts: a named point list plus its
// run configuration, stored as YAML.
//
// A document is checked against an embedded CUE schema before it is decoded,
// so type errors and out-of-range values are reported with their paths.
// Decoding then applies defaults for omitted fields:
//
//	id            new UUIDv7
//	order         position in the file
//	delay_ms      1000
//	enabled       true
//	jitter_range  10
//	drift_speed   1
//	name          "Point N"
//	loop_count    1
//
// Names are NFC-normalised so visually identical names compare equal.
package script

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/Amayakite/AutoClicker/internal/engine"
	"github.com/Amayakite/AutoClicker/internal/point"
)

// Script is a named, configured point sequence.
type Script struct {
	Name        string
	Description string
	Config      point.RunConfig

	// Points are held in Order sequence with Order values 0..n-1.
	Points []point.ClickPoint

	// Renumbered is set by Parse when the document's order values had gaps or
	// duplicates and were rewritten. Ties keep file position.
	Renumbered bool
}

type rawPoint struct {
	ID          string   `yaml:"id"`
	Order       *int     `yaml:"order"`
	X           float64  `yaml:"x"`
	Y           float64  `yaml:"y"`
	DelayMS     *int     `yaml:"delay_ms"`
	Enabled     *bool    `yaml:"enabled"`
	Jitter      bool     `yaml:"jitter"`
	JitterRange *float64 `yaml:"jitter_range"`
	Drift       bool     `yaml:"drift"`
	DriftSpeed  *float64 `yaml:"drift_speed"`
	Name        string   `yaml:"name"`
}

type rawConfig struct {
	StartDelayMS     int  `yaml:"start_delay_ms"`
	LoopEnabled      bool `yaml:"loop_enabled"`
	LoopCount        *int `yaml:"loop_count"`
	VibrationEnabled bool `yaml:"vibration_enabled"`
	DebugMode        bool `yaml:"debug_mode"`
}

type rawScript struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	Config      rawConfig  `yaml:"config"`
	Points      []rawPoint `yaml:"points"`
}

// document is the on-disk layout written by Marshal.
type document struct {
	Name        string             `yaml:"name"`
	Description string             `yaml:"description,omitempty"`
	Config      point.RunConfig    `yaml:"config"`
	Points      []point.ClickPoint `yaml:"points"`
}

type options struct {
	ids point.IDGenerator
}

// Option configures parsing.
type Option func(*options)

// WithIDGenerator sets the generator for points without an id.
// Default: engine.UUIDv7Generator.
func WithIDGenerator(g point.IDGenerator) Option {
	return func(o *options) {
		o.ids = g
	}
}

// Load reads and parses the script at path.
func Load(path string, opts ...Option) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	return Parse(filepath.Base(path), data, opts...)
}

// Parse decodes a script document. name labels errors.
//
// The returned script has passed both the schema and Validate.
func Parse(name string, data []byte, opts ...Option) (*Script, error) {
	o := options{ids: engine.UUIDv7Generator{}}
	for _, opt := range opts {
		opt(&o)
	}

	if err := CheckSchema(name, data); err != nil {
		return nil, err
	}

	var raw rawScript
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%s: decode: %w", name, err)
	}

	s := &Script{
		Name:        norm.NFC.String(raw.Name),
		Description: raw.Description,
		Config: point.RunConfig{
			StartDelayMS:     raw.Config.StartDelayMS,
			LoopEnabled:      raw.Config.LoopEnabled,
			LoopCount:        point.DefaultRunConfig().LoopCount,
			VibrationEnabled: raw.Config.VibrationEnabled,
			DebugMode:        raw.Config.DebugMode,
		},
		Points: make([]point.ClickPoint, 0, len(raw.Points)),
	}
	if raw.Config.LoopCount != nil {
		s.Config.LoopCount = *raw.Config.LoopCount
	}

	for i, rp := range raw.Points {
		s.Points = append(s.Points, rp.toPoint(i, o.ids))
	}
	s.Points, s.Renumbered = renumber(s.Points)

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return s, nil
}

func (rp rawPoint) toPoint(pos int, ids point.IDGenerator) point.ClickPoint {
	order := pos
	if rp.Order != nil {
		order = *rp.Order
	}
	id := rp.ID
	if id == "" {
		id = ids.Generate()
	}

	p := point.New(order, rp.X, rp.Y, id)
	p.Jitter = rp.Jitter
	p.Drift = rp.Drift
	if rp.DelayMS != nil {
		p.DelayMS = *rp.DelayMS
	}
	if rp.Enabled != nil {
		p.Enabled = *rp.Enabled
	}
	if rp.JitterRange != nil {
		p.JitterRange = *rp.JitterRange
	}
	if rp.DriftSpeed != nil {
		p.DriftSpeed = *rp.DriftSpeed
	}
	if rp.Name != "" {
		p.Name = norm.NFC.String(rp.Name)
	}
	return p
}

// renumber sorts points by Order and makes the values contiguous.
func renumber(points []point.ClickPoint) ([]point.ClickPoint, bool) {
	sorted := point.NewList(nil, points...).Points()
	before := point.SortByOrder(points)
	changed := false
	for i := range sorted {
		if sorted[i].Order != before[i].Order {
			changed = true
			break
		}
	}
	return sorted, changed
}

// Validate checks the script's points and configuration, reporting every
// violation.
func (s *Script) Validate() error {
	var errs []error
	if s.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if len(s.Points) > point.MaxPoints {
		errs = append(errs, fmt.Errorf("too many points: %d (max %d)", len(s.Points), point.MaxPoints))
	}
	for _, p := range s.Points {
		if p.DelayMS > point.MaxDelayMS {
			errs = append(errs, fmt.Errorf("point %s: delay %d exceeds %d", p.ID, p.DelayMS, point.MaxDelayMS))
		}
		if p.JitterRange > point.MaxJitterRange {
			errs = append(errs, fmt.Errorf("point %s: jitter range %g exceeds %d", p.ID, p.JitterRange, point.MaxJitterRange))
		}
		if p.DriftSpeed > point.MaxDriftSpeed {
			errs = append(errs, fmt.Errorf("point %s: drift speed %g exceeds %d", p.ID, p.DriftSpeed, point.MaxDriftSpeed))
		}
	}
	if err := point.Validate(s.Points); err != nil {
		errs = append(errs, err)
	}
	if err := s.Config.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// EnabledCount returns how many points would be dispatched.
func (s *Script) EnabledCount() int {
	return len(point.ExecutionOrder(s.Points))
}

// Marshal encodes s with points sorted by Order and renumbered 0..n-1.
func Marshal(s *Script) ([]byte, error) {
	doc := document{
		Name:        s.Name,
		Description: s.Description,
		Config:      s.Config,
		Points:      point.NewList(nil, s.Points...).Points(),
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode script: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode script: %w", err)
	}
	return buf.Bytes(), nil
}

// Save writes s to path, replacing any existing file.
func Save(path string, s *Script) error {
	data, err := Marshal(s)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write script: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write script: %w", err)
	}
	return nil
}
