package layout

import "fmt"

// Orientation places depth layer 0 at the top or the bottom of the diagram.
type Orientation string

const (
	TopDown  Orientation = "top-down"
	BottomUp Orientation = "bottom-up"
)

// Config holds the view constants of the 2D diagram. None of these are
// contractual; they only shape the picture.
type Config struct {
	Orientation Orientation `mapstructure:"orientation" yaml:"orientation"`
	MinWidth    float64     `mapstructure:"min_width" yaml:"min_width"`
	LeafSpacing float64     `mapstructure:"leaf_spacing" yaml:"leaf_spacing"`
	LayerGap    float64     `mapstructure:"layer_gap" yaml:"layer_gap"`
	Margin      float64     `mapstructure:"margin" yaml:"margin"`
	MinRadius   float64     `mapstructure:"min_radius" yaml:"min_radius"`
	MaxRadius   float64     `mapstructure:"max_radius" yaml:"max_radius"`
	MinStroke   float64     `mapstructure:"min_stroke" yaml:"min_stroke"`
	MaxStroke   float64     `mapstructure:"max_stroke" yaml:"max_stroke"`
	// CollisionDistance is the minimum centre distance enforced by the
	// drag-end collision pass.
	CollisionDistance float64 `mapstructure:"collision_distance" yaml:"collision_distance"`
}

// DefaultConfig returns the defaults used by the browser view.
func DefaultConfig() Config {
	return Config{
		Orientation:       TopDown,
		MinWidth:          600,
		LeafSpacing:       100,
		LayerGap:          120,
		Margin:            60,
		MinRadius:         12,
		MaxRadius:         48,
		MinStroke:         1,
		MaxStroke:         8,
		CollisionDistance: 80,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	switch c.Orientation {
	case TopDown, BottomUp:
	default:
		return fmt.Errorf("invalid orientation %q", c.Orientation)
	}
	if c.MinRadius <= 0 || c.MaxRadius < c.MinRadius {
		return fmt.Errorf("invalid radius range [%v, %v]", c.MinRadius, c.MaxRadius)
	}
	if c.MinStroke <= 0 || c.MaxStroke < c.MinStroke {
		return fmt.Errorf("invalid stroke range [%v, %v]", c.MinStroke, c.MaxStroke)
	}
	if c.LeafSpacing <= 0 || c.LayerGap <= 0 {
		return fmt.Errorf("leaf_spacing and layer_gap must be positive")
	}
	if c.CollisionDistance < 0 {
		return fmt.Errorf("collision_distance cannot be negative")
	}
	return nil
}
