package layout

import (
	"fmt"

	"github.com/ritzau/storygraph/pkg/model"
)

// Config is the complete input of one layout pass besides the graph itself.
// Node size is fixed: every node is a NodeWidth x NodeHeight rectangle.
type Config struct {
	Direction  model.Direction
	NodeWidth  float64
	NodeHeight float64
	NodeSep    float64 // gap between neighbouring nodes in a rank
	RankSep    float64 // gap between ranks
	EdgeSep    float64 // gap reserved around edges that pass through a rank

	// OrderIterations is the number of barycenter sweeps used to reduce crossings
	OrderIterations int
}

// DefaultConfig returns the spacing used by the story tree view
func DefaultConfig() Config {
	return Config{
		Direction:       model.DirectionTopToBottom,
		NodeWidth:       250,
		NodeHeight:      120,
		NodeSep:         80,
		RankSep:         120,
		EdgeSep:         20,
		OrderIterations: 8,
	}
}

// WithDirection returns a copy of the config laid out in direction d
func (c Config) WithDirection(d model.Direction) Config {
	c.Direction = d
	return c
}

// Validate rejects configurations that cannot produce a sensible layout
func (c Config) Validate() error {
	switch c.Direction {
	case model.DirectionTopToBottom, model.DirectionLeftToRight:
	default:
		return fmt.Errorf("%w: direction %q", ErrInvalidConfig, c.Direction)
	}
	if c.NodeWidth <= 0 || c.NodeHeight <= 0 {
		return fmt.Errorf("%w: node size %gx%g", ErrInvalidConfig, c.NodeWidth, c.NodeHeight)
	}
	if c.NodeSep < 0 || c.RankSep < 0 || c.EdgeSep < 0 {
		return fmt.Errorf("%w: negative separation", ErrInvalidConfig)
	}
	if c.OrderIterations < 0 {
		return fmt.Errorf("%w: negative order iterations", ErrInvalidConfig)
	}
	return nil
}

// crossSize is the extent of a node along a rank, rankSize across ranks
func (c Config) crossSize() float64 {
	if c.Direction == model.DirectionLeftToRight {
		return c.NodeHeight
	}
	return c.NodeWidth
}

func (c Config) rankSize() float64 {
	if c.Direction == model.DirectionLeftToRight {
		return c.NodeWidth
	}
	return c.NodeHeight
}
