// Package indicator drives status lights from playback transitions.
package indicator

import (
	"fmt"

	"github.com/lucasb-eyer/go-colorful"
)

// Directive names.
const (
	Starting = "starting"
	Playing  = "playing"
	Paused   = "paused"
	Stopped  = "stopped"
	Error    = "error"
)

// Animations understood by light sinks.
const (
	AnimationSolid   = "solid"
	AnimationPulse   = "pulse"
	AnimationBreathe = "breathe"
	AnimationBlink   = "blink"
	AnimationOff     = "off"
)

// Directive tells a sink what to show. Color is a #rrggbb hex string
// already scaled by Brightness.
type Directive struct {
	Name       string  `json:"name"`
	Color      string  `json:"color"`
	Animation  string  `json:"animation"`
	Brightness float64 `json:"brightness"`
}

// Sink displays directives.
type Sink interface {
	Apply(d Directive) error
}

type preset struct {
	color     string
	animation string
}

var presets = map[string]preset{
	Starting: {"#ffffff", AnimationPulse},
	Playing:  {"#1db954", AnimationSolid},
	Paused:   {"#ffb000", AnimationBreathe},
	Stopped:  {"#000000", AnimationOff},
	Error:    {"#e0245e", AnimationBlink},
}

// NewDirective builds the named directive at the given brightness,
// clamped to 0..1.
func NewDirective(name string, brightness float64) (Directive, error) {
	p, ok := presets[name]
	if !ok {
		return Directive{}, fmt.Errorf("unknown directive %q", name)
	}
	brightness = min(1, max(0, brightness))
	c, err := colorful.Hex(p.color)
	if err != nil {
		return Directive{}, err
	}
	return Directive{
		Name:       name,
		Color:      Scale(c, brightness).Hex(),
		Animation:  p.animation,
		Brightness: brightness,
	}, nil
}

// Scale dims c toward black in linear RGB so that half brightness emits
// half the light.
func Scale(c colorful.Color, brightness float64) colorful.Color {
	r, g, b := c.LinearRgb()
	return colorful.LinearRgb(r*brightness, g*brightness, b*brightness).Clamped()
}
