// Package controls turns physical input (buttons, a rotary encoder, a tag
// reader) into coordinator commands.
package controls

import (
	"strconv"

	"github.com/llehouerou/musicbox/internal/config"
)

// Action is a button function. Action values are the button names of the
// [controls.pins] config table.
type Action string

const (
	ActionPlay       Action = config.ButtonPlay
	ActionPause      Action = config.ButtonPause
	ActionToggle     Action = config.ButtonToggle
	ActionStop       Action = config.ButtonStop
	ActionNext       Action = config.ButtonNext
	ActionPrevious   Action = config.ButtonPrevious
	ActionVolumeUp   Action = config.ButtonVolumeUp
	ActionVolumeDown Action = config.ButtonVolumeDown
	ActionRepeat     Action = config.ButtonRepeat
	ActionShuffle    Action = config.ButtonShuffle
)

// Binding ties one action to the inputs that trigger it.
type Binding struct {
	Action Action
	Inputs []string
}

// PinInput is the input name of a BCM pin.
func PinInput(pin int) string {
	return "pin:" + strconv.Itoa(pin)
}

// Bindings returns the bindings for a validated controls config. Every
// button answers to its own name; buttons with a pin also answer to it.
func Bindings(cfg config.ControlsConfig) []Binding {
	names := config.Buttons()
	out := make([]Binding, 0, len(names))
	for _, name := range names {
		b := Binding{Action: Action(name), Inputs: []string{name}}
		if pin, ok := cfg.Pins[name]; ok {
			b.Inputs = append(b.Inputs, PinInput(pin))
		}
		out = append(out, b)
	}
	return out
}

// Resolver maps input names to actions.
type Resolver struct {
	bindings map[string]Action
	byAction map[Action][]string
}

// NewResolver creates a resolver from bindings. A later binding wins when
// two claim the same input.
func NewResolver(bindings []Binding) *Resolver {
	r := &Resolver{
		bindings: make(map[string]Action),
		byAction: make(map[Action][]string),
	}
	for _, b := range bindings {
		for _, in := range b.Inputs {
			r.bindings[in] = b.Action
		}
		r.byAction[b.Action] = append(r.byAction[b.Action], b.Inputs...)
	}
	for action, inputs := range r.byAction {
		r.byAction[action] = dedupe(inputs)
	}
	return r
}

// Resolve returns the action for an input, or "" if unbound.
func (r *Resolver) Resolve(input string) Action {
	return r.bindings[input]
}

// InputsFor returns the inputs bound to an action.
func (r *Resolver) InputsFor(action Action) []string {
	return r.byAction[action]
}

func dedupe(s []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(s))
	for _, v := range s {
		if !seen[v] {
			seen[v] = true
			result = append(result, v)
		}
	}
	return result
}
