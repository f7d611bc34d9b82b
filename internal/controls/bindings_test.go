//nolint:goconst // test cases intentionally repeat strings for readability
package controls

import (
	"slices"
	"testing"

	"github.com/llehouerou/musicbox/internal/config"
)

func TestResolver_Resolve(t *testing.T) {
	r := NewResolver([]Binding{
		{ActionToggle, []string{"toggle", "pin:17"}},
		{ActionNext, []string{"next", "pin:27"}},
	})

	tests := []struct {
		input    string
		expected Action
	}{
		{"toggle", ActionToggle},
		{"pin:17", ActionToggle},
		{"next", ActionNext},
		{"pin:27", ActionNext},
		{"pin:4", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := r.Resolve(tt.input); got != tt.expected {
				t.Errorf("Resolve(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestResolver_InputsForDeduplicates(t *testing.T) {
	r := NewResolver([]Binding{
		{ActionStop, []string{"stop", "pin:5"}},
		{ActionStop, []string{"pin:5"}},
	})

	inputs := r.InputsFor(ActionStop)
	if len(inputs) != 2 {
		t.Errorf("InputsFor(stop) = %v, want 2 entries", inputs)
	}
	if r.InputsFor(ActionShuffle) != nil {
		t.Error("InputsFor(unbound) should be nil")
	}
}

func TestBindings_FromConfig(t *testing.T) {
	cfg := config.ControlsConfig{Pins: map[string]int{"toggle": 17, "volume_up": 22}}

	r := NewResolver(Bindings(cfg))

	for _, name := range config.Buttons() {
		if got := r.Resolve(name); got != Action(name) {
			t.Errorf("Resolve(%q) = %q, want the button itself", name, got)
		}
	}
	if got := r.Resolve("pin:17"); got != ActionToggle {
		t.Errorf("Resolve(pin:17) = %q, want toggle", got)
	}
	if got := r.Resolve("pin:22"); got != ActionVolumeUp {
		t.Errorf("Resolve(pin:22) = %q, want volume_up", got)
	}
	if !slices.Contains(r.InputsFor(ActionToggle), "pin:17") {
		t.Errorf("InputsFor(toggle) = %v, want pin:17", r.InputsFor(ActionToggle))
	}
}
