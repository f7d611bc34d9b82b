package indicator

import "github.com/rs/zerolog"

// LogSink writes directives to the log. It stands in for the light
// hardware on development machines.
type LogSink struct {
	log zerolog.Logger
}

// NewLogSink creates a log sink.
func NewLogSink(log zerolog.Logger) *LogSink {
	return &LogSink{log: log.With().Str("component", "indicator").Logger()}
}

// Apply logs d.
func (s *LogSink) Apply(d Directive) error {
	s.log.Info().
		Str("directive", d.Name).
		Str("color", d.Color).
		Str("animation", d.Animation).
		Float64("brightness", d.Brightness).
		Msg("Indicator")
	return nil
}

var _ Sink = (*LogSink)(nil)
