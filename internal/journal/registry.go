package journal

import "fmt"

var allowedEvents = map[string]struct{}{
	// scene
	"scene.started": {},
	"scene.closed":  {},
	"scene.failed":  {},

	// widget
	"widget.created": {},
	"widget.shown":   {},
	"widget.hidden":  {},
	"widget.action":  {},

	// binding
	"binding.executed":         {},
	"binding.skipped":          {},
	"binding.condition_failed": {},
	"binding.params_fallback":  {},

	// beat
	"beat.started":   {},
	"beat.completed": {},
	"beat.failed":    {},
	"beat.bookmark":  {},
	"beat.narration": {},

	// script
	"script.started":   {},
	"script.completed": {},
	"script.failed":    {},

	// stream
	"stream.event": {},
	"stream.ended": {},
	"stream.error": {},

	// system
	"system.startup":  {},
	"system.shutdown": {},
	"system.error":    {},
}

// Validate reports whether name is a known journal event.
func Validate(name string) error {
	if _, ok := allowedEvents[name]; !ok {
		return fmt.Errorf("unknown journal event: %s", name)
	}
	return nil
}
