package engine

import (
	"engram/internal/ingest"
)

// Registry maps incoming events to the handlers able to process them.
// Registration order is dispatch order; ties go to the earliest
// registration. Registration happens at startup, so no locking: lookups
// after that are read-only.
type Registry struct {
	handlers []EventHandler
}

func NewRegistry() *Registry {
	return &Registry{}
}

// NewDefaultRegistry wires exactly one handler per canonical event type:
// content, thought, tool_call, diff, usage, control.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&ContentEventHandler{})
	r.Register(&ThoughtEventHandler{})
	r.Register(&ToolCallEventHandler{})
	r.Register(&DiffEventHandler{})
	r.Register(&UsageEventHandler{})
	r.Register(&ControlEventHandler{})
	return r
}

// Register appends a handler.
func (r *Registry) Register(h EventHandler) {
	r.handlers = append(r.handlers, h)
}

// HandlerFor returns the first registered handler whose CanHandle accepts
// the event, or nil.
func (r *Registry) HandlerFor(event *ingest.ParsedEvent) EventHandler {
	for _, h := range r.handlers {
		if h.CanHandle(event) {
			return h
		}
	}
	return nil
}

// HandlersFor returns all handlers accepting the event, in registration
// order.
func (r *Registry) HandlersFor(event *ingest.ParsedEvent) []EventHandler {
	var out []EventHandler
	for _, h := range r.handlers {
		if h.CanHandle(event) {
			out = append(out, h)
		}
	}
	return out
}

// EventTypes returns the distinct type tags the registry supports.
func (r *Registry) EventTypes() []ingest.DeltaType {
	seen := make(map[ingest.DeltaType]struct{}, len(r.handlers))
	var out []ingest.DeltaType
	for _, h := range r.handlers {
		if _, ok := seen[h.EventType()]; ok {
			continue
		}
		seen[h.EventType()] = struct{}{}
		out = append(out, h.EventType())
	}
	return out
}

// HandlerCount returns the number of registered handlers.
func (r *Registry) HandlerCount() int {
	return len(r.handlers)
}
