package wizard

import (
	"encoding/json"
	"fmt"
)

// Scene is a named sequence of steps the engine can drive
type Scene interface {
	Name() string
	AdminOnly() bool
	Len() int
	// Start runs on entry and returns the initial encoded state
	Start(c *Context, params map[string]string) (json.RawMessage, Transition, error)
	// Step handles ev at cursor against the encoded state
	Step(c *Context, cursor int, state json.RawMessage, ev Event) (json.RawMessage, Transition, error)
}

// StartFunc prepares typed state on entry and sends the first prompt
type StartFunc[S any] func(c *Context, s *S, params map[string]string) (Transition, error)

// StepFunc handles one event for one step
type StepFunc[S any] func(c *Context, s *S, ev Event) (Transition, error)

// Flow is a Scene whose state is the struct S
type Flow[S any] struct {
	name  string
	admin bool
	start StartFunc[S]
	steps []StepFunc[S]
}

// NewFlow builds a Flow. Start may be nil.
func NewFlow[S any](name string, start StartFunc[S], steps ...StepFunc[S]) *Flow[S] {
	return &Flow[S]{name: name, start: start, steps: steps}
}

// RequireAdmin restricts entry to admins
func (f *Flow[S]) RequireAdmin() *Flow[S] {
	f.admin = true
	return f
}

func (f *Flow[S]) Name() string    { return f.name }
func (f *Flow[S]) AdminOnly() bool { return f.admin }
func (f *Flow[S]) Len() int        { return len(f.steps) }

func (f *Flow[S]) Start(c *Context, params map[string]string) (json.RawMessage, Transition, error) {
	var s S
	t := Stay()
	if f.start != nil {
		var err error
		if t, err = f.start(c, &s, params); err != nil {
			return nil, t, err
		}
	}
	raw, err := json.Marshal(&s)
	if err != nil {
		return nil, t, fmt.Errorf("%s: encode state: %w", f.name, err)
	}
	return raw, t, nil
}

func (f *Flow[S]) Step(c *Context, cursor int, state json.RawMessage, ev Event) (json.RawMessage, Transition, error) {
	if cursor < 0 || cursor >= len(f.steps) {
		return nil, Leave(), fmt.Errorf("%s: cursor %d out of range", f.name, cursor)
	}
	var s S
	if len(state) > 0 {
		if err := json.Unmarshal(state, &s); err != nil {
			return nil, Leave(), fmt.Errorf("%s: decode state: %w", f.name, err)
		}
	}
	t, err := f.steps[cursor](c, &s, ev)
	if err != nil {
		return nil, t, err
	}
	raw, err := json.Marshal(&s)
	if err != nil {
		return nil, t, fmt.Errorf("%s: encode state: %w", f.name, err)
	}
	return raw, t, nil
}
