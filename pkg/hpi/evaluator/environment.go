package evaluator

import (
	"sort"

	perrors "github.com/hpi-lang/hpi/pkg/hpi/errors"
)

// Environment is one scope frame. Frames link outward to the global frame.
type Environment struct {
	store map[string]*Cell
	outer *Environment
}

// NewEnvironment creates an empty outermost frame
func NewEnvironment() *Environment {
	return &Environment{store: make(map[string]*Cell)}
}

// NewEnclosedEnvironment pushes a frame on top of outer. Popping is simply
// returning to outer.
func NewEnclosedEnvironment(outer *Environment) *Environment {
	env := NewEnvironment()
	env.outer = outer
	return env
}

// Declare binds name to a new cell in this frame, shadowing any outer
// binding of the same name.
func (e *Environment) Declare(name string, val Value) *Cell {
	cell := &Cell{Value: val}
	e.store[name] = cell
	return cell
}

// Lookup returns the canonical cell for name, searching innermost to
// outermost.
func (e *Environment) Lookup(name string) (*Cell, bool) {
	for env := e; env != nil; env = env.outer {
		if cell, ok := env.store[name]; ok {
			return cell, true
		}
	}
	return nil, false
}

// Resolve is Lookup for names the front-end guarantees to exist. A missing
// name is a defect and panics.
func (e *Environment) Resolve(name string) *Cell {
	cell, ok := e.Lookup(name)
	if !ok {
		msg := "Bezeichner `" + name + "` ist nicht gebunden"
		if match := perrors.FindClosestMatch(name, e.AllIdentifiers()); match != "" {
			msg += " (gemeint: `" + match + "`?)"
		}
		perrors.Defectf("%s", msg)
	}
	return cell
}

// AllIdentifiers returns every name visible from this frame, sorted.
func (e *Environment) AllIdentifiers() []string {
	seen := make(map[string]bool)
	var result []string

	for env := e; env != nil; env = env.outer {
		for name := range env.store {
			if !seen[name] {
				seen[name] = true
				result = append(result, name)
			}
		}
	}

	sort.Strings(result)
	return result
}

// Values returns the current contents of this frame's bindings.
func (e *Environment) Values() map[string]Value {
	out := make(map[string]Value, len(e.store))
	for name, cell := range e.store {
		out[name] = cell.Value
	}
	return out
}
