package types

// Binding is a single name/value pair in a frame.
type Binding struct {
	Name  string
	Value Value
}

// Environment is one frame of a lexical scope chain. Bindings keep their
// insertion order and a name appears at most once per frame.
//
// Frames are shared by reference: Set on a bound name mutates the frame that
// holds it, so every environment chained to that frame observes the change.
// Set on an unbound name never touches existing frames; it returns a new
// child frame instead.
type Environment struct {
	parent   *Environment
	bindings []Binding
}

// NewEnvironment creates a frame holding bindings, chained to parent (which
// may be nil).
func NewEnvironment(bindings []Binding, parent *Environment) *Environment {
	return &Environment{
		parent:   parent,
		bindings: append([]Binding(nil), bindings...),
	}
}

// Parent returns the enclosing frame, or nil for a root frame.
func (e *Environment) Parent() *Environment {
	return e.parent
}

// Bindings returns a copy of this frame's own bindings.
func (e *Environment) Bindings() []Binding {
	return append([]Binding(nil), e.bindings...)
}

// Lookup searches the chain innermost first and returns the value together
// with the frame that defines it.
func (e *Environment) Lookup(name string) (Value, *Environment, bool) {
	for env := e; env != nil; env = env.parent {
		for _, b := range env.bindings {
			if b.Name == name {
				return b.Value, env, true
			}
		}
	}
	return None, nil, false
}

// Get returns the value bound to name anywhere in the chain.
func (e *Environment) Get(name string) (Value, bool) {
	v, _, ok := e.Lookup(name)
	return v, ok
}

// Set assigns name. If name is bound somewhere in the chain the defining
// frame is updated in place and e is returned. Otherwise a new frame holding
// only this binding is chained under e and returned.
func (e *Environment) Set(name string, v Value) *Environment {
	if _, frame, ok := e.Lookup(name); ok {
		frame.Define(name, v)
		return e
	}
	return NewEnvironment([]Binding{{Name: name, Value: v}}, e)
}

// Define binds name in this frame, replacing an existing binding of the
// same name.
func (e *Environment) Define(name string, v Value) {
	for i := range e.bindings {
		if e.bindings[i].Name == name {
			e.bindings[i].Value = v
			return
		}
	}
	e.bindings = append(e.bindings, Binding{Name: name, Value: v})
}
