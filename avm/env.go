package avm

// Env is one level of variable scope. A clip's scope is an Env whose Vars
// are the clip's variables; function activations are children of the
// scope the function was defined in.
type Env struct {
	Parent *Env
	Vars   map[string]any
}

func (e *Env) Get(name string) (any, bool) {
	if owner := e.lookup(name); owner != nil {
		return owner.Vars[name], true
	}
	return nil, false
}

func (e *Env) Def(name string, val any) {
	if e.Vars == nil {
		e.Vars = make(map[string]any)
	}
	e.Vars[name] = val
}

func (e *Env) lookup(name string) *Env {
	for env := e; env != nil; env = env.Parent {
		if _, ok := env.Vars[name]; ok {
			return env
		}
	}
	return nil
}

func (e *Env) NewChild() *Env {
	return &Env{
		Parent: e,
	}
}
