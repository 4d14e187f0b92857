package board

import "sync"

type guardScope string

const (
	scopeCreate         guardScope = "create"
	scopeRename         guardScope = "rename"
	scopeDeletePipeline guardScope = "delete-pipeline"
	scopeAddStage       guardScope = "add-stage"
	scopeDeleteStage    guardScope = "delete-stage"
	scopeAddLead        guardScope = "add-lead"
	scopeMove           guardScope = "move"
)

// guardKey identifies one in-flight command. Commands with different keys
// run concurrently; a second command with a held key is refused.
type guardKey struct {
	scope      guardScope
	pipelineID string
	target     string // stage id, new stage name, or lead id depending on scope
}

type guards struct {
	mu   sync.Mutex
	held map[guardKey]struct{}
}

func newGuards() *guards {
	return &guards{held: make(map[guardKey]struct{})}
}

// acquire takes key or fails with ErrBusy. The returned release is safe to
// call more than once.
func (g *guards) acquire(key guardKey) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.held[key]; busy {
		return nil, ErrBusy
	}
	g.held[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.held, key)
			g.mu.Unlock()
		})
	}, nil
}

func (g *guards) isHeld(key guardKey) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.held[key]
	return ok
}
