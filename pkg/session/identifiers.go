package session

import (
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/compositor/pkg/domain"
	"github.com/aretw0/compositor/pkg/schema"
)

// Identifiers is the process-scoped table of node identifiers for open projects.
// External references (shortcuts, remote controls) bind to a node by its stable ID;
// the table is filled when a project opens and cleared when it closes.
type Identifiers struct {
	mu       sync.RWMutex
	projects map[string]*projectIDs
}

type projectIDs struct {
	kinds    map[string]string // node ID -> kind
	bindings map[string]string // binding -> node ID
}

// NewIdentifiers creates an empty table.
func NewIdentifiers() *Identifiers {
	return &Identifiers{projects: make(map[string]*projectIDs)}
}

// Register records the nodes of doc under project. Bindings whose node survives are kept.
func (t *Identifiers) Register(project string, doc *schema.Document) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry := &projectIDs{
		kinds:    make(map[string]string, len(doc.Nodes)),
		bindings: make(map[string]string),
	}
	for _, n := range doc.Nodes {
		entry.kinds[n.ID] = n.Kind
	}
	if old, ok := t.projects[project]; ok {
		for b, id := range old.bindings {
			if _, alive := entry.kinds[id]; alive {
				entry.bindings[b] = id
			}
		}
	}
	t.projects[project] = entry
}

// Unregister drops every identifier and binding of project.
func (t *Identifiers) Unregister(project string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.projects, project)
}

// Kind returns the kind of a registered node.
func (t *Identifiers) Kind(project, nodeID string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	entry, ok := t.projects[project]
	if !ok {
		return "", false
	}
	kind, ok := entry.kinds[nodeID]
	return kind, ok
}

// IDs lists the registered node IDs of project, sorted.
func (t *Identifiers) IDs(project string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	entry, ok := t.projects[project]
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(entry.kinds))
	for id := range entry.kinds {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Bind links an external name to a node of an open project, replacing any previous target.
func (t *Identifiers) Bind(project, binding, nodeID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.projects[project]
	if !ok {
		return fmt.Errorf("project %q: %w", project, ErrProjectNotOpen)
	}
	if _, ok := entry.kinds[nodeID]; !ok {
		return fmt.Errorf("bind %q to %q: %w", binding, nodeID, domain.ErrNodeNotFound)
	}
	entry.bindings[binding] = nodeID
	return nil
}

// Resolve returns the node bound to an external name.
func (t *Identifiers) Resolve(project, binding string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	entry, ok := t.projects[project]
	if !ok {
		return "", false
	}
	id, ok := entry.bindings[binding]
	return id, ok
}
