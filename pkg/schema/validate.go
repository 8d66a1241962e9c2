package schema

import (
	"fmt"

	"github.com/aretw0/compositor/pkg/domain"
	"github.com/aretw0/compositor/pkg/graph"
	"github.com/aretw0/compositor/pkg/registry"
)

// Validate checks a document against the registry without building a graph.
// It reports every failure it finds. Type and cycle checks on edges are left to the
// graph, which Build runs afterwards.
func Validate(doc *Document, reg *registry.Registry) error {
	if doc == nil {
		return &ValidationError{Path: "document", Reason: "is nil"}
	}

	var errs []error
	fail := func(path string, err error, format string, args ...any) {
		errs = append(errs, &ValidationError{Path: path, Reason: fmt.Sprintf(format, args...), Err: err})
	}

	if doc.Version > CurrentVersion {
		fail("version", nil, "unsupported version %d (max %d)", doc.Version, CurrentVersion)
	}

	ports := make(map[string]map[string]graph.PortSpec)
	seen := make(map[string]bool)
	for i, nd := range doc.Nodes {
		path := fmt.Sprintf("nodes[%d]", i)
		if nd.ID == "" {
			fail(path+".id", nil, "required")
			continue
		}
		if seen[nd.ID] {
			fail(path+".id", domain.ErrDuplicateNodeID, "duplicate id %q", nd.ID)
			continue
		}
		seen[nd.ID] = true

		kind, err := reg.Kind(nd.Kind, nd.Config)
		if err != nil {
			fail(path+".kind", err, "%v", err)
			continue
		}

		specs := make(map[string]graph.PortSpec)
		for _, s := range kind.Inputs() {
			specs["in:"+s.Name] = s
		}
		for _, s := range kind.Outputs() {
			specs["out:"+s.Name] = s
		}
		ports[nd.ID] = specs

		for name, pd := range nd.Params {
			ppath := fmt.Sprintf("%s.params.%s", path, name)
			spec, ok := specs["in:"+name]
			if !ok {
				fail(ppath, domain.ErrPortNotFound, "kind %s has no input %q", nd.Kind, name)
				continue
			}
			if _, err := ParamFromDoc(spec.Type, pd); err != nil {
				fail(ppath, domain.ErrTypeMismatch, "%v", err)
			}
		}
	}

	for i, ed := range doc.Edges {
		path := fmt.Sprintf("edges[%d]", i)
		check := func(field, ref, dir string) {
			r, err := ParsePortRef(ref)
			if err != nil {
				fail(path+"."+field, nil, "%v", err)
				return
			}
			specs, ok := ports[r.Node]
			if !ok {
				if !seen[r.Node] {
					fail(path+"."+field, domain.ErrNodeNotFound, "unknown node %q", r.Node)
				}
				return
			}
			if _, ok := specs[dir+":"+r.Port]; !ok {
				fail(path+"."+field, domain.ErrPortNotFound, "node %q has no %sput %q", r.Node, dir, r.Port)
			}
		}
		check("from", ed.From, "out")
		check("to", ed.To, "in")
	}

	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}
	return nil
}
