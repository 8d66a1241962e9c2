package middleware

import (
	"context"
	"regexp"

	"github.com/aretw0/compositor/pkg/ports"
	"github.com/aretw0/compositor/pkg/schema"
)

// Redacted replaces masked config values.
const Redacted = "***"

type redactionMiddleware struct {
	next     ports.ProjectStore
	patterns []*regexp.Regexp
}

// NewRedactionMiddleware creates a middleware that masks node config values whose key
// matches one of the patterns, e.g. credentials embedded in footage URLs.
// Masking happens on Save only; the caller's document is never modified.
func NewRedactionMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.ProjectStore) ports.ProjectStore {
		return &redactionMiddleware{next: next, patterns: patterns}
	}
}

func (m *redactionMiddleware) Save(ctx context.Context, projectID string, doc *schema.Document) error {
	cloned := doc.Clone()
	for i := range cloned.Nodes {
		maskMap(cloned.Nodes[i].Config, m.patterns)
	}
	return m.next.Save(ctx, projectID, cloned)
}

func (m *redactionMiddleware) Load(ctx context.Context, projectID string) (*schema.Document, error) {
	return m.next.Load(ctx, projectID)
}

func (m *redactionMiddleware) Delete(ctx context.Context, projectID string) error {
	return m.next.Delete(ctx, projectID)
}

func (m *redactionMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func maskMap(m map[string]any, patterns []*regexp.Regexp) {
	for k, v := range m {
		masked := false
		for _, p := range patterns {
			if p.MatchString(k) {
				m[k] = Redacted
				masked = true
				break
			}
		}
		if sub, ok := v.(map[string]any); ok && !masked {
			maskMap(sub, patterns)
		}
	}
}
