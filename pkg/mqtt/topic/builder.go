package topic

import (
	"strings"
)

// Builder constructs topic strings of the form {root}/{segment}/{id}.
// The zero value is not usable; create one with NewBuilder.
type Builder struct {
	// root is the base namespace for all topics (e.g., "fleetwatch/v1").
	root string

	// group, when set, turns subscriptions into shared subscriptions.
	group string
}

// NewBuilder creates a Builder rooted at root. Leading and trailing slashes are trimmed.
func NewBuilder(root string) *Builder {
	return &Builder{root: strings.Trim(root, "/")}
}

// Root returns the namespace of the builder.
func (b *Builder) Root() string {
	return b.root
}

// Shared returns a copy of the builder whose wildcard filters are prefixed
// with "$share/{group}/", so that the broker load-balances messages across
// every subscriber of the group.
func (b *Builder) Shared(group string) *Builder {
	return &Builder{root: b.root, group: group}
}

// Build returns {root}/{segment}/{id}.
func (b *Builder) Build(segment, id string) string {
	return b.join(segment, id)
}

// BuildWildcard returns the single-level wildcard filter for segment:
// {root}/{segment}/+ (or $share/{group}/{root}/{segment}/+ on a shared builder).
func (b *Builder) BuildWildcard(segment string) string {
	filter := b.join(segment, Wildcard)
	if b.group != "" {
		return "$share/" + b.group + "/" + filter
	}
	return filter
}

// ID extracts the trailing identifier from a concrete topic produced by Build.
// It returns false when topic does not belong to segment under this root.
func (b *Builder) ID(segment, topic string) (string, bool) {
	prefix := b.join(segment, "")
	if !strings.HasPrefix(topic, prefix) {
		return "", false
	}
	id := strings.TrimPrefix(topic, prefix)
	if id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}

func (b *Builder) join(segment, id string) string {
	parts := make([]string, 0, 3)
	if b.root != "" {
		parts = append(parts, b.root)
	}
	parts = append(parts, strings.Trim(segment, "/"), id)
	return strings.Join(parts, "/")
}
