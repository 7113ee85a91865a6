package topic

// Standard MQTT wildcard definitions.
const (
	// Wildcard matches exactly one topic level.
	Wildcard = "+"

	// MultiWildcard matches the current level and every level below it.
	// It must be the last character in the topic filter.
	MultiWildcard = "#"
)
