// Package uid provides ID generation: snowflake numbers for entities and
// UUID strings for correlation.
package uid

// NumberID generates int64 identifiers.
type NumberID interface {
	Generate() int64
}

// StringID generates string identifiers.
type StringID interface {
	Generate() string
}
