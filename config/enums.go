package config

//go:generate go tool go-enum --marshal --names --nocase

// Specification of document scope for find/replace operations.
// ENUM(body, tables, headers, footers, all)
type Scope int

// Covers returns true when the scope includes the requested one.
func (s Scope) Covers(other Scope) bool {
	return s == ScopeAll || s == other
}
