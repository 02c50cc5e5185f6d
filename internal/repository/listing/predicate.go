package listing

import "strings"

// predicateBuilder accumulates conjunctive WHERE clauses with bound
// parameters. Values never enter the query text.
type predicateBuilder struct {
	clauses []string
	args    []any
}

// add appends one clause and its arguments.
func (b *predicateBuilder) add(clause string, args ...any) {
	b.clauses = append(b.clauses, clause)
	b.args = append(b.args, args...)
}

// addIn appends a set-membership clause for the given column.
func (b *predicateBuilder) addIn(column string, values []string) {
	if len(values) == 0 {
		return
	}
	b.clauses = append(b.clauses, column+" IN ("+placeholders(len(values))+")")
	for _, v := range values {
		b.args = append(b.args, v)
	}
}

// sql renders the combined WHERE expression (without the WHERE keyword).
func (b *predicateBuilder) sql() string {
	return strings.Join(b.clauses, " AND ")
}

// placeholders returns n comma-separated "?" markers.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}
