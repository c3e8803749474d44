package dbx

import "strings"

// Assignments collects "column = ?" pairs for a dynamic UPDATE built from a
// patch with optional fields.
type Assignments struct {
	cols []string
	args []any
}

// Add appends col = v.
func (a *Assignments) Add(col string, v any) {
	a.cols = append(a.cols, col+" = ?")
	a.args = append(a.args, v)
}

// Raw appends a literal assignment such as "is_synced = 0".
func (a *Assignments) Raw(expr string) {
	a.cols = append(a.cols, expr)
}

func (a *Assignments) Len() int { return len(a.cols) }

func (a *Assignments) SQL() string { return strings.Join(a.cols, ", ") }

// Args returns the collected arguments followed by extra (usually the WHERE
// arguments).
func (a *Assignments) Args(extra ...any) []any {
	out := make([]any, 0, len(a.args)+len(extra))
	out = append(out, a.args...)
	return append(out, extra...)
}
