// internal/common/database/query.go
package database

import (
	"strconv"
	"strings"
)

// Conditions accumulates AND-ed WHERE clauses with positional arguments.
// Clauses use ? as the placeholder; it is rewritten to $n in order.
type Conditions struct {
	clauses []string
	args    []interface{}
}

// Add appends clause with one argument per ? in it.
func (c *Conditions) Add(clause string, args ...interface{}) {
	var b strings.Builder
	i := 0
	for _, r := range clause {
		if r == '?' && i < len(args) {
			c.args = append(c.args, args[i])
			b.WriteString("$" + strconv.Itoa(len(c.args)))
			i++
			continue
		}
		b.WriteRune(r)
	}
	c.clauses = append(c.clauses, b.String())
}

// Where renders the clauses, or "" when there are none.
func (c *Conditions) Where() string {
	if len(c.clauses) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(c.clauses, " AND ")
}

// Args returns the collected arguments.
func (c *Conditions) Args() []interface{} {
	return c.args
}

// Page appends LIMIT and OFFSET placeholders and returns the suffix with the full argument list.
func (c *Conditions) Page(limit, offset int) (string, []interface{}) {
	args := append(append([]interface{}{}, c.args...), limit, offset)
	n := len(c.args)
	return " LIMIT $" + strconv.Itoa(n+1) + " OFFSET $" + strconv.Itoa(n+2), args
}
