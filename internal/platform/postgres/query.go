package postgres

import (
	"fmt"
	"strings"
)

// conditions accumulates AND-ed predicates with numbered placeholders.
type conditions struct {
	clauses []string
	args    []any
}

func (c *conditions) add(format string, arg any) {
	c.args = append(c.args, arg)
	c.clauses = append(c.clauses, fmt.Sprintf(format, len(c.args)))
}

func (c *conditions) where() string {
	if len(c.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(c.clauses, " AND ")
}
