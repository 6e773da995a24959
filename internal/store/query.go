// ABOUTME: WHERE-clause assembly for the filtered listings
// ABOUTME: Collects parameterized conditions and the escaped free-text search

package store

import "strings"

type conditions struct {
	clauses []string
	args    []any
}

func (c *conditions) add(clause string, args ...any) {
	c.clauses = append(c.clauses, clause)
	c.args = append(c.args, args...)
}

// search matches q as a literal substring of any of columns.
func (c *conditions) search(q string, columns ...string) {
	q = strings.TrimSpace(q)
	if q == "" || len(columns) == 0 {
		return
	}
	pattern := likePattern(q)
	parts := make([]string, len(columns))
	for i, col := range columns {
		parts[i] = col + ` LIKE ? ESCAPE '\'`
		c.args = append(c.args, pattern)
	}
	c.clauses = append(c.clauses, "("+strings.Join(parts, " OR ")+")")
}

func (c *conditions) where() string {
	if len(c.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(c.clauses, " AND ")
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
