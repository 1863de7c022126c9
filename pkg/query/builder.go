package query

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// SortField is one ORDER BY term addressed by field name.
type SortField struct {
	Field      string `json:"field"`
	Descending bool   `json:"descending"`
}

// ParseSortFields reads a comma-separated sort string such as
// "name,-created_at". A leading "-" sorts descending.
func ParseSortFields(s string) []SortField {
	var fields []SortField
	for part := range strings.SplitSeq(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		field, desc := strings.CutPrefix(part, "-")
		fields = append(fields, SortField{Field: field, Descending: desc})
	}
	return fields
}

// clause is a condition whose "?" markers are numbered when the query is built.
type clause struct {
	sql  string
	args []any
}

// Builder accumulates AND-ed conditions and an ordering for one projection.
// Nil or empty filter values add no condition.
type Builder struct {
	projection  *ProjectionMap
	clauses     []clause
	sort        []SortField
	defaultSort []SortField
}

func NewBuilder(projection *ProjectionMap, defaultSort ...SortField) *Builder {
	return &Builder{
		projection:  projection,
		defaultSort: defaultSort,
	}
}

// OrderByFields replaces the default ordering. Fields the projection does not
// map are dropped so client input never reaches the SQL text.
func (b *Builder) OrderByFields(fields []SortField) *Builder {
	b.sort = fields
	return b
}

// WhereEquals matches field exactly.
func (b *Builder) WhereEquals(field string, value any) *Builder {
	if isNil(value) {
		return b
	}
	return b.where(b.projection.Column(field)+" = ?", value)
}

// WhereContains matches field case-insensitively as a substring.
func (b *Builder) WhereContains(field string, value *string) *Builder {
	if value == nil || *value == "" {
		return b
	}
	return b.where(b.projection.Column(field)+" ILIKE ?", "%"+*value+"%")
}

// WhereSince matches rows whose field is at or after t.
func (b *Builder) WhereSince(field string, t *time.Time) *Builder {
	if t == nil || t.IsZero() {
		return b
	}
	return b.where(b.projection.Column(field)+" >= ?", *t)
}

// WhereSearch matches search as a substring of any of fields.
func (b *Builder) WhereSearch(search *string, fields ...string) *Builder {
	if search == nil || *search == "" || len(fields) == 0 {
		return b
	}

	terms := make([]string, len(fields))
	args := make([]any, len(fields))
	for i, f := range fields {
		terms[i] = b.projection.Column(f) + " ILIKE ?"
		args[i] = "%" + *search + "%"
	}
	return b.where("("+strings.Join(terms, " OR ")+")", args...)
}

// BuildCount returns a COUNT(*) over the matching rows.
func (b *Builder) BuildCount() (string, []any) {
	where, args := b.buildWhere()
	return "SELECT COUNT(*) FROM " + b.projection.From() + where, args
}

// BuildPage returns one ordered page of matching rows. page is 1-based.
func (b *Builder) BuildPage(page, pageSize int) (string, []any) {
	where, args := b.buildWhere()
	q := fmt.Sprintf(
		"SELECT %s FROM %s%s%s LIMIT %d OFFSET %d",
		b.projection.Columns(),
		b.projection.From(),
		where,
		b.buildOrderBy(),
		pageSize,
		(max(page, 1)-1)*pageSize,
	)
	return q, args
}

// BuildSingle selects the row whose idField equals id. Conditions are ignored.
func (b *Builder) BuildSingle(idField string, id any) (string, []any) {
	q := fmt.Sprintf(
		"SELECT %s FROM %s WHERE %s = $1",
		b.projection.Columns(),
		b.projection.From(),
		b.projection.Column(idField),
	)
	return q, []any{id}
}

func (b *Builder) where(sql string, args ...any) *Builder {
	b.clauses = append(b.clauses, clause{sql: sql, args: args})
	return b
}

func (b *Builder) buildWhere() (string, []any) {
	if len(b.clauses) == 0 {
		return "", nil
	}

	var args []any
	parts := make([]string, len(b.clauses))
	for i, c := range b.clauses {
		var sb strings.Builder
		next := 0
		for _, r := range c.sql {
			if r == '?' && next < len(c.args) {
				args = append(args, c.args[next])
				next++
				sb.WriteString("$" + strconv.Itoa(len(args)))
				continue
			}
			sb.WriteRune(r)
		}
		parts[i] = sb.String()
	}

	return " WHERE " + strings.Join(parts, " AND "), args
}

func (b *Builder) buildOrderBy() string {
	fields := b.sort
	if len(fields) == 0 {
		fields = b.defaultSort
	}

	var parts []string
	for _, f := range fields {
		col, ok := b.projection.Lookup(f.Field)
		if !ok {
			continue
		}
		if f.Descending {
			parts = append(parts, col+" DESC")
		} else {
			parts = append(parts, col+" ASC")
		}
	}

	if len(parts) == 0 {
		return ""
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}

func isNil(value any) bool {
	if value == nil {
		return true
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return v.IsNil()
	}
	return false
}
