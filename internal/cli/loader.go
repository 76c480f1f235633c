package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"

	"gopkg.in/yaml.v3"

	"github.com/roach88/chq/internal/builder"
)

// Trashed modes of a soft-delete query file.
const (
	TrashedWithout = ""
	TrashedWith    = "with"
	TrashedOnly    = "only"
)

// QueryFile is a query described in YAML:
//
//	table: events
//	soft_delete: true
//	select: [id, name]
//	where:
//	  - {column: region, value: [1, 2]}
//	  - {column: score, op: ">", value: 10, or: true}
//	order_by:
//	  - {column: created_at, direction: desc}
//	limit: 10
type QueryFile struct {
	Table      string         `yaml:"table"`
	Final      bool           `yaml:"final"`
	Distinct   bool           `yaml:"distinct"`
	Select     []string       `yaml:"select"`
	Where      []Condition    `yaml:"where"`
	GroupBy    []string       `yaml:"group_by"`
	Having     []Condition    `yaml:"having"`
	OrderBy    []Order        `yaml:"order_by"`
	Limit      *int           `yaml:"limit"`
	Offset     *int           `yaml:"offset"`
	SoftDelete bool           `yaml:"soft_delete"`
	Trashed    string         `yaml:"trashed"`
	Set        map[string]any `yaml:"set"`
}

// Condition is one predicate. Without op, a list value means IN and a null
// value means IS NULL. Raw conditions bind value as their placeholders.
type Condition struct {
	Column string `yaml:"column"`
	Op     string `yaml:"op"`
	Value  any    `yaml:"value"`
	Raw    string `yaml:"raw"`
	Or     bool   `yaml:"or"`
	Not    bool   `yaml:"not"`
}

// Order is one ORDER BY term.
type Order struct {
	Column    string `yaml:"column"`
	Direction string `yaml:"direction"`
}

// LoadError represents an error that occurred while loading a query file.
type LoadError struct {
	Code    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadQueryFile reads and validates the query file at path.
func LoadQueryFile(path string) (*QueryFile, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("query file not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("reading query file: %v", err)}
	}
	return ParseQueryFile(data)
}

// ParseQueryFile decodes a query file. Unknown keys are rejected.
func ParseQueryFile(data []byte) (*QueryFile, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	q := &QueryFile{}
	if err := dec.Decode(q); err != nil && !errors.Is(err, io.EOF) {
		return nil, &LoadError{Code: ErrCodeQueryFile, Message: err.Error()}
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return q, nil
}

// Validate checks the fields a query file needs before it can be applied.
func (q *QueryFile) Validate() error {
	if q.Table == "" {
		return &LoadError{Code: ErrCodeQueryFile, Message: "table is required"}
	}
	switch q.Trashed {
	case TrashedWithout, TrashedWith, TrashedOnly:
	default:
		return &LoadError{Code: ErrCodeQueryFile, Message: fmt.Sprintf("trashed must be %q or %q, got %q", TrashedWith, TrashedOnly, q.Trashed)}
	}
	if q.Trashed != TrashedWithout && !q.SoftDelete {
		return &LoadError{Code: ErrCodeQueryFile, Message: "trashed requires soft_delete"}
	}
	for i, c := range append(append([]Condition{}, q.Where...), q.Having...) {
		if c.Column == "" && c.Raw == "" {
			return &LoadError{Code: ErrCodeQueryFile, Message: fmt.Sprintf("condition %d: column or raw is required", i+1)}
		}
	}
	for i, o := range q.OrderBy {
		if o.Column == "" {
			return &LoadError{Code: ErrCodeQueryFile, Message: fmt.Sprintf("order_by %d: column is required", i+1)}
		}
	}
	return nil
}

// Apply adds the file's clauses to b.
func (q *QueryFile) Apply(b *builder.Builder) *builder.Builder {
	if q.Final {
		b.Final()
	}
	if len(q.Select) > 0 {
		b.Select(columnList(q.Select)...)
	}
	if q.Distinct {
		b.Distinct()
	}
	for _, c := range q.Where {
		c.where(b)
	}
	if len(q.GroupBy) > 0 {
		b.GroupBy(columnList(q.GroupBy)...)
	}
	for _, c := range q.Having {
		c.having(b)
	}
	for _, o := range q.OrderBy {
		if o.Direction == "" {
			b.OrderBy(o.Column)
		} else {
			b.OrderBy(o.Column, o.Direction)
		}
	}
	if q.Limit != nil {
		b.Limit(*q.Limit)
	}
	if q.Offset != nil {
		b.Offset(*q.Offset)
	}
	return b
}

func (c Condition) where(b *builder.Builder) {
	if c.Raw != "" {
		if c.Or {
			b.OrWhereRaw(c.Raw, c.rawBindings()...)
		} else {
			b.WhereRaw(c.Raw, c.rawBindings()...)
		}
		return
	}

	args := c.args()
	switch {
	case c.Or && c.Not:
		b.OrWhereNot(c.Column, args...)
	case c.Or:
		b.OrWhere(c.Column, args...)
	case c.Not:
		b.WhereNot(c.Column, args...)
	default:
		b.Where(c.Column, args...)
	}
}

func (c Condition) having(b *builder.Builder) {
	if c.Raw != "" {
		if c.Or {
			b.OrHavingRaw(c.Raw, c.rawBindings()...)
		} else {
			b.HavingRaw(c.Raw, c.rawBindings()...)
		}
		return
	}
	if c.Or {
		b.OrHaving(c.Column, c.args()...)
	} else {
		b.Having(c.Column, c.args()...)
	}
}

func (c Condition) args() []any {
	if c.Op == "" {
		return []any{c.Value}
	}
	return []any{c.Op, c.Value}
}

func (c Condition) rawBindings() []any {
	if c.Value == nil {
		return nil
	}
	rv := reflect.ValueOf(c.Value)
	if rv.Kind() != reflect.Slice {
		return []any{c.Value}
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

func columnList(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
