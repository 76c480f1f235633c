package builder

import (
	"context"
	"fmt"
	"reflect"

	"github.com/roach88/chq/internal/queryir"
	"github.com/roach88/chq/internal/querysql"
)

// Row is one result row keyed by column name.
type Row = map[string]any

// Connection is the transport collaborator that executes compiled SQL.
type Connection interface {
	// Select runs a read with positional bindings and returns all rows.
	Select(ctx context.Context, query string, bindings []any) ([]Row, error)
	// Statement runs a literal statement and reports whether it was accepted.
	Statement(ctx context.Context, query string) (bool, error)
	// Escape renders a value as a SQL literal in the store's dialect.
	Escape(value any, binary bool) string
}

// DeleteFunc replaces the delete path of a builder. ids are the keys passed
// to Delete.
type DeleteFunc func(ctx context.Context, b *Builder, ids []any) (int, error)

// Option configures a Builder.
type Option func(*Builder)

// WithKeyName sets the primary key column used by Find, Delete and the
// keyset strategies. Defaults to "id".
func WithKeyName(name string) Option {
	return func(b *Builder) { b.keyName = name }
}

// WithGrammar overrides the SQL grammar.
func WithGrammar(g *querysql.Grammar) Option {
	return func(b *Builder) { b.grammar = g }
}

type scope struct {
	name  string
	apply func(*Builder)
}

// Builder is a fluent query builder bound to a connection.
//
// Clause methods mutate the builder and return it for chaining. Invalid
// arguments are recorded and returned by the next terminal operation, before
// anything is sent to the connection. Terminal operations run against a
// clone, so a builder can be executed repeatedly.
type Builder struct {
	conn     Connection
	grammar  *querysql.Grammar
	query    *queryir.Query
	keyName  string
	scopes   []scope
	onDelete DeleteFunc
	err      error
}

// New creates a builder without a table.
func New(conn Connection, opts ...Option) *Builder {
	b := &Builder{
		conn:    conn,
		query:   queryir.New(""),
		keyName: "id",
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.grammar == nil {
		var esc querysql.Escaper
		if conn != nil {
			esc = conn
		}
		b.grammar = querysql.NewGrammar(esc)
	}
	return b
}

// Table creates a builder over table.
func Table(conn Connection, table string, opts ...Option) *Builder {
	return New(conn, opts...).From(table)
}

// Query exposes the underlying query model.
func (b *Builder) Query() *queryir.Query {
	return b.query
}

// Grammar returns the builder's grammar.
func (b *Builder) Grammar() *querysql.Grammar {
	return b.grammar
}

// Connection returns the builder's connection.
func (b *Builder) Connection() Connection {
	return b.conn
}

// KeyName returns the primary key column.
func (b *Builder) KeyName() string {
	return b.keyName
}

// Err returns the first recorded argument error.
func (b *Builder) Err() error {
	return b.err
}

func (b *Builder) setErr(err error) *Builder {
	if err != nil && b.err == nil {
		b.err = err
	}
	return b
}

// Clone returns an independent copy of the builder.
func (b *Builder) Clone() *Builder {
	c := *b
	c.query = b.query.Clone()
	c.scopes = append([]scope(nil), b.scopes...)
	return &c
}

// NewQuery returns an empty builder sharing the connection and grammar.
func (b *Builder) NewQuery() *Builder {
	return &Builder{
		conn:    b.conn,
		grammar: b.grammar,
		query:   queryir.New(""),
		keyName: b.keyName,
	}
}

// forNestedWhere returns an empty builder over the same source.
func (b *Builder) forNestedWhere() *Builder {
	n := b.NewQuery()
	n.query.From = b.query.From
	return n
}

// WithScope registers a named predicate group applied whenever the builder
// is compiled or executed. Registering an existing name replaces it.
func (b *Builder) WithScope(name string, apply func(*Builder)) *Builder {
	for i, s := range b.scopes {
		if s.name == name {
			b.scopes[i].apply = apply
			return b
		}
	}
	b.scopes = append(b.scopes, scope{name: name, apply: apply})
	return b
}

// WithoutScope removes named scopes.
func (b *Builder) WithoutScope(names ...string) *Builder {
	kept := b.scopes[:0]
	for _, s := range b.scopes {
		if !contains(names, s.name) {
			kept = append(kept, s)
		}
	}
	b.scopes = kept
	return b
}

// HasScope reports whether a named scope is registered.
func (b *Builder) HasScope(name string) bool {
	for _, s := range b.scopes {
		if s.name == name {
			return true
		}
	}
	return false
}

// OnDelete replaces the builder's delete path.
func (b *Builder) OnDelete(fn DeleteFunc) *Builder {
	b.onDelete = fn
	return b
}

// prepared returns a clone with every scope applied. When the existing
// predicates contain OR they are grouped first so scope predicates bind to
// the whole condition.
func (b *Builder) prepared() *Builder {
	c := b.Clone()
	if len(c.scopes) == 0 {
		return c
	}
	scopes := c.scopes
	c.scopes = nil

	if hasOr(c.query.Wheres) {
		grouped := "(" + c.grammar.CompileWheres(c.query.Wheres) + ")"
		c.query.Wheres = []queryir.Predicate{{Column: queryir.Raw(grouped), Connector: queryir.And}}
	}
	for _, s := range scopes {
		s.apply(c)
	}
	return c
}

func hasOr(preds []queryir.Predicate) bool {
	for i, p := range preds {
		if i > 0 && p.Connector == queryir.Or {
			return true
		}
	}
	return false
}

// ToSQL compiles the query with scopes applied and returns the SQL and its
// flattened bindings.
func (b *Builder) ToSQL() (string, []any, error) {
	if b.err != nil {
		return "", nil, b.err
	}
	p := b.prepared()
	if p.err != nil {
		return "", nil, p.err
	}
	return p.grammar.CompileSelect(p.query), p.query.Bindings.Flatten(), nil
}

// ToRawSQL compiles the query and inlines every binding as a literal.
func (b *Builder) ToRawSQL() (string, error) {
	sql, bindings, err := b.ToSQL()
	if err != nil {
		return "", err
	}
	return b.grammar.SubstituteBindingsIntoRawSQL(sql, bindings), nil
}

// Bindings returns the flattened bindings of the prepared query.
func (b *Builder) Bindings() []any {
	return b.prepared().query.Bindings.Flatten()
}

// AddBinding appends values to a binding category.
func (b *Builder) AddBinding(category queryir.Category, values ...any) *Builder {
	return b.setErr(b.query.Bindings.Add(category, values...))
}

// SetBindings replaces a binding category.
func (b *Builder) SetBindings(category queryir.Category, values []any) *Builder {
	return b.setErr(b.query.Bindings.Set(category, values))
}

// MergeBindings appends other's bindings category by category.
func (b *Builder) MergeBindings(other *Builder) *Builder {
	b.query.Bindings.Merge(other.query.Bindings)
	return b
}

// Raw creates a raw expression.
func Raw(sql string) queryir.Expression {
	return queryir.Raw(sql)
}

// parseSub turns a subquery argument into SQL and its bindings. Accepted
// forms: *Builder, func(*Builder), queryir.Expression and string.
func (b *Builder) parseSub(v any) (string, []any, error) {
	switch sub := v.(type) {
	case *Builder:
		return sub.ToSQL()
	case func(*Builder):
		child := b.NewQuery()
		sub(child)
		return child.ToSQL()
	case queryir.Expression:
		return sub.String(), nil, nil
	case string:
		return sub, nil, nil
	}
	return "", nil, queryir.NewInvalidArgumentError(
		fmt.Sprintf("a subquery must be a query builder, closure or raw SQL, got %T", v), nil)
}

func isSubquery(v any) bool {
	switch v.(type) {
	case *Builder, func(*Builder):
		return true
	}
	return false
}

// toList converts any slice or array (except []byte) to []any.
func toList(v any) ([]any, bool) {
	if v == nil {
		return nil, false
	}
	if list, ok := v.([]any); ok {
		return list, true
	}
	if _, ok := v.([]byte); ok {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
