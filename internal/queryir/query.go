package queryir

// Query is the mutable query aggregate.
//
// Invariant: for any snapshot, Bindings.Flatten() lists values in the same
// order the grammar emits placeholders for that snapshot.
type Query struct {
	From     From
	Columns  []any // string | Expression; empty means *
	Distinct Distinct
	Joins    []Join
	Wheres   []Predicate
	Groups   []any // string | Expression
	Havings  []Predicate
	Orders   []Order

	LimitValue  *int
	OffsetValue *int

	Unions      []Union
	UnionOrders []Order
	UnionLimit  *int
	UnionOffset *int

	Aggregate *Aggregate

	// Cluster is the ON CLUSTER target for mutations.
	Cluster string

	Bindings *Bindings
}

// New creates an empty query over table.
func New(table string) *Query {
	q := &Query{Bindings: NewBindings()}
	if table != "" {
		q.From.Table = table
	}
	return q
}

// Limit returns the effective LIMIT/OFFSET pair. ok is false when neither
// is set. It is derived from the current fields on every call.
func (q *Query) Limit() (Limit, bool) {
	if q.LimitValue == nil && q.OffsetValue == nil {
		return Limit{}, false
	}
	var l Limit
	if q.LimitValue != nil {
		l.Count = *q.LimitValue
	}
	if q.OffsetValue != nil {
		l.Offset = *q.OffsetValue
	}
	return l, true
}

// HasUnions reports whether any union is attached.
func (q *Query) HasUnions() bool {
	return len(q.Unions) > 0
}

// Clone deep-copies the query, including unions and bindings.
func (q *Query) Clone() *Query {
	c := *q
	c.Columns = cloneSlice(q.Columns)
	c.Distinct.Columns = cloneSlice(q.Distinct.Columns)
	c.Joins = cloneSlice(q.Joins)
	c.Wheres = clonePredicates(q.Wheres)
	c.Groups = cloneSlice(q.Groups)
	c.Havings = clonePredicates(q.Havings)
	c.Orders = cloneSlice(q.Orders)
	c.UnionOrders = cloneSlice(q.UnionOrders)
	c.LimitValue = cloneInt(q.LimitValue)
	c.OffsetValue = cloneInt(q.OffsetValue)
	c.UnionLimit = cloneInt(q.UnionLimit)
	c.UnionOffset = cloneInt(q.UnionOffset)
	if q.Unions != nil {
		c.Unions = make([]Union, len(q.Unions))
		for i, u := range q.Unions {
			c.Unions[i] = Union{Query: u.Query.Clone(), All: u.All}
		}
	}
	if q.Aggregate != nil {
		agg := *q.Aggregate
		agg.Columns = cloneSlice(q.Aggregate.Columns)
		c.Aggregate = &agg
	}
	if q.Bindings != nil {
		c.Bindings = q.Bindings.Clone()
	} else {
		c.Bindings = NewBindings()
	}
	return &c
}

func clonePredicates(in []Predicate) []Predicate {
	out := cloneSlice(in)
	for i, p := range out {
		if vals, ok := p.Value.([]any); ok {
			out[i].Value = cloneSlice(vals)
		}
	}
	return out
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	return append(make([]T, 0, len(in)), in...)
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}
