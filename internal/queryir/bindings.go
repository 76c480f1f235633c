package queryir

import (
	"database/sql/driver"
	"reflect"
)

// Category names a binding bucket. Each clause owns one category.
type Category string

const (
	CategorySelect     Category = "select"
	CategoryFrom       Category = "from"
	CategoryJoin       Category = "join"
	CategoryWhere      Category = "where"
	CategoryGroupBy    Category = "groupBy"
	CategoryHaving     Category = "having"
	CategoryOrder      Category = "order"
	CategoryUnion      Category = "union"
	CategoryUnionOrder Category = "unionOrder"
)

// Categories lists every category in flatten order.
var Categories = []Category{
	CategorySelect,
	CategoryFrom,
	CategoryJoin,
	CategoryWhere,
	CategoryGroupBy,
	CategoryHaving,
	CategoryOrder,
	CategoryUnion,
	CategoryUnionOrder,
}

// IsValid reports whether c is a known category.
func (c Category) IsValid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Bindings is the category-keyed store of placeholder values.
//
// The zero value is not usable; create one with NewBindings.
type Bindings struct {
	values map[Category][]any
}

// NewBindings creates an empty store.
func NewBindings() *Bindings {
	return &Bindings{values: make(map[Category][]any, len(Categories))}
}

// Set replaces a category's values.
func (b *Bindings) Set(category Category, values []any) error {
	if !category.IsValid() {
		return NewInvalidBindingCategoryError(string(category))
	}
	cast := make([]any, 0, len(values))
	for _, v := range values {
		cast = append(cast, Cast(v))
	}
	b.values[category] = cast
	return nil
}

// Add appends values to a category. Slice arguments are flattened one level,
// except []byte which is a single binary value.
func (b *Bindings) Add(category Category, values ...any) error {
	if !category.IsValid() {
		return NewInvalidBindingCategoryError(string(category))
	}
	for _, v := range values {
		if isList(v) {
			rv := reflect.ValueOf(v)
			for i := 0; i < rv.Len(); i++ {
				b.values[category] = append(b.values[category], Cast(rv.Index(i).Interface()))
			}
			continue
		}
		b.values[category] = append(b.values[category], Cast(v))
	}
	return nil
}

// Append appends values to a category without flattening slices, so array
// typed values stay a single binding.
func (b *Bindings) Append(category Category, values ...any) error {
	if !category.IsValid() {
		return NewInvalidBindingCategoryError(string(category))
	}
	for _, v := range values {
		b.values[category] = append(b.values[category], Cast(v))
	}
	return nil
}

// Get returns a copy of a category's values.
func (b *Bindings) Get(category Category) []any {
	vals := b.values[category]
	if len(vals) == 0 {
		return nil
	}
	return append([]any(nil), vals...)
}

// Merge appends every category of other onto b, category by category.
func (b *Bindings) Merge(other *Bindings) {
	if other == nil {
		return
	}
	for _, c := range Categories {
		if vals := other.values[c]; len(vals) > 0 {
			b.values[c] = append(b.values[c], vals...)
		}
	}
}

// Clear empties the given categories, or all of them when none are named.
func (b *Bindings) Clear(categories ...Category) {
	if len(categories) == 0 {
		categories = Categories
	}
	for _, c := range categories {
		delete(b.values, c)
	}
}

// Flatten returns all values in placeholder order with expressions removed.
func (b *Bindings) Flatten() []any {
	var out []any
	for _, c := range Categories {
		out = append(out, b.values[c]...)
	}
	return Clean(out)
}

// Clone deep-copies the store.
func (b *Bindings) Clone() *Bindings {
	c := NewBindings()
	for k, v := range b.values {
		c.values[k] = append([]any(nil), v...)
	}
	return c
}

// Clean drops Expression values, which are never sent as placeholders.
func Clean(values []any) []any {
	out := make([]any, 0, len(values))
	for _, v := range values {
		if IsExpression(v) {
			continue
		}
		out = append(out, v)
	}
	return out
}

var basicTypes = map[reflect.Kind]reflect.Type{
	reflect.Bool:    reflect.TypeOf(false),
	reflect.String:  reflect.TypeOf(""),
	reflect.Int:     reflect.TypeOf(int(0)),
	reflect.Int8:    reflect.TypeOf(int8(0)),
	reflect.Int16:   reflect.TypeOf(int16(0)),
	reflect.Int32:   reflect.TypeOf(int32(0)),
	reflect.Int64:   reflect.TypeOf(int64(0)),
	reflect.Uint:    reflect.TypeOf(uint(0)),
	reflect.Uint8:   reflect.TypeOf(uint8(0)),
	reflect.Uint16:  reflect.TypeOf(uint16(0)),
	reflect.Uint32:  reflect.TypeOf(uint32(0)),
	reflect.Uint64:  reflect.TypeOf(uint64(0)),
	reflect.Float32: reflect.TypeOf(float32(0)),
	reflect.Float64: reflect.TypeOf(float64(0)),
}

// Cast reduces a binding to its primitive form: driver.Valuer values are
// resolved and named scalar types (enums) become their underlying type.
// Booleans stay typed; the transport decides their wire form.
func Cast(v any) any {
	if v == nil {
		return nil
	}
	if valuer, ok := v.(driver.Valuer); ok {
		if resolved, err := valuer.Value(); err == nil {
			return resolved
		}
		return v
	}
	rv := reflect.ValueOf(v)
	basic, ok := basicTypes[rv.Kind()]
	if !ok || rv.Type() == basic {
		return v
	}
	return rv.Convert(basic).Interface()
}

func isList(v any) bool {
	if v == nil {
		return false
	}
	if _, ok := v.([]byte); ok {
		return false
	}
	k := reflect.TypeOf(v).Kind()
	return k == reflect.Slice || k == reflect.Array
}
