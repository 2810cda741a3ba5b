package fieldbag

import "reflect"

// Accessors is the read-only surface one entity type exposes to field paths.
// Predicates are addressed with a trailing "?" (for example "incase.paid?").
type Accessors[T any] struct {
	Fields     map[string]func(T) any
	Predicates map[string]func(T) bool
}

type entityTable struct {
	name       string
	fields     map[string]func(any) any
	predicates map[string]func(any) bool
}

var tables = map[reflect.Type]*entityTable{}

// Register installs the accessor table for T under the given entity type name.
// It must only be called from package init functions.
func Register[T any](name string, acc Accessors[T]) {
	table := &entityTable{
		name:       name,
		fields:     make(map[string]func(any) any, len(acc.Fields)),
		predicates: make(map[string]func(any) bool, len(acc.Predicates)),
	}

	for field, fn := range acc.Fields {
		table.fields[field] = func(v any) any { return fn(v.(T)) }
	}

	for predicate, fn := range acc.Predicates {
		table.predicates[predicate] = func(v any) bool { return fn(v.(T)) }
	}

	tables[reflect.TypeFor[T]()] = table
}

func lookupTable(t reflect.Type) *entityTable {
	if t == nil {
		return nil
	}

	return tables[t]
}

func isEntityPointer(v any) bool {
	return v != nil && lookupTable(reflect.TypeOf(v)) != nil
}

func (t *entityTable) data(raw any, depth int) any {
	if depth <= 0 {
		if fn, ok := t.fields["id"]; ok {
			return map[string]any{"id": fn(raw)}
		}

		return map[string]any{}
	}

	out := make(map[string]any, len(t.fields)+len(t.predicates))

	for field, fn := range t.fields {
		result := fn(raw)

		value := Of(result)
		if value.IsNil() && isEntityPointer(result) {
			out[field] = map[string]any{}

			continue
		}

		out[field] = value.data(depth - 1)
	}

	for predicate, fn := range t.predicates {
		out[predicate+"?"] = fn(raw)
	}

	return out
}
