// Package fieldbag builds the per-execution evaluation context rules are run against: a
// flat, path-addressable bag of read-only views over domain entities.
package fieldbag

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Kind identifies the shape held by a Value.
type Kind uint8

const (
	KindNil Kind = iota
	KindString
	KindNumber
	KindBool
	KindTime
	KindList
	KindMap
	KindEntity
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindTime:
		return "time"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	case KindEntity:
		return "entity"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is a read-only view over anything reachable from the bag. The zero Value is nil.
type Value struct {
	kind  Kind
	raw   any
	table *entityTable
}

// Of wraps a Go value. Typed nil pointers and zero times are nil; registered entity
// pointers become entity handles; slices and string-keyed maps are wrapped element-wise.
func Of(v any) Value {
	switch x := v.(type) {
	case nil:
		return Value{}
	case Value:
		return x
	case string:
		return Value{kind: KindString, raw: x}
	case bool:
		return Value{kind: KindBool, raw: x}
	case float64:
		return Value{kind: KindNumber, raw: x}
	case int:
		return Value{kind: KindNumber, raw: float64(x)}
	case int64:
		return Value{kind: KindNumber, raw: float64(x)}
	case time.Time:
		if x.IsZero() {
			return Value{}
		}

		return Value{kind: KindTime, raw: x}
	case *time.Time:
		if x == nil {
			return Value{}
		}

		return Of(*x)
	case []Value:
		return Value{kind: KindList, raw: x}
	}

	rv := reflect.ValueOf(v)

	if table := lookupTable(rv.Type()); table != nil {
		if rv.Kind() == reflect.Pointer && rv.IsNil() {
			return Value{}
		}

		return Value{kind: KindEntity, raw: v, table: table}
	}

	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Value{}
		}

		return Of(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return Value{kind: KindList, raw: []Value{}}
		}

		items := make([]Value, rv.Len())
		for i := range items {
			items[i] = Of(rv.Index(i).Interface())
		}

		return Value{kind: KindList, raw: items}
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			break
		}

		entries := make(map[string]Value, rv.Len())
		iter := rv.MapRange()

		for iter.Next() {
			entries[iter.Key().String()] = Of(iter.Value().Interface())
		}

		return Value{kind: KindMap, raw: entries}
	case reflect.String:
		return Value{kind: KindString, raw: rv.String()}
	case reflect.Bool:
		return Value{kind: KindBool, raw: rv.Bool()}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Value{kind: KindNumber, raw: float64(rv.Int())}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return Value{kind: KindNumber, raw: float64(rv.Uint())}
	case reflect.Float32, reflect.Float64:
		return Value{kind: KindNumber, raw: rv.Float()}
	default:
	}

	return Value{kind: KindString, raw: fmt.Sprint(v)}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNil() bool { return v.kind == KindNil }

// String coerces the value to text. Numbers use the shortest exact representation.
func (v Value) String() string {
	switch v.kind {
	case KindNil:
		return ""
	case KindString:
		return v.raw.(string)
	case KindNumber:
		return strconv.FormatFloat(v.raw.(float64), 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.raw.(bool))
	case KindTime:
		return v.raw.(time.Time).Format(time.RFC3339)
	case KindList:
		items := v.raw.([]Value)
		parts := make([]string, len(items))

		for i, item := range items {
			parts[i] = item.String()
		}

		return strings.Join(parts, ", ")
	case KindMap:
		return fmt.Sprint(v.Interface())
	case KindEntity:
		return v.Field("id").String()
	default:
		return ""
	}
}

// Float coerces the value to a number; anything non-numeric is 0.
func (v Value) Float() float64 {
	switch v.kind {
	case KindNumber:
		return v.raw.(float64)
	case KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.raw.(string)), 64)
		if err != nil {
			return 0
		}

		return f
	case KindBool:
		if v.raw.(bool) {
			return 1
		}

		return 0
	case KindNil, KindTime, KindList, KindMap, KindEntity:
		return 0
	default:
		return 0
	}
}

// Bool returns the boolean held by the value; ok is false for every other kind.
func (v Value) Bool() (value, ok bool) {
	if v.kind != KindBool {
		return false, false
	}

	return v.raw.(bool), true
}

// Empty reports nil, blank strings and empty collections.
func (v Value) Empty() bool {
	switch v.kind {
	case KindNil:
		return true
	case KindString:
		return strings.TrimSpace(v.raw.(string)) == ""
	case KindList:
		return len(v.raw.([]Value)) == 0
	case KindMap:
		return len(v.raw.(map[string]Value)) == 0
	case KindNumber, KindBool, KindTime, KindEntity:
		return false
	default:
		return false
	}
}

// Items returns the elements of a list value.
func (v Value) Items() []Value {
	if v.kind != KindList {
		return nil
	}

	return v.raw.([]Value)
}

// Raw returns the wrapped Go value (the entity pointer for entity handles).
func (v Value) Raw() any {
	if v.kind == KindList || v.kind == KindMap {
		return v.Interface()
	}

	return v.raw
}

// Field resolves one path component: map key first, then entity attribute.
func (v Value) Field(name string) Value {
	switch v.kind {
	case KindMap:
		if item, ok := v.raw.(map[string]Value)[name]; ok {
			return item
		}
	case KindEntity:
		if fn, ok := v.table.fields[name]; ok {
			return Of(fn(v.raw))
		}
	case KindNil, KindString, KindNumber, KindBool, KindTime, KindList:
	}

	return Value{}
}

// Predicate runs a zero-argument boolean query on an entity.
func (v Value) Predicate(name string) Value {
	if v.kind != KindEntity {
		return Value{}
	}

	fn, ok := v.table.predicates[name]
	if !ok {
		return Value{}
	}

	return Value{kind: KindBool, raw: fn(v.raw)}
}

// EntityType is the registered type name of an entity handle.
func (v Value) EntityType() string {
	if v.kind != KindEntity {
		return ""
	}

	return v.table.name
}

// Interface converts the value to plain Go data (maps, slices, scalars) for template
// and expression environments.
func (v Value) Interface() any {
	return v.data(maxDataDepth)
}

const maxDataDepth = 4

func (v Value) data(depth int) any {
	switch v.kind {
	case KindNil:
		return nil
	case KindString, KindNumber, KindBool, KindTime:
		return v.raw
	case KindList:
		items := v.raw.([]Value)
		out := make([]any, len(items))

		for i, item := range items {
			out[i] = item.data(depth - 1)
		}

		return out
	case KindMap:
		entries := v.raw.(map[string]Value)
		out := make(map[string]any, len(entries))

		for key, item := range entries {
			out[key] = item.data(depth - 1)
		}

		return out
	case KindEntity:
		return v.table.data(v.raw, depth)
	default:
		return nil
	}
}
