package kernel

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dop251/goja"

	"github.com/inkcell/quire/render"
)

// Kind buckets a runtime value by how it should be browsed.
type Kind int

const (
	// KindPrimitive covers strings, numbers, booleans, null, undefined
	// and symbols.
	KindPrimitive Kind = iota
	// KindCallable covers functions.
	KindCallable
	// KindIndexed covers arrays and typed arrays.
	KindIndexed
	// KindKeyed covers maps and sets.
	KindKeyed
	// KindRecord covers every other object.
	KindRecord
)

func (k Kind) String() string {
	switch k {
	case KindPrimitive:
		return "primitive"
	case KindCallable:
		return "callable"
	case KindIndexed:
		return "indexed"
	case KindKeyed:
		return "keyed"
	case KindRecord:
		return "record"
	}
	return "unknown"
}

func (k Kind) MarshalJSON() ([]byte, error) {
	return []byte(`"` + k.String() + `"`), nil
}

// Member is one property reachable on a value, own or inherited.
type Member struct {
	Name     string `json:"name"`
	Callable bool   `json:"callable"`
	Preview  string `json:"preview,omitempty"`
}

// Inspection describes a runtime value for display: its shape, a short
// preview, the element count for collections, and the reachable members.
type Inspection struct {
	Kind    Kind     `json:"kind"`
	Type    string   `json:"type"`
	Preview string   `json:"preview"`
	Size    int      `json:"size"`
	Members []Member `json:"members,omitempty"`
}

// memberScript walks the prototype chain and collects every string
// property name, boxing primitives so string and number values report
// their methods too.
const memberScript = `(function () {
	return function (target) {
		if (target === null || target === undefined) { return []; }
		var obj = Object(target);
		var seen = {};
		var depth = 0;
		while (obj !== null && depth < 8) {
			var own = Object.getOwnPropertyNames(obj);
			for (var i = 0; i < own.length; i++) { seen[own[i]] = true; }
			obj = Object.getPrototypeOf(obj);
			depth++;
		}
		var out = [];
		for (var name in seen) { out.push(name); }
		out.sort();
		return out;
	};
})()`

// entriesScript flattens a Map into [key, value] pairs and a Set into its
// values. Anything else yields an empty list.
const entriesScript = `(function () {
	return function (target) {
		var out = [];
		if (target instanceof Map) {
			target.forEach(function (v, k) { out.push([k, v]); });
		} else if (target instanceof Set) {
			target.forEach(function (v) { out.push(v); });
		}
		return out;
	};
})()`

var (
	memberProg  = goja.MustCompile("quire:members", memberScript, true)
	entriesProg = goja.MustCompile("quire:entries", entriesScript, true)
)

// Introspector examines values inside one interpreter. Member and entry
// enumeration run as compiled helper programs in the interpreter itself,
// so host objects and user classes behave exactly as they would in the
// snippet's own code.
type Introspector struct {
	vm      *goja.Runtime
	members goja.Callable
	entries goja.Callable
}

// NewIntrospector installs the inspection helpers into vm.
func NewIntrospector(vm *goja.Runtime) (*Introspector, error) {
	in := &Introspector{vm: vm}
	var err error
	if in.members, err = installHelper(vm, memberProg); err != nil {
		return nil, fmt.Errorf("install member helper: %w", err)
	}
	if in.entries, err = installHelper(vm, entriesProg); err != nil {
		return nil, fmt.Errorf("install entries helper: %w", err)
	}
	return in, nil
}

func installHelper(vm *goja.Runtime, prog *goja.Program) (goja.Callable, error) {
	v, err := vm.RunProgram(prog)
	if err != nil {
		return nil, err
	}
	fn, ok := goja.AssertFunction(v)
	if !ok {
		return nil, errors.New("helper did not evaluate to a function")
	}
	return fn, nil
}

// Inspect describes v for display.
func (in *Introspector) Inspect(v goja.Value) Inspection {
	insp := Inspection{
		Kind:    in.kindOf(v),
		Type:    in.TypeOf(v),
		Preview: in.Preview(v),
	}
	obj, _ := v.(*goja.Object)
	if obj != nil {
		switch insp.Kind {
		case KindIndexed:
			insp.Size = intProp(obj, "length")
		case KindKeyed:
			insp.Size = intProp(obj, "size")
		case KindRecord:
			insp.Size = len(obj.Keys())
		}
	}
	insp.Members = in.Members(v)
	return insp
}

func (in *Introspector) kindOf(v goja.Value) Kind {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return KindPrimitive
	}
	if _, ok := goja.AssertFunction(v); ok {
		return KindCallable
	}
	obj, ok := v.(*goja.Object)
	if !ok {
		return KindPrimitive
	}
	cn := obj.ClassName()
	switch {
	case cn == "Array" || strings.HasSuffix(cn, "Array"):
		return KindIndexed
	case cn == "Map" || cn == "Set" || cn == "WeakMap" || cn == "WeakSet":
		return KindKeyed
	}
	return KindRecord
}

// TypeOf names v's runtime type: the typeof word for primitives, the
// class or constructor name for objects.
func (in *Introspector) TypeOf(v goja.Value) string {
	if v == nil || goja.IsUndefined(v) {
		return "undefined"
	}
	if goja.IsNull(v) {
		return "null"
	}
	if _, ok := goja.AssertFunction(v); ok {
		return "function"
	}
	obj, ok := v.(*goja.Object)
	if !ok {
		switch safeExport(v).(type) {
		case string:
			return "string"
		case bool:
			return "boolean"
		case int64, float64:
			return "number"
		}
		return "symbol"
	}
	cn := obj.ClassName()
	if cn == "Object" {
		if ctor := constructorName(obj); ctor != "" && ctor != "Object" {
			return ctor
		}
	}
	return cn
}

// Preview renders v as one short line. Collections are elided past a few
// elements; errors render as name and message.
func (in *Introspector) Preview(v goja.Value) string {
	if v == nil || goja.IsUndefined(v) {
		return "undefined"
	}
	if goja.IsNull(v) {
		return "null"
	}
	obj, ok := v.(*goja.Object)
	if !ok {
		return render.FormatValue(safeExport(v))
	}
	if _, callable := goja.AssertFunction(v); callable {
		return functionPreview(obj)
	}
	cn := obj.ClassName()
	switch cn {
	case "Error":
		return thrownError(v).Error()
	case "RegExp":
		return v.String()
	case "Map", "Set":
		return in.collectionPreview(cn, v)
	case "WeakMap", "WeakSet":
		return cn + " {}"
	}
	exported := safeExport(v)
	if exported == nil {
		return "[object " + cn + "]"
	}
	text := render.FormatValue(exported)
	if cn == "Object" {
		if ctor := constructorName(obj); ctor != "" && ctor != "Object" {
			return ctor + " " + text
		}
	}
	return text
}

// MemberNames lists every property name reachable on v, own and
// inherited, sorted.
func (in *Introspector) MemberNames(v goja.Value) []string {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) || in.members == nil {
		return nil
	}
	res, err := in.members(goja.Undefined(), v)
	if err != nil {
		return nil
	}
	items, ok := res.Export().([]interface{})
	if !ok {
		return nil
	}
	names := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			names = append(names, s)
		}
	}
	return names
}

// Members lists reachable properties with a preview of each value.
func (in *Introspector) Members(v goja.Value) []Member {
	names := in.MemberNames(v)
	if len(names) == 0 {
		return nil
	}
	obj := boxValue(in.vm, v)
	members := make([]Member, 0, len(names))
	for _, name := range names {
		m := Member{Name: name}
		if obj != nil {
			if pv := safeGet(obj, name); pv != nil {
				_, m.Callable = goja.AssertFunction(pv)
				m.Preview = render.Truncate(in.Preview(pv), 80)
			}
		}
		members = append(members, m)
	}
	return members
}

func (in *Introspector) collectionPreview(cn string, v goja.Value) string {
	if in.entries == nil {
		return cn + " {}"
	}
	res, err := in.entries(goja.Undefined(), v)
	if err != nil {
		return cn + " {}"
	}
	items, _ := safeExport(res).([]interface{})
	if cn == "Map" {
		pairs := make([][2]any, 0, len(items))
		for _, item := range items {
			if pair, ok := item.([]interface{}); ok && len(pair) == 2 {
				pairs = append(pairs, [2]any{pair[0], pair[1]})
			}
		}
		return render.FormatValue(pairs)
	}
	if len(items) == 0 {
		return "Set {}"
	}
	inner := render.FormatValue(items)
	return "Set {" + strings.TrimSuffix(strings.TrimPrefix(inner, "["), "]") + "}"
}

func functionPreview(obj *goja.Object) string {
	name := ""
	if nv := safeGet(obj, "name"); nv != nil && !goja.IsUndefined(nv) {
		name = nv.String()
	}
	if name == "" {
		return "[Function (anonymous)]"
	}
	return "[Function: " + name + "]"
}

func constructorName(obj *goja.Object) string {
	ctor := safeGet(obj, "constructor")
	if ctor == nil {
		return ""
	}
	cobj, ok := ctor.(*goja.Object)
	if !ok {
		return ""
	}
	name := safeGet(cobj, "name")
	if name == nil || goja.IsUndefined(name) {
		return ""
	}
	return name.String()
}

func intProp(obj *goja.Object, name string) int {
	v := safeGet(obj, name)
	if v == nil || goja.IsUndefined(v) {
		return 0
	}
	return int(v.ToInteger())
}

// safeGet reads a property, absorbing the panic a throwing getter or
// proxy trap raises.
func safeGet(obj *goja.Object, name string) (v goja.Value) {
	defer func() {
		if recover() != nil {
			v = nil
		}
	}()
	return obj.Get(name)
}

// safeExport exports v to a Go value, absorbing getter panics.
func safeExport(v goja.Value) (out any) {
	defer func() {
		if recover() != nil {
			out = nil
		}
	}()
	return v.Export()
}

// boxValue converts v to an object, boxing primitives. Null and undefined
// yield nil.
func boxValue(vm *goja.Runtime, v goja.Value) (obj *goja.Object) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	defer func() {
		if recover() != nil {
			obj = nil
		}
	}()
	return v.ToObject(vm)
}
