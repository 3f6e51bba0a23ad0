package codec

import (
	"reflect"
	"strings"
	"sync"

	"github.com/wippyai/native-interop/errors"
	"github.com/wippyai/native-interop/handle"
	"github.com/wippyai/native-interop/internal/abi"
	"github.com/wippyai/native-interop/layout"
)

var (
	handleType = reflect.TypeOf(handle.Handle{})
	unionType  = reflect.TypeOf(Union{})
)

type fieldPlan struct {
	typ   *layout.CompiledType
	name  string
	index []int
}

type planKey struct {
	layout *layout.Compiled
	goType reflect.Type
}

var planCache sync.Map

func planFor(c *layout.Compiled, goType reflect.Type) []fieldPlan {
	key := planKey{layout: c, goType: goType}
	if cached, ok := planCache.Load(key); ok {
		return cached.([]fieldPlan)
	}
	plan := make([]fieldPlan, 0, len(c.Fields))
	for _, f := range c.Fields {
		if f.Type.Kind == layout.KindPadding {
			continue
		}
		fp := fieldPlan{name: f.Name, typ: f.Type}
		if sf, ok := findGoField(goType, f.Name); ok {
			fp.index = sf.Index
		}
		plan = append(plan, fp)
	}
	actual, _ := planCache.LoadOrStore(key, plan)
	return actual.([]fieldPlan)
}

func findGoField(goType reflect.Type, cName string) (reflect.StructField, bool) {
	flat := strings.ReplaceAll(cName, "_", "")
	var fallback reflect.StructField
	found := false
	for i := 0; i < goType.NumField(); i++ {
		field := goType.Field(i)
		if !field.IsExported() {
			continue
		}
		if tag := field.Tag.Get("c"); tag != "" {
			if tag == cName {
				return field, true
			}
			continue
		}
		if !found && (strings.EqualFold(field.Name, cName) || strings.EqualFold(field.Name, flat)) {
			fallback = field
			found = true
		}
	}
	return fallback, found
}

// Marshal converts the Go struct v (or a pointer to one) into a Record
// shaped like c. Every non-padding field of c must have a Go counterpart.
func Marshal(c *layout.Compiled, v any) (Record, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, errors.New(errors.PhaseEncode, errors.KindNilPointer).Path(c.Name).Build()
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, errors.TypeMismatch(errors.PhaseEncode, []string{c.Name}, abi.TypeName(v), "struct "+c.Name)
	}
	return marshalStruct(c, rv, []string{c.Name})
}

func marshalStruct(c *layout.Compiled, rv reflect.Value, path []string) (Record, error) {
	plan := planFor(c, rv.Type())
	rec := make(Record, len(plan))
	for _, fp := range plan {
		if fp.index == nil {
			return nil, errors.FieldMissing(errors.PhaseEncode, path, fp.name)
		}
		v, err := marshalValue(fp.typ, rv.FieldByIndex(fp.index), appendPath(path, fp.name))
		if err != nil {
			return nil, err
		}
		rec[fp.name] = v
	}
	return rec, nil
}

func marshalValue(t *layout.CompiledType, fv reflect.Value, path []string) (any, error) {
	for fv.Kind() == reflect.Interface || (fv.Kind() == reflect.Pointer && fv.Type() != reflect.PointerTo(handleType)) {
		if fv.IsNil() {
			return nil, nil
		}
		fv = fv.Elem()
	}

	switch t.Kind {
	case layout.KindStruct:
		if fv.Kind() == reflect.Struct {
			return marshalStruct(t.Struct, fv, path)
		}
		if rec, ok := toRecord(fv.Interface()); ok {
			return rec, nil
		}
		return nil, errors.TypeMismatch(errors.PhaseEncode, path, fv.Type().String(), t.String())

	case layout.KindArray:
		if fv.Kind() != reflect.Slice && fv.Kind() != reflect.Array {
			return nil, errors.TypeMismatch(errors.PhaseEncode, path, fv.Type().String(), t.String())
		}
		out := make([]any, fv.Len())
		for i := range out {
			v, err := marshalValue(t.Elem, fv.Index(i), indexPath(path, i))
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil

	case layout.KindUnion:
		u, ok := fv.Interface().(Union)
		if !ok {
			return nil, errors.TypeMismatch(errors.PhaseEncode, path, fv.Type().String(), t.String())
		}
		if u.Arm == "" || u.Value == nil {
			return u, nil
		}
		arm, ok := t.Arm(u.Arm)
		if !ok {
			return nil, errors.InvalidVariant(errors.PhaseEncode, path, "unknown arm "+u.Arm)
		}
		v, err := marshalValue(arm.Type, reflect.ValueOf(u.Value), appendPath(path, u.Arm))
		if err != nil {
			return nil, err
		}
		return Union{Arm: u.Arm, Value: v}, nil
	}

	return fv.Interface(), nil
}

// Unmarshal stores rec into the Go struct pointed to by out. Go fields
// without a layout counterpart are left untouched, as are layout fields
// missing from rec.
func Unmarshal(c *layout.Compiled, rec Record, out any) error {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return errors.New(errors.PhaseDecode, errors.KindNilPointer).
			Path(c.Name).
			GoType(abi.TypeName(out)).
			Detail("Unmarshal needs a non-nil pointer").
			Build()
	}
	rv = rv.Elem()
	if rv.Kind() != reflect.Struct {
		return errors.TypeMismatch(errors.PhaseDecode, []string{c.Name}, rv.Type().String(), "struct "+c.Name)
	}
	return unmarshalStruct(c, rec, rv, []string{c.Name})
}

func unmarshalStruct(c *layout.Compiled, rec Record, rv reflect.Value, path []string) error {
	for _, fp := range planFor(c, rv.Type()) {
		if fp.index == nil {
			continue
		}
		v, ok := rec[fp.name]
		if !ok {
			continue
		}
		if err := assign(fp.typ, v, rv.FieldByIndex(fp.index), appendPath(path, fp.name)); err != nil {
			return err
		}
	}
	return nil
}

func assign(t *layout.CompiledType, v any, fv reflect.Value, path []string) error {
	if fv.Kind() == reflect.Interface {
		if v == nil {
			fv.SetZero()
		} else {
			fv.Set(reflect.ValueOf(v))
		}
		return nil
	}
	if fv.Kind() == reflect.Pointer && fv.Type() != reflect.PointerTo(handleType) {
		if v == nil {
			fv.SetZero()
			return nil
		}
		if fv.IsNil() {
			fv.Set(reflect.New(fv.Type().Elem()))
		}
		return assign(t, v, fv.Elem(), path)
	}

	mismatch := func() error {
		return errors.TypeMismatch(errors.PhaseDecode, path, fv.Type().String(), t.String())
	}

	switch t.Kind {
	case layout.KindStruct:
		rec, ok := toRecord(v)
		if !ok {
			return mismatch()
		}
		if fv.Kind() == reflect.Struct {
			return unmarshalStruct(t.Struct, rec, fv, path)
		}
		if fv.Type() == reflect.TypeOf(Record{}) {
			fv.Set(reflect.ValueOf(rec))
			return nil
		}
		return mismatch()

	case layout.KindArray:
		items, ok := toSlice(v)
		if !ok {
			return mismatch()
		}
		switch fv.Kind() {
		case reflect.Slice:
			fv.Set(reflect.MakeSlice(fv.Type(), len(items), len(items)))
		case reflect.Array:
			if fv.Len() != len(items) {
				return mismatch()
			}
		default:
			return mismatch()
		}
		for i, item := range items {
			if err := assign(t.Elem, item, fv.Index(i), indexPath(path, i)); err != nil {
				return err
			}
		}
		return nil

	case layout.KindUnion:
		u, ok := v.(Union)
		if !ok || fv.Type() != unionType {
			return mismatch()
		}
		fv.Set(reflect.ValueOf(u))
		return nil
	}

	return assignScalar(v, fv, path)
}

func assignScalar(v any, fv reflect.Value, path []string) error {
	if h, ok := v.(handle.Handle); ok {
		switch {
		case fv.Type() == handleType:
			fv.Set(reflect.ValueOf(h))
			return nil
		case fv.Kind() == reflect.Uintptr:
			fv.SetUint(uint64(h.Addr))
			return nil
		}
		return errors.TypeMismatch(errors.PhaseDecode, path, fv.Type().String(), "pointer")
	}

	switch fv.Kind() {
	case reflect.Bool:
		if b, ok := v.(bool); ok {
			fv.SetBool(b)
			return nil
		}
	case reflect.String:
		if s, ok := v.(string); ok {
			fv.SetString(s)
			return nil
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if n, ok := abi.CoerceToInt64(v); ok {
			if fv.OverflowInt(n) {
				return errors.Overflow(errors.PhaseDecode, path, v, fv.Type().String())
			}
			fv.SetInt(n)
			return nil
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if n, ok := abi.CoerceToUint64(v); ok {
			if fv.OverflowUint(n) {
				return errors.Overflow(errors.PhaseDecode, path, v, fv.Type().String())
			}
			fv.SetUint(n)
			return nil
		}
	case reflect.Float32, reflect.Float64:
		if f, ok := abi.CoerceToFloat64(v); ok {
			fv.SetFloat(f)
			return nil
		}
	}
	return errors.TypeMismatch(errors.PhaseDecode, path, fv.Type().String(), abi.TypeName(v))
}
