package fixed

import (
	"fmt"
	"reflect"
	"unsafe"
)

func assertNoPointers[T any]() error {
	var zero T
	return typeNoPointers(reflect.TypeOf(zero))
}

func typeNoPointers(t reflect.Type) error {
	switch t.Kind() {
	case reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return nil
	case reflect.Array:
		return typeNoPointers(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if err := typeNoPointers(t.Field(i).Type); err != nil {
				return fmt.Errorf("field %s: %w", t.Field(i).Name, err)
			}
		}
		return nil
	case reflect.String, reflect.Slice, reflect.Map, reflect.Pointer,
		reflect.Interface, reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return fmt.Errorf("type %s contains pointer-like data", t.String())
	default:
		return fmt.Errorf("unsupported kind %s (%s)", t.Kind(), t.String())
	}
}

// Size 返回 T 的字节数。
func Size[T any]() uint32 {
	var zero T
	return uint32(unsafe.Sizeof(zero))
}

// Place 在 buf 上原地构造 *T（零值）。T 必须不含指针，buf 至少 Size[T]() 字节且按 T 对齐。
// GC 不扫描 buf 指向的外部内存，所以指针字段一律拒绝。
func Place[T any](buf []byte) (*T, error) {
	if err := assertNoPointers[T](); err != nil {
		return nil, err
	}
	var zero T
	want := int(unsafe.Sizeof(zero))
	if len(buf) < want {
		return nil, fmt.Errorf("size mismatch: got=%d want=%d", len(buf), want)
	}
	p := unsafe.Pointer(unsafe.SliceData(buf))
	if uintptr(p)%unsafe.Alignof(zero) != 0 {
		return nil, fmt.Errorf("misaligned buffer for %T", zero)
	}
	out := (*T)(p)
	*out = zero
	return out, nil
}
