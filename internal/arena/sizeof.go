package arena

import "unsafe"

// unsafeSizeof reports the static size of a value's type. It ignores
// the backing arrays/slices/strings a struct might point to, which is
// an acceptable approximation for a watermark heuristic: the line-cache
// entries that dominate arena usage are fixed-shape structs of byte
// arrays (painted rows, sprite masks), not slices of varying length.
func unsafeSizeof[T any](v T) uintptr {
	return unsafe.Sizeof(v)
}
