// Package optional holds values which may or may not have been set.
package optional

// Optional is a T which may be unset. The zero value is unset.
type Optional[T any] struct {
	value T
	set   bool
}

// Of returns an Optional holding v.
func Of[T any](v T) Optional[T] {
	return Optional[T]{value: v, set: true}
}

// Set stores v.
func (o *Optional[T]) Set(v T) {
	o.value = v
	o.set = true
}

// Get returns the stored value, or the zero T when unset.
func (o Optional[T]) Get() T {
	return o.value
}

// GetOr returns the stored value or fallback when unset.
func (o Optional[T]) GetOr(fallback T) T {
	if !o.set {
		return fallback
	}
	return o.value
}

// HasValue reports whether a value has been set.
func (o Optional[T]) HasValue() bool {
	return o.set
}

// Reset makes o unset again.
func (o *Optional[T]) Reset() {
	var zero T
	o.value = zero
	o.set = false
}
