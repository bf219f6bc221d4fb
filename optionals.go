package enfoque

// Optional marks a value that may be absent. The zero Optional is empty.
type Optional[T any] struct {
	val   T
	isSet bool
}

func (o Optional[T]) IsEmpty() bool {
	return !o.isSet
}

func (o Optional[T]) Get() T {
	return o.val
}

// OrElse returns the value, or def when empty.
func (o Optional[T]) OrElse(def T) T {
	if !o.isSet {
		return def
	}
	return o.val
}

func Some[T any](val T) Optional[T] {
	return Optional[T]{
		val:   val,
		isSet: true,
	}
}

func None[T any]() Optional[T] {
	return Optional[T]{}
}
