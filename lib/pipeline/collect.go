package pipeline

// lastResult keeps only the last element, or its value if T is not Element
func lastResult[T any](acc T, next Element, _ int) (T, error) {
	if el, ok := any(&acc).(*Element); ok {
		*el = next
		return acc, nil
	}
	if v, ok := next.Value.(T); ok {
		return v, nil
	}
	var zero T
	if next.Value == nil {
		return zero, nil
	}
	return acc, nil
}

// CollectValues is a fold collecting the values of all elements in order.
func CollectValues(acc []any, next Element, _ int) ([]any, error) {
	return append(acc, next.Value), nil
}

// CollectElements is a fold collecting all elements (with their paths) in order.
func CollectElements(acc []Element, next Element, _ int) ([]Element, error) {
	return append(acc, next), nil
}

// MergeObjects is a fold merging the keys of all object elements into acc,
// later elements overwrite earlier keys. Non object elements are ignored.
func MergeObjects(acc map[string]any, next Element, _ int) (map[string]any, error) {
	obj, ok := next.Value.(map[string]any)
	if !ok {
		return acc, nil
	}
	if acc == nil {
		acc = make(map[string]any, len(obj))
	}
	for k, v := range obj {
		acc[k] = v
	}
	return acc, nil
}
