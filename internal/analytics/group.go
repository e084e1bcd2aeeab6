package analytics

// Groups is an ordering-preserving multimap: keys keep the order in which they were
// first observed and each bucket keeps the relative order of its items.
type Groups[T any] struct {
	keys    []string
	buckets map[string][]T
}

// GroupBy buckets items by key
func GroupBy[T any](items []T, key func(T) string) *Groups[T] {
	g := &Groups[T]{buckets: make(map[string][]T)}
	for _, item := range items {
		g.Add(key(item), item)
	}
	return g
}

// Add appends an item to the bucket for key
func (g *Groups[T]) Add(key string, item T) {
	if _, ok := g.buckets[key]; !ok {
		g.keys = append(g.keys, key)
	}
	g.buckets[key] = append(g.buckets[key], item)
}

// Keys returns the keys in first-observed order
func (g *Groups[T]) Keys() []string {
	return g.keys
}

// Get returns the bucket for key, nil when absent
func (g *Groups[T]) Get(key string) []T {
	return g.buckets[key]
}

// Len returns the number of distinct keys
func (g *Groups[T]) Len() int {
	return len(g.keys)
}
