package plex

// Classifier maps plexes, up to isomorphism, onto values of type T.
//
// Each distinct structure is stored once with the plex that first
// introduced it (its paradigm). Buckets keep insertion order so that
// lookups are deterministic.
type Classifier[T any] struct {
	buckets map[Fingerprint][]classEntry[T]
	count   int
}

type classEntry[T any] struct {
	paradigm Plex
	value    T
}

// NewClassifier creates an empty classifier.
func NewClassifier[T any]() *Classifier[T] {
	return &Classifier[T]{buckets: make(map[Fingerprint][]classEntry[T])}
}

// Len returns the number of distinct structures.
func (c *Classifier[T]) Len() int {
	return c.count
}

// Lookup finds the value whose paradigm is isomorphic to p. The returned
// Iso maps p onto that paradigm.
func (c *Classifier[T]) Lookup(p Plex) (T, Iso, bool) {
	for _, e := range c.buckets[FingerprintOf(p)] {
		if iso, ok := FindIso(p, e.paradigm); ok {
			return e.value, iso, true
		}
	}
	var zero T
	return zero, Iso{}, false
}

// Recognize returns the value for p's structure, calling create with a
// private copy of p as the new paradigm when the structure is unseen. In
// that case the Iso is the identity and created is true.
func (c *Classifier[T]) Recognize(cat *Catalog, p Plex, create func(paradigm Plex) T) (value T, iso Iso, created bool) {
	p.mustCheck(cat)
	fp := FingerprintOf(p)
	for _, e := range c.buckets[fp] {
		if iso, ok := FindIso(p, e.paradigm); ok {
			return e.value, iso, false
		}
	}
	paradigm := p.Clone()
	value = create(paradigm)
	c.buckets[fp] = append(c.buckets[fp], classEntry[T]{paradigm: paradigm, value: value})
	c.count++
	return value, Identity(paradigm), true
}
