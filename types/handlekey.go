package types

// HandleKey packs two logical values into a single 64-bit integer: a low
// index, used to look an entity up in the handle map, and a high generation,
// used to detect stale handles after the index has been recycled.
//
// See: https://ajmmertens.medium.com/doing-a-lot-with-a-little-ecs-identifiers-25a72bd2647
type HandleKey uint64

const (
	// GenerationBits is the number of high-order bits reserved for the
	// generation counter. The remaining low-order bits hold the index.
	GenerationBits = 24
	IndexBits      = 64 - GenerationBits

	generationShift = IndexBits
)

var (
	shiftAmount    = uint(generationShift)
	generationMask uint64 = ^uint64(0) << shiftAmount
	indexMask      uint64 = ^generationMask
	lastGeneration uint64 = generationMask >> generationShift
)

// MakeFirstKey returns the key with index zero and the first generation.
func MakeFirstKey() HandleKey {
	return HandleKey(0)
}

// MakeLatestKey returns the key with every bit set. It is not structurally
// invalid, but it is reserved for the default-constructed handle so that it
// is easy to spot in a debugger.
func MakeLatestKey() HandleKey {
	return HandleKey(^uint64(0))
}

// MakeKeyFromIndex returns the key for the given index, first generation.
// The index must fit in IndexBits.
func MakeKeyFromIndex(index uint64) HandleKey {
	return HandleKey(index & indexMask)
}

// Index returns the index value, discarding the generation.
func (k HandleKey) Index() uint64 {
	return uint64(k) & indexMask
}

// Generation returns the generation value, discarding the index.
func (k HandleKey) Generation() uint64 {
	return uint64(k) >> generationShift
}

// PostIncrementIndex increments the key's index in place, keeping the same
// generation, and returns the key as it was before the increment. Wrapping
// over the index does not bleed into the generation bits.
func (k *HandleKey) PostIncrementIndex() HandleKey {
	previous := *k
	*k = HandleKey(uint64(previous)&generationMask | (uint64(previous)+1)&indexMask)
	return previous
}

// AdvanceGeneration returns the key with the generation incremented and the
// index unchanged. After the last generation the counter wraps around, with
// an associated (rare) risk of stale-handle collision.
func (k HandleKey) AdvanceGeneration() HandleKey {
	next := (k.Generation() + 1) << generationShift
	return HandleKey(next&generationMask | k.Index())
}

// IsLastGeneration reports whether advancing the generation once more would
// wrap it around.
func (k HandleKey) IsLastGeneration() bool {
	return k.Generation() == lastGeneration
}
