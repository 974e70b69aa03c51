package bitset

import (
	"math/bits"
	"strconv"
	"strings"

	"github.com/wippyai/pvdata/internal/wire"
)

const wordBits = 64

// BitSet is a growable set of non-negative offsets backed by 64-bit words.
type BitSet struct {
	words []uint64
}

// New creates an empty BitSet with room for nbits without growing.
func New(nbits int) *BitSet {
	if nbits <= 0 {
		return &BitSet{}
	}
	return &BitSet{words: make([]uint64, 0, (nbits+wordBits-1)/wordBits)}
}

// Of creates a BitSet with the given offsets set.
func Of(offsets ...int) *BitSet {
	b := &BitSet{}
	for _, o := range offsets {
		b.Set(o)
	}
	return b
}

// Set adds i to the set. Negative offsets are ignored.
func (b *BitSet) Set(i int) *BitSet {
	if i < 0 {
		return b
	}
	w := i / wordBits
	if w >= len(b.words) {
		b.grow(w + 1)
	}
	b.words[w] |= 1 << uint(i%wordBits)
	return b
}

// SetTo sets or clears i.
func (b *BitSet) SetTo(i int, v bool) *BitSet {
	if v {
		return b.Set(i)
	}
	return b.Clear(i)
}

// Clear removes i from the set.
func (b *BitSet) Clear(i int) *BitSet {
	if i < 0 {
		return b
	}
	w := i / wordBits
	if w < len(b.words) {
		b.words[w] &^= 1 << uint(i%wordBits)
		b.trim()
	}
	return b
}

// Flip toggles i.
func (b *BitSet) Flip(i int) *BitSet {
	if i < 0 {
		return b
	}
	w := i / wordBits
	if w >= len(b.words) {
		b.grow(w + 1)
	}
	b.words[w] ^= 1 << uint(i%wordBits)
	b.trim()
	return b
}

// Get reports whether i is in the set.
func (b *BitSet) Get(i int) bool {
	if i < 0 {
		return false
	}
	w := i / wordBits
	return w < len(b.words) && b.words[w]&(1<<uint(i%wordBits)) != 0
}

// ClearAll removes every element.
func (b *BitSet) ClearAll() {
	b.words = b.words[:0]
}

// Any reports whether at least one bit is set.
func (b *BitSet) Any() bool {
	return len(b.words) != 0
}

// IsEmpty reports whether no bit is set.
func (b *BitSet) IsEmpty() bool {
	return len(b.words) == 0
}

// Cardinality returns the number of set bits.
func (b *BitSet) Cardinality() int {
	n := 0
	for _, w := range b.words {
		n += bits.OnesCount64(w)
	}
	return n
}

// Len returns one past the highest set bit, or 0 when empty.
func (b *BitSet) Len() int {
	if len(b.words) == 0 {
		return 0
	}
	last := len(b.words) - 1
	return last*wordBits + bits.Len64(b.words[last])
}

// NextSetBit returns the first set bit at or after from, or -1.
func (b *BitSet) NextSetBit(from int) int {
	if from < 0 {
		from = 0
	}
	u := from / wordBits
	if u >= len(b.words) {
		return -1
	}
	word := b.words[u] & (^uint64(0) << uint(from%wordBits))
	for {
		if word != 0 {
			return u*wordBits + bits.TrailingZeros64(word)
		}
		u++
		if u == len(b.words) {
			return -1
		}
		word = b.words[u]
	}
}

// NextClearBit returns the first clear bit at or after from.
func (b *BitSet) NextClearBit(from int) int {
	if from < 0 {
		from = 0
	}
	u := from / wordBits
	if u >= len(b.words) {
		return from
	}
	word := ^b.words[u] & (^uint64(0) << uint(from%wordBits))
	for {
		if word != 0 {
			return u*wordBits + bits.TrailingZeros64(word)
		}
		u++
		if u == len(b.words) {
			return len(b.words) * wordBits
		}
		word = ^b.words[u]
	}
}

// Offsets returns the set bits in ascending order.
func (b *BitSet) Offsets() []int {
	result := make([]int, 0, b.Cardinality())
	for i := b.NextSetBit(0); i >= 0; i = b.NextSetBit(i + 1) {
		result = append(result, i)
	}
	return result
}

// And keeps only the bits also set in other.
func (b *BitSet) And(other *BitSet) *BitSet {
	if b == other {
		return b
	}
	n := min(len(b.words), len(other.words))
	b.words = b.words[:n]
	for i := range b.words {
		b.words[i] &= other.words[i]
	}
	b.trim()
	return b
}

// Or adds all bits of other.
func (b *BitSet) Or(other *BitSet) *BitSet {
	if b == other {
		return b
	}
	if len(other.words) > len(b.words) {
		b.grow(len(other.words))
	}
	for i, w := range other.words {
		b.words[i] |= w
	}
	return b
}

// Xor toggles every bit set in other.
func (b *BitSet) Xor(other *BitSet) *BitSet {
	if b == other {
		b.ClearAll()
		return b
	}
	if len(other.words) > len(b.words) {
		b.grow(len(other.words))
	}
	for i, w := range other.words {
		b.words[i] ^= w
	}
	b.trim()
	return b
}

// AndNot removes every bit set in other.
func (b *BitSet) AndNot(other *BitSet) *BitSet {
	if b == other {
		b.ClearAll()
		return b
	}
	n := min(len(b.words), len(other.words))
	for i := 0; i < n; i++ {
		b.words[i] &^= other.words[i]
	}
	b.trim()
	return b
}

// OrAnd adds the intersection of s1 and s2.
func (b *BitSet) OrAnd(s1, s2 *BitSet) *BitSet {
	n := min(len(s1.words), len(s2.words))
	if n > len(b.words) {
		b.grow(n)
	}
	for i := 0; i < n; i++ {
		b.words[i] |= s1.words[i] & s2.words[i]
	}
	b.trim()
	return b
}

// Intersects reports whether b and other share at least one bit.
func (b *BitSet) Intersects(other *BitSet) bool {
	n := min(len(b.words), len(other.words))
	for i := 0; i < n; i++ {
		if b.words[i]&other.words[i] != 0 {
			return true
		}
	}
	return false
}

// Equal reports pointwise equality.
func (b *BitSet) Equal(other *BitSet) bool {
	if b == other {
		return true
	}
	if b == nil || other == nil {
		return b.IsEmptyOrNil() && other.IsEmptyOrNil()
	}
	if len(b.words) != len(other.words) {
		return false
	}
	for i := range b.words {
		if b.words[i] != other.words[i] {
			return false
		}
	}
	return true
}

// IsEmptyOrNil is IsEmpty that tolerates a nil receiver.
func (b *BitSet) IsEmptyOrNil() bool {
	return b == nil || len(b.words) == 0
}

// Clone returns an independent copy.
func (b *BitSet) Clone() *BitSet {
	words := make([]uint64, len(b.words))
	copy(words, b.words)
	return &BitSet{words: words}
}

// Restrict clears every bit at or above n.
func (b *BitSet) Restrict(n int) *BitSet {
	if n <= 0 {
		b.ClearAll()
		return b
	}
	w := n / wordBits
	if w < len(b.words) {
		b.words = b.words[:w+1]
		b.words[w] &= (1 << uint(n%wordBits)) - 1
		b.trim()
	}
	return b
}

// String renders the set as {1, 3, 4}.
func (b *BitSet) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	first := true
	for i := b.NextSetBit(0); i >= 0; i = b.NextSetBit(i + 1) {
		if !first {
			sb.WriteString(", ")
		}
		first = false
		sb.WriteString(strconv.Itoa(i))
	}
	sb.WriteByte('}')
	return sb.String()
}

// grow expands the word run to n words.
// Callers guarantee n > len(b.words).
func (b *BitSet) grow(n int) {
	if n <= cap(b.words) {
		old := len(b.words)
		b.words = b.words[:n]
		clear(b.words[old:])
		return
	}
	words := make([]uint64, n, max(n, 2*cap(b.words)))
	copy(words, b.words)
	b.words = words
}

// trim drops trailing zero words.
func (b *BitSet) trim() {
	n := len(b.words)
	for n > 0 && b.words[n-1] == 0 {
		n--
	}
	b.words = b.words[:n]
}

// Serialize appends the wire form to w.
func (b *BitSet) Serialize(w *wire.Writer) {
	w.WriteSize(len(b.words))
	for _, word := range b.words {
		w.Uint64(word)
	}
}

// Deserialize replaces the contents with the wire form read from r.
func (b *BitSet) Deserialize(r *wire.Reader) error {
	n, err := r.ReadSize()
	if err != nil {
		return err
	}
	if n*8 > r.Remaining() {
		return truncatedWords(n)
	}
	b.words = b.words[:0]
	if cap(b.words) < n {
		b.words = make([]uint64, 0, n)
	}
	for i := 0; i < n; i++ {
		word, err := r.Uint64()
		if err != nil {
			return err
		}
		b.words = append(b.words, word)
	}
	// a sender may pad with zero words; accept and normalise
	b.trim()
	return nil
}

// MarshalBinary returns the standalone wire form.
func (b *BitSet) MarshalBinary() ([]byte, error) {
	w := wire.NewWriter()
	b.Serialize(w)
	return w.Bytes(), nil
}

// UnmarshalBinary parses the standalone wire form.
func (b *BitSet) UnmarshalBinary(data []byte) error {
	return b.Deserialize(wire.NewReader(data))
}
