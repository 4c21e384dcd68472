// Package core provides the primitive values shared by the processor:
// words, digests, the hash permutation, Merkle paths and stack I/O.
package core

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"
)

// WordSize is the number of field elements in a word
const WordSize = 4

// Word is the unit of memory access and the shape of every digest.
// Lane 0 is the deepest element when a word sits on the stack.
type Word [WordSize]field.Element

// Digest is a word produced by the hash permutation
type Digest = Word

// ZeroWord returns the all-zero word
func ZeroWord() Word {
	return Word{field.Zero, field.Zero, field.Zero, field.Zero}
}

// NewWord builds a word from four canonical integers
func NewWord(a, b, c, d uint64) Word {
	return Word{field.New(a), field.New(b), field.New(c), field.New(d)}
}

// WordFromElements builds a word from exactly four elements
func WordFromElements(elements []field.Element) (Word, error) {
	if len(elements) != WordSize {
		return Word{}, fmt.Errorf("word needs %d elements, got %d", WordSize, len(elements))
	}
	return Word{elements[0], elements[1], elements[2], elements[3]}, nil
}

// IsZero reports whether every lane is zero
func (w Word) IsZero() bool {
	for _, e := range w {
		if !e.IsZero() {
			return false
		}
	}
	return true
}

// Equal compares two words lane by lane
func (w Word) Equal(other Word) bool {
	for i := range w {
		if !w[i].Equal(other[i]) {
			return false
		}
	}
	return true
}

// Elements returns the lanes as a slice
func (w Word) Elements() []field.Element {
	return []field.Element{w[0], w[1], w[2], w[3]}
}

// Uint64s returns the canonical integer value of each lane
func (w Word) Uint64s() [WordSize]uint64 {
	return [WordSize]uint64{w[0].Value(), w[1].Value(), w[2].Value(), w[3].Value()}
}

// Bytes encodes the word as 32 little-endian bytes
func (w Word) Bytes() []byte {
	out := make([]byte, 8*WordSize)
	for i, e := range w {
		binary.LittleEndian.PutUint64(out[8*i:], e.Value())
	}
	return out
}

// WordFromBytes decodes 32 little-endian bytes, rejecting non-canonical lanes
func WordFromBytes(b []byte) (Word, error) {
	if len(b) != 8*WordSize {
		return Word{}, fmt.Errorf("word encoding must be %d bytes, got %d", 8*WordSize, len(b))
	}
	var w Word
	for i := range w {
		v := binary.LittleEndian.Uint64(b[8*i:])
		if v >= field.P {
			return Word{}, fmt.Errorf("lane %d value %d is not a canonical field element", i, v)
		}
		w[i] = field.New(v)
	}
	return w, nil
}

// Hex returns the 0x-prefixed hex form of Bytes
func (w Word) Hex() string {
	return "0x" + hex.EncodeToString(w.Bytes())
}

// ParseHexWord parses the output of Hex; the 0x prefix is optional
func ParseHexWord(s string) (Word, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return Word{}, fmt.Errorf("invalid word hex %q: %w", s, err)
	}
	return WordFromBytes(raw)
}

// String renders the word as [a, b, c, d]
func (w Word) String() string {
	v := w.Uint64s()
	return fmt.Sprintf("[%d, %d, %d, %d]", v[0], v[1], v[2], v[3])
}
