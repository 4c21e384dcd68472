package core

import (
	"encoding/binary"

	"golang.org/x/crypto/sha3"

	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"
)

// Rescue-style permutation parameters
const (
	StateWidth    = 12
	CapacityWidth = 4
	RateWidth     = 8
	RateStart     = CapacityWidth
	DigestStart   = RateStart
	DigestEnd     = DigestStart + WordSize
	NumRounds     = 7

	// CycleLength is the number of trace rows one permutation occupies:
	// the input state followed by the state after each round.
	CycleLength = NumRounds + 1

	sboxAlpha uint64 = 7
	// 7 * sboxInvAlpha = 1 mod (p - 1)
	sboxInvAlpha uint64 = 10540996611094048183
)

// HasherState is the full permutation state: capacity lanes 0..3 followed
// by rate lanes 4..11.
type HasherState [StateWidth]field.Element

var (
	mdsFirstRow = [StateWidth]uint64{7, 23, 8, 26, 13, 10, 9, 7, 6, 22, 21, 8}

	mds             [StateWidth][StateWidth]field.Element
	roundConstantsA [NumRounds][StateWidth]field.Element
	roundConstantsB [NumRounds][StateWidth]field.Element
)

func init() {
	for i := 0; i < StateWidth; i++ {
		for j := 0; j < StateWidth; j++ {
			mds[i][j] = field.New(mdsFirstRow[(j-i+StateWidth)%StateWidth])
		}
	}

	// Round constants are squeezed from SHAKE256 and rejection-sampled into
	// the field so that every constant is uniform and canonical.
	xof := sha3.NewShake256()
	xof.Write([]byte("vybium-processor/rescue/round-constants/v1"))
	var buf [8]byte
	next := func() field.Element {
		for {
			xof.Read(buf[:])
			v := binary.LittleEndian.Uint64(buf[:])
			if v < field.P {
				return field.New(v)
			}
		}
	}
	for r := 0; r < NumRounds; r++ {
		for i := 0; i < StateWidth; i++ {
			roundConstantsA[r][i] = next()
		}
		for i := 0; i < StateWidth; i++ {
			roundConstantsB[r][i] = next()
		}
	}
}

// Permute applies all rounds to the state in place
func Permute(state *HasherState) {
	for r := 0; r < NumRounds; r++ {
		ApplyRound(state, r)
	}
}

// ApplyRound applies a single round. The hasher chiplet calls it directly so
// that each intermediate state lands in its own trace row.
func ApplyRound(state *HasherState, round int) {
	applyMDS(state)
	for i := range state {
		state[i] = state[i].Add(roundConstantsA[round][i]).ModPow(sboxAlpha)
	}
	applyMDS(state)
	for i := range state {
		state[i] = state[i].Add(roundConstantsB[round][i]).ModPow(sboxInvAlpha)
	}
}

func applyMDS(state *HasherState) {
	var out HasherState
	for i := 0; i < StateWidth; i++ {
		acc := field.Zero
		for j := 0; j < StateWidth; j++ {
			acc = acc.Add(mds[i][j].Mul(state[j]))
		}
		out[i] = acc
	}
	*state = out
}

// Digest returns the digest lanes of the state
func (s *HasherState) Digest() Word {
	return Word{s[DigestStart], s[DigestStart+1], s[DigestStart+2], s[DigestStart+3]}
}

// Rate returns the rate lanes of the state
func (s *HasherState) Rate() [RateWidth]field.Element {
	var rate [RateWidth]field.Element
	copy(rate[:], s[RateStart:])
	return rate
}

// SetRate overwrites the rate lanes
func (s *HasherState) SetRate(rate [RateWidth]field.Element) {
	copy(s[RateStart:], rate[:])
}

// NewMergeState builds the input state of a two-to-one merge: the domain in
// capacity lane 1 and the two words in the rate.
func NewMergeState(left, right Word, domain field.Element) HasherState {
	var state HasherState
	for i := range state {
		state[i] = field.Zero
	}
	state[1] = domain
	copy(state[RateStart:RateStart+WordSize], left[:])
	copy(state[RateStart+WordSize:], right[:])
	return state
}

// NewAbsorbState builds the first input state of a sequential absorption
// with the given value in capacity lane 0.
func NewAbsorbState(capacity0 field.Element, first [RateWidth]field.Element) HasherState {
	var state HasherState
	for i := range state {
		state[i] = field.Zero
	}
	state[0] = capacity0
	state.SetRate(first)
	return state
}

// Merge hashes two words into one
func Merge(left, right Word) Digest {
	return MergeInDomain(left, right, field.Zero)
}

// MergeInDomain hashes two words with a domain separator
func MergeInDomain(left, right Word, domain field.Element) Digest {
	state := NewMergeState(left, right, domain)
	Permute(&state)
	return state.Digest()
}

// HashRateBlocks absorbs the blocks one permutation at a time, overwriting
// the rate for each block. capacity0 seeds capacity lane 0 and is what keeps
// inputs of different lengths apart.
func HashRateBlocks(capacity0 field.Element, blocks [][RateWidth]field.Element) Digest {
	if len(blocks) == 0 {
		var empty [RateWidth]field.Element
		for i := range empty {
			empty[i] = field.Zero
		}
		blocks = [][RateWidth]field.Element{empty}
	}
	state := NewAbsorbState(capacity0, blocks[0])
	Permute(&state)
	for _, block := range blocks[1:] {
		state.SetRate(block)
		Permute(&state)
	}
	return state.Digest()
}

// ChunkElements splits elements into zero-padded rate-sized blocks
func ChunkElements(elements []field.Element) [][RateWidth]field.Element {
	blocks := make([][RateWidth]field.Element, 0, (len(elements)+RateWidth-1)/RateWidth)
	for start := 0; start < len(elements); start += RateWidth {
		var block [RateWidth]field.Element
		for i := range block {
			block[i] = field.Zero
		}
		copy(block[:], elements[start:min(start+RateWidth, len(elements))])
		blocks = append(blocks, block)
	}
	return blocks
}

// HashElements hashes a variable-length sequence of elements
func HashElements(elements []field.Element) Digest {
	return HashRateBlocks(field.New(uint64(len(elements))), ChunkElements(elements))
}
