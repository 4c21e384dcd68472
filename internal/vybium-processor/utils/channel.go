package utils

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/sha3"

	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"
)

// Channel is a Fiat-Shamir transcript. Challenges drawn from it depend on
// everything sent before them.
type Channel struct {
	state      []byte
	transcript []string
}

// NewChannel creates an empty transcript
func NewChannel() *Channel {
	return &Channel{
		state:      []byte{0},
		transcript: make([]string, 0, 16),
	}
}

// Send appends data to the channel state
func (c *Channel) Send(data []byte) {
	c.transcript = append(c.transcript, fmt.Sprintf("send:%s", hex.EncodeToString(data)))
	c.state = hash(append(c.state, data...))
}

// SendElements appends field elements in little-endian form
func (c *Channel) SendElements(elements ...field.Element) {
	buf := make([]byte, 8*len(elements))
	for i, e := range elements {
		binary.LittleEndian.PutUint64(buf[8*i:], e.Value())
	}
	c.Send(buf)
}

// ReceiveRandomElement draws a field element from the current state
func (c *Channel) ReceiveRandomElement() field.Element {
	stateAsInt := new(big.Int).SetBytes(c.state)
	random := stateAsInt.Mod(stateAsInt, new(big.Int).SetUint64(field.P))

	c.transcript = append(c.transcript, fmt.Sprintf("receiveRandElement:%s", random.String()))
	c.state = hash(c.state)

	return field.New(random.Uint64())
}

// ReceiveRandomElements draws n field elements
func (c *Channel) ReceiveRandomElements(n int) []field.Element {
	out := make([]field.Element, n)
	for i := range out {
		out[i] = c.ReceiveRandomElement()
	}
	return out
}

// State returns the current channel state
func (c *Channel) State() []byte {
	return append([]byte(nil), c.state...)
}

// Transcript returns the recorded send and receive steps
func (c *Channel) Transcript() []string {
	return append([]string(nil), c.transcript...)
}

// String returns the transcript as a single line
func (c *Channel) String() string {
	return strings.Join(c.transcript, " ")
}

func hash(data []byte) []byte {
	h := sha3.Sum256(data)
	return h[:]
}
