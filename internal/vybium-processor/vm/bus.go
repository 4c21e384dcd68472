package vm

import (
	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"
)

// Bus message labels. Hasher labels follow the selector flavor that
// produced the row; the rest identify the responding chiplet.
const (
	LabelLinearHash  uint64 = 3
	LabelMpVerify    uint64 = 11
	LabelMrUpdateOld uint64 = 7
	LabelMrUpdateNew uint64 = 15
	LabelReturnHash  uint64 = 1
	LabelReturnState uint64 = 9
	LabelAbsorb      uint64 = 5
	LabelMemoryRead  uint64 = 12
	LabelMemoryWrite uint64 = 4
	LabelKernelProc  uint64 = 48
)

// MaxMessageWidth is the number of challenges needed to reduce any message:
// one offset, the label, the address and up to twelve values.
const MaxMessageWidth = 1 + 2 + 12

// BusMessage is a lookup sent between the stack machine and a chiplet
type BusMessage struct {
	Label  uint64
	Addr   uint64
	Values []field.Element
}

// Reduce compresses the message to a single element as
// α0 + α1·label + α2·addr + Σ α_{i+3}·values_i.
func (m BusMessage) Reduce(alphas []field.Element) field.Element {
	acc := alphas[0]
	acc = acc.Add(alphas[1].Mul(field.New(m.Label)))
	acc = acc.Add(alphas[2].Mul(field.New(m.Addr)))
	for i, v := range m.Values {
		acc = acc.Add(alphas[i+3].Mul(v))
	}
	return acc
}

// ChipletsBus collects the requests the decoder and the stack send to the
// chiplets, and the responses the chiplets produce. The two multisets must
// be equal for the trace to be consistent.
type ChipletsBus struct {
	requests  []BusMessage
	responses []BusMessage
}

// NewChipletsBus creates an empty bus
func NewChipletsBus() *ChipletsBus {
	return &ChipletsBus{}
}

// Request records a message sent to a chiplet
func (b *ChipletsBus) Request(m BusMessage) {
	b.requests = append(b.requests, m)
}

// Respond records a message produced by a chiplet
func (b *ChipletsBus) Respond(m BusMessage) {
	b.responses = append(b.responses, m)
}

// Requests returns the recorded requests
func (b *ChipletsBus) Requests() []BusMessage {
	return append([]BusMessage(nil), b.requests...)
}

// Responses returns the recorded responses
func (b *ChipletsBus) Responses() []BusMessage {
	return append([]BusMessage(nil), b.responses...)
}

// Balanced compares the products of the reduced requests and responses
func (b *ChipletsBus) Balanced(alphas []field.Element) bool {
	if len(b.requests) != len(b.responses) {
		return false
	}
	lhs, rhs := field.One, field.One
	for _, m := range b.requests {
		lhs = lhs.Mul(m.Reduce(alphas))
	}
	for _, m := range b.responses {
		rhs = rhs.Mul(m.Reduce(alphas))
	}
	return lhs.Equal(rhs)
}
