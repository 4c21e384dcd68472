package utils

import (
	"bytes"
	"testing"

	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"
)

// TestChannelSend tests sending data to the channel
func TestChannelSend(t *testing.T) {
	ch := NewChannel()
	initialState := ch.State()

	ch.Send([]byte("test data"))

	if bytes.Equal(initialState, ch.State()) {
		t.Error("Channel state should change after Send")
	}
	if len(ch.Transcript()) != 1 {
		t.Errorf("Transcript length = %d, want 1", len(ch.Transcript()))
	}
}

// TestChannelDeterminism tests that equal transcripts give equal challenges
func TestChannelDeterminism(t *testing.T) {
	a := NewChannel()
	b := NewChannel()
	a.SendElements(field.New(1), field.New(2))
	b.SendElements(field.New(1), field.New(2))

	ea := a.ReceiveRandomElements(3)
	eb := b.ReceiveRandomElements(3)
	for i := range ea {
		if !ea[i].Equal(eb[i]) {
			t.Errorf("challenge %d differs: %v vs %v", i, ea[i], eb[i])
		}
	}
	if ea[0].Equal(ea[1]) {
		t.Error("consecutive challenges should differ")
	}

	c := NewChannel()
	c.SendElements(field.New(1), field.New(3))
	if c.ReceiveRandomElement().Equal(ea[0]) {
		t.Error("different transcripts should give different challenges")
	}
}

// TestChannelElementsCanonical tests that challenges are reduced
func TestChannelElementsCanonical(t *testing.T) {
	ch := NewChannel()
	for i := 0; i < 32; i++ {
		if v := ch.ReceiveRandomElement().Value(); v >= field.P {
			t.Fatalf("challenge %d = %d is not canonical", i, v)
		}
	}
}
