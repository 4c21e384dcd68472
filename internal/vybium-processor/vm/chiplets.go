package vm

import (
	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"

	"github.com/vybium/vybium-processor/internal/vybium-processor/program"
)

// Chiplets groups the co-processors that share the chiplet columns. Their
// rows are stacked in the order hasher, memory, kernel ROM, padding.
type Chiplets struct {
	Hasher    *Hasher
	Memory    *Memory
	KernelROM *KernelROM

	bus *ChipletsBus
}

// NewChiplets creates the chiplets for a kernel
func NewChiplets(kernel program.Kernel) *Chiplets {
	bus := NewChipletsBus()
	return &Chiplets{
		Hasher:    NewHasher(bus),
		Memory:    NewMemory(),
		KernelROM: NewKernelROM(kernel),
		bus:       bus,
	}
}

// Bus returns the bus the chiplets answer on
func (c *Chiplets) Bus() *ChipletsBus {
	return c.bus
}

// TraceLen returns the number of rows the chiplets occupy before padding
func (c *Chiplets) TraceLen() int {
	return c.Hasher.TraceLen() + c.Memory.TraceLen() + c.KernelROM.TraceLen()
}

// fillTrace writes every chiplet's rows and pads the rest of the segment
func (c *Chiplets) fillTrace(dst [][]field.Element) {
	row := 0
	c.Hasher.fillTrace(dst, row)
	row += c.Hasher.TraceLen()

	c.Memory.fillTrace(dst, row, c.bus)
	row += c.Memory.TraceLen()

	c.KernelROM.fillTrace(dst, row, c.bus)
	row += c.KernelROM.TraceLen()

	for r := row; r < len(dst[ChipletsTraceOffset]); r++ {
		for i := 0; i < 3; i++ {
			dst[ChipletsTraceOffset+i][r] = field.One
		}
	}
}
