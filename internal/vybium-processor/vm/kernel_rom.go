package vm

import (
	"fmt"

	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"

	"github.com/vybium/vybium-processor/internal/vybium-processor/core"
	"github.com/vybium/vybium-processor/internal/vybium-processor/program"
)

// KernelROM records which kernel procedures were invoked by syscalls.
// Each procedure contributes one row, plus one more per access.
type KernelROM struct {
	kernel   program.Kernel
	accesses []int
}

// NewKernelROM creates a ROM over the kernel's procedures
func NewKernelROM(kernel program.Kernel) *KernelROM {
	return &KernelROM{kernel: kernel, accesses: make([]int, kernel.Len())}
}

// AccessProc records a syscall to the procedure with digest d
func (k *KernelROM) AccessProc(d core.Digest) error {
	idx, ok := k.kernel.ProcIndex(d)
	if !ok {
		return fmt.Errorf("procedure %s is not in the kernel", d.Hex())
	}
	k.accesses[idx]++
	return nil
}

// Accesses returns how often the procedure at kernel index idx was called
func (k *KernelROM) Accesses(idx int) int {
	return k.accesses[idx]
}

// TraceLen returns the number of ROM rows
func (k *KernelROM) TraceLen() int {
	n := 0
	for _, a := range k.accesses {
		n += 1 + a
	}
	return n
}

// fillTrace writes the ROM rows starting at start. Access rows answer the
// kernel procedure requests sent by syscalls.
func (k *KernelROM) fillTrace(dst [][]field.Element, start int, bus *ChipletsBus) {
	row := start
	for idx, d := range k.kernel.Procedures() {
		for i := 0; i <= k.accesses[idx]; i++ {
			dst[ChipletsTraceOffset][row] = field.One
			dst[ChipletsTraceOffset+1][row] = field.One
			dst[ChipletsTraceOffset+2][row] = field.Zero
			dst[ChipletsTraceOffset+KernelFirstRowIdx][row] = boolElement(i == 0)
			dst[ChipletsTraceOffset+KernelIdxIdx][row] = field.New(uint64(idx))
			for j, v := range d {
				dst[ChipletsTraceOffset+KernelRootIdx+j][row] = v
			}
			if i > 0 {
				bus.Respond(kernelMessage(d))
			}
			row++
		}
	}
}

func kernelMessage(d core.Digest) BusMessage {
	return BusMessage{Label: LabelKernelProc, Values: d.Elements()}
}
