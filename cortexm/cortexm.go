// Copyright 2026 The rtic-scope Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cortexm describes ARM Cortex-M execution contexts and trace
// clock settings referenced by ITM/DWT trace packets.
package cortexm // import "github.com/rtic-scope/itm/cortexm"

import "fmt"

// Prescaler is the divider applied to the local timestamp reference
// clock, as configured in the ITM trace control register.
type Prescaler uint8

const (
	Prescale1  Prescaler = iota // no prescaling
	Prescale4                   // reference clock divided by 4
	Prescale16                  // reference clock divided by 16
	Prescale64                  // reference clock divided by 64
)

// Div returns the clock divider for the prescaler.
func (p Prescaler) Div() int {
	switch p {
	case Prescale1:
		return 1
	case Prescale4:
		return 4
	case Prescale16:
		return 16
	case Prescale64:
		return 64
	}
	return 1
}

func (p Prescaler) String() string {
	return fmt.Sprintf("div-%d", p.Div())
}

// Vect discriminates the kinds of active exception contexts.
type Vect uint8

const (
	VectThread Vect = iota // thread mode
	VectException          // processor core exception (internal interrupt)
	VectInterrupt          // device specific exception (external interrupt)
)

// VectActive is the exception context reported by a DWT exception
// trace packet.
type VectActive struct {
	Kind Vect `json:"kind"`

	// Exception is the core exception, valid when Kind is VectException.
	Exception Exception `json:"exception,omitempty"`

	// IRQn is the external interrupt number, valid when Kind is
	// VectInterrupt. Always within the half open range [0, 496).
	IRQn uint16 `json:"irqn,omitempty"`
}

// VectActiveFrom converts a 9-bit exception number into a VectActive.
// Numbers not assigned by the architecture report ok=false.
func VectActiveFrom(num uint16) (VectActive, bool) {
	switch num {
	case 0:
		return VectActive{Kind: VectThread}, true
	case 2:
		return VectActive{Kind: VectException, Exception: NonMaskableInt}, true
	case 3:
		return VectActive{Kind: VectException, Exception: HardFault}, true
	case 4:
		return VectActive{Kind: VectException, Exception: MemoryManagement}, true
	case 5:
		return VectActive{Kind: VectException, Exception: BusFault}, true
	case 6:
		return VectActive{Kind: VectException, Exception: UsageFault}, true
	case 7:
		return VectActive{Kind: VectException, Exception: SecureFault}, true
	case 11:
		return VectActive{Kind: VectException, Exception: SVCall}, true
	case 12:
		return VectActive{Kind: VectException, Exception: DebugMonitor}, true
	case 14:
		return VectActive{Kind: VectException, Exception: PendSV}, true
	case 15:
		return VectActive{Kind: VectException, Exception: SysTick}, true
	default:
		if 16 <= num && num < 512 {
			return VectActive{Kind: VectInterrupt, IRQn: num - 16}, true
		}
		return VectActive{}, false
	}
}

func (v VectActive) String() string {
	switch v.Kind {
	case VectThread:
		return "thread-mode"
	case VectException:
		return v.Exception.String()
	case VectInterrupt:
		return fmt.Sprintf("irq(%d)", v.IRQn)
	}
	return fmt.Sprintf("vect(%d)", v.Kind)
}

// Exception is a processor core exception (internal interrupt).
type Exception uint8

const (
	NonMaskableInt   Exception = iota // non maskable interrupt
	HardFault                         // hard fault interrupt
	MemoryManagement                  // memory management interrupt (not on Cortex-M0)
	BusFault                          // bus fault interrupt (not on Cortex-M0)
	UsageFault                        // usage fault interrupt (not on Cortex-M0)
	SecureFault                       // secure fault interrupt (ARMv8-M only)
	SVCall                            // SV call interrupt
	DebugMonitor                      // debug monitor interrupt (not on Cortex-M0)
	PendSV                            // pend SV interrupt
	SysTick                           // system tick interrupt
)

// IRQn returns the IRQ number of the exception.
// The returned value is always within the closed range [-14, -1].
func (e Exception) IRQn() int8 {
	switch e {
	case NonMaskableInt:
		return -14
	case HardFault:
		return -13
	case MemoryManagement:
		return -12
	case BusFault:
		return -11
	case UsageFault:
		return -10
	case SecureFault:
		return -9
	case SVCall:
		return -5
	case DebugMonitor:
		return -4
	case PendSV:
		return -2
	case SysTick:
		return -1
	}
	return 0
}

func (e Exception) String() string {
	switch e {
	case NonMaskableInt:
		return "NonMaskableInt"
	case HardFault:
		return "HardFault"
	case MemoryManagement:
		return "MemoryManagement"
	case BusFault:
		return "BusFault"
	case UsageFault:
		return "UsageFault"
	case SecureFault:
		return "SecureFault"
	case SVCall:
		return "SVCall"
	case DebugMonitor:
		return "DebugMonitor"
	case PendSV:
		return "PendSV"
	case SysTick:
		return "SysTick"
	}
	return fmt.Sprintf("Exception(%d)", uint8(e))
}

// Number returns the 9-bit exception number of the context, the
// inverse of VectActiveFrom.
func (v VectActive) Number() uint16 {
	switch v.Kind {
	case VectThread:
		return 0
	case VectException:
		return uint16(16 + v.Exception.IRQn())
	case VectInterrupt:
		return v.IRQn + 16
	}
	return 0
}
