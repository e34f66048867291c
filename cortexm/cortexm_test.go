// Copyright 2026 The rtic-scope Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cortexm

import "testing"

func TestVectActiveFrom(t *testing.T) {
	for _, tc := range []struct {
		num  uint16
		want VectActive
		ok   bool
	}{
		{num: 0, want: VectActive{Kind: VectThread}, ok: true},
		{num: 2, want: VectActive{Kind: VectException, Exception: NonMaskableInt}, ok: true},
		{num: 3, want: VectActive{Kind: VectException, Exception: HardFault}, ok: true},
		{num: 4, want: VectActive{Kind: VectException, Exception: MemoryManagement}, ok: true},
		{num: 5, want: VectActive{Kind: VectException, Exception: BusFault}, ok: true},
		{num: 6, want: VectActive{Kind: VectException, Exception: UsageFault}, ok: true},
		{num: 7, want: VectActive{Kind: VectException, Exception: SecureFault}, ok: true},
		{num: 11, want: VectActive{Kind: VectException, Exception: SVCall}, ok: true},
		{num: 12, want: VectActive{Kind: VectException, Exception: DebugMonitor}, ok: true},
		{num: 14, want: VectActive{Kind: VectException, Exception: PendSV}, ok: true},
		{num: 15, want: VectActive{Kind: VectException, Exception: SysTick}, ok: true},
		{num: 16, want: VectActive{Kind: VectInterrupt, IRQn: 0}, ok: true},
		{num: 511, want: VectActive{Kind: VectInterrupt, IRQn: 495}, ok: true},
		{num: 1},
		{num: 8},
		{num: 9},
		{num: 10},
		{num: 13},
		{num: 512},
	} {
		got, ok := VectActiveFrom(tc.num)
		if ok != tc.ok {
			t.Errorf("num=%d: got ok=%v, want %v", tc.num, ok, tc.ok)
			continue
		}
		if got != tc.want {
			t.Errorf("num=%d: got %+v, want %+v", tc.num, got, tc.want)
		}
	}
}

func TestVectActiveNumber(t *testing.T) {
	for num := uint16(0); num < 512; num++ {
		v, ok := VectActiveFrom(num)
		if !ok {
			continue
		}
		if got := v.Number(); got != num {
			t.Errorf("num=%d: Number()=%d", num, got)
		}
	}
}

func TestPrescalerDiv(t *testing.T) {
	for _, tc := range []struct {
		p    Prescaler
		want int
	}{
		{Prescale1, 1},
		{Prescale4, 4},
		{Prescale16, 16},
		{Prescale64, 64},
	} {
		if got := tc.p.Div(); got != tc.want {
			t.Errorf("%v: got div=%d, want %d", tc.p, got, tc.want)
		}
	}
}

func TestExceptionIRQn(t *testing.T) {
	for _, tc := range []struct {
		e    Exception
		want int8
	}{
		{NonMaskableInt, -14},
		{HardFault, -13},
		{MemoryManagement, -12},
		{BusFault, -11},
		{UsageFault, -10},
		{SecureFault, -9},
		{SVCall, -5},
		{DebugMonitor, -4},
		{PendSV, -2},
		{SysTick, -1},
	} {
		if got := tc.e.IRQn(); got != tc.want {
			t.Errorf("%v: got IRQn=%d, want %d", tc.e, got, tc.want)
		}
	}
}
