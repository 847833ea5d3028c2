// Package interp implements the minimal RV64I interpreter the step
// driver executes one instruction of. It is written once, against
// access.StateAccess, and runs unmodified over the native, logging, and
// replay back-ends: the access surface itself carries the "how" (log or
// don't log) instead of a hand-rolled dispatch table per back-end.
package interp

import (
	"github.com/creol-io/machine-emulator/access"
	"github.com/creol-io/machine-emulator/pma"
	"github.com/creol-io/machine-emulator/state"
)

func signExtend(v uint64, bits uint) uint64 {
	shift := 64 - bits
	return uint64(int64(v<<shift) >> shift)
}

// csrAddr maps the standard RISC-V CSR addresses this interpreter
// recognises to their named state.CSR slot. iflags and ilrsc have no
// standard CSR number and so are not directly addressable by csrrw/s/c;
// this interpreter does not read or write them.
var csrAddr = map[uint32]state.CSR{
	0x300: state.CSRMstatus,
	0x301: state.CSRMisa,
	0x302: state.CSRMedeleg,
	0x303: state.CSRMideleg,
	0x304: state.CSRMie,
	0x305: state.CSRMtvec,
	0x306: state.CSRMcounteren,
	0x340: state.CSRMscratch,
	0x341: state.CSRMepc,
	0x342: state.CSRMcause,
	0x343: state.CSRMtval,
	0x344: state.CSRMip,
	0xB00: state.CSRMcycle,
	0xB02: state.CSRMinstret,
	0xF11: state.CSRMvendorid,
	0xF12: state.CSRMarchid,
	0xF13: state.CSRMimpid,
	0x105: state.CSRStvec,
	0x106: state.CSRScounteren,
	0x140: state.CSRSscratch,
	0x141: state.CSRSepc,
	0x142: state.CSRScause,
	0x143: state.CSRStval,
	0x180: state.CSRSatp,
}

// csrAddrMhartid is the standard mhartid CSR address. It is handled
// separately from csrAddr because this single-hart machine hardwires it
// to 0 rather than backing it with a shadow slot.
const csrAddrMhartid = 0xF14

func advancePC(a access.StateAccess, delta uint64) {
	a.WritePC(a.ReadPC() + delta)
}

// deliverTrap takes exc as a synchronous trap in M-mode: only M-mode
// direct-vector delivery is modelled (mtvec's low 2 mode bits are
// ignored beyond selecting the base), matching the boot trampoline's
// fixed M-mode-only configuration.
func deliverTrap(a access.StateAccess, exc Exception) {
	a.WriteCSR(state.CSRMepc, a.ReadPC())
	a.WriteCSR(state.CSRMcause, exc.Cause)
	a.WriteCSR(state.CSRMtval, exc.Tval)
	base := a.ReadCSR(state.CSRMtvec) &^ 0x3
	a.WritePC(base)
}

// Step executes exactly one instruction: it takes a pending interrupt if
// one is enabled and asserted, otherwise it fetches, decodes and
// executes the instruction at pc, delivering any resulting exception as
// a trap rather than as a Go error. A panic from the underlying
// state-access that carries an error value (such as a replay
// verification failure), including one raised while a trap is being
// delivered, is returned as Step's error; any other panic propagates.
func Step(a access.StateAccess) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if exc, ok := r.(Exception); ok {
				defer func() {
					if r := recover(); r != nil {
						e, ok := r.(error)
						if !ok {
							panic(r)
						}
						err = e
					}
				}()
				deliverTrap(a, exc)
				return
			}
			if e, ok := r.(error); ok {
				err = e
				return
			}
			panic(r)
		}
	}()

	advanceClock(a)

	mip := a.ReadCSR(state.CSRMip)
	mie := a.ReadCSR(state.CSRMie)
	if mip&mie&state.MipMTIP != 0 {
		deliverTrap(a, Exception{Cause: CauseMachineTimerInterrupt})
		return nil
	}

	runOne(a)
	return nil
}

// advanceClock ticks mcycle and derives the CLINT timer-pending bit from
// mtimecmp, mirroring the fixed RTC_FREQ_DIV ratio the CLINT device
// exposes at its mtime offset.
func advanceClock(a access.StateAccess) {
	mcycle := a.ReadCSR(state.CSRMcycle) + 1
	a.WriteCSR(state.CSRMcycle, mcycle)

	mtimecmp := a.ReadCLINTMtimecmp()
	mip := a.ReadCSR(state.CSRMip)
	if mtimecmp != 0 && mcycle/pma.RTCFreqDiv >= mtimecmp {
		a.WriteCSR(state.CSRMip, mip|state.MipMTIP)
	}
}

// runOne fetches, decodes and executes the instruction at pc. It panics
// with an Exception or a plain error on failure; Step's deferred recover
// is the only place either is handled.
func runOne(a access.StateAccess) {
	pc := a.ReadPC()
	if pc%4 != 0 {
		panic(Exception{Cause: CauseInstructionAddressMisaligned, Tval: pc})
	}
	raw64, ferr := a.ReadMemory(pc, 4)
	if ferr != nil {
		panic(Exception{Cause: CauseInstructionAccessFault, Tval: pc})
	}
	raw := uint32(raw64)
	execute(a, raw)
	a.WriteCSR(state.CSRMinstret, a.ReadCSR(state.CSRMinstret)+1)
}

func execute(a access.StateAccess, raw uint32) {
	opcode := raw & 0x7F
	rd := int((raw >> 7) & 0x1F)
	funct3 := (raw >> 12) & 0x7
	rs1 := int((raw >> 15) & 0x1F)
	rs2 := int((raw >> 20) & 0x1F)
	funct7 := (raw >> 25) & 0x7F

	immI := signExtend(uint64(raw)>>20, 12)
	immS := signExtend((uint64((raw>>25)&0x7F)<<5)|uint64((raw>>7)&0x1F), 12)
	immB := signExtend(
		(uint64((raw>>31)&1)<<12)|(uint64((raw>>7)&1)<<11)|(uint64((raw>>25)&0x3F)<<5)|(uint64((raw>>8)&0xF)<<1),
		13)
	immU := uint64(raw) &^ 0xFFF
	immJ := signExtend(
		(uint64((raw>>31)&1)<<20)|(uint64((raw>>12)&0xFF)<<12)|(uint64((raw>>20)&1)<<11)|(uint64((raw>>21)&0x3FF)<<1),
		21)

	illegal := func() { panic(Exception{Cause: CauseIllegalInstruction, Tval: uint64(raw)}) }

	switch opcode {
	case 0x37: // LUI
		a.WriteX(rd, immU)
		advancePC(a, 4)

	case 0x17: // AUIPC
		a.WriteX(rd, a.ReadPC()+immU)
		advancePC(a, 4)

	case 0x6F: // JAL
		pc := a.ReadPC()
		target := pc + immJ
		if target%4 != 0 {
			panic(Exception{Cause: CauseInstructionAddressMisaligned, Tval: target})
		}
		a.WriteX(rd, pc+4)
		a.WritePC(target)

	case 0x67: // JALR
		if funct3 != 0 {
			illegal()
		}
		pc := a.ReadPC()
		target := (a.ReadX(rs1) + immI) &^ 1
		if target%4 != 0 {
			panic(Exception{Cause: CauseInstructionAddressMisaligned, Tval: target})
		}
		a.WriteX(rd, pc+4)
		a.WritePC(target)

	case 0x63: // branches
		v1, v2 := a.ReadX(rs1), a.ReadX(rs2)
		var taken bool
		switch funct3 {
		case 0:
			taken = v1 == v2 // beq
		case 1:
			taken = v1 != v2 // bne
		case 4:
			taken = int64(v1) < int64(v2) // blt
		case 5:
			taken = int64(v1) >= int64(v2) // bge
		case 6:
			taken = v1 < v2 // bltu
		case 7:
			taken = v1 >= v2 // bgeu
		default:
			illegal()
		}
		pc := a.ReadPC()
		if taken {
			target := pc + immB
			if target%4 != 0 {
				panic(Exception{Cause: CauseInstructionAddressMisaligned, Tval: target})
			}
			a.WritePC(target)
		} else {
			advancePC(a, 4)
		}

	case 0x03: // loads
		addr := a.ReadX(rs1) + immI
		var size int
		var signed bool
		switch funct3 {
		case 0:
			size, signed = 1, true // lb
		case 1:
			size, signed = 2, true // lh
		case 2:
			size, signed = 4, true // lw
		case 3:
			size, signed = 8, false // ld
		case 4:
			size, signed = 1, false // lbu
		case 5:
			size, signed = 2, false // lhu
		case 6:
			size, signed = 4, false // lwu
		default:
			illegal()
		}
		val, err := a.ReadMemory(addr, size)
		if err != nil {
			panic(Exception{Cause: CauseLoadAccessFault, Tval: addr})
		}
		if signed {
			val = signExtend(val, uint(size*8))
		}
		a.WriteX(rd, val)
		advancePC(a, 4)

	case 0x23: // stores
		addr := a.ReadX(rs1) + immS
		val := a.ReadX(rs2)
		var size int
		switch funct3 {
		case 0:
			size = 1 // sb
		case 1:
			size = 2 // sh
		case 2:
			size = 4 // sw
		case 3:
			size = 8 // sd
		default:
			illegal()
		}
		if err := a.WriteMemory(addr, size, val); err != nil {
			panic(Exception{Cause: CauseStoreAccessFault, Tval: addr})
		}
		advancePC(a, 4)

	case 0x13: // OP-IMM
		v1 := a.ReadX(rs1)
		var out uint64
		switch funct3 {
		case 0:
			out = v1 + immI // addi
		case 2:
			out = boolToU64(int64(v1) < int64(immI)) // slti
		case 3:
			out = boolToU64(v1 < immI) // sltiu
		case 4:
			out = v1 ^ immI // xori
		case 6:
			out = v1 | immI // ori
		case 7:
			out = v1 & immI // andi
		case 1:
			out = v1 << (immI & 0x3F) // slli
		case 5:
			shamt := immI & 0x3F
			if funct7&0x20 != 0 {
				out = uint64(int64(v1) >> shamt) // srai
			} else {
				out = v1 >> shamt // srli
			}
		default:
			illegal()
		}
		a.WriteX(rd, out)
		advancePC(a, 4)

	case 0x33: // OP
		v1, v2 := a.ReadX(rs1), a.ReadX(rs2)
		var out uint64
		switch {
		case funct3 == 0 && funct7 == 0x00:
			out = v1 + v2 // add
		case funct3 == 0 && funct7 == 0x20:
			out = v1 - v2 // sub
		case funct3 == 1 && funct7 == 0x00:
			out = v1 << (v2 & 0x3F) // sll
		case funct3 == 2 && funct7 == 0x00:
			out = boolToU64(int64(v1) < int64(v2)) // slt
		case funct3 == 3 && funct7 == 0x00:
			out = boolToU64(v1 < v2) // sltu
		case funct3 == 4 && funct7 == 0x00:
			out = v1 ^ v2 // xor
		case funct3 == 5 && funct7 == 0x00:
			out = v1 >> (v2 & 0x3F) // srl
		case funct3 == 5 && funct7 == 0x20:
			out = uint64(int64(v1) >> (v2 & 0x3F)) // sra
		case funct3 == 6 && funct7 == 0x00:
			out = v1 | v2 // or
		case funct3 == 7 && funct7 == 0x00:
			out = v1 & v2 // and
		default:
			illegal()
		}
		a.WriteX(rd, out)
		advancePC(a, 4)

	case 0x73: // SYSTEM
		switch funct3 {
		case 0:
			if rs1 != 0 || rd != 0 {
				illegal()
			}
			switch immI {
			case 0:
				panic(Exception{Cause: CauseECallFromMMode})
			case 1:
				panic(Exception{Cause: CauseBreakpoint})
			default:
				illegal()
			}
		case 1, 2, 3: // csrrw, csrrs, csrrc
			if raw>>20 == csrAddrMhartid {
				// mhartid is hardwired to 0 on this single-hart machine; it
				// has no shadow slot, so it is read-only outside csrAddr.
				if rd != 0 {
					a.WriteX(rd, 0)
				}
				advancePC(a, 4)
				break
			}
			c, ok := csrAddr[raw>>20]
			if !ok {
				illegal()
			}
			old := a.ReadCSR(c)
			rs1val := a.ReadX(rs1)
			var newVal uint64
			switch funct3 {
			case 1:
				newVal = rs1val
			case 2:
				newVal = old | rs1val
			case 3:
				newVal = old &^ rs1val
			}
			if rd != 0 {
				a.WriteX(rd, old)
			}
			if funct3 == 1 || rs1 != 0 {
				a.WriteCSR(c, newVal)
			}
			advancePC(a, 4)
		default:
			illegal()
		}

	default:
		illegal()
	}
}

func boolToU64(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
