package interp

// Standard mcause codes for the exceptions this interpreter can raise.
// Interrupts are not modelled as a separate synchronous exception path;
// pending interrupts are taken by Step before fetch, per RISC-V priority.
const (
	CauseInstructionAddressMisaligned = 0
	CauseInstructionAccessFault       = 1
	CauseIllegalInstruction           = 2
	CauseBreakpoint                   = 3
	CauseLoadAddressMisaligned        = 4
	CauseLoadAccessFault              = 5
	CauseStoreAddressMisaligned       = 6
	CauseStoreAccessFault             = 7
	CauseECallFromMMode               = 11

	CauseMachineTimerInterrupt = (uint64(1) << 63) | 7
)

// Exception is a target fault (kind-2): a synchronous trap the
// interpreter takes and delivers entirely within one step, never
// surfaced to the caller as a Go error.
type Exception struct {
	Cause uint64
	Tval  uint64
}
