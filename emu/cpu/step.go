package cpu

import "log/slog"

// Step fetches, decodes, and executes one instruction on ctx, then
// delivers any pending interrupt or the exception the instruction
// raised (spec §4.5, §4.10). It returns the exception that was
// delivered, if any is worth surfacing to a caller that wants to stop on
// faults (the debugger); the hart itself always keeps running, since a
// trap is architecturally visible state, not a host-level error.
func Step(ctx *Context) *Exception {
	pc := ctx.PC()
	if pc%4 != 0 {
		exc := &Exception{Kind: InstructionAddressMisaligned, Tval: pc}
		DeliverTrap(ctx, exc.Kind.Cause(), false, exc.Tval)
		return exc
	}

	word, err := ctx.Memory().ReadWord(pc)
	if err != nil {
		exc := &Exception{Kind: InstructionAccessFault, Tval: pc}
		DeliverTrap(ctx, exc.Kind.Cause(), false, exc.Tval)
		return exc
	}

	execErr := Execute(ctx, word)
	if execErr != nil {
		exc, ok := AsException(execErr)
		if !ok {
			slog.Error("cpu: non-exception error from Execute", "err", execErr)
			exc = &Exception{Kind: IllegalInstruction, Tval: uint64(word)}
		}
		DeliverTrap(ctx, exc.Kind.Cause(), false, exc.Tval)
		return exc
	}

	if ctx.PC() == pc {
		ctx.SetPC(pc + 4)
	}

	if cause, ok := PendingInterrupt(ctx); ok {
		DeliverTrap(ctx, cause, true, 0)
	}
	return nil
}
