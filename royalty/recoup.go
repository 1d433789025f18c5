package royalty

// =============================================================================
// RECOUPMENT - Offsetting a split against an author's advance
// =============================================================================

// RecoupResult is the proposed outcome of offsetting one author's split
// against their contract's advance. The caller persists the recoupment
// delta; this package never writes contract state.
type RecoupResult struct {
	Recoupment Money
	NetPayable Money
	Advance    AdvanceStatus
}

// Recoup computes recoupment and net payable for one split against one
// contract. Recoupment is min(split, remaining advance) for a positive
// split and zero otherwise; advances already recouped are never reversed,
// even on a zero or negative period.
func Recoup(splitAmount Money, contract Contract) RecoupResult {
	remaining := contract.RemainingAdvance()

	recoupment := splitAmount.Zero()
	if splitAmount.IsPositive() {
		recoupment = splitAmount.Min(remaining)
	}

	return RecoupResult{
		Recoupment: recoupment,
		NetPayable: splitAmount.Sub(recoupment),
		Advance: AdvanceStatus{
			TotalAdvance:             contract.AdvancePaid,
			PreviouslyRecouped:       contract.AdvanceRecouped,
			RemainingAfterThisPeriod: remaining.Sub(recoupment),
		},
	}
}
