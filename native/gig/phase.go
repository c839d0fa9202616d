package gig

// ResolvePhase derives the escrow phase from the current time, the deadline
// and the claimed flag. It is the only place phase is computed.
func ResolvePhase(now, deadline uint64, claimed bool) Phase {
	switch {
	case now < deadline:
		return PhaseInProgress
	case !claimed:
		return PhaseSuccess
	default:
		return PhaseOver
	}
}
