package checkout

type State string

const (
	StateCollecting State = "COLLECTING"
	StateReviewing  State = "REVIEWING"
	StateValidating State = "VALIDATING"
	StateCommitting State = "COMMITTING"
	StateDone       State = "DONE"
	StateCancelled  State = "CANCELLED"
	StateFailed     State = "FAILED"
)

var validNext = map[State]map[State]bool{
	StateCollecting: {StateReviewing: true, StateFailed: true},
	StateReviewing:  {StateValidating: true, StateCancelled: true, StateFailed: true},
	StateValidating: {StateCommitting: true, StateFailed: true},
	StateCommitting: {StateDone: true, StateFailed: true},
	StateDone:       {},
	StateCancelled:  {},
	StateFailed:     {},
}

func CanTransition(from, to State) bool {
	return validNext[from][to]
}
