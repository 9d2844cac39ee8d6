package transaction

import "escrow-desk/escrow-portal/escrow-portal-backend/pkg/workflows"

// lifecycle is the allowed status graph. A dispute can send the transaction
// back to funded or straight to a terminal state; released and cancelled have
// no outgoing edges.
var lifecycle = workflows.NewStateMachine(map[string][]string{
	string(StatusPending):   {string(StatusFunded), string(StatusCancelled)},
	string(StatusFunded):    {string(StatusReleased), string(StatusDisputed), string(StatusCancelled)},
	string(StatusDisputed):  {string(StatusFunded), string(StatusReleased), string(StatusCancelled)},
	string(StatusReleased):  {},
	string(StatusCancelled): {},
})

// CanTransition reports whether the status edge exists in the lifecycle graph.
func CanTransition(from, to Status) bool {
	return lifecycle.CanTransition(string(from), string(to))
}
