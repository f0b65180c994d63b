// Package council implements the council lifecycle and rating-aggregation
// engine: a panel of fictional expert personas that jointly rates a crypto
// symbol through a staged workflow.
//
// The pieces, leaves first:
//
//   - Roster      — the fixed persona set panels are drawn from
//   - Factory     — creates a pending council session for a symbol
//   - Store       — the injected session registry (memory or Redis) that
//     mediates every state transition
//   - StageAnalyzer — maps a stage name to a bounded pseudo-random score
//   - Aggregator  — reduces an active council to its final verdict
//   - Engine      — the trigger-driven façade over all of the above
//
// The state machine is strictly forward (pending → active → complete).
// Mutation is only possible through the ActiveCouncil handle a successful
// Confirm returns, so pending and complete councils are frozen by
// construction.
package council
