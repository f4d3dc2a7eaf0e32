// Package app wires the mint session service, its background refresher, and
// attempt storage into one lifecycle-managed application.
//
// The layout follows a small set of conventions:
//
//   - domain/mint holds the pure model: distribution state, guard
//     configuration, eligibility verdicts, and the mint attempt state
//     machine. Nothing in there touches the network.
//   - services/mint is the session controller. It reads chain state through
//     the ChainReader boundary, evaluates eligibility, drives attempts
//     through the writer, and publishes snapshots to subscribers.
//   - storage defines the attempt persistence interfaces with in-memory and
//     Postgres implementations.
//   - httpapi exposes the session over HTTP and a websocket stream.
//   - system owns deterministic start and stop ordering for the background
//     services.
//
// Construction happens in New: callers supply the chain collaborators and
// optional stores, and get back an Application whose Start and Stop manage
// every registered service.
package app
