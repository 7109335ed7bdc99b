// Package application holds the rendezvous use case: Slot, the per-path
// state machine that decides when a sender and its receivers are ready to
// transfer and hands them to a domain.Pump when they are.
//
// It depends only on the domain package, never on net/http or on a concrete
// Pump implementation — those are supplied by infra and wired together by
// the top-level rendezvous package.
package application
