// Package admission bounds the number of rendezvous requests the server
// will hold open at once. A half-open rendezvous can wait indefinitely, so
// without a ceiling an unbounded number of slow or abandoned peers could pin
// an unbounded number of goroutines and connections.
//
// The channel-as-semaphore Acquire/release shape caps concurrent rendezvous
// handlers rather than upstream proxy requests. It deliberately carries no
// token-bucket or per-key accounting — a process-wide concurrency ceiling is
// a resource-protection concern, not a per-client entitlement.
package admission
