// Package infra contains concrete implementations of the contracts used by
// the rendezvous engine: Registry, a process-wide path-to-Slot map guarded
// by a single mutex, and Pump, the streaming fan-out engine that implements
// domain.Pump.
package infra
