// Package domain defines contracts and types for the rendezvous engine: the
// path-keyed state machine that matches one sender with N receivers.
//
// This package has no dependency on net/http nor on any concrete storage or
// streaming implementation. The intention is to permit pure unit tests of the
// state machine in application and to decouple business rules from transport
// details, which live in infra and in the top-level rendezvous package.
package domain
