// Package rendezvous wires the rendezvous engine (domain, application,
// infra) to net/http. It is the transport adapter layer: Router classifies
// inbound requests, Reserved answers the two informational endpoints, and
// the httpSenderHandle/httpReceiverHandle types implement the domain
// handle interfaces directly on top of http.ResponseWriter/*http.Request.
//
// This is the only layer where net/http appears in the dependency graph;
// domain, application and infra all stay free of it.
package rendezvous
