// Package events provides types and interfaces for an event-driven architecture.
//
// The ranking engine reports rebalances synchronously; the service turns each
// one into an Event and hands it to an EventEmitter. Handlers registered on
// the emitter (for example the rebalance exporter in package worker) decide
// what to do with it, so the request path never knows who consumes events.
//
// The primary components are:
//   - Event: a typed, JSON-encoded payload with an id and timestamp
//   - EventHandler: interface for components that can handle events
//   - EventEmitter: interface for components that can emit events
package events
