// Package event defines the real-time publication surface of the
// orchestration engine. The engine publishes phase transitions, partial
// fan-out results, round completions, and session terminations to a
// synchronous pub-sub Bus; the transport that pushes those updates onward
// (WebSocket, polling, logging) is entirely the subscriber's responsibility.
//
// Handlers are called synchronously in registration order. A panicking
// handler is recovered and logged so it cannot block delivery to other
// subscribers.
package event
