// Package events carries trade request notifications from the negotiation
// engine to whoever listens, such as the WebSocket stream. Services emit
// events without knowing which handlers receive them.
package events
