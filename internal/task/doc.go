// Package task runs background work outside the request path: periodic
// jobs such as the expired-session sweep, and asynchronous delivery of
// trade events to slow handlers.
package task
