// Package testutil contains helpers used across tests to reduce boilerplate
// when faking model backends: a scripted invoker whose per-model outcome,
// latency, release gate and panics are controlled by the test. These helpers
// are not intended for production usage.
package testutil
