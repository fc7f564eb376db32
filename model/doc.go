// Package model defines the provider‑agnostic Single-Model Invoker contract
// and the helpers shared by concrete provider adapters.
//
// Core goals:
//   - Collapse every failure mode (transport, status, decode, empty answer)
//     into the single core.Failure outcome
//   - Keep diagnostic detail on the observability side channel (logging,
//     metrics) and out of returned values
//   - Facilitate lightweight faking for tests (InvokerFunc)
//
// Providers (e.g. OpenAI-compatible, Anthropic) implement the Invoker interface
// from this package so the fan-out layer remains decoupled from vendor SDKs.
package model
