// Package core defines the domain model and shared contracts of the
// fulfillment service: payment sessions, shipment requests, rate quotes,
// label transactions, the delivery ledger that makes webhook processing
// idempotent, and the configuration/observability plumbing the other
// packages build on.
package core
