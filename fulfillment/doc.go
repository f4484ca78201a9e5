// Package fulfillment wires the webhook pipeline end to end: verify the
// provider signature, claim the delivery on the idempotency ledger, run the
// carrier calls for checkout completions and acknowledge every authenticated
// delivery. It also carries the background surfaces around that pipeline,
// the reconciliation sweep for stuck records, the notification outbox
// dispatcher and the ledger purge.
package fulfillment
