// Package webhooks receives payment provider event deliveries: it verifies
// the timestamped HMAC signature against the raw body, decodes the event
// envelope, claims the delivery in the idempotency ledger, and hands
// checkout completions to the fulfillment handler. Once a delivery is
// authenticated the processor always acknowledges it, whatever happens
// downstream, because a non-success response makes the provider redeliver
// and every redelivery risks a duplicate label purchase.
package webhooks
