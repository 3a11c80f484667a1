// Package webhooks delivers lifecycle audit events to HTTP endpoints.
//
// A Notifier is an audit.Logger. Log never blocks: events are queued and
// Run posts them, one JSON body per event, to every endpoint subscribed to
// the event type. Failed deliveries are retried with exponential backoff.
//
// # Headers
//
//	X-Conduit-Event       event type, e.g. plugin.load
//	X-Conduit-Event-ID    audit event id
//	X-Conduit-Signature   sha256=<hex HMAC of the body>, when a secret is set
//
// Verify signature (receiver side):
//
//	sig := r.Header.Get("X-Conduit-Signature")
//	if !webhooks.VerifySignature(body, sig, secret) {
//		return errors.New("invalid signature")
//	}
//
// # Retry Policy
//
// Exponential backoff: 1s, 2s, 4s, 8s
// Max attempts: 5
// Timeout per attempt: 10s
package webhooks
