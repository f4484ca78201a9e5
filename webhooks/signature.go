package webhooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Elanstech/barberworld-fulfillment/core"
)

// SignatureHeader is the payment provider's signature header. Its value looks
// like "t=1692000000,v1=5257a86...", where v1 is HMAC-SHA256 over
// "<t>.<raw body>" keyed with the endpoint's signing secret. Several v1
// entries may appear during secret rotation; any one matching is sufficient.
const SignatureHeader = "Stripe-Signature"

const defaultSignatureTolerance = 5 * time.Minute

type Verifier interface {
	Verify(ctx context.Context, req core.InboundRequest) error
}

// TimestampHMACVerifier checks the provider's timestamped HMAC scheme.
// Verification binds to the exact request bytes: re-serializing the payload
// before verifying guarantees a mismatch.
type TimestampHMACVerifier struct {
	Header    string
	Secret    string
	Tolerance time.Duration
	Now       func() time.Time
}

func NewTimestampHMACVerifier(secret string, tolerance time.Duration) TimestampHMACVerifier {
	return TimestampHMACVerifier{
		Header:    SignatureHeader,
		Secret:    strings.TrimSpace(secret),
		Tolerance: tolerance,
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func (v TimestampHMACVerifier) Verify(_ context.Context, req core.InboundRequest) error {
	secret := strings.TrimSpace(v.Secret)
	if secret == "" {
		return fmt.Errorf("webhooks: signature secret is required")
	}
	headerName := strings.TrimSpace(v.Header)
	if headerName == "" {
		headerName = SignatureHeader
	}
	header := strings.TrimSpace(headerValue(req.Headers, headerName))
	if header == "" {
		return fmt.Errorf("webhooks: %s signature header is required", headerName)
	}

	timestamp, signatures, err := parseSignatureHeader(header)
	if err != nil {
		return err
	}

	tolerance := v.Tolerance
	if tolerance <= 0 {
		tolerance = defaultSignatureTolerance
	}
	now := time.Now().UTC()
	if v.Now != nil {
		now = v.Now().UTC()
	}
	delta := now.Sub(time.Unix(timestamp, 0).UTC())
	if delta < 0 {
		delta = -delta
	}
	if delta > tolerance {
		return fmt.Errorf("webhooks: signature timestamp outside tolerance window")
	}

	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = fmt.Fprintf(mac, "%d.", timestamp)
	_, _ = mac.Write(req.Body)
	expected := mac.Sum(nil)

	for _, signature := range signatures {
		decoded, decodeErr := hex.DecodeString(signature)
		if decodeErr != nil {
			continue
		}
		if subtle.ConstantTimeCompare(decoded, expected) == 1 {
			return nil
		}
	}
	return fmt.Errorf("webhooks: signature verification failed")
}

// parseSignatureHeader splits "t=<unix>,v1=<hex>[,v1=<hex>...]" into its
// timestamp and candidate signatures. Unknown schemes are skipped.
func parseSignatureHeader(header string) (int64, []string, error) {
	var timestamp int64 = -1
	var signatures []string
	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch strings.TrimSpace(key) {
		case "t":
			parsed, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
			if err != nil {
				return 0, nil, fmt.Errorf("webhooks: parse signature timestamp: %w", err)
			}
			timestamp = parsed
		case "v1":
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				signatures = append(signatures, trimmed)
			}
		}
	}
	if timestamp < 0 {
		return 0, nil, fmt.Errorf("webhooks: signature timestamp is required")
	}
	if len(signatures) == 0 {
		return 0, nil, fmt.Errorf("webhooks: signature value is required")
	}
	return timestamp, signatures, nil
}

// SignPayload produces a header value the verifier accepts. Exposed for
// tests and local tooling that replays events against a dev endpoint.
func SignPayload(secret string, timestamp time.Time, body []byte) string {
	mac := hmac.New(sha256.New, []byte(strings.TrimSpace(secret)))
	_, _ = fmt.Fprintf(mac, "%d.", timestamp.Unix())
	_, _ = mac.Write(body)
	return fmt.Sprintf("t=%d,v1=%s", timestamp.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func headerValue(headers map[string]string, key string) string {
	if len(headers) == 0 {
		return ""
	}
	for existing, value := range headers {
		if strings.EqualFold(strings.TrimSpace(existing), strings.TrimSpace(key)) {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
