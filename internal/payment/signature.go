package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	apperrors "storefront/internal/errors"
)

// SignatureVerifier checks the signature the gateway hands the client after a
// successful payment: hex(HMAC-SHA256(secret, "orderRef|paymentRef")).
type SignatureVerifier struct {
	secret []byte
}

func NewSignatureVerifier(secret string) *SignatureVerifier {
	return &SignatureVerifier{secret: []byte(secret)}
}

func (v *SignatureVerifier) Configured() bool {
	return v != nil && len(v.secret) > 0
}

// Sign produces the signature the gateway would issue for the pair.
func Sign(secret, orderRef, paymentRef string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(orderRef + "|" + paymentRef))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify returns a SignatureMismatchError for any mismatch. The error does not
// say which input was wrong.
func (v *SignatureVerifier) Verify(orderRef, paymentRef, signature string) error {
	if !v.Configured() {
		return apperrors.NewConfigurationError("payment gateway secret missing")
	}

	expected := Sign(string(v.secret), orderRef, paymentRef)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return apperrors.NewSignatureMismatchError()
	}
	return nil
}
