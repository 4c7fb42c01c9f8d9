package razorpay

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	razorpaysdk "github.com/razorpay/razorpay-go"

	"github.com/vikramrao-dev/tiffinbox-backend/pkg/config"
	pkgerrors "github.com/vikramrao-dev/tiffinbox-backend/pkg/errors"
	"github.com/vikramrao-dev/tiffinbox-backend/pkg/logger"
)

const (
	testEnv = "test"
	liveEnv = "live"
)

var (
	errKeyIDRequired     = errors.New("razorpay key id is required")
	errKeySecretRequired = errors.New("razorpay key secret is required")
	errInvalidEnv        = fmt.Errorf("razorpay environment must be %q or %q", testEnv, liveEnv)
)

// Order is the gateway's representation of a pending charge.
type Order struct {
	ID       string
	Amount   int64
	Currency string
	Receipt  string
}

// Client wraps the Razorpay SDK with centralized credentials, logging, and
// error mapping. Signature verification happens locally against the key
// secret and is the only trusted source of payment truth.
type Client struct {
	sdk         *razorpaysdk.Client
	keyID       string
	keySecret   string
	environment string
}

// NewClient initializes the Razorpay wrapper and validates the credentials.
func NewClient(ctx context.Context, cfg config.RazorpayConfig, logg *logger.Logger) (*Client, error) {
	env, err := normalizeEnv(cfg.Environment())
	if err != nil {
		return nil, err
	}

	keyID := strings.TrimSpace(cfg.KeyID)
	if keyID == "" {
		return nil, errKeyIDRequired
	}
	keySecret := strings.TrimSpace(cfg.KeySecret)
	if keySecret == "" {
		return nil, errKeySecretRequired
	}
	if err := validateKeyID(env, keyID); err != nil {
		return nil, err
	}

	sdk := razorpaysdk.NewClient(keyID, keySecret)
	if cfg.CallTimeout > 0 {
		sdk.SetTimeout(int16(cfg.CallTimeout.Seconds()))
	}

	if logg != nil {
		logg.Info(ctx, fmt.Sprintf("razorpay client initialized (%s)", env))
	}

	return &Client{
		sdk:         sdk,
		keyID:       keyID,
		keySecret:   keySecret,
		environment: env,
	}, nil
}

// KeyID returns the public key id clients need to open the checkout widget.
func (c *Client) KeyID() string {
	if c == nil {
		return ""
	}
	return c.keyID
}

// Environment reports the normalized Razorpay environment in use.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// CreateOrder registers a pending charge with the gateway. The receipt ties
// the order back to the subscription it pays for.
func (c *Client) CreateOrder(ctx context.Context, amountPaise int64, currency, receipt string) (*Order, error) {
	if c == nil || c.sdk == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "razorpay client unavailable")
	}
	if amountPaise <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order amount must be positive")
	}
	if strings.TrimSpace(receipt) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order receipt is required")
	}

	payload := map[string]interface{}{
		"amount":   amountPaise,
		"currency": currency,
		"receipt":  receipt,
	}

	body, err := c.sdk.Order.Create(payload, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create razorpay order")
	}

	orderID, _ := body["id"].(string)
	if orderID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "razorpay order response missing id")
	}

	order := &Order{
		ID:       orderID,
		Amount:   amountPaise,
		Currency: currency,
		Receipt:  receipt,
	}
	if echoed, ok := body["amount"].(float64); ok {
		order.Amount = int64(echoed)
	}
	if echoed, ok := body["currency"].(string); ok && echoed != "" {
		order.Currency = echoed
	}
	return order, nil
}

// VerifySignature recomputes the HMAC-SHA256 of "orderID|paymentID" with the
// key secret and compares it to the supplied signature in constant time.
func (c *Client) VerifySignature(orderID, paymentID, signature string) bool {
	if c == nil {
		return false
	}
	return VerifySignature(c.keySecret, orderID, paymentID, signature)
}

// VerifySignature checks a Razorpay payment signature against the shared secret.
func VerifySignature(secret, orderID, paymentID, signature string) bool {
	if secret == "" || orderID == "" || paymentID == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func normalizeEnv(raw string) (string, error) {
	env := strings.TrimSpace(strings.ToLower(raw))
	if env == "" {
		env = testEnv
	}
	switch env {
	case testEnv, liveEnv:
		return env, nil
	default:
		return "", errInvalidEnv
	}
}

func validateKeyID(env, key string) error {
	switch env {
	case testEnv:
		if strings.HasPrefix(key, "rzp_test_") {
			return nil
		}
		return fmt.Errorf("razorpay environment %q requires a test key id (rzp_test_)", testEnv)
	case liveEnv:
		if strings.HasPrefix(key, "rzp_live_") {
			return nil
		}
		return fmt.Errorf("razorpay environment %q requires a live key id (rzp_live_)", liveEnv)
	default:
		return errInvalidEnv
	}
}
