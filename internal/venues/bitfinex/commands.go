package bitfinex

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/venuesync/venuesync/internal/schema"
)

// FlagReduceOnly marks an order that may only shrink an open position.
const FlagReduceOnly int64 = 1024

// encodeAuth builds the authentication handshake frame. The signature is the
// hex HMAC-SHA384 of "AUTH"+nonce under the API secret.
func encodeAuth(apiKey, apiSecret string, nonce int64) ([]byte, error) {
	payload := "AUTH" + strconv.FormatInt(nonce, 10)
	mac := hmac.New(sha512.New384, []byte(apiSecret))
	mac.Write([]byte(payload))
	sig := hex.EncodeToString(mac.Sum(nil))

	frame := map[string]any{
		"event":       "auth",
		"apiKey":      apiKey,
		"authSig":     sig,
		"authNonce":   nonce,
		"authPayload": payload,
	}
	data, err := json.Marshal(frame)
	if err != nil {
		return nil, fmt.Errorf("marshal auth frame: %w", err)
	}
	return data, nil
}

// encodeSubscribeTicker builds a ticker channel subscription frame.
func encodeSubscribeTicker(symbol string) ([]byte, error) {
	frame := map[string]any{
		"event":   "subscribe",
		"channel": "ticker",
		"symbol":  symbol,
	}
	data, err := json.Marshal(frame)
	if err != nil {
		return nil, fmt.Errorf("marshal subscribe frame: %w", err)
	}
	return data, nil
}

// encodeNewOrder builds an order submission frame on the account channel.
func encodeNewOrder(spec schema.OrderSpec) ([]byte, error) {
	order := map[string]any{
		"cid":    spec.ClientID,
		"type":   spec.Type,
		"symbol": spec.Symbol,
		"amount": spec.Amount,
	}
	if spec.Price != "" {
		order["price"] = spec.Price
	}
	if spec.ReduceOnly {
		order["flags"] = FlagReduceOnly
	}
	data, err := json.Marshal([]any{0, "on", nil, order})
	if err != nil {
		return nil, fmt.Errorf("marshal order frame: %w", err)
	}
	return data, nil
}

// encodeCancelOrder builds a cancel frame for the given venue order id.
func encodeCancelOrder(id int64) ([]byte, error) {
	data, err := json.Marshal([]any{0, "oc", nil, map[string]any{"id": id}})
	if err != nil {
		return nil, fmt.Errorf("marshal cancel frame: %w", err)
	}
	return data, nil
}

// encodeCalculation builds a balance recalculation request for the given
// calculation keys.
func encodeCalculation(keys []string) ([]byte, error) {
	wrapped := make([][]string, 0, len(keys))
	for _, key := range keys {
		wrapped = append(wrapped, []string{key})
	}
	data, err := json.Marshal([]any{0, "calc", nil, wrapped})
	if err != nil {
		return nil, fmt.Errorf("marshal calc frame: %w", err)
	}
	return data, nil
}
