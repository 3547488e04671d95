// Package bitfinex implements the venue transport: the authenticated
// websocket session, the wire codec for the v2 channel protocol, and the
// outbound command encoding.
package bitfinex

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/venuesync/venuesync/internal/schema"
)

// Order frame field positions in the v2 protocol.
const (
	orderFieldID        = 0
	orderFieldCID       = 2
	orderFieldSymbol    = 3
	orderFieldMTSUpdate = 5
	orderFieldAmount    = 6
	orderFieldOrig      = 7
	orderFieldType      = 8
	orderFieldFlags     = 12
	orderFieldStatus    = 13
	orderFieldPrice     = 16
	orderFieldCount     = 17
)

// Wallet frame field positions.
const (
	walletFieldType      = 0
	walletFieldCurrency  = 1
	walletFieldBalance   = 2
	walletFieldAvailable = 4
)

// Ticker frame field positions.
const (
	tickerFieldBid   = 0
	tickerFieldAsk   = 2
	tickerFieldLast  = 6
	tickerFieldCount = 10
)

// Notification reports the venue's acknowledgement of an outbound command,
// carried on the account channel as an "n" frame.
type Notification struct {
	Kind    string
	Status  string
	Text    string
	CID     int64
	OrderID int64
	Order   schema.RawOrder
}

// Succeeded reports whether the venue accepted the command.
func (n Notification) Succeeded() bool {
	return n.Status == "SUCCESS"
}

// controlFrame is the object-shaped event envelope ({"event":...}).
type controlFrame struct {
	Event   string `json:"event"`
	Channel string `json:"channel"`
	ChanID  int64  `json:"chanId"`
	Symbol  string `json:"symbol"`
	Status  string `json:"status"`
	Code    int64  `json:"code"`
	Msg     string `json:"msg"`
	Version int    `json:"version"`
}

// Codec decodes inbound frames into events. It is stateful: ticker channel
// ids are learned from "subscribed" confirmations and looked up on every
// data frame.
type Codec struct {
	mu       sync.Mutex
	channels map[int64]string
}

// NewCodec constructs a codec with no channel mappings.
func NewCodec() *Codec {
	c := new(Codec)
	c.channels = make(map[int64]string)
	return c
}

// Reset drops all channel mappings. Called on reconnect since the venue
// assigns fresh channel ids per session.
func (c *Codec) Reset() {
	c.mu.Lock()
	c.channels = make(map[int64]string)
	c.mu.Unlock()
}

// Decode parses one inbound frame. Frames that carry no event for the core
// (heartbeats, subscription confirmations, info) yield a nil event. Command
// acknowledgements come back through the notification return instead.
func (c *Codec) Decode(data []byte, receivedAt time.Time) (*schema.Event, *Notification, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil, nil
	}
	if trimmed[0] == '{' {
		evt, err := c.decodeControl(trimmed, receivedAt)
		return evt, nil, err
	}
	if trimmed[0] == '[' {
		return c.decodeChannel(trimmed, receivedAt)
	}
	return nil, nil, fmt.Errorf("unrecognized frame: %.40s", trimmed)
}

func (c *Codec) decodeControl(data []byte, receivedAt time.Time) (*schema.Event, error) {
	var frame controlFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, fmt.Errorf("decode control frame: %w", err)
	}
	switch frame.Event {
	case "auth":
		if frame.Status == "OK" {
			return &schema.Event{Type: schema.EventTypeAuthenticated, ReceivedAt: receivedAt}, nil
		}
		return &schema.Event{
			Type:       schema.EventTypeError,
			Err:        fmt.Errorf("authentication rejected: code=%d %s", frame.Code, frame.Msg),
			ReceivedAt: receivedAt,
		}, nil
	case "subscribed":
		if frame.Channel == "ticker" {
			c.mu.Lock()
			c.channels[frame.ChanID] = schema.NormalizeSymbol(frame.Symbol)
			c.mu.Unlock()
		}
		return nil, nil
	case "error":
		return &schema.Event{
			Type:       schema.EventTypeError,
			Err:        fmt.Errorf("venue error: code=%d %s", frame.Code, frame.Msg),
			ReceivedAt: receivedAt,
		}, nil
	case "info":
		return nil, nil
	default:
		return nil, nil
	}
}

func (c *Codec) decodeChannel(data []byte, receivedAt time.Time) (*schema.Event, *Notification, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var frame []any
	if err := dec.Decode(&frame); err != nil {
		return nil, nil, fmt.Errorf("decode channel frame: %w", err)
	}
	if len(frame) < 2 {
		return nil, nil, nil
	}

	chanID, ok := asInt64(frame[0])
	if !ok {
		return nil, nil, nil
	}
	if chanID != 0 {
		return c.decodeTicker(chanID, frame[1], receivedAt), nil, nil
	}

	tag, _ := frame[1].(string)
	if tag == "hb" {
		return nil, nil, nil
	}
	if len(frame) < 3 {
		return nil, nil, nil
	}
	payload := frame[2]

	switch tag {
	case "ws":
		return walletEvent(schema.EventTypeWalletSnapshot, payload, receivedAt), nil, nil
	case "wu":
		entry, ok := walletEntry(payload)
		if !ok {
			return nil, nil, nil
		}
		return &schema.Event{
			Type:          schema.EventTypeWalletUpdate,
			WalletEntries: []schema.RawWalletEntry{entry},
			ReceivedAt:    receivedAt,
		}, nil, nil
	case "os":
		return orderBatchEvent(schema.EventTypeOrderSnapshot, payload, receivedAt), nil, nil
	case "on":
		return orderEvent(schema.EventTypeOrderNew, payload, receivedAt), nil, nil
	case "ou":
		return orderEvent(schema.EventTypeOrderUpdate, payload, receivedAt), nil, nil
	case "oc":
		return orderEvent(schema.EventTypeOrderClose, payload, receivedAt), nil, nil
	case "n":
		return nil, decodeNotification(payload), nil
	default:
		return nil, nil, nil
	}
}

func (c *Codec) decodeTicker(chanID int64, payload any, receivedAt time.Time) *schema.Event {
	c.mu.Lock()
	symbol, known := c.channels[chanID]
	c.mu.Unlock()
	if !known {
		return nil
	}
	fields, ok := payload.([]any)
	if !ok || len(fields) < tickerFieldCount {
		return nil
	}
	return &schema.Event{
		Type: schema.EventTypeTicker,
		Ticker: &schema.RawTicker{
			Symbol:    symbol,
			Bid:       asText(fields[tickerFieldBid]),
			Ask:       asText(fields[tickerFieldAsk]),
			LastPrice: asText(fields[tickerFieldLast]),
		},
		ReceivedAt: receivedAt,
	}
}

func walletEvent(kind schema.EventType, payload any, receivedAt time.Time) *schema.Event {
	rows, ok := payload.([]any)
	if !ok {
		return nil
	}
	entries := make([]schema.RawWalletEntry, 0, len(rows))
	for _, row := range rows {
		if entry, valid := walletEntry(row); valid {
			entries = append(entries, entry)
		}
	}
	return &schema.Event{Type: kind, WalletEntries: entries, ReceivedAt: receivedAt}
}

func walletEntry(payload any) (schema.RawWalletEntry, bool) {
	fields, ok := payload.([]any)
	if !ok || len(fields) <= walletFieldAvailable {
		return schema.RawWalletEntry{}, false
	}
	entry := schema.RawWalletEntry{
		Type:     asText(fields[walletFieldType]),
		Currency: asText(fields[walletFieldCurrency]),
		Balance:  asText(fields[walletFieldBalance]),
	}
	if fields[walletFieldAvailable] != nil {
		available := asText(fields[walletFieldAvailable])
		entry.BalanceAvailable = &available
	}
	return entry, true
}

func orderBatchEvent(kind schema.EventType, payload any, receivedAt time.Time) *schema.Event {
	rows, ok := payload.([]any)
	if !ok {
		return nil
	}
	orders := make([]schema.RawOrder, 0, len(rows))
	for _, row := range rows {
		if raw, valid := orderFields(row); valid {
			orders = append(orders, raw)
		}
	}
	return &schema.Event{Type: kind, Orders: orders, ReceivedAt: receivedAt}
}

func orderEvent(kind schema.EventType, payload any, receivedAt time.Time) *schema.Event {
	raw, ok := orderFields(payload)
	if !ok {
		return nil
	}
	return &schema.Event{Type: kind, Orders: []schema.RawOrder{raw}, ReceivedAt: receivedAt}
}

func orderFields(payload any) (schema.RawOrder, bool) {
	fields, ok := payload.([]any)
	if !ok || len(fields) < orderFieldCount {
		return schema.RawOrder{}, false
	}
	id, ok := asInt64(fields[orderFieldID])
	if !ok {
		return schema.RawOrder{}, false
	}
	raw := schema.RawOrder{
		ID:         id,
		Symbol:     asText(fields[orderFieldSymbol]),
		Amount:     asText(fields[orderFieldAmount]),
		AmountOrig: asText(fields[orderFieldOrig]),
		Type:       asText(fields[orderFieldType]),
		Price:      asText(fields[orderFieldPrice]),
	}
	if flags, ok := asInt64(fields[orderFieldFlags]); ok {
		raw.Flags = flags
	}
	if mts, ok := asInt64(fields[orderFieldMTSUpdate]); ok {
		raw.MTSUpdate = mts
	}
	if status := asText(fields[orderFieldStatus]); status != "" {
		raw.Status = &status
	}
	return raw, true
}

// decodeNotification parses an "n" frame:
// [MTS, TYPE, MESSAGE_ID, null, NOTIFY_INFO, CODE, STATUS, TEXT].
func decodeNotification(payload any) *Notification {
	fields, ok := payload.([]any)
	if !ok || len(fields) < 8 {
		return nil
	}
	note := &Notification{
		Kind:   asText(fields[1]),
		Status: asText(fields[6]),
		Text:   asText(fields[7]),
	}
	if raw, valid := orderFields(fields[4]); valid {
		note.Order = raw
		note.OrderID = raw.ID
		if cid, ok := asInt64(orderInfoField(fields[4], orderFieldCID)); ok {
			note.CID = cid
		}
	}
	return note
}

func orderInfoField(payload any, index int) any {
	fields, ok := payload.([]any)
	if !ok || len(fields) <= index {
		return nil
	}
	return fields[index]
}

func asText(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	default:
		return ""
	}
}

func asInt64(v any) (int64, bool) {
	num, ok := v.(json.Number)
	if !ok {
		return 0, false
	}
	parsed, err := num.Int64()
	if err != nil {
		return 0, false
	}
	return parsed, true
}
