package net

import (
	"encoding/binary"
	"math"
	"testing"

	"fenrir/internal/book"
	. "fenrir/internal/common"

	"github.com/stretchr/testify/assert"
)

func encodeNewOrder(assetType AssetType, orderType OrderType, limitPrice, qty, stopPrice, trailAmount, funds float64, side Side, postOnly, reduceOnly bool, stp book.STPMode, username string) []byte {
	body := make([]byte, NewOrderMessageHeaderLen+len(username))
	binary.BigEndian.PutUint16(body[0:2], uint16(assetType))
	binary.BigEndian.PutUint16(body[2:4], uint16(orderType))
	copy(body[4:8], "AAPL")
	binary.BigEndian.PutUint64(body[8:16], math.Float64bits(limitPrice))
	binary.BigEndian.PutUint64(body[16:24], math.Float64bits(qty))
	binary.BigEndian.PutUint64(body[24:32], math.Float64bits(stopPrice))
	binary.BigEndian.PutUint64(body[32:40], math.Float64bits(trailAmount))
	binary.BigEndian.PutUint64(body[40:48], math.Float64bits(funds))
	body[48] = byte(side)
	if postOnly {
		body[49] = 1
	}
	if reduceOnly {
		body[50] = 1
	}
	body[51] = byte(stp)
	body[52] = uint8(len(username))
	copy(body[53:], username)
	return body
}

func TestParseNewOrder_RoundTrip(t *testing.T) {
	body := encodeNewOrder(Equities, LimitOrder, 101.5, 12, 0, 0, 0, Buy, true, false, book.STPCancelBoth, "alice")

	m, err := parseNewOrder(body)
	assert.NoError(t, err)
	assert.Equal(t, Equities, m.AssetType)
	assert.Equal(t, LimitOrder, m.OrderType)
	assert.Equal(t, "AAPL", m.Ticker)
	assert.Equal(t, 101.5, m.LimitPrice)
	assert.Equal(t, 12.0, m.Quantity)
	assert.True(t, m.PostOnly)
	assert.False(t, m.ReduceOnly)
	assert.Equal(t, book.STPCancelBoth, m.STP)
	assert.Equal(t, "alice", m.Username)

	order, err := m.Order()
	assert.NoError(t, err)
	assert.Equal(t, "alice", order.Owner)
	assert.Equal(t, DeriveUserID("alice"), order.OwnerID)
	assert.NotEmpty(t, order.UUID)
}

func TestParseNewOrder_TooShortErrors(t *testing.T) {
	_, err := parseNewOrder(make([]byte, 10))
	assert.ErrorIs(t, err, ErrMessageTooShort)
}

func TestParseNewOrder_UsernameTruncatedErrors(t *testing.T) {
	body := encodeNewOrder(Equities, LimitOrder, 100, 1, 0, 0, 0, Buy, false, false, book.STPNone, "alice")
	_, err := parseNewOrder(body[:len(body)-2])
	assert.ErrorIs(t, err, ErrMessageTooShort)
}

func TestParseMessage_Dispatches(t *testing.T) {
	buf := make([]byte, 2)
	binary.BigEndian.PutUint16(buf, uint16(LogBook))
	msg, err := parseMessage(buf)
	assert.NoError(t, err)
	assert.Equal(t, LogBook, msg.GetType())
}

func TestReportSerialize_RoundTrip(t *testing.T) {
	r := Report{
		MessageType:     ExecutionReport,
		AssetType:       Equities,
		Side:            Buy,
		Timestamp:       123,
		Quantity:        4.5,
		Price:           101.25,
		CounterpartyLen: uint16(len("bob")),
		Ticker:          "AAPL",
		UUID:            "0123456789abcdef",
		Counterparty:    "bob",
	}
	buf, err := r.Serialize()
	assert.NoError(t, err)
	assert.Equal(t, byte(ExecutionReport), buf[0])

	qty := math.Float64frombits(binary.BigEndian.Uint64(buf[11:19]))
	assert.Equal(t, 4.5, qty)
}
