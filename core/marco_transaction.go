package core

import (
	"encoding/binary"
	"math"
)

// Transaction moves value from one account to another, charging the
// difference between amount in and amount out as the miner's fee.
type Transaction struct {
	From      string
	To        string
	AmountIn  float64
	AmountOut float64
	MinerFee  float64
}

// NewTransaction builds a Transaction, deriving MinerFee as AmountIn minus
// AmountOut.
func NewTransaction(amountIn float64, from string, amountOut float64, to string) Transaction {
	return Transaction{
		From:      from,
		To:        to,
		AmountIn:  amountIn,
		AmountOut: amountOut,
		MinerFee:  amountIn - amountOut,
	}
}

func (t Transaction) marcoKind() string { return "Transaction" }

// hashPreimage follows the original's field order: from, to, amount_in,
// amount_out, miner_fee.
func (t Transaction) hashPreimage() []byte {
	buf := []byte(t.From)
	buf = append(buf, t.To...)
	buf = append(buf, floatBytes(t.AmountIn)...)
	buf = append(buf, floatBytes(t.AmountOut)...)
	buf = append(buf, floatBytes(t.MinerFee)...)
	return buf
}

// floatBytes renders a float64 as 8 little-endian bytes for deterministic
// hashing, the Go analogue of the original's to_le_bytes() calls.
func floatBytes(f float64) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(f))
	return buf[:]
}
