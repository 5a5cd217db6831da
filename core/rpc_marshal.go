package core

import "fmt"

// WireMarco is Marco's JSON-serializable form: MarcoData is an interface,
// so the wire form carries an explicit Kind discriminator plus one
// populated variant field.
type WireMarco struct {
	Hash        string       `json:"hash"`
	Signature   string       `json:"signature"`
	Kind        string       `json:"kind"`
	Transaction *Transaction `json:"transaction,omitempty"`
	OpenAuction *OpenAuction `json:"open_auction,omitempty"`
	Bid         *Bid         `json:"bid,omitempty"`
	Winner      *Winner      `json:"winner,omitempty"`
}

// ToWireMarco converts an in-memory Marco to its wire form.
func ToWireMarco(m *Marco) WireMarco {
	w := WireMarco{Hash: m.Hash, Signature: m.Signature, Kind: m.Kind()}
	switch d := m.Data.(type) {
	case Transaction:
		w.Transaction = &d
	case OpenAuction:
		w.OpenAuction = &d
	case Bid:
		w.Bid = &d
	case Winner:
		w.Winner = &d
	}
	return w
}

// Marco converts a wire marco back into its in-memory form.
func (w WireMarco) Marco() (*Marco, error) {
	var data MarcoData
	switch w.Kind {
	case "Transaction":
		if w.Transaction == nil {
			return nil, newProtocolViolation("marco kind Transaction missing payload")
		}
		data = *w.Transaction
	case "OpenAuction":
		if w.OpenAuction == nil {
			return nil, newProtocolViolation("marco kind OpenAuction missing payload")
		}
		data = *w.OpenAuction
	case "Bid":
		if w.Bid == nil {
			return nil, newProtocolViolation("marco kind Bid missing payload")
		}
		data = *w.Bid
	case "Winner":
		if w.Winner == nil {
			return nil, newProtocolViolation("marco kind Winner missing payload")
		}
		data = *w.Winner
	default:
		return nil, newProtocolViolation(fmt.Sprintf("unrecognized marco kind %q", w.Kind))
	}
	return &Marco{Hash: w.Hash, Signature: w.Signature, Data: data}, nil
}

// WireBlock is Block's JSON-serializable form.
type WireBlock struct {
	Index         uint64      `json:"index"`
	Timestamp     int64       `json:"timestamp"`
	PrevHash      string      `json:"prev_hash"`
	Transactions  []WireMarco `json:"transactions"`
	Nonce         uint64      `json:"nonce"`
	Difficulty    uint        `json:"difficulty"`
	MinerID       string      `json:"miner_id"`
	MerkleRoot    string      `json:"merkle_root"`
	Confirmations uint32      `json:"confirmations"`
	Hash          string      `json:"hash"`
}

// ToWireBlock converts an in-memory Block to its wire form.
func ToWireBlock(b *Block) WireBlock {
	wb := WireBlock{
		Index:         b.Index,
		Timestamp:     b.Timestamp,
		PrevHash:      b.PrevHash,
		Nonce:         b.Nonce,
		Difficulty:    b.Difficulty,
		MinerID:       b.MinerID,
		MerkleRoot:    b.MerkleRoot,
		Confirmations: b.Confirmations,
		Hash:          b.Hash,
	}
	wb.Transactions = make([]WireMarco, len(b.Transactions))
	for i, m := range b.Transactions {
		wb.Transactions[i] = ToWireMarco(m)
	}
	return wb
}

// Block converts a wire block back into its in-memory form.
func (w WireBlock) Block() (*Block, error) {
	b := &Block{
		Index:         w.Index,
		Timestamp:     w.Timestamp,
		PrevHash:      w.PrevHash,
		Nonce:         w.Nonce,
		Difficulty:    w.Difficulty,
		MinerID:       w.MinerID,
		MerkleRoot:    w.MerkleRoot,
		Confirmations: w.Confirmations,
		Hash:          w.Hash,
	}
	b.Transactions = make([]*Marco, len(w.Transactions))
	for i, wm := range w.Transactions {
		m, err := wm.Marco()
		if err != nil {
			return nil, err
		}
		b.Transactions[i] = m
	}
	return b, nil
}
