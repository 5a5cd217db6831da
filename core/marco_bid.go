package core

import "encoding/binary"

// Bid places an offer of amount against a running auction.
type Bid struct {
	AuctionID int64
	BuyerID   string
	SellerID  string
	Amount    float64
}

// NewBid builds a Bid against the given auction.
func NewBid(auctionID int64, buyerID, sellerID string, amount float64) Bid {
	return Bid{AuctionID: auctionID, BuyerID: buyerID, SellerID: sellerID, Amount: amount}
}

func (b Bid) marcoKind() string { return "Bid" }

// hashPreimage follows the original's field order: auction_id, buyer_id,
// seller_id, amount.
func (b Bid) hashPreimage() []byte {
	var idBuf [8]byte
	binary.BigEndian.PutUint64(idBuf[:], uint64(b.AuctionID))
	buf := append([]byte{}, idBuf[:]...)
	buf = append(buf, b.BuyerID...)
	buf = append(buf, b.SellerID...)
	buf = append(buf, floatBytes(b.Amount)...)
	return buf
}
