package core

import "encoding/binary"

// OpenAuction announces that a seller is listing an item starting at amount.
type OpenAuction struct {
	AuctionID int64
	SellerID  string
	Amount    float64
}

// NewOpenAuction builds an OpenAuction record.
func NewOpenAuction(auctionID int64, sellerID string, amount float64) OpenAuction {
	return OpenAuction{AuctionID: auctionID, SellerID: sellerID, Amount: amount}
}

func (a OpenAuction) marcoKind() string { return "OpenAuction" }

// hashPreimage follows the original's field order: auction_id (big-endian),
// seller_id, amount (little-endian).
func (a OpenAuction) hashPreimage() []byte {
	var idBuf [8]byte
	binary.BigEndian.PutUint64(idBuf[:], uint64(a.AuctionID))
	buf := append([]byte{}, idBuf[:]...)
	buf = append(buf, a.SellerID...)
	buf = append(buf, floatBytes(a.Amount)...)
	return buf
}
