package core

import (
	"crypto/sha512"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// Block is one link in the chain: an indexed, timed, proof-of-worked batch
// of marcos chained to its predecessor by hash.
type Block struct {
	Index         uint64
	Timestamp     int64
	PrevHash      string
	Transactions  []*Marco
	Nonce         uint64
	Difficulty    uint
	MinerID       string
	MerkleRoot    string
	Confirmations uint32
	Hash          string
}

// NewBlock builds a block at index with the given prev-hash and difficulty,
// seeding its transaction list with a mining-reward marco so the miner is
// always compensated, matching the original's Block::new.
func NewBlock(index uint64, prevHash string, difficulty uint, minerID string, miningReward float64) *Block {
	b := &Block{
		Index:      index,
		Timestamp:  nowUnix(),
		PrevHash:   prevHash,
		Difficulty: difficulty,
		MinerID:    minerID,
	}
	reward := NewMarco(NewTransaction(miningReward, "network", miningReward, minerID))
	b.Transactions = append(b.Transactions, reward)
	b.recomputeMerkleRoot()
	return b
}

// AddTransaction appends m to the block and refreshes the Merkle root.
func (b *Block) AddTransaction(m *Marco) {
	b.Transactions = append(b.Transactions, m)
	b.recomputeMerkleRoot()
}

// transactionsString concatenates transaction hashes in order, the
// preimage component the original calls transactions_to_string.
func (b *Block) transactionsString() string {
	var sb strings.Builder
	for _, m := range b.Transactions {
		sb.WriteString(m.Hash)
	}
	return sb.String()
}

// recomputeMerkleRoot derives a simple ordered Merkle root: repeated
// pairwise SHA-512 hashing of the transaction hash list, collapsing an odd
// element forward unchanged. This is an addition over the original, which
// tracked only a flat transaction list with no integrity root.
func (b *Block) recomputeMerkleRoot() {
	if len(b.Transactions) == 0 {
		b.MerkleRoot = ""
		return
	}
	level := make([]string, len(b.Transactions))
	for i, m := range b.Transactions {
		level[i] = m.Hash
	}
	for len(level) > 1 {
		next := make([]string, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 == len(level) {
				next = append(next, level[i])
				continue
			}
			sum := sha512.Sum512([]byte(level[i] + level[i+1]))
			next = append(next, hex.EncodeToString(sum[:]))
		}
		level = next
	}
	b.MerkleRoot = level[0]
}

// calculateHash computes the SHA-512 hex digest over
// transactions||timestamp||prev_hash||nonce||merkle_root||difficulty.
func (b *Block) calculateHash() string {
	var sb strings.Builder
	sb.WriteString(b.transactionsString())
	sb.WriteString(strconv.FormatInt(b.Timestamp, 10))
	sb.WriteString(b.PrevHash)
	sb.WriteString(strconv.FormatUint(b.Nonce, 10))
	sb.WriteString(b.MerkleRoot)
	sb.WriteString(strconv.FormatUint(uint64(b.Difficulty), 10))
	sum := sha512.Sum512([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}

// CheckHash reports whether the block's stored Hash is both a faithful
// digest of its actual content and satisfies its Difficulty: the hex digest
// must start with Difficulty zero hex digits. Recomputing the hash here
// (rather than trusting the stored field) is what makes a block with
// tampered content but a merely zero-prefixed Hash string get rejected.
func (b *Block) CheckHash() bool {
	if b.Hash != b.calculateHash() {
		return false
	}
	if len(b.Hash) < int(b.Difficulty) {
		return false
	}
	return strings.Count(b.Hash[:b.Difficulty], "0") == int(b.Difficulty)
}

// Mine increments Nonce, recomputing Hash, until CheckHash holds. cancel is
// polled once per nonce step so a mid-mine block arrival from the network
// can abort local mining; Mine returns false if canceled before success.
func (b *Block) Mine(cancel <-chan struct{}) bool {
	for {
		select {
		case <-cancel:
			return false
		default:
		}
		b.Hash = b.calculateHash()
		if b.CheckHash() {
			return true
		}
		b.Nonce++
	}
}

// nowUnix is the sole source of wall-clock time in this package, isolated
// so tests can stub it.
var nowUnix = func() int64 { return time.Now().Unix() }
