package core

import (
	"crypto/rsa"
	"sync"

	"github.com/sirupsen/logrus"
)

var chainLog = logrus.WithField("subsystem", "chain")

// Tunable engine constants, matching the original's ledger/blockchain.rs.
const (
	InitialDifficulty    = 1
	MaxTransactionsBlock = 3
	ConfirmationThreshold = 5
	targetBlockTimeSecs  = 60
)

// BlockEvent is posted to observers whenever the chain accepts a new block
// or marco, the Go-channel equivalent of the original's NetworkEventSystem
// bus — decoupling the chain from the broadcast driver without a direct
// cyclic dependency between the two.
type BlockEvent struct {
	Block *Block
	Marco *Marco
}

// BlockchainEngine is the append-only, fork-aware chain plus its mempool
// and mining loop. A single mutex protects chain/mempool/heads state;
// network I/O never happens while it is held.
type BlockchainEngine struct {
	mu sync.Mutex

	chain      []*Block
	heads      *ForkHeadTracker
	mempool    map[string]*Marco
	marcoSet   map[string]*Marco
	difficulty uint
	miningReward float64
	minerID    string
	isMiner    bool

	temporaryBlock      *Block
	confirmationPointer uint64

	lastBlockTime int64
	mineCancel    chan struct{}

	observers []chan BlockEvent
}

// NewBlockchainEngine creates a chain seeded with a mined genesis block.
func NewBlockchainEngine(isMiner bool, minerID string, miningReward float64) *BlockchainEngine {
	e := &BlockchainEngine{
		mempool:      make(map[string]*Marco),
		marcoSet:     make(map[string]*Marco),
		difficulty:   InitialDifficulty,
		miningReward: miningReward,
		minerID:      minerID,
		isMiner:      isMiner,
		mineCancel:   make(chan struct{}),
	}

	genesis := NewBlock(0, "", e.difficulty, minerID, miningReward)
	genesis.Mine(e.mineCancel)
	e.chain = []*Block{genesis}
	e.heads = NewForkHeadTracker(e.chain, ConfirmationThreshold)
	e.lastBlockTime = genesis.Timestamp
	e.temporaryBlock = NewBlock(1, genesis.Hash, e.difficulty, minerID, miningReward)

	for _, m := range genesis.Transactions {
		e.marcoSet[m.Hash] = m
	}
	return e
}

// AddObserver registers a channel that receives a BlockEvent for every
// accepted marco and accepted block. Sends never block: an event is dropped
// for an observer whose channel has no free buffer slot at that moment, so
// callers should size buffers generously or read in a loop.
func (e *BlockchainEngine) AddObserver(ch chan BlockEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observers = append(e.observers, ch)
}

func (e *BlockchainEngine) notify(ev BlockEvent) {
	for _, ch := range e.observers {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Difficulty returns the engine's current PoW difficulty.
func (e *BlockchainEngine) Difficulty() uint {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.difficulty
}

// Head returns the current chain tip (the main head's last block).
func (e *BlockchainEngine) Head() *Block {
	e.mu.Lock()
	defer e.mu.Unlock()
	main := e.heads.GetMain()
	if len(main) == 0 {
		return nil
	}
	return main[len(main)-1]
}

// CurrentIndex returns the index of the chain tip.
func (e *BlockchainEngine) CurrentIndex() uint64 {
	head := e.Head()
	if head == nil {
		return 0
	}
	return head.Index
}

// AddMarco admits m to the mempool, mining a new block if the temporary
// block fills. It returns (accepted, minedBlock, err): a hash already seen
// gives accepted=false with a nil error; a hash or signature that fails
// verification gives accepted=false with a validation error.
func (e *BlockchainEngine) AddMarco(m *Marco, signerPub *rsa.PublicKey) (bool, *Block, error) {
	e.mu.Lock()
	if _, seen := e.marcoSet[m.Hash]; seen {
		e.mu.Unlock()
		return false, nil, nil
	}
	e.mu.Unlock()

	if !m.VerifyHash() {
		return false, nil, newValidationError("marco hash does not match data")
	}
	if signerPub != nil {
		if err := m.Verify(signerPub); err != nil {
			return false, nil, err
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.marcoSet[m.Hash] = m
	e.mempool[m.Hash] = m
	e.temporaryBlock.AddTransaction(m)
	e.notify(BlockEvent{Marco: m})

	if e.isMiner && len(e.temporaryBlock.Transactions) >= MaxTransactionsBlock {
		block := e.temporaryBlock
		block.Mine(e.mineCancel)
		if !e.addBlockLocked(block) {
			chainLog.WithField("index", block.Index).Warn("mined block rejected by own chain")
			return true, nil, nil
		}
		e.resetTemporaryBlockLocked(true)
		e.notify(BlockEvent{Block: block})
		return true, block, nil
	}
	return true, nil, nil
}

// AddBlock admits a block received from the network. Returns false if no
// known head can absorb it — the caller should issue a GetBlock for
// b.PrevHash.
func (e *BlockchainEngine) AddBlock(b *Block) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	ok := e.addBlockLocked(b)
	if ok {
		e.notify(BlockEvent{Block: b})
	}
	return ok
}

// addBlockLocked implements the admission rule; caller holds mu.
func (e *BlockchainEngine) addBlockLocked(b *Block) bool {
	if !b.CheckHash() {
		return false
	}

	main := e.heads.GetMain()
	tip := main[len(main)-1]
	if b.PrevHash == tip.Hash {
		e.chain = append(e.chain, b)
		e.heads.AddBlock(b)
		e.adjustDifficulty(b.Timestamp)
		e.lastBlockTime = b.Timestamp
		if b != e.temporaryBlock {
			e.resetTemporaryBlockLocked(false)
		}
		e.reconcileFinalized()
		return true
	}

	if e.heads.AddBlock(b) {
		e.reconcileFinalized()
		return true
	}
	return false
}

// reconcileFinalized drains any newly-finalized blocks from the fork
// tracker and, for each, prunes every remaining head whose root block has
// the same prev-hash as the finalized block. Drained blocks are not appended
// to e.chain here; e.chain already receives every block that extends the
// main tip in addBlockLocked.
func (e *BlockchainEngine) reconcileFinalized() {
	for {
		blk, ok := e.heads.GetConfirmed()
		if !ok {
			return
		}
		e.heads.Prune(blk.PrevHash)
	}
}

// adjustDifficulty implements the target-block-time rule: faster than
// T/2 increments, slower than 2T decrements (floored at 1).
func (e *BlockchainEngine) adjustDifficulty(newTimestamp int64) {
	actual := newTimestamp - e.lastBlockTime
	switch {
	case actual < targetBlockTimeSecs/2:
		e.difficulty++
	case actual > targetBlockTimeSecs*2 && e.difficulty > 1:
		e.difficulty--
	}
}

// resetTemporaryBlockLocked either bumps the existing temporary block's
// index/prev-hash/difficulty in place, or (create=true) replaces it with a
// brand new block including a fresh mining-reward transaction.
func (e *BlockchainEngine) resetTemporaryBlockLocked(create bool) {
	main := e.heads.GetMain()
	tip := main[len(main)-1]
	if !create {
		e.temporaryBlock.Index = tip.Index + 1
		e.temporaryBlock.PrevHash = tip.Hash
		e.temporaryBlock.Difficulty = e.difficulty
		return
	}
	e.temporaryBlock = NewBlock(tip.Index+1, tip.Hash, e.difficulty, e.minerID, e.miningReward)
}

// Chain returns a snapshot copy of the canonical (main-head) chain.
func (e *BlockchainEngine) Chain() []*Block {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*Block(nil), e.chain...)
}

// GetBlockByHash searches the canonical chain, then any fork head, for hash.
func (e *BlockchainEngine) GetBlockByHash(hash string) (*Block, bool) {
	e.mu.Lock()
	for _, b := range e.chain {
		if b.Hash == hash {
			e.mu.Unlock()
			return b, true
		}
	}
	e.mu.Unlock()
	return e.heads.GetBlockByHash(hash)
}

// OpenAuctions scans the known marco set for OpenAuction variants, matching
// the original's search_auctions (which filters its marco_set by the
// CreateAuction variant).
func (e *BlockchainEngine) OpenAuctions() map[string]OpenAuction {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]OpenAuction)
	for hash, m := range e.marcoSet {
		if a, ok := m.Data.(OpenAuction); ok {
			out[hash] = a
		}
	}
	return out
}

// CancelMining signals any in-flight Mine call to abort, used when a
// competing block arrives from the network mid-mine.
func (e *BlockchainEngine) CancelMining() {
	e.mu.Lock()
	defer e.mu.Unlock()
	close(e.mineCancel)
	e.mineCancel = make(chan struct{})
}
