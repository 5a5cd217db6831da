package core

import (
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

var forkLog = logrus.WithField("subsystem", "chain")

// ForkHeadTracker holds every candidate chain head the engine currently
// knows about. list[0] is always the longest (the main head); no two heads
// share a tip; every head is internally prev-hash linked.
type ForkHeadTracker struct {
	mu          sync.Mutex
	list        [][]*Block
	maxConfirms int
}

// NewForkHeadTracker seeds the tracker with a single head (typically just
// the genesis block) and a confirmation threshold.
func NewForkHeadTracker(genesis []*Block, maxConfirms int) *ForkHeadTracker {
	head := append([]*Block(nil), genesis...)
	return &ForkHeadTracker{list: [][]*Block{head}, maxConfirms: maxConfirms}
}

// Num reports how many candidate heads currently exist.
func (f *ForkHeadTracker) Num() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.list)
}

// GetMain returns a snapshot of the current main (longest) head.
func (f *ForkHeadTracker) GetMain() []*Block {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*Block(nil), f.list[0]...)
}

// AddBlock attempts to attach b to any known head, either at its tip (the
// common case) or branching off an interior block (a fork). It returns
// false if no head can absorb b, the caller's cue to issue a GetBlock
// backfill for b.PrevHash.
func (f *ForkHeadTracker) AddBlock(b *Block) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, head := range f.list {
		tip := head[len(head)-1]
		if tip.Hash == b.PrevHash {
			f.bumpConfirmations(head)
			f.list[i] = append(head, b)
			forkLog.WithFields(logrus.Fields{"head": i, "index": b.Index}).Debug("extended head at tip")
			return true
		}
	}

	for _, head := range f.list {
		for idx, blk := range head {
			if blk.Hash != b.PrevHash {
				continue
			}
			branch := append([]*Block(nil), head[:idx+1]...)
			branch = append(branch, b)
			f.list = append(f.list, branch)
			f.reorder()
			forkLog.WithFields(logrus.Fields{"at": idx, "index": b.Index}).Info("split new fork head")
			return true
		}
	}

	return false
}

// bumpConfirmations increments the confirmation count of the last
// maxConfirms blocks of head, matching "a count incremented on each of the
// last CONFIRMATION_THRESHOLD blocks of a head each time the head grows."
// Must be called with mu held.
func (f *ForkHeadTracker) bumpConfirmations(head []*Block) {
	n := len(head)
	start := n - f.maxConfirms
	if start < 0 {
		start = 0
	}
	for i := start; i < n; i++ {
		head[i].Confirmations++
	}
}

// CanAddBlock is a read-only probe mirroring AddBlock's matching logic
// without mutating any state.
func (f *ForkHeadTracker) CanAddBlock(b *Block) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, head := range f.list {
		for _, blk := range head {
			if blk.Hash == b.PrevHash {
				return true
			}
		}
	}
	return false
}

// AddHead appends a raw new head verbatim, used when bootstrapping a
// forked chain wholesale (e.g. after a multi-block backfill).
func (f *ForkHeadTracker) AddHead(head []*Block) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.list = append(f.list, append([]*Block(nil), head...))
	f.reorder()
}

// reorder sorts heads descending by length so list[0] is always the
// longest. Must be called with mu held.
func (f *ForkHeadTracker) reorder() {
	sort.SliceStable(f.list, func(i, j int) bool {
		return len(f.list[i]) > len(f.list[j])
	})
}

// Prune drops every head whose root block's prev-hash equals prevHash:
// orphans of an ancestor that has just been finalized elsewhere.
func (f *ForkHeadTracker) Prune(prevHash string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.list[:0]
	for _, head := range f.list {
		if len(head) > 0 && head[0].PrevHash == prevHash {
			continue
		}
		kept = append(kept, head)
	}
	f.list = kept
}

// GetConfirmed removes and returns the oldest block of the first head
// whose length exceeds maxConfirms: the "finalized" block the caller should
// append to the canonical chain and prune siblings for.
func (f *ForkHeadTracker) GetConfirmed() (*Block, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, head := range f.list {
		if len(head) > f.maxConfirms {
			finalized := head[0]
			f.list[i] = head[1:]
			return finalized, true
		}
	}
	return nil, false
}

// GetBlockByHash searches every head, most-recently-added first, for a
// block with the given hash.
func (f *ForkHeadTracker) GetBlockByHash(hash string) (*Block, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.list) - 1; i >= 0; i-- {
		head := f.list[i]
		for j := len(head) - 1; j >= 0; j-- {
			if head[j].Hash == hash {
				return head[j], true
			}
		}
	}
	return nil, false
}
