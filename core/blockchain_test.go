package core

import "testing"

func TestNewBlockchainEngineMinesGenesis(t *testing.T) {
	e := NewBlockchainEngine(true, "miner", 1)
	head := e.Head()
	if head == nil || head.Index != 0 {
		t.Fatalf("expected a genesis block at index 0")
	}
	if !head.CheckHash() {
		t.Fatalf("genesis block should satisfy its own difficulty")
	}
	if e.CurrentIndex() != 0 {
		t.Fatalf("expected current index 0, got %d", e.CurrentIndex())
	}
}

func TestBlockchainEngineAddMarcoDedupes(t *testing.T) {
	e := NewBlockchainEngine(false, "miner", 1)
	m := NewMarco(NewTransaction(1, "a", 1, "b"))
	accepted, _, err := e.AddMarco(m, nil)
	if err != nil || !accepted {
		t.Fatalf("expected the first submission to be accepted, err=%v", err)
	}
	accepted, _, err = e.AddMarco(m, nil)
	if err != nil {
		t.Fatalf("a duplicate resubmission should not error, got %v", err)
	}
	if accepted {
		t.Fatalf("expected a duplicate marco to be rejected as already-seen")
	}
}

func TestBlockchainEngineAddMarcoRejectsTamperedHash(t *testing.T) {
	e := NewBlockchainEngine(false, "miner", 1)
	m := NewMarco(NewTransaction(1, "a", 1, "b"))
	m.Hash = "tampered"
	if _, _, err := e.AddMarco(m, nil); err == nil {
		t.Fatalf("expected a hash-mismatched marco to be rejected")
	}
}

func TestBlockchainEngineAutoMinesWhenTemporaryBlockFills(t *testing.T) {
	e := NewBlockchainEngine(true, "miner", 1)
	startIndex := e.CurrentIndex()

	var mined *Block
	for i := 0; i < MaxTransactionsBlock; i++ {
		m := NewMarco(NewTransaction(float64(i), "a", float64(i), "b"))
		_, block, err := e.AddMarco(m, nil)
		if err != nil {
			t.Fatalf("AddMarco: %v", err)
		}
		if block != nil {
			mined = block
		}
	}
	if mined == nil {
		t.Fatalf("expected a block to be mined once the temporary block filled")
	}
	if e.CurrentIndex() != startIndex+1 {
		t.Fatalf("expected the chain tip to advance by one block")
	}
}

func TestBlockchainEngineAddBlockExtendsHead(t *testing.T) {
	e := NewBlockchainEngine(true, "miner", 1)
	tip := e.Head()
	next := NewBlock(tip.Index+1, tip.Hash, e.Difficulty(), "miner", 1)
	cancel := make(chan struct{})
	next.Mine(cancel)
	if !e.AddBlock(next) {
		t.Fatalf("expected a validly-mined successor block to be accepted")
	}
	if e.Head().Hash != next.Hash {
		t.Fatalf("expected the chain tip to become the newly added block")
	}
	if tip.Confirmations != 1 {
		t.Fatalf("expected the prior tip to be confirmed exactly once, not double-counted, got %d", tip.Confirmations)
	}
}

func TestBlockchainEngineAddBlockRejectsBadHash(t *testing.T) {
	e := NewBlockchainEngine(true, "miner", 1)
	tip := e.Head()
	bad := NewBlock(tip.Index+1, tip.Hash, 64, "miner", 1) // not mined, will not satisfy difficulty
	if e.AddBlock(bad) {
		t.Fatalf("an unmined block should fail CheckHash and be rejected")
	}
}

func TestBlockchainEngineAddBlockForksWhenNotAtTip(t *testing.T) {
	e := NewBlockchainEngine(true, "miner", 1)
	genesis := e.Head()
	sibling := NewBlock(genesis.Index+1, genesis.Hash, e.Difficulty(), "miner", 1)
	cancel := make(chan struct{})
	sibling.Mine(cancel)

	// Extend the main head first so genesis is no longer the tip.
	first := NewBlock(genesis.Index+1, genesis.Hash, e.Difficulty(), "miner", 1)
	firstCancel := make(chan struct{})
	first.Mine(firstCancel)
	if !e.AddBlock(first) {
		t.Fatalf("expected the first successor to extend the main head")
	}

	// sibling still points at genesis: an interior match, so it should fork rather than fail.
	if !e.AddBlock(sibling) {
		t.Fatalf("expected a sibling block off genesis to be absorbed as a new fork head")
	}
	if e.Head().Hash != first.Hash {
		t.Fatalf("expected the longer head (first) to remain the tip")
	}
}

func TestBlockchainEngineOpenAuctions(t *testing.T) {
	e := NewBlockchainEngine(false, "miner", 1)
	auction := NewMarco(NewOpenAuction(1, "seller", 10))
	if _, _, err := e.AddMarco(auction, nil); err != nil {
		t.Fatalf("AddMarco: %v", err)
	}
	open := e.OpenAuctions()
	if len(open) != 1 {
		t.Fatalf("expected exactly one open auction, got %d", len(open))
	}
	if _, ok := open[auction.Hash]; !ok {
		t.Fatalf("expected the open auction to be keyed by its marco hash")
	}
}

func TestBlockchainEngineObserversNotifiedNonBlocking(t *testing.T) {
	e := NewBlockchainEngine(false, "miner", 1)
	ch := make(chan BlockEvent, 1)
	e.AddObserver(ch)

	m := NewMarco(NewTransaction(1, "a", 1, "b"))
	if _, _, err := e.AddMarco(m, nil); err != nil {
		t.Fatalf("AddMarco: %v", err)
	}
	select {
	case ev := <-ch:
		if ev.Marco == nil || ev.Marco.Hash != m.Hash {
			t.Fatalf("expected the observer to receive the accepted marco")
		}
	default:
		t.Fatalf("expected a buffered event to be immediately available")
	}
}

func TestBlockchainEngineGetBlockByHash(t *testing.T) {
	e := NewBlockchainEngine(false, "miner", 1)
	genesis := e.Head()
	blk, ok := e.GetBlockByHash(genesis.Hash)
	if !ok || blk.Hash != genesis.Hash {
		t.Fatalf("expected to find the genesis block by hash")
	}
	if _, ok := e.GetBlockByHash("missing"); ok {
		t.Fatalf("expected no match for an unknown hash")
	}
}
