package core

import (
	"fmt"
	"sync"

	"escrowmarket/core/events"
	"escrowmarket/core/genesis"
	ledger "escrowmarket/core/state"
	"escrowmarket/core/types"
	"escrowmarket/native/market"
	"escrowmarket/storage"
)

// Node is the central controller, wiring storage, state and the marketplace
// program together. Every state access runs under one lock, so a group
// observes and produces a consistent ledger.
type Node struct {
	db      storage.Database
	state   *StateProcessor
	events  *events.Fanout
	stateMu sync.Mutex
}

// NewNode opens the ledger stored in db, applying spec when the ledger is
// new.
func NewNode(db storage.Database, cfg market.Config, spec *genesis.Spec) (*Node, error) {
	manager := ledger.NewManager(db)
	if _, err := genesis.Apply(manager, spec); err != nil {
		manager.Discard()
		return nil, fmt.Errorf("apply genesis: %w", err)
	}
	if err := manager.Commit(); err != nil {
		return nil, err
	}
	processor, err := NewStateProcessor(manager, cfg)
	if err != nil {
		return nil, err
	}
	fanout := &events.Fanout{}
	processor.SetEmitter(fanout)
	return &Node{db: db, state: processor, events: fanout}, nil
}

// Subscribe registers a receiver for committed events.
func (n *Node) Subscribe(sub events.Emitter) { n.events.Subscribe(sub) }

// MarketConfig returns the marketplace program configuration.
func (n *Node) MarketConfig() market.Config { return n.state.Market().Config() }

// SubmitGroup applies group atomically.
func (n *Node) SubmitGroup(group types.Group) (*GroupResult, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.state.ApplyGroup(group)
}

// Close releases the underlying database.
func (n *Node) Close() {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	n.db.Close()
}
