package main

import (
	"context"
	"fmt"

	"clmeval/internal/ledger"
	"clmeval/internal/storage"
)

func (c *commandContext) openStore(ctx context.Context) (storage.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := newCollaborators(cfg, nil).store(ctx)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	return store, nil
}

func (c *commandContext) loadLedger(ctx context.Context) (*ledger.Ledger, storage.Store, error) {
	store, err := c.openStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	l, err := ledger.Load(ctx, store, storage.LedgerKey)
	if err != nil {
		return nil, nil, err
	}
	return l, store, nil
}
