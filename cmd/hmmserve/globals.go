package main

import (
	"context"
	"sync"

	"github.com/carbocation/hmmdash/pipeline"
	"github.com/carbocation/hmmdash/source"
)

type Global struct {
	log     logger
	fetcher source.Fetcher
	config  pipeline.Config

	Site string

	m        sync.RWMutex
	snapshot *pipeline.Snapshot
}

func (g *Global) Snapshot() *pipeline.Snapshot {
	g.m.RLock()
	defer g.m.RUnlock()

	return g.snapshot
}

// Reload loads every source again and swaps in the new snapshot. If the load
// fails the current snapshot stays in place.
func (g *Global) Reload(ctx context.Context) error {
	snap, err := pipeline.Load(ctx, g.fetcher, g.config)
	if err != nil {
		return err
	}

	g.m.Lock()
	g.snapshot = snap
	g.m.Unlock()

	g.log.Println("Loaded datasets", snap.Datasets())

	return nil
}

type logger interface {
	Print(v ...interface{})
	Printf(format string, v ...interface{})
	Println(v ...interface{})
}
