package cmd

import (
	"context"
	"sync"
	"time"

	"github.com/zjrosen/nsresolve/internal/config"
	"github.com/zjrosen/nsresolve/internal/log"
	"github.com/zjrosen/nsresolve/internal/watcher"
)

// scopeEvictor is the part of the resolver pool evictOnChange needs.
type scopeEvictor interface {
	Evict(ctx context.Context, names ...string) error
}

// evictOnChange watches the directory roots of every configured scope and
// evicts a scope's resolver from pool when one of its mapping resources
// changes. Scopes without directory roots are skipped. The returned function
// stops every watcher and waits for them to finish.
func evictOnChange(ctx context.Context, c config.Config, pool scopeEvictor, debounce time.Duration) (func(), error) {
	var (
		watchers []*watcher.Watcher
		wg       sync.WaitGroup
	)
	ctx, cancel := context.WithCancel(ctx)
	stop := func() {
		cancel()
		for _, w := range watchers {
			_ = w.Stop()
		}
		wg.Wait()
	}

	for _, name := range c.ScopeNames() {
		sc, err := c.Scope(name)
		if err != nil {
			stop()
			return nil, err
		}
		dirs, err := dirRoots(sc)
		if err != nil {
			stop()
			return nil, err
		}
		if len(dirs) == 0 {
			continue
		}
		w, onChange, err := startWatcher(sc, dirs, debounce)
		if err != nil {
			stop()
			return nil, err
		}
		watchers = append(watchers, w)
		log.Debug(log.CatWatcher, "Watching scope for eviction", "scope", name, "roots", len(dirs))

		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case <-onChange:
					if err := pool.Evict(ctx, name); err != nil {
						log.ErrorErr(log.CatWatcher, "Failed to evict scope resolver", err, "scope", name)
					}
				}
			}
		}(name)
	}
	return stop, nil
}
