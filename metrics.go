package main

import (
	"context"
	"log"
	"time"
)

// RunMetrics logs bridge-wide stats every interval until ctx is canceled:
// connected peers, active texture subscriptions, and encode-cache occupancy.
// Nothing is logged for an interval with no peers and no subscriptions.
func RunMetrics(ctx context.Context, host *TransportHost, engine *StreamEngine, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			peers := host.PeerCount()
			subs := engine.ActiveCount()
			cacheEntries, cacheBytes := engine.CacheStats()
			if peers > 0 || subs > 0 {
				log.Printf("[metrics] peers=%d subscriptions=%d cache_entries=%d cache_bytes=%d",
					peers, subs, cacheEntries, cacheBytes)
			}
		}
	}
}
