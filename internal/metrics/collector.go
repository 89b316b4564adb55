package metrics

import (
	"time"

	"media-cloud/internal/logging"
)

// StatsProvider supplies a snapshot of library statistics.
type StatsProvider interface {
	GetStats() Stats
}

// Stats holds the library figures exported as gauges.
type Stats struct {
	Images            int
	Videos            int
	IncompleteRecords int
	Thumbnails        int
	OriginalsBytes    int64
	Memories          int
}

// Collector periodically collects and updates library gauges
type Collector struct {
	statsProvider StatsProvider
	interval      time.Duration
	stopChan      chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		interval:      interval,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the collection loop
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the collection loop. It must be called at most once.
func (c *Collector) Stop() {
	close(c.stopChan)
}

func (c *Collector) collectLoop() {
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	if c.statsProvider == nil {
		return
	}

	stats := c.statsProvider.GetStats()

	LibraryRecords.WithLabelValues("image").Set(float64(stats.Images))
	LibraryRecords.WithLabelValues("video").Set(float64(stats.Videos))
	LibraryIncompleteRecords.Set(float64(stats.IncompleteRecords))
	LibraryThumbnails.Set(float64(stats.Thumbnails))
	LibraryOriginalsBytes.Set(float64(stats.OriginalsBytes))
	LibraryMemories.Set(float64(stats.Memories))

	logging.Debug("Metrics collected: images=%d, videos=%d, incomplete=%d, thumbnails=%d, memories=%d",
		stats.Images, stats.Videos, stats.IncompleteRecords, stats.Thumbnails, stats.Memories)
}
