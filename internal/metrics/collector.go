package metrics

import (
	"os"
	"time"

	"fingerprinter/internal/logging"
)

// StatsProvider supplies store totals to the collector.
type StatsProvider interface {
	GetStats() Stats
}

// Stats holds the current store totals.
type Stats struct {
	TotalFiles        int
	TotalHashes       int
	HashesByAlgorithm map[string]int
}

// Collector periodically collects store totals and database file sizes.
type Collector struct {
	statsProvider StatsProvider
	dbPath        string
	interval      time.Duration
	stopChan      chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(provider StatsProvider, dbPath string, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		dbPath:        dbPath,
		interval:      interval,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the metrics collection
func (c *Collector) Stop() {
	close(c.stopChan)
}

func (c *Collector) collectLoop() {
	c.Collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.Collect()
		case <-c.stopChan:
			return
		}
	}
}

// Collect samples the store totals and database file sizes once.
func (c *Collector) Collect() {
	c.collectDBSizes()

	if c.statsProvider == nil {
		return
	}

	stats := c.statsProvider.GetStats()

	DBFilesTotal.Set(float64(stats.TotalFiles))
	for algorithm, n := range stats.HashesByAlgorithm {
		DBHashesTotal.WithLabelValues(algorithm).Set(float64(n))
	}

	logging.Debug("Metrics collected: files=%d, hashes=%d, algorithms=%d",
		stats.TotalFiles, stats.TotalHashes, len(stats.HashesByAlgorithm))
}

func (c *Collector) collectDBSizes() {
	if c.dbPath == "" {
		return
	}

	files := map[string]string{
		"main": c.dbPath,
		"wal":  c.dbPath + "-wal",
		"shm":  c.dbPath + "-shm",
	}

	for label, path := range files {
		info, err := os.Stat(path)
		if err != nil {
			DBSizeBytes.WithLabelValues(label).Set(0)
			continue
		}
		DBSizeBytes.WithLabelValues(label).Set(float64(info.Size()))
	}
}
