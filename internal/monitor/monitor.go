// Package monitor records per-run summaries of analysis calls for the
// /api/runs and /api/stats endpoints.
package monitor

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/perflens/perflens/internal/db/models"
	"gorm.io/gorm"
)

// MaxMemoryRuns limits the in-memory recent-run cache.
const MaxMemoryRuns = 100

// Monitor keeps analysis-run statistics in memory and persists run summaries
// to the database.
type Monitor struct {
	db *gorm.DB

	recentRuns []models.AnalysisRun
	runsMu     sync.RWMutex

	totalRuns      atomic.Int64
	healthyRuns    atomic.Int64
	bottleneckRuns atomic.Int64
}

// NewMonitor creates a Monitor backed by the given database.
func NewMonitor(database *gorm.DB) *Monitor {
	m := &Monitor{
		db:         database,
		recentRuns: make([]models.AnalysisRun, 0, MaxMemoryRuns),
	}

	if err := database.AutoMigrate(&models.AnalysisRun{}); err != nil {
		log.Printf("[Monitor] Failed to migrate AnalysisRun table: %v", err)
	}

	m.loadStatsFromDB()
	return m
}

// Record stores one analysis-run summary. Missing ID and timestamp are filled
// in.
func (m *Monitor) Record(run models.AnalysisRun) {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.Timestamp == 0 {
		run.Timestamp = time.Now().UnixMilli()
	}

	m.totalRuns.Add(1)
	if run.Bottlenecked() {
		m.bottleneckRuns.Add(1)
	} else {
		m.healthyRuns.Add(1)
	}

	m.runsMu.Lock()
	m.recentRuns = append([]models.AnalysisRun{run}, m.recentRuns...)
	if len(m.recentRuns) > MaxMemoryRuns {
		m.recentRuns = m.recentRuns[:MaxMemoryRuns]
	}
	m.runsMu.Unlock()

	if err := m.db.Create(&run).Error; err != nil {
		log.Printf("[Monitor] Failed to save run: %v", err)
	}
}

// Recent returns the most recent runs, newest first, optionally limited to
// the last sinceMinutes.
func (m *Monitor) Recent(limit int, sinceMinutes int) []models.AnalysisRun {
	if limit <= 0 {
		limit = MaxMemoryRuns
	}

	var runs []models.AnalysisRun
	query := m.db.Order("timestamp DESC").Limit(limit)
	if sinceMinutes > 0 {
		sinceTime := time.Now().Add(-time.Duration(sinceMinutes) * time.Minute).UnixMilli()
		query = query.Where("timestamp >= ?", sinceTime)
	}

	if err := query.Find(&runs).Error; err != nil {
		log.Printf("[Monitor] Failed to get runs from DB: %v", err)
		// Fall back to the in-memory cache.
		m.runsMu.RLock()
		defer m.runsMu.RUnlock()
		if limit > len(m.recentRuns) {
			limit = len(m.recentRuns)
		}
		return append([]models.AnalysisRun(nil), m.recentRuns[:limit]...)
	}
	return runs
}

// Stats returns aggregated run statistics.
func (m *Monitor) Stats() models.RunStats {
	return models.RunStats{
		TotalRuns:      m.totalRuns.Load(),
		HealthyRuns:    m.healthyRuns.Load(),
		BottleneckRuns: m.bottleneckRuns.Load(),
	}
}

// Clear removes all recorded runs from memory and the database.
func (m *Monitor) Clear() error {
	m.runsMu.Lock()
	m.recentRuns = m.recentRuns[:0]
	m.runsMu.Unlock()

	m.totalRuns.Store(0)
	m.healthyRuns.Store(0)
	m.bottleneckRuns.Store(0)

	if err := m.db.Exec("DELETE FROM analysis_runs").Error; err != nil {
		log.Printf("[Monitor] Failed to clear runs: %v", err)
		return err
	}

	log.Printf("[Monitor] All runs cleared")
	return nil
}

func (m *Monitor) loadStatsFromDB() {
	var total, bottlenecked int64

	m.db.Model(&models.AnalysisRun{}).Count(&total)
	m.db.Model(&models.AnalysisRun{}).
		Where("slow_count > 0 OR high_error_count > 0 OR db_heavy_count > 0").
		Count(&bottlenecked)

	m.totalRuns.Store(total)
	m.bottleneckRuns.Store(bottlenecked)
	m.healthyRuns.Store(total - bottlenecked)
}
