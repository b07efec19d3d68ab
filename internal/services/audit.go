package services

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/hayat-scans/taskledger/internal/config"
	"github.com/hayat-scans/taskledger/internal/database"
	"github.com/hayat-scans/taskledger/internal/models"
	"github.com/hayat-scans/taskledger/internal/types"
	"gorm.io/gorm"
)

// Audit is the append-only action log. Entries route by category:
//
//   - financial: written synchronously (or inside the caller's transaction via
//     AppendTx), never queued, never dropped.
//   - admin: queued with blocking backpressure; the producer waits rather
//     than lose the entry.
//   - normal: queued best-effort; dropped with a warning when the queue is
//     full.
//
// A background worker flushes the queue in batches, by size or by interval,
// whichever comes first.
type Audit struct {
	db *database.Manager

	queue    chan models.LogEntry
	flushReq chan chan struct{}
	done     chan struct{}

	batchSize  int
	flushEvery time.Duration

	closeOnce sync.Once
}

// NewAudit starts the batching worker. Call Close to drain and stop it.
func NewAudit(db *database.Manager, cfg *config.Config) *Audit {
	a := &Audit{
		db:         db,
		queue:      make(chan models.LogEntry, cfg.LogQueue),
		flushReq:   make(chan chan struct{}),
		done:       make(chan struct{}),
		batchSize:  cfg.LogBatch,
		flushEvery: time.Duration(cfg.LogFlushMS) * time.Millisecond,
	}
	go a.run()
	return a
}

// Entry is the caller-facing shape of an audit record. Details are marshaled
// to the JSON column.
type Entry struct {
	Action   string
	ActorID  string
	TargetID string
	Details  map[string]interface{}
	Category string
}

func (e Entry) row(now time.Time) models.LogEntry {
	row := models.LogEntry{
		Action:    e.Action,
		ActorID:   e.ActorID,
		TargetID:  e.TargetID,
		Timestamp: now,
		Category:  e.Category,
	}
	if row.Category == "" {
		row.Category = models.CategoryNormal
	}
	if e.Details != nil {
		if raw, err := json.Marshal(e.Details); err == nil {
			row.Details = raw
		}
	}
	return row
}

// Append records an entry according to its category's durability path.
// Financial entries return only after the row is committed.
func (a *Audit) Append(e Entry) error {
	row := e.row(time.Now().UTC())

	switch row.Category {
	case models.CategoryFinancial:
		return a.db.RunWrite(func(db *gorm.DB) error {
			return db.Create(&row).Error
		})
	case models.CategoryAdmin:
		a.queue <- row
		return nil
	default:
		select {
		case a.queue <- row:
		default:
			log.Printf("audit: queue full, dropping %q entry for actor %s", row.Action, row.ActorID)
		}
		return nil
	}
}

// AppendTx writes an entry inside the caller's open transaction. Used for
// financial entries that must commit atomically with the mutation they record.
func (a *Audit) AppendTx(tx *gorm.DB, e Entry) error {
	row := e.row(time.Now().UTC())
	return tx.Create(&row).Error
}

// Recent returns the newest entries, optionally filtered by category.
// category "" means all.
func (a *Audit) Recent(limit int, category string) ([]models.LogEntry, error) {
	const op = "audit.Recent"

	if limit < 1 {
		limit = 50
	}
	q := a.db.Read().Order("id DESC").Limit(limit)
	if category != "" {
		q = q.Where("category = ?", category)
	}
	var entries []models.LogEntry
	if err := q.Find(&entries).Error; err != nil {
		return nil, types.Wrap(types.KindTransient, op, "failed to read log entries", err)
	}
	return entries, nil
}

// Purge removes every non-financial entry. The purge action is itself
// recorded first, in the same transaction as the delete, so its own category
// decides whether it survives. Returns the number of rows removed.
func (a *Audit) Purge(by string) (int64, error) {
	const op = "audit.Purge"

	// Queued entries must land before the delete decides their fate.
	a.Flush()

	var removed int64
	err := a.db.WriteTx(func(tx *gorm.DB) error {
		record := Entry{
			Action:   "purge_logs",
			ActorID:  by,
			Category: models.CategoryAdmin,
		}.row(time.Now().UTC())
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		res := tx.Where("category <> ?", models.CategoryFinancial).Delete(&models.LogEntry{})
		removed = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return 0, wrapStorage(op, "failed to purge logs", err)
	}
	return removed, nil
}

// Flush blocks until everything queued before the call is committed.
func (a *Audit) Flush() {
	ack := make(chan struct{})
	select {
	case a.flushReq <- ack:
		<-ack
	case <-a.done:
	}
}

// Close drains the queue and stops the worker. Append must not be called
// after Close.
func (a *Audit) Close() {
	a.closeOnce.Do(func() {
		close(a.queue)
		<-a.done
	})
}

func (a *Audit) run() {
	defer close(a.done)

	ticker := time.NewTicker(a.flushEvery)
	defer ticker.Stop()

	batch := make([]models.LogEntry, 0, a.batchSize)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		entries := batch
		batch = make([]models.LogEntry, 0, a.batchSize)
		err := a.db.RunWrite(func(db *gorm.DB) error {
			return db.Create(&entries).Error
		})
		if err != nil {
			log.Printf("audit: failed to flush %d entries: %v", len(entries), err)
		}
	}

	for {
		select {
		case row, ok := <-a.queue:
			if !ok {
				flush()
				return
			}
			batch = append(batch, row)
			if len(batch) >= a.batchSize {
				flush()
			}
		case ack := <-a.flushReq:
			// Drain whatever is already queued, then flush.
			for drained := false; !drained; {
				select {
				case row, ok := <-a.queue:
					if !ok {
						drained = true
						break
					}
					batch = append(batch, row)
				default:
					drained = true
				}
			}
			flush()
			close(ack)
		case <-ticker.C:
			flush()
		}
	}
}
