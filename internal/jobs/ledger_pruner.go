// Package jobs фоновые задачи портала по расписанию.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"delivery_portal/internal/lib/logger/sl"
	"delivery_portal/internal/metrics"
	"delivery_portal/internal/repository"

	"github.com/robfig/cron/v3"
)

const pruneTimeout = time.Minute

// LedgerPruner удаляет окна журнала скачиваний старше retention
type LedgerPruner struct {
	log       *slog.Logger
	ledger    repository.AccessLedger
	retention time.Duration
	cron      *cron.Cron
	mu        sync.Mutex
	entryID   cron.EntryID

	Now func() time.Time
}

func NewLedgerPruner(log *slog.Logger, ledger repository.AccessLedger, retention time.Duration) *LedgerPruner {
	return &LedgerPruner{
		log:       log,
		ledger:    ledger,
		retention: retention,
		cron:      cron.New(cron.WithLocation(time.UTC)),
		Now:       time.Now,
	}
}

// Start регистрирует задачу по cron-выражению spec и запускает планировщик
func (p *LedgerPruner) Start(spec string) error {
	const op = "jobs.LedgerPruner.Start"

	p.mu.Lock()
	defer p.mu.Unlock()

	entryID, err := p.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), pruneTimeout)
		defer cancel()

		if _, err := p.RunOnce(ctx); err != nil {
			p.log.Error("ledger prune failed", slog.String("op", op), sl.Err(err))
		}
	})
	if err != nil {
		return fmt.Errorf("%s: invalid spec %q: %w", op, spec, err)
	}

	p.entryID = entryID
	p.cron.Start()

	p.log.Info("ledger pruner started", slog.String("spec", spec), slog.Duration("retention", p.retention))

	return nil
}

// Stop останавливает планировщик и ждёт завершения текущего запуска
func (p *LedgerPruner) Stop(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	done := p.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
	p.cron.Remove(p.entryID)
}

// RunOnce удаляет записи, окно которых началось раньше now - retention
func (p *LedgerPruner) RunOnce(ctx context.Context) (int64, error) {
	const op = "jobs.LedgerPruner.RunOnce"

	cutoff := p.Now().UTC().Add(-p.retention)

	n, err := p.ledger.PruneBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	metrics.LedgerPruned.Add(float64(n))
	p.log.Info("ledger pruned", slog.String("op", op), slog.Int64("removed", n), slog.Time("cutoff", cutoff))

	return n, nil
}
