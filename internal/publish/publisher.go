package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ironsheep/logistics-bot/internal/materials"
)

// ErrStoreUnreachable wraps every failure to reach the remote store.
var ErrStoreUnreachable = errors.New("store unreachable")

// errNoStore is reported when the publisher runs without a remote store.
var errNoStore = fmt.Errorf("%w: no store configured", ErrStoreUnreachable)

// Store is the remote state the dashboard reads.
type Store interface {
	SetLocation(ctx context.Context, name string) error
	SetMaterials(ctx context.Context, counts materials.Counts) error
	SetLastUpdate(ctx context.Context, ms int64) error
}

// Publisher delivers results to a Store and falls back to a LocalRecord.
type Publisher struct {
	store   Store
	local   *LocalRecord
	journal Journal
	logger  *slog.Logger
	now     func() time.Time

	mu        sync.Mutex
	latest    materials.Counts
	hasLatest bool
}

// New creates a publisher. store may be nil when no remote store is
// configured, in which case every result goes to the local record.
func New(store Store, local *LocalRecord, logger *slog.Logger) *Publisher {
	if local == nil {
		local = NewLocalRecord("")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		store:  store,
		local:  local,
		logger: logger,
		now:    time.Now,
	}
}

// SetJournal attaches a journal that receives every SyncRecord.
func (p *Publisher) SetJournal(j Journal) {
	p.journal = j
}

// Publish sets the remote location and materials to the result of one
// checkpoint pass. The remote materials are replaced, not accumulated.
func (p *Publisher) Publish(ctx context.Context, checkpoint string, counts materials.Counts) SyncRecord {
	p.mu.Lock()
	p.latest, p.hasLatest = counts, true
	p.mu.Unlock()

	at := p.now()
	err := p.deliver(ctx, func(s Store) error {
		if err := s.SetLocation(ctx, checkpoint); err != nil {
			return err
		}
		if err := s.SetMaterials(ctx, counts); err != nil {
			return err
		}
		return s.SetLastUpdate(ctx, at.UnixMilli())
	})

	rec := p.newRecord(KindMaterials, checkpoint, counts, at)
	if err != nil {
		p.logger.Warn("remote publish failed, logged locally",
			"checkpoint", checkpoint,
			"counts", counts.String(),
			"error", err)
		p.appendLocal(at, checkpoint, counts.String())
		rec.Status = LoggedLocally
	} else {
		p.logger.Info("published materials",
			"checkpoint", checkpoint,
			"counts", counts.String())
	}
	p.record(ctx, rec)
	return rec
}

// PublishLocation sets the remote location only.
func (p *Publisher) PublishLocation(ctx context.Context, checkpoint string) SyncRecord {
	at := p.now()
	err := p.deliver(ctx, func(s Store) error {
		if err := s.SetLocation(ctx, checkpoint); err != nil {
			return err
		}
		return s.SetLastUpdate(ctx, at.UnixMilli())
	})

	rec := p.newRecord(KindLocation, checkpoint, materials.Counts{}, at)
	if err != nil {
		p.logger.Warn("remote location update failed, logged locally",
			"checkpoint", checkpoint,
			"error", err)
		p.appendLocal(at, "Location", checkpoint)
		rec.Status = LoggedLocally
	} else {
		p.logger.Info("published location", "checkpoint", checkpoint)
	}
	p.record(ctx, rec)
	return rec
}

// Republish sends the latest published materials again. It reports false
// when nothing has been published yet. Failures are returned, not recorded
// locally.
func (p *Publisher) Republish(ctx context.Context) (bool, error) {
	counts, ok := p.Latest()
	if !ok {
		return false, nil
	}
	err := p.deliver(ctx, func(s Store) error {
		if err := s.SetMaterials(ctx, counts); err != nil {
			return err
		}
		return s.SetLastUpdate(ctx, p.now().UnixMilli())
	})
	return true, err
}

// Latest returns the counts of the most recent Publish call.
func (p *Publisher) Latest() (materials.Counts, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.latest, p.hasLatest
}

func (p *Publisher) deliver(ctx context.Context, fn func(Store) error) error {
	if p.store == nil {
		return errNoStore
	}
	if err := fn(p.store); err != nil {
		if errors.Is(err, ErrStoreUnreachable) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrStoreUnreachable, err)
	}
	return nil
}

func (p *Publisher) newRecord(kind Kind, checkpoint string, counts materials.Counts, at time.Time) SyncRecord {
	return SyncRecord{
		ID:         uuid.NewString(),
		Kind:       kind,
		Checkpoint: checkpoint,
		Timestamp:  at,
		Counts:     counts,
		Status:     Delivered,
	}
}

func (p *Publisher) appendLocal(at time.Time, label, value string) {
	if err := p.local.Append(at, label, value); err != nil {
		p.logger.Error("failed to write local record",
			"path", p.local.Path(),
			"error", err)
	}
}

func (p *Publisher) record(ctx context.Context, rec SyncRecord) {
	if p.journal == nil {
		return
	}
	if err := p.journal.Record(ctx, rec); err != nil {
		p.logger.Error("failed to journal sync record",
			"id", rec.ID,
			"error", err)
	}
}
