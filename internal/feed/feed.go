// Package feed implements the paginated review feed: at most one page load in flight,
// cumulative pages merged without duplicates, and a full state snapshot delivered to
// the observer after every completion.
package feed

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Borislavv/go-ash-feed/config"
	"github.com/Borislavv/go-ash-feed/internal/dispatch"
	"github.com/Borislavv/go-ash-feed/internal/metrics"
	"github.com/Borislavv/go-ash-feed/model"
	"github.com/pkg/errors"
)

type Feed struct {
	ctx    context.Context
	cancel context.CancelFunc

	cfg      *config.Feed
	source   PageSource
	delivery dispatch.Executor
	logger   *slog.Logger
	metrics  *metrics.Metrics

	mu         sync.Mutex
	state      model.FeedState
	index      map[model.ItemID]int
	generation uint64
	observer   func(model.FeedState)
	closed     bool
	wg         sync.WaitGroup
}

func New(
	ctx context.Context,
	cfg *config.Feed,
	source PageSource,
	delivery dispatch.Executor,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Feed {
	ctx, cancel := context.WithCancel(ctx)
	return &Feed{
		ctx:      ctx,
		cancel:   cancel,
		cfg:      cfg,
		source:   source,
		delivery: delivery,
		logger:   logger,
		metrics:  m,
		state:    model.NewFeedState(),
		index:    make(map[model.ItemID]int),
	}
}

// OnStateChange sets the observer which receives a snapshot after every completion and expansion.
// It runs on the delivery executor.
func (f *Feed) OnStateChange(fn func(model.FeedState)) {
	f.mu.Lock()
	f.observer = fn
	f.mu.Unlock()
}

// State returns a snapshot of the current state.
func (f *Feed) State() model.FeedState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state.Clone()
}

// LoadNextPage requests the page at the current offset in background.
func (f *Feed) LoadNextPage() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrClosed
	}
	switch f.state.Phase {
	case model.PhaseLoading:
		return ErrAlreadyInProgress
	case model.PhaseExhausted:
		return ErrExhausted
	}
	f.startLoadLocked(nil)
	return nil
}

// Refresh drops everything loaded so far and starts over from the first page.
// onComplete, if any, runs on the delivery executor after that load completed, successfully or not.
// A load started before the refresh can no longer change the state.
func (f *Feed) Refresh(onComplete func()) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrClosed
	}
	f.generation++
	f.state = model.NewFeedState()
	f.index = make(map[model.ItemID]int)
	f.startLoadLocked(onComplete)
	return nil
}

// ExpandItem lifts the line limit of the item. It reports whether the state changed;
// expanding an unknown or already expanded item is a no-op and notifies nobody.
func (f *Feed) ExpandItem(id model.ItemID) bool {
	f.mu.Lock()
	i, ok := f.index[id]
	if !ok || f.state.Items[i].Expanded() {
		f.mu.Unlock()
		return false
	}
	f.state.Items[i].MaxLines = 0
	snapshot, observer := f.state.Clone(), f.observer
	f.mu.Unlock()

	f.notify(observer, snapshot, nil)
	return true
}

// ShouldLoadNextPage reports whether a scroll which will settle at targetOffsetY is close
// enough to the end of the content to request the next page.
func (f *Feed) ShouldLoadNextPage(viewHeight, contentHeight, targetOffsetY float64) bool {
	triggerDistance := viewHeight * f.cfg.ScreensToPrefetch
	remainingDistance := contentHeight - viewHeight - targetOffsetY
	return remainingDistance <= triggerDistance
}

// Close abandons the in-flight load, if any, and waits for it to return.
func (f *Feed) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()

	f.cancel()
	f.wg.Wait()
	return nil
}

func (f *Feed) startLoadLocked(onComplete func()) {
	f.state.Phase = model.PhaseLoading
	f.state.ShouldLoad = false

	generation, offset := f.generation, f.state.Offset
	f.wg.Go(func() {
		page, err := f.load(offset)
		f.complete(generation, page, err, onComplete)
	})
}

func (f *Feed) load(offset int) (*model.Page, error) {
	ctx := f.ctx
	if f.cfg.PageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.cfg.PageTimeout)
		defer cancel()
	}

	page, err := f.source.Page(ctx, offset)
	if err != nil {
		return nil, errors.Wrapf(err, "load page at offset %d", offset)
	}
	if page == nil {
		return nil, errors.Wrapf(errEmptyPage, "load page at offset %d", offset)
	}
	return page, nil
}

func (f *Feed) complete(generation uint64, page *model.Page, err error, onComplete func()) {
	f.mu.Lock()
	if generation != f.generation {
		held := len(f.state.Items)
		f.mu.Unlock()
		f.metrics.RecordPageLoad("stale", held)
		f.logger.Debug("feed: discarded stale page", "generation", generation)
		if onComplete != nil {
			f.delivery.Submit(onComplete)
		}
		return
	}

	if err != nil {
		f.state.ShouldLoad = true
		f.state.Phase = model.PhaseIdle
		f.metrics.RecordPageLoad("error", len(f.state.Items))
		f.logger.Warn("feed: page load failed", "offset", f.state.Offset, "err", err)
	} else {
		added := f.mergeLocked(page)
		f.metrics.RecordPageLoad("ok", len(f.state.Items))
		f.logger.Debug("feed: page merged", "added", added, "offset", f.state.Offset, "total", f.state.Total)
	}
	snapshot, observer := f.state.Clone(), f.observer
	f.mu.Unlock()

	f.notify(observer, snapshot, onComplete)
}

func (f *Feed) notify(observer func(model.FeedState), snapshot model.FeedState, then func()) {
	if observer == nil && then == nil {
		return
	}
	f.delivery.Submit(func() {
		if observer != nil {
			observer(snapshot)
		}
		if then != nil {
			then()
		}
	})
}
