package booking

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// poller re-reads booked slots for one date while the time step is shown.
type poller struct {
	cancel context.CancelFunc
	done   chan struct{}
	// notifying is set while the poller goroutine runs OnChange.
	notifying atomic.Bool
}

// startPollerLocked starts polling date. With immediate set the first fetch
// happens right away instead of after one interval; it is used when the
// candidates on screen were never loaded.
func (w *Wizard) startPollerLocked(date string, immediate bool) {
	if w.closed {
		return
	}
	w.stopPollerLocked()

	ctx, cancel := context.WithCancel(w.ctx)
	p := &poller{cancel: cancel, done: make(chan struct{})}
	w.poll = p

	go w.runPoller(ctx, p, date, immediate)
}

// stopPollerLocked cancels the running poller and invalidates any fetch it
// has in flight. The caller may wait on the returned poller's done channel
// once the lock is released.
func (w *Wizard) stopPollerLocked() *poller {
	p := w.poll
	if p == nil {
		return nil
	}
	w.poll = nil
	p.cancel()
	w.fetchSeq++
	return p
}

func (w *Wizard) runPoller(ctx context.Context, p *poller, date string, immediate bool) {
	defer close(p.done)

	if immediate && w.refresh(ctx, date, false) {
		p.notify(w)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if w.refresh(ctx, date, true) {
			p.notify(w)
		}
	}
}

func (p *poller) notify(w *Wizard) {
	p.notifying.Store(true)
	defer p.notifying.Store(false)
	w.notify()
}

// refresh fetches booked slots for date and regenerates the candidates. The
// response is dropped when the wizard was closed, the date changed or a newer
// fetch was started meanwhile. On failure the previous bookings are kept when
// keepOnError is set; otherwise the date is treated as having no bookings.
func (w *Wizard) refresh(ctx context.Context, date string, keepOnError bool) bool {
	w.mu.Lock()
	if w.closed || ctx.Err() != nil || w.sel.Date != date {
		w.mu.Unlock()
		return false
	}
	w.fetchSeq++
	seq := w.fetchSeq
	w.mu.Unlock()

	booked, err := w.gw.BookedSlots(ctx, w.doctorID, date)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || seq != w.fetchSeq || w.sel.Date != date {
		w.logger.Debug("discarding stale booked slots", zap.String("date", date))
		return false
	}
	if err != nil && ctx.Err() != nil {
		// Abandoned by the caller, not a failed read.
		w.logger.Debug("booked slots fetch cancelled", zap.String("date", date), zap.Error(err))
		return false
	}

	switch {
	case err == nil:
		w.booked = booked
		w.refreshedAt = w.now()
		if w.message == MsgBookedSlotsUnavailable {
			w.message = ""
		}
	case keepOnError:
		w.logger.Warn("failed to refresh booked slots", zap.String("date", date), zap.Error(err))
	default:
		w.logger.Error("failed to get booked slots", zap.String("date", date), zap.Error(err))
		w.booked = nil
		w.message = MsgBookedSlotsUnavailable
	}

	w.regenerateLocked()
	return true
}

// Refresh re-reads booked slots for the selected date outside the regular
// poll, e.g. when a slot event arrives. It only acts on the time step and
// reports whether the candidates were regenerated.
func (w *Wizard) Refresh(ctx context.Context) bool {
	w.mu.Lock()
	date := w.sel.Date
	ok := !w.closed && w.step == StepSelectTime && date != ""
	w.mu.Unlock()
	if !ok {
		return false
	}

	if w.refresh(ctx, date, true) {
		w.notify()
		return true
	}
	return false
}
