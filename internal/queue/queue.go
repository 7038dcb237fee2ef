package queue

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/jonz94/youtube-live-chat-alerts-app/internal/domain"
	"github.com/jonz94/youtube-live-chat-alerts-app/internal/metrics"
)

// settleDelay is the pause after a hide broadcast before the next presentation
// may begin, so client-side hide transitions can finish.
const settleDelay = 250 * time.Millisecond

// Presenter is the single-worker FIFO presentation queue.
//
// Enqueue never blocks and never rejects; the internal queue is unbounded
// because gift rates are human-scale. Broadcasts are fire-and-forget: delivery
// failure never stops the queue.
type Presenter struct {
	publisher domain.Publisher
	clock     clockwork.Clock

	mu      sync.Mutex
	pending []domain.GiftEvent

	wake     chan struct{}
	done     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

// NewPresenter creates the queue and starts its worker goroutine.
func NewPresenter(publisher domain.Publisher, clock clockwork.Clock) *Presenter {
	if publisher == nil {
		publisher = domain.NopPublisher{}
	}
	p := &Presenter{
		publisher: publisher,
		clock:     clock,
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}
	go p.run()
	return p
}

// Enqueue adds one gift event to the queue. The event carries its own
// animation duration, captured by the caller at event time, so later settings
// changes cannot affect an already-queued presentation.
func (p *Presenter) Enqueue(event domain.GiftEvent) {
	p.mu.Lock()
	p.pending = append(p.pending, event)
	depth := len(p.pending)
	p.mu.Unlock()

	metrics.QueueDepth.Set(float64(depth))

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Len returns the number of presentations still waiting.
func (p *Presenter) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// Stop terminates the worker. A cycle in flight is abandoned mid-wait; this is
// the only way a presentation ends early.
func (p *Presenter) Stop() {
	p.stopOnce.Do(func() { close(p.done) })
	<-p.stopped
}

func (p *Presenter) run() {
	defer close(p.stopped)

	for {
		event, ok := p.next()
		if !ok {
			select {
			case <-p.wake:
				continue
			case <-p.done:
				return
			}
		}

		if !p.present(event) {
			return
		}
	}
}

func (p *Presenter) next() (domain.GiftEvent, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.pending) == 0 {
		return domain.GiftEvent{}, false
	}
	event := p.pending[0]
	p.pending = p.pending[1:]
	metrics.QueueDepth.Set(float64(len(p.pending)))
	return event, true
}

// present runs one full reveal cycle. Returns false when the worker was
// stopped mid-cycle.
func (p *Presenter) present(event domain.GiftEvent) bool {
	start := p.clock.Now()

	p.publisher.Publish(domain.TopicOpen, event)
	if !p.wait(time.Duration(event.AnimationTimeInMilliseconds) * time.Millisecond) {
		return false
	}

	p.publisher.Publish(domain.TopicClose, nil)
	if !p.wait(settleDelay) {
		return false
	}

	metrics.PresentationsTotal.Inc()
	metrics.PresentationDuration.Observe(p.clock.Since(start).Seconds())
	return true
}

func (p *Presenter) wait(d time.Duration) bool {
	timer := p.clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.Chan():
		return true
	case <-p.done:
		return false
	}
}
