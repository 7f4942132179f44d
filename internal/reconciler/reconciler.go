package reconciler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/josh-kwaku/pix-relay/internal/domain"
	"github.com/josh-kwaku/pix-relay/internal/gateway"
	"github.com/josh-kwaku/pix-relay/internal/logging"
	"github.com/shopspring/decimal"
)

type statusChecker interface {
	CheckStatus(ctx context.Context, transactionID string) (*gateway.Status, error)
}

type ledger interface {
	UpdateStatus(ctx context.Context, upd domain.StatusUpdate) (*domain.UpdateOutcome, error)
}

type creditRule interface {
	CreditForPaid(paid decimal.Decimal) decimal.Decimal
}

type eventPublisher interface {
	Publish(ctx context.Context, evt domain.PaymentEvent) error
}

type State string

const (
	StateIdle      State = "idle"
	StateChecking  State = "checking"
	StateCompleted State = "completed"
	StateTimeout   State = "timeout"
)

// Watch describes a charge to poll. PaidAmount is what the payer is assumed
// to have paid; the credit rule turns it into the balance credit.
type Watch struct {
	Ref        string
	UserID     uuid.UUID
	PaidAmount decimal.Decimal
}

type Snapshot struct {
	Ref          string    `json:"ref"`
	State        State     `json:"state"`
	Attempts     int       `json:"attempts"`
	MaxAttempts  int       `json:"maxAttempts"`
	VendorStatus string    `json:"vendorStatus,omitempty"`
	StartedAt    time.Time `json:"startedAt"`
}

type job struct {
	watch     Watch
	task      *Task
	startedAt time.Time

	mu           sync.Mutex
	state        State
	vendorStatus string
}

func (j *job) set(state State, vendorStatus string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if state != "" {
		j.state = state
	}
	if vendorStatus != "" {
		j.vendorStatus = vendorStatus
	}
}

// Reconciler polls the vendor for each pending charge and settles paid ones
// through the ledger. There is at most one live job per charge.
type Reconciler struct {
	checker     statusChecker
	ledger      ledger
	rules       creditRule
	events      eventPublisher
	interval    time.Duration
	maxAttempts int
	retention   time.Duration
	newTicker   TickerFactory

	mu   sync.Mutex
	jobs map[string]*job
}

// DefaultRetention is how long a finished job stays visible to State and
// Confirm before it is evicted.
const DefaultRetention = 10 * time.Minute

type Option func(*Reconciler)

func WithTicker(f TickerFactory) Option {
	return func(r *Reconciler) { r.newTicker = f }
}

func WithEvents(p eventPublisher) Option {
	return func(r *Reconciler) { r.events = p }
}

func WithRetention(d time.Duration) Option {
	return func(r *Reconciler) { r.retention = d }
}

func New(checker statusChecker, l ledger, rules creditRule, interval time.Duration, maxAttempts int, opts ...Option) *Reconciler {
	r := &Reconciler{
		checker:     checker,
		ledger:      l,
		rules:       rules,
		interval:    interval,
		maxAttempts: maxAttempts,
		retention:   DefaultRetention,
		newTicker:   NewStdTicker,
		jobs:        make(map[string]*job),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Watch starts polling w.Ref, replacing any earlier job for the same charge.
// The previous job is fully stopped before the new one starts.
func (r *Reconciler) Watch(ctx context.Context, w Watch) error {
	if w.Ref == "" {
		return fmt.Errorf("Watch: %w", domain.ErrMissingTransactionID)
	}

	ctx = logging.WithAttrs(context.WithoutCancel(ctx), "charge_id", w.Ref)
	j := &job{watch: w, state: StateChecking, startedAt: time.Now().UTC()}
	j.task = NewTask(r.interval, r.maxAttempts, r.tickFor(j), r.expireFor(j), r.newTicker)

	r.mu.Lock()
	prev := r.jobs[w.Ref]
	r.jobs[w.Ref] = j
	r.mu.Unlock()

	if prev != nil {
		prev.task.Stop()
	}
	j.task.Start(ctx)
	go r.evictWhenDone(j)

	logging.FromContext(ctx).Info("payment polling started",
		"interval", r.interval,
		"max_attempts", r.maxAttempts,
	)
	return nil
}

// evictWhenDone drops j from the job table once its loop has exited and the
// retention window has passed. A newer job for the same charge is left alone.
func (r *Reconciler) evictWhenDone(j *job) {
	<-j.task.Done()
	time.AfterFunc(r.retention, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.jobs[j.watch.Ref] == j {
			delete(r.jobs, j.watch.Ref)
		}
	})
}

func (r *Reconciler) tickFor(j *job) TickFunc {
	return func(ctx context.Context, attempt int) bool {
		log := logging.FromContext(ctx)

		st, err := r.checker.CheckStatus(ctx, j.watch.Ref)
		if err != nil {
			if ctx.Err() == nil {
				log.Warn("payment status check failed", "attempt", attempt, "error", err)
			}
			return false
		}

		// Ledger writes must not be cut short by Stop once the vendor has answered.
		wctx := context.WithoutCancel(ctx)

		if st.Paid {
			credit := r.rules.CreditForPaid(j.watch.PaidAmount)
			out, err := r.ledger.UpdateStatus(wctx, domain.StatusUpdate{
				Ref:            j.watch.Ref,
				Status:         domain.StatusPaid,
				ProviderStatus: st.State,
				Credit:         &credit,
				UserID:         j.watch.UserID,
			})
			if err != nil {
				log.Error("failed to settle paid charge", "attempt", attempt, "error", err)
				return false
			}
			j.set(StateCompleted, st.State)
			log.Info("payment confirmed by polling",
				"attempt", attempt,
				"credited", out.Credited,
				"credit", credit.StringFixed(2),
			)
			return true
		}

		j.set("", st.State)
		// The vendor's initial PENDING says nothing the record doesn't already.
		if st.State == "" || st.State == "PENDING" {
			return false
		}

		status, ok := domain.ParseStatus(st.State)
		if !ok || status.IsPaid() {
			status = domain.StatusAwaitingConfirmation
		}
		if _, err := r.ledger.UpdateStatus(wctx, domain.StatusUpdate{
			Ref:            j.watch.Ref,
			Status:         status,
			ProviderStatus: st.State,
		}); err != nil {
			log.Warn("failed to record vendor status", "attempt", attempt, "error", err)
		}
		return false
	}
}

func (r *Reconciler) expireFor(j *job) ExpireFunc {
	return func(ctx context.Context, attempts int) {
		ctx = context.WithoutCancel(ctx)
		log := logging.FromContext(ctx)

		j.set(StateTimeout, "")
		out, err := r.ledger.UpdateStatus(ctx, domain.StatusUpdate{
			Ref:    j.watch.Ref,
			Status: domain.StatusTimedOut,
		})
		if err != nil {
			log.Error("failed to mark charge timed out", "error", err)
			return
		}
		log.Warn("payment polling timed out", "attempts", attempts)

		if r.events != nil && !out.Ignored && out.Transaction != nil {
			evt := domain.NewPaymentEvent(domain.PaymentEventChargeTimedOut, out.Transaction, j.watch.UserID, j.watch.PaidAmount)
			if err := r.events.Publish(ctx, evt); err != nil {
				log.Warn("failed to publish payment event", "event_type", evt.Type, "error", err)
			}
		}
	}
}

// Confirm is the manual override: it stops polling for ref, then credits
// through the ledger, whose paid guard prevents a second credit if a tick
// already settled the charge.
func (r *Reconciler) Confirm(ctx context.Context, ref string) (*domain.UpdateOutcome, error) {
	r.mu.Lock()
	j := r.jobs[ref]
	r.mu.Unlock()
	if j == nil {
		return nil, fmt.Errorf("Confirm %s: %w", ref, domain.ErrWatchNotFound)
	}

	j.task.Stop()

	credit := r.rules.CreditForPaid(j.watch.PaidAmount)
	out, err := r.ledger.UpdateStatus(ctx, domain.StatusUpdate{
		Ref:            ref,
		Status:         domain.StatusPaid,
		ProviderStatus: "CONFIRMADO",
		Credit:         &credit,
		UserID:         j.watch.UserID,
	})
	if err != nil {
		return nil, fmt.Errorf("Confirm: %w", err)
	}
	j.set(StateCompleted, "")

	logging.FromContext(ctx).Info("payment confirmed manually",
		"charge_id", ref,
		"credited", out.Credited,
	)
	return out, nil
}

// Cancel stops polling for ref and forgets the job. It reports whether a job
// existed.
func (r *Reconciler) Cancel(ref string) bool {
	r.mu.Lock()
	j := r.jobs[ref]
	delete(r.jobs, ref)
	r.mu.Unlock()

	if j == nil {
		return false
	}
	j.task.Stop()
	return true
}

func (r *Reconciler) State(ref string) (Snapshot, bool) {
	r.mu.Lock()
	j := r.jobs[ref]
	r.mu.Unlock()

	if j == nil {
		return Snapshot{Ref: ref, State: StateIdle, MaxAttempts: r.maxAttempts}, false
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	return Snapshot{
		Ref:          ref,
		State:        j.state,
		Attempts:     j.task.Attempts(),
		MaxAttempts:  r.maxAttempts,
		VendorStatus: j.vendorStatus,
		StartedAt:    j.startedAt,
	}, true
}

// Active counts jobs whose loop is still running.
func (r *Reconciler) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, j := range r.jobs {
		if j.task.Running() {
			n++
		}
	}
	return n
}

// Shutdown stops every job and waits for their loops to exit.
func (r *Reconciler) Shutdown() {
	r.mu.Lock()
	jobs := make([]*job, 0, len(r.jobs))
	for ref, j := range r.jobs {
		jobs = append(jobs, j)
		delete(r.jobs, ref)
	}
	r.mu.Unlock()

	for _, j := range jobs {
		j.task.Stop()
	}
}
