package usecases

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"conexbot/internal/entities"
	"conexbot/internal/interfaces"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

var (
	ErrBroadcastRunning = errors.New("a broadcast is already running")
	ErrNothingToSend    = errors.New("save a message and at least one contact first")
	ErrNotConnected     = errors.New("WhatsApp is not connected")
	ErrBroadcastBusy    = errors.New("too many broadcasts running, try again later")
)

type BroadcastProgress struct {
	Running    bool       `json:"running"`
	Cancelled  bool       `json:"cancelled"`
	Total      int        `json:"total"`
	Sent       int        `json:"sent"`
	Failed     int        `json:"failed"`
	Interval   int        `json:"interval"`
	LastError  string     `json:"lastError,omitempty"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

type broadcastJob struct {
	cancel   context.CancelFunc
	progress BroadcastProgress
}

// BroadcastService sends a user's saved message to each saved contact, one at
// a time, waiting the user's interval between sends. Jobs run on a bounded
// goroutine pool.
type BroadcastService struct {
	users    interfaces.UserStore
	provider interfaces.InstanceProvider
	usage    interfaces.UsageStore
	pool     *ants.Pool
	unit     time.Duration

	mu   sync.Mutex
	jobs map[int]*broadcastJob
}

// UsageHistoryDays is how far back Usage reports daily counters.
const UsageHistoryDays = 30

// NewBroadcastService builds the service. usage may be nil, in which case
// sends are not counted.
func NewBroadcastService(users interfaces.UserStore, provider interfaces.InstanceProvider, usage interfaces.UsageStore, workers int) (*BroadcastService, error) {
	pool, err := ants.NewPool(workers, ants.WithNonblocking(true))
	if err != nil {
		return nil, err
	}
	return &BroadcastService{
		users:    users,
		provider: provider,
		usage:    usage,
		pool:     pool,
		unit:     time.Second,
		jobs:     make(map[int]*broadcastJob),
	}, nil
}

func (s *BroadcastService) Start(ctx context.Context, who entities.Identity) (BroadcastProgress, error) {
	user, err := s.users.GetByID(ctx, who.ID)
	if err != nil {
		return BroadcastProgress{}, err
	}
	if user == nil {
		return BroadcastProgress{}, entities.ErrNotFound
	}
	message := strings.TrimSpace(user.MessageTemplate)
	if message == "" || len(user.Contacts) == 0 {
		return BroadcastProgress{}, ErrNothingToSend
	}
	if st := s.provider.Status(ctx, user.Email); !st.Success || !st.Status.Live() {
		return BroadcastProgress{}, ErrNotConnected
	}

	interval := user.MessageInterval
	if interval <= 0 {
		interval = entities.DefaultMessageInterval
	}
	contacts := append([]entities.Contact(nil), user.Contacts...)

	s.mu.Lock()
	if job, ok := s.jobs[who.ID]; ok && job.progress.Running {
		s.mu.Unlock()
		return BroadcastProgress{}, ErrBroadcastRunning
	}
	jobCtx, cancel := context.WithCancel(context.Background())
	job := &broadcastJob{
		cancel: cancel,
		progress: BroadcastProgress{
			Running:   true,
			Total:     len(contacts),
			Interval:  interval,
			StartedAt: time.Now(),
		},
	}
	s.jobs[who.ID] = job
	snapshot := job.progress
	s.mu.Unlock()

	err = s.pool.Submit(func() {
		s.run(jobCtx, who.ID, job, user.Email, message, contacts, time.Duration(interval)*s.unit)
	})
	if err != nil {
		cancel()
		s.mu.Lock()
		delete(s.jobs, who.ID)
		s.mu.Unlock()
		if errors.Is(err, ants.ErrPoolOverload) {
			return BroadcastProgress{}, ErrBroadcastBusy
		}
		return BroadcastProgress{}, err
	}

	zap.L().Info("broadcast started",
		zap.Int("user_id", who.ID), zap.Int("contacts", len(contacts)), zap.Int("interval", interval))
	return snapshot, nil
}

func (s *BroadcastService) run(ctx context.Context, userID int, job *broadcastJob, email, message string, contacts []entities.Contact, gap time.Duration) {
	defer job.cancel()

	for i, c := range contacts {
		if i > 0 {
			timer := time.NewTimer(gap)
			select {
			case <-ctx.Done():
				timer.Stop()
				s.finish(userID, job, true)
				return
			case <-timer.C:
			}
		}
		if ctx.Err() != nil {
			s.finish(userID, job, true)
			return
		}

		res := s.provider.SendText(ctx, email, c.Phone, Personalize(message, c), entities.SendTextOptions{SimulateTyping: true})
		s.mu.Lock()
		if res.Success {
			job.progress.Sent++
		} else {
			job.progress.Failed++
			job.progress.LastError = res.Error
		}
		s.mu.Unlock()
		s.record(ctx, userID, res.Success)
	}
	s.finish(userID, job, false)
}

func (s *BroadcastService) finish(userID int, job *broadcastJob, cancelled bool) {
	now := time.Now()
	s.mu.Lock()
	job.progress.Running = false
	job.progress.Cancelled = cancelled
	job.progress.FinishedAt = &now
	p := job.progress
	s.mu.Unlock()

	zap.L().Info("broadcast finished",
		zap.Int("user_id", userID), zap.Int("sent", p.Sent), zap.Int("failed", p.Failed), zap.Bool("cancelled", cancelled))
}

func (s *BroadcastService) record(ctx context.Context, userID int, delivered bool) {
	if s.usage == nil {
		return
	}
	if err := s.usage.RecordSend(context.WithoutCancel(ctx), userID, delivered); err != nil {
		zap.L().Warn("failed to record message usage", zap.Int("user_id", userID), zap.Error(err))
	}
}

// Usage reports the user's send counters for today, this month and the
// last UsageHistoryDays days.
func (s *BroadcastService) Usage(ctx context.Context, userID int) (entities.UsageSummary, error) {
	if s.usage == nil {
		return entities.UsageSummary{History: []entities.DailyUsage{}}, nil
	}
	return s.usage.Summary(ctx, userID, UsageHistoryDays)
}

// Progress returns the latest job for the user, running or finished.
func (s *BroadcastService) Progress(userID int) (BroadcastProgress, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[userID]
	if !ok {
		return BroadcastProgress{}, false
	}
	return job.progress, true
}

// Cancel stops a running job. It reports whether one was running.
func (s *BroadcastService) Cancel(userID int) bool {
	s.mu.Lock()
	job, ok := s.jobs[userID]
	running := ok && job.progress.Running
	s.mu.Unlock()
	if running {
		job.cancel()
	}
	return running
}

// Close cancels every job and releases the pool.
func (s *BroadcastService) Close() {
	s.mu.Lock()
	for _, job := range s.jobs {
		job.cancel()
	}
	s.mu.Unlock()
	s.pool.Release()
}

// Personalize fills the {nome} and {name} placeholders with the contact name.
func Personalize(message string, c entities.Contact) string {
	return strings.NewReplacer("{nome}", c.Name, "{name}", c.Name).Replace(message)
}
