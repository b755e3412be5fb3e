package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/listkeep/listkeep/internal/model"
	"github.com/listkeep/listkeep/internal/store"
)

// sender abstracts Service for tests.
type sender interface {
	Send(sub *model.PushSubscription, payload Payload) error
}

// Scheduler periodically scans for todos that have come due and sends a
// reminder to the owner's subscribed browsers. Each todo is reminded at
// most once.
type Scheduler struct {
	mu       sync.RWMutex
	service  sender
	todos    *store.TodoStore
	subs     *store.PushStore
	interval time.Duration
	logger   *slog.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewScheduler creates a reminder scheduler.
func NewScheduler(svc *Service, todoStore *store.TodoStore, pushStore *store.PushStore, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		service:  svc,
		todos:    todoStore,
		subs:     pushStore,
		interval: 60 * time.Second,
		logger:   logger,
	}
}

// Start begins the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick()
			}
		}
	}()
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.RLock()
	cancel := s.cancel
	done := s.done
	s.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (s *Scheduler) tick() {
	due, err := s.todos.ListDueForReminder(time.Now())
	if err != nil {
		s.logger.Error("list due todos", "error", err)
		return
	}

	for i := range due {
		s.remind(&due[i])
	}
}

func (s *Scheduler) remind(todo *model.Todo) {
	subs, err := s.subs.ListByUser(todo.UserID)
	if err != nil {
		s.logger.Error("list subscriptions", "error", err, "user_id", todo.UserID)
		return
	}

	payload := Payload{
		Title: "Todo due",
		Body:  todo.Text,
		URL:   "/dashboard",
		Tag:   fmt.Sprintf("todo-%d", todo.ID),
	}

	for i := range subs {
		sub := &subs[i]
		err := s.service.Send(sub, payload)
		if errors.Is(err, ErrExpired) {
			if derr := s.subs.DeleteByEndpoint(sub.Endpoint); derr != nil {
				s.logger.Error("prune expired subscription", "error", derr)
			}
			continue
		}
		if err != nil {
			s.logger.Error("send reminder", "error", err, "todo_id", todo.ID)
		}
	}

	// Mark even when no subscription exists so the item is not rescanned
	// every tick.
	if err := s.todos.MarkReminded(todo.ID); err != nil {
		s.logger.Error("mark reminded", "error", err, "todo_id", todo.ID)
	}
}
