package push

import (
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/listkeep/listkeep/internal/database"
	"github.com/listkeep/listkeep/internal/model"
	"github.com/listkeep/listkeep/internal/store"
)

func TestGenerateVAPIDKeys(t *testing.T) {
	pub, priv, err := GenerateVAPIDKeys()
	if err != nil {
		t.Fatalf("generate keys: %v", err)
	}

	pubBytes, err := base64.RawURLEncoding.DecodeString(pub)
	if err != nil {
		t.Fatalf("decode public key: %v", err)
	}
	// Uncompressed P-256 point: 0x04 || X || Y
	if len(pubBytes) != 65 {
		t.Errorf("public key length = %d, want 65", len(pubBytes))
	}

	if _, err := base64.RawURLEncoding.DecodeString(priv); err != nil {
		t.Fatalf("decode private key: %v", err)
	}
}

func TestGenerateVAPIDKeysUnique(t *testing.T) {
	pub1, _, err := GenerateVAPIDKeys()
	if err != nil {
		t.Fatalf("generate keys: %v", err)
	}
	pub2, _, err := GenerateVAPIDKeys()
	if err != nil {
		t.Fatalf("generate keys: %v", err)
	}
	if pub1 == pub2 {
		t.Error("expected unique key pairs")
	}
}

type fakeSender struct {
	sent    []string
	expired map[string]bool
}

func (f *fakeSender) Send(sub *model.PushSubscription, payload Payload) error {
	if f.expired[sub.Endpoint] {
		return ErrExpired
	}
	f.sent = append(f.sent, sub.Endpoint)
	return nil
}

func setupSchedulerTest(t *testing.T) (*Scheduler, *fakeSender, *store.TodoStore, *store.PushStore, *store.UserStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	todos := store.NewTodoStore(db)
	subs := store.NewPushStore(db)
	users := store.NewUserStore(db)
	sender := &fakeSender{expired: make(map[string]bool)}

	sched := &Scheduler{
		service:  sender,
		todos:    todos,
		subs:     subs,
		interval: time.Minute,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	return sched, sender, todos, subs, users
}

func TestSchedulerTickSendsReminder(t *testing.T) {
	sched, sender, todos, subs, users := setupSchedulerTest(t)

	u, err := users.Create("Alice", "a@x.com", "alice1", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	subs.Create(u.ID, "https://push.example/ep1", "k", "a", "laptop")

	past := time.Now().Add(-time.Minute).UTC()
	todo, _ := todos.Create(u.ID, "water plants", &past)

	sched.tick()

	if len(sender.sent) != 1 || sender.sent[0] != "https://push.example/ep1" {
		t.Errorf("sent = %v, want one reminder to ep1", sender.sent)
	}

	// A second tick must not re-remind.
	sender.sent = nil
	sched.tick()
	if len(sender.sent) != 0 {
		t.Errorf("sent = %v, want no repeat reminders", sender.sent)
	}

	_ = todo
}

func TestSchedulerPrunesExpiredSubscription(t *testing.T) {
	sched, sender, todos, subs, users := setupSchedulerTest(t)

	u, err := users.Create("Alice", "a@x.com", "alice1", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	subs.Create(u.ID, "https://push.example/gone", "k", "a", "laptop")
	sender.expired["https://push.example/gone"] = true

	past := time.Now().Add(-time.Minute).UTC()
	todos.Create(u.ID, "water plants", &past)

	sched.tick()

	remaining, err := subs.ListByUser(u.ID)
	if err != nil {
		t.Fatalf("list subscriptions: %v", err)
	}
	if len(remaining) != 0 {
		t.Error("expired subscription should be pruned")
	}
}

func TestSchedulerMarksRemindedWithoutSubscriptions(t *testing.T) {
	sched, sender, todos, _, users := setupSchedulerTest(t)

	u, err := users.Create("Alice", "a@x.com", "alice1", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	past := time.Now().Add(-time.Minute).UTC()
	todos.Create(u.ID, "water plants", &past)

	sched.tick()
	sched.tick()

	if len(sender.sent) != 0 {
		t.Errorf("sent = %v, want none", sender.sent)
	}
	due, _ := todos.ListDueForReminder(time.Now())
	if len(due) != 0 {
		t.Error("todo without subscriptions should still be marked reminded")
	}
}

func TestSchedulerSendFailureStillMarks(t *testing.T) {
	sched, _, todos, subs, users := setupSchedulerTest(t)
	sched.service = &failingSender{}

	u, _ := users.Create("Alice", "a@x.com", "alice1", "hash")
	subs.Create(u.ID, "https://push.example/ep1", "k", "a", "laptop")

	past := time.Now().Add(-time.Minute).UTC()
	todos.Create(u.ID, "water plants", &past)

	sched.tick()

	due, _ := todos.ListDueForReminder(time.Now())
	if len(due) != 0 {
		t.Error("failed send should not leave the todo re-scanned forever")
	}
}

type failingSender struct{}

func (failingSender) Send(sub *model.PushSubscription, payload Payload) error {
	return errors.New("push service down")
}
