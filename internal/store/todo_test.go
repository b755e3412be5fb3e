package store

import (
	"testing"
	"time"

	"github.com/listkeep/listkeep/internal/database"
)

func setupTodoTestDB(t *testing.T) (*TodoStore, *UserStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewTodoStore(db), NewUserStore(db)
}

func TestTodoCreate(t *testing.T) {
	ts, us := setupTodoTestDB(t)
	u := createTestUser(t, us, "a@x.com", "alice1")

	todo, err := ts.Create(u.ID, "buy milk", nil)
	if err != nil {
		t.Fatalf("create todo: %v", err)
	}
	if todo.Text != "buy milk" {
		t.Errorf("text = %q, want %q", todo.Text, "buy milk")
	}
	if todo.Done {
		t.Error("new todo should not be done")
	}
	if todo.DueAt != nil {
		t.Error("expected nil due date")
	}
}

func TestTodoCreateWithDueDate(t *testing.T) {
	ts, us := setupTodoTestDB(t)
	u := createTestUser(t, us, "a@x.com", "alice1")

	due := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)
	todo, err := ts.Create(u.ID, "file taxes", &due)
	if err != nil {
		t.Fatalf("create todo: %v", err)
	}
	if todo.DueAt == nil || !todo.DueAt.Equal(due) {
		t.Errorf("due_at = %v, want %v", todo.DueAt, due)
	}
}

func TestTodoListPagination(t *testing.T) {
	ts, us := setupTodoTestDB(t)
	u := createTestUser(t, us, "a@x.com", "alice1")

	for i := 0; i < 7; i++ {
		if _, err := ts.Create(u.ID, "item", nil); err != nil {
			t.Fatalf("create todo: %v", err)
		}
	}

	page1, err := ts.List(u.ID, 0, 5)
	if err != nil {
		t.Fatalf("list todos: %v", err)
	}
	if len(page1) != 5 {
		t.Errorf("page 1 length = %d, want 5", len(page1))
	}

	page2, err := ts.List(u.ID, 5, 5)
	if err != nil {
		t.Fatalf("list todos: %v", err)
	}
	if len(page2) != 2 {
		t.Errorf("page 2 length = %d, want 2", len(page2))
	}
}

func TestTodoListScopedToUser(t *testing.T) {
	ts, us := setupTodoTestDB(t)
	alice := createTestUser(t, us, "a@x.com", "alice1")
	bob := createTestUser(t, us, "b@x.com", "bobby1")

	ts.Create(alice.ID, "alice item", nil)
	ts.Create(bob.ID, "bob item", nil)

	todos, err := ts.List(alice.ID, 0, 10)
	if err != nil {
		t.Fatalf("list todos: %v", err)
	}
	if len(todos) != 1 || todos[0].Text != "alice item" {
		t.Errorf("unexpected list: %+v", todos)
	}
}

func TestTodoUpdate(t *testing.T) {
	ts, us := setupTodoTestDB(t)
	u := createTestUser(t, us, "a@x.com", "alice1")

	todo, _ := ts.Create(u.ID, "old text", nil)

	updated, err := ts.Update(todo.ID, u.ID, "new text", true, nil)
	if err != nil {
		t.Fatalf("update todo: %v", err)
	}
	if updated == nil {
		t.Fatal("expected updated todo")
	}
	if updated.Text != "new text" || !updated.Done {
		t.Errorf("updated = %+v", updated)
	}
}

func TestTodoUpdateWrongUser(t *testing.T) {
	ts, us := setupTodoTestDB(t)
	alice := createTestUser(t, us, "a@x.com", "alice1")
	bob := createTestUser(t, us, "b@x.com", "bobby1")

	todo, _ := ts.Create(alice.ID, "alice item", nil)

	updated, err := ts.Update(todo.ID, bob.ID, "hijacked", false, nil)
	if err != nil {
		t.Fatalf("update todo: %v", err)
	}
	if updated != nil {
		t.Error("bob should not be able to update alice's todo")
	}

	got, _ := ts.GetForUser(todo.ID, alice.ID)
	if got.Text != "alice item" {
		t.Errorf("text = %q, want unchanged", got.Text)
	}
}

func TestTodoToggleDone(t *testing.T) {
	ts, us := setupTodoTestDB(t)
	u := createTestUser(t, us, "a@x.com", "alice1")

	todo, _ := ts.Create(u.ID, "item", nil)

	toggled, err := ts.ToggleDone(todo.ID, u.ID)
	if err != nil {
		t.Fatalf("toggle todo: %v", err)
	}
	if !toggled.Done {
		t.Error("expected done after toggle")
	}

	toggled, err = ts.ToggleDone(todo.ID, u.ID)
	if err != nil {
		t.Fatalf("toggle todo: %v", err)
	}
	if toggled.Done {
		t.Error("expected not done after second toggle")
	}
}

func TestTodoDelete(t *testing.T) {
	ts, us := setupTodoTestDB(t)
	u := createTestUser(t, us, "a@x.com", "alice1")

	todo, _ := ts.Create(u.ID, "item", nil)

	ok, err := ts.Delete(todo.ID, u.ID)
	if err != nil {
		t.Fatalf("delete todo: %v", err)
	}
	if !ok {
		t.Error("expected delete to report a removed row")
	}

	got, _ := ts.GetForUser(todo.ID, u.ID)
	if got != nil {
		t.Error("expected nil after delete")
	}
}

func TestTodoDeleteWrongUser(t *testing.T) {
	ts, us := setupTodoTestDB(t)
	alice := createTestUser(t, us, "a@x.com", "alice1")
	bob := createTestUser(t, us, "b@x.com", "bobby1")

	todo, _ := ts.Create(alice.ID, "alice item", nil)

	ok, err := ts.Delete(todo.ID, bob.ID)
	if err != nil {
		t.Fatalf("delete todo: %v", err)
	}
	if ok {
		t.Error("bob should not be able to delete alice's todo")
	}
}

func TestTodoListDueForReminder(t *testing.T) {
	ts, us := setupTodoTestDB(t)
	u := createTestUser(t, us, "a@x.com", "alice1")

	past := time.Now().Add(-time.Hour).UTC()
	future := time.Now().Add(48 * time.Hour).UTC()

	overdue, _ := ts.Create(u.ID, "overdue", &past)
	ts.Create(u.ID, "far future", &future)
	ts.Create(u.ID, "no due date", nil)

	due, err := ts.ListDueForReminder(time.Now())
	if err != nil {
		t.Fatalf("list due: %v", err)
	}
	if len(due) != 1 || due[0].ID != overdue.ID {
		t.Errorf("unexpected due list: %+v", due)
	}

	if err := ts.MarkReminded(overdue.ID); err != nil {
		t.Fatalf("mark reminded: %v", err)
	}
	due, err = ts.ListDueForReminder(time.Now())
	if err != nil {
		t.Fatalf("list due: %v", err)
	}
	if len(due) != 0 {
		t.Error("reminded todo should not be listed again")
	}
}
