package store

import (
	"testing"

	"github.com/listkeep/listkeep/internal/database"
	"github.com/listkeep/listkeep/internal/model"
)

func setupSessionTestDB(t *testing.T) (*SessionStore, *UserStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSessionStore(db), NewUserStore(db)
}

func createTestUser(t *testing.T, us *UserStore, email, username string) *model.User {
	t.Helper()
	u, err := us.Create("Test", email, username, "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func TestSessionCreate(t *testing.T) {
	ss, us := setupSessionTestDB(t)
	u := createTestUser(t, us, "a@x.com", "alice1")

	sess, err := ss.Create(u)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if len(sess.Token) != 64 {
		t.Errorf("token length = %d, want 64", len(sess.Token))
	}
	if sess.UserID != u.ID {
		t.Errorf("user id = %d, want %d", sess.UserID, u.ID)
	}
	if sess.Username != "alice1" || sess.Email != "a@x.com" {
		t.Errorf("embedded ref = %q/%q, want alice1/a@x.com", sess.Username, sess.Email)
	}
}

func TestSessionTokensUnique(t *testing.T) {
	ss, us := setupSessionTestDB(t)
	u := createTestUser(t, us, "a@x.com", "alice1")

	s1, err := ss.Create(u)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	s2, err := ss.Create(u)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if s1.Token == s2.Token {
		t.Error("expected unique tokens, got identical")
	}
}

func TestSessionGetByToken(t *testing.T) {
	ss, us := setupSessionTestDB(t)
	u := createTestUser(t, us, "a@x.com", "alice1")

	created, err := ss.Create(u)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	sess, err := ss.GetByToken(created.Token)
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if sess == nil || sess.ID != created.ID {
		t.Errorf("unexpected session: %+v", sess)
	}
}

func TestSessionGetByTokenMissing(t *testing.T) {
	ss, _ := setupSessionTestDB(t)

	sess, err := ss.GetByToken("no-such-token")
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if sess != nil {
		t.Error("expected nil for unknown token")
	}
}

func TestSessionDelete(t *testing.T) {
	ss, us := setupSessionTestDB(t)
	u := createTestUser(t, us, "a@x.com", "alice1")

	sess, err := ss.Create(u)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if err := ss.Delete(sess.ID); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	got, err := ss.GetByToken(sess.Token)
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if got != nil {
		t.Error("expected nil after delete")
	}
}

func TestSessionDeleteLeavesOthers(t *testing.T) {
	ss, us := setupSessionTestDB(t)
	u := createTestUser(t, us, "a@x.com", "alice1")

	s1, _ := ss.Create(u)
	s2, _ := ss.Create(u)

	if err := ss.Delete(s1.ID); err != nil {
		t.Fatalf("delete session: %v", err)
	}

	got, err := ss.GetByToken(s2.Token)
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if got == nil {
		t.Error("other session for same user should survive single logout")
	}
}

func TestSessionDeleteByUsername(t *testing.T) {
	ss, us := setupSessionTestDB(t)
	alice := createTestUser(t, us, "a@x.com", "alice1")
	bob := createTestUser(t, us, "b@x.com", "bobby1")

	a1, _ := ss.Create(alice)
	a2, _ := ss.Create(alice)
	b1, _ := ss.Create(bob)

	count, err := ss.DeleteByUsername("alice1")
	if err != nil {
		t.Fatalf("delete by username: %v", err)
	}
	if count != 2 {
		t.Errorf("deleted %d sessions, want 2", count)
	}

	for _, token := range []string{a1.Token, a2.Token} {
		if got, _ := ss.GetByToken(token); got != nil {
			t.Error("alice session should be destroyed")
		}
	}
	if got, _ := ss.GetByToken(b1.Token); got == nil {
		t.Error("bob's session should be untouched")
	}
}

func TestSessionDeleteExpired(t *testing.T) {
	ss, us := setupSessionTestDB(t)
	u := createTestUser(t, us, "a@x.com", "alice1")

	sess, err := ss.Create(u)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	// Force the session into the past.
	if _, err := ss.db.Exec(`UPDATE sessions SET expires_at = datetime('now', '-1 hour') WHERE id = ?`, sess.ID); err != nil {
		t.Fatalf("expire session: %v", err)
	}

	if got, _ := ss.GetByToken(sess.Token); got != nil {
		t.Error("expired session should not resolve")
	}

	count, err := ss.DeleteExpired()
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if count != 1 {
		t.Errorf("deleted %d sessions, want 1", count)
	}
}
