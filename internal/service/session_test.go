package service

import (
	"context"
	"testing"
	"time"
)

func TestTrackCreatesFirstSession(t *testing.T) {
	store := newFakeSessionStore()
	svc := NewSessionService(store, time.Hour)

	session, err := svc.Track(context.Background(), 1, "10.0.0.1", "agent-x")
	if err != nil {
		t.Fatalf("Track() unexpected error: %v", err)
	}

	if session.ID == 0 {
		t.Error("new session should have an ID")
	}
	if session.UUID.String() == "00000000-0000-0000-0000-000000000000" {
		t.Error("new session should have a random uuid")
	}
	if session.IP != "10.0.0.1" || session.UserAgent != "agent-x" {
		t.Errorf("session fingerprint = (%q, %q), want (10.0.0.1, agent-x)", session.IP, session.UserAgent)
	}
	if session.ExpiresAt.Before(session.CreatedAt) {
		t.Error("expires_at must not precede created_at")
	}
}

func TestTrackExtendsSameFingerprint(t *testing.T) {
	store := newFakeSessionStore()
	svc := NewSessionService(store, time.Hour)
	ctx := context.Background()

	first, err := svc.Track(ctx, 1, "10.0.0.1", "agent-x")
	if err != nil {
		t.Fatalf("Track() unexpected error: %v", err)
	}

	second, err := svc.Track(ctx, 1, "10.0.0.1", "agent-x")
	if err != nil {
		t.Fatalf("Track() unexpected error: %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("same fingerprint should reuse session %d, got %d", first.ID, second.ID)
	}
	if second.ExpiresAt.Before(first.ExpiresAt) {
		t.Error("reused session should have a refreshed expiry window")
	}
}

func TestTrackNewSessionOnFingerprintChange(t *testing.T) {
	store := newFakeSessionStore()
	svc := NewSessionService(store, time.Hour)
	ctx := context.Background()

	first, err := svc.Track(ctx, 1, "10.0.0.1", "agent-x")
	if err != nil {
		t.Fatalf("Track() unexpected error: %v", err)
	}

	otherUA, err := svc.Track(ctx, 1, "10.0.0.1", "agent-y")
	if err != nil {
		t.Fatalf("Track() unexpected error: %v", err)
	}
	if otherUA.ID == first.ID {
		t.Error("changed user agent should create a new session")
	}

	otherIP, err := svc.Track(ctx, 1, "10.0.0.2", "agent-y")
	if err != nil {
		t.Fatalf("Track() unexpected error: %v", err)
	}
	if otherIP.ID == otherUA.ID {
		t.Error("changed ip should create a new session")
	}
}

func TestTrackNewSessionAfterClose(t *testing.T) {
	store := newFakeSessionStore()
	svc := NewSessionService(store, time.Hour)
	ctx := context.Background()

	first, err := svc.Track(ctx, 1, "10.0.0.1", "agent-x")
	if err != nil {
		t.Fatalf("Track() unexpected error: %v", err)
	}
	if err := svc.Close(ctx, first); err != nil {
		t.Fatalf("Close() unexpected error: %v", err)
	}

	second, err := svc.Track(ctx, 1, "10.0.0.1", "agent-x")
	if err != nil {
		t.Fatalf("Track() unexpected error: %v", err)
	}
	if second.ID == first.ID {
		t.Error("a closed session must not be reused, even for the same fingerprint")
	}
}

func TestExtendClosedSession(t *testing.T) {
	store := newFakeSessionStore()
	svc := NewSessionService(store, time.Hour)
	ctx := context.Background()

	session, err := svc.CreateForUser(ctx, 1, "10.0.0.1", "agent-x")
	if err != nil {
		t.Fatalf("CreateForUser() unexpected error: %v", err)
	}
	if err := svc.Close(ctx, session); err != nil {
		t.Fatalf("Close() unexpected error: %v", err)
	}

	if _, err := svc.Extend(ctx, session, time.Hour); err != ErrSessionClosed {
		t.Errorf("expected ErrSessionClosed, got %v", err)
	}
}

func TestUpdateLastActivity(t *testing.T) {
	store := newFakeSessionStore()
	svc := NewSessionService(store, time.Hour)
	ctx := context.Background()

	session, err := svc.CreateForUser(ctx, 1, "10.0.0.1", "agent-x")
	if err != nil {
		t.Fatalf("CreateForUser() unexpected error: %v", err)
	}
	before := session.LastActivityAt

	time.Sleep(time.Millisecond)
	if err := svc.UpdateLastActivity(ctx, session); err != nil {
		t.Fatalf("UpdateLastActivity() unexpected error: %v", err)
	}

	stored, err := svc.Find(ctx, session.ID)
	if err != nil {
		t.Fatalf("Find() unexpected error: %v", err)
	}
	if !stored.LastActivityAt.After(before) {
		t.Error("last_activity_at should have moved forward")
	}
}

func TestLatestNoSessions(t *testing.T) {
	svc := NewSessionService(newFakeSessionStore(), time.Hour)

	session, err := svc.Latest(context.Background(), 1)
	if err != nil {
		t.Fatalf("Latest() unexpected error: %v", err)
	}
	if session != nil {
		t.Errorf("Latest() = %+v, want nil for a user with no sessions", session)
	}
}

func TestCloseStale(t *testing.T) {
	store := newFakeSessionStore()
	live := NewSessionService(store, time.Hour)
	ctx := context.Background()

	expired, err := live.CreateForUser(ctx, 1, "10.0.0.1", "agent-x")
	if err != nil {
		t.Fatalf("CreateForUser() unexpected error: %v", err)
	}
	// Age the first session past its window.
	if err := store.Extend(ctx, expired.ID, time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("Extend() unexpected error: %v", err)
	}

	open, err := live.CreateForUser(ctx, 2, "10.0.0.2", "agent-y")
	if err != nil {
		t.Fatalf("CreateForUser() unexpected error: %v", err)
	}

	closed, err := live.CloseStale(ctx, 100)
	if err != nil {
		t.Fatalf("CloseStale() unexpected error: %v", err)
	}
	if closed != 1 {
		t.Errorf("CloseStale() closed %d sessions, want 1", closed)
	}

	staleRow, err := live.Find(ctx, expired.ID)
	if err != nil {
		t.Fatalf("Find() unexpected error: %v", err)
	}
	if !staleRow.Closed() {
		t.Error("expired session should be closed after sweep")
	}

	openRow, err := live.Find(ctx, open.ID)
	if err != nil {
		t.Fatalf("Find() unexpected error: %v", err)
	}
	if openRow.Closed() {
		t.Error("unexpired session should stay open after sweep")
	}
}
