package service

import (
	"context"
	"testing"
	"time"

	"signalapp/internal/config"
	"signalapp/internal/models"
)

func newSignalService(repo *stubRepo) *SignalService {
	return &SignalService{
		Repo: repo,
		Config: config.SignalsConfig{
			TTL:         5 * time.Minute,
			InboxWindow: 5 * time.Minute,
		},
	}
}

func seedProfiles(repo *stubRepo, ids ...string) {
	for _, id := range ids {
		repo.profiles[id] = models.Profile{ID: id}
	}
}

func TestSignalCreate(t *testing.T) {
	repo := newStubRepo()
	seedProfiles(repo, "alice", "bob")
	svc := newSignalService(repo)
	ctx := context.Background()

	sig, err := svc.Create(ctx, "alice", "bob", strPtr("hey"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if sig.Status != models.SignalStatusPending {
		t.Fatalf("status=%s want pending", sig.Status)
	}
	if got := sig.ExpiresAt.Sub(sig.CreatedAt); got != 5*time.Minute {
		t.Fatalf("ttl=%v want 5m", got)
	}
	if sig.ID == "" {
		t.Fatalf("missing id")
	}
}

func TestSignalCreate_Rejections(t *testing.T) {
	repo := newStubRepo()
	seedProfiles(repo, "alice")
	svc := newSignalService(repo)
	ctx := context.Background()

	if _, err := svc.Create(ctx, "alice", "alice", nil); err != ErrSelfSignal {
		t.Fatalf("self signal err=%v want ErrSelfSignal", err)
	}
	if _, err := svc.Create(ctx, "alice", "ghost", nil); err != ErrUnknownRecipient {
		t.Fatalf("unknown recipient err=%v want ErrUnknownRecipient", err)
	}
}

func TestSignalCreate_DuplicatePendingAllowed(t *testing.T) {
	repo := newStubRepo()
	seedProfiles(repo, "alice", "bob")
	svc := newSignalService(repo)
	ctx := context.Background()

	first, err := svc.Create(ctx, "alice", "bob", nil)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := svc.Create(ctx, "alice", "bob", nil)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if first.ID == second.ID {
		t.Fatalf("duplicate create reused id")
	}
}

func TestSignalRespond(t *testing.T) {
	repo := newStubRepo()
	seedProfiles(repo, "alice", "bob")
	svc := newSignalService(repo)
	ctx := context.Background()

	sig, _ := svc.Create(ctx, "alice", "bob", nil)

	if _, err := svc.Respond(ctx, sig.ID, "bob", "maybe"); err != ErrInvalidResponse {
		t.Fatalf("invalid response err=%v want ErrInvalidResponse", err)
	}
	if _, err := svc.Respond(ctx, sig.ID, "carol", models.SignalStatusAccepted); err != ErrNotRecipient {
		t.Fatalf("wrong actor err=%v want ErrNotRecipient", err)
	}
	if _, err := svc.Respond(ctx, "nope", "bob", models.SignalStatusAccepted); err != ErrSignalNotFound {
		t.Fatalf("missing id err=%v want ErrSignalNotFound", err)
	}

	got, err := svc.Respond(ctx, sig.ID, "bob", models.SignalStatusAccepted)
	if err != nil {
		t.Fatalf("respond: %v", err)
	}
	if got.Status != models.SignalStatusAccepted {
		t.Fatalf("status=%s want accepted", got.Status)
	}
}

func TestSignalTerminalStatesAreImmutable(t *testing.T) {
	repo := newStubRepo()
	seedProfiles(repo, "alice", "bob")
	svc := newSignalService(repo)
	ctx := context.Background()

	sig, _ := svc.Create(ctx, "alice", "bob", nil)
	if _, err := svc.Respond(ctx, sig.ID, "bob", models.SignalStatusAccepted); err != nil {
		t.Fatalf("accept: %v", err)
	}

	// Exactly one transition wins; every later attempt reports the conflict.
	if _, err := svc.Respond(ctx, sig.ID, "bob", models.SignalStatusIgnored); err != ErrAlreadyResolved {
		t.Fatalf("re-respond err=%v want ErrAlreadyResolved", err)
	}
	if _, err := svc.Cancel(ctx, sig.ID, "alice"); err != ErrAlreadyResolved {
		t.Fatalf("cancel after accept err=%v want ErrAlreadyResolved", err)
	}

	stored, _ := repo.GetSignalByID(ctx, sig.ID)
	if stored.Status != models.SignalStatusAccepted {
		t.Fatalf("terminal status overwritten to %s", stored.Status)
	}
}

func TestSignalCancel(t *testing.T) {
	repo := newStubRepo()
	seedProfiles(repo, "alice", "bob")
	svc := newSignalService(repo)
	ctx := context.Background()

	sig, _ := svc.Create(ctx, "alice", "bob", nil)

	if _, err := svc.Cancel(ctx, sig.ID, "bob"); err != ErrNotSender {
		t.Fatalf("recipient cancel err=%v want ErrNotSender", err)
	}
	got, err := svc.Cancel(ctx, sig.ID, "alice")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got.Status != models.SignalStatusIgnored {
		t.Fatalf("status=%s want ignored", got.Status)
	}
}

func TestSignalExpireSweep_Idempotent(t *testing.T) {
	repo := newStubRepo()
	seedProfiles(repo, "alice", "bob")
	svc := newSignalService(repo)
	ctx := context.Background()

	sig, _ := svc.Create(ctx, "alice", "bob", nil)
	fresh, _ := svc.Create(ctx, "alice", "bob", nil)

	at := sig.ExpiresAt.Add(time.Second)
	// Push the second signal's horizon out so only the first is due.
	mutated := repo.signals[fresh.ID]
	mutated.ExpiresAt = at.Add(time.Hour)
	repo.signals[fresh.ID] = mutated

	n, err := svc.ExpireDue(ctx, at)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("expired=%d want 1", n)
	}
	stored, _ := repo.GetSignalByID(ctx, sig.ID)
	if stored.Status != models.SignalStatusExpired {
		t.Fatalf("status=%s want expired", stored.Status)
	}

	n, err = svc.ExpireDue(ctx, at)
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if n != 0 {
		t.Fatalf("second sweep expired=%d want 0", n)
	}
}

func TestSignalExpireSweep_SkipsResolved(t *testing.T) {
	repo := newStubRepo()
	seedProfiles(repo, "alice", "bob")
	svc := newSignalService(repo)
	ctx := context.Background()

	sig, _ := svc.Create(ctx, "alice", "bob", nil)
	if _, err := svc.Respond(ctx, sig.ID, "bob", models.SignalStatusAccepted); err != nil {
		t.Fatalf("accept: %v", err)
	}

	n, err := svc.ExpireDue(ctx, sig.ExpiresAt.Add(time.Second))
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 0 {
		t.Fatalf("sweep touched a resolved signal")
	}
	stored, _ := repo.GetSignalByID(ctx, sig.ID)
	if stored.Status != models.SignalStatusAccepted {
		t.Fatalf("status=%s want accepted", stored.Status)
	}
}

func TestSignalIncoming_WindowAndStatus(t *testing.T) {
	repo := newStubRepo()
	seedProfiles(repo, "alice", "bob")
	svc := newSignalService(repo)
	ctx := context.Background()

	fresh, _ := svc.Create(ctx, "alice", "bob", nil)

	old, _ := svc.Create(ctx, "alice", "bob", nil)
	mutated := repo.signals[old.ID]
	mutated.CreatedAt = time.Now().UTC().Add(-10 * time.Minute)
	repo.signals[old.ID] = mutated

	resolved, _ := svc.Create(ctx, "alice", "bob", nil)
	if _, err := svc.Respond(ctx, resolved.ID, "bob", models.SignalStatusIgnored); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	items, err := svc.Incoming(ctx, "bob")
	if err != nil {
		t.Fatalf("incoming: %v", err)
	}
	if len(items) != 1 || items[0].ID != fresh.ID {
		t.Fatalf("incoming=%+v want only the fresh pending", items)
	}
}

func TestSignalOutgoing_HidesExpired(t *testing.T) {
	repo := newStubRepo()
	seedProfiles(repo, "alice", "bob")
	svc := newSignalService(repo)
	ctx := context.Background()

	kept, _ := svc.Create(ctx, "alice", "bob", nil)
	gone, _ := svc.Create(ctx, "alice", "bob", nil)
	mutated := repo.signals[gone.ID]
	mutated.ExpiresAt = time.Now().UTC().Add(-time.Second)
	repo.signals[gone.ID] = mutated
	if _, err := svc.ExpireDue(ctx, time.Now().UTC()); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	items, err := svc.Outgoing(ctx, "alice")
	if err != nil {
		t.Fatalf("outgoing: %v", err)
	}
	if len(items) != 1 || items[0].ID != kept.ID {
		t.Fatalf("outgoing=%+v want only the live signal", items)
	}
}
