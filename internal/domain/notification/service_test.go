package notification

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
)

type fakeRepo struct {
	created   []*Notification
	createErr error
}

func (f *fakeRepo) Create(ctx context.Context, n *Notification) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, n)
	return nil
}

func (f *fakeRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Notification, error) {
	out := make([]*Notification, 0)
	for _, n := range f.created {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeRepo) CountUnreadByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	count := 0
	for _, n := range f.created {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (f *fakeRepo) MarkAsRead(ctx context.Context, id, userID uuid.UUID) error {
	for _, n := range f.created {
		if n.ID == id && n.UserID == userID {
			n.IsRead = true
			return nil
		}
	}
	return ErrNotFound
}

func (f *fakeRepo) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	for _, n := range f.created {
		if n.UserID == userID {
			n.IsRead = true
		}
	}
	return nil
}

func TestNotifyRecordsTransferEvent(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo)
	userID := uuid.New()
	transferID := uuid.New()

	svc.Notify(context.Background(), userID, TypeTransferReceived,
		"You received a credit transfer", "3 vocal credits are waiting for you",
		&NotificationData{TransferID: &transferID, CreditType: "vocal", CreditsAmount: 3})

	if len(repo.created) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(repo.created))
	}
	n := repo.created[0]
	if n.UserID != userID || n.Type != TypeTransferReceived {
		t.Fatalf("unexpected notification: %+v", n)
	}
	if len(n.Data) == 0 {
		t.Fatal("expected data payload to be set")
	}

	var data NotificationData
	if err := json.Unmarshal(n.Data, &data); err != nil {
		t.Fatalf("decode data failed: %v", err)
	}
	if data.TransferID == nil || *data.TransferID != transferID || data.CreditsAmount != 3 {
		t.Fatalf("unexpected data payload: %+v", data)
	}
}

func TestNotifySwallowsRepositoryErrors(t *testing.T) {
	repo := &fakeRepo{createErr: errors.New("insert failed")}
	svc := NewService(repo)

	// Must not panic or surface the error to the caller.
	svc.Notify(context.Background(), uuid.New(), TypeTransferAccepted, "Transfer accepted", "", nil)
}

func TestUnreadCountAndMarkRead(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo)
	userID := uuid.New()

	svc.Notify(context.Background(), userID, TypeTransferReceived, "first", "", nil)
	svc.Notify(context.Background(), userID, TypeTransferRejected, "second", "", nil)

	count, err := svc.UnreadCount(context.Background(), userID)
	if err != nil {
		t.Fatalf("unread count failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 unread, got %d", count)
	}

	if err := svc.MarkRead(context.Background(), repo.created[0].ID, userID); err != nil {
		t.Fatalf("mark read failed: %v", err)
	}
	count, _ = svc.UnreadCount(context.Background(), userID)
	if count != 1 {
		t.Fatalf("expected 1 unread after mark, got %d", count)
	}

	if err := svc.MarkRead(context.Background(), uuid.New(), userID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign id, got %v", err)
	}

	if err := svc.MarkAllRead(context.Background(), userID); err != nil {
		t.Fatalf("mark all read failed: %v", err)
	}
	count, _ = svc.UnreadCount(context.Background(), userID)
	if count != 0 {
		t.Fatalf("expected 0 unread after mark all, got %d", count)
	}
}
