package services

import (
	"errors"
	"testing"
	"time"

	"github.com/ErenEClk/SmartCom/models"
)

func TestCreateNotificationDefaults(t *testing.T) {
	db := newTestDB(t)
	svc := NewNotificationService(db)

	user := createTestUser(t, db, "Alice", "alice@test.local", models.RoleResident)

	notification, err := svc.Create(CreateNotificationInput{
		UserID:  user.ID,
		Title:   "Water outage",
		Message: "Maintenance on Tuesday.",
		Type:    models.NotificationMaintenance,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if notification.Priority != models.PriorityMedium {
		t.Errorf("priority = %q, want %q", notification.Priority, models.PriorityMedium)
	}
	if notification.IsRead {
		t.Error("new notification should start unread")
	}

	if _, err := svc.Create(CreateNotificationInput{UserID: 0, Title: "x"}); !errors.Is(err, ErrInvalidIdentifier) {
		t.Errorf("zero user: got %v, want ErrInvalidIdentifier", err)
	}
	if _, err := svc.Create(CreateNotificationInput{UserID: 9999, Title: "x"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown user: got %v, want ErrNotFound", err)
	}
}

func TestGetForUserHidesArchivedAndExpired(t *testing.T) {
	db := newTestDB(t)
	svc := NewNotificationService(db)

	user := createTestUser(t, db, "Alice", "alice@test.local", models.RoleResident)

	visible, err := svc.Create(CreateNotificationInput{UserID: user.ID, Title: "Visible", Type: models.NotificationSystem})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	past := time.Now().Add(-time.Hour)
	if _, err := svc.Create(CreateNotificationInput{UserID: user.ID, Title: "Expired", Type: models.NotificationSystem, ExpiresAt: &past}); err != nil {
		t.Fatalf("create expired: %v", err)
	}

	archived, err := svc.Create(CreateNotificationInput{UserID: user.ID, Title: "Archived", Type: models.NotificationSystem})
	if err != nil {
		t.Fatalf("create archived: %v", err)
	}
	db.Model(archived).Update("is_archived", true)

	notifications, err := svc.GetForUser(user.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(notifications) != 1 {
		t.Fatalf("got %d notifications, want 1", len(notifications))
	}
	if notifications[0].ID != visible.ID {
		t.Errorf("listed notification %d, want %d", notifications[0].ID, visible.ID)
	}
}

func TestGetNotificationByIDHidesExpired(t *testing.T) {
	db := newTestDB(t)
	svc := NewNotificationService(db)

	user := createTestUser(t, db, "Alice", "alice@test.local", models.RoleResident)
	admin := createTestUser(t, db, "Root", "root@test.local", models.RoleAdmin)

	past := time.Now().Add(-time.Hour)
	expired, err := svc.Create(CreateNotificationInput{UserID: user.ID, Title: "Expired", Type: models.NotificationSystem, ExpiresAt: &past})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.GetByID(expired.ID, user.ID, false); !errors.Is(err, ErrNotFound) {
		t.Errorf("owner fetch of expired: got %v, want ErrNotFound", err)
	}
	if _, err := svc.GetByID(expired.ID, admin.ID, true); err != nil {
		t.Errorf("admin fetch of expired: %v", err)
	}
}

func TestNotificationOwnership(t *testing.T) {
	db := newTestDB(t)
	svc := NewNotificationService(db)

	alice := createTestUser(t, db, "Alice", "alice@test.local", models.RoleResident)
	bob := createTestUser(t, db, "Bob", "bob@test.local", models.RoleResident)
	admin := createTestUser(t, db, "Admin", "admin@test.local", models.RoleAdmin)

	notification, err := svc.Create(CreateNotificationInput{UserID: alice.ID, Title: "Hello", Type: models.NotificationSystem})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.GetByID(notification.ID, bob.ID, false); !errors.Is(err, ErrForbidden) {
		t.Errorf("other user read: got %v, want ErrForbidden", err)
	}
	if _, err := svc.GetByID(notification.ID, admin.ID, true); err != nil {
		t.Errorf("admin read: %v", err)
	}
	if _, err := svc.MarkAsRead(notification.ID, bob.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("other user mark read: got %v, want ErrForbidden", err)
	}
	if err := svc.Delete(notification.ID, bob.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("other user delete: got %v, want ErrForbidden", err)
	}

	if err := svc.Delete(notification.ID, alice.ID); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	if _, err := svc.GetByID(notification.ID, alice.ID, false); !errors.Is(err, ErrNotFound) {
		t.Errorf("read after delete: got %v, want ErrNotFound", err)
	}
}

func TestMarkAllNotificationsAsRead(t *testing.T) {
	db := newTestDB(t)
	svc := NewNotificationService(db)

	user := createTestUser(t, db, "Alice", "alice@test.local", models.RoleResident)

	for i := 0; i < 4; i++ {
		if _, err := svc.Create(CreateNotificationInput{UserID: user.ID, Title: "n", Type: models.NotificationSystem}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	count, err := svc.MarkAllAsRead(user.ID)
	if err != nil {
		t.Fatalf("mark all: %v", err)
	}
	if count != 4 {
		t.Errorf("modified %d, want 4", count)
	}

	count, err = svc.MarkAllAsRead(user.ID)
	if err != nil {
		t.Fatalf("repeat mark all: %v", err)
	}
	if count != 0 {
		t.Errorf("repeat modified %d, want 0", count)
	}
}

func TestMarkNotificationAsReadIdempotent(t *testing.T) {
	db := newTestDB(t)
	svc := NewNotificationService(db)

	user := createTestUser(t, db, "Alice", "alice@test.local", models.RoleResident)

	notification, err := svc.Create(CreateNotificationInput{UserID: user.ID, Title: "n", Type: models.NotificationSystem})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	first, err := svc.MarkAsRead(notification.ID, user.ID)
	if err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if !first.IsRead || first.ReadAt == nil {
		t.Fatal("notification not flagged read")
	}

	second, err := svc.MarkAsRead(notification.ID, user.ID)
	if err != nil {
		t.Fatalf("repeat mark read: %v", err)
	}
	if second.ReadAt.Unix() != first.ReadAt.Unix() {
		t.Error("repeat mark read changed the read timestamp")
	}
}
