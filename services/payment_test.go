package services

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ErenEClk/SmartCom/models"
)

func TestCreatePaymentDefaults(t *testing.T) {
	db := newTestDB(t)
	svc := NewPaymentService(db)

	user := createTestUser(t, db, "Alice", "alice@test.local", models.RoleResident)
	admin := createTestUser(t, db, "Admin", "admin@test.local", models.RoleAdmin)

	payment, err := svc.Create(CreatePaymentInput{
		UserID:      user.ID,
		Title:       "March dues",
		Amount:      150,
		CreatedByID: admin.ID,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if payment.Currency != "TRY" {
		t.Errorf("currency = %q, want TRY", payment.Currency)
	}
	if payment.Category != "dues" {
		t.Errorf("category = %q, want dues", payment.Category)
	}
	if payment.Status != models.PaymentStatusPending {
		t.Errorf("status = %q, want %q", payment.Status, models.PaymentStatusPending)
	}
	if time.Until(payment.DueDate) < 29*24*time.Hour {
		t.Error("default due date should be about 30 days out")
	}

	var notifications []models.Notification
	db.Where("user_id = ? AND type = ?", user.ID, models.NotificationPayment).Find(&notifications)
	if len(notifications) != 1 {
		t.Errorf("got %d payment notifications, want 1", len(notifications))
	}

	if _, err := svc.Create(CreatePaymentInput{UserID: 9999, Title: "x", Amount: 1}); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown user: got %v, want ErrNotFound", err)
	}
}

func TestPayInTestMode(t *testing.T) {
	t.Setenv("PAYMENT_TEST_MODE", "true")

	db := newTestDB(t)
	svc := NewPaymentService(db)

	user := createTestUser(t, db, "Alice", "alice@test.local", models.RoleResident)
	other := createTestUser(t, db, "Bob", "bob@test.local", models.RoleResident)

	payment, err := svc.Create(CreatePaymentInput{UserID: user.ID, Title: "dues", Amount: 100})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	card := CardInput{HolderName: "Alice", Number: "5528790000000008", ExpireMonth: "12", ExpireYear: "2030", CVC: "123"}

	if _, err := svc.Pay(payment.ID, other.ID, card); !errors.Is(err, ErrForbidden) {
		t.Errorf("non-owner pay: got %v, want ErrForbidden", err)
	}

	paid, err := svc.Pay(payment.ID, user.ID, card)
	if err != nil {
		t.Fatalf("pay: %v", err)
	}
	if paid.Status != models.PaymentStatusPaid || paid.PaidAt == nil {
		t.Error("payment not settled")
	}
	if !strings.HasPrefix(paid.TransactionID, "test_") {
		t.Errorf("transaction id %q should carry the test prefix", paid.TransactionID)
	}
	if paid.PaymentMethod != "credit_card" {
		t.Errorf("payment method = %q, want credit_card", paid.PaymentMethod)
	}

	if _, err := svc.Pay(payment.ID, user.ID, card); !errors.Is(err, ErrAlreadyPaid) {
		t.Errorf("double pay: got %v, want ErrAlreadyPaid", err)
	}
}

func TestPaymentTotals(t *testing.T) {
	t.Setenv("PAYMENT_TEST_MODE", "true")

	db := newTestDB(t)
	svc := NewPaymentService(db)

	user := createTestUser(t, db, "Alice", "alice@test.local", models.RoleResident)

	first, err := svc.Create(CreatePaymentInput{UserID: user.ID, Title: "dues", Amount: 100})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Create(CreatePaymentInput{UserID: user.ID, Title: "heating", Amount: 250}); err != nil {
		t.Fatalf("create: %v", err)
	}

	card := CardInput{HolderName: "Alice", Number: "5528790000000008", ExpireMonth: "12", ExpireYear: "2030", CVC: "123"}
	if _, err := svc.Pay(first.ID, user.ID, card); err != nil {
		t.Fatalf("pay: %v", err)
	}

	totals, err := svc.Totals()
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	if totals.Count != 2 {
		t.Errorf("count = %d, want 2", totals.Count)
	}
	if totals.Total != 350 {
		t.Errorf("total = %v, want 350", totals.Total)
	}
	if totals.Paid != 100 {
		t.Errorf("paid = %v, want 100", totals.Paid)
	}
	if totals.Pending != 250 {
		t.Errorf("pending = %v, want 250", totals.Pending)
	}
}

func TestDeletePaymentIsSoft(t *testing.T) {
	db := newTestDB(t)
	svc := NewPaymentService(db)

	user := createTestUser(t, db, "Alice", "alice@test.local", models.RoleResident)

	payment, err := svc.Create(CreatePaymentInput{UserID: user.ID, Title: "dues", Amount: 100})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.Delete(payment.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := svc.GetByID(payment.ID, user.ID, false); !errors.Is(err, ErrNotFound) {
		t.Errorf("read after delete: got %v, want ErrNotFound", err)
	}

	// Row stays behind with the flag set.
	var reloaded models.Payment
	if err := db.First(&reloaded, payment.ID).Error; err != nil {
		t.Fatalf("raw load: %v", err)
	}
	if !reloaded.IsDeleted {
		t.Error("delete should only set the flag")
	}

	payments, err := svc.GetForUser(user.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(payments) != 0 {
		t.Errorf("deleted payment still listed for user")
	}
}

func TestUpdatePaymentPartialFields(t *testing.T) {
	db := newTestDB(t)
	svc := NewPaymentService(db)

	user := createTestUser(t, db, "Alice", "alice@test.local", models.RoleResident)

	payment, err := svc.Create(CreatePaymentInput{UserID: user.ID, Title: "dues", Description: "March", Amount: 100})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	amount := 175.0
	updated, err := svc.Update(payment.ID, UpdatePaymentInput{Amount: &amount})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Amount != 175 {
		t.Errorf("amount = %v, want 175", updated.Amount)
	}
	if updated.Title != "dues" || updated.Description != "March" {
		t.Error("untouched fields changed")
	}
}
