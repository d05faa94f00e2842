package services

import (
	"bytes"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/ErenEClk/SmartCom/models"
	"gorm.io/gorm"
)

// PaymentService owns payment records and the gateway client stub. Outside of
// production the gateway is bypassed entirely (PAYMENT_TEST_MODE).
type PaymentService struct {
	DB            *gorm.DB
	Notifications *NotificationService
}

func NewPaymentService(db *gorm.DB) *PaymentService {
	return &PaymentService{DB: db, Notifications: NewNotificationService(db)}
}

type CreatePaymentInput struct {
	UserID      uint
	Title       string
	Description string
	Amount      float64
	Currency    string
	Category    string
	DueDate     *time.Time
	CreatedByID uint
}

type CardInput struct {
	HolderName  string `json:"holderName" validate:"required"`
	Number      string `json:"number" validate:"required,len=16"`
	ExpireMonth string `json:"expireMonth" validate:"required"`
	ExpireYear  string `json:"expireYear" validate:"required"`
	CVC         string `json:"cvc" validate:"required,min=3,max=4"`
}

// Create stores a new pending payment for the user and fans out the derived
// payment notification.
func (s *PaymentService) Create(input CreatePaymentInput) (*models.Payment, error) {
	if input.UserID == 0 {
		return nil, fmt.Errorf("user id: %w", ErrInvalidIdentifier)
	}

	var user models.User
	found := s.DB.Where("id = ? AND is_deleted = ?", input.UserID, false).Limit(1).Find(&user)
	if found.Error != nil {
		return nil, found.Error
	}
	if found.RowsAffected == 0 {
		return nil, fmt.Errorf("user %d: %w", input.UserID, ErrNotFound)
	}

	dueDate := time.Now().Add(30 * 24 * time.Hour)
	if input.DueDate != nil {
		dueDate = *input.DueDate
	}
	currency := input.Currency
	if currency == "" {
		currency = "TRY"
	}
	category := input.Category
	if category == "" {
		category = "dues"
	}

	payment := models.Payment{
		UserID:      input.UserID,
		Title:       input.Title,
		Description: input.Description,
		Amount:      input.Amount,
		Currency:    currency,
		Category:    category,
		DueDate:     dueDate,
		Status:      models.PaymentStatusPending,
		CreatedByID: input.CreatedByID,
	}
	if err := s.DB.Create(&payment).Error; err != nil {
		return nil, err
	}

	if s.Notifications != nil {
		s.Notifications.CreatePaymentNotification(payment.UserID, payment.ID, payment.Title, payment.Amount)
	}

	return &payment, nil
}

// GetAll returns every non-deleted payment, newest first.
func (s *PaymentService) GetAll() ([]models.Payment, error) {
	var payments []models.Payment
	err := s.DB.Where("is_deleted = ?", false).Order("created_at DESC").Find(&payments).Error
	return payments, err
}

// GetForUser returns the user's payments, newest first.
func (s *PaymentService) GetForUser(userID uint) ([]models.Payment, error) {
	if userID == 0 {
		return nil, fmt.Errorf("user id: %w", ErrInvalidIdentifier)
	}
	var payments []models.Payment
	err := s.DB.Where("user_id = ? AND is_deleted = ?", userID, false).Order("created_at DESC").Find(&payments).Error
	return payments, err
}

// GetByID returns one payment. Owner or admin only.
func (s *PaymentService) GetByID(paymentID, callerID uint, callerIsAdmin bool) (*models.Payment, error) {
	payment, err := s.load(paymentID)
	if err != nil {
		return nil, err
	}
	if payment.UserID != callerID && !callerIsAdmin {
		return nil, fmt.Errorf("payment %d: %w", paymentID, ErrForbidden)
	}
	return payment, nil
}

// Totals aggregates count/total/paid/pending over all non-deleted payments.
func (s *PaymentService) Totals() (*models.PaymentTotals, error) {
	totals := models.PaymentTotals{}
	rows := s.DB.Model(&models.Payment{}).
		Select("count(*) as count, coalesce(sum(amount), 0) as total, "+
			"coalesce(sum(case when paid_at is not null then amount else 0 end), 0) as paid, "+
			"coalesce(sum(case when paid_at is null then amount else 0 end), 0) as pending").
		Where("is_deleted = ?", false).
		Scan(&totals)
	if rows.Error != nil {
		return nil, rows.Error
	}
	return &totals, nil
}

// Pay settles a pending payment for its owner. In test mode the charge is
// completed with a synthetic transaction id; otherwise the gateway client
// posts a signed charge request.
func (s *PaymentService) Pay(paymentID, callerID uint, card CardInput) (*models.Payment, error) {
	payment, err := s.load(paymentID)
	if err != nil {
		return nil, err
	}
	if payment.UserID != callerID {
		return nil, fmt.Errorf("payment %d: %w", paymentID, ErrForbidden)
	}
	if payment.PaidAt != nil {
		return nil, fmt.Errorf("payment %d: %w", paymentID, ErrAlreadyPaid)
	}

	transactionID := ""
	if os.Getenv("PAYMENT_TEST_MODE") == "true" || os.Getenv("GO_ENV") == "test" {
		transactionID = fmt.Sprintf("test_%d", time.Now().UnixNano())
	} else {
		transactionID, err = chargeGateway(payment, card)
		if err != nil {
			return nil, err
		}
	}

	now := time.Now()
	payment.PaidAt = &now
	payment.Status = models.PaymentStatusPaid
	payment.PaymentMethod = "credit_card"
	payment.TransactionID = transactionID
	if err := s.DB.Save(payment).Error; err != nil {
		return nil, err
	}
	return payment, nil
}

type UpdatePaymentInput struct {
	Title       *string
	Description *string
	Amount      *float64
	DueDate     *time.Time
	Status      *string
}

// Update applies the provided fields to a payment.
func (s *PaymentService) Update(paymentID uint, input UpdatePaymentInput) (*models.Payment, error) {
	payment, err := s.load(paymentID)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		payment.Title = *input.Title
	}
	if input.Description != nil {
		payment.Description = *input.Description
	}
	if input.Amount != nil {
		payment.Amount = *input.Amount
	}
	if input.DueDate != nil {
		payment.DueDate = *input.DueDate
	}
	if input.Status != nil {
		payment.Status = *input.Status
	}

	if err := s.DB.Save(payment).Error; err != nil {
		return nil, err
	}
	return payment, nil
}

// Delete soft-deletes a payment.
func (s *PaymentService) Delete(paymentID uint) error {
	payment, err := s.load(paymentID)
	if err != nil {
		return err
	}
	payment.IsDeleted = true
	return s.DB.Save(payment).Error
}

func (s *PaymentService) load(paymentID uint) (*models.Payment, error) {
	if paymentID == 0 {
		return nil, fmt.Errorf("payment id: %w", ErrInvalidIdentifier)
	}

	var payment models.Payment
	found := s.DB.Where("id = ? AND is_deleted = ?", paymentID, false).Limit(1).Find(&payment)
	if found.Error != nil {
		return nil, found.Error
	}
	if found.RowsAffected == 0 {
		return nil, fmt.Errorf("payment %d: %w", paymentID, ErrNotFound)
	}
	return &payment, nil
}

// gatewayAuthHeaders builds the gateway's request-hash authorization headers:
// base64(sha1(apiKey + random + secret + body)).
func gatewayAuthHeaders(body []byte) map[string]string {
	apiKey := os.Getenv("GATEWAY_API_KEY")
	secret := os.Getenv("GATEWAY_SECRET_KEY")
	random := strconv.FormatInt(time.Now().UnixMilli(), 10)

	h := sha1.New()
	h.Write([]byte(apiKey))
	h.Write([]byte(random))
	h.Write([]byte(secret))
	h.Write(body)
	hash := base64.StdEncoding.EncodeToString(h.Sum(nil))

	return map[string]string{
		"Authorization": fmt.Sprintf("IYZWS %s:%s", apiKey, hash),
		"x-iyzi-rnd":    random,
		"Content-Type":  "application/json",
	}
}

// chargeGateway posts a signed charge request to the payment gateway and
// returns the provider transaction id.
func chargeGateway(payment *models.Payment, card CardInput) (string, error) {
	baseURL := os.Getenv("GATEWAY_BASE_URL")
	if baseURL == "" {
		baseURL = "https://sandbox-api.iyzipay.com"
	}

	request := map[string]interface{}{
		"conversationId": strconv.FormatUint(uint64(payment.ID), 10),
		"price":          payment.Amount,
		"currency":       payment.Currency,
		"paymentCard": map[string]string{
			"cardHolderName": card.HolderName,
			"cardNumber":     card.Number,
			"expireMonth":    card.ExpireMonth,
			"expireYear":     card.ExpireYear,
			"cvc":            card.CVC,
		},
	}
	body, err := json.Marshal(request)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequest(http.MethodPost, baseURL+"/payment/auth", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	for k, v := range gatewayAuthHeaders(body) {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var result struct {
		Status    string `json:"status"`
		PaymentID string `json:"paymentId"`
		ErrorMsg  string `json:"errorMessage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK || result.Status != "success" {
		return "", fmt.Errorf("gateway charge rejected: %s", result.ErrorMsg)
	}
	return result.PaymentID, nil
}
