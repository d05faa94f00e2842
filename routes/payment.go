package routes

import (
	"time"

	"github.com/ErenEClk/SmartCom/services"
	"github.com/ErenEClk/SmartCom/storage"
	"github.com/ErenEClk/SmartCom/utils"
	"github.com/kataras/iris/v12"
)

func paymentService() *services.PaymentService {
	return services.NewPaymentService(storage.DB)
}

// GetAllPayments lists every payment. Admin only.
func GetAllPayments(ctx iris.Context) {
	payments, err := paymentService().GetAll()
	if err != nil {
		utils.HandleServiceError(err, ctx)
		return
	}
	utils.SendData(ctx, payments)
}

// GetMyPayments lists the caller's payments.
func GetMyPayments(ctx iris.Context) {
	claims := utils.GetClaims(ctx)

	payments, err := paymentService().GetForUser(claims.ID)
	if err != nil {
		utils.HandleServiceError(err, ctx)
		return
	}
	utils.SendData(ctx, payments)
}

// GetPaymentTotals returns the aggregate payment summary. Admin only.
func GetPaymentTotals(ctx iris.Context) {
	totals, err := paymentService().Totals()
	if err != nil {
		utils.HandleServiceError(err, ctx)
		return
	}
	utils.SendData(ctx, totals)
}

// GetPaymentByID returns one payment for its owner or an admin.
func GetPaymentByID(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.SendError(ctx, iris.StatusBadRequest, "Invalid payment id")
		return
	}
	claims := utils.GetClaims(ctx)

	payment, svcErr := paymentService().GetByID(id, claims.ID, claims.IsAdmin())
	if svcErr != nil {
		utils.HandleServiceError(svcErr, ctx)
		return
	}
	utils.SendData(ctx, payment)
}

// CreatePayment stores a new pending payment for a resident. Admin only.
func CreatePayment(ctx iris.Context) {
	var input CreatePaymentInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}
	claims := utils.GetClaims(ctx)

	payment, err := paymentService().Create(services.CreatePaymentInput{
		UserID:      input.UserID,
		Title:       input.Title,
		Description: input.Description,
		Amount:      input.Amount,
		Currency:    input.Currency,
		Category:    input.Category,
		DueDate:     input.DueDate,
		CreatedByID: claims.ID,
	})
	if err != nil {
		utils.HandleServiceError(err, ctx)
		return
	}

	utils.Audit(ctx, "payment.create", "payment", payment.ID, nil, payment.Title)
	utils.SendData(ctx, payment)
}

// PayPayment settles a pending payment with the submitted card.
func PayPayment(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.SendError(ctx, iris.StatusBadRequest, "Invalid payment id")
		return
	}
	claims := utils.GetClaims(ctx)

	var card services.CardInput
	if err := ctx.ReadJSON(&card); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	payment, svcErr := paymentService().Pay(id, claims.ID, card)
	if svcErr != nil {
		utils.HandleServiceError(svcErr, ctx)
		return
	}
	utils.SendData(ctx, payment)
}

// UpdatePayment edits a payment. Admin only.
func UpdatePayment(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.SendError(ctx, iris.StatusBadRequest, "Invalid payment id")
		return
	}

	var input UpdatePaymentInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	payment, svcErr := paymentService().Update(id, services.UpdatePaymentInput{
		Title:       input.Title,
		Description: input.Description,
		Amount:      input.Amount,
		DueDate:     input.DueDate,
		Status:      input.Status,
	})
	if svcErr != nil {
		utils.HandleServiceError(svcErr, ctx)
		return
	}

	utils.Audit(ctx, "payment.update", "payment", payment.ID, nil, payment.Title)
	utils.SendData(ctx, payment)
}

// DeletePayment soft-deletes a payment. Admin only.
func DeletePayment(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.SendError(ctx, iris.StatusBadRequest, "Invalid payment id")
		return
	}

	if svcErr := paymentService().Delete(id); svcErr != nil {
		utils.HandleServiceError(svcErr, ctx)
		return
	}

	utils.Audit(ctx, "payment.delete", "payment", id, nil, nil)
	utils.SendMessage(ctx, "Payment deleted", nil)
}

type CreatePaymentInput struct {
	UserID      uint       `json:"userId" validate:"required"`
	Title       string     `json:"title" validate:"required,max=256"`
	Description string     `json:"description"`
	Amount      float64    `json:"amount" validate:"required,gt=0"`
	Currency    string     `json:"currency" validate:"omitempty,oneof=TRY USD EUR"`
	Category    string     `json:"category" validate:"omitempty,oneof=dues electricity water gas internet other"`
	DueDate     *time.Time `json:"dueDate"`
}

type UpdatePaymentInput struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Amount      *float64   `json:"amount" validate:"omitempty,gt=0"`
	DueDate     *time.Time `json:"dueDate"`
	Status      *string    `json:"status" validate:"omitempty,oneof=pending paid overdue cancelled"`
}
