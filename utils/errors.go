package utils

import (
	"errors"
	"fmt"
	"log"

	"github.com/ErenEClk/SmartCom/services"
	"github.com/go-playground/validator/v10"
	"github.com/kataras/iris/v12"
)

func CreateNotFound(ctx iris.Context) {
	SendError(ctx, iris.StatusNotFound, "Resource not found")
}

func CreateInternalServerError(ctx iris.Context) {
	SendError(ctx, iris.StatusInternalServerError, "Internal server error")
}

func CreateForbidden(ctx iris.Context) {
	SendError(ctx, iris.StatusForbidden, "You are not allowed to perform this action")
}

// HandleValidationErrors renders validator failures as a 400 with one entry
// per failed field. Non-validator decode errors also map to 400.
func HandleValidationErrors(err error, ctx iris.Context) {
	if errs, ok := err.(validator.ValidationErrors); ok {
		details := make([]string, 0, len(errs))
		for _, fieldErr := range errs {
			details = append(details, fmt.Sprintf("field %s failed on the %s rule", fieldErr.Field(), fieldErr.Tag()))
		}
		SendErrors(ctx, iris.StatusBadRequest, "Validation failed", details)
		return
	}
	SendError(ctx, iris.StatusBadRequest, "Malformed request body")
}

// HandleServiceError is the single place where the service failure taxonomy
// becomes HTTP statuses. Anything unrecognized is a 500 with the detail kept
// server-side.
func HandleServiceError(err error, ctx iris.Context) {
	switch {
	case errors.Is(err, services.ErrInvalidIdentifier),
		errors.Is(err, services.ErrInvalidParticipant),
		errors.Is(err, services.ErrDuplicateEmail),
		errors.Is(err, services.ErrAlreadyPaid),
		errors.Is(err, services.ErrValidation):
		SendError(ctx, iris.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		SendError(ctx, iris.StatusUnauthorized, err.Error())
	case errors.Is(err, services.ErrForbidden):
		CreateForbidden(ctx)
	case errors.Is(err, services.ErrNotFound):
		CreateNotFound(ctx)
	default:
		log.Println("unhandled service error:", err)
		CreateInternalServerError(ctx)
	}
}
