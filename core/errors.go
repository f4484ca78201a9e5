package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	FulfillmentErrorBadInput       = "FULFILLMENT_BAD_INPUT"
	FulfillmentErrorBadSignature   = "FULFILLMENT_BAD_SIGNATURE"
	FulfillmentErrorUnknownEvent   = "FULFILLMENT_UNKNOWN_EVENT"
	FulfillmentErrorBadSessionData = "FULFILLMENT_BAD_SESSION_DATA"
	FulfillmentErrorCarrierFailed  = "FULFILLMENT_CARRIER_FAILED"
	FulfillmentErrorNotifyFailed   = "FULFILLMENT_NOTIFY_FAILED"
	FulfillmentErrorDuplicate      = "FULFILLMENT_DUPLICATE_DELIVERY"
	FulfillmentErrorInternal       = "FULFILLMENT_INTERNAL_ERROR"
)

// FulfillmentErrorMapper normalizes any error into the service envelope with
// a stable text code and HTTP status. Signature failures are the only kind
// surfaced to the webhook caller as a non-success response.
func FulfillmentErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureFulfillmentErrorEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "signature"):
		return newFulfillmentError(err.Error(), goerrors.CategoryAuth, FulfillmentErrorBadSignature)
	case strings.Contains(msg, "carrier"), strings.Contains(msg, "shipment"), strings.Contains(msg, "label"):
		return newFulfillmentError(err.Error(), goerrors.CategoryExternal, FulfillmentErrorCarrierFailed)
	case strings.Contains(msg, "address"), strings.Contains(msg, "session"):
		return newFulfillmentError(err.Error(), goerrors.CategoryValidation, FulfillmentErrorBadSessionData)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"):
		return newFulfillmentError(err.Error(), goerrors.CategoryBadInput, FulfillmentErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureFulfillmentErrorEnvelope(mapped)
}

func newFulfillmentError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureFulfillmentErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureFulfillmentErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = fulfillmentHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultFulfillmentTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultFulfillmentTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput:
		return FulfillmentErrorBadInput
	case goerrors.CategoryValidation:
		return FulfillmentErrorBadSessionData
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return FulfillmentErrorBadSignature
	case goerrors.CategoryConflict:
		return FulfillmentErrorDuplicate
	case goerrors.CategoryExternal:
		return FulfillmentErrorCarrierFailed
	default:
		return FulfillmentErrorInternal
	}
}

func fulfillmentHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
