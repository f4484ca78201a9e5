package carrier

import (
	goerrors "github.com/goliatone/go-errors"

	"github.com/Elanstech/barberworld-fulfillment/core"
)

func carrierError(
	message string,
	category goerrors.Category,
	code int,
	metadata map[string]any,
) error {
	err := goerrors.New(message, category).
		WithCode(code).
		WithTextCode(carrierTextCode(category))
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func carrierWrapError(
	source error,
	category goerrors.Category,
	message string,
	code int,
	metadata map[string]any,
) error {
	if source == nil {
		return carrierError(message, category, code, metadata)
	}
	err := goerrors.Wrap(source, category, message).
		WithCode(code).
		WithTextCode(carrierTextCode(category))
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func carrierTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return core.FulfillmentErrorBadInput
	case goerrors.CategoryExternal, goerrors.CategoryRateLimit:
		return core.FulfillmentErrorCarrierFailed
	default:
		return core.FulfillmentErrorInternal
	}
}
