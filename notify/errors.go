package notify

import (
	goerrors "github.com/goliatone/go-errors"

	"github.com/Elanstech/barberworld-fulfillment/core"
)

func channelError(
	message string,
	category goerrors.Category,
	code int,
	metadata map[string]any,
) error {
	err := goerrors.New(message, category).
		WithCode(code).
		WithTextCode(channelTextCode(category))
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func channelWrapError(
	source error,
	category goerrors.Category,
	message string,
	code int,
	metadata map[string]any,
) error {
	if source == nil {
		return channelError(message, category, code, metadata)
	}
	err := goerrors.Wrap(source, category, message).
		WithCode(code).
		WithTextCode(channelTextCode(category))
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func channelTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return core.FulfillmentErrorBadInput
	case goerrors.CategoryExternal:
		return core.FulfillmentErrorNotifyFailed
	default:
		return core.FulfillmentErrorInternal
	}
}
