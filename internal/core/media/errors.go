package media

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/guiyumin/mediahub/internal/core/platform"
)

// Code is the machine readable error code returned to API clients.
type Code string

const (
	CodeInvalidURL             Code = "INVALID_URL"
	CodeUnsupportedPlatform    Code = "UNSUPPORTED_PLATFORM"
	CodeCollectionNotSupported Code = "COLLECTION_NOT_SUPPORTED"
	CodeContentNotSupported    Code = "CONTENT_NOT_SUPPORTED"
	CodeResolutionFailed       Code = "RESOLUTION_FAILED"
	CodeDeliveryFailed         Code = "DELIVERY_FAILED"

	CodeInvalidRequest Code = "INVALID_REQUEST"
	CodeBusy           Code = "BUSY"
	CodeRateLimited    Code = "RATE_LIMITED"
	CodeNotFound       Code = "NOT_FOUND"
	CodeInternal       Code = "INTERNAL"
)

// Error is a classified pipeline error. Message is safe to show to end users;
// Err carries the internal detail and is only ever logged.
type Error struct {
	Code     Code
	Message  string
	Platform platform.Tag
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds an Error with a user-facing message and no internal cause.
func NewError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func InvalidURL(cause error) *Error {
	return &Error{Code: CodeInvalidURL, Message: "Please enter a valid URL", Err: cause}
}

func UnsupportedPlatform() *Error {
	names := make([]string, 0, len(platform.All()))
	for _, t := range platform.All() {
		names = append(names, t.DisplayName())
	}
	return &Error{
		Code:     CodeUnsupportedPlatform,
		Message:  "This platform is not supported. Supported platforms: " + strings.Join(names, ", "),
		Platform: platform.Unsupported,
	}
}

func CollectionNotSupported(hint string) *Error {
	if hint == "" {
		hint = "Collection"
	}
	return &Error{
		Code:    CodeCollectionNotSupported,
		Message: fmt.Sprintf("%s playlists, albums and boards are not supported. Please use a link to a single item.", hint),
	}
}

// ContentNotSupported is a provider's definitive rejection of the content.
func ContentNotSupported(tag platform.Tag, cause error) *Error {
	return &Error{
		Code:     CodeContentNotSupported,
		Message:  fmt.Sprintf("This type of %s content is not supported", tag.DisplayName()),
		Platform: tag,
		Err:      cause,
	}
}

func ResolutionFailed(tag platform.Tag, cause error) *Error {
	return &Error{
		Code:     CodeResolutionFailed,
		Message:  "Could not fetch this media. It may be private, removed or temporarily unavailable.",
		Platform: tag,
		Err:      cause,
	}
}

func DeliveryFailed(tag platform.Tag, cause error) *Error {
	return &Error{
		Code:     CodeDeliveryFailed,
		Message:  "The download could not be completed. Please try again.",
		Platform: tag,
		Err:      cause,
	}
}

// CodeOf returns the code of a classified error, CodeInternal otherwise.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// PublicMessage returns the message safe to show for err.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return "Internal server error"
}

// HTTPStatus maps an error code to the HTTP status the API answers with.
func HTTPStatus(code Code) int {
	switch code {
	case CodeInvalidURL, CodeUnsupportedPlatform, CodeCollectionNotSupported, CodeInvalidRequest:
		return http.StatusBadRequest
	case CodeContentNotSupported:
		return http.StatusUnprocessableEntity
	case CodeResolutionFailed, CodeDeliveryFailed:
		return http.StatusBadGateway
	case CodeBusy:
		return http.StatusServiceUnavailable
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
