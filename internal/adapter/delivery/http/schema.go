package http

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/armistcxy/url-shorten/internal/entity"
)

const statusError = "error"

// shortenRequest is the body of POST /short.
type shortenRequest struct {
	Origin string `json:"origin" validate:"required,url"`
}

type urlResponse struct {
	ID        string    `json:"id"`
	Origin    string    `json:"origin"`
	CreatedAt time.Time `json:"created_at"`
}

func toURLResponse(url *entity.URL) urlResponse {
	return urlResponse{
		ID:        url.ID,
		Origin:    url.OriginalURL,
		CreatedAt: url.CreatedAt,
	}
}

type validationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type errorResponse struct {
	Status  string            `json:"status"`
	Message string            `json:"message"`
	Errors  []validationError `json:"errors,omitempty"`
}

var (
	emptyRequestBodyResponse = errorResponse{
		Status:  statusError,
		Message: "empty request body",
	}

	invalidRequestBodyResponse = errorResponse{
		Status:  statusError,
		Message: "invalid request body",
	}

	invalidURLResponse = errorResponse{
		Status:  statusError,
		Message: "invalid url",
		Errors: []validationError{
			{Field: "origin", Message: "url must be absolute"},
		},
	}

	urlNotFoundResponse = errorResponse{
		Status:  statusError,
		Message: "url not found",
	}

	storeUnavailableResponse = errorResponse{
		Status:  statusError,
		Message: "service temporarily unavailable",
	}

	serverErrorResponse = errorResponse{
		Status:  statusError,
		Message: "server error occurred",
	}
)

func messageForTag(tag string) string {
	switch tag {
	case "required":
		return "this field is required"
	case "url":
		return "invalid url"
	default:
		return "invalid value"
	}
}

func validationErrorResponse(err error) errorResponse {
	var validationErrs []validationError

	var errs validator.ValidationErrors
	if errors.As(err, &errs) {
		for _, e := range errs {
			validationErrs = append(validationErrs, validationError{
				Field:   e.Field(),
				Message: messageForTag(e.Tag()),
			})
		}
	}

	return errorResponse{
		Status:  statusError,
		Message: "validation error",
		Errors:  validationErrs,
	}
}
