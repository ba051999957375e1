package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/ByteBenders-compScientists/smart-retail-checkout/pkg/errors"
)

// backendErrorBody covers the error shapes the storefront backend returns:
// either {"error": "..."} or {"message": "..."}.
type backendErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ParseResponseError reads the body of a non-2xx response from the storefront
// backend and translates it into an AppError carrying the backend's own
// message when one can be extracted, so it can be surfaced to the user
// verbatim. Unparseable bodies produce a generic error with the status code.
// The response body is fully consumed and closed.
func ParseResponseError(resp *http.Response, operation string) error {
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s: backend returned status %d (read body: %w)", operation, resp.StatusCode, err)
	}

	var body backendErrorBody
	message := ""
	if json.Unmarshal(raw, &body) == nil {
		if body.Error != "" {
			message = body.Error
		} else if body.Message != "" {
			message = body.Message
		}
	}

	if message == "" {
		return fmt.Errorf("%s: backend returned status %d", operation, resp.StatusCode)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return &apperrors.AppError{
			Code:    "NOT_FOUND",
			Message: message,
			Status:  http.StatusNotFound,
			Err:     apperrors.ErrNotFound,
		}
	case resp.StatusCode == http.StatusUnauthorized:
		return apperrors.Unauthorized(message)
	case resp.StatusCode == http.StatusForbidden:
		return apperrors.Forbidden(message)
	case resp.StatusCode == http.StatusUnprocessableEntity:
		return apperrors.PaymentFailed(message)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return apperrors.InvalidInput(message)
	case resp.StatusCode == http.StatusServiceUnavailable:
		return apperrors.ServiceUnavailable(message)
	default:
		return fmt.Errorf("%s: backend error (%d): %s", operation, resp.StatusCode, message)
	}
}
