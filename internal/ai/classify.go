package ai

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/sony/gobreaker/v2"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

// Reasons reported when enrichment is skipped or fails
const (
	ReasonDisabled    = "AI analysis is disabled."
	ReasonSkipped     = "AI analysis was skipped for this request."
	ReasonTimeout     = "AI analysis timed out. Showing the model score only."
	ReasonNetwork     = "AI analysis service could not be reached. Check your network connection."
	ReasonAuth        = "AI analysis is not authorized. Check the configured API key."
	ReasonNotFound    = "AI analysis model was not found. Check the configured model name."
	ReasonUnavailable = "AI analysis is temporarily unavailable. Try again later."
	ReasonGeneric     = "AI analysis failed. Showing the model score only."
)

// ClassifyError maps an enrichment failure to a message fit for end users
func ClassifyError(err error) string {
	if err == nil {
		return ReasonGeneric
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonTimeout
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ReasonUnavailable
	}

	if code := statusCode(err); code != 0 {
		switch code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return ReasonAuth
		case http.StatusNotFound:
			return ReasonNotFound
		case http.StatusRequestTimeout, http.StatusGatewayTimeout:
			return ReasonTimeout
		case http.StatusTooManyRequests, http.StatusServiceUnavailable:
			return ReasonUnavailable
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return ReasonTimeout
		}
		return ReasonNetwork
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out"):
		return ReasonTimeout
	case strings.Contains(msg, "api key") || strings.Contains(msg, "permission") || strings.Contains(msg, "unauthenticated"):
		return ReasonAuth
	case strings.Contains(msg, "not found"):
		return ReasonNotFound
	case strings.Contains(msg, "connection") || strings.Contains(msg, "dial") || strings.Contains(msg, "no such host"):
		return ReasonNetwork
	}
	return ReasonGeneric
}

// statusCode extracts an HTTP status from Gemini or Google API errors
func statusCode(err error) int {
	var genaiErr genai.APIError
	if errors.As(err, &genaiErr) {
		return genaiErr.Code
	}
	var genaiPtr *genai.APIError
	if errors.As(err, &genaiPtr) && genaiPtr != nil {
		return genaiPtr.Code
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return 0
}

// isRetryableError reports whether a generation failure is worth retrying
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	switch statusCode(err) {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
