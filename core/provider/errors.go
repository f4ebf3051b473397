package provider

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/gaurav-prasanna/deckpipe/core"
)

// errEmptyResponse is returned when a vendor answers without any text.
var errEmptyResponse = errors.New("empty response from model")

// kindForStatus maps an HTTP status code onto a provider error kind.
func kindForStatus(code int) core.ProviderErrorKind {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return core.ProviderAuth
	case code == http.StatusTooManyRequests:
		return core.ProviderRateLimit
	case code >= 500:
		return core.ProviderUnavailable
	default:
		return core.ProviderBadResponse
	}
}

// transportKind recognises deadlines and connection failures.
func transportKind(err error) (core.ProviderErrorKind, bool) {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return core.ProviderNetwork, true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return core.ProviderNetwork, true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return core.ProviderNetwork, true
	}
	return "", false
}

var (
	// statusInText finds "status code: 429", "status 503", "HTTP 401".
	statusInText = regexp.MustCompile(`(?i)\b(?:status(?:\s*code)?|http)\s*[:=]?\s*(\d{3})\b`)
	authCode     = regexp.MustCompile(`\b40[13]\b`)
	rateCode     = regexp.MustCompile(`\b429\b`)
	serverCode   = regexp.MustCompile(`\b50[0234]\b`)
)

// classifyMessage is the fallback for clients that only surface text. A
// status written next to "status" or "HTTP" wins; bare codes only count as
// whole words, so numbers such as "max_tokens 5000" are not mistaken for one.
func classifyMessage(err error) core.ProviderErrorKind {
	msg := strings.ToLower(err.Error())
	if m := statusInText.FindStringSubmatch(msg); m != nil {
		if code, convErr := strconv.Atoi(m[1]); convErr == nil && code >= 400 {
			return kindForStatus(code)
		}
	}

	switch {
	case authCode.MatchString(msg), strings.Contains(msg, "unauthorized"), strings.Contains(msg, "invalid api key"):
		return core.ProviderAuth
	case rateCode.MatchString(msg), strings.Contains(msg, "too many requests"), strings.Contains(msg, "rate limit"):
		return core.ProviderRateLimit
	case serverCode.MatchString(msg), strings.Contains(msg, "overloaded"):
		return core.ProviderUnavailable
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "connection refused"), strings.Contains(msg, "no such host"):
		return core.ProviderNetwork
	default:
		return core.ProviderBadResponse
	}
}

// wrap builds the ProviderError for err. status is the HTTP status extracted
// from a vendor error, or zero when the vendor gave none.
func wrap(provider Kind, status int, err error) error {
	if err == nil {
		return nil
	}
	var already *core.ProviderError
	if errors.As(err, &already) {
		return err
	}

	var kind core.ProviderErrorKind
	switch {
	case status > 0:
		kind = kindForStatus(status)
	case errors.Is(err, errEmptyResponse):
		kind = core.ProviderBadResponse
	default:
		var ok bool
		if kind, ok = transportKind(err); !ok {
			kind = classifyMessage(err)
		}
	}
	return &core.ProviderError{Provider: string(provider), Kind: kind, Err: err}
}
