package netutil

import (
	"context"
	"errors"
	"net"
	"net/url"
	"syscall"
)

// Error classes reported by Classify.
const (
	ClassNone     = ""
	ClassTimeout  = "timeout"
	ClassDial     = "dial"
	ClassDNS      = "dns"
	ClassReset    = "reset"
	ClassCanceled = "canceled"
	ClassOther    = "other"
)

// Classify maps a network error produced by net/http to a short class name
// suitable for logs and metric labels.
func Classify(err error) string {
	if err == nil {
		return ClassNone
	}
	if errors.Is(err, context.Canceled) {
		return ClassCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ClassTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return ClassTimeout
		}
		return ClassDNS
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ClassTimeout
	}

	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) {
		return ClassReset
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return ClassDial
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return ClassDial
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return ClassTimeout
	}
	return ClassOther
}

// ShouldRetry reports whether a network error is worth retrying.
// Only dial failures and timeouts qualify; a reset connection may already
// have delivered the request.
func ShouldRetry(err error) bool {
	switch Classify(err) {
	case ClassTimeout, ClassDial, ClassDNS:
		return true
	}
	return false
}
