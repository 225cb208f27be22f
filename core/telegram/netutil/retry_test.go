package netutil

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	cases := []struct {
		name  string
		err   error
		class string
		retry bool
	}{
		{"nil", nil, ClassNone, false},
		{"canceled", fmt.Errorf("call: %w", context.Canceled), ClassCanceled, false},
		{"deadline", context.DeadlineExceeded, ClassTimeout, true},
		{"url timeout", &url.Error{Op: "Get", URL: "http://x", Err: timeoutErr{}}, ClassTimeout, true},
		{"dns", &net.DNSError{Err: "no such host", Name: "api"}, ClassDNS, true},
		{"dial", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("refused")}, ClassDial, true},
		{"reset", &net.OpError{Op: "read", Net: "tcp", Err: syscall.ECONNRESET}, ClassReset, false},
		{"other", errors.New("boom"), ClassOther, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.class, Classify(tc.err))
			assert.Equal(t, tc.retry, ShouldRetry(tc.err))
		})
	}
}
