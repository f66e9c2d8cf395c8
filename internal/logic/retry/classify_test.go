package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
)

type jsonRPCError struct {
	code int
	msg  string
}

func (e *jsonRPCError) Error() string  { return e.msg }
func (e *jsonRPCError) ErrorCode() int { return e.code }

func TestClassify_ExplicitMarkers(t *testing.T) {
	transient := Classify(Transient(errors.New("invalid params")))
	assert.Equal(t, ClassTransient, transient.Class)
	assert.Equal(t, "marked_transient", transient.Reason)

	terminal := Classify(fmt.Errorf("wrapped: %w", Terminal(errors.New("timeout"))))
	assert.Equal(t, ClassTerminal, terminal.Class)
	assert.Equal(t, "marked_terminal", terminal.Reason)

	assert.Nil(t, Transient(nil))
	assert.Nil(t, Terminal(nil))
}

func TestClassify_RepresentativeErrors(t *testing.T) {
	testCases := []struct {
		name  string
		err   error
		class Class
	}{
		{name: "canceled", err: context.Canceled, class: ClassTerminal},
		{name: "deadline", err: fmt.Errorf("get logs: %w", context.DeadlineExceeded), class: ClassTransient},
		{name: "http 429", err: rpc.HTTPError{StatusCode: 429, Status: "429 Too Many Requests"}, class: ClassTransient},
		{name: "http 503", err: rpc.HTTPError{StatusCode: 503, Status: "503 Service Unavailable"}, class: ClassTransient},
		{name: "http 401", err: rpc.HTTPError{StatusCode: 401, Status: "401 Unauthorized"}, class: ClassTerminal},
		{name: "jsonrpc invalid params", err: &jsonRPCError{code: -32602, msg: "invalid params"}, class: ClassTerminal},
		{name: "jsonrpc limit exceeded", err: &jsonRPCError{code: -32005, msg: "query returned more than 10000 results"}, class: ClassTransient},
		{name: "jsonrpc internal", err: &jsonRPCError{code: -32603, msg: "internal error"}, class: ClassTransient},
		{name: "jsonrpc reverted", err: &jsonRPCError{code: 3, msg: "execution reverted"}, class: ClassTerminal},
		{name: "message terminal", err: errors.New("Invalid Address format"), class: ClassTerminal},
		{name: "unknown", err: errors.New("something odd happened"), class: ClassTransient},
		{name: "nil", err: nil, class: ClassTerminal},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.class, Classify(tc.err).Class)
		})
	}
}

func TestMarkedErrorKeepsCause(t *testing.T) {
	cause := errors.New("header not found")
	err := Terminal(cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "header not found", err.Error())
	assert.True(t, Classify(Transient(context.Canceled)).IsTransient())
}
