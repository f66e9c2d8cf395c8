package retry

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/rpc"
)

// Class tells Do whether a failed attempt may be repeated.
type Class string

const (
	// ClassTerminal errors are returned to the caller at once.
	ClassTerminal Class = "terminal"
	// ClassTransient errors are retried until the policy runs out of attempts.
	ClassTransient Class = "transient"
)

// Decision is the verdict of a Classifier. Reason is a short snake_case tag
// that ends up in the retry log lines.
type Decision struct {
	Class  Class
	Reason string
}

// IsTransient reports whether the failed attempt should be retried.
func (d Decision) IsTransient() bool {
	return d.Class == ClassTransient
}

// Classifier maps an error to a retry decision.
type Classifier func(err error) Decision

// markedError pins a decision onto an error so Classify does not inspect it further.
type markedError struct {
	error
	decision Decision
}

func (e *markedError) Unwrap() error {
	return e.error
}

func mark(err error, class Class, reason string) error {
	if err == nil {
		return nil
	}
	return &markedError{error: err, decision: Decision{Class: class, Reason: reason}}
}

// Transient forces err to be retried, e.g. a source-specific "try again later" reply.
func Transient(err error) error {
	return mark(err, ClassTransient, "marked_transient")
}

// Terminal stops the retries on err, e.g. a request the node will always reject.
func Terminal(err error) error {
	return mark(err, ClassTerminal, "marked_terminal")
}

// Classify separates provider faults (retried) from request faults (not retried).
// Errors it cannot recognise are treated as transient.
func Classify(err error) Decision {
	if err == nil {
		return Decision{Class: ClassTerminal, Reason: "nil_error"}
	}

	var marked *markedError
	if errors.As(err, &marked) {
		return marked.decision
	}

	if errors.Is(err, context.Canceled) {
		return Decision{Class: ClassTerminal, Reason: "context_canceled"}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Decision{Class: ClassTransient, Reason: "context_deadline_exceeded"}
	}

	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		return classifyHTTPStatus(httpErr.StatusCode)
	}

	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return classifyJSONRPCCode(rpcErr.ErrorCode())
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Decision{Class: ClassTransient, Reason: "net_timeout"}
	}

	if rejectedByNode(err) {
		return Decision{Class: ClassTerminal, Reason: "message_terminal"}
	}

	return Decision{Class: ClassTransient, Reason: "unknown_transient_default"}
}

func classifyHTTPStatus(code int) Decision {
	switch {
	case code == http.StatusTooManyRequests, code == http.StatusRequestTimeout, code >= 500:
		return Decision{Class: ClassTransient, Reason: "http_server"}
	case code >= 400:
		return Decision{Class: ClassTerminal, Reason: "http_client"}
	default:
		return Decision{Class: ClassTransient, Reason: "http_other"}
	}
}

func classifyJSONRPCCode(code int) Decision {
	switch {
	case code == -32603 || code == -32005:
		return Decision{Class: ClassTransient, Reason: "jsonrpc_server_transient"}
	case code == -32600 || code == -32601 || code == -32602 || code == -32700:
		return Decision{Class: ClassTerminal, Reason: "jsonrpc_request"}
	case code == 3:
		return Decision{Class: ClassTerminal, Reason: "jsonrpc_execution_reverted"}
	case code <= -32000 && code >= -32099:
		return Decision{Class: ClassTransient, Reason: "jsonrpc_server_range"}
	default:
		return Decision{Class: ClassTransient, Reason: "jsonrpc_other"}
	}
}

// rejectedByNode matches the wording nodes use for requests that will never succeed.
func rejectedByNode(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, token := range terminalMessageTokens {
		if strings.Contains(msg, token) {
			return true
		}
	}
	return false
}

var terminalMessageTokens = []string{
	"invalid argument",
	"invalid params",
	"invalid address",
	"method not found",
	"parse error",
	"execution reverted",
	"unsupported chain",
}
