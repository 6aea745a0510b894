package pipeline

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain enables goroutine leak detection for all tests in the pipeline
// package. Every run must release its resources when it reaches a terminal
// state.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// HTTP/2 connection pool goroutines persist across tests
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
		goleak.IgnoreTopFunction("net/http.(*http2clientConnReadLoop).run"),
		// genkit.Init installs a signal.NotifyContext and discards its
		// cancel func (genkit@v1.4.0 genkit.go:213), so the watcher
		// goroutine can never be released by the code under test.
		goleak.IgnoreTopFunction("os/signal.NotifyContext.func1"),
	)
}
