package common

import (
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
)

// testLoggerAdapter routes log lines to t.Log, so that logs only show for
// failed tests. Lines written after the test has cleaned up are dropped:
// network goroutines may outlive the test and t.Log panics then.
type testLoggerAdapter struct {
	t testing.TB

	mu   sync.Mutex
	done bool
}

func newTestLoggerAdapter(t testing.TB) *testLoggerAdapter {
	a := &testLoggerAdapter{t: t}
	t.Cleanup(func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		a.done = true
	})
	return a
}

func (a *testLoggerAdapter) Write(d []byte) (int, error) {
	n := len(d)
	if n > 0 && d[n-1] == '\n' {
		d = d[:n-1]
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.done {
		a.t.Log(string(d))
	}
	return n, nil
}

// NewTestLogger returns a logrus Logger that writes through t.Log.
func NewTestLogger(t testing.TB, level logrus.Level) *logrus.Logger {
	logger := logrus.New()
	logger.Out = newTestLoggerAdapter(t)
	logger.Level = level
	return logger
}

// NewTestEntry is a shortcut for NewTestLogger(t, level).WithField("prefix",
// prefix).
func NewTestEntry(t testing.TB, level logrus.Level, prefix string) *logrus.Entry {
	return NewTestLogger(t, level).WithField("prefix", prefix)
}
