package app

import (
	"sync"
	"time"
)

// NoticeKind is the variant of a transient notification.
type NoticeKind int

const (
	NoticeInfo NoticeKind = iota
	NoticeSuccess
	NoticeError
)

func (k NoticeKind) String() string {
	switch k {
	case NoticeSuccess:
		return "success"
	case NoticeError:
		return "error"
	}
	return "info"
}

// Notice is a transient user-visible message.
type Notice struct {
	Kind NoticeKind
	Text string
	Err  error
	At   time.Time
}

// Message is Text plus the error, when there is one.
func (n Notice) Message() string {
	if n.Err != nil {
		return n.Text + ": " + n.Err.Error()
	}
	return n.Text
}

// Expired reports whether the notice is older than ttl at now.
func (n Notice) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(n.At) >= ttl
}

// Notifier receives notices. Implementations must be safe for concurrent use.
type Notifier interface {
	Notify(Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

// NopNotifier drops everything.
type NopNotifier struct{}

func (NopNotifier) Notify(Notice) {}

// Recorder keeps every notice; handy for front ends that poll and for tests.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *Recorder) Notify(n Notice) {
	r.mu.Lock()
	r.notices = append(r.notices, n)
	r.mu.Unlock()
}

// Drain returns and forgets the recorded notices.
func (r *Recorder) Drain() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.notices
	r.notices = nil
	return out
}

// Last returns the most recent notice.
func (r *Recorder) Last() (Notice, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notices) == 0 {
		return Notice{}, false
	}
	return r.notices[len(r.notices)-1], true
}
