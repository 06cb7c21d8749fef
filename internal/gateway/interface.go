package gateway

import (
	"sync/atomic"
	"time"
)

// Severity of a user-facing notice.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarn    Severity = "warn"
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
)

// Notice is one toast. Life of zero means the notice stays until dismissed.
type Notice struct {
	Severity Severity
	Summary  string
	Detail   string
	Life     time.Duration
}

// Notifier shows notices to the user.
type Notifier interface {
	Add(Notice)
}

// Navigator changes the visible route.
type Navigator interface {
	Push(path string)
}

// Cell is a late-bound reference. The zero value is unbound.
// Readers always see the most recent Set.
type Cell[T any] struct {
	p atomic.Pointer[T]
}

// NewCell returns an unbound cell.
func NewCell[T any]() *Cell[T] {
	return &Cell[T]{}
}

// Set binds v. Binding the zero value of an interface type unbinds.
func (c *Cell[T]) Set(v T) {
	c.p.Store(&v)
}

// Get returns the bound value and whether the cell is bound.
func (c *Cell[T]) Get() (T, bool) {
	if c == nil {
		var zero T
		return zero, false
	}
	p := c.p.Load()
	if p == nil {
		var zero T
		return zero, false
	}
	if any(*p) == nil {
		return *p, false
	}
	return *p, true
}

// Compile-time assertion: Func adapters satisfy the collaborator interfaces.
var (
	_ Notifier  = NotifierFunc(nil)
	_ Navigator = NavigatorFunc(nil)
)

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

// Add implements Notifier.
func (f NotifierFunc) Add(n Notice) { f(n) }

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(path string)

// Push implements Navigator.
func (f NavigatorFunc) Push(path string) { f(path) }
