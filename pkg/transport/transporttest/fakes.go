// Package transporttest provides in-memory implementations of the transport
// contracts for tests. Replies are produced by a Responder, so tests can
// script server behaviour (including failures) without a running server.
package transporttest

import (
	"context"
	"errors"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/orneryd/redisgraph/pkg/transport"
)

var (
	ErrPoolExhausted = errors.New("transporttest: pool exhausted")
	ErrPoolClosed    = errors.New("transporttest: pool closed")
	ErrHandleClosed  = errors.New("transporttest: handle closed")
)

// Responder produces the reply for one command. args[0] is the command name.
type Responder func(args []any) (any, error)

// OK replies "OK" to everything.
func OK(args []any) (any, error) { return "OK", nil }

// Handle is a fake physical connection.
type Handle struct {
	mu       sync.Mutex
	respond  Responder
	calls    [][]any
	blocking int
	watched  []string
	closes   int
	pipes    *Pipeliner
}

// NewHandle returns a handle answering with respond.
func NewHandle(respond Responder) *Handle {
	if respond == nil {
		respond = OK
	}
	return &Handle{respond: respond, pipes: &Pipeliner{}}
}

func (h *Handle) Do(ctx context.Context, args ...any) (any, error) {
	h.mu.Lock()
	if h.closes > 0 {
		h.mu.Unlock()
		return nil, ErrHandleClosed
	}
	h.calls = append(h.calls, args)
	respond := h.respond
	h.mu.Unlock()
	return respond(args)
}

func (h *Handle) DoBlocking(ctx context.Context, args ...any) (any, error) {
	h.mu.Lock()
	h.blocking++
	h.mu.Unlock()
	return h.Do(context.WithoutCancel(ctx), args...)
}

func (h *Handle) Watch(ctx context.Context, keys ...string) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.watched = append(h.watched, keys...)
	return "OK", nil
}

func (h *Handle) Unwatch(ctx context.Context) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.watched = nil
	return "OK", nil
}

func (h *Handle) Client() transport.Pipeliner { return h.pipes }

func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closes++
	return nil
}

// Calls returns every command sent so far, in order.
func (h *Handle) Calls() [][]any {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([][]any, len(h.calls))
	copy(out, h.calls)
	return out
}

// BlockingCalls counts DoBlocking invocations.
func (h *Handle) BlockingCalls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.blocking
}

// Watched returns the keys currently watched.
func (h *Handle) Watched() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.watched...)
}

// Closes counts Close invocations.
func (h *Handle) Closes() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closes
}

// Pipes returns the fake pipelining surface behind Client.
func (h *Handle) Pipes() *Pipeliner { return h.pipes }

// SetResponder swaps the reply function.
func (h *Handle) SetResponder(respond Responder) {
	h.mu.Lock()
	h.respond = respond
	h.mu.Unlock()
}

// Pipeliner records pipeline requests; the returned pipelines are nil.
type Pipeliner struct {
	mu   sync.Mutex
	pipe int
	tx   int
}

func (p *Pipeliner) Pipeline() redis.Pipeliner {
	p.mu.Lock()
	p.pipe++
	p.mu.Unlock()
	return nil
}

func (p *Pipeliner) TxPipeline() redis.Pipeliner {
	p.mu.Lock()
	p.tx++
	p.mu.Unlock()
	return nil
}

// Requests returns how many plain and transactional pipelines were opened.
func (p *Pipeliner) Requests() (pipe, tx int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pipe, p.tx
}

// Pool is a fixed-size fake pool. Acquire fails fast with ErrPoolExhausted
// instead of blocking so leak tests stay deterministic.
type Pool struct {
	mu        sync.Mutex
	respond   Responder
	size      int
	available int
	acquired  int
	released  int
	closed    bool
	handles   []*Handle
}

// NewPool returns a pool of size handles answering with respond.
func NewPool(size int, respond Responder) *Pool {
	return &Pool{respond: respond, size: size, available: size}
}

func (p *Pool) Acquire(ctx context.Context) (transport.Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrPoolClosed
	}
	if p.available == 0 {
		return nil, ErrPoolExhausted
	}
	p.available--
	p.acquired++
	h := NewHandle(p.respond)
	p.handles = append(p.handles, h)
	return h, nil
}

func (p *Pool) Release(h transport.Handle) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.released++
	if p.available < p.size {
		p.available++
	}
	return nil
}

func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// Available is the number of handles that can be acquired right now.
func (p *Pool) Available() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.available
}

// Acquired counts successful Acquire calls.
func (p *Pool) Acquired() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.acquired
}

// Released counts Release calls.
func (p *Pool) Released() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.released
}

// Closed reports whether Close was called.
func (p *Pool) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Handles returns every handle handed out, in acquisition order.
func (p *Pool) Handles() []*Handle {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*Handle(nil), p.handles...)
}

// SetResponder changes replies for handles acquired from now on.
func (p *Pool) SetResponder(respond Responder) {
	p.mu.Lock()
	p.respond = respond
	p.mu.Unlock()
}

// Cluster is a fake key-routed client.
type Cluster struct {
	mu      sync.Mutex
	respond Responder
	keys    []string
	closes  int
}

// NewCluster returns a cluster answering with respond.
func NewCluster(respond Responder) *Cluster {
	if respond == nil {
		respond = OK
	}
	return &Cluster{respond: respond}
}

func (c *Cluster) Do(ctx context.Context, args ...any) (any, error) {
	c.mu.Lock()
	if len(args) > 1 {
		if key, ok := args[1].(string); ok {
			c.keys = append(c.keys, key)
		}
	}
	respond := c.respond
	c.mu.Unlock()
	return respond(args)
}

func (c *Cluster) DoBlocking(ctx context.Context, args ...any) (any, error) {
	return c.Do(context.WithoutCancel(ctx), args...)
}

func (c *Cluster) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closes++
	return nil
}

// RoutingKeys returns the routing key of every command, in order.
func (c *Cluster) RoutingKeys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.keys...)
}

// Closes counts Close invocations.
func (c *Cluster) Closes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closes
}

// SetResponder swaps the reply function.
func (c *Cluster) SetResponder(respond Responder) {
	c.mu.Lock()
	c.respond = respond
	c.mu.Unlock()
}
