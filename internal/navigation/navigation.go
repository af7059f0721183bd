package navigation

import (
	"slices"
	"sync"
)

const (
	RouteHome     = "/"
	RouteLogin    = "/login"
	RouteRegister = "/register"
	RouteTerms    = "/terms"

	RouteNotifications = "/notifications"
	RouteDocuments     = "/documents"
)

type Navigator interface {
	Push(path string)
	Current() string
}

// History is the in-process router: current path and every path visited
type History struct {
	mu      sync.RWMutex
	visited []string
}

func NewHistory(start string) *History {
	return &History{visited: []string{start}}
}

func (h *History) Push(path string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.visited = append(h.visited, path)
}

func (h *History) Current() string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.visited[len(h.visited)-1]
}

func (h *History) Visited() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return slices.Clone(h.visited)
}

// Deferred queues navigation and applies it on Flush, after the current pass is over
type Deferred struct {
	target Navigator

	mu     sync.Mutex
	queued []string
}

func NewDeferred(target Navigator) *Deferred {
	return &Deferred{target: target}
}

func (d *Deferred) Push(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.queued = append(d.queued, path)
}

// Current returns path of the target, queued navigation is not applied yet
func (d *Deferred) Current() string {
	return d.target.Current()
}

// Flush applies queued navigation in order and returns resulting path
func (d *Deferred) Flush() string {
	d.mu.Lock()
	queued := d.queued
	d.queued = nil
	d.mu.Unlock()

	for _, path := range queued {
		d.target.Push(path)
	}
	return d.target.Current()
}

// Pending returns queued paths
func (d *Deferred) Pending() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	return slices.Clone(d.queued)
}
