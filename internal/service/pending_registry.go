package service

import (
	"sort"
	"sync"

	"github.com/subwallet/dapp-authorization-api/internal/models"
)

type authorizationResult struct {
	approved bool
	err      error
}

// pendingEntry is one in-flight request plus the channel its caller waits on
type pendingEntry struct {
	request  *models.AuthorizationRequest
	resultCh chan authorizationResult
}

func newPendingEntry(request *models.AuthorizationRequest) *pendingEntry {
	return &pendingEntry{
		request:  request,
		resultCh: make(chan authorizationResult, 1),
	}
}

// complete hands the outcome to the waiting caller. Only the first call counts.
func (e *pendingEntry) complete(approved bool, err error) {
	select {
	case e.resultCh <- authorizationResult{approved: approved, err: err}:
	default:
	}
}

// PendingRegistry tracks in-flight authorization requests by id
type PendingRegistry struct {
	mu      sync.RWMutex
	entries map[string]*pendingEntry
}

// NewPendingRegistry creates an empty registry
func NewPendingRegistry() *PendingRegistry {
	return &PendingRegistry{entries: make(map[string]*pendingEntry)}
}

// Count returns the number of pending requests
func (r *PendingRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// ListSummaries returns a snapshot of pending requests ordered by creation time
func (r *PendingRegistry) ListSummaries() []models.PendingSummary {
	r.mu.RLock()
	requests := make([]*models.AuthorizationRequest, 0, len(r.entries))
	for _, entry := range r.entries {
		requests = append(requests, entry.request)
	}
	r.mu.RUnlock()

	sort.Slice(requests, func(i, j int) bool {
		if requests[i].CreatedTime != requests[j].CreatedTime {
			return requests[i].CreatedTime < requests[j].CreatedTime
		}
		return requests[i].ID < requests[j].ID
	})

	summaries := make([]models.PendingSummary, 0, len(requests))
	for _, request := range requests {
		summaries = append(summaries, models.PendingSummary{
			ID:      request.ID,
			Request: request.Request,
			URL:     request.URL,
		})
	}
	return summaries
}

// HasPendingFor reports whether a request for the canonical origin is in flight
func (r *PendingRegistry) HasPendingFor(idStr string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, entry := range r.entries {
		if entry.request.IDStr == idStr {
			return true
		}
	}
	return false
}

// Add registers an entry under its request id
func (r *PendingRegistry) Add(entry *pendingEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[entry.request.ID] = entry
}

// Get returns the entry for id
func (r *PendingRegistry) Get(id string) (*pendingEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[id]
	return entry, ok
}

// Remove deletes and returns the entry for id
func (r *PendingRegistry) Remove(id string) (*pendingEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[id]
	if ok {
		delete(r.entries, id)
	}
	return entry, ok
}

// Drain removes and returns every entry
func (r *PendingRegistry) Drain() []*pendingEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	drained := make([]*pendingEntry, 0, len(r.entries))
	for id, entry := range r.entries {
		drained = append(drained, entry)
		delete(r.entries, id)
	}
	return drained
}
