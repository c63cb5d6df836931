package task

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ListFilter narrows the records returned by TaskStore.List.
// Zero-valued fields do not filter.
type ListFilter struct {
	Status TaskStatus
	// CompletedBefore keeps only terminal records finished strictly before it.
	CompletedBefore time.Time
}

// TaskStore is the in-memory record store shared by submission and the worker.
// A single lock guards both the record map and the request map so a job's
// record and request are always created and removed together.
type TaskStore struct {
	mu       sync.RWMutex
	tasks    map[uuid.UUID]Task
	requests map[uuid.UUID]SynthesisRequest
}

// NewTaskStore creates an empty store.
func NewTaskStore() *TaskStore {
	return &TaskStore{
		tasks:    make(map[uuid.UUID]Task),
		requests: make(map[uuid.UUID]SynthesisRequest),
	}
}

// Create inserts a record and its request. It fails with ErrTaskExists if
// the identifier is already present.
func (s *TaskStore) Create(t Task, req SynthesisRequest) error {
	if !t.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, t.Status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[t.ID]; ok {
		return fmt.Errorf("%w: %s", ErrTaskExists, t.ID)
	}
	s.tasks[t.ID] = t.clone()
	s.requests[t.ID] = req.clone()
	return nil
}

// Get returns a snapshot of the record.
func (s *TaskStore) Get(id uuid.UUID) (Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return Task{}, false
	}
	return t.clone(), true
}

// Request returns a copy of the request stored for id.
func (s *TaskStore) Request(id uuid.UUID) (SynthesisRequest, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.requests[id]
	if !ok {
		return SynthesisRequest{}, false
	}
	return r.clone(), true
}

// Update applies fn to a copy of the record and commits it in one critical
// section. If fn returns an error, or the resulting status is not a legal
// transition, the stored record is left untouched.
func (s *TaskStore) Update(id uuid.UUID, fn func(*Task) error) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.tasks[id]
	if !ok {
		return Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}

	next := current.clone()
	if err := fn(&next); err != nil {
		return current.clone(), err
	}
	next.ID = current.ID
	next.CreatedAt = current.CreatedAt

	if !canTransition(current.Status, next.Status) {
		return current.clone(), fmt.Errorf("%w: %s -> %s",
			ErrInvalidTransition, current.Status, next.Status)
	}

	s.tasks[id] = next
	return next.clone(), nil
}

// Delete removes the record and the request. Deleting an unknown identifier
// returns ErrTaskNotFound and changes nothing.
func (s *TaskStore) Delete(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	delete(s.tasks, id)
	delete(s.requests, id)
	return nil
}

// CountActive returns the number of pending and processing records.
func (s *TaskStore) CountActive() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, t := range s.tasks {
		if !t.Status.IsTerminal() {
			n++
		}
	}
	return n
}

// Len returns the total number of records.
func (s *TaskStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

// List returns snapshots matching filter, oldest first.
func (s *TaskStore) List(filter ListFilter) []Task {
	s.mu.RLock()
	out := make([]Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if !filter.CompletedBefore.IsZero() {
			if t.CompletedAt == nil || !t.CompletedAt.Before(filter.CompletedBefore) {
				continue
			}
		}
		out = append(out, t.clone())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
