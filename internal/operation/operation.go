// Package operation implements the operation registry: the bridge between
// operation atoms in term space (e.g. "^left") and the Go callbacks that
// actually move the system. A maximum of OperationsMax operations may be
// registered at once, each assigned a stable integer ID on registration.
package operation

import (
	"fmt"
	"sort"
	"sync"

	"ona/internal/term"
)

// OperationsMax is the largest number of simultaneously registered
// operations; IDs are assigned 1..OperationsMax.
const OperationsMax = 10

// Args is the argument list passed to a Callback: the bound arguments
// extracted from the operation term, left to right.
type Args []term.Term

// Callback is invoked when an operation executes. An error return marks the
// operation as having faulted; it does not stop the reasoning cycle.
type Callback func(args Args) error

// Operation is one registered entry: a name, the callback it invokes, and
// the ID assigned at registration time.
type Operation struct {
	ID       int
	Name     string
	Callback Callback
}

// Registry is a thread-safe name/ID-indexed table of registered operations.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]*Operation
	byID   map[int]*Operation
	nextID int
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		byName: make(map[string]*Operation),
		byID:   make(map[int]*Operation),
		nextID: 1,
	}
}

// Register assigns the next free ID to name and binds cb to it. Registering
// the same name twice rebinds its callback without consuming a new ID.
// Registering a new name once OperationsMax operations already hold IDs
// returns an error.
func (r *Registry) Register(name string, cb Callback) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byName[name]; ok {
		existing.Callback = cb
		return existing.ID, nil
	}

	if len(r.byID) >= OperationsMax {
		return 0, fmt.Errorf("operation: registry full, cannot register %q (max %d operations)", name, OperationsMax)
	}

	id := r.nextID
	r.nextID++
	op := &Operation{ID: id, Name: name, Callback: cb}
	r.byName[name] = op
	r.byID[id] = op
	return id, nil
}

// GetByName looks up a registered operation by its atom name (e.g. "^left").
func (r *Registry) GetByName(name string) (*Operation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	op, ok := r.byName[name]
	return op, ok
}

// GetByID looks up a registered operation by its assigned ID.
func (r *Registry) GetByID(id int) (*Operation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	op, ok := r.byID[id]
	return op, ok
}

// GetByTerm extracts an operation atom from t (following the same rightmost-
// leaf convention as term.ExtractRightmostOperation) and looks it up.
func GetByTerm(r *Registry, t term.Term) (*Operation, bool) {
	op, _, ok := term.ExtractRightmostOperation(t)
	if !ok {
		if t.IsOperation() {
			op = t
		} else {
			return nil, false
		}
	}
	return r.GetByName(op.Atom)
}

// Execute looks up name and invokes its callback with args, recovering any
// panic raised by the callback into a returned error so a faulty operation
// never brings down the reasoning cycle. Executing an unregistered name
// returns an error without panicking.
func (r *Registry) Execute(name string, args Args) (err error) {
	op, ok := r.GetByName(name)
	if !ok {
		return fmt.Errorf("operation: %q is not registered", name)
	}

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("operation: %q faulted: %v", name, rec)
		}
	}()

	return op.Callback(args)
}

// Names returns every currently registered operation name, sorted
// lexically for deterministic iteration (callers like motor babbling pick
// an index by RNG, which must be reproducible given the same seed).
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byName))
	for name := range r.byName {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// SetName renames the operation already holding id to name, rebinding the
// name-indexed lookup to match (spec §6 "*setopname"). Returns an error if
// no operation holds id.
func (r *Registry) SetName(id int, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	op, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("operation: no operation registered with id %d", id)
	}
	delete(r.byName, op.Name)
	op.Name = name
	r.byName[name] = op
	return nil
}

// Count reports how many operations are currently registered.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
