// Package state maintains one validated value per declared skill namespace.
// Values are plain nested JSON structures validated against the JSON Schema
// each skill declares; snapshots export and restore the whole store as a
// namespace-to-value mapping.
package state

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Descriptor declares a skill's state: the namespace it lives under, the
// JSON Schema its value must conform to, and the initial value used before
// the namespace is first written.
type Descriptor struct {
	Namespace string
	Schema    json.RawMessage
	Initial   map[string]any
}

// UnknownNamespaceError is returned when a namespace no registered skill
// declares is looked up or locked.
type UnknownNamespaceError struct {
	Namespace string
}

func (e *UnknownNamespaceError) Error() string {
	return fmt.Sprintf("unknown state namespace %q", e.Namespace)
}

// ValidationError is returned when a value does not conform to its
// namespace's declared schema.
type ValidationError struct {
	Namespace string
	Err       error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("state value for namespace %q failed validation: %v", e.Namespace, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

type namespace struct {
	schema    *jsonschema.Schema
	rawSchema []byte // compacted, for conflict detection
	initial   map[string]any
	value     map[string]any // nil until first written
	execMu    sync.Mutex     // serializes executions per namespace
}

// Store holds every declared namespace and its current value. One Store is
// owned by one executor; concurrent executions of the same namespace are
// serialized via LockNamespace.
type Store struct {
	mu         sync.RWMutex
	namespaces map[string]*namespace
	order      []string
}

// NewStore builds a store from state descriptors. Construction fails when a
// schema does not compile, when an initial value does not validate, or when
// two descriptors declare the same namespace with different schemas.
func NewStore(descriptors []Descriptor) (*Store, error) {
	s := &Store{namespaces: make(map[string]*namespace)}
	for _, desc := range descriptors {
		if err := s.declare(desc); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) declare(desc Descriptor) error {
	if desc.Namespace == "" {
		return errors.New("state descriptor has empty namespace")
	}

	compacted := new(bytes.Buffer)
	if err := json.Compact(compacted, desc.Schema); err != nil {
		return errors.Wrapf(err, "invalid schema for namespace %q", desc.Namespace)
	}

	if existing, ok := s.namespaces[desc.Namespace]; ok {
		if !bytes.Equal(existing.rawSchema, compacted.Bytes()) {
			return errors.Errorf("namespace %q declared with conflicting schemas", desc.Namespace)
		}
		return nil
	}

	compiler := jsonschema.NewCompiler()
	resource := desc.Namespace + ".schema.json"
	if err := compiler.AddResource(resource, bytes.NewReader(desc.Schema)); err != nil {
		return errors.Wrapf(err, "invalid schema for namespace %q", desc.Namespace)
	}
	schema, err := compiler.Compile(resource)
	if err != nil {
		return errors.Wrapf(err, "failed to compile schema for namespace %q", desc.Namespace)
	}

	initial := desc.Initial
	if initial == nil {
		initial = map[string]any{}
	}
	if err := validate(schema, initial); err != nil {
		return &ValidationError{Namespace: desc.Namespace, Err: err}
	}

	s.namespaces[desc.Namespace] = &namespace{
		schema:    schema,
		rawSchema: compacted.Bytes(),
		initial:   initial,
		value:     nil,
	}
	s.order = append(s.order, desc.Namespace)
	return nil
}

// Namespaces returns the declared namespaces in sorted order.
func (s *Store) Namespaces() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, len(s.order))
	copy(names, s.order)
	sort.Strings(names)
	return names
}

// Has reports whether the namespace is declared.
func (s *Store) Has(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.namespaces[name]
	return ok
}

// GetNamespace returns a deep copy of the current value for a namespace, or
// a copy of the declared initial value if the namespace has never been
// written. Callers mutate the copy and hand it back via Commit.
func (s *Store) GetNamespace(name string) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ns, ok := s.namespaces[name]
	if !ok {
		return nil, &UnknownNamespaceError{Namespace: name}
	}

	current := ns.value
	if current == nil {
		current = ns.initial
	}
	return deepCopy(current)
}

// Commit validates and stores a new value for a namespace. This is the only
// mutation path; executions that fail or are cancelled never reach it.
func (s *Store) Commit(name string, value map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ns, ok := s.namespaces[name]
	if !ok {
		return &UnknownNamespaceError{Namespace: name}
	}

	copied, err := deepCopy(value)
	if err != nil {
		return err
	}
	if err := validate(ns.schema, copied); err != nil {
		return &ValidationError{Namespace: name, Err: err}
	}

	ns.value = copied
	return nil
}

// Snapshot exports every declared namespace's current value as plain nested
// values, directly JSON-serializable.
func (s *Store) Snapshot() (map[string]map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make(map[string]map[string]any, len(s.namespaces))
	for name, ns := range s.namespaces {
		current := ns.value
		if current == nil {
			current = ns.initial
		}
		copied, err := deepCopy(current)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to snapshot namespace %q", name)
		}
		snapshot[name] = copied
	}
	return snapshot, nil
}

// Restore replaces each known namespace's value with the corresponding
// snapshot entry. Namespaces absent from the snapshot keep their current
// value; unknown namespaces in the snapshot are ignored. All entries are
// validated before any is applied, so a bad snapshot leaves the store
// untouched.
func (s *Store) Restore(snapshot map[string]map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	staged := make(map[string]map[string]any, len(snapshot))
	for name, value := range snapshot {
		ns, ok := s.namespaces[name]
		if !ok {
			continue
		}
		copied, err := deepCopy(value)
		if err != nil {
			return errors.Wrapf(err, "failed to copy snapshot value for namespace %q", name)
		}
		if err := validate(ns.schema, copied); err != nil {
			return &ValidationError{Namespace: name, Err: err}
		}
		staged[name] = copied
	}

	for name, value := range staged {
		s.namespaces[name].value = value
	}
	return nil
}

// LockNamespace acquires the execution lock for a namespace and returns the
// unlock function. Executions touching the same namespace are serialized to
// keep the snapshot/diff protocol free of lost updates.
func (s *Store) LockNamespace(name string) (func(), error) {
	s.mu.RLock()
	ns, ok := s.namespaces[name]
	s.mu.RUnlock()
	if !ok {
		return nil, &UnknownNamespaceError{Namespace: name}
	}

	ns.execMu.Lock()
	return ns.execMu.Unlock, nil
}

func validate(schema *jsonschema.Schema, value map[string]any) error {
	// Round-trip through JSON so validation sees the same shapes the wire
	// format carries (float64 numbers, []any arrays).
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return err
	}
	return schema.Validate(decoded)
}

func deepCopy(value map[string]any) (map[string]any, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal state value")
	}
	var copied map[string]any
	if err := json.Unmarshal(raw, &copied); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal state value")
	}
	if copied == nil {
		copied = map[string]any{}
	}
	return copied, nil
}
