package faceapi

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Mock is an in-memory face service for tests and offline runs.
// Function fields override the default behavior.
type Mock struct {
	DetectFunc   func(ctx context.Context, image []byte) ([]DetectedFace, error)
	IdentifyFunc func(ctx context.Context, faceIDs []string) ([]IdentifyResult, error)

	mu      sync.Mutex
	persons map[string]*Person
	nextID  int
	trained bool
	calls   []MockCall
}

// MockCall records a method invocation for verification.
type MockCall struct {
	Method string
	Arg    string
	Time   time.Time
}

// NewMock creates an empty mock service. Detect returns no faces and
// identify returns no candidates until the function fields are set.
func NewMock() *Mock {
	return &Mock{persons: make(map[string]*Person)}
}

// DetectFaces calls DetectFunc.
func (m *Mock) DetectFaces(ctx context.Context, image []byte) ([]DetectedFace, error) {
	m.record("DetectFaces", "")
	if m.DetectFunc != nil {
		return m.DetectFunc(ctx, image)
	}
	return nil, nil
}

// IdentifyFaces calls IdentifyFunc, or returns empty candidate lists.
func (m *Mock) IdentifyFaces(ctx context.Context, faceIDs []string) ([]IdentifyResult, error) {
	m.record("IdentifyFaces", fmt.Sprint(faceIDs))
	if m.IdentifyFunc != nil {
		return m.IdentifyFunc(ctx, faceIDs)
	}
	results := make([]IdentifyResult, len(faceIDs))
	for i, id := range faceIDs {
		results[i] = IdentifyResult{FaceID: id}
	}
	return results, nil
}

// GetPerson returns a stored person.
func (m *Mock) GetPerson(ctx context.Context, personID string) (*Person, error) {
	m.record("GetPerson", personID)
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.persons[personID]
	if !ok {
		return nil, &APIError{StatusCode: 404, Code: "PersonNotFound", Message: "person not found", Operation: "get_person"}
	}
	cp := *p
	return &cp, nil
}

// ListPersons returns every stored person.
func (m *Mock) ListPersons(ctx context.Context) ([]Person, error) {
	m.record("ListPersons", "")
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Person, 0, len(m.persons))
	for _, p := range m.persons {
		out = append(out, *p)
	}
	return out, nil
}

// CreatePerson stores a new person.
func (m *Mock) CreatePerson(ctx context.Context, name, userData string) (string, error) {
	m.record("CreatePerson", name)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := fmt.Sprintf("person-%d", m.nextID)
	m.persons[id] = &Person{PersonID: id, Name: name, UserData: userData}
	m.trained = false
	return id, nil
}

// AddPersonFace records a persisted face for the person.
func (m *Mock) AddPersonFace(ctx context.Context, personID string, image []byte, target *Rectangle) (string, error) {
	m.record("AddPersonFace", personID)
	return m.addFace(personID)
}

// AddPersonFaceFromURL records a persisted face for the person.
func (m *Mock) AddPersonFaceFromURL(ctx context.Context, personID, imageURL string, target *Rectangle) (string, error) {
	m.record("AddPersonFaceFromURL", personID)
	return m.addFace(personID)
}

func (m *Mock) addFace(personID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.persons[personID]
	if !ok {
		return "", &APIError{StatusCode: 404, Code: "PersonNotFound", Message: "person not found", Operation: "add_person_face"}
	}
	faceID := fmt.Sprintf("%s-face-%d", personID, len(p.PersistedFaceIDs)+1)
	p.PersistedFaceIDs = append(p.PersistedFaceIDs, faceID)
	m.trained = false
	return faceID, nil
}

// RemovePerson deletes a stored person.
func (m *Mock) RemovePerson(ctx context.Context, personID string) error {
	m.record("RemovePerson", personID)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.persons[personID]; !ok {
		return &APIError{StatusCode: 404, Code: "PersonNotFound", Message: "person not found", Operation: "remove_person"}
	}
	delete(m.persons, personID)
	return nil
}

// TrainPersonGroup marks the group trained.
func (m *Mock) TrainPersonGroup(ctx context.Context) error {
	m.record("TrainPersonGroup", "")
	m.mu.Lock()
	m.trained = true
	m.mu.Unlock()
	return nil
}

// TrainingStatus reports succeeded once trained.
func (m *Mock) TrainingStatus(ctx context.Context) (*TrainingStatus, error) {
	m.record("TrainingStatus", "")
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.trained {
		return &TrainingStatus{Status: TrainingSucceeded}, nil
	}
	return &TrainingStatus{Status: TrainingNotStarted}, nil
}

func (m *Mock) record(method, arg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockCall{Method: method, Arg: arg, Time: time.Now()})
}

// Calls returns all recorded calls.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns the number of times a method was called.
func (m *Mock) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}
