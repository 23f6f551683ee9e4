package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/kanchangiri67/OncoCist/internal/core/domain"
	"github.com/kanchangiri67/OncoCist/internal/core/ports"
)

var discardLogger = zerolog.Nop()

// ---------------------------------------------------------------------------
// Accounts
// ---------------------------------------------------------------------------

type stubAccountRepo struct {
	mu       sync.Mutex
	nextID   uint
	accounts map[uint]domain.Account
	// createErr, when set, is returned by Create after the pre-checks pass,
	// simulating a unique violation raised by a concurrent signup.
	createErr error
}

func newStubAccountRepo() *stubAccountRepo {
	return &stubAccountRepo{accounts: make(map[uint]domain.Account)}
}

func (r *stubAccountRepo) Create(_ context.Context, a *domain.Account) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	for _, existing := range r.accounts {
		if existing.Email == a.Email || existing.Username == a.Username {
			return nil, domain.ErrAccountExists
		}
	}
	r.nextID++
	stored := *a
	stored.ID = r.nextID
	r.accounts[stored.ID] = stored
	out := stored
	return &out, nil
}

func (r *stubAccountRepo) find(match func(domain.Account) bool) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if match(a) {
			out := a
			return &out, nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (r *stubAccountRepo) FindByEmail(_ context.Context, email string) (*domain.Account, error) {
	return r.find(func(a domain.Account) bool { return a.Email == email })
}

func (r *stubAccountRepo) FindByUsername(_ context.Context, username string) (*domain.Account, error) {
	return r.find(func(a domain.Account) bool { return a.Username == username })
}

func (r *stubAccountRepo) FindByIDs(_ context.Context, ids []uint) (map[uint]domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[uint]domain.Account, len(ids))
	for _, id := range ids {
		if a, ok := r.accounts[id]; ok {
			out[id] = a
		}
	}
	return out, nil
}

func (r *stubAccountRepo) remove(email string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, a := range r.accounts {
		if a.Email == email {
			delete(r.accounts, id)
		}
	}
}

// ---------------------------------------------------------------------------
// Relational store: patients, scans and predictions with cascade semantics.
// ---------------------------------------------------------------------------

type memStore struct {
	mu          sync.Mutex
	nextID      uint
	patients    map[uint]domain.Patient
	scans       map[uint]domain.Scan
	predictions map[uint]domain.Prediction // keyed by scan id

	createBatchErr error
	predCreateErr  error
	predCreates    int
	// beforePredCreate runs inside Create, before the uniqueness check.
	beforePredCreate func()
}

func newMemStore() *memStore {
	return &memStore{
		patients:    make(map[uint]domain.Patient),
		scans:       make(map[uint]domain.Scan),
		predictions: make(map[uint]domain.Prediction),
	}
}

func (m *memStore) id() uint {
	m.nextID++
	return m.nextID
}

type memPatients struct{ *memStore }

func (m memPatients) FindByID(_ context.Context, id uint) (*domain.Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.patients[id]
	if !ok {
		return nil, domain.ErrPatientNotFound
	}
	return &p, nil
}

func (m memPatients) FindByName(_ context.Context, name string) (*domain.Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.patients {
		if p.Name == name {
			out := p
			return &out, nil
		}
	}
	return nil, domain.ErrPatientNotFound
}

func (m memPatients) Create(_ context.Context, p *domain.Patient) (*domain.Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.patients {
		if existing.Name == p.Name {
			return nil, domain.ErrPatientExists
		}
	}
	stored := *p
	stored.ID = m.id()
	m.patients[stored.ID] = stored
	return &stored, nil
}

func (m memPatients) ListByAccount(_ context.Context, accountID uint) ([]domain.Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[uint]bool{}
	var out []domain.Patient
	for _, s := range m.scans {
		if s.AccountID == accountID && !seen[s.PatientID] {
			seen[s.PatientID] = true
			out = append(out, m.patients[s.PatientID])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m memPatients) Delete(_ context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.patients[id]; !ok {
		return domain.ErrPatientNotFound
	}
	delete(m.patients, id)
	for sid, s := range m.scans {
		if s.PatientID == id {
			delete(m.scans, sid)
			delete(m.predictions, sid)
		}
	}
	return nil
}

type memScans struct{ *memStore }

func (m memScans) CreateBatch(_ context.Context, scans []*domain.Scan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createBatchErr != nil {
		return m.createBatchErr
	}
	for _, s := range scans {
		s.ID = m.id()
		row := *s
		row.UploadedAt = row.UploadedAt.Truncate(time.Microsecond)
		m.scans[s.ID] = row
	}
	return nil
}

func (m memScans) FindByID(_ context.Context, id uint) (*domain.Scan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.scans[id]
	if !ok {
		return nil, domain.ErrScanNotFound
	}
	return &s, nil
}

func (m memScans) list(match func(domain.Scan) bool, limit int) []domain.Scan {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Scan
	for _, s := range m.scans {
		if match(s) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UploadedAt.Equal(out[j].UploadedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].UploadedAt.After(out[j].UploadedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (m memScans) ListByAccount(_ context.Context, accountID uint, limit int) ([]domain.Scan, error) {
	return m.list(func(s domain.Scan) bool { return s.AccountID == accountID }, limit), nil
}

func (m memScans) ListByPatient(_ context.Context, patientID uint, limit int) ([]domain.Scan, error) {
	return m.list(func(s domain.Scan) bool { return s.PatientID == patientID }, limit), nil
}

func (m memScans) DeleteOwned(_ context.Context, scanID, accountID uint) (*domain.Scan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.scans[scanID]
	if !ok || s.AccountID != accountID {
		return nil, domain.ErrScanNotFound
	}
	delete(m.scans, scanID)
	delete(m.predictions, scanID)
	return &s, nil
}

type memPredictions struct{ *memStore }

func (m memPredictions) FindByScanID(_ context.Context, scanID uint) (*domain.Prediction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.predictions[scanID]
	if !ok {
		return nil, domain.ErrPredictionNotFound
	}
	return &p, nil
}

func (m memPredictions) FindByScanIDs(_ context.Context, ids []uint) (map[uint]domain.Prediction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[uint]domain.Prediction)
	for _, id := range ids {
		if p, ok := m.predictions[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (m memPredictions) Create(_ context.Context, p *domain.Prediction) (*domain.Prediction, error) {
	if m.beforePredCreate != nil {
		m.beforePredCreate()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.predCreates++
	if m.predCreateErr != nil {
		return nil, m.predCreateErr
	}
	if _, exists := m.predictions[p.ScanID]; exists {
		return nil, domain.ErrDuplicatePrediction
	}
	// Like postgres: the returned value is what was sent, the stored row keeps
	// microseconds only.
	created := *p
	created.ID = m.id()
	row := created
	row.CreatedAt = row.CreatedAt.Truncate(time.Microsecond)
	m.predictions[p.ScanID] = row
	return &created, nil
}

// ---------------------------------------------------------------------------
// Blobs, scorer, locker, events
// ---------------------------------------------------------------------------

type stubBlobs struct {
	mu      sync.Mutex
	data    map[string][]byte
	putErr  error
	failOn  int // Put call number (1-based) that fails with putErr; 0 means every call
	puts    int
	deleted []string
}

func newStubBlobs() *stubBlobs {
	return &stubBlobs{data: make(map[string][]byte)}
}

func (b *stubBlobs) Put(_ context.Context, key string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.puts++
	if b.putErr != nil && (b.failOn == 0 || b.failOn == b.puts) {
		return b.putErr
	}
	b.data[key] = append([]byte(nil), data...)
	return nil
}

func (b *stubBlobs) Get(_ context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, ok := b.data[key]
	if !ok {
		return nil, errors.New("no such blob")
	}
	return d, nil
}

func (b *stubBlobs) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.data, key)
	b.deleted = append(b.deleted, key)
	return nil
}

func (b *stubBlobs) has(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.data[key]
	return ok
}

type stubScorer struct {
	mu     sync.Mutex
	calls  int
	err    error
	label  string
	onCall func()
}

func (s *stubScorer) Score(_ context.Context, in ports.ScoreInput) (*ports.ScoreResult, error) {
	if s.onCall != nil {
		s.onCall()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	label := s.label
	if label == "" {
		label = domain.TumorGlioma
	}
	return &ports.ScoreResult{
		Overlay:   append([]byte("overlay:"), in.Data...),
		TumorType: label,
		Scores:    map[string]float64{label: 0.9},
	}, nil
}

func (s *stubScorer) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubPublisher struct {
	mu     sync.Mutex
	events []domain.Event
	err    error
}

func (p *stubPublisher) Publish(_ context.Context, e domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func (p *stubPublisher) types() []domain.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// mutexLocker serializes per scan id within the test process.
type mutexLocker struct {
	mu    sync.Mutex
	locks map[uint]*sync.Mutex
	err   error
}

func (l *mutexLocker) Lock(_ context.Context, scanID uint) (func(), error) {
	if l.err != nil {
		return nil, l.err
	}
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[uint]*sync.Mutex)
	}
	m, ok := l.locks[scanID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[scanID] = m
	}
	l.mu.Unlock()
	m.Lock()
	return m.Unlock, nil
}
