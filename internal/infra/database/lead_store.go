package database

import (
	"context"
	"errors"
	"sync"

	"github.com/xavierca1/zoho-lead-sync/internal/entity"
)

// ErrLeadStoreNotOpen é devolvido antes de Open ter sucesso.
var ErrLeadStoreNotOpen = errors.New("lead store not open")

// LeadStoreConn é o que um backend devolve ao abrir: o repositório, o ping do
// health e o fechamento da conexão.
type LeadStoreConn struct {
	Repo  entity.LeadRepositoryInterface
	Ping  func(context.Context) error
	Close func()
}

// LeadStore adia a conexão com o banco de leads até Open, chamado no início do run.
// Até lá, leituras e escritas devolvem ErrLeadStoreNotOpen.
type LeadStore struct {
	open   func(context.Context) (*LeadStoreConn, error)
	openMu sync.Mutex // serializa Open sem travar o health durante a conexão

	mu   sync.RWMutex
	conn *LeadStoreConn
}

func NewLeadStore(open func(context.Context) (*LeadStoreConn, error)) *LeadStore {
	return &LeadStore{open: open}
}

// Open conecta uma única vez; chamadas seguintes não fazem nada.
func (s *LeadStore) Open(ctx context.Context) error {
	s.openMu.Lock()
	defer s.openMu.Unlock()

	if _, err := s.current(); err == nil {
		return nil
	}

	conn, err := s.open(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	return nil
}

func (s *LeadStore) current() (*LeadStoreConn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.conn == nil {
		return nil, ErrLeadStoreNotOpen
	}
	return s.conn, nil
}

func (s *LeadStore) FindAll(ctx context.Context) ([]entity.Lead, error) {
	conn, err := s.current()
	if err != nil {
		return nil, err
	}
	return conn.Repo.FindAll(ctx)
}

func (s *LeadStore) InsertMany(ctx context.Context, leads []entity.Lead) error {
	conn, err := s.current()
	if err != nil {
		return err
	}
	return conn.Repo.InsertMany(ctx, leads)
}

// Ping serve de check do health.
func (s *LeadStore) Ping(ctx context.Context) error {
	conn, err := s.current()
	if err != nil {
		return err
	}
	if conn.Ping == nil {
		return nil
	}
	return conn.Ping(ctx)
}

func (s *LeadStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil && s.conn.Close != nil {
		s.conn.Close()
	}
	s.conn = nil
}

var _ entity.LeadRepositoryInterface = (*LeadStore)(nil)
