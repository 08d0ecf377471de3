// Package memory implementa los puertos de persistencia en memoria. Lo usan los tests y
// STORE_DRIVER=memory. Las transacciones se serializan y se revierten ante error.
package memory

import (
	"sync"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// Store es el estado compartido por los repositorios en memoria.
type Store struct {
	mu        sync.Mutex
	products  map[string]*entity.Product
	locations map[string]*entity.StockLocation
	events    []*entity.StockEvent
	seq       int64
	now       func() time.Time
}

// NewStore crea un almacén vacío.
func NewStore() *Store {
	return &Store{
		products:  make(map[string]*entity.Product),
		locations: make(map[string]*entity.StockLocation),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

type snapshot struct {
	products  map[string]*entity.Product
	locations map[string]*entity.StockLocation
	events    []*entity.StockEvent
	seq       int64
}

// snapshot copia el estado mutable. Los eventos son inmutables: basta con conservar el slice.
func (s *Store) snapshot() snapshot {
	snap := snapshot{
		products:  make(map[string]*entity.Product, len(s.products)),
		locations: make(map[string]*entity.StockLocation, len(s.locations)),
		events:    s.events[:len(s.events):len(s.events)],
		seq:       s.seq,
	}
	for id, p := range s.products {
		cp := *p
		snap.products[id] = &cp
	}
	for id, l := range s.locations {
		cp := *l
		snap.locations[id] = &cp
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.products = snap.products
	s.locations = snap.locations
	s.events = snap.events
	s.seq = snap.seq
}

// guard toma el mutex salvo cuando el repositorio ya corre dentro de una transacción.
func (s *Store) guard(inTx bool) func() {
	if inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}
