package storage

import (
	"sync"

	"github.com/pnp-roster/roster/storage/model"
)

// MemoryStorage keeps members and audit entries in memory
type MemoryStorage struct {
	mutex    sync.RWMutex
	doc      document
	auditMax int
}

// NewMemoryStorage creates an empty MemoryStorage
func NewMemoryStorage(auditMax int) *MemoryStorage {
	if auditMax <= 0 {
		auditMax = model.DefaultAuditMaxEntries
	}
	s := &MemoryStorage{auditMax: auditMax}
	s.doc.normalize()
	return s
}

// MembersStorage returns the model.RosterStore of this MemoryStorage
func (s *MemoryStorage) MembersStorage() model.RosterStore {
	return memoryMembers{s}
}

// AuditStorage returns the model.AuditStore of this MemoryStorage
func (s *MemoryStorage) AuditStorage() model.AuditStore {
	return memoryAudit{s}
}

type memoryMembers struct {
	*MemoryStorage
}

func (s memoryMembers) Create(m *model.Member) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.doc.create(m)
}

func (s memoryMembers) List() ([]model.Member, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.doc.list(), nil
}

func (s memoryMembers) Get(id uint) (*model.Member, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.doc.get(id)
}

func (s memoryMembers) GetByUsername(username string) (*model.Member, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.doc.getByUsername(username)
}

func (s memoryMembers) Upsert(m *model.Member) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.doc.upsert(m)
}

func (s memoryMembers) UpdateRank(id uint, rankIndex int) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.doc.updateRank(id, rankIndex)
}

func (s memoryMembers) Delete(id uint) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.doc.delete(id)
}

func (s memoryMembers) Count() (int64, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return int64(len(s.doc.Members)), nil
}

type memoryAudit struct {
	*MemoryStorage
}

func (s memoryAudit) Append(e *model.AuditEntry) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.doc.appendLog(e, s.auditMax)
	return nil
}

func (s memoryAudit) List(limit int) ([]model.AuditEntry, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.doc.logs(limit), nil
}
