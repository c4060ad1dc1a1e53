package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"github.com/zachmann/go-utils/fileutils"

	"github.com/pnp-roster/roster/storage/model"
)

// FileStorage stores members and audit entries in a single JSON file using
// the players.json layout. Every operation re-reads the file, so external
// edits are picked up; writes go to a temporary file that replaces the data
// file.
type FileStorage struct {
	path     string
	mutex    sync.RWMutex
	auditMax int
}

// NewFileStorage creates a FileStorage at path and creates an empty data
// file if none exists
func NewFileStorage(path string, auditMax int) (*FileStorage, error) {
	if auditMax <= 0 {
		auditMax = model.DefaultAuditMaxEntries
	}
	s := &FileStorage{
		path:     path,
		auditMax: auditMax,
	}
	if fileutils.FileExists(path) {
		return s, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, errors.WithStack(err)
	}
	doc := document{}
	doc.normalize()
	if err := s.writeUnlocked(doc); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the path of the data file
func (s *FileStorage) Path() string {
	return s.path
}

// Ping checks that the data file is readable
func (s *FileStorage) Ping() error {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	_, err := s.readUnlocked()
	return err
}

// MembersStorage returns the model.RosterStore of this FileStorage
func (s *FileStorage) MembersStorage() model.RosterStore {
	return fileMembers{s}
}

// AuditStorage returns the model.AuditStore of this FileStorage
func (s *FileStorage) AuditStorage() model.AuditStore {
	return fileAudit{s}
}

func (s *FileStorage) readUnlocked() (doc document, err error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			doc.normalize()
			return doc, nil
		}
		return doc, errors.WithStack(err)
	}
	if err = json.Unmarshal(data, &doc); err != nil {
		return doc, errors.Wrapf(err, "could not parse data file '%s'", s.path)
	}
	doc.normalize()
	return doc, nil
}

func (s *FileStorage) writeUnlocked(doc document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.WithStack(err)
	}
	tmp := s.path + ".tmp"
	if err = os.WriteFile(tmp, data, 0600); err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(os.Rename(tmp, s.path))
}

func (s *FileStorage) view(do func(doc *document) error) error {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	doc, err := s.readUnlocked()
	if err != nil {
		return err
	}
	return do(&doc)
}

func (s *FileStorage) update(do func(doc *document) error) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	doc, err := s.readUnlocked()
	if err != nil {
		return err
	}
	if err = do(&doc); err != nil {
		return err
	}
	return s.writeUnlocked(doc)
}

type fileMembers struct {
	*FileStorage
}

func (s fileMembers) Create(m *model.Member) error {
	return s.update(
		func(doc *document) error {
			return doc.create(m)
		},
	)
}

func (s fileMembers) List() (members []model.Member, err error) {
	err = s.view(
		func(doc *document) error {
			members = doc.list()
			return nil
		},
	)
	return
}

func (s fileMembers) Get(id uint) (m *model.Member, err error) {
	err = s.view(
		func(doc *document) error {
			m, err = doc.get(id)
			return err
		},
	)
	return
}

func (s fileMembers) GetByUsername(username string) (m *model.Member, err error) {
	err = s.view(
		func(doc *document) error {
			m, err = doc.getByUsername(username)
			return err
		},
	)
	return
}

func (s fileMembers) Upsert(m *model.Member) error {
	return s.update(
		func(doc *document) error {
			return doc.upsert(m)
		},
	)
}

func (s fileMembers) UpdateRank(id uint, rankIndex int) error {
	return s.update(
		func(doc *document) error {
			return doc.updateRank(id, rankIndex)
		},
	)
}

func (s fileMembers) Delete(id uint) error {
	return s.update(
		func(doc *document) error {
			return doc.delete(id)
		},
	)
}

func (s fileMembers) Count() (n int64, err error) {
	err = s.view(
		func(doc *document) error {
			n = int64(len(doc.Members))
			return nil
		},
	)
	return
}

type fileAudit struct {
	*FileStorage
}

func (s fileAudit) Append(e *model.AuditEntry) error {
	return s.update(
		func(doc *document) error {
			doc.appendLog(e, s.auditMax)
			return nil
		},
	)
}

func (s fileAudit) List(limit int) (entries []model.AuditEntry, err error) {
	err = s.view(
		func(doc *document) error {
			entries = doc.logs(limit)
			return nil
		},
	)
	return
}
