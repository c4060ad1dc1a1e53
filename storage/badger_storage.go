package storage

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/pnp-roster/roster/storage/model"
)

const (
	badgerMembersPrefix     = "members:"
	badgerUsernamesPrefix   = "members_by_name:"
	badgerAuditPrefix       = "audit:"
	badgerMembersSeqKey     = "seq:members"
	badgerAuditSeqKey       = "seq:audit"
	badgerValueLogGCPeriod  = 5 * time.Minute
	badgerValueLogGCDiscard = 0.7
)

// BadgerStorage stores members and audit entries in a badger key-value store.
// Values are JSON encoded; ids come from counters stored next to the data.
type BadgerStorage struct {
	db       *badger.DB
	auditMax int
	// mutex serializes read-modify-write sequences on the counters
	mutex sync.Mutex
	stop  chan struct{}
	done  chan struct{}
}

// NewBadgerStorage opens or creates a badger database at path
func NewBadgerStorage(path string, auditMax int) (*BadgerStorage, error) {
	return openBadger(badger.DefaultOptions(path).WithLogger(nil), auditMax)
}

func openBadger(opts badger.Options, auditMax int) (*BadgerStorage, error) {
	if auditMax <= 0 {
		auditMax = model.DefaultAuditMaxEntries
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "could not open badger database")
	}
	s := &BadgerStorage{
		db:       db,
		auditMax: auditMax,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	if opts.InMemory {
		close(s.done)
	} else {
		go s.runValueLogGC()
	}
	return s, nil
}

func (s *BadgerStorage) runValueLogGC() {
	defer close(s.done)
	ticker := time.NewTicker(badgerValueLogGCPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			for s.db.RunValueLogGC(badgerValueLogGCDiscard) == nil {
			}
		}
	}
}

// Close stops the value log garbage collection and closes the database
func (s *BadgerStorage) Close() error {
	close(s.stop)
	<-s.done
	return errors.WithStack(s.db.Close())
}

// MembersStorage returns the model.RosterStore of this BadgerStorage
func (s *BadgerStorage) MembersStorage() model.RosterStore {
	return badgerMembers{s}
}

// AuditStorage returns the model.AuditStore of this BadgerStorage
func (s *BadgerStorage) AuditStorage() model.AuditStore {
	return badgerAudit{s}
}

func badgerIDKey(prefix string, id uint) []byte {
	return []byte(fmt.Sprintf("%s%020d", prefix, id))
}

func badgerRead(txn *badger.Txn, key []byte, target any) (bool, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, errors.WithStack(err)
	}
	return true, item.Value(
		func(val []byte) error {
			return json.Unmarshal(val, target)
		},
	)
}

func badgerWrite(txn *badger.Txn, key []byte, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(txn.Set(key, data))
}

func badgerNextID(txn *badger.Txn, seqKey string) (uint, error) {
	var last uint
	if _, err := badgerRead(txn, []byte(seqKey), &last); err != nil {
		return 0, err
	}
	last++
	return last, badgerWrite(txn, []byte(seqKey), last)
}

// badgerIterate calls do for all values below prefix in key order
func badgerIterate(txn *badger.Txn, prefix string, do func(v []byte) error) error {
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()
	p := []byte(prefix)
	for it.Seek(p); it.ValidForPrefix(p); it.Next() {
		if err := it.Item().Value(do); err != nil {
			return err
		}
	}
	return nil
}

type badgerMembers struct {
	*BadgerStorage
}

func (s badgerMembers) Create(m *model.Member) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	m.UsernameKey = model.UsernameKey(m.Username)
	return s.db.Update(
		func(txn *badger.Txn) error {
			var existing uint
			found, err := badgerRead(txn, []byte(badgerUsernamesPrefix+m.UsernameKey), &existing)
			if err != nil {
				return err
			}
			if found {
				return model.AlreadyExistsErrorFmt("member already exists: %s", m.Username)
			}
			id, err := badgerNextID(txn, badgerMembersSeqKey)
			if err != nil {
				return err
			}
			now := time.Now().UTC()
			m.ID = id
			if m.CreatedAt.IsZero() {
				m.CreatedAt = now
			}
			m.UpdatedAt = now
			if err = badgerWrite(txn, badgerIDKey(badgerMembersPrefix, id), m); err != nil {
				return err
			}
			return badgerWrite(txn, []byte(badgerUsernamesPrefix+m.UsernameKey), id)
		},
	)
}

func (s badgerMembers) List() (members []model.Member, err error) {
	err = s.db.View(
		func(txn *badger.Txn) error {
			return badgerIterate(
				txn, badgerMembersPrefix, func(v []byte) error {
					var m model.Member
					if err := json.Unmarshal(v, &m); err != nil {
						return errors.WithStack(err)
					}
					m.UsernameKey = model.UsernameKey(m.Username)
					members = append(members, m)
					return nil
				},
			)
		},
	)
	return
}

func (s badgerMembers) get(txn *badger.Txn, id uint) (*model.Member, error) {
	var m model.Member
	found, err := badgerRead(txn, badgerIDKey(badgerMembersPrefix, id), &m)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, model.NotFoundErrorFmt("member not found: %d", id)
	}
	m.UsernameKey = model.UsernameKey(m.Username)
	return &m, nil
}

func (s badgerMembers) Get(id uint) (m *model.Member, err error) {
	err = s.db.View(
		func(txn *badger.Txn) error {
			m, err = s.get(txn, id)
			return err
		},
	)
	return
}

func (s badgerMembers) GetByUsername(username string) (m *model.Member, err error) {
	err = s.db.View(
		func(txn *badger.Txn) error {
			var id uint
			found, err := badgerRead(txn, []byte(badgerUsernamesPrefix+model.UsernameKey(username)), &id)
			if err != nil {
				return err
			}
			if !found {
				return model.NotFoundErrorFmt("member not found: %s", username)
			}
			m, err = s.get(txn, id)
			return err
		},
	)
	return
}

func (s badgerMembers) Upsert(m *model.Member) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	m.UsernameKey = model.UsernameKey(m.Username)
	return s.db.Update(
		func(txn *badger.Txn) error {
			var holder uint
			found, err := badgerRead(txn, []byte(badgerUsernamesPrefix+m.UsernameKey), &holder)
			if err != nil {
				return err
			}
			if found && holder != m.ID {
				return model.AlreadyExistsErrorFmt("member already exists: %s", m.Username)
			}
			old, err := s.get(txn, m.ID)
			if err == nil && old.UsernameKey != m.UsernameKey {
				if err = txn.Delete([]byte(badgerUsernamesPrefix + old.UsernameKey)); err != nil {
					return errors.WithStack(err)
				}
			}
			var last uint
			if _, err = badgerRead(txn, []byte(badgerMembersSeqKey), &last); err != nil {
				return err
			}
			if m.ID > last {
				if err = badgerWrite(txn, []byte(badgerMembersSeqKey), m.ID); err != nil {
					return err
				}
			}
			if err = badgerWrite(txn, badgerIDKey(badgerMembersPrefix, m.ID), m); err != nil {
				return err
			}
			return badgerWrite(txn, []byte(badgerUsernamesPrefix+m.UsernameKey), m.ID)
		},
	)
}

func (s badgerMembers) UpdateRank(id uint, rankIndex int) error {
	return s.db.Update(
		func(txn *badger.Txn) error {
			m, err := s.get(txn, id)
			if err != nil {
				return err
			}
			m.RankIndex = rankIndex
			m.UpdatedAt = time.Now().UTC()
			return badgerWrite(txn, badgerIDKey(badgerMembersPrefix, id), m)
		},
	)
}

func (s badgerMembers) Delete(id uint) error {
	return s.db.Update(
		func(txn *badger.Txn) error {
			m, err := s.get(txn, id)
			if err != nil {
				return err
			}
			if err = txn.Delete(badgerIDKey(badgerMembersPrefix, id)); err != nil {
				return errors.WithStack(err)
			}
			return errors.WithStack(txn.Delete([]byte(badgerUsernamesPrefix + m.UsernameKey)))
		},
	)
}

func (s badgerMembers) Count() (int64, error) {
	var n int64
	err := s.db.View(
		func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.PrefetchValues = false
			it := txn.NewIterator(opts)
			defer it.Close()
			p := []byte(badgerMembersPrefix)
			for it.Seek(p); it.ValidForPrefix(p); it.Next() {
				n++
			}
			return nil
		},
	)
	return n, err
}

type badgerAudit struct {
	*BadgerStorage
}

func (s badgerAudit) all(txn *badger.Txn) (entries []model.AuditEntry, err error) {
	err = badgerIterate(
		txn, badgerAuditPrefix, func(v []byte) error {
			var e model.AuditEntry
			if err := json.Unmarshal(v, &e); err != nil {
				return errors.WithStack(err)
			}
			entries = append(entries, e)
			return nil
		},
	)
	sortAuditEntries(entries)
	return
}

func (s badgerAudit) Append(e *model.AuditEntry) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	return s.db.Update(
		func(txn *badger.Txn) error {
			id, err := badgerNextID(txn, badgerAuditSeqKey)
			if err != nil {
				return err
			}
			e.ID = id
			if err = badgerWrite(txn, badgerIDKey(badgerAuditPrefix, id), e); err != nil {
				return err
			}
			entries, err := s.all(txn)
			if err != nil {
				return err
			}
			if len(entries) <= s.auditMax {
				return nil
			}
			for _, old := range entries[s.auditMax:] {
				if err = txn.Delete(badgerIDKey(badgerAuditPrefix, old.ID)); err != nil {
					return errors.WithStack(err)
				}
			}
			log.WithField("removed", len(entries)-s.auditMax).Debug("trimmed audit log")
			return nil
		},
	)
}

func (s badgerAudit) List(limit int) (entries []model.AuditEntry, err error) {
	err = s.db.View(
		func(txn *badger.Txn) error {
			entries, err = s.all(txn)
			return err
		},
	)
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return
}
