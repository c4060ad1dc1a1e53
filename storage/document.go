package storage

import (
	"cmp"
	"slices"
	"time"

	"github.com/pnp-roster/roster/storage/model"
)

// document is the complete state of a non-relational backend. Its JSON form
// is the players.json layout.
type document struct {
	Members []model.Member     `json:"members"`
	Logs    []model.AuditEntry `json:"logs"`
}

func (d *document) normalize() {
	if d.Members == nil {
		d.Members = []model.Member{}
	}
	if d.Logs == nil {
		d.Logs = []model.AuditEntry{}
	}
	for i := range d.Members {
		d.Members[i].UsernameKey = model.UsernameKey(d.Members[i].Username)
	}
	slices.SortStableFunc(
		d.Members, func(a, b model.Member) int {
			return cmp.Compare(a.ID, b.ID)
		},
	)
}

func (d *document) memberIndex(id uint) int {
	return slices.IndexFunc(
		d.Members, func(m model.Member) bool {
			return m.ID == id
		},
	)
}

func (d *document) get(id uint) (*model.Member, error) {
	i := d.memberIndex(id)
	if i < 0 {
		return nil, model.NotFoundErrorFmt("member not found: %d", id)
	}
	m := d.Members[i]
	return &m, nil
}

func (d *document) getByUsername(username string) (*model.Member, error) {
	k := model.UsernameKey(username)
	for _, m := range d.Members {
		if m.UsernameKey == k {
			return &m, nil
		}
	}
	return nil, model.NotFoundErrorFmt("member not found: %s", username)
}

func (d *document) list() []model.Member {
	return slices.Clone(d.Members)
}

// create assigns the next id, which is one above the highest id in use
func (d *document) create(m *model.Member) error {
	m.UsernameKey = model.UsernameKey(m.Username)
	if _, err := d.getByUsername(m.Username); err == nil {
		return model.AlreadyExistsErrorFmt("member already exists: %s", m.Username)
	}
	var maxID uint
	for _, x := range d.Members {
		maxID = max(maxID, x.ID)
	}
	m.ID = maxID + 1
	now := time.Now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
	d.Members = append(d.Members, *m)
	return nil
}

// upsert replaces the member with m.ID or inserts m. A username held by
// another id is rejected.
func (d *document) upsert(m *model.Member) error {
	m.UsernameKey = model.UsernameKey(m.Username)
	if other, err := d.getByUsername(m.Username); err == nil && other.ID != m.ID {
		return model.AlreadyExistsErrorFmt("member already exists: %s", m.Username)
	}
	if i := d.memberIndex(m.ID); i >= 0 {
		d.Members[i] = *m
		return nil
	}
	d.Members = append(d.Members, *m)
	d.normalize()
	return nil
}

func (d *document) updateRank(id uint, rankIndex int) error {
	i := d.memberIndex(id)
	if i < 0 {
		return model.NotFoundErrorFmt("member not found: %d", id)
	}
	d.Members[i].RankIndex = rankIndex
	d.Members[i].UpdatedAt = time.Now().UTC()
	return nil
}

func (d *document) delete(id uint) error {
	i := d.memberIndex(id)
	if i < 0 {
		return model.NotFoundErrorFmt("member not found: %d", id)
	}
	d.Members = slices.Delete(d.Members, i, i+1)
	return nil
}

// appendLog inserts e at the front and cuts the log to limit entries
func (d *document) appendLog(e *model.AuditEntry, limit int) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	var maxID uint
	for _, x := range d.Logs {
		maxID = max(maxID, x.ID)
	}
	e.ID = maxID + 1
	d.Logs = slices.Insert(d.Logs, 0, *e)
	sortAuditEntries(d.Logs)
	if len(d.Logs) > limit {
		d.Logs = d.Logs[:limit]
	}
}

func (d *document) logs(limit int) []model.AuditEntry {
	if limit <= 0 || limit > len(d.Logs) {
		limit = len(d.Logs)
	}
	return slices.Clone(d.Logs[:limit])
}

// sortAuditEntries orders entries newest first
func sortAuditEntries(entries []model.AuditEntry) {
	slices.SortStableFunc(
		entries, func(a, b model.AuditEntry) int {
			if c := b.At.Compare(a.At); c != 0 {
				return c
			}
			return cmp.Compare(b.ID, a.ID)
		},
	)
}
