package storage

import (
	"slices"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/pnp-roster/roster/storage/model"
)

// SyncResult reports what Sync copied
type SyncResult struct {
	Members    int
	AuditAdded int
}

type auditKey struct {
	at      time.Time
	admin   string
	action  string
	details string
}

func auditKeyOf(e model.AuditEntry) auditKey {
	return auditKey{
		at:      e.At.UTC().Truncate(time.Microsecond),
		admin:   e.Admin,
		action:  e.Action,
		details: e.Details,
	}
}

// Sync copies all members and audit entries from src to dst. Members are
// upserted by id; audit entries already present in dst, compared by time,
// admin, action and details, are skipped.
func Sync(src, dst model.Backends) (SyncResult, error) {
	var res SyncResult
	members, err := src.Members.List()
	if err != nil {
		return res, errors.Wrap(err, "could not list source members")
	}
	for i := range members {
		if err = dst.Members.Upsert(&members[i]); err != nil {
			return res, errors.Wrapf(err, "could not copy member %d", members[i].ID)
		}
		res.Members++
	}

	entries, err := src.Audit.List(0)
	if err != nil {
		return res, errors.Wrap(err, "could not list source audit entries")
	}
	existing, err := dst.Audit.List(0)
	if err != nil {
		return res, errors.Wrap(err, "could not list destination audit entries")
	}
	seen := make(map[auditKey]struct{}, len(existing))
	for _, e := range existing {
		seen[auditKeyOf(e)] = struct{}{}
	}
	// oldest first, so that retention in dst drops the right entries
	slices.Reverse(entries)
	for _, e := range entries {
		k := auditKeyOf(e)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		e.ID = 0
		if err = dst.Audit.Append(&e); err != nil {
			return res, errors.Wrap(err, "could not copy audit entry")
		}
		res.AuditAdded++
	}
	log.WithFields(
		log.Fields{
			"members": res.Members,
			"audit":   res.AuditAdded,
		},
	).Info("synced storage backends")
	return res, nil
}
