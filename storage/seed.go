package storage

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/pnp-roster/roster/storage/model"
)

// Seed creates the passed members if the roster is empty. It returns the
// number of created members.
func Seed(store model.RosterStore, members []model.Member) (int, error) {
	if len(members) == 0 {
		return 0, nil
	}
	count, err := store.Count()
	if err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}
	created := 0
	for _, m := range members {
		m.ID = 0
		if err = store.Create(&m); err != nil {
			var alreadyExists model.AlreadyExistsError
			if errors.As(err, &alreadyExists) {
				continue
			}
			return created, errors.Wrapf(err, "could not seed member '%s'", m.Username)
		}
		log.WithField("username", m.Username).Info("seeded roster member")
		created++
	}
	return created, nil
}
