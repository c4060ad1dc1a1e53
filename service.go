package roster

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"github.com/pnp-roster/roster/avatar"
	"github.com/pnp-roster/roster/ranks"
	"github.com/pnp-roster/roster/storage/model"
)

// maxConcurrentAvatarLookups bounds the avatar lookups of a single List call
const maxConcurrentAvatarLookups = 8

// AvatarCache resolves avatars and can warm its cache in the background
type AvatarCache interface {
	avatar.Resolver
	Warm(username string)
}

// Service implements the roster operations on top of the storage backends.
// All mutations are serialized by a single mutex, so that the
// read-modify-write sequences of concurrent requests do not interleave.
type Service struct {
	mutex   sync.Mutex
	members model.RosterStore
	audit   model.AuditStore
	ladder  *ranks.Ladder
	avatars AvatarCache
	now     func() time.Time
}

// NewService creates a new Service. avatars may be nil, in which case no
// avatars are resolved.
func NewService(backends model.Backends, ladder *ranks.Ladder, avatars AvatarCache) *Service {
	if ladder == nil {
		ladder = ranks.Default()
	}
	return &Service{
		members: backends.Members,
		audit:   backends.Audit,
		ladder:  ladder,
		avatars: avatars,
		now:     time.Now,
	}
}

// Ladder returns the rank ladder of this Service
func (s *Service) Ladder() *ranks.Ladder {
	return s.ladder
}

type auditMeta struct {
	MemberID uint   `json:"member_id,omitempty"`
	From     string `json:"from,omitempty"`
	To       string `json:"to,omitempty"`
}

// record appends an audit entry. A failing audit write does not undo the
// already persisted mutation; it is logged instead.
func (s *Service) record(actor, action, details string, meta *auditMeta) {
	e := &model.AuditEntry{
		At:      s.now().UTC(),
		Admin:   actor,
		Action:  action,
		Details: details,
	}
	if meta != nil {
		if data, err := json.Marshal(meta); err == nil {
			e.Meta = datatypes.JSON(data)
		}
	}
	if err := s.audit.Append(e); err != nil {
		log.WithError(err).WithFields(
			log.Fields{
				"admin":  actor,
				"action": action,
			},
		).Error("could not write audit entry")
	}
}

// RecordLogin audits a successful admin login
func (s *Service) RecordLogin(actor string) {
	s.record(actor, model.AuditActionLogin, "admin logged in", nil)
}

// RecordLogout audits an admin logout
func (s *Service) RecordLogout(actor string) {
	s.record(actor, model.AuditActionLogout, "admin logged out", nil)
}

// Add creates a new member with the passed username. rankIndex is clamped
// into the ladder. Usernames are unique case-insensitively.
func (s *Service) Add(_ context.Context, actor, username string, rankIndex int) (model.MemberResult, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return model.MemberResult{}, model.ValidationError("username must not be empty")
	}

	s.mutex.Lock()
	_, err := s.members.GetByUsername(username)
	if err == nil {
		s.mutex.Unlock()
		return model.MemberResult{}, model.AlreadyExistsErrorFmt("member already exists: %s", username)
	}
	var notFound model.NotFoundError
	if !errors.As(err, &notFound) {
		s.mutex.Unlock()
		return model.MemberResult{}, errors.Wrap(err, "could not check for existing member")
	}
	m := model.Member{
		Username:  username,
		RankIndex: s.ladder.Clamp(rankIndex),
		CreatedAt: s.now().UTC(),
	}
	if err = s.members.Create(&m); err != nil {
		s.mutex.Unlock()
		var alreadyExists model.AlreadyExistsError
		if errors.As(err, &alreadyExists) {
			return model.MemberResult{}, err
		}
		return model.MemberResult{}, errors.Wrap(err, "could not create member")
	}
	rank := s.ladder.DisplayName(m.RankIndex)
	s.record(
		actor, model.AuditActionAdd, fmt.Sprintf("%s -> %s", username, rank), &auditMeta{
			MemberID: m.ID,
			To:       rank,
		},
	)
	s.mutex.Unlock()

	if s.avatars != nil {
		s.avatars.Warm(username)
	}
	log.WithFields(
		log.Fields{
			"admin":    actor,
			"username": username,
			"rank":     rank,
		},
	).Info("added roster member")
	return model.MemberResult{
		Member:  m,
		Changed: true,
		To:      rank,
	}, nil
}

// Promote moves a member one rank up. At the top of the ladder nothing is
// written and the result reports Changed == false.
func (s *Service) Promote(ctx context.Context, actor string, id uint) (model.MemberResult, error) {
	return s.step(ctx, actor, id, ranks.Promote)
}

// Demote moves a member one rank down. At the bottom of the ladder nothing is
// written and the result reports Changed == false.
func (s *Service) Demote(ctx context.Context, actor string, id uint) (model.MemberResult, error) {
	return s.step(ctx, actor, id, ranks.Demote)
}

func (s *Service) step(_ context.Context, actor string, id uint, d ranks.Direction) (model.MemberResult, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	m, err := s.members.Get(id)
	if err != nil {
		return model.MemberResult{}, wrapStorageError(err, "could not load member")
	}
	from := s.ladder.DisplayName(m.RankIndex)
	next, changed := s.ladder.Step(m.RankIndex, d)
	if !changed {
		return model.MemberResult{
			Member: *m,
			From:   from,
			To:     from,
		}, nil
	}
	if err = s.members.UpdateRank(id, next); err != nil {
		return model.MemberResult{}, wrapStorageError(err, "could not update rank")
	}
	m.RankIndex = next
	to := s.ladder.DisplayName(next)
	action := model.AuditActionPromote
	if d == ranks.Demote {
		action = model.AuditActionDemote
	}
	s.record(
		actor, action, fmt.Sprintf("%s -> %s", m.Username, to), &auditMeta{
			MemberID: id,
			From:     from,
			To:       to,
		},
	)
	log.WithFields(
		log.Fields{
			"admin":    actor,
			"username": m.Username,
			"from":     from,
			"to":       to,
		},
	).Infof("%sd roster member", d)
	return model.MemberResult{
		Member:  *m,
		Changed: true,
		From:    from,
		To:      to,
	}, nil
}

// Delete removes a member
func (s *Service) Delete(_ context.Context, actor string, id uint) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	m, err := s.members.Get(id)
	if err != nil {
		return wrapStorageError(err, "could not load member")
	}
	if err = s.members.Delete(id); err != nil {
		return wrapStorageError(err, "could not delete member")
	}
	s.record(
		actor, model.AuditActionDelete, m.Username, &auditMeta{
			MemberID: id,
			From:     s.ladder.DisplayName(m.RankIndex),
		},
	)
	log.WithFields(
		log.Fields{
			"admin":    actor,
			"username": m.Username,
		},
	).Info("deleted roster member")
	return nil
}

// Get returns the view of a single member
func (s *Service) Get(ctx context.Context, id uint) (model.MemberView, error) {
	m, err := s.members.Get(id)
	if err != nil {
		return model.MemberView{}, wrapStorageError(err, "could not load member")
	}
	return s.view(ctx, *m), nil
}

// List returns all members ordered by id with their rank names and avatars
// resolved
func (s *Service) List(ctx context.Context) ([]model.MemberView, error) {
	members, err := s.members.List()
	if err != nil {
		return nil, errors.Wrap(err, "could not list members")
	}
	views := make([]model.MemberView, len(members))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentAvatarLookups)
	for i, m := range members {
		g.Go(
			func() error {
				views[i] = s.view(gctx, m)
				return nil
			},
		)
	}
	_ = g.Wait()
	return views, nil
}

// Audit returns at most limit audit entries, newest first
func (s *Service) Audit(limit int) ([]model.AuditEntry, error) {
	entries, err := s.audit.List(limit)
	return entries, errors.Wrap(err, "could not list audit entries")
}

func (s *Service) view(ctx context.Context, m model.Member) model.MemberView {
	v := model.MemberView{
		ID:        m.ID,
		Username:  m.Username,
		RankIndex: m.RankIndex,
		Rank:      s.ladder.DisplayName(m.RankIndex),
		CreatedAt: m.CreatedAt,
	}
	if s.avatars != nil {
		if a := s.avatars.Resolve(ctx, m.Username); a.Found() {
			v.Avatar = &a.URL
		}
	}
	return v
}

// wrapStorageError keeps the typed model errors unwrapped, so callers can
// map them, and adds context to everything else
func wrapStorageError(err error, msg string) error {
	var notFound model.NotFoundError
	if errors.As(err, &notFound) {
		return err
	}
	return errors.Wrap(err, msg)
}
