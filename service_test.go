package roster

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pnp-roster/roster/avatar"
	"github.com/pnp-roster/roster/ranks"
	"github.com/pnp-roster/roster/storage"
	"github.com/pnp-roster/roster/storage/model"
)

type fakeAvatars struct {
	mu     sync.Mutex
	urls   map[string]string
	warmed []string
}

func (f *fakeAvatars) Resolve(_ context.Context, username string) avatar.Avatar {
	f.mu.Lock()
	defer f.mu.Unlock()
	return avatar.Avatar{URL: f.urls[strings.ToLower(username)]}
}

func (f *fakeAvatars) Warm(username string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.warmed = append(f.warmed, username)
}

type failingAudit struct{}

func (failingAudit) Append(*model.AuditEntry) error {
	return errors.New("audit unavailable")
}

func (failingAudit) List(int) ([]model.AuditEntry, error) {
	return nil, errors.New("audit unavailable")
}

var testLadder = ranks.MustNewLadder([]string{"Low", "Mid", "High"})

func newTestService(t *testing.T, avatars AvatarCache) (*Service, model.Backends) {
	t.Helper()
	backends, err := storage.LoadStorageBackends(storage.Config{Driver: storage.DriverMemory})
	require.NoError(t, err)
	return NewService(backends, testLadder, avatars), backends
}

func auditActions(t *testing.T, s *Service) []string {
	t.Helper()
	entries, err := s.Audit(0)
	require.NoError(t, err)
	actions := make([]string, len(entries))
	for i, e := range entries {
		actions[i] = e.Action
	}
	return actions
}

func TestService_LadderWalk(t *testing.T) {
	s, _ := newTestService(t, nil)
	ctx := context.Background()

	res, err := s.Add(ctx, "admin", "Alice", 0)
	require.NoError(t, err)
	id := res.Member.ID
	assert.Equal(t, "Low", res.To)

	steps := []struct {
		op      func(context.Context, string, uint) (model.MemberResult, error)
		index   int
		changed bool
	}{
		{s.Promote, 1, true},
		{s.Promote, 2, true},
		{s.Promote, 2, false},
		{s.Demote, 1, true},
		{s.Demote, 0, true},
		{s.Demote, 0, false},
	}
	for i, step := range steps {
		res, err = step.op(ctx, "admin", id)
		require.NoError(t, err, i)
		assert.Equal(t, step.changed, res.Changed, i)
		assert.Equal(t, step.index, res.Member.RankIndex, i)

		v, err := s.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, step.index, v.RankIndex, i)
		assert.Equal(t, testLadder.DisplayName(step.index), v.Rank, i)
	}

	// boundary no-ops are not audited
	assert.Equal(
		t, []string{
			model.AuditActionDemote,
			model.AuditActionDemote,
			model.AuditActionPromote,
			model.AuditActionPromote,
			model.AuditActionAdd,
		}, auditActions(t, s),
	)
}

func TestService_AddAuditDetails(t *testing.T) {
	s, _ := newTestService(t, nil)
	now := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	res, err := s.Add(context.Background(), "root", "  Bob ", 1)
	require.NoError(t, err)
	assert.Equal(t, "Bob", res.Member.Username)
	assert.Equal(t, now, res.Member.CreatedAt)

	entries, err := s.Audit(1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, "root", e.Admin)
	assert.Equal(t, model.AuditActionAdd, e.Action)
	assert.Equal(t, "Bob -> Mid", e.Details)
	assert.True(t, now.Equal(e.At))

	var meta auditMeta
	require.NoError(t, json.Unmarshal(e.Meta, &meta))
	assert.Equal(t, res.Member.ID, meta.MemberID)
	assert.Equal(t, "Mid", meta.To)
}

func TestService_AddRejects(t *testing.T) {
	s, backends := newTestService(t, nil)
	ctx := context.Background()

	_, err := s.Add(ctx, "admin", "Alice", 0)
	require.NoError(t, err)

	_, err = s.Add(ctx, "admin", "aLiCe", 2)
	var alreadyExists model.AlreadyExistsError
	assert.True(t, errors.As(err, &alreadyExists))

	_, err = s.Add(ctx, "admin", "   ", 0)
	var validation model.ValidationError
	assert.True(t, errors.As(err, &validation))

	n, err := backends.Members.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestService_AddClampsRank(t *testing.T) {
	s, _ := newTestService(t, nil)
	ctx := context.Background()

	res, err := s.Add(ctx, "admin", "High", 42)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Member.RankIndex)

	res, err = s.Add(ctx, "admin", "Low", -3)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Member.RankIndex)
}

func TestService_NotFound(t *testing.T) {
	s, backends := newTestService(t, nil)
	ctx := context.Background()
	_, err := s.Add(ctx, "admin", "Alice", 0)
	require.NoError(t, err)

	var notFound model.NotFoundError
	err = s.Delete(ctx, "admin", 99)
	assert.True(t, errors.As(err, &notFound))
	_, err = s.Promote(ctx, "admin", 99)
	assert.True(t, errors.As(err, &notFound))
	_, err = s.Demote(ctx, "admin", 99)
	assert.True(t, errors.As(err, &notFound))
	_, err = s.Get(ctx, 99)
	assert.True(t, errors.As(err, &notFound))

	n, err := backends.Members.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, []string{model.AuditActionAdd}, auditActions(t, s))
}

func TestService_Delete(t *testing.T) {
	s, _ := newTestService(t, nil)
	ctx := context.Background()
	res, err := s.Add(ctx, "admin", "Alice", 1)
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "admin", res.Member.ID))
	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	entries, err := s.Audit(1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, model.AuditActionDelete, entries[0].Action)
	assert.Equal(t, "Alice", entries[0].Details)
}

func TestService_ListResolvesAvatars(t *testing.T) {
	avatars := &fakeAvatars{urls: map[string]string{"alice": "https://img.example/alice.png"}}
	s, backends := newTestService(t, avatars)
	ctx := context.Background()

	for _, name := range []string{"Alice", "Bob", "Carol"} {
		_, err := s.Add(ctx, "admin", name, 0)
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"Alice", "Bob", "Carol"}, avatars.warmed)

	// a stored index outside the ladder is shown as unknown
	require.NoError(t, backends.Members.UpdateRank(3, 7))

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "Alice", list[0].Username)
	require.NotNil(t, list[0].Avatar)
	assert.Equal(t, "https://img.example/alice.png", *list[0].Avatar)
	assert.Nil(t, list[1].Avatar)
	assert.Equal(t, ranks.UnknownRank, list[2].Rank)

	// stepping from an unknown index clamps first
	res, err := s.Demote(ctx, "admin", 3)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, ranks.UnknownRank, res.From)
	assert.Equal(t, "Mid", res.To)
}

func TestService_AuditFailureDoesNotFailMutation(t *testing.T) {
	backends, err := storage.LoadStorageBackends(storage.Config{Driver: storage.DriverMemory})
	require.NoError(t, err)
	backends.Audit = failingAudit{}
	s := NewService(backends, testLadder, nil)

	res, err := s.Add(context.Background(), "admin", "Alice", 0)
	require.NoError(t, err)
	_, err = s.Promote(context.Background(), "admin", res.Member.ID)
	require.NoError(t, err)
	_, err = s.Audit(0)
	assert.Error(t, err)
}

func TestService_ConcurrentMutations(t *testing.T) {
	s, _ := newTestService(t, nil)
	ctx := context.Background()
	res, err := s.Add(ctx, "admin", "Alice", 0)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Promote(ctx, "admin", res.Member.ID)
		}()
	}
	wg.Wait()

	v, err := s.Get(ctx, res.Member.ID)
	require.NoError(t, err)
	assert.Equal(t, testLadder.Highest(), v.RankIndex)
	// exactly two promotions changed the rank
	assert.Len(t, auditActions(t, s), 3)
}

func TestNewService_DefaultLadder(t *testing.T) {
	s := NewService(model.Backends{}, nil, nil)
	assert.Equal(t, len(ranks.DefaultNames), s.Ladder().Len())
}
