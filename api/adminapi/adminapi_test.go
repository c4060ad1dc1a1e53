package adminapi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/pnp-roster/roster/ranks"
	"github.com/pnp-roster/roster/storage/model"
)

type staticAuth struct{}

func (staticAuth) Authenticate(username, password string) bool {
	return username == "admin" && password == "secret"
}

type fakeRoster struct {
	ladder  *ranks.Ladder
	members map[uint]*model.Member
	nextID  uint
	actors  []string
	fail    error
}

func newFakeRoster() *fakeRoster {
	return &fakeRoster{
		ladder:  ranks.MustNewLadder([]string{"Low", "Mid", "High"}),
		members: map[uint]*model.Member{},
		nextID:  1,
	}
}

func (f *fakeRoster) Ladder() *ranks.Ladder { return f.ladder }

func (f *fakeRoster) Add(_ context.Context, actor, username string, rankIndex int) (model.MemberResult, error) {
	if f.fail != nil {
		return model.MemberResult{}, f.fail
	}
	for _, m := range f.members {
		if strings.EqualFold(m.Username, username) {
			return model.MemberResult{}, model.AlreadyExistsErrorFmt("member already exists: %s", username)
		}
	}
	f.actors = append(f.actors, actor)
	m := &model.Member{
		ID:        f.nextID,
		Username:  username,
		RankIndex: f.ladder.Clamp(rankIndex),
	}
	f.nextID++
	f.members[m.ID] = m
	return model.MemberResult{
		Member:  *m,
		Changed: true,
		To:      f.ladder.DisplayName(m.RankIndex),
	}, nil
}

func (f *fakeRoster) step(id uint, d ranks.Direction) (model.MemberResult, error) {
	m, ok := f.members[id]
	if !ok {
		return model.MemberResult{}, model.NotFoundErrorFmt("member not found: %d", id)
	}
	from := f.ladder.DisplayName(m.RankIndex)
	next, changed := f.ladder.Step(m.RankIndex, d)
	m.RankIndex = next
	return model.MemberResult{
		Member:  *m,
		Changed: changed,
		From:    from,
		To:      f.ladder.DisplayName(next),
	}, nil
}

func (f *fakeRoster) Promote(_ context.Context, _ string, id uint) (model.MemberResult, error) {
	return f.step(id, ranks.Promote)
}

func (f *fakeRoster) Demote(_ context.Context, _ string, id uint) (model.MemberResult, error) {
	return f.step(id, ranks.Demote)
}

func (f *fakeRoster) Delete(_ context.Context, _ string, id uint) error {
	if _, ok := f.members[id]; !ok {
		return model.NotFoundErrorFmt("member not found: %d", id)
	}
	delete(f.members, id)
	return nil
}

func (f *fakeRoster) Get(_ context.Context, id uint) (model.MemberView, error) {
	m, ok := f.members[id]
	if !ok {
		return model.MemberView{}, model.NotFoundErrorFmt("member not found: %d", id)
	}
	return model.MemberView{
		ID:        m.ID,
		Username:  m.Username,
		RankIndex: m.RankIndex,
		Rank:      f.ladder.DisplayName(m.RankIndex),
	}, nil
}

func (f *fakeRoster) List(ctx context.Context) ([]model.MemberView, error) {
	var out []model.MemberView
	for id := uint(1); id < f.nextID; id++ {
		if v, err := f.Get(ctx, id); err == nil {
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *fakeRoster) Audit(limit int) ([]model.AuditEntry, error) {
	entries := []model.AuditEntry{
		{ID: 2, Action: model.AuditActionAdd},
		{ID: 1, Action: model.AuditActionLogin},
	}
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	return entries, nil
}

func newTestApp(t *testing.T, roster Roster) *fiber.App {
	t.Helper()
	app := fiber.New()
	require.NoError(t, Register(app.Group("/api/v1/admin"), "https://roster.example", roster, staticAuth{}))
	return app
}

func doRequest(t *testing.T, app *fiber.App, method, path, body string, authed bool) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if authed {
		req.Header.Set(
			fiber.HeaderAuthorization, "Basic "+base64.StdEncoding.EncodeToString([]byte("admin:secret")),
		)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func TestAuth(t *testing.T) {
	app := newTestApp(t, newFakeRoster())

	resp, body := doRequest(t, app, http.MethodGet, "/api/v1/admin/members", "", false)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Basic realm=admin", resp.Header.Get(fiber.HeaderWWWAuthenticate))
	var e ErrorResponse
	require.NoError(t, json.Unmarshal(body, &e))
	assert.Equal(t, ErrorCodeInvalidClient, e.Error)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/members", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Basic "+base64.StdEncoding.EncodeToString([]byte("admin:nope")))
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, _ = doRequest(t, app, http.MethodGet, "/api/v1/admin/members", "", true)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestMembers(t *testing.T) {
	roster := newFakeRoster()
	app := newTestApp(t, roster)

	resp, body := doRequest(t, app, http.MethodPost, "/api/v1/admin/members", `{"username":"Alice","rank":"Mid"}`, true)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(body))
	var res model.MemberResult
	require.NoError(t, json.Unmarshal(body, &res))
	assert.Equal(t, 1, res.Member.RankIndex)
	assert.Equal(t, "Mid", res.To)
	assert.Equal(t, []string{"admin"}, roster.actors)

	resp, _ = doRequest(t, app, http.MethodPost, "/api/v1/admin/members", `{"username":"ALICE"}`, true)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp, _ = doRequest(t, app, http.MethodPost, "/api/v1/admin/members", `{"username":"  "}`, true)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = doRequest(t, app, http.MethodPost, "/api/v1/admin/members", `{"username":"Bob","rank":"Boss"}`, true)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = doRequest(t, app, http.MethodPost, "/api/v1/admin/members", `{`, true)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, body = doRequest(t, app, http.MethodPost, "/api/v1/admin/members/1/promote", "", true)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &res))
	assert.True(t, res.Changed)
	assert.Equal(t, "High", res.To)

	resp, body = doRequest(t, app, http.MethodPost, "/api/v1/admin/members/1/promote", "", true)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &res))
	assert.False(t, res.Changed)

	resp, _ = doRequest(t, app, http.MethodPost, "/api/v1/admin/members/1/demote", "", true)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, body = doRequest(t, app, http.MethodGet, "/api/v1/admin/members/1", "", true)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var v model.MemberView
	require.NoError(t, json.Unmarshal(body, &v))
	assert.Equal(t, "Mid", v.Rank)

	resp, _ = doRequest(t, app, http.MethodGet, "/api/v1/admin/members/abc", "", true)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = doRequest(t, app, http.MethodDelete, "/api/v1/admin/members/1", "", true)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	resp, body = doRequest(t, app, http.MethodDelete, "/api/v1/admin/members/1", "", true)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	var e ErrorResponse
	require.NoError(t, json.Unmarshal(body, &e))
	assert.Equal(t, ErrorCodeNotFound, e.Error)

	resp, _ = doRequest(t, app, http.MethodPost, "/api/v1/admin/members/9/promote", "", true)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestMembers_ServerError(t *testing.T) {
	roster := newFakeRoster()
	roster.fail = errors.New("disk full")
	app := newTestApp(t, roster)
	resp, body := doRequest(t, app, http.MethodPost, "/api/v1/admin/members", `{"username":"Alice"}`, true)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	var e ErrorResponse
	require.NoError(t, json.Unmarshal(body, &e))
	assert.Equal(t, ErrorCodeServerError, e.Error)
}

func TestAuditAndRanks(t *testing.T) {
	app := newTestApp(t, newFakeRoster())

	resp, body := doRequest(t, app, http.MethodGet, "/api/v1/admin/audit?limit=1", "", true)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var entries []model.AuditEntry
	require.NoError(t, json.Unmarshal(body, &entries))
	assert.Len(t, entries, 1)

	resp, _ = doRequest(t, app, http.MethodGet, "/api/v1/admin/audit?limit=-1", "", true)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, body = doRequest(t, app, http.MethodGet, "/api/v1/admin/ranks", "", true)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var list []rankInfo
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Equal(
		t, []rankInfo{
			{Index: 0, Name: "Low"},
			{Index: 1, Name: "Mid"},
			{Index: 2, Name: "High"},
		}, list,
	)
}

func TestOpenAPI(t *testing.T) {
	app := newTestApp(t, newFakeRoster())
	resp, body := doRequest(t, app, http.MethodGet, "/api/v1/admin/openapi.yaml", "", false)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(body, &doc))
	servers, ok := doc["servers"].([]any)
	require.True(t, ok)
	assert.Equal(t, "https://roster.example", servers[0].(map[string]any)["url"])
	assert.Contains(t, doc, "security")
}

func TestParseBasicAuth(t *testing.T) {
	app := fiber.New()
	app.Get(
		"/", func(c *fiber.Ctx) error {
			u, p, ok := parseBasicAuth(c)
			return c.JSON(fiber.Map{"u": u, "p": p, "ok": ok})
		},
	)
	tests := map[string]string{
		"":                        `{"ok":false,"p":"","u":""}`,
		"Bearer abc":              `{"ok":false,"p":"","u":""}`,
		"Basic !!!":               `{"ok":false,"p":"","u":""}`,
		"Basic " + b64("nocolon"): `{"ok":false,"p":"","u":"nocolon"}`,
		"Basic " + b64("a:b:c"):   `{"ok":true,"p":"b:c","u":"a"}`,
	}
	for header, want := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set(fiber.HeaderAuthorization, header)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		body, _ := io.ReadAll(resp.Body)
		assert.JSONEq(t, want, string(body), header)
	}
}

func b64(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}
