package roster

import (
	"bytes"
	"context"
	"crypto/sha256"
	"embed"
	"encoding/base64"
	"html/template"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/encryptcookie"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/pnp-roster/roster/storage/model"
)

//go:embed templates/*.html
var templateFS embed.FS

// Session keys
const (
	sessionKeyIsAdmin   = "is_admin"
	sessionKeyAdminUser = "admin_user"
)

const localsAdminUser = "admin_user"

func parseTemplates() (*template.Template, error) {
	t, err := template.New("").Funcs(
		template.FuncMap{
			"timestamp": func(t time.Time) string {
				return t.UTC().Format(time.RFC3339)
			},
			"seconds": func(d time.Duration) int64 {
				return int64(d.Seconds())
			},
		},
	).ParseFS(templateFS, "templates/*.html")
	return t, errors.Wrap(err, "could not parse templates")
}

// cookieKey returns the encryptcookie key for secret. A secret that already
// is a base64 encoded 32 byte key is used as is; any other secret is hashed.
func cookieKey(secret string) string {
	if secret == "" {
		return encryptcookie.GenerateKey()
	}
	if raw, err := base64.StdEncoding.DecodeString(secret); err == nil && len(raw) == 32 {
		return secret
	}
	sum := sha256.Sum256([]byte(secret))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// safeNext only allows local redirect targets
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") ||
		strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}

type indexData struct {
	Members       []model.MemberView
	Ranks         []string
	IsAdmin       bool
	AdminUser     string
	Logs          []model.AuditEntry
	AvatarTTL     time.Duration
	StorageDriver string
}

type loginData struct {
	Next string
}

func (s *Server) render(c *fiber.Ctx, status int, name string, data any) error {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return errors.Wrapf(err, "could not render template %s", name)
	}
	c.Type("html", "utf-8")
	return c.Status(status).Send(buf.Bytes())
}

// sessionAdmin returns the admin logged in with the session of the request
func (s *Server) sessionAdmin(c *fiber.Ctx) (string, bool) {
	sess, err := s.sessions.Get(c)
	if err != nil {
		log.WithError(err).Debug("could not load session")
		return "", false
	}
	if isAdmin, _ := sess.Get(sessionKeyIsAdmin).(bool); !isAdmin {
		return "", false
	}
	user, _ := sess.Get(sessionKeyAdminUser).(string)
	return user, true
}

// requireAdmin redirects requests without an admin session to the login page
func (s *Server) requireAdmin(c *fiber.Ctx) error {
	user, ok := s.sessionAdmin(c)
	if !ok {
		return c.Redirect("/login?next=" + url.QueryEscape(c.Path()))
	}
	if user == "" {
		user = "admin"
	}
	c.Locals(localsAdminUser, user)
	return c.Next()
}

func webActor(c *fiber.Ctx) string {
	user, _ := c.Locals(localsAdminUser).(string)
	return user
}

// logActionError logs the failure of a web form action. Expected rejections
// (unknown member, duplicate username) are only logged at debug level as the
// form always redirects back to the roster.
func logActionError(err error, action string) {
	var notFound model.NotFoundError
	var alreadyExists model.AlreadyExistsError
	var validation model.ValidationError
	entry := log.WithError(err).WithField("action", action)
	if errors.As(err, &notFound) || errors.As(err, &alreadyExists) || errors.As(err, &validation) {
		entry.Debug("roster action rejected")
		return
	}
	entry.Error("roster action failed")
}

func (s *Server) registerWeb() {
	s.app.Get("/", s.handleIndex)
	s.app.Get(
		"/login", func(c *fiber.Ctx) error {
			return s.render(c, fiber.StatusOK, "login.html", loginData{Next: c.Query("next")})
		},
	)
	s.app.Post("/login", s.handleLogin)
	s.app.Get("/logout", s.handleLogout)

	s.app.Post("/add", s.requireAdmin, s.handleAdd)
	s.app.Post("/promote/:id", s.requireAdmin, s.memberAction("promote", s.service.Promote))
	s.app.Post("/demote/:id", s.requireAdmin, s.memberAction("demote", s.service.Demote))
	s.app.Post(
		"/delete/:id", s.requireAdmin, func(c *fiber.Ctx) error {
			id, err := c.ParamsInt("id")
			if err != nil || id <= 0 {
				return c.Redirect("/")
			}
			if err = s.service.Delete(c.UserContext(), webActor(c), uint(id)); err != nil {
				logActionError(err, "delete")
			}
			return c.Redirect("/")
		},
	)
}

func (s *Server) handleIndex(c *fiber.Ctx) error {
	members, err := s.service.List(c.UserContext())
	if err != nil {
		return err
	}
	data := indexData{
		Members:       members,
		Ranks:         s.service.Ladder().Names(),
		AvatarTTL:     s.opts.AvatarTTL,
		StorageDriver: s.opts.StorageDriver,
	}
	data.AdminUser, data.IsAdmin = s.sessionAdmin(c)
	if data.IsAdmin {
		if data.Logs, err = s.service.Audit(0); err != nil {
			log.WithError(err).Error("could not load audit log")
		}
	}
	return s.render(c, fiber.StatusOK, "index.html", data)
}

func (s *Server) handleLogin(c *fiber.Ctx) error {
	username := strings.TrimSpace(c.FormValue("username"))
	password := c.FormValue("password")
	if !s.auth.Authenticate(username, password) {
		log.WithField("username", username).Warn("admin login failed")
		return s.render(c, fiber.StatusUnauthorized, "invalid.html", nil)
	}
	sess, err := s.sessions.Get(c)
	if err != nil {
		return errors.Wrap(err, "could not load session")
	}
	if err = sess.Regenerate(); err != nil {
		return errors.Wrap(err, "could not regenerate session")
	}
	sess.Set(sessionKeyIsAdmin, true)
	sess.Set(sessionKeyAdminUser, username)
	if err = sess.Save(); err != nil {
		return errors.Wrap(err, "could not save session")
	}
	s.service.RecordLogin(username)
	log.WithField("username", username).Info("admin logged in")
	next := c.FormValue("next")
	if next == "" {
		next = c.Query("next")
	}
	return c.Redirect(safeNext(next))
}

func (s *Server) handleLogout(c *fiber.Ctx) error {
	user, ok := s.sessionAdmin(c)
	sess, err := s.sessions.Get(c)
	if err != nil {
		return errors.Wrap(err, "could not load session")
	}
	if err = sess.Destroy(); err != nil {
		return errors.Wrap(err, "could not destroy session")
	}
	if ok {
		if user == "" {
			user = "unknown"
		}
		s.service.RecordLogout(user)
		log.WithField("username", user).Info("admin logged out")
	}
	return c.Redirect("/")
}

func (s *Server) handleAdd(c *fiber.Ctx) error {
	username := c.FormValue("username")
	rankIndex, err := strconv.Atoi(c.FormValue("rank_index", "0"))
	if err != nil {
		rankIndex = 0
	}
	if _, err = s.service.Add(c.UserContext(), webActor(c), username, rankIndex); err != nil {
		logActionError(err, "add")
	}
	return c.Redirect("/")
}

type memberOp func(ctx context.Context, actor string, id uint) (model.MemberResult, error)

func (s *Server) memberAction(name string, op memberOp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return c.Redirect("/")
		}
		if _, err = op(c.UserContext(), webActor(c), uint(id)); err != nil {
			logActionError(err, name)
		}
		return c.Redirect("/")
	}
}
