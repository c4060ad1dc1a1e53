package roster

import (
	"context"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/encryptcookie"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/pnp-roster/roster/api/adminapi"
	"github.com/pnp-roster/roster/storage/model"
)

// ServerConf configures the http server
type ServerConf struct {
	IPListen          string   `yaml:"ip_listen"`
	Port              int      `yaml:"port"`
	TLS               TLSConf  `yaml:"tls"`
	TrustedProxies    []string `yaml:"trusted_proxies"`
	ForwardedIPHeader string   `yaml:"forwarded_ip_header"`
	// ExternalURL is the public base URL, e.g. https://roster.example.org
	ExternalURL string `yaml:"external_url"`
}

// TLSConf configures TLS for the http server
type TLSConf struct {
	Enabled      bool   `yaml:"enabled"`
	RedirectHTTP bool   `yaml:"redirect_http"`
	Cert         string `yaml:"cert"`
	Key          string `yaml:"key"`
}

// SessionConf configures the admin session of the web interface
type SessionConf struct {
	// Secret is used to derive the cookie encryption key; a random key is
	// generated if it is empty, which invalidates sessions on restart
	Secret       string
	Expiration   time.Duration
	CookieSecure bool
}

// DefaultSessionExpiration is used if SessionConf.Expiration is not set
const DefaultSessionExpiration = 12 * time.Hour

const sessionCookieName = "roster_session"

// Authenticator checks admin credentials
type Authenticator interface {
	Authenticate(username, password string) bool
}

// Options holds the collaborators of a Server besides the Service
type Options struct {
	Admin   Authenticator
	Session SessionConf
	// Gatherer is exposed at /metrics if set
	Gatherer prometheus.Gatherer
	// Pinger is checked by /health if set
	Pinger model.Pinger
	// AccessLog receives the access log; defaults to stdout
	AccessLog io.Writer
	// ServerURL is the external URL, published in the admin API description
	ServerURL string
	// AvatarTTL and StorageDriver are shown in the footer of the roster page
	AvatarTTL     time.Duration
	StorageDriver string
}

// FiberServerConfig is the fiber.Config that is used to init the http fiber.App
var FiberServerConfig = fiber.Config{
	ReadTimeout:    3 * time.Second,
	WriteTimeout:   20 * time.Second,
	IdleTimeout:    150 * time.Second,
	ReadBufferSize: 8192,
	ErrorHandler:   handleError,
	Network:        "tcp",
}

// Server serves the roster web interface, the public JSON API and the admin
// API
type Server struct {
	app       *fiber.App
	conf      ServerConf
	service   *Service
	sessions  *session.Store
	auth      Authenticator
	templates *template.Template
	opts      Options
}

func handleError(ctx *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}
	res := adminapi.ErrorResponse{
		Error:            adminapi.ErrorCodeInvalidRequest,
		ErrorDescription: err.Error(),
	}
	switch {
	case code == fiber.StatusNotFound:
		res.Error = adminapi.ErrorCodeNotFound
	case code >= fiber.StatusInternalServerError:
		res.Error = adminapi.ErrorCodeServerError
		log.WithError(err).WithField("path", ctx.Path()).Error("request failed")
	}
	return ctx.Status(code).JSON(res)
}

// NewServer creates a new Server
func NewServer(conf ServerConf, service *Service, opts Options) (*Server, error) {
	if service == nil {
		return nil, errors.New("no roster service given")
	}
	if opts.Admin == nil {
		return nil, errors.New("no admin authenticator given")
	}
	if opts.Session.Expiration <= 0 {
		opts.Session.Expiration = DefaultSessionExpiration
	}
	templates, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	fiberConf := FiberServerConfig
	if tps := conf.TrustedProxies; len(tps) > 0 {
		fiberConf.TrustedProxies = tps
		fiberConf.EnableTrustedProxyCheck = true
	}
	fiberConf.ProxyHeader = conf.ForwardedIPHeader
	app := fiber.New(fiberConf)
	app.Use(recover.New())
	app.Use(compress.New())
	loggerConf := logger.Config{}
	if opts.AccessLog != nil {
		loggerConf.Output = opts.AccessLog
	}
	app.Use(logger.New(loggerConf))
	app.Use(requestid.New())
	app.Use(
		encryptcookie.New(
			encryptcookie.Config{
				Key: cookieKey(opts.Session.Secret),
			},
		),
	)

	s := &Server{
		app:  app,
		conf: conf,
		sessions: session.New(
			session.Config{
				Expiration:     opts.Session.Expiration,
				KeyLookup:      "cookie:" + sessionCookieName,
				CookiePath:     "/",
				CookieHTTPOnly: true,
				CookieSecure:   opts.Session.CookieSecure,
				CookieSameSite: fiber.CookieSameSiteLaxMode,
			},
		),
		service:   service,
		auth:      opts.Admin,
		templates: templates,
		opts:      opts,
	}
	s.registerWeb()
	s.registerAPI()
	if err = adminapi.Register(app.Group("/api/v1/admin"), opts.ServerURL, service, opts.Admin); err != nil {
		return nil, err
	}
	return s, nil
}

// App returns the underlying fiber.App
func (s *Server) App() *fiber.App {
	return s.app
}

// HttpHandlerFunc returns an http.HandlerFunc for serving all the necessary endpoints
func (s *Server) HttpHandlerFunc() http.HandlerFunc {
	return adaptor.FiberApp(s.app)
}

// Listen starts an http server at the specific address for serving all the
// necessary endpoints
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Start starts the server as configured and blocks until it is shut down
func (s *Server) Start() error {
	conf := s.conf
	if !conf.TLS.Enabled {
		addr := fmt.Sprintf("%s:%d", conf.IPListen, conf.Port)
		log.WithField("addr", addr).Info("TLS is disabled starting http server")
		return s.app.Listen(addr)
	}
	// TLS enabled
	if conf.TLS.RedirectHTTP {
		httpServer := fiber.New(FiberServerConfig)
		httpServer.All(
			"*", func(ctx *fiber.Ctx) error {
				//goland:noinspection HttpUrlsUsage
				return ctx.Redirect(
					strings.Replace(ctx.Request().URI().String(), "http://", "https://", 1),
					fiber.StatusPermanentRedirect,
				)
			},
		)
		log.Info("TLS and http redirect enabled, starting redirect server on port 80")
		go func() {
			if err := httpServer.Listen(fmt.Sprintf("%s:80", conf.IPListen)); err != nil {
				log.WithError(err).Error("redirect server stopped")
			}
		}()
	}
	addr := fmt.Sprintf("%s:443", conf.IPListen)
	log.WithField("addr", addr).Info("TLS enabled, starting https server")
	return s.app.ListenTLS(addr, conf.TLS.Cert, conf.TLS.Key)
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
