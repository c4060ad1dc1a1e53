// Package adminapi implements the JSON admin API of the roster
package adminapi

import (
	"context"
	_ "embed" // for go:embed

	"github.com/gofiber/fiber/v2"
	"gopkg.in/yaml.v3"

	"github.com/pnp-roster/roster/ranks"
	"github.com/pnp-roster/roster/storage/model"
)

//go:embed openapi.yaml
var openapiRaw []byte

// Roster is the set of roster operations exposed by the admin API
type Roster interface {
	Ladder() *ranks.Ladder
	Add(ctx context.Context, actor, username string, rankIndex int) (model.MemberResult, error)
	Promote(ctx context.Context, actor string, id uint) (model.MemberResult, error)
	Demote(ctx context.Context, actor string, id uint) (model.MemberResult, error)
	Delete(ctx context.Context, actor string, id uint) error
	Get(ctx context.Context, id uint) (model.MemberView, error)
	List(ctx context.Context) ([]model.MemberView, error)
	Audit(limit int) ([]model.AuditEntry, error)
}

// Register mounts all admin API routes under the provided group.
// serverURL, if set, is published as the server of the OpenAPI document.
func Register(r fiber.Router, serverURL string, roster Roster, auth Authenticator) error {
	openapiData := updateOpenAPIServers(openapiRaw, serverURL)
	openapiData = ensureBasicAuthSecurity(openapiData)

	r.Get(
		"/openapi.yaml", func(c *fiber.Ctx) error {
			c.Set(fiber.HeaderContentType, "application/yaml")
			return c.Send(openapiData)
		},
	)

	r.Use(authMiddleware(auth))

	registerMembers(r, roster)
	registerAudit(r, roster)
	registerRanks(r, roster.Ladder())
	return nil
}

func updateOpenAPIServers(doc []byte, serverURL string) []byte {
	if len(serverURL) == 0 {
		return doc
	}
	var full map[string]any
	if err := yaml.Unmarshal(doc, &full); err != nil {
		return doc
	}
	full["servers"] = []map[string]any{
		{
			"url":         serverURL,
			"description": "This instance",
		},
	}
	res, err := yaml.Marshal(full)
	if err != nil {
		return doc
	}
	return res
}

// ensureBasicAuthSecurity injects a HTTP Basic security scheme and a global security requirement
// into the OpenAPI document, if not already present.
func ensureBasicAuthSecurity(doc []byte) []byte {
	var full map[string]any
	if err := yaml.Unmarshal(doc, &full); err != nil {
		return doc
	}
	components, _ := full["components"].(map[string]any)
	if components == nil {
		components = map[string]any{}
		full["components"] = components
	}
	securitySchemes, _ := components["securitySchemes"].(map[string]any)
	if securitySchemes == nil {
		securitySchemes = map[string]any{}
		components["securitySchemes"] = securitySchemes
	}
	if _, exists := securitySchemes["basicAuth"]; !exists {
		securitySchemes["basicAuth"] = map[string]any{
			"type":   "http",
			"scheme": "basic",
		}
	}
	if _, exists := full["security"]; !exists {
		full["security"] = []map[string]any{{"basicAuth": []any{}}}
	}
	res, err := yaml.Marshal(full)
	if err != nil {
		return doc
	}
	return res
}
