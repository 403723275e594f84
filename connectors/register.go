// Package connectors bundles the built-in data connectors and tracks how
// well each registered agent performs once dispatched.
package connectors

import (
	stderrors "errors"

	"github.com/c360/datalink/capability"
	"github.com/c360/datalink/connectors/restapi"
	"github.com/c360/datalink/connectors/sqlquery"
	"github.com/c360/datalink/errors"
)

// Config selects which built-in connectors to register. Nil entries are
// skipped.
type Config struct {
	REST *restapi.Config  `json:"rest,omitempty"`
	SQL  *sqlquery.Config `json:"sql,omitempty"`
}

// Register registers the configured connectors with the provided registry:
//
//   - REST connector (HTTP endpoints, cacheable GET responses)
//   - SQL connector (parameterized queries, schema introspection)
func Register(registry *capability.Registry, cfg Config) error {
	// CRITICAL: Nil registry is a programming error (fatal), not invalid input
	if registry == nil {
		return errors.WrapFatal(
			stderrors.New("registry cannot be nil"),
			"Connectors", "Register", "registry validation")
	}

	if cfg.REST != nil {
		if err := restapi.Register(registry, *cfg.REST); err != nil {
			return errors.WrapInvalid(err, "Connectors", "Register", "REST connector registration")
		}
	}

	if cfg.SQL != nil {
		if err := sqlquery.Register(registry, *cfg.SQL); err != nil {
			return errors.WrapInvalid(err, "Connectors", "Register", "SQL connector registration")
		}
	}

	return nil
}
