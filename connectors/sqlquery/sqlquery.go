// Package sqlquery exposes a SQL database as a dispatchable capability.
// SELECT results are cacheable and tagged table:<name> for every table the
// statement reads; mutations report the written tables through Invalidates.
package sqlquery

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/c360/datalink/capability"
	"github.com/c360/datalink/errors"
	"github.com/c360/datalink/logging"
)

// DefaultName is the capability name when the config leaves it empty.
const DefaultName = "sql_query"

// DefaultMaxRows caps SELECT results when the config leaves MaxRows zero.
const DefaultMaxRows = 1000

// Table references are pulled from the statement text to derive cache tags.
var (
	selectTablePattern   = regexp.MustCompile("(?i)\\b(?:from|join)\\s+[\"'`]?([A-Za-z_][A-Za-z0-9_]*)")
	mutationTablePattern = regexp.MustCompile("(?i)\\b(?:insert\\s+into|replace\\s+into|update|delete\\s+from)\\s+[\"'`]?([A-Za-z_][A-Za-z0-9_]*)")
)

// TableTag returns the invalidation tag for one table.
func TableTag(name string) string {
	return "table:" + strings.ToLower(name)
}

// Config describes one database the connector serves.
type Config struct {
	// Name is the capability name the connector registers under.
	Name string `json:"name,omitempty"`

	// Driver is the database/sql driver name. Empty means sqlite, the
	// bundled driver.
	Driver string `json:"driver,omitempty"`

	// DSN is the data source name passed to sql.Open. Required unless a
	// connection is injected through WithDB.
	DSN string `json:"dsn"`

	// ReadOnly rejects insert, update, and delete operations.
	ReadOnly bool `json:"read_only,omitempty"`

	// MaxRows caps how many rows a query returns. Zero means DefaultMaxRows.
	MaxRows int `json:"max_rows,omitempty"`
}

// ColumnInfo describes one column discovered by introspection.
type ColumnInfo struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
	Primary  bool   `json:"primary"`
}

// TableInfo describes one table discovered by introspection.
type TableInfo struct {
	Name       string       `json:"name"`
	Columns    []ColumnInfo `json:"columns"`
	PrimaryKey []string     `json:"primary_key,omitempty"`
}

// Connector runs parameterized SQL against one database.
type Connector struct {
	name     string
	db       *sql.DB
	driver   string
	readOnly bool
	maxRows  int
	logger   *logging.Logger
}

// Option configures a Connector.
type Option func(*Connector)

// WithDB injects an open connection instead of letting New open cfg.DSN.
func WithDB(db *sql.DB) Option {
	return func(c *Connector) {
		if db != nil {
			c.db = db
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *Connector) {
		if l != nil {
			c.logger = l
		}
	}
}

// New builds a connector for one database.
func New(cfg Config, opts ...Option) (*Connector, error) {
	name := cfg.Name
	if name == "" {
		name = DefaultName
	}
	driver := cfg.Driver
	if driver == "" {
		driver = "sqlite"
	}
	maxRows := cfg.MaxRows
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}

	c := &Connector{
		name:     name,
		driver:   driver,
		readOnly: cfg.ReadOnly,
		maxRows:  maxRows,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.db == nil {
		if cfg.DSN == "" {
			return nil, errors.WrapInvalid(errors.ErrMissingConfig, "SQLConnector", "New", "DSN or injected connection required")
		}
		db, err := sql.Open(driver, cfg.DSN)
		if err != nil {
			return nil, errors.WrapInvalid(err, "SQLConnector", "New", "open database")
		}
		c.db = db
	}

	if c.logger == nil {
		c.logger = logging.NewLogger(name, nil, nil)
	}
	return c, nil
}

// Descriptor returns the capability schema the connector registers under.
func (c *Connector) Descriptor() capability.Descriptor {
	return capability.Descriptor{
		Name:        c.name,
		Description: "Runs parameterized SQL; SELECT results are cacheable per table",
		Parameters: []capability.ParameterSpec{
			{Name: "operation", Type: capability.TypeString, Description: "query, insert, update, delete, or schema; default query"},
			{Name: "query", Type: capability.TypeString, Description: "SQL statement with ? placeholders"},
			{Name: "args", Type: capability.TypeArray, Description: "Positional statement arguments"},
			{Name: "table", Type: capability.TypeString, Description: "Overrides the table name derived from the statement"},
		},
	}
}

// Register builds a connector from cfg and registers it.
func Register(registry *capability.Registry, cfg Config, opts ...Option) error {
	c, err := New(cfg, opts...)
	if err != nil {
		return err
	}
	return registry.Register(c.Descriptor(), c)
}

// Close closes the underlying database.
func (c *Connector) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Execute runs one SQL operation.
func (c *Connector) Execute(ctx context.Context, params map[string]any) (*capability.Result, error) {
	operation, err := stringParam(params, "operation")
	if err != nil {
		return nil, err
	}
	if operation == "" {
		operation = "query"
	}

	switch operation {
	case "schema":
		return c.runIntrospection(ctx)
	case "query":
		return c.runQuery(ctx, params)
	case "insert", "update", "delete":
		return c.runMutation(ctx, operation, params)
	default:
		return nil, errors.WrapInvalid(errors.ErrInvalidData, "SQLConnector", "Execute",
			fmt.Sprintf("unknown operation %q", operation))
	}
}

func (c *Connector) runQuery(ctx context.Context, params map[string]any) (*capability.Result, error) {
	query, args, tables, err := c.statement(params, selectTablePattern)
	if err != nil {
		return nil, err
	}

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.WrapTransient(err, "SQLConnector", "Execute", "run query")
	}
	defer rows.Close()

	results, truncated, err := c.rowsToMaps(rows)
	if err != nil {
		return nil, errors.WrapTransient(err, "SQLConnector", "Execute", "read rows")
	}

	c.logger.Debug(fmt.Sprintf("query returned %d rows from %s", len(results), strings.Join(tables, ", ")))

	metadata := map[string]string{"rows": strconv.Itoa(len(results))}
	if truncated {
		metadata["truncated"] = "true"
	}
	return &capability.Result{
		Data:             results,
		Cacheable:        true,
		InvalidationTags: tableTags(tables),
		Metadata:         metadata,
	}, nil
}

func (c *Connector) runMutation(ctx context.Context, operation string, params map[string]any) (*capability.Result, error) {
	if c.readOnly {
		return nil, errors.WrapInvalid(errors.ErrInvalidData, "SQLConnector", "Execute",
			fmt.Sprintf("connector is read-only, %s rejected", operation))
	}

	query, args, tables, err := c.statement(params, mutationTablePattern)
	if err != nil {
		return nil, err
	}

	res, err := c.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, errors.WrapTransient(err, "SQLConnector", "Execute", "run "+operation)
	}

	affected, _ := res.RowsAffected()
	data := map[string]any{"rows_affected": affected}
	if operation == "insert" {
		if id, err := res.LastInsertId(); err == nil {
			data["last_insert_id"] = id
		}
	}

	c.logger.Debug(fmt.Sprintf("%s affected %d rows in %s", operation, affected, strings.Join(tables, ", ")))

	return &capability.Result{
		Data:        data,
		Invalidates: tableTags(tables),
	}, nil
}

// runIntrospection lists tables and columns. Only the bundled sqlite driver
// is supported; other databases expose their own catalogs.
func (c *Connector) runIntrospection(ctx context.Context) (*capability.Result, error) {
	if c.driver != "sqlite" && c.driver != "sqlite3" {
		return nil, errors.WrapInvalid(errors.ErrInvalidData, "SQLConnector", "Execute",
			fmt.Sprintf("schema introspection not supported for driver %q", c.driver))
	}

	rows, err := c.db.QueryContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
	if err != nil {
		return nil, errors.WrapTransient(err, "SQLConnector", "Execute", "list tables")
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.WrapTransient(err, "SQLConnector", "Execute", "scan table name")
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapTransient(err, "SQLConnector", "Execute", "list tables")
	}

	tables := make([]TableInfo, 0, len(names))
	for _, name := range names {
		table, err := c.describeTable(ctx, name)
		if err != nil {
			return nil, err
		}
		tables = append(tables, table)
	}

	return &capability.Result{
		Data:             tables,
		Cacheable:        true,
		InvalidationTags: tableTags(names),
		Metadata:         map[string]string{"tables": strconv.Itoa(len(tables))},
	}, nil
}

func (c *Connector) describeTable(ctx context.Context, name string) (TableInfo, error) {
	table := TableInfo{Name: name}

	rows, err := c.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info('%s')", name))
	if err != nil {
		return table, errors.WrapTransient(err, "SQLConnector", "Execute", "describe "+name)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid       int
			colName   string
			dataType  string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &colName, &dataType, &notNull, &dfltValue, &pk); err != nil {
			return table, errors.WrapTransient(err, "SQLConnector", "Execute", "describe "+name)
		}
		table.Columns = append(table.Columns, ColumnInfo{
			Name:     colName,
			Type:     dataType,
			Nullable: notNull == 0,
			Primary:  pk > 0,
		})
		if pk > 0 {
			table.PrimaryKey = append(table.PrimaryKey, colName)
		}
	}
	return table, rows.Err()
}

// statement extracts the query text, positional args, and referenced tables.
func (c *Connector) statement(params map[string]any, pattern *regexp.Regexp) (string, []any, []string, error) {
	query, err := stringParam(params, "query")
	if err != nil {
		return "", nil, nil, err
	}
	if strings.TrimSpace(query) == "" {
		return "", nil, nil, errors.WrapInvalid(errors.ErrInvalidData, "SQLConnector", "Execute", "query is required")
	}

	var args []any
	if raw, ok := params["args"]; ok && raw != nil {
		list, ok := raw.([]any)
		if !ok {
			return "", nil, nil, errors.WrapInvalid(errors.ErrInvalidData, "SQLConnector", "Execute", "args must be an array")
		}
		args = make([]any, len(list))
		for i, v := range list {
			args[i] = normalizeArg(v)
		}
	}

	override, err := stringParam(params, "table")
	if err != nil {
		return "", nil, nil, err
	}
	var tables []string
	if override != "" {
		tables = []string{override}
	} else {
		tables = referencedTables(query, pattern)
	}
	return query, args, tables, nil
}

// referencedTables pulls table names out of the statement text. Subqueries
// and aliases resolve to their underlying names because every FROM and JOIN
// clause is scanned.
func referencedTables(query string, pattern *regexp.Regexp) []string {
	seen := make(map[string]bool)
	var tables []string
	for _, match := range pattern.FindAllStringSubmatch(query, -1) {
		name := strings.ToLower(match[1])
		if !seen[name] {
			seen[name] = true
			tables = append(tables, name)
		}
	}
	sort.Strings(tables)
	return tables
}

func tableTags(tables []string) []string {
	if len(tables) == 0 {
		return nil
	}
	tags := make([]string, len(tables))
	for i, name := range tables {
		tags[i] = TableTag(name)
	}
	return tags
}

// rowsToMaps decodes rows into maps, normalizing []byte values to strings.
func (c *Connector) rowsToMaps(rows *sql.Rows) ([]map[string]any, bool, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, false, err
	}

	var results []map[string]any
	truncated := false
	for rows.Next() {
		if len(results) >= c.maxRows {
			truncated = true
			break
		}

		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, false, err
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		results = append(results, row)
	}
	return results, truncated, rows.Err()
}

func normalizeArg(v any) any {
	if n, ok := v.(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			return i
		}
		if f, err := n.Float64(); err == nil {
			return f
		}
		return n.String()
	}
	return v
}

func stringParam(params map[string]any, key string) (string, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", errors.WrapInvalid(errors.ErrInvalidData, "SQLConnector", "Execute", key+" must be a string")
	}
	return s, nil
}
