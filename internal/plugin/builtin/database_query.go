package builtin

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"yqhp/stepflow/internal/plugin"
)

const defaultDBTimeout = 30.0

// DatabaseQuery runs a SQL statement against MySQL or PostgreSQL.
//
// fetch controls the result shape: "all" returns every row, "one"
// returns the first row or nil, "none" executes without reading rows
// and returns the affected count.
type DatabaseQuery struct{}

// NewDatabaseQuery creates the database_query plugin.
func NewDatabaseQuery() *DatabaseQuery { return &DatabaseQuery{} }

func (p *DatabaseQuery) Metadata() plugin.Metadata {
	return plugin.Metadata{
		Name:        "database_query",
		Version:     "1.0.0",
		Description: "Run a SQL statement against MySQL or PostgreSQL",
		Category:    "database",
		Tags:        []string{"sql", "mysql", "postgres"},
	}
}

func (p *DatabaseQuery) Schema() plugin.Schema {
	return plugin.Schema{
		"driver":            {Types: []plugin.ValueType{plugin.TypeString}, Required: true, Description: "mysql or postgres"},
		"connection_string": {Types: []plugin.ValueType{plugin.TypeString}, Required: true, Description: "driver-specific DSN"},
		"query":             {Types: []plugin.ValueType{plugin.TypeString}, Required: true, Description: "SQL statement"},
		"parameters":        {Types: []plugin.ValueType{plugin.TypeList, plugin.TypeMap}, Description: "positional list or named map of bind parameters"},
		"fetch":             {Types: []plugin.ValueType{plugin.TypeString}, Description: "all, one or none (default all)"},
		"timeout":           {Types: []plugin.ValueType{plugin.TypeInt, plugin.TypeFloat}, Description: "statement timeout in seconds"},
	}
}

func (p *DatabaseQuery) Execute(ctx context.Context, req *plugin.Request) (any, error) {
	driver, err := plugin.RequiredParam[string](req.Params, "driver")
	if err != nil {
		return nil, err
	}
	dsn, err := plugin.RequiredParam[string](req.Params, "connection_string")
	if err != nil {
		return nil, err
	}
	query, err := plugin.RequiredParam[string](req.Params, "query")
	if err != nil {
		return nil, err
	}
	fetch := plugin.OptionalParam(req.Params, "fetch", "all")
	timeout := seconds(req.Params, "timeout", defaultDBTimeout)

	var dialector gorm.Dialector
	switch driver {
	case "mysql":
		dialector = mysql.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q (expected mysql or postgres)", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormlogger.Discard})
	if err != nil {
		return nil, fmt.Errorf("connecting to %s database: %w", driver, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	defer sqlDB.Close()

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	session := db.WithContext(runCtx)

	args := bindArgs(req.Params["parameters"])
	req.Logger.Debug("executing sql", zap.String("driver", driver), zap.String("fetch", fetch))

	switch fetch {
	case "none":
		tx := session.Exec(query, args...)
		if tx.Error != nil {
			return nil, fmt.Errorf("executing statement: %w", tx.Error)
		}
		return map[string]any{"affected": tx.RowsAffected, "status": "success"}, nil
	case "one", "all":
	default:
		return nil, fmt.Errorf("invalid fetch %q (expected all, one or none)", fetch)
	}

	rows, err := session.Raw(query, args...).Rows()
	if err != nil {
		return nil, fmt.Errorf("running query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var result []map[string]any
	for rows.Next() {
		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			switch v := values[i].(type) {
			case []byte:
				row[col] = string(v)
			case time.Time:
				row[col] = v.Format("2006-01-02 15:04:05")
			default:
				row[col] = values[i]
			}
		}
		result = append(result, row)

		if fetch == "one" {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if fetch == "one" {
		var row any
		if len(result) > 0 {
			row = result[0]
		}
		return map[string]any{"row": row, "status": "success"}, nil
	}
	return map[string]any{"rows": result, "count": len(result), "status": "success"}, nil
}

// bindArgs converts the parameters value into gorm bind arguments. A
// list binds positionally; a map binds named parameters (@name).
func bindArgs(raw any) []any {
	switch v := raw.(type) {
	case []any:
		return v
	case map[string]any:
		return []any{v}
	}
	return nil
}
