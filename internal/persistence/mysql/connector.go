// Package mysql provides MySQL-backed persistence for the reports service.
//
// Every subdomain lives in its own database on one shared server, so
// connections are opened per subdomain, used for a short burst of queries,
// and closed again. Nothing is cached between requests; stale pools against
// sixty databases are worse than the reconnect cost.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"

	"example.com/reports/internal/config"
	"example.com/reports/internal/domain"
)

// Connector opens short-lived stores against individual subdomain databases.
type Connector struct {
	cfg config.DatabaseConfig
}

// NewConnector builds a Connector from the shared server coordinates.
func NewConnector(cfg config.DatabaseConfig) *Connector {
	return &Connector{cfg: cfg}
}

// Connect opens a store bound to one subdomain's database and verifies the
// connection with a ping before handing it out.
func (c *Connector) Connect(ctx context.Context, database string) (domain.LiquidationStore, error) {
	mc := mysql.NewConfig()
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(c.cfg.Host, strconv.Itoa(c.cfg.Port))
	mc.User = c.cfg.User
	mc.Passwd = c.cfg.Password
	mc.DBName = database
	mc.Collation = "utf8mb4_general_ci"
	mc.ParseTime = true
	mc.Timeout = c.cfg.ConnTimeout
	mc.ReadTimeout = c.cfg.QueryTimeout
	mc.WriteTimeout = c.cfg.QueryTimeout

	db, err := sql.Open("mysql", mc.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", database, err)
	}
	// One short query burst per subdomain; no pool to speak of.
	db.SetMaxOpenConns(2)
	db.SetConnMaxLifetime(time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, c.cfg.ConnTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", database, err)
	}

	return &Repository{db: db, queryTimeout: c.cfg.QueryTimeout}, nil
}
