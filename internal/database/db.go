package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"time"

	"github.com/go-sql-driver/mysql"
)

// mysqlConfig describes the portal's accounts schema connection.
// ClientFoundRows makes RowsAffected count matched rows, which the user and
// distributer repositories use to tell a missing row from a no-op update.
func mysqlConfig(user, pass, host, port, name string) *mysql.Config {
	c := mysql.NewConfig()
	c.User = user
	c.Passwd = pass
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(host, port)
	c.DBName = name
	c.ParseTime = true
	c.Loc = time.UTC
	c.ClientFoundRows = true
	c.Collation = "utf8mb4_unicode_ci"
	return c
}

// Open connects to MySQL and pings it within ctx.
func Open(ctx context.Context, user, pass, host, port, name string) (*sql.DB, error) {
	conn, err := mysql.NewConnector(mysqlConfig(user, pass, host, port, name))
	if err != nil {
		return nil, fmt.Errorf("mysql config: %w", err)
	}
	db := sql.OpenDB(conn)
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("mysql ping: %w", err)
	}
	return db, nil
}
