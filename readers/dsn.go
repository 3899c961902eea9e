//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Copyright (C) 2025 Aaron Mathis aaron.mathis@gmail.com
//
// This file is part of ReviewSentiment.
//
// ReviewSentiment is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// ReviewSentiment is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with ReviewSentiment. If not, see https://www.gnu.org/licenses/.
//

package readers

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"

	// Drivers selectable by name through ConnectionInfo.Driver.
	_ "github.com/lib/pq"
	_ "github.com/microsoft/go-mssqldb"
	_ "modernc.org/sqlite"
)

// Supported database/sql driver names.
const (
	DriverSQLServer = "sqlserver"
	DriverPostgres  = "postgres"
	DriverMySQL     = "mysql"
	DriverSQLite    = "sqlite"
)

// Authentication modes for ConnectionInfo.
const (
	// AuthTrusted uses the integrated (OS) identity of the running process.
	AuthTrusted = "trusted"
	// AuthSQL uses an explicit user name and password.
	AuthSQL = "sql"
)

// ConnectionInfo describes how to reach the review database.
type ConnectionInfo struct {
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"` // host, optionally with a \INSTANCE suffix for SQL Server
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Auth     string `yaml:"auth"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	// DSN, when set, is used verbatim and the other fields are ignored.
	RawDSN string `yaml:"dsn"`
}

// SupportedDrivers lists the driver names ConnectionInfo can render.
func SupportedDrivers() []string {
	return []string{DriverSQLServer, DriverPostgres, DriverMySQL, DriverSQLite}
}

// DSN renders the driver-specific connection string.
func (c ConnectionInfo) DSN() string {
	if c.RawDSN != "" {
		return c.RawDSN
	}
	switch c.Driver {
	case DriverPostgres:
		return c.postgresDSN()
	case DriverMySQL:
		return c.mysqlDSN()
	case DriverSQLite:
		return c.Database
	default:
		return c.sqlServerDSN()
	}
}

// sqlServerDSN renders sqlserver://[user:pass@]host[:port][/instance]?database=db.
// Trusted authentication leaves the user info empty so the driver falls back to
// integrated authentication.
func (c ConnectionInfo) sqlServerDSN() string {
	host, instance, _ := strings.Cut(c.Host, `\`)
	if c.Port > 0 {
		host = host + ":" + strconv.Itoa(c.Port)
	}

	u := &url.URL{Scheme: "sqlserver", Host: host}
	if instance != "" {
		u.Path = "/" + instance
	}
	if c.Auth == AuthSQL {
		u.User = url.UserPassword(c.User, c.Password)
	}

	q := url.Values{}
	if c.Database != "" {
		q.Set("database", c.Database)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func (c ConnectionInfo) postgresDSN() string {
	host := c.Host
	if c.Port > 0 {
		host = host + ":" + strconv.Itoa(c.Port)
	}
	u := &url.URL{Scheme: "postgres", Host: host, Path: "/" + c.Database}
	if c.Auth == AuthSQL {
		u.User = url.UserPassword(c.User, c.Password)
	}
	return u.String()
}

func (c ConnectionInfo) mysqlDSN() string {
	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = c.Host
	if c.Port > 0 {
		cfg.Addr = fmt.Sprintf("%s:%d", c.Host, c.Port)
	}
	cfg.DBName = c.Database
	if c.Auth == AuthSQL {
		cfg.User = c.User
		cfg.Passwd = c.Password
	}
	cfg.ParseTime = true
	return cfg.FormatDSN()
}
