// Copyright (C) 2025-2026, Praxis Contributors. All rights reserved.
// See LICENSE for license information.

package sql

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	DriverNamePostgres = "postgres"
	DriverNameSQLite   = "sqlite"
)

func getDialector(conf DatabaseConfig) gorm.Dialector {
	switch conf.Driver {
	case DriverNameSQLite:
		return sqlite.Open(conf.DBName)
	default:
		return postgres.Open(buildPostgresDSN(conf))
	}
}

// BuildPostgresDSN renders the keyword/value connection string shared by the
// gorm pool and the reporting pool.
func BuildPostgresDSN(conf DatabaseConfig) string {
	return buildPostgresDSN(conf)
}

func buildPostgresDSN(conf DatabaseConfig) string {
	sslMode := conf.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	timeZone := conf.TimeZone
	if timeZone == "" {
		timeZone = "UTC"
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s TimeZone=%s",
		conf.Host, conf.UserName, conf.Password, conf.DBName, conf.Port, sslMode, timeZone)
}
