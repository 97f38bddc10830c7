// Copyright (C) 2025-2026, Praxis Contributors. All rights reserved.
// See LICENSE for license information.

package database

import (
	"github.com/maraxen/pylabpraxis-sub002/pkg/sql"
	"gorm.io/gorm"
)

// BaseFacade is the base structure for all facades, providing DB access.
// A zero BaseFacade uses the process-wide default pool; withDB binds a
// specific handle, which is how facades join an enclosing transaction and
// how tests supply their own database.
type BaseFacade struct {
	db *gorm.DB
}

func (f *BaseFacade) getDB() *gorm.DB {
	if f.db != nil {
		return f.db
	}
	return sql.GetDefaultDB()
}

func (f *BaseFacade) withDB(db *gorm.DB) BaseFacade {
	return BaseFacade{db: db}
}

// rowLockSupported reports whether the connected dialect honors
// SELECT ... FOR UPDATE. sqlite serializes writers itself and rejects the
// clause, so facades skip it there.
func rowLockSupported(db *gorm.DB) bool {
	return db.Dialector.Name() == sql.DriverNamePostgres
}
