// Copyright (C) 2025-2026, Praxis Contributors. All rights reserved.
// See LICENSE for license information.

package errors

const (
	CodeInvalidParameter int = 4001
	CodeConflict         int = 4002
	CodeNotFound         int = 4004
	CodeInvalidOperation int = 4016

	CodeInternalError int = 5000
	CodeDatabaseError int = 5002
	CodeRuntimeError  int = 5003

	CodeInitializeError int = 7001
	CodeLackOfConfig    int = 7002

	CodeRemoteServiceError int = 8001
)
