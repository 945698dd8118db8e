package commands

import (
	"database/sql"

	configlibsql "dswagg-backend/lib/configutil/libsql"
)

func openDb(path string) (*sql.DB, error) {
	return configlibsql.Struct{File: path}.OpenDB()
}
