package configlibsql

import (
	"database/sql"
	"fmt"
	"os"
	"strings"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

// Struct is the database block of a service config. Url takes a
// remote libsql server, File a local sqlite path; exactly one should
// be set.
type Struct struct {
	Url  string `json:"url"`
	File string `json:"file"`
}

func (config Struct) OpenDB() (*sql.DB, error) {
	if config.Url != "" {
		if !strings.HasPrefix(config.Url, "libsql://") &&
			!strings.HasPrefix(config.Url, "http://") &&
			!strings.HasPrefix(config.Url, "https://") {
			return nil, fmt.Errorf("unsupported database url %q", config.Url)
		}
		return sql.Open("libsql", config.Url)
	}
	if config.File == "" {
		return nil, fmt.Errorf("a database path was not specified")
	}

	_, statErr := os.Stat(config.File)
	if os.IsNotExist(statErr) {
		f, err := os.Create(config.File)
		if err != nil {
			return nil, err
		}
		f.Close()
	}

	db, err := sql.Open("sqlite", config.File)
	if err != nil {
		return nil, err
	}
	// see this stackoverflow post for information on why the following
	// lines exist: https://stackoverflow.com/questions/35804884/sqlite-concurrent-writing-performance
	db.SetMaxOpenConns(1)
	_, err = db.Exec("PRAGMA journal_mode=WAL")
	if err != nil {
		return nil, err
	}

	return db, nil
}
