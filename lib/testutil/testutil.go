package testutil

import (
	"database/sql"
	"fmt"
	"testing"

	configlibsql "mhrs-tracker/lib/configutil/libsql"
	"mhrs-tracker/lib/telemetry"
)

type ServiceParams struct {
	Name string
	// if unspecified, the database is left empty
	DbSchema string
	// if unspecified, it will use `:memory:`, "<dev_state>/..." paths are
	// resolved under dev/.state
	DbPath string
}

type ServiceResult struct {
	DB *sql.DB
}

// SetupService sets up telemetry and a sqlite database for a service test,
// both are torn down when the test ends.
func SetupService(t testing.TB, params ServiceParams) ServiceResult {
	t.Cleanup(telemetry.SetupForTesting(fmt.Sprintf("test:%s", params.Name)))

	dbpath := params.DbPath
	if dbpath == "" {
		dbpath = ":memory:"
	}
	db, err := configlibsql.Struct{File: dbpath}.OpenDB()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	if params.DbSchema != "" {
		_, err = db.Exec(params.DbSchema)
		if err != nil {
			t.Fatal(err)
		}
	}

	return ServiceResult{DB: db}
}
