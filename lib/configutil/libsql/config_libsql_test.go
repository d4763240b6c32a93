package configlibsql

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenMemory(t *testing.T) {
	db, err := Struct{File: ":memory:"}.OpenDB()
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec("create table t (v integer)")
	require.NoError(t, err)
	_, err = db.Exec("insert into t values (1)")
	require.NoError(t, err)

	var v int
	require.NoError(t, db.QueryRow("select v from t").Scan(&v))
	require.Equal(t, 1, v)
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "journal.db")
	db, err := Struct{File: path}.OpenDB()
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.Ping())
	require.FileExists(t, path)
}

func TestOpenRequiresLocation(t *testing.T) {
	_, err := Struct{}.OpenDB()
	require.Error(t, err)
}
