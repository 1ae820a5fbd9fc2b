package duckdb

import (
	"context"
	"database/sql"
	"errors"
	"reflect"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestCatalogFailureQueriesInformationSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	engine := newTestEngine(t, writeFixtures(t))
	engine.Open = func() (*sql.DB, error) { return db, nil }

	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS "employees" AS SELECT * FROM read_csv(`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS "purchases" AS SELECT * FROM read_csv(`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM customers;`)).
		WillReturnError(errors.New("Catalog Error: Table with name customers does not exist!"))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM information_schema.tables WHERE table_schema = 'main'`)).
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("employees").AddRow("purchases"))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM information_schema.columns`)).
		WithArgs("employees").
		WillReturnRows(sqlmock.NewRows([]string{"column_name"}).AddRow("id").AddRow("name"))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM information_schema.columns`)).
		WithArgs("purchases").
		WillReturnRows(sqlmock.NewRows([]string{"column_name"}).AddRow("amount"))
	mock.ExpectClose()

	_, err = engine.Execute(context.Background(), "SELECT * FROM customers")
	var catalogErr *CatalogError
	if !errors.As(err, &catalogErr) {
		t.Fatalf("Execute() error = %v, want CatalogError", err)
	}
	want := []TableSchema{
		{Name: "employees", Columns: []string{"id", "name"}},
		{Name: "purchases", Columns: []string{"amount"}},
	}
	if !reflect.DeepEqual(catalogErr.Tables, want) {
		t.Fatalf("Tables = %#v", catalogErr.Tables)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestExecutionFailureReportsDuckDBVersion(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	engine := newTestEngine(t, writeFixtures(t))
	engine.Open = func() (*sql.DB, error) { return db, nil }

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT 1/0;`)).
		WillReturnError(errors.New("Out of Range Error: division by zero"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT library_version FROM pragma_version()`)).
		WillReturnRows(sqlmock.NewRows([]string{"library_version"}).AddRow("v1.3.2"))
	mock.ExpectClose()

	_, err = engine.Execute(context.Background(), "SELECT 1/0")
	var execErr *ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("Execute() error = %v, want ExecutionError", err)
	}
	if execErr.Env.DuckDBVersion != "v1.3.2" {
		t.Fatalf("DuckDBVersion = %q", execErr.Env.DuckDBVersion)
	}
	if execErr.Query != "SELECT 1/0;" {
		t.Fatalf("Query = %q", execErr.Query)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestOpenFailureIsExecutionError(t *testing.T) {
	engine := newTestEngine(t, writeFixtures(t))
	engine.Open = func() (*sql.DB, error) { return nil, errors.New("no driver") }

	_, err := engine.Execute(context.Background(), "SELECT 1")
	var execErr *ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("Execute() error = %v, want ExecutionError", err)
	}
	if execErr.Env.DuckDBVersion != "unknown" {
		t.Fatalf("DuckDBVersion = %q", execErr.Env.DuckDBVersion)
	}
}
