package utils

import (
	"errors"
	"fmt"
	"testing"

	mysqlDriver "github.com/go-sql-driver/mysql"
)

func TestIsDuplicateKeyError(t *testing.T) {
	dup := &mysqlDriver.MySQLError{Number: 1062, Message: "Duplicate entry"}
	if !IsDuplicateKeyError(dup) {
		t.Fatalf("1062 should be a duplicate-key error")
	}
	if !IsDuplicateKeyError(fmt.Errorf("create schedule: %w", dup)) {
		t.Fatalf("wrapped 1062 should still be detected")
	}
	if IsDuplicateKeyError(&mysqlDriver.MySQLError{Number: 1213, Message: "Deadlock"}) {
		t.Fatalf("other MySQL errors are not duplicate-key errors")
	}
	if IsDuplicateKeyError(errors.New("connection refused")) {
		t.Fatalf("plain errors are not duplicate-key errors")
	}
	if IsDuplicateKeyError(nil) {
		t.Fatalf("nil is not a duplicate-key error")
	}
}
