package repository

import (
	"errors"
	"regexp"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// MySQL server error numbers the repositories react to.
const (
	mysqlDuplicateEntry  = 1062
	mysqlLockWaitTimeout = 1205
	mysqlDeadlock        = 1213
)

func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}

func isRetryable(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == mysqlDeadlock || me.Number == mysqlLockWaitTimeout
	}
	return errors.Is(err, mysql.ErrInvalidConn)
}

// duplicateEntryRe extracts the key value from messages such as
// "Duplicate entry '7-B5' for key 'seat_locks.PRIMARY'".
var duplicateEntryRe = regexp.MustCompile(`Duplicate entry '([^']*)'`)

// duplicateSeat returns the seat label named by a seat_locks duplicate key
// error, or "" when it cannot be determined.
func duplicateSeat(err error) string {
	var me *mysql.MySQLError
	if !errors.As(err, &me) {
		return ""
	}
	m := duplicateEntryRe.FindStringSubmatch(me.Message)
	if len(m) != 2 {
		return ""
	}
	if i := strings.LastIndexByte(m[1], '-'); i >= 0 {
		return m[1][i+1:]
	}
	return ""
}

// placeholders returns "?, ?, ?" with n markers.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
