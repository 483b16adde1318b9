package apperrors

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
)

type AppError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Cause }

func New(code Code, message string) error {
	return &AppError{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) error {
	return &AppError{Code: code, Message: message, Cause: cause}
}

// CodeOf extracts the application code from any error in the chain,
// falling back to CodeInternal for plain errors.
func CodeOf(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

func Is(err error, code Code) bool {
	return CodeOf(err) == code
}

func InvalidArg(msg string) error {
	return New(CodeInvalidArgument, msg)
}

func NotFound(msg string) error {
	return New(CodeNotFound, msg)
}

func AlreadyExists(msg string) error {
	return New(CodeAlreadyExists, msg)
}

func Forbidden(msg string) error {
	return New(CodeForbidden, msg)
}

func Blocked(msg string) error {
	return New(CodeBlocked, msg)
}

func Conflict(msg string) error {
	return New(CodeConflict, msg)
}

func Internal(msg string) error {
	return New(CodeInternal, msg)
}

var (
	ErrAlreadyRequested = AlreadyExists("a friend request already exists between these users")
	ErrAlreadyFriends   = AlreadyExists("these users are already friends")
	ErrBlocked          = Blocked("a block exists between these users")
	ErrRequestNotFound  = NotFound("friend request no longer exists")
	ErrAlreadyMember    = AlreadyExists("user is already a member of this server")
	ErrInvalidInvite    = New(CodeInvalidInvite, "invite code does not match any server")
	ErrOwnerCannotLeave = New(CodeOwnerCannotLeave, "the owner cannot leave their own server, delete it instead")
	ErrRoleConflict     = Conflict("member role changed concurrently, retry")
	ErrTimeout          = New(CodeTimeout, "operation timed out")
)

func Timeout(cause error) error {
	return Wrap(CodeTimeout, "operation timed out", cause)
}

// Normalize converts errors surfaced by the backing store into
// application errors: context deadlines become TIMEOUT, duplicate-key
// violations become ALREADY_EXISTS. Other errors pass through.
func Normalize(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout(err)
	}
	if isUniqueViolation(err) {
		return Wrap(CodeAlreadyExists, "record already exists", err)
	}
	return err
}

// isUniqueViolation matches the duplicate-key errors of both drivers,
// so races that slip past an existence check still land on a schema
// constraint instead of committing a duplicate edge.
func isUniqueViolation(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
