package apperrors

import "net/http"

type Code string

const (
	CodeUnknown          Code = "UNKNOWN"
	CodeInvalidArgument  Code = "INVALID_ARGUMENT"
	CodeNotFound         Code = "NOT_FOUND"
	CodeAlreadyExists    Code = "ALREADY_EXISTS"
	CodeForbidden        Code = "FORBIDDEN"
	CodeBlocked          Code = "BLOCKED"
	CodeOwnerCannotLeave Code = "OWNER_CANNOT_LEAVE"
	CodeInvalidInvite    Code = "INVALID_INVITE"
	CodeTimeout          Code = "TIMEOUT"
	CodeConflict         Code = "CONFLICT"
	CodeInternal         Code = "INTERNAL"
)

// HTTPStatus maps an application error code to the status the API surfaces.
func HTTPStatus(code Code) int {
	switch code {
	case CodeInvalidArgument:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeAlreadyExists, CodeConflict:
		return http.StatusConflict
	case CodeForbidden, CodeBlocked, CodeOwnerCannotLeave:
		return http.StatusForbidden
	case CodeInvalidInvite:
		return http.StatusNotFound
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
