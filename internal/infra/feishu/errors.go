package feishu

import "fmt"

// Feishu open platform error codes the bot reacts to
const (
	CodeMessageRecalled   = 230011
	CodeMessageNotFound   = 231003
	CodeMemberNotFound    = 232024
	CodeNoPermission      = 230027
	CodeBotNotInChat      = 232011
	CodeScopeMissing      = 99991672
	CodeAppScopeNotGrant  = 99991679
	CodeGroupNotFound     = 40014
	CodeGroupMemberAbsent = 40015
)

// APIError is a non-success response from the open platform
type APIError struct {
	Op   string
	Code int
	Msg  string
}

func newAPIError(op string, code int, msg string) *APIError {
	return &APIError{Op: op, Code: code, Msg: msg}
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s error: code=%d msg=%s", e.Op, e.Code, e.Msg)
}

// NotFound reports whether the target message, member or group does not exist
func (e *APIError) NotFound() bool {
	switch e.Code {
	case CodeMessageRecalled, CodeMessageNotFound, CodeMemberNotFound, CodeGroupNotFound, CodeGroupMemberAbsent:
		return true
	}
	return false
}

// PermissionDenied reports whether the bot lacks rights for the operation
func (e *APIError) PermissionDenied() bool {
	switch e.Code {
	case CodeNoPermission, CodeBotNotInChat, CodeScopeMissing, CodeAppScopeNotGrant:
		return true
	}
	return false
}
