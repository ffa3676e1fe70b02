package errs

// 错误码
const (
	ValidationError       = 400
	AuthenticationError   = 401
	PermissionDeniedError = 403
	NotFoundError         = 404
	ProtocolError         = 422
	ServerInternalError   = 500
)

var (
	ErrValidation       = NewCodeError(ValidationError, "ValidationError")
	ErrAuthentication   = NewCodeError(AuthenticationError, "AuthenticationError")
	ErrPermissionDenied = NewCodeError(PermissionDeniedError, "PermissionDeniedError")
	ErrNotFound         = NewCodeError(NotFoundError, "NotFoundError")
	ErrProtocol         = NewCodeError(ProtocolError, "ProtocolError")
	ErrInternal         = NewCodeError(ServerInternalError, "ServerInternalError")
)

// ClientMessage 返回可以直接下发给客户端的文案：
// 有 detail 用 detail，内部错误只给 fallback。
func ClientMessage(err error, fallback string) string {
	codeErr, ok := As(err)
	if !ok || codeErr.Code == ServerInternalError {
		return fallback
	}
	if codeErr.Detail != "" {
		return codeErr.Detail
	}
	return codeErr.Msg
}
