package middlewares

const (
	CtxRequestID = "request_id"

	ctxUserIDKey = "session.userID"
	ctxEmailKey  = "session.email"
	ctxNameKey   = "session.name"
	ctxRoleKey   = "session.role"
)
