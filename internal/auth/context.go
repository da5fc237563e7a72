// internal/auth/context.go
package auth

import (
	"context"

	"exam-quiz/internal/models"
)

type sessionKey struct{}

func WithSession(ctx context.Context, session *models.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, session)
}

func SessionFromContext(ctx context.Context) (*models.Session, bool) {
	session, ok := ctx.Value(sessionKey{}).(*models.Session)
	return session, ok && session != nil
}

// UserIDFromContext returns the database id of the signed-in caller.
func UserIDFromContext(ctx context.Context) (uint, bool) {
	session, ok := SessionFromContext(ctx)
	if !ok || session.UserID == 0 {
		return 0, false
	}
	return session.UserID, true
}
