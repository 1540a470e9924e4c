package httpadapter

import "context"

type ctxKey string

const ctxKeyRequestID ctxKey = "request-id"

func WithRequestID(ctx context.Context, rid string) context.Context {
	if rid == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxKeyRequestID, rid)
}

func RequestIDFromContext(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(ctxKeyRequestID).(string)
	return s, ok
}
