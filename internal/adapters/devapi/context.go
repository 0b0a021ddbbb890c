package devapi

import "context"

type subjectKey struct{}

func WithSubject(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, subjectKey{}, userID)
}

func SubjectFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(subjectKey{}).(string)
	return v, ok && v != ""
}
