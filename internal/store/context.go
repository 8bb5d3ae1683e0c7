package store

import "context"

type accessTokenKey struct{}

// WithAccessToken attaches a user access token to the context so
// row-level security evaluates against that user. Queries without a
// token run as anon.
func WithAccessToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, accessTokenKey{}, token)
}

// AccessTokenFromContext returns the access token attached to the
// context and whether one is set.
func AccessTokenFromContext(ctx context.Context) (string, bool) {
	tok, ok := ctx.Value(accessTokenKey{}).(string)
	return tok, ok && tok != ""
}
