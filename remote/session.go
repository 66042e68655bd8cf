package remote

import "context"

type accessTokenKey struct{}

// WithAccessToken scopes the Auth calls made with ctx to the session behind
// token instead of the client's own current session. An empty token marks
// the caller as anonymous.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, accessTokenKey{}, token)
}

// AccessToken returns the token carried by ctx. ok is false when ctx was not
// scoped with WithAccessToken.
func AccessToken(ctx context.Context) (token string, ok bool) {
	token, ok = ctx.Value(accessTokenKey{}).(string)
	return token, ok
}
