package clerk

import (
	"context"
	"errors"

	"golang.org/x/oauth2"

	"github.com/platinummonkey/clerk-fapi-go/pkg/sessiontoken"
)

// ErrNoActiveSession is returned by a TokenSource when there is no active
// session to mint for.
var ErrNoActiveSession = errors.New("no active session to mint a token for")

// TokenSource adapts GetToken to the oauth2.TokenSource interface, so the
// SDK can feed clients that expect oauth2 credentials. Each Token call mints
// for the session active at that moment; the token cache keeps repeat calls
// off the network. Wrap with oauth2.ReuseTokenSource only if double caching
// is acceptable.
func (c *Clerk) TokenSource(ctx context.Context, params GetTokenParams) oauth2.TokenSource {
	return &tokenSource{ctx: ctx, clerk: c, params: params}
}

type tokenSource struct {
	ctx    context.Context
	clerk  *Clerk
	params GetTokenParams
}

func (t *tokenSource) Token() (*oauth2.Token, error) {
	token, err := t.clerk.GetToken(t.ctx, t.params)
	if err != nil {
		return nil, err
	}
	if token == nil {
		return nil, ErrNoActiveSession
	}

	out := &oauth2.Token{AccessToken: token.JWT, TokenType: "Bearer"}
	if claims, err := sessiontoken.Parse(token.JWT); err == nil {
		out.Expiry = claims.Expiry()
	}
	return out, nil
}
