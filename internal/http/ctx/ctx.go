package ctx

import (
	"github.com/valyala/fasthttp"

	dbpkg "adscope/internal/db"
)

const (
	userKey      = "user"
	apiKeyKey    = "apiKey"
	userTokenKey = "userToken"
)

// SetUserToken stores the raw bearer token for the request.
func SetUserToken(ctx *fasthttp.RequestCtx, token string) {
	ctx.SetUserValue(userTokenKey, token)
}

func UserTokenFromCtx(ctx *fasthttp.RequestCtx) (string, bool) {
	v := ctx.UserValue(userTokenKey)
	if v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// SetUser stores the authenticated account resolved from the API key.
func SetUser(ctx *fasthttp.RequestCtx, user *dbpkg.User) {
	ctx.SetUserValue(userKey, user)
}

func UserFromCtx(ctx *fasthttp.RequestCtx) (*dbpkg.User, bool) {
	v := ctx.UserValue(userKey)
	if v == nil {
		return nil, false
	}
	user, ok := v.(*dbpkg.User)
	if !ok || user == nil {
		return nil, false
	}
	return user, true
}

// SetAPIKey stores the API key row the request authenticated with.
func SetAPIKey(ctx *fasthttp.RequestCtx, apiKey *dbpkg.APIKey) {
	ctx.SetUserValue(apiKeyKey, apiKey)
}

func APIKeyFromCtx(ctx *fasthttp.RequestCtx) (*dbpkg.APIKey, bool) {
	v := ctx.UserValue(apiKeyKey)
	if v == nil {
		return nil, false
	}
	ak, ok := v.(*dbpkg.APIKey)
	return ak, ok
}
