package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jimyag/netrca/internal/netrca/config"
	"github.com/jimyag/netrca/pkg/apierror"
	"github.com/jimyag/netrca/pkg/ginx"
	"golang.org/x/crypto/bcrypt"
)

const (
	apiKeyHeader = "X-API-Key"
	userIDHeader = "X-User-ID"
	principalKey = "api.principal"
)

// Principal 通过认证的调用方
type Principal struct {
	Owner string
	Admin bool
	Key   string // key 名字，信任网关时为空
}

// Authenticator 把请求解析为 Principal
type Authenticator struct {
	keys []config.APIKey
}

func NewAuthenticator(keys []config.APIKey) *Authenticator {
	return &Authenticator{keys: keys}
}

// Middleware 认证失败直接返回 401
func (a *Authenticator) Middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		principal, err := a.authenticate(ctx.Request)
		if err != nil {
			ginx.AbortWithError(ctx, http.StatusUnauthorized, err)
			return
		}
		ctx.Set(principalKey, principal)
		ctx.Next()
	}
}

func (a *Authenticator) authenticate(req *http.Request) (*Principal, *apierror.Error) {
	// 没有配置 key 时由上游网关负责认证
	if len(a.keys) == 0 {
		owner := strings.TrimSpace(req.Header.Get(userIDHeader))
		if owner == "" {
			return nil, apierror.WrapError(apierror.ErrAuthFailure, "Missing "+userIDHeader+" header.", nil)
		}
		return &Principal{Owner: owner}, nil
	}

	key := strings.TrimSpace(req.Header.Get(apiKeyHeader))
	if key == "" {
		return nil, apierror.WrapError(apierror.ErrAuthFailure, "Missing "+apiKeyHeader+" header.", nil)
	}
	for _, k := range a.keys {
		if bcrypt.CompareHashAndPassword([]byte(k.Hash), []byte(key)) == nil {
			return &Principal{Owner: k.Owner, Admin: k.Admin, Key: k.Name}, nil
		}
	}
	return nil, apierror.WrapError(apierror.ErrAuthFailure, "Invalid API key.", nil)
}

// ownerOf 返回本次请求实际操作的租户
// admin key 可以通过 user_id 代其他租户操作，普通 key 只能操作自己
func ownerOf(ctx *gin.Context, requested string) (string, error) {
	v, ok := ctx.Get(principalKey)
	if !ok {
		return "", apierror.WrapError(apierror.ErrAuthFailure, "Request is not authenticated.", nil)
	}
	principal := v.(*Principal)

	requested = strings.TrimSpace(requested)
	if requested == "" || requested == principal.Owner {
		return principal.Owner, nil
	}
	if !principal.Admin {
		return "", apierror.WrapError(apierror.ErrAuthFailure, "Only admin keys may act on behalf of another user.", nil)
	}
	return requested, nil
}
