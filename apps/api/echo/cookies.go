package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/elimusoft/elimu/core"
)

const (
	identityCookieName = "elimu_identity"
	csrfCookieName     = "elimu_csrftoken"
)

// setIdentityCookie stores the signed session token in an httpOnly cookie;
// scripts never see it.
func setIdentityCookie(ctx echo.Context, conf *core.Config, token string) {
	ctx.SetCookie(&http.Cookie{
		Name:     identityCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(conf.Server.JWTExpirationDelta.Seconds()),
		Secure:   !conf.Debug,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

func getIdentityCookie(ctx echo.Context) (string, bool) {
	cookie, err := ctx.Cookie(identityCookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

func clearIdentityCookie(ctx echo.Context, conf *core.Config) {
	ctx.SetCookie(&http.Cookie{
		Name:     identityCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   !conf.Debug,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

// The CSRF cookie is deliberately script-readable; clients echo its value
// back in the X-CSRF-Token header on state-changing requests.
func setCSRFCookie(ctx echo.Context, conf *core.Config, token string) {
	ctx.SetCookie(&http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(conf.Server.JWTExpirationDelta.Seconds()),
		Secure:   !conf.Debug,
		SameSite: http.SameSiteStrictMode,
	})
}

func getCSRFCookie(ctx echo.Context) (string, bool) {
	cookie, err := ctx.Cookie(csrfCookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

func clearCSRFCookie(ctx echo.Context, conf *core.Config) {
	ctx.SetCookie(&http.Cookie{
		Name:     csrfCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   !conf.Debug,
		SameSite: http.SameSiteStrictMode,
	})
}
