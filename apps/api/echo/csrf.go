package echoapi

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/elimusoft/elimu/core"
)

const (
	csrfHeader   = "X-CSRF-Token"
	csrfTokenLen = 32
)

func generateCSRFToken() (string, error) {
	buf := make([]byte, csrfTokenLen)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "generating CSRF token")
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// csrfMiddleware implements the double-submit cookie scheme: every response
// carries a CSRF cookie, and state-changing requests must echo its value in
// the X-CSRF-Token header. Safe methods (GET, HEAD, OPTIONS, TRACE) pass
// through unchecked.
func csrfMiddleware(conf *core.Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			token, ok := getCSRFCookie(ctx)
			if !ok {
				var err error
				if token, err = generateCSRFToken(); err != nil {
					return err
				}
				setCSRFCookie(ctx, conf, token)
			}

			switch ctx.Request().Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
			default:
				header := ctx.Request().Header.Get(csrfHeader)
				if header == "" || subtle.ConstantTimeCompare([]byte(header), []byte(token)) != 1 {
					return errCSRFFailed
				}
			}
			return next(ctx)
		}
	}
}
