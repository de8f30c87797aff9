package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/elimusoft/elimu/core"
	"github.com/elimusoft/elimu/core/auth"
	"github.com/elimusoft/elimu/core/user"
)

var (
	contextSessionKey = "sessionUser"
	contextUserKey    = "user"
)

// sessionMiddleware resolves the identity cookie into a SessionUser.
// Requests without a valid session proceed anonymously; route guards decide
// who gets in. The store wins over the token: a deactivated account or a
// revoked profile drops the session even when the token has not expired yet.
func sessionMiddleware(codec *auth.Codec, svc user.ServiceInterface) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			token, ok := getIdentityCookie(ctx)
			if !ok {
				return next(ctx)
			}
			claims := codec.VerifyToken(token)
			if claims == nil {
				return next(ctx)
			}

			usr, err := svc.GetByID(ctx.Request().Context(), claims.Subject)
			if err != nil {
				if errors.Cause(err) == user.ErrNotFound {
					return next(ctx)
				}
				return errors.Wrap(err, "finding user by ID")
			}
			if !usr.Active() || !usr.HasType(claims.UserType) {
				return next(ctx)
			}

			ctx.Set(contextSessionKey, auth.NewSessionUser(usr, claims))
			ctx.Set(contextUserKey, usr)
			return next(ctx)
		}
	}
}

func getContextSession(ctx echo.Context) (auth.SessionUser, error) {
	if su, ok := ctx.Get(contextSessionKey).(auth.SessionUser); ok {
		return su, nil
	}
	return auth.SessionUser{}, errUnauthorized
}

func getContextUser(ctx echo.Context) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}
	return user.User{}, errUnauthorized
}

// Route guards. Exported so route groups outside this package (courses,
// enrollment, forum) can reuse them.

func RequireSession() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if _, err := getContextSession(ctx); err != nil {
				return err
			}
			return next(ctx)
		}
	}
}

// RequireUserType rejects sessions operating as a different portal.
func RequireUserType(userType string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			su, err := getContextSession(ctx)
			if err != nil {
				return err
			}
			if su.UserType != userType {
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}

// RequireAdmin admits sessions operating as instructor whose live user holds
// the admin role; the role is re-checked against the store, not the token,
// so a revocation takes effect on the next request.
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			su, err := getContextSession(ctx)
			if err != nil {
				return err
			}
			usr, err := getContextUser(ctx)
			if err != nil {
				return err
			}
			if su.UserType == user.TypeInstructor && auth.IsAdmin(usr) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

type authApi struct {
	conf     *core.Config
	svc      user.ServiceInterface
	codec    *auth.Codec
	limiter  *auth.RateLimiter
	validate *validator.Validate
}

func registerAuthAPI(
	g *echo.Group,
	conf *core.Config,
	svc user.ServiceInterface,
	codec *auth.Codec,
	limiter *auth.RateLimiter,
	validate *validator.Validate,
) {
	api := authApi{
		conf:     conf,
		svc:      svc,
		codec:    codec,
		limiter:  limiter,
		validate: validate,
	}

	ag := g.Group("/auth")

	// un-authed endpoints
	ag.POST("/signup", api.signup)
	ag.POST("/signin", api.signin)
	ag.POST("/signout", api.signout)
	ag.GET("/session", api.session)

	// authed endpoints
	sg := ag.Group("", RequireSession())
	sg.POST("/switch-view", api.switchView)
	sg.POST("/password", api.changePassword)
}

// Handlers

func (api *authApi) signup(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}

	// throttled before validation so repeated attempts on one address are
	// refused even when they would bounce off the uniqueness check
	key := "signup:" + core.CleanString(data.Email, true /* lower */)
	if !api.limiter.Allow(key) {
		return errTooManyAttempts
	}

	if err := data.Validate(api.validate, api.svc); err != nil {
		return err
	}

	usr, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating user")
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (api *authApi) signin(ctx echo.Context) error {
	var data SignInRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SignInRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	key := "signin:" + data.Email
	if !api.limiter.Allow(key) {
		return errTooManyAttempts
	}

	usr, err := api.svc.Authenticate(ctx.Request().Context(), data.Email, data.Password)
	if err != nil {
		if errors.Cause(err) == user.ErrInvalidCredentials {
			return core.NewValidationError(user.ErrInvalidCredentials)
		}
		return errors.Wrap(err, "authenticating")
	}
	api.limiter.Reset(key)

	claims := api.codec.NewClaims(usr)
	token, err := api.codec.IssueToken(claims)
	if err != nil {
		return errors.Wrap(err, "issuing token")
	}
	setIdentityCookie(ctx, api.conf, token)

	su := auth.NewSessionUser(usr, claims)
	return ctx.JSON(http.StatusOK, SessionResponse{User: &su})
}

func (api *authApi) signout(ctx echo.Context) error {
	clearIdentityCookie(ctx, api.conf)
	clearCSRFCookie(ctx, api.conf)
	return ctx.NoContent(http.StatusNoContent)
}

// session reports the current identity; {"user": null} for anonymous
// requests. The CSRF token travels in its cookie, never in the body.
func (api *authApi) session(ctx echo.Context) error {
	if su, err := getContextSession(ctx); err == nil {
		return ctx.JSON(http.StatusOK, SessionResponse{User: &su})
	}
	return ctx.JSON(http.StatusOK, SessionResponse{})
}

// switchView reissues the session token operating as the requested portal.
// The previous token is simply replaced in the cookie; tokens themselves are
// immutable.
func (api *authApi) switchView(ctx echo.Context) error {
	var data SwitchViewRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SwitchViewRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	if !usr.HasType(data.View) {
		return core.NewValidationError(nil, core.FieldError{
			Field: "view",
			Error: "no " + data.View + " profile on this account",
		})
	}

	claims := api.codec.NewClaims(usr, data.View)
	token, err := api.codec.IssueToken(claims)
	if err != nil {
		return errors.Wrap(err, "issuing token")
	}
	setIdentityCookie(ctx, api.conf, token)

	su := auth.NewSessionUser(usr, claims)
	return ctx.JSON(http.StatusOK, SessionResponse{User: &su})
}

func (api *authApi) changePassword(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	var data user.ChangePassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ChangePassword")
	}
	data.FirstName = usr.FirstName
	data.LastName = usr.LastName
	data.Email = usr.Email
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := usr.CheckPassword(data.OldPassword); err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "old_password", Error: "incorrect password"})
	}
	if _, err := api.svc.ChangePassword(ctx.Request().Context(), usr, data.Password); err != nil {
		return errors.Wrap(err, "changing password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been changed."})
}

type (
	SignInRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	SwitchViewRequest struct {
		View string `json:"view" validate:"required,oneof=student instructor"`
	}

	SessionResponse struct {
		User *auth.SessionUser `json:"user"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}
)

func (sr *SignInRequest) Validate(validate *validator.Validate) error {
	sr.Email = core.CleanString(sr.Email, true /* lower */)
	return validate.Struct(sr)
}

func (sr *SwitchViewRequest) Validate(validate *validator.Validate) error {
	sr.View = core.CleanString(sr.View, true /* lower */)
	return validate.Struct(sr)
}
