package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	. "github.com/elimusoft/elimu/apps/api/echo"
	"github.com/elimusoft/elimu/core"
	"github.com/elimusoft/elimu/core/auth"
	"github.com/elimusoft/elimu/core/user"
	"github.com/elimusoft/elimu/storage/database/dummy"
)

const (
	identityCookieName = "elimu_identity"
	csrfCookieName     = "elimu_csrftoken"
	csrfHeader         = "X-CSRF-Token"

	testPassword = "Str0ngP@ssw0rd!"
)

var usrRepo user.Repository

type testLogger struct{}

func (testLogger) Debug(string, ...interface{}) {}
func (testLogger) Info(string, ...interface{})  {}
func (testLogger) Warn(string, ...interface{})  {}
func (testLogger) Error(string, ...interface{}) {}
func (testLogger) Fatal(string, ...interface{}) {}

func setup(t *testing.T) Server {
	conf := &core.Config{
		TestMode:  true,
		Env:       "TEST",
		AppName:   "Elimu",
		SecretKey: "0123456789abcdef0123456789abcdef",
		Server: core.ServerConfig{
			JWTExpirationDelta: 7 * 24 * time.Hour,
		},
		RateLimit: core.RateLimitConfig{
			Attempts: 3,
			Window:   5 * time.Minute,
		},
	}

	// set up DB & repos
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	usrRepo = dummydb.NewUserRepository(db)

	// set up services
	usrSvc := user.NewService(usrRepo, testLogger{})

	codec, err := auth.NewCodec(conf.AppName, []byte(conf.SecretKey), conf.Server.JWTExpirationDelta)
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	limiter := auth.NewRateLimiter(conf.RateLimit.Attempts, conf.RateLimit.Window)

	validate := validator.New()
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	user.LoadCommonPasswords(testLogger{})

	// set up server
	return NewServer(
		ServerDeps{
			Conf:           conf,
			Logger:         testLogger{},
			UserSvc:        usrSvc,
			TokenCodec:     codec,
			RateLimiter:    limiter,
			Validate:       validate,
			Translator:     translator,
			DisableReqLogs: true,
		},
	)
}

// client is a cookie-aware test client; it carries the identity and CSRF
// cookies across requests the way a browser would.
type client struct {
	t       *testing.T
	app     Server
	cookies map[string]*http.Cookie
}

func newClient(t *testing.T, app Server) *client {
	c := &client{
		t:       t,
		app:     app,
		cookies: make(map[string]*http.Cookie),
	}
	// grab the initial CSRF cookie
	c.get("/v1/auth/session")
	return c
}

func (c *client) do(method, path string, withCSRF bool, data ...[]byte) *httptest.ResponseRecorder {
	var token string
	if withCSRF {
		if cookie, ok := c.cookies[csrfCookieName]; ok {
			token = cookie.Value
		}
	}
	return c.doToken(method, path, token, data...)
}

// doToken sends the given value in the CSRF header regardless of the cookie.
func (c *client) doToken(method, path, csrfToken string, data ...[]byte) *httptest.ResponseRecorder {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	for _, cookie := range c.cookies {
		req.AddCookie(cookie)
	}
	if csrfToken != "" {
		req.Header.Set(csrfHeader, csrfToken)
	}
	rec := httptest.NewRecorder()
	c.app.ServeHTTP(rec, req)

	// absorb Set-Cookie like a browser
	for _, cookie := range rec.Result().Cookies() {
		if cookie.MaxAge < 0 {
			delete(c.cookies, cookie.Name)
		} else {
			c.cookies[cookie.Name] = cookie
		}
	}
	return rec
}

func (c *client) get(path string) *httptest.ResponseRecorder {
	return c.do(http.MethodGet, path, false)
}

func (c *client) post(path string, data ...[]byte) *httptest.ResponseRecorder {
	return c.do(http.MethodPost, path, true, data...)
}

func (c *client) put(path string, data ...[]byte) *httptest.ResponseRecorder {
	return c.do(http.MethodPut, path, true, data...)
}

func (c *client) signIn(email, pwd string) *httptest.ResponseRecorder {
	return c.post("/v1/auth/signin", marchallObj(c.t, SignInRequest{Email: email, Password: pwd}))
}

func (c *client) hasSessionCookie() bool {
	_, ok := c.cookies[identityCookieName]
	return ok
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	wantCode int
	wantData []byte
	extra    interface{}
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ObjectsAreEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body = %s", rec.Code, tt.wantCode, rec.Body.String())
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

// sessionUserOf decodes the "user" object of a session response.
func sessionUserOf(t *testing.T, rec *httptest.ResponseRecorder) *auth.SessionUser {
	var resp struct {
		User *auth.SessionUser `json:"user"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding session response: %v", err)
	}
	return resp.User
}
