package web_test

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mcoot/quill/internal/factory"
)

func TestSignUp(t *testing.T) {
	ts := newWebTestServer(t)

	form := url.Values{
		"email":            {"alice@example.com"},
		"password":         {"secret123"},
		"password_confirm": {"secret123"},
	}
	rr := ts.post("/auth/signup", form)

	// Should redirect to home
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/", rr.Header().Get("Location"))

	// Session cookie should be set
	assert.True(t, ts.cookies.hasSession())

	// Follow redirect and verify signed in
	rr = ts.followRedirect(rr)
	assert.Equal(t, http.StatusOK, rr.Code)
	doc := parseHTML(rr.Body)
	assertContainsText(t, doc, "nav", "alice")
	assertContainsElement(t, doc, "a[href='/write']")
	assertContainsText(t, doc, ".flash-success", "Welcome, alice")
}

func TestSignUpDuplicateEmail(t *testing.T) {
	ts := newWebTestServer(t)
	ts.signUp("alice@example.com")

	ts.cookies = newCookieJar()
	form := url.Values{
		"email":            {"Alice@Example.com"},
		"password":         {"different456"},
		"password_confirm": {"different456"},
	}
	rr := ts.post("/auth/signup", form)

	// Should re-render page with error (200 status, not redirect)
	assert.Equal(t, http.StatusOK, rr.Code)
	doc := parseHTML(rr.Body)
	assertContainsText(t, doc, ".field-error[data-field='email']", "already exists")
	assert.False(t, ts.cookies.hasSession())
}

func TestSignUpValidationErrorsShown(t *testing.T) {
	ts := newWebTestServer(t)

	form := url.Values{
		"email":            {"not-an-email"},
		"password":         {"short"},
		"password_confirm": {"short"},
	}
	rr := ts.post("/auth/signup", form)

	assert.Equal(t, http.StatusOK, rr.Code)
	doc := parseHTML(rr.Body)
	assertContainsText(t, doc, ".field-error[data-field='email']", "valid email")
	assertContainsText(t, doc, ".field-error[data-field='password']", "8 characters")
	assert.False(t, ts.cookies.hasSession())
}

func TestSignUpPasswordMismatch(t *testing.T) {
	ts := newWebTestServer(t)

	form := url.Values{
		"email":            {"alice@example.com"},
		"password":         {"password123"},
		"password_confirm": {"different456"},
	}
	rr := ts.post("/auth/signup", form)

	assert.Equal(t, http.StatusOK, rr.Code)
	doc := parseHTML(rr.Body)
	assertContainsText(t, doc, "body", "do not match")
}

func TestSignUpWithConfirmation(t *testing.T) {
	ts := newWebTestServer(t, factory.WithConfirmation())
	ts.app.MockRandom.QueueString("ABC234")

	form := url.Values{
		"email":            {"alice@example.com"},
		"password":         {"secret123"},
		"password_confirm": {"secret123"},
	}
	rr := ts.post("/auth/signup", form)

	// No session until the email is confirmed
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/auth?confirm=alice%40example.com", rr.Header().Get("Location"))
	assert.False(t, ts.cookies.hasSession())

	rr = ts.followRedirect(rr)
	doc := parseHTML(rr.Body)
	assertContainsElement(t, doc, "form#confirm-form input[name='email'][value='alice@example.com']")
	assertContainsText(t, doc, ".flash-info", "confirmation code")

	// Signing in before confirming is refused
	rr = ts.post("/auth/signin", url.Values{"email": {"alice@example.com"}, "password": {"secret123"}})
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.False(t, ts.cookies.hasSession())

	// Wrong code
	rr = ts.post("/auth/confirm", url.Values{"email": {"alice@example.com"}, "code": {"ZZZZZZ"}})
	assert.Equal(t, http.StatusOK, rr.Code)
	doc = parseHTML(rr.Body)
	assertContainsText(t, doc, ".field-error[data-field='code']", "not valid")

	rr = ts.post("/auth/confirm", url.Values{"email": {"alice@example.com"}, "code": {"abc234"}})
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/auth", rr.Header().Get("Location"))

	rr = ts.post("/auth/signin", url.Values{"email": {"alice@example.com"}, "password": {"secret123"}})
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.True(t, ts.cookies.hasSession())
}

func TestSignIn(t *testing.T) {
	ts := newWebTestServer(t)
	ts.signUp("bob@example.com")
	ts.cookies = newCookieJar()

	rr := ts.post("/auth/signin", url.Values{
		"email":    {"bob@example.com"},
		"password": {"secret123"},
	})

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/", rr.Header().Get("Location"))
	assert.True(t, ts.cookies.hasSession())

	rr = ts.followRedirect(rr)
	doc := parseHTML(rr.Body)
	assertContainsText(t, doc, "nav", "bob")
}

func TestSignInInvalidCredentials(t *testing.T) {
	ts := newWebTestServer(t)
	ts.signUp("charlie@example.com")
	ts.cookies = newCookieJar()

	rr := ts.post("/auth/signin", url.Values{
		"email":    {"charlie@example.com"},
		"password": {"wrongpassword"},
	})

	// Should re-render sign-in page with error (200 status, not redirect)
	assert.Equal(t, http.StatusOK, rr.Code)
	doc := parseHTML(rr.Body)
	assertContainsText(t, doc, ".error", "Invalid email or password")
	assertContainsElement(t, doc, "form#signin-form input[name='email'][value='charlie@example.com']")
	assert.False(t, ts.cookies.hasSession())
}

func TestSignOut(t *testing.T) {
	ts := newWebTestServer(t)
	ts.signUp("dave@example.com")
	token := ts.cookies.cookies["session"].Value

	rr := ts.post("/auth/signout", nil)

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/", rr.Header().Get("Location"))
	assert.False(t, ts.cookies.hasSession())

	// The server-side session is revoked too
	_, err := ts.app.AuthService.Validate(t.Context(), token)
	assert.Error(t, err)

	rr = ts.followRedirect(rr)
	doc := parseHTML(rr.Body)
	assertContainsElement(t, doc, "a[href='/auth']")
	assertNotContainsElement(t, doc, "a[href='/write']")
}

func TestSignOutWhenAnonymous(t *testing.T) {
	ts := newWebTestServer(t)

	rr := ts.post("/auth/signout", nil)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/", rr.Header().Get("Location"))
}

func TestAuthPageRedirectsWhenSignedIn(t *testing.T) {
	ts := newWebTestServer(t)
	ts.signUp("erin@example.com")

	rr := ts.get("/auth")
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/", rr.Header().Get("Location"))
}

func TestProtectedRoutesRedirectToLanding(t *testing.T) {
	ts := newWebTestServer(t)

	for _, path := range []string{"/profile", "/write", "/edit/some-id"} {
		rr := ts.get(path)
		assert.Equal(t, http.StatusSeeOther, rr.Code, path)
		assert.Equal(t, "/", rr.Header().Get("Location"), path)
	}
}

func TestExpiredSessionTreatedAsAnonymous(t *testing.T) {
	ts := newWebTestServer(t)
	ts.signUp("frank@example.com")

	ts.app.MockClock.Advance(8 * 24 * time.Hour)

	rr := ts.get("/profile")
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/", rr.Header().Get("Location"))
}
