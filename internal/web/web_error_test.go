package web_test

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlashMessageShownOnce(t *testing.T) {
	ts := newWebTestServer(t)
	ts.signUp("alice@example.com")

	rr := ts.get("/")
	doc := parseHTML(rr.Body)
	assertContainsText(t, doc, ".flash", "Welcome")

	// Cleared after being displayed
	rr = ts.get("/")
	doc = parseHTML(rr.Body)
	assertNotContainsElement(t, doc, ".flash")
}

func TestFlashMessageEscaped(t *testing.T) {
	ts := newWebTestServer(t)
	ts.signUp("alice@example.com")
	ts.get("/")

	rr := ts.post("/profile", url.Values{"display_name": {"<b>Bold</b>"}})
	assert.Equal(t, http.StatusSeeOther, rr.Code)

	rr = ts.followRedirect(rr)
	body := rr.Body.String()
	assert.NotContains(t, body, "<b>Bold</b>")
	assert.True(t, strings.Contains(body, "&lt;b&gt;Bold&lt;/b&gt;"))
}

func TestPostNotFound(t *testing.T) {
	ts := newWebTestServer(t)

	rr := ts.get("/post/missing")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	doc := parseHTML(rr.Body)
	assertContainsText(t, doc, "h1", "Not found")
	assertContainsElement(t, doc, ".error-page a[href='/']")
}

func TestUnknownRouteIs404(t *testing.T) {
	ts := newWebTestServer(t)

	rr := ts.get("/nowhere")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
