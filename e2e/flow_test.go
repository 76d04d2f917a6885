package e2e_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/quill/internal/api"
	"github.com/mcoot/quill/internal/client/clienterr"
	"github.com/mcoot/quill/internal/client/gateway"
	"github.com/mcoot/quill/internal/client/pages"
	"github.com/mcoot/quill/internal/client/remote"
	"github.com/mcoot/quill/internal/client/routeguard"
	"github.com/mcoot/quill/internal/client/session"
	"github.com/mcoot/quill/internal/client/view"
	"github.com/mcoot/quill/internal/factory"
	"github.com/mcoot/quill/internal/model"
	"github.com/mcoot/quill/internal/testutil"
	"github.com/mcoot/quill/internal/web"
)

const password = "secret123"

// startServer serves the API and the web UI the way cmd/server does
func startServer(t *testing.T) (*httptest.Server, *factory.App) {
	t.Helper()

	app, err := factory.New(context.Background(), factory.Config{Logger: testutil.NopLogger()})
	require.NoError(t, err)

	apiRouter := api.NewRouter(api.RouterConfig{
		Logger:      testutil.NopLogger(),
		AuthService: app.AuthService,
		PostService: app.PostService,
		HubManager:  app.HubManager,
		Metrics:     app.Metrics,
		Gatherer:    app.Registry,
	})
	webRouter := web.NewRouter(web.RouterConfig{
		Logger:      testutil.NopLogger(),
		AuthService: app.AuthService,
		PostService: app.PostService,
		Sanitizer:   app.Sanitizer,
		Metrics:     app.Metrics,
	})

	mux := http.NewServeMux()
	mux.Handle("/api/", apiRouter)
	mux.Handle("/metrics", apiRouter)
	mux.Handle("/", webRouter)

	server := httptest.NewServer(mux)
	t.Cleanup(func() {
		server.Close()
		_ = app.Close()
	})
	return server, app
}

// device is one running client: remote provider, session core and guard
type device struct {
	client  *remote.Client
	store   *session.Store
	gateway *gateway.Gateway
	guard   *routeguard.Guard
}

func newDevice(t *testing.T, serverURL string) *device {
	t.Helper()

	client := remote.New(serverURL, remote.NewMemoryTokenStore(), remote.WithLogger(testutil.NopLogger()))
	store, writer := session.New()
	gw := gateway.New(client, writer, gateway.WithTimeout(5*time.Second), gateway.WithLogger(testutil.NopLogger()))
	gw.Start(context.Background())
	t.Cleanup(gw.Stop)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := store.WaitRestored(ctx)
	require.NoError(t, err)

	return &device{client: client, store: store, gateway: gw, guard: routeguard.New(store)}
}

type decisions struct {
	mu  sync.Mutex
	all []routeguard.Decision
}

func (d *decisions) add(dec routeguard.Decision) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.all = append(d.all, dec)
}

func (d *decisions) last() (routeguard.Decision, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.all) == 0 {
		return routeguard.Decision{}, false
	}
	return d.all[len(d.all)-1], true
}

func TestBloggingFlow(t *testing.T) {
	server, _ := startServer(t)
	ctx := context.Background()

	alice := newDevice(t, server.URL)
	bob := newDevice(t, server.URL)
	assert.Equal(t, session.Anonymous, alice.store.Snapshot().State)

	// Anonymous visitors can't write
	decision, err := alice.guard.Resolve(ctx, routeguard.Write)
	require.NoError(t, err)
	assert.Equal(t, routeguard.Redirect, decision.Action)
	assert.Equal(t, "/", decision.Target)

	_, err = alice.gateway.SignUp(ctx, "alice@example.com", password)
	require.NoError(t, err)
	_, err = bob.gateway.SignUp(ctx, "bob@example.com", password)
	require.NoError(t, err)
	me := alice.store.CurrentIdentity()
	require.NotNil(t, me)

	decision, err = alice.guard.Resolve(ctx, routeguard.Write)
	require.NoError(t, err)
	assert.Equal(t, routeguard.Allow, decision.Action)

	// Draft autosaves under the id assigned when the editor opened
	editor, err := pages.NewEditor(ctx, alice.client, alice.store, pages.WithAutosaveDelay(10*time.Millisecond))
	require.NoError(t, err)
	defer editor.Close()
	editor.SetTitle("Hello World")
	editor.SetContent("<p>Hello <em>world</em><script>alert(1)</script></p>")

	require.Eventually(t, func() bool {
		p, err := alice.client.GetByID(ctx, editor.ID())
		return err == nil && strings.Contains(p.Content, "world")
	}, 2*time.Second, 10*time.Millisecond)

	// Bob can't see the draft
	post := pages.NewPost(ctx, bob.client, bob.store, nil)
	defer post.Close()
	post.Show(editor.ID())
	post.Wait()
	assert.Equal(t, view.Error, post.State().Status)
	assert.ErrorIs(t, post.State().Err, clienterr.ErrNotFound)

	published, err := editor.Publish(ctx)
	require.NoError(t, err)
	assert.True(t, published.IsPublished())
	assert.Equal(t, "hello-world", published.Slug)

	// Bob sees it on the home page, read-only
	home := pages.NewHome(ctx, bob.client, bob.store, nil)
	defer home.Close()
	home.Wait()
	require.Equal(t, view.Ready, home.State().Status)
	require.Len(t, home.State().Data, 1)
	assert.Equal(t, editor.ID(), home.State().Data[0].Post.ID)
	assert.False(t, home.State().Data[0].CanEdit)

	_, err = pages.OpenEditor(ctx, bob.client, bob.store, editor.ID())
	assert.ErrorIs(t, err, clienterr.ErrNotFound)

	// The web UI renders the same post sanitised
	resp, err := http.Get(server.URL + "/post/" + string(editor.ID()))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "Hello World", strings.TrimSpace(doc.Find("article.post h1").Text()))
	assert.Equal(t, 1, doc.Find(".content em").Length())
	assert.Equal(t, 0, doc.Find(".content script").Length())

	// Alice's profile lists it and follows her renamed identity
	profile := pages.NewProfile(ctx, alice.client, alice.store, nil)
	defer profile.Close()
	profile.Wait()
	require.Equal(t, view.Ready, profile.State().Status)
	require.Len(t, profile.State().Data.Posts, 1)
	assert.True(t, profile.State().Data.Posts[0].CanEdit)

	name := "Alice L"
	_, err = alice.gateway.UpdateProfile(ctx, model.ProfileUpdate{DisplayName: &name})
	require.NoError(t, err)
	profile.Wait()
	assert.Equal(t, name, profile.State().Data.Identity.DisplayName)
	assert.Equal(t, me.ID, profile.State().Data.Identity.ID)

	// Metrics are exposed alongside the API
	metricsResp, err := http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(metricsResp.Body)
	_ = metricsResp.Body.Close()
	assert.Contains(t, string(body), "quill_http_requests_total")
}

func TestRemoteSignOutRedirectsProtectedView(t *testing.T) {
	server, app := startServer(t)
	ctx := context.Background()

	laptop := newDevice(t, server.URL)
	_, err := laptop.gateway.SignUp(ctx, "alice@example.com", password)
	require.NoError(t, err)
	me := laptop.store.CurrentIdentity()

	// The laptop is on its profile page and listening for session events
	seen := &decisions{}
	stop := laptop.guard.Watch(routeguard.Profile, seen.add)
	defer stop()

	watchCtx, cancelWatch := context.WithCancel(ctx)
	defer cancelWatch()
	watchDone := make(chan error, 1)
	go func() { watchDone <- laptop.client.Watch(watchCtx) }()
	require.Eventually(t, func() bool {
		hub := app.HubManager.GetHub(me.ID)
		return hub != nil && hub.ClientCount() > 0
	}, 2*time.Second, 5*time.Millisecond)

	// A phone signs in and then signs out everywhere
	phone := newDevice(t, server.URL)
	_, err = phone.gateway.SignIn(ctx, "alice@example.com", password)
	require.NoError(t, err)
	require.NoError(t, phone.client.SignOutEverywhere(ctx))

	select {
	case err := <-watchDone:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not end")
	}

	assert.Equal(t, session.Anonymous, laptop.store.Snapshot().State)
	last, ok := seen.last()
	require.True(t, ok)
	assert.Equal(t, routeguard.Redirect, last.Action)
	assert.Equal(t, "/", last.Target)

	// A restart finds no session to restore
	restarted, err := laptop.client.GetSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, restarted)
}

func TestRestoreFailureFallsBackToAnonymous(t *testing.T) {
	// Nothing listens here
	dead := httptest.NewServer(http.NotFoundHandler())
	url := dead.URL
	dead.Close()

	tokens := remote.NewMemoryTokenStore()
	require.NoError(t, tokens.Save(remote.Token{Value: "stale", SessionID: "gone"}))
	client := remote.New(url, tokens, remote.WithLogger(testutil.NopLogger()))

	store, writer := session.New()
	gw := gateway.New(client, writer, gateway.WithTimeout(time.Second), gateway.WithLogger(testutil.NopLogger()))
	gw.Start(context.Background())
	defer gw.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	snap, err := store.WaitRestored(ctx)
	require.NoError(t, err)
	assert.Equal(t, session.Anonymous, snap.State)

	_, err = gw.SignIn(ctx, "alice@example.com", password)
	var perr *clienterr.ProviderError
	assert.ErrorAs(t, err, &perr)
	assert.Equal(t, session.Anonymous, store.Snapshot().State)
}
