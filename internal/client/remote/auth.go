package remote

import (
	"context"
	"net/http"

	"github.com/mcoot/quill/internal/api/request"
	"github.com/mcoot/quill/internal/api/response"
	"github.com/mcoot/quill/internal/client/clienterr"
	"github.com/mcoot/quill/internal/client/gateway"
	"github.com/mcoot/quill/internal/model"
)

var _ gateway.Provider = (*Client)(nil)

// GetSession restores the persisted session. A token the server no longer
// accepts is discarded and reported as no session.
func (c *Client) GetSession(ctx context.Context) (*model.Identity, error) {
	token := c.currentToken()
	if token.Value == "" {
		return nil, nil
	}
	var resp response.SessionResponse
	if err := c.do(ctx, http.MethodGet, "/auth/session", nil, &resp); err != nil {
		if isUnauthorized(err) {
			c.logger.Info("stored session is no longer valid")
			c.setToken(Token{})
			return nil, nil
		}
		return nil, classify("get_session", err)
	}
	if resp.SessionID != token.SessionID {
		c.setToken(Token{Value: token.Value, SessionID: resp.SessionID})
	}
	return resp.Identity.ToModel(), nil
}

// OnSessionChange registers fn for changes pushed by Watch
func (c *Client) OnSessionChange(fn func(gateway.Change)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

func (c *Client) notify(change gateway.Change) {
	c.mu.Lock()
	fns := make([]func(gateway.Change), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(change)
	}
}

func (c *Client) SignUp(ctx context.Context, email, password string) (*gateway.SignUpResult, error) {
	var resp response.SignUpResponse
	if err := c.do(ctx, http.MethodPost, "/auth/signup", request.SignUpRequest{Email: email, Password: password}, &resp); err != nil {
		return nil, classify("sign_up", err)
	}
	if resp.Session != nil {
		c.setToken(Token{Value: resp.Session.SessionToken, SessionID: resp.Session.SessionID})
	}
	return &gateway.SignUpResult{
		Identity:             resp.Identity.ToModel(),
		ConfirmationRequired: resp.ConfirmationRequired,
	}, nil
}

// Confirm confirms a sign-up with the emailed code. The caller signs in afterwards.
func (c *Client) Confirm(ctx context.Context, email, code string) error {
	if err := c.do(ctx, http.MethodPost, "/auth/confirm", request.ConfirmRequest{Email: email, Code: code}, nil); err != nil {
		return classify("confirm", err)
	}
	return nil
}

func (c *Client) SignIn(ctx context.Context, email, password string) (*model.Identity, error) {
	var resp response.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/signin", request.SignInRequest{Email: email, Password: password}, &resp); err != nil {
		return nil, classify("sign_in", err)
	}
	c.setToken(Token{Value: resp.SessionToken, SessionID: resp.SessionID})
	return resp.Identity.ToModel(), nil
}

// SignOut ends this session only
func (c *Client) SignOut(ctx context.Context) error {
	return c.signOut(ctx, model.SignOutLocal)
}

// SignOutEverywhere ends every session of the signed-in identity
func (c *Client) SignOutEverywhere(ctx context.Context) error {
	return c.signOut(ctx, model.SignOutGlobal)
}

func (c *Client) signOut(ctx context.Context, scope model.SignOutScope) error {
	if !c.HasToken() {
		return nil
	}
	if err := c.do(ctx, http.MethodPost, "/auth/signout", request.SignOutRequest{Scope: string(scope)}, nil); err != nil {
		return classify("sign_out", err)
	}
	c.setToken(Token{})
	return nil
}

func (c *Client) UpdateProfile(ctx context.Context, update model.ProfileUpdate) (*model.Identity, error) {
	req := request.UpdateProfileRequest{
		DisplayName: update.DisplayName,
		AvatarURL:   update.AvatarURL,
		Bio:         update.Bio,
		Website:     update.Website,
	}
	var resp response.Identity
	if err := c.do(ctx, http.MethodPatch, "/profile", req, &resp); err != nil {
		return nil, classify("update_profile", err)
	}
	return resp.ToModel(), nil
}

// GetIdentity fetches a public profile
func (c *Client) GetIdentity(ctx context.Context, id model.IdentityID) (*model.Identity, error) {
	if id == "" {
		return nil, clienterr.ErrNotFound
	}
	var resp response.Identity
	if err := c.do(ctx, http.MethodGet, "/identities/"+escape(string(id)), nil, &resp); err != nil {
		return nil, classify("get_identity", err)
	}
	return resp.ToModel(), nil
}
