package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/mcoot/quill/internal/client/clienterr"
	"github.com/mcoot/quill/internal/client/gateway"
	"github.com/mcoot/quill/internal/events"
	"github.com/mcoot/quill/internal/model"
)

// Watch streams session events for the current session and forwards them
// to OnSessionChange listeners until ctx is done, the stream closes, or
// this session ends. Ending the session also discards the stored token.
func (c *Client) Watch(ctx context.Context) error {
	token := c.currentToken()
	if token.Value == "" {
		return clienterr.Provider("watch", clienterr.ErrUnauthorized)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+apiPrefix+"/auth/events", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Authorization", "Bearer "+token.Value)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return clienterr.Provider("watch", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return classify("watch", c.decodeError(resp.StatusCode, body))
	}

	reader := events.NewReader(resp.Body)
	for {
		frame, err := reader.Next()
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return clienterr.Provider("watch", err)
		}
		if frame.Event == events.EventConnected {
			continue
		}

		event, err := events.Decode(frame)
		if err != nil {
			c.logger.Warn("undecodable session event", slog.String("event", frame.Event), slog.String("error", err.Error()))
			continue
		}
		if event.SessionID != "" && event.SessionID != token.SessionID {
			continue
		}

		switch model.EventType(event.Type) {
		case model.EventSignedOut, model.EventSessionExpired:
			c.logger.Info("session ended remotely", slog.String("event", event.Type))
			c.setToken(Token{})
			c.notify(gateway.Change{Identity: nil})
			return nil
		case model.EventIdentityUpdated:
			if event.Identity != nil {
				c.notify(gateway.Change{Identity: event.Identity.ToModel()})
			}
		}
	}
}
