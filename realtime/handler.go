package realtime

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// Authenticator resolves a user ID from an Authorization header value.
type Authenticator interface {
	UserIDFromAuthHeader(string) (string, error)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browser clients connect cross-origin from the web frontend; access
	// control happens via the bearer token, not the Origin header.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Handler upgrades /ws requests and runs the socket against the hub. Room
// scope comes from the handshake query; the user identity comes from the
// bearer token (header or token query param for browser websockets). A
// missing or invalid token yields an anonymous socket with no presence.
func Handler(h *Hub, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
		if authHeader == "" {
			if token := c.QueryParam("token"); token != "" {
				authHeader = "Bearer " + token
			}
		}
		userID := ""
		if authHeader != "" {
			if id, err := auth.UserIDFromAuthHeader(authHeader); err == nil {
				userID = id
			}
		}

		scope := RoomScope{
			BoardID:     c.QueryParam("boardId"),
			WorkspaceID: c.QueryParam("workspaceId"),
			SessionID:   c.QueryParam("sessionId"),
		}

		conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			return err
		}
		client := NewClient(conn, userID)
		h.Connect(client, scope)
		client.Run(h)
		return nil
	}
}
