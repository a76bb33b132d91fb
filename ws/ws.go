package ws

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/susaninz/geosite-manager/errors"
	"github.com/susaninz/geosite-manager/logging"
)

// HandleWS handles websocket upgrade requests for the dashboard feed.
func HandleWS(hub *Hub) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
	}
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			errors.Log(logging.WSLogger, errors.NewInternalErrorFromErr(err, "upgrade connection", nil))
			return
		}
		client := &Client{
			ID:         uuid.New(),
			Send:       make(chan []byte, 64),
			hub:        hub,
			connection: conn,
		}
		// Use the client's hub so that the reference from the handler can be
		// dropped.
		client.hub.register <- client
		// Power the pumps.
		go client.writePump()
		go client.readPump()
	}
}
