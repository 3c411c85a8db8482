package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ByteMirror/highlander/log"
	"github.com/ByteMirror/highlander/report"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sugawarayuuta/sonnet"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Action is a control message sent by a websocket client.
type Action struct {
	Action   string          `json:"action"`
	Detailed bool            `json:"detailed,omitempty"`
	Config   json.RawMessage `json:"config,omitempty"`
}

func HandleWebsocket(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.ErrorLog.Printf("websocket upgrade: %v", err)
			return
		}

		cl, ok := s.broadcaster.Register(conn)
		if !ok {
			_ = conn.Close()
			return
		}
		defer s.broadcaster.Unregister(cl)

		for {
			msgType, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if msgType != websocket.TextMessage {
				continue
			}

			var action Action
			if err := sonnet.Unmarshal(msg, &action); err != nil {
				_ = cl.send(Message{Type: "error", Error: fmt.Sprintf("invalid message: %v", err)})
				continue
			}
			if err := cl.send(s.dispatch(c, action)); err != nil {
				log.WarningLog.Printf("websocket reply to %s: %v", conn.RemoteAddr(), err)
				return
			}
		}
	}
}

// dispatch runs one action and returns the reply.
func (s *Server) dispatch(c *gin.Context, a Action) Message {
	switch a.Action {
	case "start":
		if _, err := s.startSimulation(a.Config); err != nil {
			return Message{Type: "error", Error: err.Error()}
		}
	case "pause":
		s.manager.Pause()
	case "resume":
		s.resume()
	case "stop":
		if err := s.manager.Stop(); err != nil {
			log.WarningLog.Printf("stop: %v", err)
		}
	case "check":
		r, err := s.check(c.Request.Context(), report.Check)
		if err != nil {
			return Message{Type: "error", Error: err.Error()}
		}
		if !a.Detailed {
			r = r.Summary()
		}
		return Message{Type: "report", Data: r}
	case "status":
	default:
		return Message{Type: "error", Error: fmt.Sprintf("unknown action %q", a.Action)}
	}
	return Message{Type: "status", Data: s.status(a.Detailed)}
}
