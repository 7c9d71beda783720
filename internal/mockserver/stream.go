package mockserver

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/timekeeper/client/internal/realtime"
	"github.com/timekeeper/client/internal/routes"
	"github.com/timekeeper/client/internal/session"
)

var upgrader = websocket.Upgrader{
	// The mock serves local tools and tests only.
	CheckOrigin: func(*http.Request) bool { return true },
}

func (s *Server) routeStreams() {
	s.mux.HandleFunc(routes.StreamNotifications, s.handleStream(session.RoleNone))
	s.mux.HandleFunc(routes.StreamAuthorizedNotifications, s.handleStream(session.RoleAuthorized))
	s.mux.HandleFunc(routes.StreamAttendance, s.handleStream(session.RoleNone))
	s.mux.HandleFunc(routes.StreamEmployeeAttendance, s.handleStream(session.RoleEmployee))
	s.mux.HandleFunc(routes.StreamAuthorizedAttendance, s.handleStream(session.RoleAuthorized))
}

// handleStream upgrades every request. Connections without a valid token are
// told authentication is required and closed; role mismatches are refused
// before the upgrade.
func (s *Server) handleStream(role session.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := s.tokens.verify(bearer(r))
		if err == nil && role != session.RoleNone && c.Role != role {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		conn, uerr := upgrader.Upgrade(w, r, nil)
		if uerr != nil {
			s.logger.Warn("stream upgrade failed", zap.Error(uerr))
			return
		}
		if err != nil {
			data, _ := json.Marshal(realtime.Event{Type: realtime.AuthenticationRequired})
			conn.WriteMessage(websocket.TextMessage, data)
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "authentication required"))
			conn.Close()
			return
		}

		client := s.hub.add(conn, c.UserID, r.URL.Path)
		s.logger.Info("stream client connected", zap.String("stream", r.URL.Path), zap.String("username", c.Username))

		go func() {
			defer func() {
				s.hub.remove(client)
				s.logger.Info("stream client disconnected", zap.String("stream", r.URL.Path), zap.String("username", c.Username))
			}()
			for {
				_, data, err := conn.ReadMessage()
				if err != nil {
					return
				}
				var frame struct {
					Action string `json:"action"`
					Group  string `json:"group"`
				}
				if json.Unmarshal(data, &frame) == nil && frame.Action == "join" && frame.Group != "" {
					s.hub.join(client, frame.Group)
				}
			}
		}()
	}
}

// toUser sends ev on the personal notification stream of userID.
func (s *Server) toUser(userID int64, ev realtime.Event) {
	s.hub.publish(ev, func(c *client) bool {
		return c.userID == userID && c.stream == routes.StreamNotifications
	})
}

// toAuthorized sends ev to every authorized notification stream.
func (s *Server) toAuthorized(ev realtime.Event) {
	s.hub.publish(ev, func(c *client) bool {
		return c.stream == routes.StreamAuthorizedNotifications
	})
}

// attendanceChanged pushes a fresh overview row to the attendance feeds and
// to the employee's own attendance stream.
func (s *Server) attendanceChanged(userID int64, e employee) {
	row := s.overviewRow(e)
	s.hub.publish(realtime.Event{Type: realtime.TypeAttendanceUpdate, Data: mustJSON(row)}, func(c *client) bool {
		return c.groups[authorizedAttendanceGroup] || c.stream == routes.StreamAttendance
	})
	s.hub.publish(realtime.Event{Type: realtime.TypeEmployeeAttendanceUpdate, Data: mustJSON(row)}, func(c *client) bool {
		return c.userID == userID && c.stream == routes.StreamEmployeeAttendance
	})
}

const authorizedAttendanceGroup = "authorized_attendance"

func event(eventType, message string, data any) realtime.Event {
	ev := realtime.Event{Type: eventType}
	if message != "" {
		ev.Message = mustJSON(message)
	}
	if data != nil {
		ev.Data = mustJSON(data)
	}
	return ev
}

func mustJSON(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}
