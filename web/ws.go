package web

import (
	"log"
	"net/http"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/gorilla/websocket"

	"github.com/mogaika/xformedit/command"
	"github.com/mogaika/xformedit/config"
	"github.com/mogaika/xformedit/utils"
)

// HandlerWsManipulate runs one drag gesture. The command is built from the
// query when the socket opens, every message moves it to a new target and
// closing the socket commits it to the history.
func (s *Server) HandlerWsManipulate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := jTranslate{Path: q.Get("path"), Kind: q.Get("kind"), Time: q.Get("time")}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[web] ws upgrade error: %v", err)
		return
	}
	defer conn.Close()

	s.lock.Lock()
	c, err := s.newCommand(&req)
	s.lock.Unlock()
	if err != nil {
		conn.WriteJSON(jCommand{Path: req.Path, Kind: req.Kind, State: command.StateFailed.String(), Error: err.Error()})
		return
	}
	if err := conn.WriteJSON(commandInfo(c)); err != nil {
		log.Printf("[web] ws write error: %v", err)
	}

	for {
		var msg jTranslate
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("[web] ws gesture %v ended: %v", req.Path, err)
			}
			break
		}
		if config.DebugManipulators() {
			utils.LogDump("[web] gesture ", msg)
		}

		space, err := parseSpace(msg.Space)
		s.lock.Lock()
		if err == nil {
			err = c.Apply(mgl64.Vec3{msg.X, msg.Y, msg.Z}, space)
		}
		reply := commandInfo(c)
		s.lock.Unlock()
		if err != nil {
			reply.Error = err.Error()
		}
		if err := conn.WriteJSON(reply); err != nil {
			log.Printf("[web] ws write error: %v", err)
			break
		}
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	if !c.Applied() {
		c.Undo()
		return
	}
	s.history.Push(c)
	s.status.Edit(req.Path, "Moved %s to %v", c.OpName(), c.CurrentValue())
}

func (s *Server) HandlerWsStatus(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[web] ws upgrade error: %v", err)
		return
	}
	s.status.Serve(conn)
}
