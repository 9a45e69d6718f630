package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/dgallion1/mdschema/internal/parser"
	"github.com/dgallion1/mdschema/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
)

var wsUpgrader = websocket.Upgrader{}

type createSessionRequest struct {
	Config *parser.Config `json:"config,omitempty"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	sess, err := s.sessions.Create(s.parseConfig(req.Config))
	if err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"session_id": sess.ID,
		"ws_url":     fmt.Sprintf("/api/sessions/%s/ws", sess.ID),
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if err := s.sessions.Delete(id); err != nil {
		jsonError(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session_id": id, "deleted": true})
}

type appendRequest struct {
	Chunk string `json:"chunk"`
	Done  bool   `json:"done,omitempty"`
}

func (s *Server) handleAppendSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	var req appendRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	upd, err := sess.Append(req.Chunk)
	if err != nil {
		jsonError(w, err.Error(), http.StatusConflict)
		return
	}
	if req.Done {
		upd = sess.Finish()
	}
	writeJSON(w, http.StatusOK, upd)
}

// wsMessage is one client frame on the session websocket.
type wsMessage struct {
	Append  *string `json:"append,omitempty"`
	Replace *string `json:"replace,omitempty"`
	Done    bool    `json:"done,omitempty"`
}

// handleSessionWS streams parse results: every append or replace frame is
// answered with the reparsed tree, and a done frame closes the session.
func (s *Server) handleSessionWS(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	ws, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "session_id", sess.ID, "error", err)
		return
	}
	defer ws.Close()

	log := s.log.With("session_id", sess.ID, "request_id", middleware.GetReqID(r.Context()))
	log.Info("websocket opened")
	for {
		var msg wsMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("read websocket message", "error", err)
			}
			return
		}

		var (
			upd   session.Update
			err   error
			acted bool
		)
		if msg.Replace != nil {
			upd, err = sess.Replace(*msg.Replace)
			acted = true
		}
		if err == nil && msg.Append != nil {
			upd, err = sess.Append(*msg.Append)
			acted = true
		}
		if err == nil {
			switch {
			case msg.Done:
				upd = sess.Finish()
			case !acted:
				snap := sess.Snapshot()
				upd = session.Update{Schema: snap.Schema, Seq: snap.Seq}
			}
		}

		if err != nil {
			if werr := ws.WriteJSON(map[string]string{"error": err.Error()}); werr != nil {
				return
			}
			continue
		}
		if err := ws.WriteJSON(upd); err != nil {
			log.Warn("write websocket message", "error", err)
			return
		}
		if msg.Done {
			log.Info("websocket finished", "seq", upd.Seq)
			ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"))
			return
		}
	}
}

func (s *Server) lookupSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.sessions.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, session.ErrNotFound) {
			code = http.StatusNotFound
		}
		jsonError(w, err.Error(), code)
		return nil, false
	}
	return sess, true
}
