package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/kraitsura/ktree_viewer/pkg/focus"
	"github.com/kraitsura/ktree_viewer/pkg/model"
	"github.com/kraitsura/ktree_viewer/pkg/search"
	"github.com/kraitsura/ktree_viewer/pkg/session"
	"github.com/kraitsura/ktree_viewer/pkg/surface"
	"github.com/kraitsura/ktree_viewer/pkg/traversal"
)

const defaultSearchLimit = 10

type pageData struct {
	Title       string
	Description string
	Order       string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	doc := s.sess.Document()
	data := pageData{Title: s.sess.Name(), Order: string(s.sess.Order())}
	if doc.SEO != nil {
		data.Description = doc.SEO.Description
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.page.Execute(w, data); err != nil {
		s.logger.Error("render page", "err", err)
	}
}

type treeResponse struct {
	Name string          `json:"name"`
	SEO  *model.SEO      `json:"seo,omitempty"`
	Root *model.TreeNode `json:"root"`
}

func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	doc := s.sess.Document()
	writeJSON(w, http.StatusOK, treeResponse{Name: s.sess.Name(), SEO: doc.SEO, Root: doc.Root})
}

func (s *Server) handleLayout2D(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, surface.FromLayout(s.sess.Layout2D(), s.sess.Focus().Snapshot()))
}

func (s *Server) handleLayout3D(w http.ResponseWriter, r *http.Request) {
	sp := surface.FromScene(s.sess.Layout3D(), s.sess.Document().Root, s.sess.Focus().Snapshot())
	writeJSON(w, http.StatusOK, sp)
}

// focusResponse is returned by every focus or navigation mutation.
type focusResponse struct {
	Focus      focus.Snapshot     `json:"focus"`
	Navigation surface.Navigation `json:"navigation"`
	Moved      *bool              `json:"moved,omitempty"`
}

func (s *Server) focusState() focusResponse {
	return focusResponse{
		Focus:      s.sess.Focus().Snapshot(),
		Navigation: surface.FromStatus(s.sess.Nav().Status()),
	}
}

func (s *Server) handleGetFocus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.focusState())
}

type focusRequest struct {
	Label  string       `json:"label"`
	Source focus.Source `json:"source"`
	Toggle bool         `json:"toggle"`
}

func (s *Server) handleSetFocus(w http.ResponseWriter, r *http.Request) {
	var req focusRequest
	if !decode(w, r, &req) {
		return
	}
	if !req.Source.IsValid() {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid source %q", req.Source))
		return
	}
	if req.Toggle {
		s.sess.Focus().ToggleFocus(req.Label, req.Source)
	} else {
		s.sess.Focus().SetFocus(req.Label, req.Source)
	}
	writeJSON(w, http.StatusOK, s.focusState())
}

type clickRequest struct {
	View focus.Source `json:"view"`
	ID   string       `json:"id"`
}

func (s *Server) handleClick(w http.ResponseWriter, r *http.Request) {
	var req clickRequest
	if !decode(w, r, &req) {
		return
	}
	if err := s.sess.Click(req.View, req.ID); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, s.focusState())
}

type dragRequest struct {
	ID  string  `json:"id"`
	X   float64 `json:"x"`
	Y   float64 `json:"y"`
	End bool    `json:"end"`
}

type dragResponse struct {
	Pushed int             `json:"pushed"`
	Layout surface.Diagram `json:"layout"`
}

func (s *Server) handleDrag(w http.ResponseWriter, r *http.Request) {
	var req dragRequest
	if !decode(w, r, &req) {
		return
	}
	var pushed int
	var err error
	if req.End {
		pushed, err = s.sess.DragEnd(req.ID, req.X, req.Y)
	} else {
		err = s.sess.Drag(req.ID, req.X, req.Y)
	}
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, dragResponse{
		Pushed: pushed,
		Layout: surface.FromLayout(s.sess.Layout2D(), s.sess.Focus().Snapshot()),
	})
}

func (s *Server) handleNav(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, surface.FromStatus(s.sess.Nav().Status()))
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	moved := s.sess.Nav().Next()
	resp := s.focusState()
	resp.Moved = &moved
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePrev(w http.ResponseWriter, r *http.Request) {
	moved := s.sess.Nav().Previous()
	resp := s.focusState()
	resp.Moved = &moved
	writeJSON(w, http.StatusOK, resp)
}

type orderRequest struct {
	Order string `json:"order"`
}

func (s *Server) handleOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if !decode(w, r, &req) {
		return
	}
	order, err := traversal.ParseOrder(req.Order)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.sess.SetOrder(order); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, s.focusState())
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	limit := defaultSearchLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", v))
			return
		}
		limit = n
	}
	matches := s.sess.Search(r.URL.Query().Get("q"), limit)
	if matches == nil {
		matches = []search.Match{}
	}
	writeJSON(w, http.StatusOK, matches)
}

func (s *Server) handleCamera(w http.ResponseWriter, r *http.Request) {
	c, phase := s.sess.Camera()
	writeJSON(w, http.StatusOK, surface.FromCamera(c, phase))
}

type statusResponse struct {
	Status    string `json:"status"`
	Port      int    `json:"port"`
	Tree      string `json:"tree"`
	Nodes     int    `json:"nodes"`
	Order     string `json:"order"`
	Clients   int    `json:"clients"`
	UptimeSec int64  `json:"uptime_sec"`
}

// statusHandler returns the server status as JSON.
func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		Status:    "running",
		Port:      s.Port(),
		Tree:      s.sess.Name(),
		Nodes:     s.sess.Document().Root.Count(),
		Order:     string(s.sess.Order()),
		Clients:   s.hub.Clients(),
		UptimeSec: int64(time.Since(s.started) / time.Second),
	})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	return true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrUnknownNode):
		return http.StatusNotFound
	case errors.Is(err, session.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadRequest
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
