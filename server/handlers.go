package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.dedis.ch/tct/core/accumulator"
	"go.dedis.ch/tct/core/digest"
)

// RootJSON is the response of the root route.
type RootJSON struct {
	Root      accumulator.Root
	Len       uint64
	Witnessed int
}

// AnchorJSON is the response of the anchor route.
type AnchorJSON struct {
	Height uint64
	Root   accumulator.Root
}

// ErrorJSON is the response of a failed request.
type ErrorJSON struct {
	Error string
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.reply(w, http.StatusOK, RootJSON{
		Root:      s.tree.Root(),
		Len:       s.tree.Len(),
		Witnessed: s.tree.Witnessed(),
	})
}

func (s *Server) handleWitness(w http.ResponseWriter, r *http.Request) {
	c, err := digest.ParseCommitment(mux.Vars(r)["commitment"])
	if err != nil {
		s.fail(w, http.StatusBadRequest, "malformed commitment: "+err.Error())
		return
	}

	proof, ok := s.tree.Witness(c)
	if !ok {
		s.fail(w, http.StatusNotFound, "commitment "+c.String()+" is not witnessed")
		return
	}

	s.reply(w, http.StatusOK, proof)
}

func (s *Server) handleAnchor(w http.ResponseWriter, r *http.Request) {
	height, err := strconv.ParseUint(mux.Vars(r)["height"], 10, 64)
	if err != nil {
		s.fail(w, http.StatusBadRequest, "malformed height: "+err.Error())
		return
	}

	if s.anchors == nil {
		s.fail(w, http.StatusNotFound, "no anchors")
		return
	}

	root, err := s.anchors.GetAnchor(height)
	if err != nil {
		s.fail(w, http.StatusNotFound, err.Error())
		return
	}

	s.reply(w, http.StatusOK, AnchorJSON{Height: height, Root: root})
}

func (s *Server) fail(w http.ResponseWriter, status int, msg string) {
	s.logger.Warn().Int("status", status).Msg(msg)

	s.reply(w, status, ErrorJSON{Error: msg})
}

func (s *Server) reply(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(body)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to write response")
	}
}
