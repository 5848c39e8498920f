package httpapi

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/mmynk/billbook/internal/apperror"
	"github.com/mmynk/billbook/internal/billing"
	"github.com/mmynk/billbook/internal/export"
	"github.com/mmynk/billbook/internal/models"
)

func (s *Server) getState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, stateResponse{State: s.engine.State()})
}

func (s *Server) addItem(w http.ResponseWriter, r *http.Request) {
	var in billing.ItemInput
	if !decode(w, r, &in) {
		return
	}
	_, err := s.engine.AddItem(r.Context(), in)
	s.writeState(w, err, nil)
}

func (s *Server) updateItem(w http.ResponseWriter, r *http.Request) {
	var in billing.ItemInput
	if !decode(w, r, &in) {
		return
	}
	_, err := s.engine.UpdateItem(r.Context(), r.PathValue("id"), in)
	s.writeState(w, err, nil)
}

func (s *Server) removeItem(w http.ResponseWriter, r *http.Request) {
	s.writeState(w, s.engine.RemoveItem(r.Context(), r.PathValue("id")), nil)
}

func (s *Server) beginEdit(w http.ResponseWriter, r *http.Request) {
	item, err := s.engine.BeginEdit(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"item": item})
}

func (s *Server) cancelEdit(w http.ResponseWriter, _ *http.Request) {
	s.engine.CancelEdit()
	s.writeState(w, nil, nil)
}

type moveRequest struct {
	TargetID  string `json:"targetId"`
	Placement string `json:"placement"`
}

func (s *Server) moveItem(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if !decode(w, r, &req) {
		return
	}
	var place billing.Placement
	switch strings.ToLower(req.Placement) {
	case "before", "":
		place = billing.Before
	case "after":
		place = billing.After
	default:
		writeError(w, apperror.NewFieldValidation(map[string]string{"placement": "oneof"}))
		return
	}
	s.writeState(w, s.engine.MoveItem(r.Context(), r.PathValue("id"), req.TargetID, place), nil)
}

func (s *Server) updateHeader(w http.ResponseWriter, r *http.Request) {
	var customer models.Customer
	if !decode(w, r, &customer) {
		return
	}
	s.writeState(w, s.engine.UpdateHeader(r.Context(), customer), nil)
}

func (s *Server) updateCompany(w http.ResponseWriter, r *http.Request) {
	var company models.Company
	if !decode(w, r, &company) {
		return
	}
	s.writeState(w, s.engine.UpdateCompany(r.Context(), company), nil)
}

type percentRequest struct {
	Percent float64 `json:"percent"`
	GSTIN   string  `json:"gstin"`
}

func (s *Server) applyDiscount(w http.ResponseWriter, r *http.Request) {
	var req percentRequest
	if !decode(w, r, &req) {
		return
	}
	s.writeState(w, s.engine.ApplyDiscount(r.Context(), req.Percent), nil)
}

func (s *Server) applyGST(w http.ResponseWriter, r *http.Request) {
	var req percentRequest
	if !decode(w, r, &req) {
		return
	}
	s.writeState(w, s.engine.ApplyGST(r.Context(), req.Percent, req.GSTIN), nil)
}

func (s *Server) undo(w http.ResponseWriter, r *http.Request) {
	changed, err := s.engine.Undo(r.Context())
	s.writeState(w, err, &changed)
}

func (s *Server) redo(w http.ResponseWriter, r *http.Request) {
	changed, err := s.engine.Redo(r.Context())
	s.writeState(w, err, &changed)
}

func (s *Server) switchMode(w http.ResponseWriter, r *http.Request) {
	_, err := s.engine.SwitchMode(r.Context())
	s.writeState(w, err, nil)
}

func (s *Server) setMode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode models.Mode `json:"mode"`
	}
	if !decode(w, r, &req) {
		return
	}
	s.writeState(w, s.engine.SetMode(r.Context(), req.Mode), nil)
}

func (s *Server) setView(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Screen models.Screen `json:"screen"`
	}
	if !decode(w, r, &req) {
		return
	}
	if _, err := s.engine.SetView(req.Screen); err != nil {
		writeError(w, err)
		return
	}
	s.writeState(w, nil, nil)
}

func (s *Server) toggleRate(w http.ResponseWriter, _ *http.Request) {
	s.engine.ToggleRateColumn()
	s.writeState(w, nil, nil)
}

func (s *Server) listArchive(w http.ResponseWriter, r *http.Request) {
	entries, err := s.engine.ArchiveEntries(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (s *Server) saveArchive(w http.ResponseWriter, r *http.Request) {
	_, saved, err := s.engine.SaveToArchive(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	s.writeState(w, nil, &saved)
}

func (s *Server) loadArchive(w http.ResponseWriter, r *http.Request) {
	s.writeState(w, s.engine.LoadFromArchive(r.Context(), r.PathValue("id")), nil)
}

func (s *Server) removeArchive(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.RemoveFromArchive(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) clearAll(w http.ResponseWriter, r *http.Request) {
	s.writeState(w, s.engine.ClearAll(r.Context()), nil)
}

func (s *Server) getTheme(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"theme": s.engine.Theme(r.Context()), "themes": billing.Themes})
}

func (s *Server) setTheme(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Theme string `json:"theme"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := s.engine.SetTheme(r.Context(), req.Theme); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"theme": req.Theme})
}

func (s *Server) cycleTheme(w http.ResponseWriter, r *http.Request) {
	theme, err := s.engine.CycleTheme(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"theme": theme})
}

// export renders the whole document before writing headers, so a failed
// export still gets a JSON error reply.
func (s *Server) export(w http.ResponseWriter, r *http.Request) {
	format := r.PathValue("format")
	exp, ok := s.exporters[format]
	if !ok {
		writeError(w, apperror.NewNotFound("export format", format))
		return
	}

	var buf bytes.Buffer
	snap, err := s.engine.Export(r.Context(), exp, &buf)
	if err != nil {
		writeError(w, fmt.Errorf("export %s: %w", format, err))
		return
	}

	name := export.Filename(snap.Bill.Customer, exp.Extension())
	w.Header().Set("Content-Type", exp.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	_, _ = buf.WriteTo(w)
}
