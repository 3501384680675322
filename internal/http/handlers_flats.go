package http

import (
	"net/http"

	"society/internal/core"
	"society/internal/ledger"
)

type FlatRequest struct {
	FlatNumber        string             `json:"flat_number" validate:"required,max=20"`
	OwnerName         string             `json:"owner_name" validate:"required,max=100"`
	PhoneNumber       string             `json:"phone_number" validate:"omitempty,max=20"`
	Floor             string             `json:"floor" validate:"omitempty,max=10"`
	FlatType          string             `json:"flat_type" validate:"omitempty,max=20"`
	MaintenanceAmount core.Money         `json:"maintenance_amount"`
	OwnershipType     core.OwnershipType `json:"ownership_type" validate:"required,oneof=Owned Rented Vacant"`
	Status            core.FlatStatus    `json:"status" validate:"omitempty,oneof=Active Inactive"`
}

func (req FlatRequest) flat(id int64) core.Flat {
	return core.Flat{
		ID:                id,
		FlatNumber:        req.FlatNumber,
		OwnerName:         req.OwnerName,
		PhoneNumber:       req.PhoneNumber,
		Floor:             req.Floor,
		FlatType:          req.FlatType,
		MaintenanceAmount: req.MaintenanceAmount,
		OwnershipType:     req.OwnershipType,
		Status:            req.Status,
	}
}

// handleListFlats lists flats in natural flat-number order, optionally
// filtered by status and ownership_type.
func (s *Server) handleListFlats(w http.ResponseWriter, r *http.Request) error {
	q := r.URL.Query()
	filter := ledger.FlatFilter{
		Status:        core.FlatStatus(q.Get("status")),
		OwnershipType: core.OwnershipType(q.Get("ownership_type")),
	}
	if filter.OwnershipType != "" && !filter.OwnershipType.Valid() {
		return core.NewValidationError("ownership_type", core.ErrInvalidOwnership.Error())
	}
	flats, err := s.svc.Ledger.ListFlats(r.Context(), filter)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, orEmpty(flats))
	return nil
}

func (s *Server) handleGetFlat(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r, "id")
	if err != nil {
		return err
	}
	flat, err := s.svc.Ledger.GetFlat(r.Context(), id)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, flat)
	return nil
}

func (s *Server) handleCreateFlat(w http.ResponseWriter, r *http.Request) error {
	var req FlatRequest
	if err := s.decodeJSON(r, &req); err != nil {
		return err
	}
	flat, err := s.svc.Ledger.CreateFlat(r.Context(), req.flat(0))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, flat)
	return nil
}

func (s *Server) handleUpdateFlat(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r, "id")
	if err != nil {
		return err
	}
	var req FlatRequest
	if err := s.decodeJSON(r, &req); err != nil {
		return err
	}
	flat, err := s.svc.Ledger.UpdateFlat(r.Context(), req.flat(id))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, flat)
	return nil
}

func (s *Server) handleDeleteFlat(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r, "id")
	if err != nil {
		return err
	}
	if err := s.svc.Ledger.DeleteFlat(r.Context(), id); err != nil {
		return err
	}
	writeMessage(w, http.StatusOK, "Flat deleted successfully")
	return nil
}

// orEmpty keeps empty lists encoded as [] instead of null.
func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
