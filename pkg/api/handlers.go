package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

const defaultHistoryLimit = 20

// Server holds the API server state
type Server struct {
	svc     RegionService
	config  ServerConfig
	metrics *Metrics
	logger  *slog.Logger
}

// NewServer creates a new API server
func NewServer(svc RegionService, config ServerConfig, metrics *Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		svc:     svc,
		config:  config,
		metrics: metrics,
		logger:  logger,
	}
}

// handleHealth godoc
//
//	@Summary		Health check
//	@Description	Get the health status of the API and whether the region is valid
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	map[string]string
//	@Router			/health [get]
//	@Security		ApiKeyAuth
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "healthy", "region": "valid"}
	if _, err := s.svc.Inspect(); err != nil {
		status["region"] = loadResult(err)
	}
	s.metrics.RecordHealthCheck(true)
	sendSuccess(w, status)
}

// handleGetRegion godoc
//
//	@Summary		Get region
//	@Description	Load and validate the bootable region and return the header and every slot
//	@Tags			region
//	@Produce		json
//	@Success		200	{object}	RegionView
//	@Failure		422	{object}	APIResponse
//	@Security		ApiKeyAuth
//	@Router			/region [get]
func (s *Server) handleGetRegion(w http.ResponseWriter, r *http.Request) {
	d, err := s.svc.Inspect()
	if err != nil {
		sendRegionError(w, err)
		return
	}
	s.metrics.SetActiveSlot(d.Header().ActiveAppSlot)
	sendSuccess(w, NewRegionView(d))
}

// handleGetActive godoc
//
//	@Summary		Get active descriptor
//	@Description	Return the descriptor of the active slot
//	@Tags			region
//	@Produce		json
//	@Success		200	{object}	SlotView
//	@Failure		422	{object}	APIResponse
//	@Security		ApiKeyAuth
//	@Router			/region/active [get]
func (s *Server) handleGetActive(w http.ResponseWriter, r *http.Request) {
	d, err := s.svc.Inspect()
	if err != nil {
		sendRegionError(w, err)
		return
	}
	desc, err := d.ActiveDescriptor()
	if err != nil {
		sendRegionError(w, err)
		return
	}
	active := d.Header().ActiveAppSlot
	s.metrics.SetActiveSlot(active)
	sendSuccess(w, SlotView{Slot: active, Active: true, Descriptor: desc})
}

// handleGetSlot godoc
//
//	@Summary		Get slot descriptor
//	@Description	Return the descriptor stored in one slot
//	@Tags			region
//	@Produce		json
//	@Param			slot	path		int	true	"Slot index"
//	@Success		200		{object}	SlotView
//	@Failure		400		{object}	APIResponse
//	@Failure		422		{object}	APIResponse
//	@Security		ApiKeyAuth
//	@Router			/region/slots/{slot} [get]
func (s *Server) handleGetSlot(w http.ResponseWriter, r *http.Request) {
	slot, err := strconv.ParseUint(chi.URLParam(r, "slot"), 10, 32)
	if err != nil {
		sendError(w, "Slot must be a non-negative integer", http.StatusBadRequest)
		return
	}

	d, err := s.svc.Inspect()
	if err != nil {
		sendRegionError(w, err)
		return
	}
	desc, err := d.AppAtSlot(uint32(slot))
	if err != nil {
		sendRegionError(w, err)
		return
	}
	sendSuccess(w, SlotView{
		Slot:       uint32(slot),
		Active:     uint32(slot) == d.Header().ActiveAppSlot,
		Descriptor: desc,
	})
}

// handleSetActive godoc
//
//	@Summary		Switch active slot
//	@Description	Mark a slot active, snapshotting the previous region first
//	@Tags			region
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SwitchRequest	true	"Slot to activate"
//	@Success		200		{object}	RegionView
//	@Failure		400		{object}	APIResponse
//	@Failure		422		{object}	APIResponse
//	@Security		ApiKeyAuth
//	@Router			/region/active [put]
func (s *Server) handleSetActive(w http.ResponseWriter, r *http.Request) {
	var req SwitchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, "Invalid JSON in request body", http.StatusBadRequest)
		return
	}
	if req.Slot == nil {
		sendError(w, "slot is required", http.StatusBadRequest)
		return
	}

	d, err := s.svc.SwitchSlot(*req.Slot)
	if err != nil {
		s.logger.Warn("slot switch failed", "slot", *req.Slot, "error", err)
		sendRegionError(w, err)
		return
	}
	s.logger.Info("slot switched", "slot", *req.Slot)
	sendSuccess(w, NewRegionView(d))
}

// handleListHistory godoc
//
//	@Summary		List snapshots
//	@Description	List stored region snapshots, newest first
//	@Tags			history
//	@Produce		json
//	@Param			limit	query		int	false	"Maximum number of snapshots"
//	@Success		200		{array}		SnapshotView
//	@Failure		501		{object}	APIResponse
//	@Security		ApiKeyAuth
//	@Router			/history [get]
func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			sendError(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	snaps, err := s.svc.History(limit)
	if err != nil {
		sendRegionError(w, err)
		return
	}

	views := make([]SnapshotView, 0, len(snaps))
	for _, snap := range snaps {
		views = append(views, NewSnapshotView(snap))
	}
	sendSuccess(w, views)
}

// handleRestore godoc
//
//	@Summary		Restore snapshot
//	@Description	Write a stored snapshot back to flash after validating it
//	@Tags			history
//	@Produce		json
//	@Param			id	path		string	true	"Snapshot ID"
//	@Success		200	{object}	RegionView
//	@Failure		404	{object}	APIResponse
//	@Failure		422	{object}	APIResponse
//	@Security		ApiKeyAuth
//	@Router			/history/{id}/restore [post]
func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	d, err := s.svc.Restore(id)
	if err != nil {
		s.logger.Warn("restore failed", "id", id, "error", err)
		sendRegionError(w, err)
		return
	}
	s.logger.Info("snapshot restored", "id", id)
	s.metrics.SetActiveSlot(d.Header().ActiveAppSlot)
	sendSuccess(w, NewRegionView(d))
}
