package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	contractx "github.com/brandguard-ai/brandguard/audit/contract"
)

type AuditRequest struct {
	VideoURL string `json:"video_url"`
}

type AuditResponse struct {
	SessionID         string                      `json:"session_id"`
	VideoID           string                      `json:"video_id"`
	Status            string                      `json:"status"`
	FinalReport       string                      `json:"final_report"`
	ComplianceResults []contractx.ComplianceIssue `json:"compliance_results"`
	Errors            []string                    `json:"errors,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	var req AuditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if strings.TrimSpace(req.VideoURL) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "video_url is required"})
		return
	}

	sessionID := uuid.NewString()
	videoID := "vid_" + sessionID[:8]
	log.Info().Str("session_id", sessionID).Str("video_url", req.VideoURL).Msg("audit request received")

	st, err := s.auditor.Run(r.Context(), req.VideoURL, videoID)
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("audit workflow failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "audit workflow failed"})
		return
	}

	status := st.FinalStatus
	if status == "" {
		status = "UNKNOWN"
	}
	report := st.FinalReport
	if report == "" {
		report = "No report generated."
	}
	results := st.ComplianceResults
	if results == nil {
		results = []contractx.ComplianceIssue{}
	}

	writeJSON(w, http.StatusOK, AuditResponse{
		SessionID:         sessionID,
		VideoID:           st.VideoID,
		Status:            status,
		FinalReport:       report,
		ComplianceResults: results,
		Errors:            st.Errors,
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("could not encode response")
	}
}
