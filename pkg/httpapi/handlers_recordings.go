package httpapi

import (
	"net/http"

	mmerrors "github.com/otherjamesbrown/minuteman/pkg/errors"
	"github.com/otherjamesbrown/minuteman/pkg/logging"
	"github.com/otherjamesbrown/minuteman/pkg/recordings"
	"github.com/otherjamesbrown/minuteman/pkg/transcript"
)

type transcriptResponse struct {
	NotetakerID    string `json:"notetaker_id"`
	Status         string `json:"status"`
	DisplayStatus  string `json:"display_status"`
	TranscriptText string `json:"transcript_text,omitempty"`
	Message        string `json:"message,omitempty"`
}

// transcriptStatus serves the tracking status and combined transcript text for
// one session. The in-memory cache is a secondary source when the store lookup
// misses.
func (r *Router) transcriptStatus(w http.ResponseWriter, req *http.Request) {
	id := req.PathValue("id")

	rec, err := r.store.Find(req.Context(), id)
	if err == nil {
		respondJSON(w, http.StatusOK, transcriptResponse{
			NotetakerID:    rec.ID,
			Status:         string(rec.Status),
			DisplayStatus:  rec.Status.DisplayStatus(),
			TranscriptText: transcript.Combined(rec.Transcript),
			Message:        rec.Status.Message(),
		})
		return
	}

	if r.cache != nil {
		if text, ok := r.cache.Get(id); ok {
			respondJSON(w, http.StatusOK, transcriptResponse{
				NotetakerID:    id,
				Status:         string(recordings.StatusReady),
				DisplayStatus:  recordings.StatusReady.DisplayStatus(),
				TranscriptText: text,
				Message:        recordings.StatusReady.Message(),
			})
			return
		}
	}

	respondError(w, http.StatusNotFound,
		"transcription job not found, check the notetaker id")
}

// listRecordings returns every tracking record with its display status and
// combined transcript text. Served entirely from the store.
func (r *Router) listRecordings(w http.ResponseWriter, req *http.Request) {
	recs, err := r.store.List(req.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "fetching recordings: "+err.Error())
		return
	}

	list := make([]transcriptResponse, 0, len(recs))
	for _, rec := range recs {
		list = append(list, transcriptResponse{
			NotetakerID:    rec.ID,
			Status:         string(rec.Status),
			DisplayStatus:  rec.Status.DisplayStatus(),
			TranscriptText: transcript.Combined(rec.Transcript),
		})
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"total":      len(list),
		"recordings": list,
	})
}

// deleteRecording removes one tracking record and its cached transcript.
func (r *Router) deleteRecording(w http.ResponseWriter, req *http.Request) {
	id := req.PathValue("id")

	if err := r.store.Delete(req.Context(), id); err != nil {
		if mmerrors.IsNotFound(err) {
			respondError(w, http.StatusNotFound, "recording '"+id+"' not found")
			return
		}
		respondError(w, errorStatus(err), "failed to delete recording '"+id+"': "+err.Error())
		return
	}
	if r.cache != nil {
		r.cache.Delete(id)
	}

	r.logger.WithContext(req.Context()).Info("recording deleted",
		logging.F("session_id", id))

	respondJSON(w, http.StatusOK, map[string]any{
		"success":              true,
		"message":              "recording '" + id + "' deleted",
		"deleted_notetaker_id": id,
	})
}
