package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/attendease/internal/database"
	"github.com/kozaktomas/attendease/internal/embedding"
	"github.com/kozaktomas/attendease/internal/facematch"
)

// EnrollRequest carries one face image to register for a user.
type EnrollRequest struct {
	Image    string `json:"image"`
	ImageRef string `json:"image_ref"`
}

// EnrollResponse reports the stored embedding.
type EnrollResponse struct {
	UserID     int64  `json:"user_id"`
	ImageRef   string `json:"image_ref"`
	Dim        int    `json:"dim"`
	Model      string `json:"model"`
	ImageCount int    `json:"image_count"`
}

// FacesHandler manages enrolled face embeddings.
type FacesHandler struct {
	users      database.UserStore
	embeddings database.EmbeddingStore
	extractor  FaceExtractor
	index      *facematch.CandidateIndex
}

// NewFacesHandler creates a faces handler. index may be nil.
func NewFacesHandler(users database.UserStore, embeddings database.EmbeddingStore, extractor FaceExtractor, index *facematch.CandidateIndex) *FacesHandler {
	return &FacesHandler{
		users:      users,
		embeddings: embeddings,
		extractor:  extractor,
		index:      index,
	}
}

func userIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

// Enroll extracts a face from the uploaded image and stores its embedding.
func (h *FacesHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req EnrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.Image == "" {
		respondError(w, http.StatusBadRequest, "image is required")
		return
	}

	ctx := r.Context()
	user, err := h.users.GetByID(ctx, userID)
	if errors.Is(err, database.ErrNotFound) {
		respondError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load user")
		return
	}

	imageData, err := embedding.DecodeDataURL(req.Image)
	if err != nil {
		respondError(w, http.StatusBadRequest, "could not decode image")
		return
	}

	result, err := h.extractor.ExtractFace(ctx, imageData)
	switch {
	case errors.Is(err, embedding.ErrNoFaceDetected):
		respondError(w, http.StatusUnprocessableEntity, "no face detected in image")
		return
	case errors.Is(err, embedding.ErrTimeout):
		respondError(w, http.StatusGatewayTimeout, "embedding service timed out")
		return
	case err != nil:
		respondError(w, http.StatusBadGateway, "embedding service failed")
		return
	}

	imageRef := req.ImageRef
	if imageRef == "" {
		imageRef = fmt.Sprintf("upload-%d", time.Now().UnixNano())
	}

	emb := &database.StoredEmbedding{
		UserID:    user.ID,
		ImageRef:  imageRef,
		Embedding: result.Embedding,
		Model:     result.Model,
		Dim:       result.Dim,
	}
	if err := h.embeddings.Add(ctx, emb); err != nil {
		if errors.Is(err, database.ErrInvalidVector) {
			respondError(w, http.StatusUnprocessableEntity, "embedding has the wrong dimension")
			return
		}
		log.Printf("storing embedding for user %d: %v", user.ID, err)
		respondError(w, http.StatusInternalServerError, "failed to store embedding")
		return
	}
	if h.index != nil {
		h.index.Add(emb)
	}

	stored, err := h.embeddings.AllForUser(ctx, user.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to count embeddings")
		return
	}
	if err := h.users.SetFaceData(ctx, user.ID, true, len(stored)); err != nil {
		log.Printf("updating face data for user %d: %v", user.ID, err)
	}

	respondJSON(w, http.StatusCreated, EnrollResponse{
		UserID:     user.ID,
		ImageRef:   imageRef,
		Dim:        emb.Dim,
		Model:      emb.Model,
		ImageCount: len(stored),
	})
}

// List returns metadata for a user's stored embeddings, never the vectors.
func (h *FacesHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	stored, err := h.embeddings.AllForUser(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load embeddings")
		return
	}

	type faceMeta struct {
		ImageRef  string    `json:"image_ref"`
		Model     string    `json:"model"`
		Dim       int       `json:"dim"`
		CreatedAt time.Time `json:"created_at"`
	}
	metas := make([]faceMeta, 0, len(stored))
	for _, e := range stored {
		metas = append(metas, faceMeta{
			ImageRef:  e.ImageRef,
			Model:     e.Model,
			Dim:       e.Dim,
			CreatedAt: e.CreatedAt,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"user_id": userID,
		"count":   len(metas),
		"faces":   metas,
	})
}

// Reset removes all face data for a user.
func (h *FacesHandler) Reset(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	ctx := r.Context()
	removed, err := h.embeddings.Clear(ctx, userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to clear embeddings")
		return
	}
	if err := h.users.SetFaceData(ctx, userID, false, 0); err != nil {
		log.Printf("updating face data for user %d: %v", userID, err)
	}
	if h.index != nil {
		// the index cannot drop single vectors, rebuild it
		all, err := h.embeddings.All(ctx)
		if err != nil {
			log.Printf("rebuilding candidate index: %v", err)
		} else {
			h.index.Build(all)
		}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"user_id": userID,
		"removed": removed,
	})
}
