package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/kozaktomas/attendease/internal/database"
	"github.com/kozaktomas/attendease/internal/facematch"
	"github.com/kozaktomas/attendease/internal/roster"
)

// maxRosterUpload caps roster CSV uploads at 4 MB.
const maxRosterUpload = 4 << 20

// UsersHandler manages user records.
type UsersHandler struct {
	users database.UserStore
}

// NewUsersHandler creates a users handler.
func NewUsersHandler(users database.UserStore) *UsersHandler {
	return &UsersHandler{users: users}
}

type userView struct {
	ID             int64  `json:"id"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	EnrollmentNo   string `json:"enrollment_no"`
	UserType       string `json:"user_type"`
	Approved       bool   `json:"approved"`
	HasFaceData    bool   `json:"has_face_data"`
	FaceImageCount int    `json:"face_image_count"`
}

func toUserView(u *database.User) userView {
	return userView{
		ID:             u.ID,
		Username:       u.Username,
		Email:          u.Email,
		EnrollmentNo:   u.EnrollmentNo,
		UserType:       u.UserType,
		Approved:       u.Approved,
		HasFaceData:    u.HasFaceData,
		FaceImageCount: u.FaceImageCount,
	}
}

// List returns all users.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	views := make([]userView, 0, len(users))
	for i := range users {
		views = append(views, toUserView(&users[i]))
	}
	respondJSON(w, http.StatusOK, map[string]any{"users": views, "count": len(views)})
}

// Get returns one user.
func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	user, err := h.users.GetByID(r.Context(), userID)
	if errors.Is(err, database.ErrNotFound) {
		respondError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load user")
		return
	}
	respondJSON(w, http.StatusOK, toUserView(user))
}

// CreateUserRequest registers a single user by hand.
type CreateUserRequest struct {
	Username     string `json:"username"`
	Email        string `json:"email"`
	EnrollmentNo string `json:"enrollment_no"`
	UserType     string `json:"user_type"`
}

// Create registers one user. New users start unapproved.
func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	username := facematch.NormalizeUsername(req.Username)
	if username == "" {
		respondError(w, http.StatusBadRequest, "username is required")
		return
	}
	userType := req.UserType
	if userType != "faculty" {
		userType = "student"
	}

	user := &database.User{
		Username:     username,
		Email:        req.Email,
		EnrollmentNo: req.EnrollmentNo,
		UserType:     userType,
	}
	if err := h.users.Create(r.Context(), user); err != nil {
		log.Printf("creating user %s: %v", sanitizeForLog(username), err)
		respondError(w, http.StatusInternalServerError, "failed to create user")
		return
	}
	respondJSON(w, http.StatusCreated, toUserView(user))
}

// Approve flips a user's approval flag.
func (h *UsersHandler) Approve(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req struct {
		Approved *bool `json:"approved"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	approved := true
	if req.Approved != nil {
		approved = *req.Approved
	}

	if err := h.users.SetApproved(r.Context(), userID, approved); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusNotFound, "user not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to update approval")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"id": userID, "approved": approved})
}

// Import ingests a roster CSV uploaded as multipart form data.
func (h *UsersHandler) Import(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxRosterUpload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, _, err := r.FormFile("roster")
	if err != nil {
		respondError(w, http.StatusBadRequest, "roster file is required")
		return
	}
	defer file.Close()

	entries, skipped, err := roster.ParseRoster(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := roster.Import(r.Context(), h.users, entries)
	if err != nil {
		log.Printf("importing roster: %v", err)
		respondError(w, http.StatusInternalServerError, "roster import failed")
		return
	}
	result.Skipped = skipped
	respondJSON(w, http.StatusOK, result)
}
