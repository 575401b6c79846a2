package profile

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/redmonkez12/viziopath-api/internal/auth"
	"github.com/redmonkez12/viziopath-api/internal/httputil"
	"github.com/redmonkez12/viziopath-api/internal/logging"
	"github.com/redmonkez12/viziopath-api/internal/storage"
)

// multipartOverhead covers the form boundaries and headers around the file.
const multipartOverhead = 1 << 20

// Handler contains HTTP handlers for profile endpoints
type Handler struct {
	service       *Service
	maxBodyBytes  int64
	maxUploadSize int64
}

func NewHandler(service *Service, maxBodyBytes, maxUploadSize int64) *Handler {
	return &Handler{
		service:       service,
		maxBodyBytes:  maxBodyBytes,
		maxUploadSize: maxUploadSize,
	}
}

// UpdateRequest carries the editable profile fields. Omitted fields are left as they are.
type UpdateRequest struct {
	Bio         *string       `json:"bio,omitempty"`
	Location    *string       `json:"location,omitempty"`
	Website     *string       `json:"website,omitempty"`
	Company     *string       `json:"company,omitempty"`
	JobTitle    *string       `json:"jobTitle,omitempty"`
	Skills      *[]string     `json:"skills,omitempty"`
	Education   *[]Education  `json:"education,omitempty"`
	Experience  *[]Experience `json:"experience,omitempty"`
	Social      *Social       `json:"social,omitempty"`
	Preferences *Preferences  `json:"preferences,omitempty"`
}

type AvatarRequest struct {
	Avatar string `json:"avatar"`
}

// ProfileResponse wraps a single profile
type ProfileResponse struct {
	Profile *Profile `json:"profile"`
}

type SuggestionsResponse struct {
	Suggestions []*Profile `json:"suggestions"`
}

var serviceErrors = []httputil.ErrorMapping{
	{Err: ErrNotFound, Status: http.StatusNotFound, Message: "Profile not found"},
	{Err: ErrPrivate, Status: http.StatusForbidden, Message: "Profile is private"},
	{Err: storage.ErrFileTooLarge, Status: http.StatusRequestEntityTooLarge, Message: "File too large"},
	{Err: storage.ErrUnsupportedType, Status: http.StatusBadRequest, Message: "Invalid file type. Only JPEG, PNG, GIF and WebP are allowed"},
	{Err: storage.ErrEmptyFile, Status: http.StatusBadRequest, Message: "Uploaded file is empty"},
	{Err: auth.ErrUnauthorized, Status: http.StatusUnauthorized, Message: "Not authenticated"},
}

// Mine returns the caller's profile
// @Summary      Get my profile
// @Description  Returns the caller's profile, creating an empty one on first access.
// @Tags         profile
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} httputil.Response{data=ProfileResponse}
// @Failure      401 {object} httputil.Response
// @Router       /api/profile/me [get]
func (h *Handler) Mine(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.MustUserID(r.Context())
	if err != nil {
		h.respondError(w, r, err, "get profile")
		return
	}

	p, created, err := h.service.Mine(r.Context(), userID)
	if err != nil {
		h.respondError(w, r, err, "get profile")
		return
	}

	message := "Profile retrieved successfully"
	if created {
		message = "Profile created and retrieved successfully"
	}
	httputil.Respond(w, http.StatusOK, ProfileResponse{Profile: p}, message)
}

// Get returns another account's profile
// @Summary      Get a profile by user id
// @Tags         profile
// @Produce      json
// @Security     BearerAuth
// @Param        userId path string true "Owner account id"
// @Success      200 {object} httputil.Response{data=ProfileResponse}
// @Failure      400 {object} httputil.Response
// @Failure      403 {object} httputil.Response "Profile is private"
// @Failure      404 {object} httputil.Response
// @Router       /api/profile/{userId} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	viewerID, err := auth.MustUserID(r.Context())
	if err != nil {
		h.respondError(w, r, err, "view profile")
		return
	}

	ownerID, err := uuid.Parse(chi.URLParam(r, "userId"))
	if err != nil {
		h.respondError(w, r, ErrInvalidUserID, "view profile")
		return
	}

	p, err := h.service.View(r.Context(), viewerID, ownerID)
	if err != nil {
		h.respondError(w, r, err, "view profile")
		return
	}

	httputil.Respond(w, http.StatusOK, ProfileResponse{Profile: p}, "Profile retrieved successfully")
}

// Update handles partial profile updates
// @Summary      Update my profile
// @Tags         profile
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body UpdateRequest true "Fields to change"
// @Success      200 {object} httputil.Response{data=ProfileResponse}
// @Failure      400 {object} httputil.Response
// @Router       /api/profile [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.MustUserID(r.Context())
	if err != nil {
		h.respondError(w, r, err, "update profile")
		return
	}

	var req UpdateRequest
	if !h.decode(w, r, &req) {
		return
	}

	p, err := h.service.Update(r.Context(), userID, Update{
		Bio:         req.Bio,
		Location:    req.Location,
		Website:     req.Website,
		Company:     req.Company,
		JobTitle:    req.JobTitle,
		Skills:      req.Skills,
		Education:   req.Education,
		Experience:  req.Experience,
		Social:      req.Social,
		Preferences: req.Preferences,
	})
	if err != nil {
		h.respondError(w, r, err, "update profile")
		return
	}

	httputil.Respond(w, http.StatusOK, ProfileResponse{Profile: p}, "Profile updated successfully")
}

// SetAvatar points the avatar at an existing image URL
// @Summary      Set avatar URL
// @Tags         profile
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body AvatarRequest true "Image URL"
// @Success      200 {object} httputil.Response{data=ProfileResponse}
// @Failure      400 {object} httputil.Response
// @Router       /api/profile/avatar [put]
func (h *Handler) SetAvatar(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.MustUserID(r.Context())
	if err != nil {
		h.respondError(w, r, err, "set avatar")
		return
	}

	var req AvatarRequest
	if !h.decode(w, r, &req) {
		return
	}

	p, err := h.service.SetAvatar(r.Context(), userID, req.Avatar)
	if err != nil {
		h.respondError(w, r, err, "set avatar")
		return
	}

	httputil.Respond(w, http.StatusOK, ProfileResponse{Profile: p}, "Avatar updated successfully")
}

// UploadAvatar stores an uploaded image as the avatar
// @Summary      Upload avatar
// @Description  Multipart upload in the "file" field. JPEG, PNG, GIF or WebP up to 5MB.
// @Tags         profile
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        file formData file true "Avatar image"
// @Success      200 {object} httputil.Response{data=ProfileResponse}
// @Failure      400 {object} httputil.Response
// @Failure      413 {object} httputil.Response
// @Router       /api/profile/avatar/upload [post]
func (h *Handler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.MustUserID(r.Context())
	if err != nil {
		h.respondError(w, r, err, "upload avatar")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+multipartOverhead)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			h.respondError(w, r, storage.ErrFileTooLarge, "upload avatar")
		case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
			h.respondError(w, r, ErrFileRequired, "upload avatar")
		default:
			h.respondError(w, r, &ValidationError{"Invalid multipart form"}, "upload avatar")
		}
		return
	}
	defer file.Close()

	p, err := h.service.UploadAvatar(r.Context(), userID, file, header.Size)
	if err != nil {
		h.respondError(w, r, err, "upload avatar")
		return
	}

	httputil.Respond(w, http.StatusOK, ProfileResponse{Profile: p}, "Avatar updated successfully")
}

// Search lists public profiles
// @Summary      Search profiles
// @Tags         profile
// @Produce      json
// @Security     BearerAuth
// @Param        q        query string false "Matches name, bio, company or job title"
// @Param        skills   query string false "Comma separated skills"
// @Param        location query string false "Location substring"
// @Param        company  query string false "Company substring"
// @Param        page     query int    false "Page number" default(1)
// @Param        limit    query int    false "Page size" default(10)
// @Success      200 {object} httputil.Response{data=SearchResult}
// @Router       /api/profile/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	result, err := h.service.Search(r.Context(), SearchQuery{
		Text:     query.Get("q"),
		Skills:   query["skills"],
		Location: query.Get("location"),
		Company:  query.Get("company"),
		Page:     intParam(query.Get("page")),
		Limit:    intParam(query.Get("limit")),
	})
	if err != nil {
		h.respondError(w, r, err, "search profiles")
		return
	}

	httputil.Respond(w, http.StatusOK, result, "Profiles retrieved successfully")
}

// Suggestions lists profiles similar to the caller's
// @Summary      Profile suggestions
// @Tags         profile
// @Produce      json
// @Security     BearerAuth
// @Param        limit query int false "Maximum results" default(5)
// @Success      200 {object} httputil.Response{data=SuggestionsResponse}
// @Router       /api/profile/suggestions [get]
func (h *Handler) Suggestions(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.MustUserID(r.Context())
	if err != nil {
		h.respondError(w, r, err, "suggest profiles")
		return
	}

	profiles, err := h.service.Suggestions(r.Context(), userID, intParam(r.URL.Query().Get("limit")))
	if err != nil {
		h.respondError(w, r, err, "suggest profiles")
		return
	}

	httputil.Respond(w, http.StatusOK, SuggestionsResponse{Suggestions: profiles}, "Profile suggestions retrieved successfully")
}

// Delete removes the caller's profile
// @Summary      Delete my profile
// @Tags         profile
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} httputil.Response
// @Router       /api/profile [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.MustUserID(r.Context())
	if err != nil {
		h.respondError(w, r, err, "delete profile")
		return
	}

	if err := h.service.Delete(r.Context(), userID); err != nil {
		h.respondError(w, r, err, "delete profile")
		return
	}

	httputil.Respond(w, http.StatusOK, nil, "Profile deleted successfully")
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httputil.DecodeJSON(w, r, h.maxBodyBytes, dst); err != nil {
		m, _ := httputil.MatchError(err, httputil.RequestErrors)
		logging.GetLoggerFromContext(r.Context()).Warn("invalid request body", "error", err)
		httputil.RespondError(w, m.Message, m.Status)
		return false
	}
	return true
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error, op string) {
	logger := logging.GetLoggerFromContext(r.Context())

	var validation *ValidationError
	if errors.As(err, &validation) {
		logger.Warn(op+" rejected", "error", validation.Message)
		httputil.RespondError(w, validation.Message, http.StatusBadRequest)
		return
	}

	if m, ok := httputil.MatchError(err, serviceErrors); ok {
		logger.Warn(op+" failed", "error", err.Error(), "status", m.Status)
		httputil.RespondError(w, m.Message, m.Status)
		return
	}

	logger.Error(op+" failed: internal error", "error", err.Error())
	httputil.RespondError(w, "Internal server error", http.StatusInternalServerError)
}

// intParam reads an optional numeric query value. Anything unparsable is 0,
// which the service replaces with its default.
func intParam(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
