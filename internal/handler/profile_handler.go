package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/mentorship-api/internal/dto"
	"github.com/noah-isme/mentorship-api/internal/models"
	appErrors "github.com/noah-isme/mentorship-api/pkg/errors"
	"github.com/noah-isme/mentorship-api/pkg/response"
)

const avatarFormField = "avatar"

type profileService interface {
	GetMentorProfile(ctx context.Context, userID string) (*models.MentorListing, error)
	UpdateMentorProfile(ctx context.Context, userID string, payload dto.UpdateMentorProfilePayload) (*models.MentorListing, error)
	GetMenteeProfile(ctx context.Context, userID string) (*models.MenteeListing, error)
	UpdateMenteeProfile(ctx context.Context, userID string, payload dto.UpdateMenteeProfilePayload) (*models.MenteeListing, error)
	UploadAvatar(ctx context.Context, userID string, size int64, file io.Reader) (*dto.AvatarResponse, error)
}

type capacityService interface {
	Get(ctx context.Context, mentorID string) (*models.MentorCapacity, error)
	SetAvailability(ctx context.Context, mentorID string, payload dto.AvailabilityPayload) (*models.MentorCapacity, error)
	SetMaxMentees(ctx context.Context, mentorID string, payload dto.CapacityPayload) (*models.MentorCapacity, error)
}

// ProfileHandler serves the caller's own profile, avatar and, for mentors,
// the capacity ledger.
type ProfileHandler struct {
	profiles profileService
	capacity capacityService
}

// NewProfileHandler constructs the handler.
func NewProfileHandler(profiles profileService, capacity capacityService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, capacity: capacity}
}

// GetMentor godoc
// @Summary Get my mentor profile
// @Tags Profiles
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /profile/mentor [get]
func (h *ProfileHandler) GetMentor(c *gin.Context) {
	claims, ok := principal(c)
	if !ok {
		return
	}
	profile, err := h.profiles.GetMentorProfile(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, profile)
}

// UpdateMentor godoc
// @Summary Update my mentor profile
// @Tags Profiles
// @Accept json
// @Produce json
// @Param payload body dto.UpdateMentorProfilePayload true "Profile"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /profile/mentor [put]
func (h *ProfileHandler) UpdateMentor(c *gin.Context) {
	claims, ok := principal(c)
	if !ok {
		return
	}
	var payload dto.UpdateMentorProfilePayload
	if !bindJSON(c, &payload, "invalid profile payload") {
		return
	}
	profile, err := h.profiles.UpdateMentorProfile(c.Request.Context(), claims.UserID, payload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, profile)
}

// GetMentee godoc
// @Summary Get my mentee profile
// @Tags Profiles
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /profile/mentee [get]
func (h *ProfileHandler) GetMentee(c *gin.Context) {
	claims, ok := principal(c)
	if !ok {
		return
	}
	profile, err := h.profiles.GetMenteeProfile(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, profile)
}

// UpdateMentee godoc
// @Summary Update my mentee profile
// @Tags Profiles
// @Accept json
// @Produce json
// @Param payload body dto.UpdateMenteeProfilePayload true "Profile"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /profile/mentee [put]
func (h *ProfileHandler) UpdateMentee(c *gin.Context) {
	claims, ok := principal(c)
	if !ok {
		return
	}
	var payload dto.UpdateMenteeProfilePayload
	if !bindJSON(c, &payload, "invalid profile payload") {
		return
	}
	profile, err := h.profiles.UpdateMenteeProfile(c.Request.Context(), claims.UserID, payload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, profile)
}

// UploadAvatar godoc
// @Summary Upload my avatar
// @Description Multipart upload in the "avatar" field. JPEG, PNG, WebP or GIF.
// @Tags Profiles
// @Accept multipart/form-data
// @Produce json
// @Param avatar formData file true "Image"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /profile/avatar [post]
func (h *ProfileHandler) UploadAvatar(c *gin.Context) {
	claims, ok := principal(c)
	if !ok {
		return
	}
	header, err := c.FormFile(avatarFormField)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "avatar file is required"))
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unable to read avatar"))
		return
	}
	defer file.Close()

	res, err := h.profiles.UploadAvatar(c.Request.Context(), claims.UserID, header.Size, file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res)
}

// Capacity godoc
// @Summary Get my capacity
// @Tags Capacity
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /profile/mentor/capacity [get]
func (h *ProfileHandler) Capacity(c *gin.Context) {
	claims, ok := principal(c)
	if !ok {
		return
	}
	capacity, err := h.capacity.Get(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, capacity)
}

// SetAvailability godoc
// @Summary Toggle whether I accept new requests
// @Tags Capacity
// @Accept json
// @Produce json
// @Param payload body dto.AvailabilityPayload true "Availability"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /profile/mentor/availability [put]
func (h *ProfileHandler) SetAvailability(c *gin.Context) {
	claims, ok := principal(c)
	if !ok {
		return
	}
	var payload dto.AvailabilityPayload
	if !bindJSON(c, &payload, "invalid availability payload") {
		return
	}
	capacity, err := h.capacity.SetAvailability(c.Request.Context(), claims.UserID, payload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, capacity)
}

// SetMaxMentees godoc
// @Summary Set my maximum number of mentees
// @Tags Capacity
// @Accept json
// @Produce json
// @Param payload body dto.CapacityPayload true "Capacity"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /profile/mentor/capacity [put]
func (h *ProfileHandler) SetMaxMentees(c *gin.Context) {
	claims, ok := principal(c)
	if !ok {
		return
	}
	var payload dto.CapacityPayload
	if !bindJSON(c, &payload, "invalid capacity payload") {
		return
	}
	capacity, err := h.capacity.SetMaxMentees(c.Request.Context(), claims.UserID, payload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, capacity)
}
