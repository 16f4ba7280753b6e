package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tawk-service/internal/logger"
	"tawk-service/internal/repositories"
)

// UserHandler serves profile and social-graph queries for the logged-in user.
type UserHandler struct {
	users   repositories.UserRepository
	friends repositories.FriendRepository
	log     *logger.Logger
}

// NewUserHandler builds a UserHandler.
func NewUserHandler(users repositories.UserRepository, friends repositories.FriendRepository, log *logger.Logger) *UserHandler {
	return &UserHandler{users: users, friends: friends, log: log}
}

// UpdateMe patches the caller's display fields.
func (h *UserHandler) UpdateMe(c *gin.Context) {
	var req struct {
		FirstName string `json:"first_name" binding:"required"`
		LastName  string `json:"last_name" binding:"required"`
		Avatar    string `json:"avatar"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	user, err := h.users.UpdateProfile(c.Request.Context(), c.GetInt("userID"), req.FirstName, req.LastName, req.Avatar)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "could not update profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Profile updated successfully",
		"data": gin.H{
			"user_id":    user.ID,
			"first_name": user.FirstName,
			"last_name":  user.LastName,
			"avatar":     user.Avatar,
			"email":      user.Email,
		},
	})
}

// GetOthers lists verified users the caller is not yet friends with.
func (h *UserHandler) GetOthers(c *gin.Context) {
	users, err := h.users.ListOthers(c.Request.Context(), c.GetInt("userID"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "could not list users"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Users found successfully!",
		"data":    gin.H{"users": users},
	})
}

// GetFriends lists the caller's friends.
func (h *UserHandler) GetFriends(c *gin.Context) {
	friends, err := h.friends.ListFriends(c.Request.Context(), c.GetInt("userID"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "could not list friends"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Friends found successfully!",
		"data":    gin.H{"friends": friends},
	})
}

// GetRequests lists pending friend requests addressed to the caller.
func (h *UserHandler) GetRequests(c *gin.Context) {
	requests, err := h.friends.ListRequestsForRecipient(c.Request.Context(), c.GetInt("userID"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "could not list requests"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Friend requests found successfully!",
		"data":    gin.H{"requests": requests},
	})
}
