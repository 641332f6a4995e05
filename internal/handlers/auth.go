package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"ctem-enterprise/internal/database"
	"ctem-enterprise/internal/logger"
	"ctem-enterprise/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

type registerRequest struct {
	Username   string `json:"username" binding:"required"`
	Password   string `json:"password" binding:"required"`
	Name       string `json:"name"`
	Department string `json:"department"`
	Role       string `json:"role"`
}

// Register creates an analyst, engineer or viewer account. Admins are only
// created by the seed.
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "username and password are required")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if len(req.Username) < 3 || len(req.Password) < 6 {
		respondError(c, http.StatusBadRequest, "username must be at least 3 and password at least 6 characters")
		return
	}

	role := models.UserRole(req.Role)
	if role == "" {
		role = models.RoleViewer
	}
	switch role {
	case models.RoleAnalyst, models.RoleEngineer, models.RoleViewer:
	default:
		respondError(c, http.StatusBadRequest, "role must be one of analyst, engineer, viewer")
		return
	}

	var count int64
	if err := h.db.Model(&models.User{}).Where("username = ?", req.Username).Count(&count).Error; err != nil {
		internalError(c, "failed to check username", err)
		return
	}
	if count > 0 {
		respondError(c, http.StatusConflict, "user already exists")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		internalError(c, "failed to hash password", err)
		return
	}
	user := models.User{
		Username:     req.Username,
		Name:         strings.TrimSpace(req.Name),
		Department:   strings.TrimSpace(req.Department),
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := h.db.Create(&user).Error; err != nil {
		internalError(c, "failed to save user", err)
		return
	}

	database.CreateAuditLog(h.db, user.ID, "user", fmt.Sprint(user.ID), "create",
		fmt.Sprintf("user %s registered with role %s", user.Username, user.Role))
	c.JSON(http.StatusCreated, user)
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "username and password are required")
		return
	}

	var user models.User
	if err := h.db.Where("username = ?", strings.TrimSpace(req.Username)).First(&user).Error; err != nil {
		respondError(c, http.StatusUnauthorized, "invalid username or password")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		respondError(c, http.StatusUnauthorized, "invalid username or password")
		return
	}

	sess := sessions.Default(c)
	sess.Set("user_id", user.ID)
	sess.Set("role", string(user.Role))
	if err := sess.Save(); err != nil {
		internalError(c, "failed to save session", err)
		return
	}

	logger.WithField("user", user.Username).Infof("login succeeded")
	c.JSON(http.StatusOK, user)
}

func (h *Handler) Logout(c *gin.Context) {
	sess := sessions.Default(c)
	sess.Clear()
	sess.Options(sessions.Options{Path: "/", MaxAge: -1})
	_ = sess.Save()
	c.JSON(http.StatusOK, gin.H{"success": true})
}
