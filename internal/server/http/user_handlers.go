package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid/v5"

	"github.com/mbastos/filegate/internal/model"
	"github.com/mbastos/filegate/internal/service"
)

func (s *Server) listUsers(c *gin.Context) {
	accounts, err := s.users.List(c.Request.Context(), actor(c))
	if err != nil {
		writeErr(c, err)
		return
	}
	out := make([]gin.H, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, gin.H{
			"id":                    a.User.ID,
			"email":                 a.User.Email,
			"full_name":             a.Profile.FullName,
			"role":                  a.Profile.Role,
			"active":                a.Profile.Active,
			"receive_notifications": a.Profile.ReceiveNotifications,
			"created_at":            a.User.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"users": out})
}

type updateUserRequest struct {
	FullName             string     `json:"full_name" binding:"required"`
	Role                 model.Role `json:"role" binding:"required"`
	Active               bool       `json:"active"`
	ReceiveNotifications bool       `json:"receive_notifications"`
}

func (s *Server) updateUser(c *gin.Context) {
	id, err := uuid.FromString(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "full_name and role are required"})
		return
	}
	err = s.users.Update(c.Request.Context(), actor(c), id, service.ProfileUpdate{
		FullName:             req.FullName,
		Role:                 req.Role,
		Active:               req.Active,
		ReceiveNotifications: req.ReceiveNotifications,
	})
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "updated"})
}

func (s *Server) profile(c *gin.Context) {
	p, err := s.users.Profile(c.Request.Context(), actor(c))
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user_id":               p.UserID,
		"full_name":             p.FullName,
		"role":                  p.Role,
		"receive_notifications": p.ReceiveNotifications,
	})
}

type updateProfileRequest struct {
	FullName             string `json:"full_name" binding:"required"`
	ReceiveNotifications bool   `json:"receive_notifications"`
}

func (s *Server) updateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "full_name is required"})
		return
	}
	err := s.users.UpdateSelf(c.Request.Context(), actor(c), service.ProfileUpdate{
		FullName:             req.FullName,
		ReceiveNotifications: req.ReceiveNotifications,
	})
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "updated"})
}

// statsHandler returns the role-dependent dashboard payload.
func (s *Server) statsHandler(c *gin.Context) {
	a := actor(c)
	if a.Role.Privileged() {
		st, err := s.stats.AdminStats(c.Request.Context())
		if err != nil {
			writeErr(c, err)
			return
		}
		series := make([]gin.H, 0, len(st.RecentDownloads))
		for _, p := range st.RecentDownloads {
			series = append(series, gin.H{"date": p.Date.Format(dateLayout), "count": p.Count})
		}
		c.JSON(http.StatusOK, gin.H{
			"total_files":        st.TotalFiles,
			"total_downloads":    st.TotalDownloads,
			"downloads_today":    st.DownloadsToday,
			"unique_users_month": st.UniqueUsersMonth,
			"active_users":       st.ActiveUsers,
			"recent_downloads":   series,
		})
		return
	}

	st, err := s.stats.UserStats(c.Request.Context(), a)
	if err != nil {
		writeErr(c, err)
		return
	}
	recent := make([]gin.H, 0, len(st.RecentFiles))
	for _, f := range st.RecentFiles {
		recent = append(recent, gin.H{"id": f.ID, "title": f.Title, "created_at": f.CreatedAt})
	}
	c.JSON(http.StatusOK, gin.H{
		"total_files":     st.TotalFiles,
		"total_downloads": st.TotalDownloads,
		"recent_files":    recent,
	})
}
