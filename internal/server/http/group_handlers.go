package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid/v5"

	"github.com/mbastos/filegate/internal/repository"
	"github.com/mbastos/filegate/internal/seclog"
)

type groupRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

func (s *Server) listGroups(c *gin.Context) {
	groups, err := s.groups.List(c.Request.Context(), actor(c))
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

func (s *Server) createGroup(c *gin.Context) {
	var req groupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	g, err := s.groups.Create(c.Request.Context(), actor(c), req.Name, req.Description)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, g)
}

func (s *Server) updateGroup(c *gin.Context) {
	id, err := uuid.FromString(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	var req groupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	if err := s.groups.Update(c.Request.Context(), actor(c), id, req.Name, req.Description); err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "updated"})
}

func (s *Server) deleteGroup(c *gin.Context) {
	id, err := uuid.FromString(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	if err := s.groups.Delete(c.Request.Context(), actor(c), id); err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

func (s *Server) groupMembers(c *gin.Context) {
	id, err := uuid.FromString(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	members, err := s.groups.Members(c.Request.Context(), actor(c), id)
	if err != nil {
		writeErr(c, err)
		return
	}
	out := make([]gin.H, 0, len(members))
	for _, m := range members {
		out = append(out, gin.H{
			"id":        m.User.ID,
			"email":     m.User.Email,
			"full_name": m.Profile.FullName,
			"role":      m.Profile.Role,
		})
	}
	c.JSON(http.StatusOK, gin.H{"members": out})
}

type membersRequest struct {
	Action  repository.MemberAction `json:"action"`
	UserIDs []uuid.UUID             `json:"user_ids"`
}

func (s *Server) updateGroupMembers(c *gin.Context) {
	id, err := uuid.FromString(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	var req membersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
		return
	}
	if req.Action == "" {
		req.Action = repository.MemberSet
	}
	a := actor(c)
	if err := s.groups.UpdateMembers(c.Request.Context(), a, id, req.UserIDs, req.Action); err != nil {
		writeErr(c, err)
		return
	}
	s.sec.Event(c.Request.Context(), seclog.EventGroupMembersSet, c.ClientIP(), &a.ID, "group="+id.String()+" action="+string(req.Action))
	c.JSON(http.StatusOK, gin.H{"message": "members updated"})
}

func (s *Server) listCategories(c *gin.Context) {
	cats, err := s.cats.List(c.Request.Context())
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": cats})
}

func (s *Server) createCategory(c *gin.Context) {
	var req groupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	cat, err := s.cats.Create(c.Request.Context(), actor(c), req.Name, req.Description)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, cat)
}

func (s *Server) deleteCategory(c *gin.Context) {
	id, err := uuid.FromString(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	if err := s.cats.Delete(c.Request.Context(), actor(c), id); err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

func (s *Server) listSubscriptions(c *gin.Context) {
	subs, err := s.cats.Subscriptions(c.Request.Context(), actor(c))
	if err != nil {
		writeErr(c, err)
		return
	}
	if subs == nil {
		subs = []uuid.UUID{}
	}
	c.JSON(http.StatusOK, gin.H{"subscriptions": subs})
}

func (s *Server) subscribe(c *gin.Context) {
	id, err := uuid.FromString(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	if err := s.cats.Subscribe(c.Request.Context(), actor(c), id); err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "subscribed"})
}

func (s *Server) unsubscribe(c *gin.Context) {
	id, err := uuid.FromString(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	if err := s.cats.Unsubscribe(c.Request.Context(), actor(c), id); err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "unsubscribed"})
}
