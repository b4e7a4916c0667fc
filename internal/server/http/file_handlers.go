package httpserver

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/mbastos/filegate/internal/model"
	"github.com/mbastos/filegate/internal/seclog"
	"github.com/mbastos/filegate/internal/service"
)

const dateLayout = "2006-01-02"

// fileView is the JSON shape of one file in listings and responses.
type fileView struct {
	ID          uuid.UUID        `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	FileURL     string           `json:"file_url"`
	FileType    string           `json:"file_type"`
	FileSize    int64            `json:"file_size"`
	UploadedBy  uuid.UUID        `json:"uploaded_by"`
	StartDate   *string          `json:"start_date"`
	EndDate     *string          `json:"end_date"`
	IsPermanent bool             `json:"is_permanent"`
	Status      model.FileStatus `json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
}

func toFileView(f *model.File) fileView {
	v := fileView{
		ID:          f.ID,
		Title:       f.Title,
		Description: f.Description,
		FileURL:     f.FileURL,
		FileType:    f.FileType,
		FileSize:    f.FileSize,
		UploadedBy:  f.UploadedBy,
		IsPermanent: f.IsPermanent,
		Status:      f.Status,
		CreatedAt:   f.CreatedAt,
	}
	if f.StartDate != nil {
		s := f.StartDate.Format(dateLayout)
		v.StartDate = &s
	}
	if f.EndDate != nil {
		s := f.EndDate.Format(dateLayout)
		v.EndDate = &s
	}
	return v
}

func (s *Server) listFiles(c *gin.Context) {
	files, err := s.files.List(c.Request.Context(), actor(c))
	if err != nil {
		writeErr(c, err)
		return
	}
	out := make([]fileView, 0, len(files))
	for _, f := range files {
		out = append(out, toFileView(f))
	}
	c.JSON(http.StatusOK, gin.H{"files": out})
}

func parseFormDate(c *gin.Context, field string) (*time.Time, error) {
	raw := c.PostForm(field)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be YYYY-MM-DD", field)
	}
	return &t, nil
}

func (s *Server) uploadFile(c *gin.Context) {
	a := actor(c)

	fh, err := c.FormFile("file")
	if err != nil {
		s.sec.Event(c.Request.Context(), seclog.EventInvalidFileUpload, c.ClientIP(), &a.ID, "missing file part")
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	start, err := parseFormDate(c, "start_date")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	end, err := parseFormDate(c, "end_date")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	isPermanent, _ := strconv.ParseBool(c.DefaultPostForm("is_permanent", "false"))

	var grants []model.GrantInput
	if raw := c.PostForm("permissions"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &grants); err != nil {
			s.sec.Event(c.Request.Context(), seclog.EventInvalidFileUpload, c.ClientIP(), &a.ID, "malformed permissions")
			c.JSON(http.StatusBadRequest, gin.H{"error": "permissions must be a JSON array"})
			return
		}
	}

	src, err := fh.Open()
	if err != nil {
		writeErr(c, err)
		return
	}
	defer src.Close()

	f, err := s.files.Upload(c.Request.Context(), a, service.UploadInput{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		StartDate:   start,
		EndDate:     end,
		IsPermanent: isPermanent,
		Permissions: grants,
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Content:     src,
	})
	if err != nil {
		writeErr(c, err)
		return
	}

	s.sec.Event(c.Request.Context(), seclog.EventFileUploaded, c.ClientIP(), &a.ID, "file="+f.ID.String())
	c.JSON(http.StatusCreated, toFileView(f))
}

type updateFileRequest struct {
	Title       string             `json:"title"`
	Description string             `json:"description"`
	StartDate   *string            `json:"start_date"`
	EndDate     *string            `json:"end_date"`
	IsPermanent bool               `json:"is_permanent"`
	Status      model.FileStatus   `json:"status"`
	Permissions []model.GrantInput `json:"permissions"`
}

func parseJSONDate(raw *string, field string) (*time.Time, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, *raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be YYYY-MM-DD", field)
	}
	return &t, nil
}

func (s *Server) updateFile(c *gin.Context) {
	id, err := uuid.FromString(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	var req updateFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
		return
	}
	start, err := parseJSONDate(req.StartDate, "start_date")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	end, err := parseJSONDate(req.EndDate, "end_date")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	a := actor(c)
	err = s.files.Update(c.Request.Context(), a, id, service.UpdateInput{
		Title:       req.Title,
		Description: req.Description,
		StartDate:   start,
		EndDate:     end,
		IsPermanent: req.IsPermanent,
		Status:      req.Status,
		Permissions: req.Permissions,
	})
	if err != nil {
		writeErr(c, err)
		return
	}
	if req.Permissions != nil {
		s.sec.Event(c.Request.Context(), seclog.EventPermissionsChanged, c.ClientIP(), &a.ID, "file="+id.String())
	}
	c.JSON(http.StatusOK, gin.H{"message": "updated"})
}

func (s *Server) deleteFile(c *gin.Context) {
	id, err := uuid.FromString(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	a := actor(c)
	if err := s.files.Delete(c.Request.Context(), a, id); err != nil {
		writeErr(c, err)
		return
	}
	s.sec.Event(c.Request.Context(), seclog.EventFileDeleted, c.ClientIP(), &a.ID, "file="+id.String())
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

func (s *Server) downloadFile(c *gin.Context) {
	id, err := uuid.FromString(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	f, rc, err := s.files.Download(c.Request.Context(), actor(c), id)
	if err != nil {
		writeErr(c, err)
		return
	}
	defer rc.Close()

	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": f.Title}))
	c.Header("Content-Type", f.FileType)
	if f.FileSize > 0 {
		c.Header("Content-Length", strconv.FormatInt(f.FileSize, 10))
	}
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, rc); err != nil {
		s.log.Warn("download stream aborted", zap.String("file", f.ID.String()), zap.Error(err))
	}
}

func (s *Server) filePermissions(c *gin.Context) {
	id, err := uuid.FromString(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	grants, err := s.files.Permissions(c.Request.Context(), actor(c), id)
	if err != nil {
		writeErr(c, err)
		return
	}
	out := make([]model.GrantInput, 0, len(grants))
	for _, g := range grants {
		var in model.GrantInput
		target := g.TargetID
		switch g.Kind {
		case model.GrantUser:
			in.UserID = &target
		case model.GrantGroup:
			in.GroupID = &target
		case model.GrantCategory:
			in.CategoryID = &target
		}
		out = append(out, in)
	}
	c.JSON(http.StatusOK, gin.H{"permissions": out})
}
