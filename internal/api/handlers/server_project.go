package handlers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"projectpulse.io/pulse/internal/domain"
	"projectpulse.io/pulse/internal/export"
	apperrors "projectpulse.io/pulse/internal/pkg/errors"
	"projectpulse.io/pulse/internal/pkg/logger"
	"projectpulse.io/pulse/internal/service"
)

// ExtensionRequestInput is the POST /projects/{id}/extension-requests payload.
type ExtensionRequestInput struct {
	Reason string `json:"reason"`
}

func projectQuery(c *gin.Context) service.ProjectQuery {
	return service.ProjectQuery{
		Search:     c.Query("search"),
		Department: c.Query("department"),
		Priority:   c.Query("priority"),
		Status:     c.Query("status"),
	}
}

// ListProjects handles GET /projects.
func (s *Server) ListProjects(c *gin.Context) {
	projects, err := s.projects.List(c.Request.Context(), actorFromCtx(c), projectQuery(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, projects)
}

// CreateProject handles POST /projects.
func (s *Server) CreateProject(c *gin.Context) {
	var in service.ProjectInput
	if err := c.ShouldBindJSON(&in); err != nil {
		_ = c.Error(apperrors.BadRequest(apperrors.CodeInvalidRequest, "request body is not a valid project"))
		return
	}
	p, err := s.projects.Create(c.Request.Context(), actorFromCtx(c), in)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// GetProject handles GET /projects/{id}.
func (s *Server) GetProject(c *gin.Context) {
	p, err := s.projects.Get(c.Request.Context(), actorFromCtx(c), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// UpdateProject handles PATCH /projects/{id}.
func (s *Server) UpdateProject(c *gin.Context) {
	var in service.ProjectUpdate
	if err := c.ShouldBindJSON(&in); err != nil {
		_ = c.Error(apperrors.BadRequest(apperrors.CodeInvalidRequest, "request body is not a valid project update"))
		return
	}
	p, err := s.projects.Update(c.Request.Context(), actorFromCtx(c), c.Param("id"), in)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// DeleteProject handles DELETE /projects/{id}.
func (s *Server) DeleteProject(c *gin.Context) {
	if err := s.projects.Delete(c.Request.Context(), actorFromCtx(c), c.Param("id")); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RequestExtension handles POST /projects/{id}/extension-requests.
func (s *Server) RequestExtension(c *gin.Context) {
	var in ExtensionRequestInput
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&in); err != nil {
			_ = c.Error(apperrors.BadRequest(apperrors.CodeInvalidRequest, "request body is not valid JSON"))
			return
		}
	}
	n, err := s.notifications.RequestExtension(c.Request.Context(), actorFromCtx(c), c.Param("id"), in.Reason)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, n)
}

// ExportProjects handles GET /projects/export. The file holds the same
// projects GET /projects returns for the same filters.
func (s *Server) ExportProjects(c *gin.Context) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		_ = c.Error(apperrors.FromCode(apperrors.CodeUnsupportedMedia, err.Error()).
			WithParams(map[string]any{"format": c.Query("format")}))
		return
	}

	ctx := c.Request.Context()
	actor := actorFromCtx(c)
	projects, err := s.projects.List(ctx, actor, projectQuery(c))
	if err != nil {
		_ = c.Error(err)
		return
	}

	body, err := s.render(ctx, format, projects)
	if err != nil {
		logger.Error("Export failed",
			zap.String("format", string(format)),
			zap.Int("projects", len(projects)),
			zap.Error(err),
		)
		_ = c.Error(err)
		return
	}

	if s.audit != nil {
		if err := s.audit.LogAction(ctx, "project.exported", "project", "", actor.Label(),
			map[string]any{"format": string(format), "count": len(projects)}); err != nil {
			logger.Warn("audit log write failed", zap.Error(err), zap.String("action", "project.exported"))
		}
	}

	filename := format.Filename("projects", s.now())
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, format.ContentType(), body)
}

// render builds the export file on the general pool, or inline when no
// pools are configured.
func (s *Server) render(ctx context.Context, format export.Format, projects []domain.Project) ([]byte, error) {
	var buf bytes.Buffer
	write := func(context.Context) error {
		return export.Write(&buf, format, projects)
	}
	if s.pools == nil {
		if err := write(ctx); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	if err := s.pools.General.Run(ctx, write); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
