// Package registrytest runs a fake registry HTTP server backed by the
// in-memory registry, for exercising the HTTP client in tests.
package registrytest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/stagegate/stagegate/internal/registry"
	"github.com/stagegate/stagegate/pkg/model"
)

// Server is a fake workspace registry. Backing state is exposed so tests can
// seed and inspect it directly.
type Server struct {
	Backing *registry.Memory
	HTTP    *httptest.Server
}

// New starts a fake registry server around the given memory registry.
// Callers must Close it.
func New(backing *registry.Memory) *Server {
	e := echo.New()
	e.HideBanner = true
	s := &Server{Backing: backing}

	g := e.Group("/api/v1")
	g.GET("/models/:model/versions", s.listVersions)
	g.POST("/models/:model/versions", s.createVersion)
	g.GET("/models/:model/versions/:ref", s.getVersion)
	g.POST("/models/:model/versions/:version/stage", s.setStage)
	g.POST("/models/:model/versions/:version/metadata", s.logMetadata)
	g.GET("/models/:model/versions/:version/artifacts/:name", s.getArtifact)
	g.PUT("/models/:model/versions/:version/artifacts/:name", s.putArtifact)

	s.HTTP = httptest.NewServer(e)
	return s
}

// Close shuts the fake server down.
func (s *Server) Close() { s.HTTP.Close() }

// URL returns the server base URL.
func (s *Server) URL() string { return s.HTTP.URL }

func httpStatus(err error) int {
	switch {
	case errors.Is(err, registry.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, registry.ErrStageOccupied):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func parseRef(raw string) registry.VersionRef {
	if n, err := strconv.Atoi(raw); err == nil {
		return registry.ByNumber(n)
	}
	stage, err := model.ParseStage(raw)
	if err != nil {
		return registry.Latest()
	}
	return registry.ByStage(stage)
}

func (s *Server) getVersion(c echo.Context) error {
	mv, err := s.Backing.GetModelVersion(
		c.Request().Context(), c.Param("model"), parseRef(c.Param("ref")))
	if err != nil {
		return c.String(httpStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, mv)
}

func (s *Server) listVersions(c echo.Context) error {
	versions, err := s.Backing.ListModelVersions(c.Request().Context(), c.Param("model"))
	if err != nil {
		return c.String(httpStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, versions)
}

func (s *Server) createVersion(c echo.Context) error {
	var seed registry.VersionSeed
	if err := c.Bind(&seed); err != nil {
		return c.String(http.StatusBadRequest, err.Error())
	}
	mv, err := s.Backing.CreateModelVersion(c.Request().Context(), c.Param("model"), seed)
	if err != nil {
		return c.String(httpStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, mv)
}

func (s *Server) setStage(c echo.Context) error {
	version, err := strconv.Atoi(c.Param("version"))
	if err != nil {
		return c.String(http.StatusBadRequest, "invalid version number")
	}
	var req struct {
		Stage model.Stage `json:"stage"`
		Force bool        `json:"force"`
	}
	if err := c.Bind(&req); err != nil {
		return c.String(http.StatusBadRequest, err.Error())
	}
	err = s.Backing.SetStage(c.Request().Context(), c.Param("model"), version, req.Stage, req.Force)
	if err != nil {
		return c.String(httpStatus(err), err.Error())
	}
	return c.NoContent(http.StatusOK)
}

func (s *Server) logMetadata(c echo.Context) error {
	version, err := strconv.Atoi(c.Param("version"))
	if err != nil {
		return c.String(http.StatusBadRequest, "invalid version number")
	}
	var metadata model.JSONObj
	if err := json.NewDecoder(c.Request().Body).Decode(&metadata); err != nil {
		return c.String(http.StatusBadRequest, err.Error())
	}
	err = s.Backing.LogMetadata(c.Request().Context(), c.Param("model"), version, metadata)
	if err != nil {
		return c.String(httpStatus(err), err.Error())
	}
	return c.NoContent(http.StatusOK)
}

func (s *Server) getArtifact(c echo.Context) error {
	version, err := strconv.Atoi(c.Param("version"))
	if err != nil {
		return c.String(http.StatusBadRequest, "invalid version number")
	}
	blob, ref, err := s.Backing.GetArtifact(
		c.Request().Context(), c.Param("model"), version, c.Param("name"))
	if err != nil {
		return c.String(httpStatus(err), err.Error())
	}
	defer func() { _ = blob.Close() }()
	encoded, err := json.Marshal(ref)
	if err != nil {
		return c.String(http.StatusInternalServerError, err.Error())
	}
	c.Response().Header().Set("X-Artifact-Ref", string(encoded))
	return c.Stream(http.StatusOK, "application/octet-stream", blob)
}

func (s *Server) putArtifact(c echo.Context) error {
	version, err := strconv.Atoi(c.Param("version"))
	if err != nil {
		return c.String(http.StatusBadRequest, "invalid version number")
	}
	ref, err := s.Backing.PutArtifact(
		c.Request().Context(), c.Param("model"), version, c.Param("name"), c.Request().Body)
	if err != nil {
		return c.String(httpStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, ref)
}
