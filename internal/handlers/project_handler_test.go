package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/subatomicERROR/codenano-sub000/internal/models"
	"github.com/subatomicERROR/codenano-sub000/internal/repositories"
	"github.com/subatomicERROR/codenano-sub000/internal/validators"
	"gorm.io/gorm"
)

// fakeProjectRepository is an in-memory ProjectRepository for handler tests.
type fakeProjectRepository struct {
	projects    map[uint]*models.Project
	nextID      uint
	createCalls int
}

func newFakeProjectRepository() *fakeProjectRepository {
	return &fakeProjectRepository{projects: make(map[uint]*models.Project), nextID: 1}
}

func (f *fakeProjectRepository) CreateProject(p *models.Project) error {
	f.createCalls++
	p.ID = f.nextID
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	f.nextID++
	f.projects[p.ID] = p
	return nil
}

func (f *fakeProjectRepository) GetProjectByID(id uint) (*models.Project, error) {
	p, ok := f.projects[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProjectRepository) GetProjectsByUserID(userID uint, offset, limit int) ([]models.Project, error) {
	var out []models.Project
	for _, p := range f.projects {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeProjectRepository) GetPublicProjects(offset, limit int) ([]models.Project, error) {
	var out []models.Project
	for _, p := range f.projects {
		if p.IsPublic {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeProjectRepository) GetPublicProjectsByUserID(userID uint, offset, limit int) ([]models.Project, error) {
	var out []models.Project
	for _, p := range f.projects {
		if p.UserID == userID && p.IsPublic {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeProjectRepository) UpdateProject(p *models.Project) error {
	if _, ok := f.projects[p.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	p.UpdatedAt = time.Now()
	f.projects[p.ID] = p
	return nil
}

func (f *fakeProjectRepository) UpdateProjectGuarded(p *models.Project, expected time.Time) error {
	stored, ok := f.projects[p.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if !stored.UpdatedAt.Equal(expected) {
		return repositories.ErrStaleWrite
	}
	p.UpdatedAt = time.Now()
	f.projects[p.ID] = p
	return nil
}

func (f *fakeProjectRepository) SaveBuffers(id, userID uint, html, css, js string) error {
	p, ok := f.projects[id]
	if !ok || p.UserID != userID {
		return gorm.ErrRecordNotFound
	}
	p.HTML, p.CSS, p.JS = html, css, js
	p.UpdatedAt = time.Now()
	return nil
}

func (f *fakeProjectRepository) DeleteProject(id, userID uint) error {
	p, ok := f.projects[id]
	if !ok || p.UserID != userID {
		return gorm.ErrRecordNotFound
	}
	delete(f.projects, id)
	return nil
}

func (f *fakeProjectRepository) SearchPublicProjects(query string, offset, limit int) ([]models.Project, error) {
	var out []models.Project
	for _, p := range f.projects {
		if p.IsPublic && strings.Contains(strings.ToLower(p.Title), strings.ToLower(query)) {
			out = append(out, *p)
		}
	}
	return out, nil
}

func newTestContext(e *echo.Echo, method, path, body string, userID uint) (echo.Context, *httptest.ResponseRecorder) {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if userID != 0 {
		c.Set("user", &models.JwtCustomClaims{UserID: userID})
	}
	return c, rec
}

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = validators.NewValidator()
	return e
}

func TestCreateProjectRejectsEmptyTitle(t *testing.T) {
	e := newTestEcho()
	repo := newFakeProjectRepository()
	h := NewProjectHandler(repo)

	c, _ := newTestContext(e, http.MethodPost, "/projects",
		`{"title":"","html":"<h1>hi</h1>"}`, 1)

	err := h.CreateProject(c)
	require.Error(t, err)
	var httpErr *echo.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
	assert.Equal(t, 0, repo.createCalls, "validation failures must never reach persistence")
}

func TestCreateProjectRejectsAllEmptyBuffers(t *testing.T) {
	e := newTestEcho()
	repo := newFakeProjectRepository()
	h := NewProjectHandler(repo)

	c, _ := newTestContext(e, http.MethodPost, "/projects", `{"title":"My Pen"}`, 1)

	err := h.CreateProject(c)
	require.Error(t, err)
	var httpErr *echo.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
	assert.Equal(t, 0, repo.createCalls)
}

func TestCreateProjectSucceeds(t *testing.T) {
	e := newTestEcho()
	repo := newFakeProjectRepository()
	h := NewProjectHandler(repo)

	c, rec := newTestContext(e, http.MethodPost, "/projects",
		`{"title":"My Pen","html":"<h1>hi</h1>"}`, 1)

	require.NoError(t, h.CreateProject(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var created models.Project
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "My Pen", created.Title)
	assert.Equal(t, "html", created.Kind, "kind defaults to html")
	assert.Equal(t, uint(1), created.UserID)
	assert.Equal(t, 1, repo.createCalls)
}

func TestCreateProjectUnauthenticated(t *testing.T) {
	e := newTestEcho()
	h := NewProjectHandler(newFakeProjectRepository())

	c, _ := newTestContext(e, http.MethodPost, "/projects",
		`{"title":"x","html":"y"}`, 0)

	err := h.CreateProject(c)
	var httpErr *echo.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
}

func TestGetProjectPrivateHiddenFromOthers(t *testing.T) {
	e := newTestEcho()
	repo := newFakeProjectRepository()
	repo.CreateProject(&models.Project{Title: "secret", UserID: 1, IsPublic: false, HTML: "<p>x</p>"})
	h := NewProjectHandler(repo)

	// Owner sees it.
	c, rec := newTestContext(e, http.MethodGet, "/projects/1", "", 1)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, h.GetProject(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	// Another user does not.
	c, _ = newTestContext(e, http.MethodGet, "/projects/1", "", 2)
	c.SetParamNames("id")
	c.SetParamValues("1")
	err := h.GetProject(c)
	var httpErr *echo.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusForbidden, httpErr.Code)
}

func TestUpdateProjectStaleWriteConflicts(t *testing.T) {
	e := newTestEcho()
	repo := newFakeProjectRepository()
	repo.CreateProject(&models.Project{Title: "pen", UserID: 1, HTML: "<p>v1</p>"})
	h := NewProjectHandler(repo)

	stale := repo.projects[1].UpdatedAt.Add(-time.Minute).Format(time.RFC3339Nano)
	c, _ := newTestContext(e, http.MethodPut, "/projects/1",
		`{"title":"pen","html":"<p>v2</p>","updated_at":"`+stale+`"}`, 1)
	c.SetParamNames("id")
	c.SetParamValues("1")

	err := h.UpdateProject(c)
	require.Error(t, err)
	var httpErr *echo.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusConflict, httpErr.Code)
}

func TestUpdateProjectNotOwner(t *testing.T) {
	e := newTestEcho()
	repo := newFakeProjectRepository()
	repo.CreateProject(&models.Project{Title: "pen", UserID: 1, HTML: "<p>x</p>"})
	h := NewProjectHandler(repo)

	c, _ := newTestContext(e, http.MethodPut, "/projects/1", `{"title":"stolen"}`, 2)
	c.SetParamNames("id")
	c.SetParamValues("1")

	err := h.UpdateProject(c)
	var httpErr *echo.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusForbidden, httpErr.Code)
}

func TestDeleteProject(t *testing.T) {
	e := newTestEcho()
	repo := newFakeProjectRepository()
	repo.CreateProject(&models.Project{Title: "pen", UserID: 1, HTML: "<p>x</p>"})
	h := NewProjectHandler(repo)

	c, rec := newTestContext(e, http.MethodDelete, "/projects/1", "", 1)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, h.DeleteProject(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, repo.projects)
}

func TestGetTemplate(t *testing.T) {
	e := newTestEcho()
	h := NewProjectHandler(newFakeProjectRepository())

	c, rec := newTestContext(e, http.MethodGet, "/templates/html", "", 1)
	c.SetParamNames("kind")
	c.SetParamValues("html")
	require.NoError(t, h.GetTemplate(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	c, _ = newTestContext(e, http.MethodGet, "/templates/cobol", "", 1)
	c.SetParamNames("kind")
	c.SetParamValues("cobol")
	err := h.GetTemplate(c)
	var httpErr *echo.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusNotFound, httpErr.Code)
}
