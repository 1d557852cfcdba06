// Package handler provides HTTP handlers for the Drivebox web interface.
package handler

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/prn-tf/drivebox/internal/domain"
	"github.com/prn-tf/drivebox/internal/service"
)

//go:embed templates/*.html
var templateFS embed.FS

// WebHandler serves the registration, login and file management pages.
type WebHandler struct {
	userService    *service.UserService
	sessionService *service.SessionService
	fileService    *service.FileService
	templates      *template.Template
	cookieName     string
	maxUploadSize  int64
	logger         zerolog.Logger
}

// WebConfig contains configuration for the web handler.
type WebConfig struct {
	UserService    *service.UserService
	SessionService *service.SessionService
	FileService    *service.FileService
	CookieName     string
	MaxUploadSize  int64
	Logger         zerolog.Logger
}

// NewWebHandler creates a new web handler with parsed templates.
func NewWebHandler(cfg WebConfig) (*WebHandler, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	return &WebHandler{
		userService:    cfg.UserService,
		sessionService: cfg.SessionService,
		fileService:    cfg.FileService,
		templates:      tmpl,
		cookieName:     cfg.CookieName,
		maxUploadSize:  cfg.MaxUploadSize,
		logger:         cfg.Logger.With().Str("handler", "web").Logger(),
	}, nil
}

// PageData contains common page data.
type PageData struct {
	Title    string
	Username string
	Error    string
}

// DashboardPageData contains dashboard page data.
type DashboardPageData struct {
	PageData
	Files []*domain.File
}

// RegisterRoutes registers all web routes on the given router.
func (h *WebHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.handleIndex)
	r.Get("/register", h.handleRegisterPage)
	r.Post("/register", h.handleRegister)
	r.Get("/login", h.handleLoginPage)
	r.Post("/login", h.handleLogin)
	r.Get("/logout", h.handleLogout)

	// Protected routes behind the session gate.
	r.Group(func(r chi.Router) {
		r.Use(RequireSession(h.sessionService, h.cookieName))
		r.Get("/dashboard", h.handleDashboard)
		r.Post("/upload", h.handleUpload)
		r.Get("/download/{filename}", h.handleDownload)
		r.Get("/delete/{id}", h.handleDelete)
	})
}

func (h *WebHandler) handleIndex(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/login", http.StatusFound)
}

func (h *WebHandler) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, "register.html", PageData{Title: "Register - Drivebox"})
}

func (h *WebHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	_, err := h.userService.Register(r.Context(), service.RegisterInput{
		Username: r.FormValue("username"),
		Password: r.FormValue("password"),
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserAlreadyExists):
			h.plainError(w, http.StatusConflict, "Username already exists.")
		case errors.Is(err, service.ErrInvalidUsername), errors.Is(err, service.ErrInvalidPassword):
			h.plainError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error().Err(err).Msg("registration failed")
			h.plainError(w, http.StatusInternalServerError, "Internal server error.")
		}
		return
	}

	http.Redirect(w, r, "/login", http.StatusFound)
}

func (h *WebHandler) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, "login.html", PageData{Title: "Login - Drivebox"})
}

func (h *WebHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	sess, err := h.sessionService.Login(r.Context(), service.LoginInput{
		Username: r.FormValue("username"),
		Password: r.FormValue("password"),
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			h.plainError(w, http.StatusUnauthorized, "Invalid credentials.")
			return
		}
		h.logger.Error().Err(err).Msg("login failed")
		h.plainError(w, http.StatusInternalServerError, "Internal server error.")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    sess.Token,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

func (h *WebHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(h.cookieName); err == nil {
		_ = h.sessionService.Logout(r.Context(), cookie.Value)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})

	http.Redirect(w, r, "/login", http.StatusFound)
}

func (h *WebHandler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	files, err := h.fileService.List(r.Context(), sess.UserID)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list files")
		h.plainError(w, http.StatusInternalServerError, "Internal server error.")
		return
	}

	h.render(w, "dashboard.html", DashboardPageData{
		PageData: PageData{
			Title:    "Dashboard - Drivebox",
			Username: sess.Username,
		},
		Files: files,
	})
}

func (h *WebHandler) handleUpload(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	// Hard cap on the whole request body; without it an oversized upload
	// would be buffered in full by backends that cannot stream.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)

	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		http.Error(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}

	part, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Missing file field", http.StatusBadRequest)
		return
	}
	defer part.Close()

	_, err = h.fileService.Upload(r.Context(), service.UploadInput{
		OwnerID:      sess.UserID,
		OriginalName: header.Filename,
		ContentType:  header.Header.Get("Content-Type"),
		Body:         part,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidFilename) {
			http.Error(w, "Invalid filename", http.StatusBadRequest)
			return
		}
		h.logger.Error().Err(err).Msg("upload failed")
		h.plainError(w, http.StatusInternalServerError, "Internal server error.")
		return
	}

	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

func (h *WebHandler) handleDownload(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	storageName := chi.URLParam(r, "filename")

	out, err := h.fileService.Download(r.Context(), sess.UserID, storageName)
	if err != nil {
		if errors.Is(err, service.ErrFileNotFound) {
			http.Error(w, "File not found", http.StatusNotFound)
			return
		}
		h.logger.Error().Err(err).Msg("download failed")
		h.plainError(w, http.StatusInternalServerError, "Internal server error.")
		return
	}
	defer out.Body.Close()

	contentType := out.File.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.FormatInt(out.File.Size, 10))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", out.File.OriginalName))

	if _, err := io.Copy(w, out.Body); err != nil {
		// Headers are already written; nothing to do but log.
		h.logger.Warn().Err(err).Int64("file_id", out.File.ID).Msg("interrupted while streaming file")
	}
}

func (h *WebHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	fileID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		// Malformed IDs behave like absent files: redirect proceeds regardless.
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}

	if err := h.fileService.Delete(r.Context(), sess.UserID, fileID); err != nil {
		h.logger.Error().Err(err).Int64("file_id", fileID).Msg("delete failed")
		h.plainError(w, http.StatusInternalServerError, "Internal server error.")
		return
	}

	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

func (h *WebHandler) render(w http.ResponseWriter, name string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.ExecuteTemplate(w, name, data); err != nil {
		h.logger.Error().Err(err).Str("template", name).Msg("failed to render template")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// plainError writes a plain-text error body, matching the bare error pages
// the register and login flows produce.
func (h *WebHandler) plainError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(message))
}
