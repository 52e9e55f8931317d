package web

import (
	"context"
	"embed"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"portfolio/internal/services"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

const contactAnchor = "/#contact"

// Submitter runs a contact form through the submission pipeline.
type Submitter interface {
	Submit(ctx context.Context, form services.ContactForm) services.SubmitResult
}

// PingFunc reports whether the record store is reachable.
type PingFunc func(ctx context.Context) error

// SiteInfo is the static content of the landing page.
type SiteInfo struct {
	ServiceName string
	OwnerName   string
	SiteURL     string
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

type pageData struct {
	OwnerName string
	SiteURL   string
	Flash     *Flash
	Year      int
}

// Handler serves the landing page, the contact form and the health check.
type Handler struct {
	contact Submitter
	flash   *FlashStore
	ping    PingFunc
	site    SiteInfo
	page    *template.Template
	log     *slog.Logger
}

// NewHandler parses the embedded page template.
func NewHandler(contact Submitter, flash *FlashStore, ping PingFunc, site SiteInfo, log *slog.Logger) (*Handler, error) {
	page, err := template.ParseFS(templateFS, "templates/index.html")
	if err != nil {
		return nil, err
	}
	return &Handler{
		contact: contact,
		flash:   flash,
		ping:    ping,
		site:    site,
		page:    page,
		log:     log.With("component", "web"),
	}, nil
}

// Index renders the landing page and consumes any pending flash.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	data := pageData{
		OwnerName: h.site.OwnerName,
		SiteURL:   h.site.SiteURL,
		Year:      time.Now().Year(),
	}
	if f, ok := h.flash.Pop(w, r); ok {
		data.Flash = &f
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := h.page.Execute(w, data); err != nil {
		h.log.ErrorContext(r.Context(), "failed to render landing page", "error", err)
	}
}

// Contact runs the submission pipeline and redirects back to the form.
func (h *Handler) Contact(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.log.WarnContext(r.Context(), "unreadable contact form", "error", err)
		h.redirectWithFlash(w, r, Flash{Severity: string(services.SeverityError), Message: services.MessageGeneric})
		return
	}

	res := h.contact.Submit(r.Context(), services.ContactForm{
		Name:    r.PostForm.Get("name"),
		Email:   r.PostForm.Get("email"),
		Subject: r.PostForm.Get("subject"),
		Message: r.PostForm.Get("message"),
	})
	h.redirectWithFlash(w, r, Flash{Severity: string(res.Severity()), Message: res.Message()})
}

// Health reports store reachability as JSON.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "healthy", Service: h.site.ServiceName}
	code := http.StatusOK

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if h.ping != nil {
		if err := h.ping(ctx); err != nil {
			h.log.WarnContext(r.Context(), "health check failed", "error", err)
			resp.Status = "unhealthy"
			code = http.StatusServiceUnavailable
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, f Flash) {
	if err := h.flash.Set(w, f); err != nil {
		h.log.ErrorContext(r.Context(), "failed to set flash", "error", err)
	}
	http.Redirect(w, r, contactAnchor, http.StatusSeeOther)
}
