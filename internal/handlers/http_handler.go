package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"crm-contacts/config"
	"crm-contacts/internal/models"
	"crm-contacts/internal/services"
	"crm-contacts/internal/utils"
	"crm-contacts/internal/viewstate"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/time/rate"
)

const tenantHeader = "X-Tenant-ID"

// FileStore uploads profile images and signs their URLs.
type FileStore interface {
	UploadFile(ctx context.Context, tenantID string, file multipart.File, fileHeader *multipart.FileHeader) (string, error)
	GetFileURL(ctx context.Context, filePath string) (string, error)
}

type HTTPHandler struct {
	cfg      *config.Config
	contacts models.ContactRepository
	groups   models.GroupRepository
	files    FileStore
	caches   *services.TenantCaches
	notifier services.Notifier
	metrics  *services.Metrics
	limiter  *rate.Limiter
	language language.Tag
	logger   *zap.Logger
}

// NewHTTPHandler wires the API handlers. files, notifier and metrics may
// be nil.
func NewHTTPHandler(cfg *config.Config, contacts models.ContactRepository, groups models.GroupRepository, files FileStore, caches *services.TenantCaches, notifier services.Notifier, metrics *services.Metrics) *HTTPHandler {
	h := &HTTPHandler{
		cfg:      cfg,
		contacts: contacts,
		groups:   groups,
		files:    files,
		caches:   caches,
		notifier: notifier,
		metrics:  metrics,
		language: language.Make(cfg.App.Locale),
		logger:   utils.Logger(),
	}
	if cfg.Sync.BatchRate > 0 {
		burst := cfg.Sync.BatchBurst
		if burst < 1 {
			burst = 1
		}
		h.limiter = rate.NewLimiter(rate.Limit(cfg.Sync.BatchRate), burst)
	}
	return h
}

// RegisterRoutes mounts the API on router, which is expected to be the
// /api/v1 subrouter.
func (h *HTTPHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.Health).Methods("GET")

	// Contacts
	router.HandleFunc("/contacts", h.ListContacts).Methods("GET", "OPTIONS")
	router.HandleFunc("/contacts", h.SaveContact).Methods("POST", "OPTIONS")
	router.HandleFunc("/contacts/view", h.RenderView).Methods("POST", "OPTIONS")
	router.HandleFunc("/contacts/{id}", h.SaveContact).Methods("PUT", "OPTIONS")
	router.HandleFunc("/contacts/{id}", h.DeleteContact).Methods("DELETE", "OPTIONS")
	router.HandleFunc("/contacts/{id}/qrcode", h.GetContactQRCode).Methods("GET", "OPTIONS")
	router.HandleFunc("/contacts/{id}/vcard", h.GetContactVCard).Methods("GET", "OPTIONS")
	router.HandleFunc("/contacts/{id}/groups", h.GetGroupsForContact).Methods("GET", "OPTIONS")

	// Groups
	router.HandleFunc("/groups", h.ListGroups).Methods("GET", "OPTIONS")
	router.HandleFunc("/groups", h.CreateGroup).Methods("POST", "OPTIONS")
	router.HandleFunc("/groups/{id}/contacts", h.AddContactsToGroup).Methods("POST", "OPTIONS")
	router.HandleFunc("/groups/{id}/contacts/{contactId}", h.RemoveContactFromGroup).Methods("DELETE", "OPTIONS")

	// Storage
	router.HandleFunc("/storage/file-url", h.GetFileURL).Methods("GET", "OPTIONS")
	router.HandleFunc("/storage/upload", h.HandleUpload).Methods("POST", "OPTIONS")
}

func (h *HTTPHandler) tenantID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(tenantHeader)); id != "" {
		return id
	}
	if id := strings.TrimSpace(r.URL.Query().Get("tenant_id")); id != "" {
		return id
	}
	return h.cfg.App.DefaultTenant
}

func (h *HTTPHandler) gateway(tenantID string) *services.LocalGateway {
	var signer services.FileURLSigner
	if h.files != nil {
		signer = h.files
	}
	return services.NewLocalGateway(tenantID, h.contacts, h.groups, signer, h.notifier, h.metrics)
}

func (h *HTTPHandler) respondGatewayError(w http.ResponseWriter, route string, err error) {
	switch {
	case services.IsNotFound(err):
		models.RespondWithJSON(w, http.StatusNotFound, models.NewErrorResponse("Not found"))
	case errors.Is(err, services.ErrForeignFile):
		models.RespondWithJSON(w, http.StatusForbidden, models.NewErrorResponse(err.Error()))
	default:
		utils.LogError("Request to %s failed: %v", route, err)
		models.RespondWithJSON(w, http.StatusInternalServerError, models.NewErrorResponse(err.Error()))
	}
}

// @Summary Health check
// @Tags system
// @Produce json
// @Success 200 {object} models.APIResponse
// @Router /health [get]
func (h *HTTPHandler) Health(w http.ResponseWriter, r *http.Request) {
	models.RespondWithJSON(w, http.StatusOK, models.NewSuccessResponse("ok", nil))
}

// @Summary List contacts
// @Description List the tenant's contacts, optionally narrowed to a group or search text
// @Tags contacts
// @Produce json
// @Param X-Tenant-ID header string false "Tenant"
// @Param group_id query string false "Group ID"
// @Param search query string false "Search text"
// @Success 200 {object} models.APIResponse
// @Failure 500 {object} models.APIResponse
// @Router /contacts [get]
func (h *HTTPHandler) ListContacts(w http.ResponseWriter, r *http.Request) {
	req := models.ContactListRequest{
		GroupID: r.URL.Query().Get("group_id"),
		Search:  r.URL.Query().Get("search"),
	}
	contacts, err := h.gateway(h.tenantID(r)).ListContacts(r.Context(), req)
	if err != nil {
		h.respondGatewayError(w, "/contacts", err)
		return
	}
	models.RespondWithJSON(w, http.StatusOK, models.NewSuccessResponse("Contacts listed", contacts))
}

// @Summary Save a contact
// @Description Create a contact, or update it when called on /contacts/{id}. Only name and email are required.
// @Tags contacts
// @Accept json
// @Produce json
// @Param X-Tenant-ID header string false "Tenant"
// @Param request body models.ContactForm true "Contact"
// @Success 200 {object} models.APIResponse
// @Success 201 {object} models.APIResponse
// @Failure 400 {object} models.APIResponse
// @Router /contacts [post]
func (h *HTTPHandler) SaveContact(w http.ResponseWriter, r *http.Request) {
	var form models.ContactForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		models.RespondWithJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body: "+err.Error()))
		return
	}
	if id, ok := mux.Vars(r)["id"]; ok {
		form.ID = id
	}

	if err := viewstate.ValidateContactForm(&form); err != nil {
		var verr *viewstate.ValidationError
		if errors.As(err, &verr) {
			models.RespondWithJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(verr.Fields))
			return
		}
		models.RespondWithJSON(w, http.StatusBadRequest, models.NewErrorResponse(err.Error()))
		return
	}

	tenantID := h.tenantID(r)
	saved, err := h.gateway(tenantID).SaveContact(r.Context(), form.Contact(tenantID))
	if err != nil {
		h.respondGatewayError(w, "/contacts", err)
		return
	}

	status := http.StatusOK
	if form.ID == "" {
		status = http.StatusCreated
	}
	models.RespondWithJSON(w, status, models.NewSuccessResponse("Contact saved", saved))
}

// @Summary Delete a contact
// @Tags contacts
// @Produce json
// @Param X-Tenant-ID header string false "Tenant"
// @Param id path string true "Contact ID"
// @Success 200 {object} models.APIResponse
// @Failure 404 {object} models.APIResponse
// @Router /contacts/{id} [delete]
func (h *HTTPHandler) DeleteContact(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.gateway(h.tenantID(r)).DeleteContact(r.Context(), id); err != nil {
		h.respondGatewayError(w, "/contacts/{id}", err)
		return
	}
	models.RespondWithJSON(w, http.StatusOK, models.NewSuccessResponse("Contact deleted", map[string]string{"id": id}))
}

// @Summary Render a contacts view
// @Description Evaluate search, period, source, sort, column and selection state over the tenant's contacts. With format=csv the selected rows (or every filtered row) are exported.
// @Tags contacts
// @Accept json
// @Produce json
// @Produce text/csv
// @Param X-Tenant-ID header string false "Tenant"
// @Param format query string false "json or csv"
// @Param request body models.ViewRequest true "View state"
// @Success 200 {object} models.APIResponse
// @Failure 400 {object} models.APIResponse
// @Router /contacts/view [post]
func (h *HTTPHandler) RenderView(w http.ResponseWriter, r *http.Request) {
	var req models.ViewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		models.RespondWithJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body: "+err.Error()))
		return
	}

	tenantID := h.tenantID(r)
	view, err := h.openView(r.Context(), tenantID, req)
	if err != nil {
		var bad badRequestError
		if errors.As(err, &bad) {
			models.RespondWithJSON(w, http.StatusBadRequest, models.NewErrorResponse(err.Error()))
			return
		}
		h.respondGatewayError(w, "/contacts/view", err)
		return
	}
	defer view.Close()

	if r.URL.Query().Get("format") == "csv" {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="contacts.csv"`)
		if err := view.Export(w); err != nil {
			utils.LogError("CSV export for tenant %s failed: %v", tenantID, err)
		}
		return
	}
	models.RespondWithJSON(w, http.StatusOK, models.NewSuccessResponse("View rendered", view.Table()))
}

type badRequestError struct{ err error }

func (e badRequestError) Error() string { return e.err.Error() }
func (e badRequestError) Unwrap() error { return e.err }

// openView builds and loads a view from an ephemeral view request.
func (h *HTTPHandler) openView(ctx context.Context, tenantID string, req models.ViewRequest) (*viewstate.ContactsView, error) {
	period, err := viewstate.ParseDatePeriod(req.Period)
	if err != nil {
		return nil, badRequestError{err}
	}
	field, err := viewstate.ParseSortField(req.SortField)
	if err != nil {
		return nil, badRequestError{err}
	}
	direction, err := viewstate.ParseDirection(req.SortDirection)
	if err != nil {
		return nil, badRequestError{err}
	}
	nameOrder, err := viewstate.ParseNameOrder(req.NameOrder)
	if err != nil {
		return nil, badRequestError{err}
	}
	sources := make([]models.Source, 0, len(req.Sources))
	for _, s := range req.Sources {
		src := models.Source(s)
		if !src.Valid() {
			return nil, badRequestError{fmt.Errorf("unknown source %q", s)}
		}
		sources = append(sources, src)
	}

	visible := viewstate.DefaultVisibleColumns
	if req.VisibleColumns != nil {
		visible = toColumnIDs(req.VisibleColumns)
	}
	var order []viewstate.ColumnID
	if req.ColumnOrder != nil {
		order = toColumnIDs(req.ColumnOrder)
	}

	logger := h.logger.With(zap.String("tenant_id", tenantID))
	view := viewstate.NewContactsView(h.gateway(tenantID), h.caches.Get(tenantID),
		viewstate.WithEngine(viewstate.NewEngine(viewstate.WithLanguage(h.language))),
		viewstate.WithColumns(viewstate.NewColumnModel(visible, order)),
		viewstate.WithViewLogger(logger),
	)
	view.SetGroupFilter(req.GroupID)
	if err := view.Load(ctx); err != nil {
		view.Close()
		return nil, err
	}

	view.SetSearch(req.Search)
	view.SetPeriod(period)
	view.SetSources(sources)
	view.SetSort(viewstate.SortSpec{Field: field, Direction: direction, NameOrder: nameOrder})

	if len(req.Selected) > 0 {
		visibleRows := make(map[string]bool)
		for _, c := range view.Filtered() {
			visibleRows[c.ID] = true
		}
		for _, id := range req.Selected {
			if visibleRows[id] {
				view.SelectRow(id, true)
			}
		}
	}
	return view, nil
}

func toColumnIDs(ids []string) []viewstate.ColumnID {
	out := make([]viewstate.ColumnID, 0, len(ids))
	for _, id := range ids {
		out = append(out, viewstate.ColumnID(id))
	}
	return out
}

func (h *HTTPHandler) getContact(r *http.Request) (*models.Contact, error) {
	return h.contacts.GetByID(r.Context(), h.tenantID(r), mux.Vars(r)["id"])
}

// @Summary Contact QR code
// @Description PNG QR code encoding the contact as a vCard
// @Tags contacts
// @Produce png
// @Param X-Tenant-ID header string false "Tenant"
// @Param id path string true "Contact ID"
// @Param size query int false "Image size in pixels"
// @Success 200 {file} binary
// @Failure 404 {object} models.APIResponse
// @Router /contacts/{id}/qrcode [get]
func (h *HTTPHandler) GetContactQRCode(w http.ResponseWriter, r *http.Request) {
	size := 0
	if raw := r.URL.Query().Get("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 64 || n > 1024 {
			models.RespondWithJSON(w, http.StatusBadRequest, models.NewErrorResponse("size must be between 64 and 1024"))
			return
		}
		size = n
	}

	contact, err := h.getContact(r)
	if err != nil {
		h.respondGatewayError(w, "/contacts/{id}/qrcode", err)
		return
	}

	png, err := viewstate.ContactQRCode(contact, size)
	if err != nil {
		utils.LogError("Error generating QR code for contact %s: %v", contact.ID, err)
		models.RespondWithJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Error generating QR code"))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Write(png)
}

// @Summary Contact vCard
// @Tags contacts
// @Produce text/vcard
// @Param X-Tenant-ID header string false "Tenant"
// @Param id path string true "Contact ID"
// @Success 200 {string} string
// @Failure 404 {object} models.APIResponse
// @Router /contacts/{id}/vcard [get]
func (h *HTTPHandler) GetContactVCard(w http.ResponseWriter, r *http.Request) {
	contact, err := h.getContact(r)
	if err != nil {
		h.respondGatewayError(w, "/contacts/{id}/vcard", err)
		return
	}
	w.Header().Set("Content-Type", "text/vcard; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.vcf"`, contact.ID))
	w.Write([]byte(viewstate.VCard(contact)))
}

// @Summary Groups of a contact
// @Tags groups
// @Produce json
// @Param X-Tenant-ID header string false "Tenant"
// @Param id path string true "Contact ID"
// @Success 200 {object} models.APIResponse
// @Router /contacts/{id}/groups [get]
func (h *HTTPHandler) GetGroupsForContact(w http.ResponseWriter, r *http.Request) {
	groups, err := h.gateway(h.tenantID(r)).GetGroupsForContact(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.respondGatewayError(w, "/contacts/{id}/groups", err)
		return
	}
	models.RespondWithJSON(w, http.StatusOK, models.NewSuccessResponse("Groups listed", groups))
}

// @Summary List groups
// @Tags groups
// @Produce json
// @Param X-Tenant-ID header string false "Tenant"
// @Success 200 {object} models.APIResponse
// @Router /groups [get]
func (h *HTTPHandler) ListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.gateway(h.tenantID(r)).ListGroups(r.Context())
	if err != nil {
		h.respondGatewayError(w, "/groups", err)
		return
	}
	models.RespondWithJSON(w, http.StatusOK, models.NewSuccessResponse("Groups listed", groups))
}

type createGroupRequest struct {
	Name  string `json:"name" example:"Customers"`
	Color string `json:"color,omitempty" example:"#22c55e"`
}

// @Summary Create a group
// @Tags groups
// @Accept json
// @Produce json
// @Param X-Tenant-ID header string false "Tenant"
// @Param request body createGroupRequest true "Group"
// @Success 201 {object} models.APIResponse
// @Failure 400 {object} models.APIResponse
// @Router /groups [post]
func (h *HTTPHandler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		models.RespondWithJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body: "+err.Error()))
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		models.RespondWithJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(map[string]string{"name": "is required"}))
		return
	}

	group, err := h.gateway(h.tenantID(r)).CreateGroup(r.Context(), req.Name, req.Color)
	if err != nil {
		h.respondGatewayError(w, "/groups", err)
		return
	}
	models.RespondWithJSON(w, http.StatusCreated, models.NewSuccessResponse("Group created", group))
}

type batchResponse struct {
	Succeeded []string `json:"succeeded"`
	Failed    []string `json:"failed"`
	Error     string   `json:"error,omitempty"`
}

// @Summary Add contacts to a group
// @Description Adds each contact in turn. Failures do not stop the batch; the response lists which contacts failed.
// @Tags groups
// @Accept json
// @Produce json
// @Param X-Tenant-ID header string false "Tenant"
// @Param id path string true "Group ID"
// @Param request body models.GroupMembershipRequest true "Contacts"
// @Success 200 {object} models.APIResponse
// @Success 207 {object} models.APIResponse
// @Failure 400 {object} models.APIResponse
// @Router /groups/{id}/contacts [post]
func (h *HTTPHandler) AddContactsToGroup(w http.ResponseWriter, r *http.Request) {
	var req models.GroupMembershipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		models.RespondWithJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body: "+err.Error()))
		return
	}
	if len(req.ContactIDs) == 0 {
		models.RespondWithJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(map[string]string{"contact_ids": "is required"}))
		return
	}

	tenantID := h.tenantID(r)
	syncer := viewstate.NewSynchronizer(h.gateway(tenantID), h.caches.Get(tenantID),
		viewstate.WithLimiter(h.limiter),
		viewstate.WithSyncLogger(h.logger.With(zap.String("tenant_id", tenantID))),
	)
	result := syncer.AddToGroup(r.Context(), req.ContactIDs, mux.Vars(r)["id"])
	h.metrics.AddBatchFailures(len(result.Failed))

	resp := batchResponse{
		Succeeded: append([]string{}, result.Succeeded...),
		Failed:    append([]string{}, result.Failed...),
		Error:     result.Message(),
	}
	if result.Err != nil {
		utils.LogWarning("Batch add to group for tenant %s: %v", tenantID, result.Err)
		models.RespondWithJSON(w, http.StatusMultiStatus, models.NewSuccessResponse(resp.Error, resp))
		return
	}
	models.RespondWithJSON(w, http.StatusOK, models.NewSuccessResponse("Contacts added to group", resp))
}

// @Summary Remove a contact from a group
// @Tags groups
// @Produce json
// @Param X-Tenant-ID header string false "Tenant"
// @Param id path string true "Group ID"
// @Param contactId path string true "Contact ID"
// @Success 200 {object} models.APIResponse
// @Failure 404 {object} models.APIResponse
// @Router /groups/{id}/contacts/{contactId} [delete]
func (h *HTTPHandler) RemoveContactFromGroup(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.gateway(h.tenantID(r)).RemoveContactFromGroup(r.Context(), vars["contactId"], vars["id"]); err != nil {
		h.respondGatewayError(w, "/groups/{id}/contacts/{contactId}", err)
		return
	}
	models.RespondWithJSON(w, http.StatusOK, models.NewSuccessResponse("Contact removed from group", map[string]string{
		"group_id":   vars["id"],
		"contact_id": vars["contactId"],
	}))
}

// @Summary Signed file URL
// @Description Resolve a storage path of the tenant to a time-limited URL. Direct URLs are returned unchanged.
// @Tags storage
// @Produce json
// @Param X-Tenant-ID header string false "Tenant"
// @Param path query string true "Storage path"
// @Success 200 {object} models.APIResponse
// @Failure 403 {object} models.APIResponse
// @Router /storage/file-url [get]
func (h *HTTPHandler) GetFileURL(w http.ResponseWriter, r *http.Request) {
	filePath := r.URL.Query().Get("path")
	if filePath == "" {
		models.RespondWithJSON(w, http.StatusBadRequest, models.NewErrorResponse("path is required"))
		return
	}
	url, err := h.gateway(h.tenantID(r)).GetFileURL(r.Context(), filePath)
	if err != nil {
		h.respondGatewayError(w, "/storage/file-url", err)
		return
	}
	models.RespondWithJSON(w, http.StatusOK, models.NewSuccessResponse("File URL", map[string]string{"url": url}))
}

// @Summary Upload a profile image
// @Tags storage
// @Accept multipart/form-data
// @Produce json
// @Param X-Tenant-ID header string false "Tenant"
// @Param file formData file true "Image to upload"
// @Success 200 {object} models.APIResponse
// @Failure 400 {object} models.APIResponse
// @Failure 415 {object} models.APIResponse
// @Router /storage/upload [post]
func (h *HTTPHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if h.files == nil {
		utils.LogError("Object storage is not available for /storage/upload")
		models.RespondWithJSON(w, http.StatusServiceUnavailable,
			models.NewErrorResponse("Object storage is not available"))
		return
	}

	maxBytes := h.cfg.HTTP.MaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		utils.LogError("Upload too large in /storage/upload: %v", err)
		models.RespondWithJSON(w, http.StatusBadRequest,
			models.NewErrorResponse(fmt.Sprintf("File too large. Limit is %d bytes", maxBytes)))
		return
	}

	file, handler, err := r.FormFile("file")
	if err != nil {
		models.RespondWithJSON(w, http.StatusBadRequest,
			models.NewErrorResponse("Error processing file"))
		return
	}
	defer file.Close()

	tenantID := h.tenantID(r)
	key, err := h.files.UploadFile(r.Context(), tenantID, file, handler)
	if err != nil {
		if errors.Is(err, services.ErrUnsupportedMedia) {
			models.RespondWithJSON(w, http.StatusUnsupportedMediaType, models.NewErrorResponse(err.Error()))
			return
		}
		utils.LogError("Upload failed in /storage/upload: %v", err)
		models.RespondWithJSON(w, http.StatusInternalServerError,
			models.NewErrorResponse(fmt.Sprintf("Upload failed: %v", err)))
		return
	}

	models.RespondWithJSON(w, http.StatusOK,
		models.NewSuccessResponse("File uploaded", map[string]string{"path": key}))
}
