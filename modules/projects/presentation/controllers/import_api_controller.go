package controllers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/kwatuha/imes-sub010/modules/projects/domain/sheet"
	"github.com/kwatuha/imes-sub010/modules/projects/infrastructure/sheetfile"
	"github.com/kwatuha/imes-sub010/modules/projects/services"
	"github.com/kwatuha/imes-sub010/pkg/application"
	"github.com/kwatuha/imes-sub010/pkg/composables"
	"github.com/kwatuha/imes-sub010/pkg/httpapi"
)

const (
	defaultMaxUpload = 20 << 20
	xlsxContentType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	templateFilename = "project_import_template.xlsx"
)

// Importer is the part of services.ImportService the controller uses.
type Importer interface {
	Preview(ctx context.Context, table sheet.RawTable) (*services.PreviewResult, error)
	CheckMetadataMapping(ctx context.Context, rows []sheet.CanonicalRow) (*services.MappingSummary, error)
	ConfirmImport(ctx context.Context, actor services.Actor, rows []sheet.CanonicalRow) (*services.ImportSummary, error)
}

type ImportAPIOptions struct {
	// ActorHeader carries the authenticated user id set by the gateway.
	ActorHeader    string
	MaxUploadBytes int64
}

type ImportAPIController struct {
	importer    Importer
	validate    *validator.Validate
	actorHeader string
	maxUpload   int64
	apiPrefix   string
}

func NewImportAPIController(importer Importer, opts ImportAPIOptions) application.Controller {
	if opts.ActorHeader == "" {
		opts.ActorHeader = "X-Actor-ID"
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUpload
	}
	return &ImportAPIController{
		importer:    importer,
		validate:    validator.New(),
		actorHeader: opts.ActorHeader,
		maxUpload:   opts.MaxUploadBytes,
		apiPrefix:   "/projects/api",
	}
}

func (c *ImportAPIController) Key() string {
	return c.apiPrefix
}

func (c *ImportAPIController) Register(r *mux.Router) {
	api := r.PathPrefix(c.apiPrefix).Subrouter()
	api.HandleFunc("/import-data", instrumentAPI("import-data", c.PreviewImport)).Methods(http.MethodPost)
	api.HandleFunc("/check-metadata-mapping", instrumentAPI("check-metadata-mapping", c.CheckMetadataMapping)).Methods(http.MethodPost)
	api.HandleFunc("/confirm-import-data", instrumentAPI("confirm-import-data", c.ConfirmImport)).Methods(http.MethodPost)
	api.HandleFunc("/template", instrumentAPI("template", c.Template)).Methods(http.MethodGet)
}

type importRowsRequest struct {
	DataToImport []sheet.CanonicalRow `json:"dataToImport" validate:"required,min=1"`
}

type confirmResponse struct {
	Success bool                    `json:"success"`
	Message string                  `json:"message"`
	Details *services.ImportSummary `json:"details"`
}

func (c *ImportAPIController) PreviewImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, c.maxUpload)
	if err := r.ParseMultipartForm(c.maxUpload); err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "INVALID_UPLOAD", "could not read the uploaded form: "+err.Error())
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "NO_FILE", "no file uploaded (expected form field \"file\")")
		return
	}
	defer file.Close()

	table, err := sheetfile.Read(file, header.Filename)
	if err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "UNREADABLE_FILE", err.Error())
		return
	}
	res, err := c.importer.Preview(r.Context(), table)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, res)
}

func (c *ImportAPIController) decodeRows(w http.ResponseWriter, r *http.Request) ([]sheet.CanonicalRow, bool) {
	var req importRowsRequest
	if err := httpapi.DecodeJSON(w, r, &req, c.maxUpload); err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return nil, false
	}
	if err := c.validate.Struct(&req); err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "NO_ROWS", "dataToImport must contain at least one row")
		return nil, false
	}
	return req.DataToImport, true
}

func (c *ImportAPIController) CheckMetadataMapping(w http.ResponseWriter, r *http.Request) {
	rows, ok := c.decodeRows(w, r)
	if !ok {
		return
	}
	res, err := c.importer.CheckMetadataMapping(r.Context(), rows)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, res)
}

func (c *ImportAPIController) ConfirmImport(w http.ResponseWriter, r *http.Request) {
	actorID, err := strconv.ParseInt(strings.TrimSpace(r.Header.Get(c.actorHeader)), 10, 64)
	if err != nil || actorID <= 0 {
		writeAPIError(w, r, http.StatusUnauthorized, "ACTOR_REQUIRED", services.ErrActorRequired.Error())
		return
	}
	rows, ok := c.decodeRows(w, r)
	if !ok {
		return
	}
	summary, err := c.importer.ConfirmImport(r.Context(), services.Actor{ID: actorID}, rows)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, confirmResponse{Success: true, Message: summary.Message, Details: summary})
}

func (c *ImportAPIController) Template(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+templateFilename+`"`)
	if err := sheetfile.WriteTemplate(w); err != nil {
		composables.UseLogger(r.Context()).WithError(err).Error("write import template")
	}
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var importErr *services.ImportError
	switch {
	case errors.As(err, &importErr):
		if len(importErr.Errors) == 0 {
			composables.UseLogger(r.Context()).WithError(err).Error("import transaction failed")
			writeAPIError(w, r, http.StatusInternalServerError, "IMPORT_FAILED", "import failed and was rolled back")
			return
		}
		_ = httpapi.WriteErrorDetails(w, http.StatusUnprocessableEntity, "IMPORT_ROLLED_BACK",
			"import failed and was rolled back; no rows were saved", importErr)
	case errors.Is(err, services.ErrNoDataRows), errors.Is(err, services.ErrNoRowsProvided):
		writeAPIError(w, r, http.StatusBadRequest, "NO_ROWS", err.Error())
	case errors.Is(err, services.ErrActorRequired):
		writeAPIError(w, r, http.StatusUnauthorized, "ACTOR_REQUIRED", err.Error())
	default:
		composables.UseLogger(r.Context()).WithError(err).Error("import request failed")
		writeAPIError(w, r, http.StatusInternalServerError, "PROJECTS_INTERNAL", "internal error")
	}
}

func writeAPIError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	var meta map[string]string
	if id := w.Header().Get("X-Request-Id"); id != "" {
		meta = map[string]string{"request_id": id}
	}
	_ = httpapi.WriteError(w, status, code, message, meta)
}
