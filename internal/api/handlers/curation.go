package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kbforge/curatex/internal/api"
	"github.com/kbforge/curatex/internal/api/middleware"
	"github.com/kbforge/curatex/internal/domain"
	"github.com/kbforge/curatex/internal/service"
)

type CurationServiceInterface interface {
	Add(ctx context.Context, input service.AddInput) (*domain.CurationItem, error)
	Edit(ctx context.Context, input service.EditInput) (*domain.CurationItem, error)
	GetByID(ctx context.Context, tenantID, id string) (*domain.CurationItem, error)
	ListPending(ctx context.Context, input service.ListItemsInput) (*service.ListItemsOutput, error)
	ListHistory(ctx context.Context, input service.ListItemsInput) (*service.ListItemsOutput, error)
	Approve(ctx context.Context, input service.ApproveInput) (*domain.Document, error)
	Reject(ctx context.Context, input service.RejectInput) error
	BulkApprove(ctx context.Context, tenantID string, ids []string, reviewedBy string) *service.BulkResult
	BulkReject(ctx context.Context, tenantID string, ids []string, reviewedBy, note string) *service.BulkResult
	ApproveAll(ctx context.Context, tenantID, reviewedBy string) (*service.BulkResult, error)
	RejectAll(ctx context.Context, tenantID, reviewedBy, note string) (*service.BulkResult, error)
}

type ItemScanner interface {
	ScanItem(ctx context.Context, item *domain.CurationItem) (*service.ScanOutcome, error)
}

type CurationHandler struct {
	svc     CurationServiceInterface
	scanner ItemScanner // nil disables the manual scan endpoint
}

func NewCurationHandler(svc CurationServiceInterface, scanner ItemScanner) *CurationHandler {
	return &CurationHandler{svc: svc, scanner: scanner}
}

type AttachmentRequest struct {
	Kind       string `json:"kind"`
	Filename   string `json:"filename"`
	InlineData []byte `json:"inline_data,omitempty"`
	SourceURL  string `json:"source_url,omitempty"`
}

type AddItemRequest struct {
	Title               string              `json:"title"`
	Content             string              `json:"content"`
	SuggestedNamespaces []string            `json:"suggested_namespaces,omitempty"`
	Tags                []string            `json:"tags,omitempty"`
	SubmittedBy         string              `json:"submitted_by,omitempty"`
	Attachments         []AttachmentRequest `json:"attachments,omitempty"`
}

type EditItemRequest struct {
	Title               string   `json:"title,omitempty"`
	Content             string   `json:"content,omitempty"`
	SuggestedNamespaces []string `json:"suggested_namespaces,omitempty"`
	Tags                []string `json:"tags,omitempty"`
	ReviewNote          string   `json:"review_note,omitempty"`
}

type ReviewRequest struct {
	ReviewedBy string `json:"reviewed_by"`
	Namespace  string `json:"namespace,omitempty"`
	Note       string `json:"note,omitempty"`
}

type BulkReviewRequest struct {
	IDs        []string `json:"ids,omitempty"`
	All        bool     `json:"all,omitempty"`
	ReviewedBy string   `json:"reviewed_by"`
	Note       string   `json:"note,omitempty"`
}

type AttachmentResponse struct {
	ID         string `json:"id"`
	Kind       string `json:"kind"`
	Filename   string `json:"filename"`
	SourceURL  string `json:"source_url,omitempty"`
	StorageKey string `json:"storage_key,omitempty"`
	MimeType   string `json:"mime_type,omitempty"`
}

type ItemResponse struct {
	ID                  string               `json:"id"`
	TenantID            string               `json:"tenant_id"`
	Title               string               `json:"title"`
	Content             string               `json:"content"`
	ContentHash         string               `json:"content_hash"`
	DuplicationStatus   string               `json:"duplication_status"`
	SimilarityScore     float64              `json:"similarity_score,omitempty"`
	DuplicateOfID       string               `json:"duplicate_of_id,omitempty"`
	Status              string               `json:"status"`
	SubmittedBy         string               `json:"submitted_by,omitempty"`
	SubmittedAt         string               `json:"submitted_at"`
	ReviewedBy          string               `json:"reviewed_by,omitempty"`
	ReviewedAt          string               `json:"reviewed_at,omitempty"`
	ExpiresAt           string               `json:"expires_at,omitempty"`
	PublishedID         string               `json:"published_id,omitempty"`
	SuggestedNamespaces []string             `json:"suggested_namespaces,omitempty"`
	Tags                []string             `json:"tags,omitempty"`
	ReviewNote          string               `json:"review_note,omitempty"`
	Attachments         []AttachmentResponse `json:"attachments,omitempty"`
}

func itemToResponse(item *domain.CurationItem) *ItemResponse {
	resp := &ItemResponse{
		ID:                  item.ID,
		TenantID:            item.TenantID,
		Title:               item.Title,
		Content:             item.Content,
		ContentHash:         item.ContentHash,
		DuplicationStatus:   string(item.DuplicationStatus),
		SimilarityScore:     item.SimilarityScore,
		DuplicateOfID:       item.DuplicateOfID,
		Status:              string(item.Status),
		SubmittedBy:         item.SubmittedBy,
		SubmittedAt:         item.SubmittedAt.Format(time.RFC3339),
		ReviewedBy:          item.ReviewedBy,
		PublishedID:         item.PublishedID,
		SuggestedNamespaces: item.SuggestedNamespaces,
		Tags:                item.Tags,
		ReviewNote:          item.ReviewNote,
	}
	if item.ReviewedAt != nil {
		resp.ReviewedAt = item.ReviewedAt.Format(time.RFC3339)
	}
	if item.ExpiresAt != nil {
		resp.ExpiresAt = item.ExpiresAt.Format(time.RFC3339)
	}
	for _, a := range item.Attachments {
		resp.Attachments = append(resp.Attachments, AttachmentResponse{
			ID:         a.ID,
			Kind:       string(a.Kind),
			Filename:   a.Filename,
			SourceURL:  a.SourceURL,
			StorageKey: a.StorageKey,
			MimeType:   a.MimeType,
		})
	}
	return resp
}

type DocumentResponse struct {
	ID          string `json:"id"`
	NamespaceID string `json:"namespace_id"`
	Title       string `json:"title"`
	Content     string `json:"content"`
	ContentHash string `json:"content_hash"`
	Provenance  string `json:"provenance"`
	CreatedAt   string `json:"created_at"`
}

func documentToResponse(d *domain.Document) *DocumentResponse {
	return &DocumentResponse{
		ID:          d.ID,
		NamespaceID: d.NamespaceID,
		Title:       d.Title,
		Content:     d.Content,
		ContentHash: d.ContentHash,
		Provenance:  string(d.Provenance),
		CreatedAt:   d.CreatedAt.Format(time.RFC3339),
	}
}

func (h *CurationHandler) Add(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Content == "" {
		api.Error(w, http.StatusBadRequest, "content is required")
		return
	}

	input := service.AddInput{
		TenantID:            tenantID,
		Title:               req.Title,
		Content:             req.Content,
		SuggestedNamespaces: req.SuggestedNamespaces,
		Tags:                req.Tags,
		SubmittedBy:         req.SubmittedBy,
	}
	for _, a := range req.Attachments {
		input.Attachments = append(input.Attachments, service.AttachmentInput{
			Kind:       domain.AttachmentKind(a.Kind),
			Filename:   a.Filename,
			InlineData: a.InlineData,
			SourceURL:  a.SourceURL,
		})
	}

	item, err := h.svc.Add(r.Context(), input)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, itemToResponse(item))
}

func (h *CurationHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	item, err := h.svc.GetByID(r.Context(), tenantID, id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, itemToResponse(item))
}

func (h *CurationHandler) Edit(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	var req EditItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.svc.Edit(r.Context(), service.EditInput{
		TenantID:            tenantID,
		ItemID:              id,
		Title:               req.Title,
		Content:             req.Content,
		SuggestedNamespaces: req.SuggestedNamespaces,
		Tags:                req.Tags,
		ReviewNote:          req.ReviewNote,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, itemToResponse(item))
}

type ItemListResponse struct {
	Items   []*ItemResponse `json:"items"`
	Cursor  string          `json:"cursor,omitempty"`
	HasMore bool            `json:"has_more"`
}

func (h *CurationHandler) listWith(w http.ResponseWriter, r *http.Request,
	list func(context.Context, service.ListItemsInput) (*service.ListItemsOutput, error)) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	cursor := r.URL.Query().Get("cursor")
	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	output, err := list(r.Context(), service.ListItemsInput{
		TenantID: tenantID,
		Cursor:   cursor,
		Limit:    limit,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*ItemResponse, len(output.Items))
	for i, item := range output.Items {
		responses[i] = itemToResponse(item)
	}

	api.Success(w, http.StatusOK, ItemListResponse{
		Items:   responses,
		Cursor:  output.Cursor,
		HasMore: output.HasMore,
	})
}

func (h *CurationHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	h.listWith(w, r, h.svc.ListPending)
}

func (h *CurationHandler) ListHistory(w http.ResponseWriter, r *http.Request) {
	h.listWith(w, r, h.svc.ListHistory)
}

func (h *CurationHandler) Approve(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	var req ReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	doc, err := h.svc.Approve(r.Context(), service.ApproveInput{
		TenantID:   tenantID,
		ItemID:     id,
		ReviewedBy: req.ReviewedBy,
		Namespace:  req.Namespace,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, documentToResponse(doc))
}

func (h *CurationHandler) Reject(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	var req ReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.svc.Reject(r.Context(), service.RejectInput{
		TenantID:   tenantID,
		ItemID:     id,
		ReviewedBy: req.ReviewedBy,
		Note:       req.Note,
	}); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"status": "rejected"})
}

type BulkResultResponse struct {
	Processed  int                 `json:"processed"`
	Succeeded  int                 `json:"succeeded"`
	Duplicates int                 `json:"duplicates"`
	Failed     int                 `json:"failed"`
	Errors     []BulkErrorResponse `json:"errors,omitempty"`
}

type BulkErrorResponse struct {
	ItemID  string `json:"item_id"`
	Message string `json:"message"`
}

func bulkResultToResponse(r *service.BulkResult) BulkResultResponse {
	resp := BulkResultResponse{
		Processed:  r.Processed,
		Succeeded:  r.Succeeded,
		Duplicates: r.Duplicates,
		Failed:     r.Failed,
	}
	for _, e := range r.Errors {
		resp.Errors = append(resp.Errors, BulkErrorResponse{ItemID: e.ItemID, Message: e.Message})
	}
	return resp
}

func (h *CurationHandler) BulkApprove(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req BulkReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !req.All && len(req.IDs) == 0 {
		api.Error(w, http.StatusBadRequest, "ids or all is required")
		return
	}

	var result *service.BulkResult
	if req.All {
		var err error
		result, err = h.svc.ApproveAll(r.Context(), tenantID, req.ReviewedBy)
		if err != nil {
			api.HandleError(w, err)
			return
		}
	} else {
		result = h.svc.BulkApprove(r.Context(), tenantID, req.IDs, req.ReviewedBy)
	}

	api.Success(w, http.StatusOK, bulkResultToResponse(result))
}

func (h *CurationHandler) BulkReject(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req BulkReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !req.All && len(req.IDs) == 0 {
		api.Error(w, http.StatusBadRequest, "ids or all is required")
		return
	}

	var result *service.BulkResult
	if req.All {
		var err error
		result, err = h.svc.RejectAll(r.Context(), tenantID, req.ReviewedBy, req.Note)
		if err != nil {
			api.HandleError(w, err)
			return
		}
	} else {
		result = h.svc.BulkReject(r.Context(), tenantID, req.IDs, req.ReviewedBy, req.Note)
	}

	api.Success(w, http.StatusOK, bulkResultToResponse(result))
}

type ScanResponse struct {
	Status        string  `json:"status"`
	Score         float64 `json:"score,omitempty"`
	DuplicateOfID string  `json:"duplicate_of_id,omitempty"`
	Degraded      bool    `json:"degraded,omitempty"`
}

// Scan triggers an immediate semantic scan of one pending item, ahead of the
// background batch.
func (h *CurationHandler) Scan(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if h.scanner == nil {
		api.Error(w, http.StatusServiceUnavailable, "semantic scanning is not configured")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	item, err := h.svc.GetByID(r.Context(), tenantID, id)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	if item.Status != domain.CurationStatusPending {
		api.HandleError(w, domain.ErrItemNotPending)
		return
	}

	outcome, err := h.scanner.ScanItem(r.Context(), item)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, ScanResponse{
		Status:        string(outcome.Status),
		Score:         outcome.Score,
		DuplicateOfID: outcome.DuplicateOfID,
		Degraded:      outcome.Degraded,
	})
}
