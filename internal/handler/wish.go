package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/wishlist/internal/apperror"
	"github.com/sakif/wishlist/internal/model"
	"github.com/sakif/wishlist/internal/query"
	"github.com/sakif/wishlist/internal/service"
	"github.com/sakif/wishlist/internal/session"
)

// maxUploadBytes caps multipart parsing memory; larger files spill to disk.
const maxUploadBytes = 10 << 20 // 10 MiB

// WishHandler serves the wish list API. Reads and mutations go through the
// session container so its result cache stays coherent; the standalone
// image endpoint talks to the service directly and invalidates by hand.
type WishHandler struct {
	session *session.Session
	wishes  *service.WishService
	logger  *slog.Logger
}

// NewWishHandler creates a WishHandler.
func NewWishHandler(sess *session.Session, wishes *service.WishService, logger *slog.Logger) *WishHandler {
	return &WishHandler{session: sess, wishes: wishes, logger: logger}
}

// HandleList returns the wishes for the requested sort/search state.
//
// HTTP: GET /api/list?rating=desc&title=asc&search=shoes
//
// SORT PARAMETER ORDER IS MEANINGFUL:
// The first column=direction pair is the primary sort key, later pairs
// break ties. url.Values is a map and loses that order, so the raw query
// string is parsed positionally instead.
//
// Omitting `search` keeps the session's current search text (it may have
// been set through POST /api/search); `search=` explicitly clears it.
func (h *WishHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	criteria, search, hasSearch, err := parseListParams(r.URL.RawQuery)
	if err != nil {
		writeError(w, apperror.ValidationFailed("query", err.Error()))
		return
	}

	syncSession(h.session, criteria, search, hasSearch)

	wishes, err := h.session.Rows(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, wishes)
}

// HandleSearch records live search input.
//
// HTTP: POST /api/search  body: {"text": "sho"}
//
// The text is applied after the debounce window, so a client may send every
// keystroke; only the final value in a burst takes effect. The next
// HandleList call (without a search parameter) picks it up.
func (h *WishHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	h.session.SetSearch(req.Text)
	w.WriteHeader(http.StatusAccepted)
}

// createRequest is the JSON body for creating a wish.
type createRequest struct {
	Title          string   `json:"title"`
	URL            string   `json:"url"`
	Rating         float64  `json:"rating"`
	Amount         *float64 `json:"amount"`
	Status         string   `json:"status"`
	PurchaseAmount *float64 `json:"purchase_amount"`
	PurchaseDate   *string  `json:"purchase_date"`
}

// createResponse wraps the saved wish together with the image phase
// outcome, so the client can tell "saved with image" from "saved, image
// failed" without a second request.
type createResponse struct {
	Wish  *model.Wish `json:"wish"`
	Image string      `json:"image"` // "skipped", "attached" or "failed"
}

// HandleCreate saves a new wish.
//
// HTTP: POST /api/wishes
//
// Accepts either a JSON body or a multipart form. The multipart variant
// may carry a `file` field, which triggers the best-effort image attach
// after the row is saved — an upload failure still answers 201.
func (h *WishHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var (
		in  service.CreateInput
		err error
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		in, err = parseCreateForm(r)
	} else {
		in, err = parseCreateJSON(r)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	wish, attach, err := h.session.Create(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, createResponse{
		Wish:  wish,
		Image: attach.Outcome.String(),
	})
}

// HandleUpdate merges changes into an existing wish.
//
// HTTP: PUT /api/wishes/{id}
//
// Absent JSON fields are left unchanged; present fields replace the stored
// values. Moving a wish back to PENDING clears its purchase details.
func (h *WishHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		Title          *string  `json:"title"`
		URL            *string  `json:"url"`
		Rating         *float64 `json:"rating"`
		Amount         *float64 `json:"amount"`
		Status         *string  `json:"status"`
		PurchaseAmount *float64 `json:"purchase_amount"`
		PurchaseDate   *string  `json:"purchase_date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	in := service.UpdateInput{
		Title:          req.Title,
		URL:            req.URL,
		Rating:         req.Rating,
		Amount:         req.Amount,
		PurchaseAmount: req.PurchaseAmount,
		PurchaseDate:   req.PurchaseDate,
	}
	if req.Status != nil {
		status := model.Status(*req.Status)
		in.Status = &status
	}

	wish, err := h.session.Update(r.Context(), id, in)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, wish)
}

// HandleDelete archives a wish.
//
// HTTP: DELETE /api/wishes/{id}
//
// This is a soft delete: the row is flagged, not removed, and stops
// appearing in list results. Responds with the ID so the client can drop
// the row locally.
func (h *WishHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.session.Archive(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

// HandleAttachImage stores an image for an existing wish.
//
// HTTP: POST /api/wishes/{id}/image  (multipart, field "file")
//
// Unlike the create-time attach, a failure here is a real error response;
// the client explicitly asked for the upload.
func (h *WishHandler) HandleAttachImage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	file, header, err := openUpload(r)
	if err != nil {
		writeError(w, err)
		return
	}
	defer file.Close()

	url, err := h.wishes.AttachImage(r.Context(), id, service.ImageUpload{
		Filename: header.Filename,
		Data:     file,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	// The stored rows now carry a stale image_url.
	h.session.Invalidate()

	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

// syncSession reconciles a session's sort state with the criteria from the
// URL, then applies an explicit search value. Sorts are rebuilt only on an
// actual difference so an unchanged query stays a cache hit. Shared by the
// JSON list endpoint and the HTML page.
func syncSession(sess *session.Session, criteria []query.Criterion, search string, hasSearch bool) {
	current := sess.Sorts()
	if !equalCriteria(current, criteria) {
		for _, c := range current {
			sess.RemoveSort(c.Column)
		}
		for _, c := range criteria {
			sess.AddSort(c)
		}
	}
	if hasSearch {
		sess.ApplySearch(search)
	}
}

func equalCriteria(a, b []query.Criterion) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// parseListParams walks the raw query string pair by pair. Every key that
// isn't "search" must be a sortable column with an asc/desc value.
func parseListParams(rawQuery string) (criteria []query.Criterion, search string, hasSearch bool, err error) {
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}

		key, value, _ := strings.Cut(pair, "=")
		key, err = url.QueryUnescape(key)
		if err != nil {
			return nil, "", false, errors.New("malformed query parameter")
		}
		value, err = url.QueryUnescape(value)
		if err != nil {
			return nil, "", false, errors.New("malformed query parameter")
		}

		if key == "search" {
			search = value
			hasSearch = true
			continue
		}

		col := query.Column(key)
		if !col.Valid() {
			return nil, "", false, errors.New("unknown sort column: " + key)
		}

		var dir query.Direction
		switch value {
		case "asc":
			dir = query.Asc
		case "desc":
			dir = query.Desc
		default:
			return nil, "", false, errors.New("sort direction must be asc or desc")
		}

		criteria = append(criteria, query.Criterion{Column: col, Direction: dir})
	}
	return criteria, search, hasSearch, nil
}

// parseCreateJSON decodes a JSON create body into a CreateInput.
func parseCreateJSON(r *http.Request) (service.CreateInput, error) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return service.CreateInput{}, apperror.ValidationFailed("body", "invalid JSON body")
	}

	in := service.CreateInput{
		Title:          req.Title,
		URL:            req.URL,
		Rating:         req.Rating,
		Amount:         req.Amount,
		Status:         model.Status(req.Status),
		PurchaseAmount: req.PurchaseAmount,
		PurchaseDate:   req.PurchaseDate,
	}
	if req.Status == "" {
		in.Status = model.StatusPending
	}
	return in, nil
}

// parseCreateForm decodes a multipart create form, including the optional
// image file.
func parseCreateForm(r *http.Request) (service.CreateInput, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return service.CreateInput{}, apperror.ValidationFailed("body", "invalid multipart form")
	}

	in := service.CreateInput{
		Title:  r.FormValue("title"),
		URL:    r.FormValue("url"),
		Status: model.Status(r.FormValue("status")),
	}
	if in.Status == "" {
		in.Status = model.StatusPending
	}

	if v := r.FormValue("rating"); v != "" {
		rating, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return service.CreateInput{}, apperror.ValidationFailed("rating", "rating must be a number")
		}
		in.Rating = rating
	}
	var err error
	if in.Amount, err = optionalFloat(r, "amount"); err != nil {
		return service.CreateInput{}, err
	}
	if in.PurchaseAmount, err = optionalFloat(r, "purchase_amount"); err != nil {
		return service.CreateInput{}, err
	}
	if v := r.FormValue("purchase_date"); v != "" {
		in.PurchaseDate = &v
	}

	file, header, err := r.FormFile("file")
	switch {
	case err == nil:
		// The reader stays open until the request body is done; the service
		// consumes it before the handler returns.
		in.Image = &service.ImageUpload{Filename: header.Filename, Data: file}
	case errors.Is(err, http.ErrMissingFile):
		// no image on this create
	default:
		return service.CreateInput{}, apperror.ValidationFailed("file", "invalid file upload")
	}

	return in, nil
}

func optionalFloat(r *http.Request, field string) (*float64, error) {
	v := r.FormValue(field)
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, apperror.ValidationFailed(field, field+" must be a number")
	}
	return &f, nil
}

// openUpload extracts the "file" part from a multipart request.
func openUpload(r *http.Request) (multipart.File, *multipart.FileHeader, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, nil, apperror.ValidationFailed("body", "invalid multipart form")
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, nil, apperror.ValidationFailed("file", "an image file is required")
	}
	return file, header, nil
}
