package main

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/reupload/pkg/file"
	"github.com/dmitrymomot/reupload/pkg/httpserver"
	"github.com/dmitrymomot/reupload/pkg/logger"
	"github.com/dmitrymomot/reupload/pkg/upload"
)

type api struct {
	registry       *upload.Registry
	logger         *slog.Logger
	maxRequestSize int64
	maxMemory      int64
}

type setInfo struct {
	Name      string `json:"name"`
	BaseURL   string `json:"base_url,omitempty"`
	AutoServe bool   `json:"autoserve"`
}

type savedFile struct {
	Set    string `json:"set"`
	Path   string `json:"path"`
	URL    string `json:"url,omitempty"`
	Size   int64  `json:"size"`
	SHA256 string `json:"sha256"`
}

type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func (a *api) routes(r chi.Router) {
	r.Get("/", a.listSets)
	r.Route("/{set}", func(r chi.Router) {
		r.Post("/", a.save)
		r.Get("/", a.list)
		r.Delete("/*", a.delete)
	})
}

func (a *api) listSets(w http.ResponseWriter, r *http.Request) {
	out := make([]setInfo, 0, len(a.registry.Sets()))
	for _, s := range a.registry.Sets() {
		cfg, err := s.Config()
		if err != nil {
			continue
		}
		out = append(out, setInfo{Name: s.Name(), BaseURL: cfg.BaseURL, AutoServe: cfg.AutoServe})
	}
	a.json(w, r, http.StatusOK, out)
}

// save handles a multipart upload: field "file" is required; "folder" and
// "name" map to WithFolder and WithName. random=true replaces the name with
// a UUID while keeping the client file's extension.
func (a *api) save(w http.ResponseWriter, r *http.Request) {
	set, err := a.registry.Get(chi.URLParam(r, "set"))
	if err != nil {
		a.fail(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, a.maxRequestSize)
	if err := r.ParseMultipartForm(a.maxMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			a.fail(w, r, file.ErrFileTooLarge)
			return
		}
		a.fail(w, r, fmt.Errorf("%w: %v", upload.ErrInvalidSource, err))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	fh, err := formFile(r.MultipartForm)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	src := file.FromHeader(fh)

	var opts []upload.SaveOption
	if folder := r.FormValue("folder"); folder != "" {
		opts = append(opts, upload.WithFolder(folder))
	}
	name := r.FormValue("name")
	if random, _ := strconv.ParseBool(r.FormValue("random")); random {
		name = uuid.NewString() + "."
	}
	if name != "" {
		opts = append(opts, upload.WithName(name))
	}

	rel, err := set.Save(r.Context(), src, opts...)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	sum, err := file.Hash(src, sha256.New())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	out := savedFile{Set: set.Name(), Path: rel, Size: fh.Size, SHA256: sum}
	if u, err := set.URL(rel); err == nil {
		out.URL = u
	}

	a.logger.InfoContext(r.Context(), "upload stored",
		logger.UploadSet(set.Name()),
		logger.Filename(fh.Filename),
		logger.Path(rel),
		logger.Size(fh.Size),
	)
	a.json(w, r, http.StatusCreated, out)
}

func formFile(form *multipart.Form) (*multipart.FileHeader, error) {
	files := form.File["file"]
	switch len(files) {
	case 0:
		return nil, fmt.Errorf(`%w: multipart field "file" is missing`, upload.ErrInvalidSource)
	case 1:
		return files[0], nil
	default:
		return nil, fmt.Errorf("%w: one file per request", upload.ErrInvalidSource)
	}
}

func (a *api) list(w http.ResponseWriter, r *http.Request) {
	set, err := a.registry.Get(chi.URLParam(r, "set"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	entries, err := set.List(r.Context(), r.URL.Query().Get("folder"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, r, http.StatusOK, entries)
}

func (a *api) delete(w http.ResponseWriter, r *http.Request) {
	set, err := a.registry.Get(chi.URLParam(r, "set"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	rel := chi.URLParam(r, "*")
	if r.URL.RawPath != "" {
		if rel, err = url.PathUnescape(rel); err != nil {
			a.fail(w, r, fmt.Errorf("%w: %v", upload.ErrInvalidName, err))
			return
		}
	}
	if err := set.Delete(r.Context(), rel); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := upload.HTTPStatus(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		a.logger.ErrorContext(r.Context(), "request failed", logger.Error(err))
		msg = http.StatusText(status)
	}
	a.json(w, r, status, errorBody{Error: msg, RequestID: httpserver.RequestIDFromContext(r.Context())})
}

func (a *api) json(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.WarnContext(r.Context(), "write response", logger.Error(err))
	}
}
