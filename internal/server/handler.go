package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"qrcard/internal/render"
	"qrcard/internal/render/encode"
	"qrcard/internal/render/qr"
)

func (s *Server) handleQR(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		writeError(w, http.StatusBadRequest, "URL parameter is required")
		return
	}

	req := render.NewQRRequest(url, queryInt(r, "size"))

	out, err := s.image(r, req)
	if err != nil {
		if s.opts.RedirectFallback {
			http.Redirect(w, r, qr.ServerURL(s.opts.QRServer, req.URL, req.Size), http.StatusFound)
			return
		}

		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeImage(w, r, out)
}

func (s *Server) handleCard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	req := render.NewCardRequest(q.Get("title"), q.Get("subtitle"), queryInt(r, "width"), queryInt(r, "height"))

	out, err := s.image(r, req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeImage(w, r, out)
}

// image renders req and converts it to the requested format. A result the
// encoder cannot read fails the same way as a failed render.
func (s *Server) image(r *http.Request, req *render.Request) (*render.Result, error) {
	res, err := s.render(r.Context(), req)
	if err != nil {
		return nil, err
	}

	out, err := encode.Encode(res, encode.ParseFormat(r.URL.Query().Get("format")))
	if err != nil {
		s.opts.Logger.WarnContext(r.Context(), "encode failed", "content_type", res.ContentType, "error", err)
		return nil, errors.New("encode failed")
	}

	return out, nil
}

func writeImage(w http.ResponseWriter, r *http.Request, out *render.Result) {
	w.Header().Set("Content-Type", out.ContentType)
	w.Header().Set("Cache-Control", CacheControl)
	w.Header().Set("Content-Length", strconv.Itoa(len(out.Data)))

	w.WriteHeader(http.StatusOK)

	if r.Method != http.MethodHead {
		w.Write(out.Data)
	}
}

// queryInt returns 0 for missing or malformed values, which the request
// constructors replace with defaults.
func queryInt(r *http.Request, key string) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}

	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
