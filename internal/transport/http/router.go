package http

import (
	"encoding/json"
	"net/http"
	"net/url"

	"live-quiz-service/internal/app"

	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

const qrSize = 320

// NewRouter wires the websocket endpoint and the read-only session routes.
// publicURL is the player join page encoded in QR codes; when empty it is
// derived from the request.
func NewRouter(registry *app.Registry, ws *WSHandler, publicURL string) http.Handler {
	mux := httprouter.New()

	mux.GET("/healthz", func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	mux.GET("/ws", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		ws.ServeWS(w, r)
	})
	mux.GET("/sessions/:code", sessionHandler(registry))
	mux.GET("/sessions/:code/qr", qrHandler(registry, publicURL))

	return mux
}

func sessionHandler(registry *app.Registry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		session, ok := registry.Session(ps.ByName("code"))
		if !ok {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(session.Summary())
	}
}

func qrHandler(registry *app.Registry, publicURL string) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		session, ok := registry.Session(ps.ByName("code"))
		if !ok {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}

		png, err := qrcode.Encode(joinURL(r, publicURL, session.Code()), qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	}
}

func joinURL(r *http.Request, publicURL, code string) string {
	base := publicURL
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}
		base = scheme + "://" + r.Host + "/"
	}

	u, err := url.Parse(base)
	if err != nil {
		return base + "?code=" + url.QueryEscape(code)
	}
	q := u.Query()
	q.Set("code", code)
	u.RawQuery = q.Encode()
	return u.String()
}
