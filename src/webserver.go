package src

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"mime"
	"net"
	"net/http"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"time"

	"pandatv/src/internal/artwork"
	"pandatv/src/internal/channelview"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Active HTTP connections counter
var activeHTTPConnections int64

func connState(c net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		atomic.AddInt64(&activeHTTPConnections, 1)
	case http.StateClosed:
		atomic.AddInt64(&activeHTTPConnections, -1)
	}
}

func init() {
	// Register types to ensure consistent behavior across platforms
	types := map[string]string{
		".html": "text/html; charset=utf-8",
		".css":  "text/css; charset=utf-8",
		".js":   "application/javascript",
		".json": "application/json",
		".png":  "image/png",
		".jpg":  "image/jpeg",
		".jpeg": "image/jpeg",
		".gif":  "image/gif",
		".svg":  "image/svg+xml",
		".webp": "image/webp",
		".ico":  "image/x-icon",
	}
	for ext, typ := range types {
		if err := mime.AddExtensionType(ext, typ); err != nil {
			panic(fmt.Sprintf("failed to register mime type %s: %v", ext, err))
		}
	}
}

// StartWebserver : Serve until ctx is canceled
func StartWebserver(ctx context.Context) error {
	showInfo("Web server:" + "Starting")

	var ips = len(System.IPAddressesV4) + len(System.IPAddressesV6) - 1
	switch {
	case ips < 1:
		showHighlight(fmt.Sprintf("Web Interface:%s/web/", System.URLBase))
	case ips == 1:
		showHighlight(fmt.Sprintf("Web Interface:%s/web/ | %s is also available via the other %d IP.", System.URLBase, System.Name, ips))
	default:
		showHighlight(fmt.Sprintf("Web Interface:%s/web/ | %s is also available via the other %d IP's.", System.URLBase, System.Name, ips))
	}

	server := &http.Server{
		Addr:              ":" + Settings.Port,
		Handler:           newHTTPHandler(),
		ConnState:         connState,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	var serveErr = make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		ShowError(err, 1001)
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		ShowError(err, 1016)
		return err
	}

	showInfo("Web server:" + "Stopped")
	return nil
}

// Index : Web Server /
func Index(w http.ResponseWriter, r *http.Request) {
	showDebug(fmt.Sprintf("Web Server Request:Path: %s", r.URL.Path), 2)

	switch r.URL.Path {
	case "/":
		http.Redirect(w, r, "/web/", http.StatusFound)
	case "/app_logo.png":
		serveEmbedded(w, r, "html"+r.URL.Path)
	default:
		httpStatusError(w, r, http.StatusNotFound)
	}
}

var webHandler http.Handler

func init() {
	htmlFS, err := fs.Sub(webUI, "html")
	if err != nil {
		log.Fatal("Failed to create sub-filesystem for embedded resources: ", err)
	}

	webHandler = http.StripPrefix("/web/", http.FileServerFS(htmlFS))
}

// Web : Web Server /web/
func Web(w http.ResponseWriter, r *http.Request) {
	webHandler.ServeHTTP(w, r)
}

func serveEmbedded(w http.ResponseWriter, r *http.Request, name string) {
	content, err := webUI.ReadFile(name)
	if err != nil {
		trace.SpanFromContext(r.Context()).RecordError(err)
		httpStatusError(w, r, http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", getContentType(name))
	w.Header().Set("Content-Length", strconv.Itoa(len(content)))
	if _, writeErr := w.Write(content); writeErr != nil {
		log.Printf("Error writing embedded file %s: %v", name, writeErr)
	}
}

// Images : Artwork cache /images/
func Images(w http.ResponseWriter, r *http.Request) {
	if Data.Artwork == nil {
		httpStatusError(w, r, http.StatusNotFound)
		return
	}

	var name = filepath.Base(r.URL.Path)
	content, err := Data.Artwork.ReadFile(name)
	if err != nil {
		trace.SpanFromContext(r.Context()).RecordError(err)
		if errors.Is(err, artwork.ErrInvalidName) {
			httpStatusError(w, r, http.StatusBadRequest)
			return
		}
		httpStatusError(w, r, http.StatusNotFound)
		return
	}

	// SVG artwork must not run scripts in our origin
	w.Header().Set("Content-Security-Policy", "sandbox; default-src 'none'; img-src 'self'; style-src 'unsafe-inline';")
	w.Header().Set("Content-Type", getContentType(name))
	w.Header().Set("Content-Length", strconv.Itoa(len(content)))
	w.Header().Set("Cache-Control", "max-age=86400")
	if _, writeErr := w.Write(content); writeErr != nil {
		log.Printf("Error writing image response in Images handler: %v", writeErr)
	}
}

// APIStatus : GET /api/status
func APIStatus(w http.ResponseWriter, r *http.Request) {
	var playlist = currentPlaylist()

	var response = APIStatusStruct{
		Status:      true,
		Version:     System.Version,
		VersionAPI:  System.APIVersion,
		Playlist:    playlist.Source,
		Channels:    len(playlist.Channels),
		Categories:  len(playlist.Categories),
		FromStore:   playlist.FromStore,
		Sessions:    Data.Sessions.count(),
		Connections: atomic.LoadInt64(&activeHTTPConnections),
		Uptime:      time.Since(System.StartedAt).Round(time.Second).String(),
	}

	if !playlist.LoadedAt.IsZero() {
		response.LoadedAt = playlist.LoadedAt.Format(time.RFC3339)
	}
	if playlist.Err != nil {
		response.PlaylistError = playlist.Err.Error()
	}

	WebScreenLog.Mu.RLock()
	response.Errors = WebScreenLog.Errors
	response.Warnings = WebScreenLog.Warnings
	WebScreenLog.Mu.RUnlock()

	writeJSON(w, r, http.StatusOK, response)
}

// APICategories : GET /api/categories
func APICategories(w http.ResponseWriter, r *http.Request) {
	var categories = append([]string{channelview.AllCategory}, currentPlaylist().Categories...)
	writeJSON(w, r, http.StatusOK, categories)
}

// APIChannels : GET /api/channels?category=&q=&pages=
func APIChannels(w http.ResponseWriter, r *http.Request) {
	var query = r.URL.Query()

	var state = channelview.NewState().
		SelectCategory(cmp.Or(query.Get("category"), channelview.AllCategory)).
		Search(query.Get("q"))

	if p := query.Get("pages"); len(p) > 0 {
		pages, err := strconv.Atoi(p)
		if err != nil || pages < 1 {
			httpStatusError(w, r, http.StatusBadRequest)
			return
		}
		state.Pages = pages
	}

	var view = channelview.Render(currentPlaylist().Channels, state, Settings.PageSize)
	trace.SpanFromContext(r.Context()).SetAttributes(
		attribute.String("pandatv.category", state.Category),
		attribute.Int("pandatv.shown", view.Shown),
		attribute.Int("pandatv.total", view.Total),
	)

	writeJSON(w, r, http.StatusOK, view)
}

// APIPlayback : GET /api/playback?id=
func APIPlayback(w http.ResponseWriter, r *http.Request) {
	var id = r.URL.Query().Get("id")
	if len(id) == 0 {
		httpStatusError(w, r, http.StatusBadRequest)
		return
	}

	channel, ok := findChannel(currentPlaylist().Channels, id)
	if !ok {
		httpStatusError(w, r, http.StatusNotFound)
		return
	}

	writeJSON(w, r, http.StatusOK, newPlayback(channel))
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	content, err := json.Marshal(v)
	if err != nil {
		trace.SpanFromContext(r.Context()).RecordError(err)
		httpStatusError(w, r, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, writeErr := w.Write(content); writeErr != nil {
		log.Printf("Error writing JSON response: %v", writeErr)
	}
}

// withRouteTag wraps a handler to manually add the http.route attribute to spans and metrics.
// otelhttp.WithRouteTag is deprecated and a global middleware over a mux does not see the route.
func withRouteTag(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if route := r.Pattern; route != "" {
			if labeler, ok := otelhttp.LabelerFromContext(r.Context()); ok {
				labeler.Add(attribute.String("http.route", route))
			}
			trace.SpanFromContext(r.Context()).SetAttributes(attribute.String("http.route", route))
		}
		next.ServeHTTP(w, r)
	})
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "SAMEORIGIN")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		// Streams and logos come from anywhere in the playlist
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self' 'unsafe-inline'; img-src * data:; connect-src 'self'; media-src * blob:; object-src 'none';")

		next.ServeHTTP(w, r)
	})
}

func panicMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				span := trace.SpanFromContext(r.Context())

				var panicErr error
				switch x := err.(type) {
				case string:
					panicErr = errors.New(x)
				case error:
					panicErr = x
				default:
					panicErr = fmt.Errorf("panic: %v", x)
				}

				span.RecordError(panicErr)
				span.SetStatus(codes.Error, panicErr.Error())

				panic(err)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func newHTTPHandler() http.Handler {
	mux := http.NewServeMux()

	handleFunc := func(pattern string, handlerFunc func(http.ResponseWriter, *http.Request)) {
		mux.Handle(pattern, withRouteTag(http.HandlerFunc(handlerFunc)))
	}

	handleFunc("/", Index)
	handleFunc("/web/", Web)
	handleFunc("/data/", WS)
	handleFunc("/images/", Images)
	handleFunc("GET /api/status", APIStatus)
	handleFunc("GET /api/categories", APICategories)
	handleFunc("GET /api/channels", APIChannels)
	handleFunc("GET /api/playback", APIPlayback)

	handler := panicMiddleware(mux)
	handler = securityHeadersMiddleware(handler)
	handler = otelhttp.NewHandler(handler, "/")
	return handler
}

func httpStatusError(w http.ResponseWriter, _ *http.Request, httpStatusCode int) {
	http.Error(w, fmt.Sprintf("%s [%d]", http.StatusText(httpStatusCode), httpStatusCode), httpStatusCode)
}

func getContentType(filename string) string {
	return cmp.Or(mime.TypeByExtension(filepath.Ext(filename)), "text/plain")
}
