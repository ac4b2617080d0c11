package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/doodlekit/doodlekit/backend-go/internal/scene"
)

const maxSceneSize = 10 << 20 // 10MB

// Handler serves one-shot scene-to-PNG exports over HTTP. The request body
// is the scene's shape array; the response is the flattened image as an
// attachment.
type Handler struct {
	exporter *Exporter
}

func NewHandler(exporter *Exporter) *Handler {
	return &Handler{exporter: exporter}
}

func (h *Handler) ExportPNG(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSceneSize)

	var sc scene.Scene
	if err := json.NewDecoder(r.Body).Decode(&sc); err != nil {
		http.Error(w, "invalid scene", http.StatusBadRequest)
		return
	}

	name := r.URL.Query().Get("name")
	if name == "" {
		name = "drawing"
	}
	// Sanitize filename
	name = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, name)

	var buf bytes.Buffer
	if err := h.exporter.PNG(&sc, &buf); err != nil {
		if errors.Is(err, ErrEmptyScene) {
			// Nothing to export is not an error.
			w.WriteHeader(http.StatusNoContent)
			return
		}
		slog.Error("export png", "error", err)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}

	slog.Info("export complete", "shapes", sc.Len(), "size", buf.Len())

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.png"`, name))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Write(buf.Bytes())
}
