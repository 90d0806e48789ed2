package status

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"time"

	"github.com/mcdev12/playtime/go/internal/play/join"
	"github.com/mcdev12/playtime/go/internal/play/state"
	"github.com/rs/zerolog/log"
)

// Countdown is the read side of the countdown presenter.
type Countdown interface {
	Remaining() int
}

// Joiner starts the join handshake on behalf of the embedding page.
type Joiner interface {
	Join(ctx context.Context) error
	Phase() join.Phase
}

// StateResponse is the JSON view of the local room mirror.
type StateResponse struct {
	ClientID     string     `json:"client_id"`
	Connected    bool       `json:"connected"`
	Loading      bool       `json:"loading"`
	Phase        string     `json:"phase"`
	PlayerID     *string    `json:"player_id,omitempty"`
	RoomID       *string    `json:"room_id,omitempty"`
	StartTime    *time.Time `json:"start_time,omitempty"`
	Players      int        `json:"players"`
	RemainingSec *int       `json:"remaining_sec,omitempty"`
}

// JoinResponse reports the outcome of POST /api/join.
type JoinResponse struct {
	Joined  bool   `json:"joined"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message,omitempty"`
}

// Handler serves the local status API
type Handler struct {
	clientID       string
	state          state.Reader
	countdown      Countdown
	joiner         Joiner
	allowedOrigins []string
}

// NewHandler creates a status handler. Only pages served from
// allowedOrigins may trigger a join; "*" allows any origin.
func NewHandler(clientID string, reader state.Reader, countdown Countdown, joiner Joiner, allowedOrigins []string) *Handler {
	return &Handler{
		clientID:       clientID,
		state:          reader,
		countdown:      countdown,
		joiner:         joiner,
		allowedOrigins: allowedOrigins,
	}
}

// originAllowed reports whether a browser page at origin may call the
// API. Requests without an Origin header do not come from a page.
func (h *Handler) originAllowed(origin string) bool {
	if origin == "" {
		return true
	}
	for _, allowed := range h.allowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// RegisterRoutes registers the status routes on mux
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.HandleHealth)
	mux.HandleFunc("/api/state", h.HandleGetState)
	mux.HandleFunc("/api/join", h.HandleJoin)
}

// HandleHealth handles GET /health
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		log.Error().Err(err).Msg("failed to write health check response")
	}
}

// HandleGetState handles GET /api/state
func (h *Handler) HandleGetState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snap := h.state.Snapshot()
	resp := StateResponse{
		ClientID:  h.clientID,
		Connected: snap.Connected,
		Loading:   snap.Loading,
		Phase:     h.joiner.Phase().String(),
		PlayerID:  snap.PlayerID,
		RoomID:    snap.RoomID,
		StartTime: snap.StartTime,
		Players:   snap.PlayerCount,
	}
	if remain := h.countdown.Remaining(); remain >= 0 && snap.StartTime != nil {
		resp.RemainingSec = &remain
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleJoin handles POST /api/join
func (h *Handler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// only JSON bodies, which browsers preflight
	if origin := r.Header.Get("Origin"); !h.originAllowed(origin) {
		log.Warn().Str("origin", origin).Msg("join refused for origin")
		http.Error(w, "Origin not allowed", http.StatusForbidden)
		return
	}
	if mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type")); err != nil || mediaType != "application/json" {
		http.Error(w, "Content-Type must be application/json", http.StatusUnsupportedMediaType)
		return
	}

	err := h.joiner.Join(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, JoinResponse{Joined: true})
	case errors.Is(err, join.ErrBusy), errors.Is(err, join.ErrAlreadyJoined):
		writeJSON(w, http.StatusConflict, JoinResponse{Message: err.Error()})
	default:
		var f *join.Failure
		if !errors.As(err, &f) {
			log.Error().Err(err).Msg("join failed")
			writeJSON(w, http.StatusInternalServerError, JoinResponse{Message: join.MsgSomethingWentWrong})
			return
		}
		code := http.StatusBadGateway
		if f.Kind == join.KindUserDeclined || f.Kind == join.KindSigningAborted {
			code = http.StatusForbidden
		}
		writeJSON(w, code, JoinResponse{Kind: f.Kind.String(), Message: f.Message})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode status response")
	}
}
