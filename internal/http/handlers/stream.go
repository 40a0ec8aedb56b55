package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	"github.com/jmylchreest/dashgate/internal/gateway"
	"github.com/jmylchreest/dashgate/internal/repository"
)

// StreamHandler exposes the gateway's channel catalog, activation,
// liveness, and playlist/segment serving endpoints.
type StreamHandler struct {
	manager  *gateway.Manager
	activity repository.ActivityRepository
	logger   *slog.Logger
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(manager *gateway.Manager, activity repository.ActivityRepository, logger *slog.Logger) *StreamHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamHandler{manager: manager, activity: activity, logger: logger}
}

// Register registers the JSON stream endpoints with the API. The playlist
// and segment proxy is registered separately via RegisterFileServer, since
// it needs wildcard path matching Huma's operation router doesn't provide.
func (h *StreamHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "initStream",
		Method:      "GET",
		Path:        "/init/{streamId}",
		Summary:     "Activate a stream",
		Description: "Starts the ingest pipeline for a channel if it is not already running. Idempotent.",
		Tags:        []string{"Streams"},
	}, h.Init)

	huma.Register(api, huma.Operation{
		OperationID: "streamStatus",
		Method:      "GET",
		Path:        "/status",
		Summary:     "List active streams",
		Tags:        []string{"Streams"},
	}, h.Status)

	huma.Register(api, huma.Operation{
		OperationID: "listChannels",
		Method:      "GET",
		Path:        "/channels",
		Summary:     "List configured channels",
		Tags:        []string{"Streams"},
	}, h.Channels)

	huma.Register(api, huma.Operation{
		OperationID: "streamDetails",
		Method:      "GET",
		Path:        "/details/{streamId}",
		Summary:     "Get stream details",
		Tags:        []string{"Streams"},
	}, h.Details)
}

// InitInput is the input for the stream activation endpoint.
type InitInput struct {
	StreamID string `path:"streamId" doc:"Channel ID"`
}

// InitOutput is the output for the stream activation endpoint.
type InitOutput struct {
	Body struct {
		Message string `json:"message"`
	}
}

// Init activates the pipeline for a channel, or reports that it is already
// running.
func (h *StreamHandler) Init(ctx context.Context, input *InitInput) (*InitOutput, error) {
	wasActive := h.manager.Touch(input.StreamID)

	if !wasActive {
		if _, err := h.manager.Activate(ctx, input.StreamID); err != nil {
			if errors.Is(err, gateway.ErrChannelNotFound) {
				return nil, huma.Error404NotFound(fmt.Sprintf("channel %s not found", input.StreamID))
			}
			return nil, huma.Error500InternalServerError("failed to start stream", err)
		}
	}

	out := &InitOutput{}
	if wasActive {
		out.Body.Message = "Stream already active"
	} else {
		out.Body.Message = "Stream initialization started"
	}
	return out, nil
}

// StatusInput is the input for the active-streams endpoint.
type StatusInput struct{}

// StatusOutput is the output for the active-streams endpoint.
type StatusOutput struct {
	Body []string
}

// Status lists every currently active stream ID.
func (h *StreamHandler) Status(ctx context.Context, input *StatusInput) (*StatusOutput, error) {
	return &StatusOutput{Body: h.manager.ListActive()}, nil
}

// ChannelsInput is the input for the channel catalog endpoint.
type ChannelsInput struct{}

// ChannelSummary is one entry in the channel catalog response.
type ChannelSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ChannelsOutput is the output for the channel catalog endpoint.
type ChannelsOutput struct {
	Body []ChannelSummary
}

// Channels returns the configured channel catalog without exposing
// manifest URLs or decryption keys.
func (h *StreamHandler) Channels(ctx context.Context, input *ChannelsInput) (*ChannelsOutput, error) {
	channels := h.manager.Channels()
	out := make([]ChannelSummary, 0, len(channels))
	for _, ch := range channels {
		out = append(out, ChannelSummary{ID: ch.ID, Name: ch.Name})
	}
	return &ChannelsOutput{Body: out}, nil
}

// DetailsInput is the input for the stream details endpoint.
type DetailsInput struct {
	StreamID string `path:"streamId" doc:"Channel ID"`
}

// ActivityEventSummary is one entry in a stream's recent activity history.
type ActivityEventSummary struct {
	Kind      string `json:"kind"`
	Detail    string `json:"detail,omitempty"`
	Timestamp string `json:"timestamp"`
}

// StreamDetailsResponse is the stream details endpoint's response body.
type StreamDetailsResponse struct {
	ID           string                 `json:"id"`
	Name         string                 `json:"name"`
	Active       bool                   `json:"active"`
	URL          string                 `json:"url"`
	RecentEvents []ActivityEventSummary `json:"recentEvents,omitempty"`
}

// DetailsOutput is the output for the stream details endpoint.
type DetailsOutput struct {
	Body StreamDetailsResponse
}

// recentEventLimit bounds how much audit history the details endpoint
// surfaces per stream.
const recentEventLimit = 20

// Details returns a channel's current activation state, playlist URL, and
// recent activity history.
func (h *StreamHandler) Details(ctx context.Context, input *DetailsInput) (*DetailsOutput, error) {
	details, err := h.manager.Details(input.StreamID)
	if err != nil {
		if errors.Is(err, gateway.ErrChannelNotFound) {
			return nil, huma.Error404NotFound(fmt.Sprintf("stream %s not found", input.StreamID))
		}
		return nil, huma.Error500InternalServerError("failed to get stream details", err)
	}

	resp := StreamDetailsResponse{
		ID:     details.StreamID,
		Name:   details.ChannelName,
		Active: details.Active,
		URL:    fmt.Sprintf("/streams/%s/master.m3u8", details.StreamID),
	}

	if h.activity != nil {
		events, err := h.activity.ListByStream(ctx, input.StreamID, recentEventLimit)
		if err != nil {
			h.logger.Warn("failed to load recent activity", slog.String("stream_id", input.StreamID), slog.Any("error", err))
		} else {
			resp.RecentEvents = make([]ActivityEventSummary, 0, len(events))
			for _, e := range events {
				resp.RecentEvents = append(resp.RecentEvents, ActivityEventSummary{
					Kind:      string(e.Kind),
					Detail:    e.Detail,
					Timestamp: e.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
				})
			}
		}
	}

	return &DetailsOutput{Body: resp}, nil
}

// RegisterFileServer registers the playlist/segment proxy route directly on
// the chi router, bypassing Huma: the path segment after the stream ID can
// itself contain slashes (segment_001.ts vs master.m3u8 live at the same
// level), which Huma's typed path parameters don't support.
func (h *StreamHandler) RegisterFileServer(router *chi.Mux) {
	router.Get("/streams/{streamId}/*", h.serveStreamFile)
}

// serveStreamFile serves a stream's playlist or segment file, dispatching
// content type by extension and touching the pipeline's liveness timer so
// an actively-polled stream is never evicted mid-playback.
func (h *StreamHandler) serveStreamFile(w http.ResponseWriter, r *http.Request) {
	streamID := chi.URLParam(r, "streamId")
	filePath := chi.URLParam(r, "*")

	contentType, ok := streamFileContentType(filePath)
	if !ok {
		http.Error(w, "Invalid file type", http.StatusBadRequest)
		return
	}

	if !h.manager.Touch(streamID) {
		http.Error(w, "Stream not active", http.StatusNotFound)
		return
	}

	details, err := h.manager.Details(streamID)
	if err != nil || details.PlaylistPath == "" {
		http.Error(w, "Stream not active", http.StatusNotFound)
		return
	}

	dir := filepath.Dir(details.PlaylistPath)
	fullPath := filepath.Join(dir, filePath)

	// Reject any path that escapes the stream's own output directory.
	if !strings.HasPrefix(fullPath, filepath.Clean(dir)+string(filepath.Separator)) && fullPath != filepath.Clean(dir) {
		http.Error(w, "Segment not found", http.StatusNotFound)
		return
	}

	file, err := os.Open(fullPath)
	if err != nil {
		http.Error(w, "Segment not found", http.StatusNotFound)
		return
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		http.Error(w, "Segment not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", contentType)
	http.ServeContent(w, r, "", stat.ModTime(), file)
}

// streamFileContentType maps a requested file's extension to its HLS
// content type, rejecting anything else.
func streamFileContentType(filePath string) (string, bool) {
	switch filepath.Ext(filePath) {
	case ".m3u8":
		return "application/vnd.apple.mpegurl", true
	case ".ts", ".m4s":
		return "video/mp2t", true
	default:
		return "", false
	}
}
