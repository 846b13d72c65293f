package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/oapi-codegen/runtime"

	"github.com/kiesman99/tilepack/internal/hasher"
	"github.com/kiesman99/tilepack/internal/metadata"
	"github.com/kiesman99/tilepack/internal/tiler"
	"github.com/kiesman99/tilepack/pkg/tile"
)

// Config holds the server defaults
type Config struct {
	TileSize      int
	Quality       int
	Format        tile.Format
	Hash          hasher.Algorithm
	MaxUploadSize int64
	Timeout       time.Duration
	Logger        *slog.Logger
}

func (c *Config) setDefaults() {
	if c.TileSize == 0 {
		c.TileSize = tile.DefaultTileSize
	}
	if c.Quality == 0 {
		c.Quality = tile.DefaultQuality
	}
	if c.Hash == "" {
		c.Hash = hasher.SHA256
	}
	if c.MaxUploadSize == 0 {
		c.MaxUploadSize = 64 << 20 // 64MB
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Server exposes tiling, metadata assembly and hashing over HTTP.
// It keeps no tiles between requests.
type Server struct {
	startTime time.Time
	version   string
	config    Config
	logger    *slog.Logger
}

// NewServer creates a new server instance
func NewServer(version string, cfg Config) *Server {
	cfg.setDefaults()
	return &Server{
		startTime: time.Now(),
		version:   version,
		config:    cfg,
		logger:    cfg.Logger,
	}
}

// Router builds the chi router with middleware and mounts the API at /api/v1
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(s.config.Timeout))
	r.Use(cors)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.GetHealth)
		r.Post("/tiles", s.CreateTiles)
		r.Post("/metadata", s.CreateMetadata)
		r.Post("/hash", s.CreateHash)
	})

	// Health endpoint without the /api/v1 prefix
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/api/v1/health", http.StatusMovedPermanently)
	})

	return r
}

// cors allows browser viewers to call the API directly
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// GetHealth implements the health check endpoint
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	uptime := int(time.Since(s.startTime).Seconds())

	response := HealthResponse{
		Status:    Healthy,
		Timestamp: time.Now(),
		Uptime:    &uptime,
		Version:   &s.version,
	}

	s.writeJSON(w, http.StatusOK, response)
}

// CreateTiles tiles the image in the request body
func (s *Server) CreateTiles(w http.ResponseWriter, r *http.Request) {
	requestID := requestID(r)

	var params TileParams
	if err := bindQuery(r, map[string]any{
		"tile_size":    &params.TileSize,
		"quality":      &params.Quality,
		"format":       &params.Format,
		"lossless":     &params.Lossless,
		"include_data": &params.IncludeData,
	}); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error(), &requestID, nil)
		return
	}

	opts := tile.Options{
		TileSize: s.config.TileSize,
		Quality:  s.config.Quality,
		Format:   s.config.Format,
	}
	if params.TileSize != nil {
		opts.TileSize = *params.TileSize
	}
	if params.Quality != nil {
		opts.Quality = *params.Quality
	}
	if params.Format != nil {
		format, err := tile.ParseFormat(*params.Format)
		if err != nil {
			s.writeErrorResponse(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error(), &requestID, nil)
			return
		}
		opts.Format = format
	}
	if params.Lossless != nil {
		opts.Lossless = *params.Lossless
	}

	body, ok := s.readBody(w, r, &requestID)
	if !ok {
		return
	}

	h, err := hasher.New(s.config.Hash)
	if err != nil {
		s.writeErrorResponse(w, http.StatusInternalServerError, ErrCodeInternal, err.Error(), &requestID, nil)
		return
	}

	result, err := tiler.New(h).Tile(body, opts)
	if err != nil {
		s.handleTilingError(w, err, &requestID)
		return
	}

	includeData := params.IncludeData != nil && *params.IncludeData

	response := TileResponse{
		Width:      result.Width,
		Height:     result.Height,
		TileSize:   result.TileSize,
		Format:     opts.Format.String(),
		Count:      result.Count(),
		Unique:     result.Unique(),
		Duplicates: result.Duplicates,
		Tiles:      make([]TileInfo, len(result.Tiles)),
	}
	if response.Duplicates == nil {
		response.Duplicates = []string{}
	}
	for i, t := range result.Tiles {
		response.Tiles[i] = TileInfo{X: t.X, Y: t.Y, Hash: t.Hash}
		if includeData {
			response.Tiles[i].Data = t.Data
		}
	}

	s.logger.Info("tiled image",
		"request_id", requestID,
		"width", result.Width,
		"height", result.Height,
		"tile_size", result.TileSize,
		"tiles", response.Count,
		"unique", response.Unique)

	w.Header().Set("X-Request-ID", requestID)
	s.writeJSON(w, http.StatusOK, response)
}

// CreateMetadata assembles the metadata document for the pages in the request body
func (s *Server) CreateMetadata(w http.ResponseWriter, r *http.Request) {
	requestID := requestID(r)

	var params MetadataParams
	if err := bindQuery(r, map[string]any{
		"tile_size": &params.TileSize,
		"encoding":  &params.Encoding,
	}); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error(), &requestID, nil)
		return
	}

	tileSize := s.config.TileSize
	if params.TileSize != nil {
		tileSize = *params.TileSize
	}
	if err := tile.ValidateTileSize(tileSize); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, ErrCodeInvalidTileSize, err.Error(), &requestID, nil)
		return
	}

	encoding := metadata.JSON
	if params.Encoding != nil {
		enc, err := metadata.ParseEncoding(*params.Encoding)
		if err != nil {
			s.writeErrorResponse(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error(), &requestID, nil)
			return
		}
		encoding = enc
	}

	body, ok := s.readBody(w, r, &requestID)
	if !ok {
		return
	}

	pages, err := metadata.ParsePages(body)
	if err != nil {
		s.handleTilingError(w, err, &requestID)
		return
	}

	doc := metadata.Assemble(pages, uint32(tileSize))

	if encoding == metadata.CBOR {
		w.Header().Set("Content-Type", "application/cbor")
	} else {
		w.Header().Set("Content-Type", "application/json")
	}
	w.Header().Set("X-Request-ID", requestID)
	w.WriteHeader(http.StatusOK)

	if err := doc.Encode(w, encoding, metadata.None); err != nil {
		s.logger.Error("error encoding metadata", "request_id", requestID, "error", err)
	}
}

// CreateHash returns the digest of the request body
func (s *Server) CreateHash(w http.ResponseWriter, r *http.Request) {
	requestID := requestID(r)

	var params HashParams
	if err := bindQuery(r, map[string]any{
		"short":     &params.Short,
		"algorithm": &params.Algorithm,
	}); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error(), &requestID, nil)
		return
	}

	alg := s.config.Hash
	if params.Algorithm != nil {
		parsed, err := hasher.ParseAlgorithm(*params.Algorithm)
		if err != nil {
			s.writeErrorResponse(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error(), &requestID, nil)
			return
		}
		alg = parsed
	}

	h, err := hasher.New(alg)
	if err != nil {
		s.writeErrorResponse(w, http.StatusInternalServerError, ErrCodeInternal, err.Error(), &requestID, nil)
		return
	}

	body, ok := s.readBody(w, r, &requestID)
	if !ok {
		return
	}

	digest := h.Digest(body)
	if params.Short != nil && *params.Short {
		digest = h.ShortDigest(body)
	}

	w.Header().Set("X-Request-ID", requestID)
	s.writeJSON(w, http.StatusOK, HashResponse{Algorithm: string(h.Algorithm()), Hash: digest})
}

// bindQuery binds optional form-style query parameters into dests
func bindQuery(r *http.Request, dests map[string]any) error {
	query := r.URL.Query()
	for name, dest := range dests {
		if err := runtime.BindQueryParameter("form", true, false, name, query, dest); err != nil {
			return fmt.Errorf("invalid format for parameter %s: %w", name, err)
		}
	}
	return nil
}

// readBody reads the request body up to the configured limit
func (s *Server) readBody(w http.ResponseWriter, r *http.Request, requestID *string) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.config.MaxUploadSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeErrorResponse(w, http.StatusRequestEntityTooLarge, ErrCodePayloadTooLarge,
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit), requestID, nil)
			return nil, false
		}
		s.writeErrorResponse(w, http.StatusBadRequest, ErrCodeInvalidRequest,
			"Failed to read request body", requestID, nil)
		return nil, false
	}
	return body, true
}

// handleTilingError maps engine errors to HTTP responses
func (s *Server) handleTilingError(w http.ResponseWriter, err error, requestID *string) {
	var decodeErr *tile.DecodeError
	var encodeErr *tile.EncodeError
	var parseErr *metadata.ParseError

	switch {
	case errors.Is(err, tile.ErrInvalidTileSize):
		s.writeErrorResponse(w, http.StatusBadRequest, ErrCodeInvalidTileSize, err.Error(), requestID, nil)
	case errors.Is(err, tile.ErrInvalidQuality):
		s.writeErrorResponse(w, http.StatusBadRequest, ErrCodeInvalidQuality, err.Error(), requestID, nil)
	case errors.As(err, &decodeErr):
		s.writeErrorResponse(w, http.StatusUnprocessableEntity, ErrCodeDecodeError, err.Error(), requestID, nil)
	case errors.As(err, &parseErr):
		s.writeErrorResponse(w, http.StatusBadRequest, ErrCodeMetadataParseError, err.Error(), requestID, nil)
	case errors.As(err, &encodeErr):
		s.logger.Error("tile encoding failed", "request_id", *requestID, "error", err)
		s.writeErrorResponse(w, http.StatusInternalServerError, ErrCodeEncodeError, err.Error(), requestID,
			map[string]interface{}{
				"x":      encodeErr.X,
				"y":      encodeErr.Y,
				"format": encodeErr.Format.String(),
			})
	default:
		s.logger.Error("request failed", "request_id", *requestID, "error", err)
		s.writeErrorResponse(w, http.StatusInternalServerError, ErrCodeInternal,
			"Internal server error", requestID, nil)
	}
}

// writeErrorResponse writes a standard error response
func (s *Server) writeErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string, requestID *string, details map[string]interface{}) {
	response := ErrorResponse{
		Error:     errorCode,
		Message:   message,
		RequestId: requestID,
	}

	if details != nil {
		response.Details = &details
	}

	s.writeJSON(w, statusCode, response)
}

func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("error encoding response", "error", err)
	}
}

// requestID returns the id assigned by the RequestID middleware, or a new one
func requestID(r *http.Request) string {
	if id := middleware.GetReqID(r.Context()); id != "" {
		return id
	}
	return fmt.Sprintf("req_%d", time.Now().UnixNano())
}
