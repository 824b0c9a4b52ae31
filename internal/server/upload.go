package server

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/seqrag/seqrag-go/internal/ingestion"
	"github.com/seqrag/seqrag-go/internal/logging"
	"github.com/seqrag/seqrag-go/internal/store"
)

// handleUpload handles POST /api/upload. The request is multipart form data
// with a "file" part and a "collection" field naming the target collection.
// A successful ingest is recorded in the ledger and returns the chunk count.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	if err := r.ParseMultipartForm(ingestion.MaxUploadBytes); err != nil {
		s.metrics.uploadsTotal.WithLabelValues("error", "").Inc()
		writeError(w, http.StatusBadRequest, "bad_request", "invalid multipart form")
		return
	}

	collection := r.FormValue("collection")
	if collection == "" {
		collection = ingestion.CollectionCustom
	}
	if !ingestion.ValidCollection(collection) {
		s.metrics.uploadsTotal.WithLabelValues("error", "").Inc()
		writeError(w, http.StatusBadRequest, "bad_request", "unknown collection, expected Wiki, ArXiv or Custom")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.metrics.uploadsTotal.WithLabelValues("error", collection).Inc()
		writeError(w, http.StatusBadRequest, "bad_request", "missing file part")
		return
	}
	defer file.Close()

	if !ingestion.AllowedExtension(header.Filename) {
		s.metrics.uploadsTotal.WithLabelValues("error", collection).Inc()
		writeError(w, http.StatusBadRequest, "bad_request", "unsupported file type, allowed: .txt, .csv, .pdf")
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, ingestion.MaxUploadBytes+1))
	if err != nil {
		s.metrics.uploadsTotal.WithLabelValues("error", collection).Inc()
		writeError(w, http.StatusBadRequest, "bad_request", "could not read file")
		return
	}
	if len(data) > ingestion.MaxUploadBytes {
		s.metrics.uploadsTotal.WithLabelValues("error", collection).Inc()
		writeError(w, http.StatusRequestEntityTooLarge, "too_large", "file exceeds the 16MB limit")
		return
	}

	chunks, err := s.ingester.IngestFile(r.Context(), header.Filename, data, collection)
	if err != nil {
		s.metrics.uploadsTotal.WithLabelValues("error", collection).Inc()
		log.Error("ingest failed",
			slog.String("filename", header.Filename),
			slog.Any("error", err),
		)
		writeError(w, http.StatusBadGateway, "ingest_failed", err.Error())
		return
	}

	if s.ledger != nil {
		if err := s.ledger.Record(r.Context(), header.Filename, collection, chunks); err != nil {
			// The chunks are already stored; a ledger miss is not worth
			// failing the upload over.
			log.Warn("ledger record failed",
				slog.String("filename", header.Filename),
				slog.Any("error", err),
			)
		}
	}

	s.metrics.uploadsTotal.WithLabelValues("ok", collection).Inc()
	s.metrics.uploadChunks.Observe(float64(chunks))
	log.Info("document ingested",
		slog.String("filename", header.Filename),
		slog.String("collection", collection),
		slog.Int("chunks", chunks),
	)

	writeJSON(w, http.StatusOK, uploadResponse{
		Filename:   header.Filename,
		Collection: collection,
		Chunks:     chunks,
	})
}

// handleDocuments handles GET /api/documents, listing recorded ingests.
// The optional "collection" query parameter filters by collection.
func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	if s.ledger == nil {
		writeError(w, http.StatusNotFound, "not_found", "ingest ledger not configured")
		return
	}

	collection := r.URL.Query().Get("collection")
	if collection != "" && !ingestion.ValidCollection(collection) {
		writeError(w, http.StatusBadRequest, "bad_request", "unknown collection")
		return
	}

	records, err := s.ledger.List(r.Context(), collection)
	if err != nil {
		logging.FromContext(r.Context()).Error("ledger list failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "ledger_error", "could not list documents")
		return
	}
	if records == nil {
		records = []store.Record{}
	}

	writeJSON(w, http.StatusOK, documentsResponse{Documents: records})
}
