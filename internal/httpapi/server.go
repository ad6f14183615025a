// Package httpapi exposes the production pipeline over HTTP: blog and
// episode CRUD, script generation, and the async audio job surface.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/castforge-labs/castforge-core/internal/episodes"
	"github.com/castforge-labs/castforge-core/internal/faults"
	"github.com/castforge-labs/castforge-core/internal/production"
	"github.com/castforge-labs/castforge-core/internal/script"
	"github.com/castforge-labs/castforge-core/internal/storage"
)

// Server wires the HTTP routes to the domain services.
type Server struct {
	blogs     *episodes.BlogStore
	episodes  *episodes.EpisodeStore
	generator *script.Generator
	orch      *production.Orchestrator
	objects   storage.Store
	log       *slog.Logger
}

func NewServer(
	blogs *episodes.BlogStore,
	eps *episodes.EpisodeStore,
	generator *script.Generator,
	orch *production.Orchestrator,
	objects storage.Store,
	log *slog.Logger,
) *Server {
	return &Server{
		blogs:     blogs,
		episodes:  eps,
		generator: generator,
		orch:      orch,
		objects:   objects,
		log:       log.With(slog.String("component", "httpapi")),
	}
}

// Register mounts every API route on mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/blogs", s.handleCreateBlog)
	mux.HandleFunc("GET /api/blogs", s.handleListBlogs)
	mux.HandleFunc("GET /api/blogs/{id}", s.handleGetBlog)
	mux.HandleFunc("DELETE /api/blogs/{id}", s.handleDeleteBlog)

	mux.HandleFunc("POST /api/scripts/generate/{blogID}", s.handleGenerateScript)

	mux.HandleFunc("GET /api/episodes", s.handleListEpisodes)
	mux.HandleFunc("GET /api/episodes/{id}", s.handleGetEpisode)
	mux.HandleFunc("PUT /api/episodes/{id}", s.handleUpdateEpisode)
	mux.HandleFunc("DELETE /api/episodes/{id}", s.handleDeleteEpisode)

	mux.HandleFunc("POST /api/audio/generate/{episodeID}", s.handleGenerateAudio)
	mux.HandleFunc("GET /api/audio/status/{jobID}", s.handleJobStatus)
	mux.HandleFunc("GET /api/audio/jobs", s.handleListJobs)
	mux.HandleFunc("DELETE /api/audio/jobs/{jobID}", s.handleDeleteJob)
	mux.HandleFunc("POST /api/audio/finalize/{episodeID}", s.handleFinalize)
	mux.HandleFunc("GET /api/audio/episode/{episodeID}", s.handleLatestJob)
	mux.HandleFunc("GET /api/audio/download/{episodeID}", s.handleDownload)
}

type createBlogRequest struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags,omitempty"`
}

func (s *Server) handleCreateBlog(w http.ResponseWriter, r *http.Request) {
	var req createBlogRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Content) == "" {
		s.writeError(w, faults.Validation("title and content are required"))
		return
	}
	blog := &episodes.Blog{Title: req.Title, Content: req.Content, Tags: req.Tags}
	if err := s.blogs.Put(r.Context(), blog); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, blog)
}

func (s *Server) handleListBlogs(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.blogs.List(r.Context()))
}

func (s *Server) handleGetBlog(w http.ResponseWriter, r *http.Request) {
	blog, err := s.blogs.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, blog)
}

func (s *Server) handleDeleteBlog(w http.ResponseWriter, r *http.Request) {
	if err := s.blogs.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type generateScriptRequest struct {
	Duration   string   `json:"duration,omitempty"`
	HumorLevel int      `json:"humor_level,omitempty"`
	FocusAreas []string `json:"focus_areas,omitempty"`
}

func (s *Server) handleGenerateScript(w http.ResponseWriter, r *http.Request) {
	blog, err := s.blogs.Get(r.Context(), r.PathValue("blogID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req generateScriptRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			s.writeError(w, err)
			return
		}
	}
	settings := episodes.GenerationSettings{
		Duration:   req.Duration,
		HumorLevel: req.HumorLevel,
		FocusAreas: req.FocusAreas,
	}
	ep, err := s.generator.Generate(r.Context(), blog, settings, s.episodes.LatestSummary(r.Context()))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.episodes.Put(r.Context(), ep); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, ep)
}

func (s *Server) handleListEpisodes(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.episodes.List(r.Context()))
}

func (s *Server) handleGetEpisode(w http.ResponseWriter, r *http.Request) {
	ep, err := s.episodes.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ep)
}

type updateEpisodeRequest struct {
	Title  *string `json:"title,omitempty"`
	Script *string `json:"script,omitempty"`
}

func (s *Server) handleUpdateEpisode(w http.ResponseWriter, r *http.Request) {
	ep, err := s.episodes.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req updateEpisodeRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if req.Title != nil {
		ep.Title = *req.Title
	}
	if req.Script != nil {
		if len(script.ParseScript(*req.Script)) == 0 {
			s.writeError(w, faults.Validation("script contains no speaker dialogue"))
			return
		}
		ep.Script = *req.Script
	}
	if err := s.episodes.Put(r.Context(), ep); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ep)
}

func (s *Server) handleDeleteEpisode(w http.ResponseWriter, r *http.Request) {
	if err := s.episodes.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGenerateAudio(w http.ResponseWriter, r *http.Request) {
	job, started, err := s.orch.Submit(r.Context(), r.PathValue("episodeID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	status := http.StatusAccepted
	if !started {
		status = http.StatusOK
	}
	s.writeJSON(w, status, job)
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	job, err := s.orch.GetJob(r.Context(), r.PathValue("jobID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	list, err := s.orch.ListJobs(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	if err := s.orch.DeleteJob(r.Context(), r.PathValue("jobID")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFinalize(w http.ResponseWriter, r *http.Request) {
	result, err := s.orch.Finalize(r.Context(), r.PathValue("episodeID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleLatestJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.orch.LatestJobForTarget(r.Context(), r.PathValue("episodeID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	episodeID := r.PathValue("episodeID")
	job, err := s.orch.LatestJobForTarget(r.Context(), episodeID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if job.Result == nil {
		s.writeError(w, faults.NotFound("episode %s has no finished audio", episodeID))
		return
	}
	data, err := s.objects.Get(r.Context(), job.Result.Location)
	if err != nil {
		s.writeError(w, err)
		return
	}
	name := path.Base(job.Result.Location)
	switch {
	case strings.HasSuffix(name, ".mp3"):
		w.Header().Set("Content-Type", "audio/mpeg")
	case strings.HasSuffix(name, ".wav"):
		w.Header().Set("Content-Type", "audio/wav")
	default:
		w.Header().Set("Content-Type", "application/octet-stream")
	}
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	if loc := s.objects.URL(job.Result.Location); loc != "" {
		w.Header().Set("Content-Location", loc)
	}
	_, _ = w.Write(data)
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return faults.Validation("invalid request body: %v", err)
	}
	return nil
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	kind := faults.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case faults.KindNotFound:
		status = http.StatusNotFound
	case faults.KindValidation:
		status = http.StatusUnprocessableEntity
	case faults.KindUpstream:
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", slog.String("error", err.Error()))
	} else {
		s.log.Debug("request rejected", slog.String("kind", kind.String()), slog.String("error", err.Error()))
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error(), Kind: kind.String()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Debug("response write failed", slog.String("error", err.Error()))
	}
}
