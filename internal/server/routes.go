package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Conversational analysis
	mux.HandleFunc("/start_chat", s.app.AnalysisHandler.StartChatHandler)
	mux.HandleFunc("/follow_up", s.app.AnalysisHandler.FollowUpHandler)
	mux.HandleFunc("/query", s.app.AnalysisHandler.QueryHandler)
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// Sessions
	mux.HandleFunc("/sessions", s.handleSessionsRoute)   // GET (list), POST (create)
	mux.HandleFunc("/sessions/", s.handleSessionRoutes) // GET/DELETE /{id}

	// Reports and trends
	mux.HandleFunc("/report", s.app.ReportHandler.RenderHandler)
	mux.HandleFunc("/trends/general", s.app.TrendsHandler.GeneralHandler)

	// Scheduled jobs
	mux.HandleFunc("/jobs", s.app.SchedulerHandler.ListJobsHandler)
	mux.HandleFunc("/jobs/", s.handleJobRoutes) // POST /{name}/run

	// System
	mux.HandleFunc("/health", s.app.APIHandler.HealthHandler)
	mux.HandleFunc("/version", s.app.APIHandler.VersionHandler)

	// Everything else
	mux.HandleFunc("/", s.app.APIHandler.NotFoundHandler)

	return mux
}

func (s *Server) handleSessionsRoute(w http.ResponseWriter, r *http.Request) {
	RouteResourceCollection(w, r, s.app.SessionHandler.ListHandler, s.app.SessionHandler.CreateHandler)
}

func (s *Server) handleSessionRoutes(w http.ResponseWriter, r *http.Request) {
	RouteResourceItem(w, r, s.app.SessionHandler.GetHandler, s.app.SessionHandler.DeleteHandler)
}

func (s *Server) handleJobRoutes(w http.ResponseWriter, r *http.Request) {
	if RouteByPathSuffix(w, r, "/jobs/", []PathSuffixRouter{
		{Suffix: "/run", Handler: s.app.SchedulerHandler.TriggerJobHandler},
	}) {
		return
	}
	s.app.APIHandler.NotFoundHandler(w, r)
}
