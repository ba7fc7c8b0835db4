package web

import (
	"log"
	"net/http"
	"os"
	"path"
	"sync"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/mogaika/xformedit/command"
	"github.com/mogaika/xformedit/status"
	"github.com/mogaika/xformedit/usd"
)

// Server exposes one stage. A single lock serialises every stage access,
// so at most one edit is live at a time.
type Server struct {
	lock      sync.Mutex
	stage     *usd.Stage
	stagePath string
	history   *command.History
	status    *status.Hub
	upgrader  websocket.Upgrader
}

// NewServer serves stage. stagePath is where /action/save writes; empty
// disables saving.
func NewServer(stage *usd.Stage, stagePath string) *Server {
	return &Server{
		stage:     stage,
		stagePath: stagePath,
		history:   command.NewHistory(256),
		status:    status.NewHub(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/json/stage", s.HandlerJsonStage).Methods(http.MethodGet)
	r.HandleFunc("/json/prim", s.HandlerJsonPrim).Methods(http.MethodGet)
	r.HandleFunc("/dump/layer/{index}", s.HandlerDumpLayer).Methods(http.MethodGet)
	r.HandleFunc("/dump/gltf", s.HandlerDumpGltf).Methods(http.MethodGet)
	r.HandleFunc("/action/translate", s.HandlerActionTranslate).Methods(http.MethodPost)
	r.HandleFunc("/action/edittarget", s.HandlerActionEditTarget).Methods(http.MethodPost)
	r.HandleFunc("/action/undo", s.HandlerActionUndo).Methods(http.MethodPost)
	r.HandleFunc("/action/redo", s.HandlerActionRedo).Methods(http.MethodPost)
	r.HandleFunc("/action/save", s.HandlerActionSave).Methods(http.MethodPost)
	r.HandleFunc("/action/script", s.HandlerActionScript).Methods(http.MethodPost)
	r.HandleFunc("/ws/manipulate", s.HandlerWsManipulate)
	r.HandleFunc("/ws/status", s.HandlerWsStatus)
	return r
}

// Handler wraps the router with recovery and request logging. A non empty
// webPath serves its data directory for every other url.
func (s *Server) Handler(webPath string) http.Handler {
	r := s.Router()
	if webPath != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(path.Join(webPath, "data"))))
	}
	h := handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(r)
	return handlers.LoggingHandler(os.Stdout, h)
}

func StartServer(addr string, s *Server, webPath string) error {
	log.Printf("[web] Starting server %v", addr)
	return http.ListenAndServe(addr, s.Handler(webPath))
}
