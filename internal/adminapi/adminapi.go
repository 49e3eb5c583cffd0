// Package adminapi is the coordinator's control-plane HTTP API: pure
// introspection (shard queue depth, lock occupancy, recent journal
// entries, Prometheus metrics, pprof), never the RESP client frontend
// (out of scope per spec.md §1).
//
// Grounded on store/kvstore/kvstore_http_server.go's ServeHttpKVApi
// (gorilla/mux subrouter per method, mounted under a path prefix) and
// store/kvstore/kvstore_http_server.go's log.Fatal(http.ListenAndServe(...))
// startup; request logging is added via sirupsen/logrus, which the
// teacher declared as a dependency but never wired into a server.
package adminapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/pprof"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/zhenli1347/dragonfly/internal/journal"
	"github.com/zhenli1347/dragonfly/internal/txn"
)

// ShardInfo is the JSON body of GET /debug/shards/{id}.
type ShardInfo struct {
	ID            int   `json:"id"`
	QueueDepth    int   `json:"queue_depth"`
	LockOccupancy int   `json:"lock_occupancy"`
	CommittedTxid int64 `json:"committed_txid"`
}

// Server is the admin API's dependencies.
type Server struct {
	Shards  *txn.ShardSet
	Journal *journal.MemJournal
	Log     *logrus.Logger
}

// Router builds the mux.Router serving this API.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(s.accessLog)

	debug := r.PathPrefix("/debug").Subrouter()
	debug.Methods("GET").Path("/shards/{id}").HandlerFunc(s.handleShard)
	debug.Methods("GET").Path("/journal").HandlerFunc(s.handleJournal)

	r.Handle("/metrics", promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{}))

	r.HandleFunc("/debug/pprof/", pprof.Index)
	r.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	r.HandleFunc("/debug/pprof/profile", pprof.Profile)
	r.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	r.HandleFunc("/debug/pprof/trace", pprof.Trace)

	return r
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.Log.WithFields(logrus.Fields{"method": r.Method, "path": r.URL.Path}).Info("admin request")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleShard(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := parseShardID(vars["id"], s.Shards.Size())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	sh := s.Shards.Shard(id)
	info := ShardInfo{
		ID:            sh.ID(),
		QueueDepth:    sh.QueueDepth(),
		LockOccupancy: sh.LockOccupancy(),
		CommittedTxid: sh.CommittedTxid(),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(info)
}

func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	entries := s.Journal.Recent(100)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(entries)
}

var errBadShard = errors.New("adminapi: shard id out of range")

func parseShardID(s string, numShards int) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if id < 0 || id >= numShards {
		return 0, errBadShard
	}
	return id, nil
}
