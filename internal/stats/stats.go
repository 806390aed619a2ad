package stats

import (
	"encoding/json"
	"expvar"
	"net/http"
	"time"
)

const (
	ActiveConnections = "ActiveConnections"
	ActiveRooms       = "ActiveRooms"
	MessagesPublished = "MessagesPublished"
	MessagesDropped   = "MessagesDropped"
)

type StatsProvider interface {
	Incr(name string)
	Decr(name string)
	RegisterMetric(name string)
	Run()
}

// StatsRecorder funnels all metric updates through a single goroutine so
// callers never block on expvar internals from hot paths.
type StatsRecorder struct {
	vars       *expvar.Map
	updateChan chan *metricUpdate
}

type metricUpdate struct {
	name  string
	delta int
}

func NewStatsRecorder(mux *http.ServeMux) *StatsRecorder {
	sr := &StatsRecorder{
		updateChan: make(chan *metricUpdate, 512),
	}
	mux.Handle("GET /debug/vars", http.HandlerFunc(sr.expvarHandler))

	// expvar names are process-global; reuse the map if one exists
	if v, ok := expvar.Get("crewchat-stats").(*expvar.Map); ok {
		v.Init()
		sr.vars = v
	} else {
		sr.vars = expvar.NewMap("crewchat-stats")
	}

	startTime := time.Now()
	sr.vars.Set("Uptime", expvar.Func(func() any {
		return time.Since(startTime).Milliseconds()
	}))

	for _, name := range []string{ActiveConnections, ActiveRooms, MessagesPublished, MessagesDropped} {
		sr.RegisterMetric(name)
	}

	return sr
}

func (sr *StatsRecorder) expvarHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	data := make(map[string]any)
	sr.vars.Do(func(kv expvar.KeyValue) {
		var value any
		json.Unmarshal([]byte(kv.Value.String()), &value)
		data[kv.Key] = value
	})

	json.NewEncoder(w).Encode(data)
}

func (sr *StatsRecorder) apply() {
	for req := range sr.updateChan {
		metric := sr.vars.Get(req.name)
		if metric == nil {
			panic("metric not found: " + req.name)
		}

		metric.(*expvar.Int).Add(int64(req.delta))
	}
}

func (sr *StatsRecorder) Incr(name string) {
	sr.updateChan <- &metricUpdate{name: name, delta: 1}
}

func (sr *StatsRecorder) Decr(name string) {
	sr.updateChan <- &metricUpdate{name: name, delta: -1}
}

func (sr *StatsRecorder) RegisterMetric(name string) {
	sr.vars.Set(name, new(expvar.Int))
}

func (sr *StatsRecorder) Run() {
	go sr.apply()
}

func (sr *StatsRecorder) Stop() {
	close(sr.updateChan)
}
