package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

const namespace = "whisperbox"

// Gate decisions.
const (
	GateShown     = "shown"
	GateProceeded = "proceeded"
	GateAbandoned = "abandoned"
	GateFailOpen  = "fail_open"
)

// Moderation enqueue results.
const (
	ModerationQueued  = "queued"
	ModerationSkipped = "skipped"
	ModerationFailed  = "failed"
)

// CrisisMetrics exposes counters/histograms for the crisis detection flow.
type CrisisMetrics struct {
	analysesTotal     *prometheus.CounterVec
	categoriesTotal   *prometheus.CounterVec
	gateTotal         *prometheus.CounterVec
	moderationTotal   *prometheus.CounterVec
	moderationLatency *prometheus.HistogramVec
	keywordLoadsTotal *prometheus.CounterVec
	keywordCategories prometheus.Gauge
}

func NewCrisisMetrics(reg prometheus.Registerer) *CrisisMetrics {
	m := &CrisisMetrics{
		analysesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "crisis",
			Name:      "analyses_total",
			Help:      "Total content analyses by resulting level",
		}, []string{"level"}),
		categoriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "crisis",
			Name:      "categories_detected_total",
			Help:      "Total detections per crisis category",
		}, []string{"category"}),
		gateTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "crisis",
			Name:      "gate_decisions_total",
			Help:      "Resource gate outcomes",
		}, []string{"decision"}),
		moderationTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "moderation",
			Name:      "enqueue_total",
			Help:      "Moderation queue writes by result",
		}, []string{"result"}),
		moderationLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "moderation",
			Name:      "enqueue_latency_seconds",
			Help:      "Latency of moderation queue writes",
			Buckets:   prometheus.DefBuckets,
		}, []string{"result"}),
		keywordLoadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "crisis",
			Name:      "keyword_loads_total",
			Help:      "Keyword database loads by result",
		}, []string{"result"}),
		keywordCategories: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "crisis",
			Name:      "keyword_categories",
			Help:      "Categories in the active keyword database",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.analysesTotal,
		m.categoriesTotal,
		m.gateTotal,
		m.moderationTotal,
		m.moderationLatency,
		m.keywordLoadsTotal,
		m.keywordCategories,
	)
	return m
}

func (m *CrisisMetrics) ObserveAnalysis(level string, categories []string) {
	if m == nil {
		return
	}
	if level == "" {
		level = "none"
	}
	m.analysesTotal.WithLabelValues(level).Inc()
	for _, c := range categories {
		m.categoriesTotal.WithLabelValues(c).Inc()
	}
}

func (m *CrisisMetrics) ObserveGate(decision string) {
	if m == nil {
		return
	}
	m.gateTotal.WithLabelValues(decision).Inc()
}

func (m *CrisisMetrics) ObserveModeration(result string, seconds float64) {
	if m == nil {
		return
	}
	m.moderationTotal.WithLabelValues(result).Inc()
	if result != ModerationSkipped {
		m.moderationLatency.WithLabelValues(result).Observe(seconds)
	}
}

func (m *CrisisMetrics) ObserveKeywordLoad(result string, categories int) {
	if m == nil {
		return
	}
	m.keywordLoadsTotal.WithLabelValues(result).Inc()
	if result == "ok" {
		m.keywordCategories.Set(float64(categories))
	}
}

// DetectionStats summarizes the gate and moderation counters. It carries no
// user or letter identifiers.
type DetectionStats struct {
	AnalysesByLevel       map[string]float64 `json:"analysesByLevel"`
	ResourcesShown        float64            `json:"resourcesShown"`
	UsersContinuedPosting float64            `json:"usersContinuedPosting"`
	UsersAbandoned        float64            `json:"usersAbandoned"`
	FailOpen              float64            `json:"failOpen"`
	ModerationQueued      float64            `json:"moderationQueued"`
	ModerationFailed      float64            `json:"moderationFailed"`
}

// Snapshot reads the crisis counters back from gatherer.
func Snapshot(gatherer prometheus.Gatherer) DetectionStats {
	stats := DetectionStats{AnalysesByLevel: map[string]float64{}}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mfs, err := gatherer.Gather()
	if err != nil {
		return stats
	}
	for _, mf := range mfs {
		if mf == nil {
			continue
		}
		switch mf.GetName() {
		case namespace + "_crisis_analyses_total":
			for _, metric := range mf.GetMetric() {
				stats.AnalysesByLevel[labelValue(metric, "level")] += counterValue(metric)
			}
		case namespace + "_crisis_gate_decisions_total":
			stats.ResourcesShown = sumWhere(mf, "decision", GateShown)
			stats.UsersContinuedPosting = sumWhere(mf, "decision", GateProceeded)
			stats.UsersAbandoned = sumWhere(mf, "decision", GateAbandoned)
			stats.FailOpen = sumWhere(mf, "decision", GateFailOpen)
		case namespace + "_moderation_enqueue_total":
			stats.ModerationQueued = sumWhere(mf, "result", ModerationQueued)
			stats.ModerationFailed = sumWhere(mf, "result", ModerationFailed)
		}
	}
	return stats
}

func sumWhere(mf *dto.MetricFamily, name, value string) float64 {
	var total float64
	for _, metric := range mf.GetMetric() {
		if labelValue(metric, name) == value {
			total += counterValue(metric)
		}
	}
	return total
}

func counterValue(metric *dto.Metric) float64 {
	if metric == nil || metric.GetCounter() == nil {
		return 0
	}
	return metric.GetCounter().GetValue()
}

func labelValue(metric *dto.Metric, name string) string {
	if metric == nil {
		return ""
	}
	for _, lp := range metric.GetLabel() {
		if lp != nil && lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}
