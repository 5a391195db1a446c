// Package metrics 提供对话服务的业务指标收集。
package metrics

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// ChatMetrics 对话服务业务指标。
type ChatMetrics struct {
	// 轮次指标
	turnsTotal     uint64 // 总轮次
	turnsSucceeded uint64 // 成功轮次
	turnsFailed    uint64 // 失败轮次
	turnsRejected  uint64 // 同一会话并发提问被拒绝次数
	fallbackAnswer uint64 // 模型返回空回答时使用兜底回答的次数
	turnDuration   float64

	// 检索指标
	retrievalTotal    uint64
	retrievalDuration float64
	retrievalErrors   uint64

	// 生成指标
	generationTotal    uint64
	generationDuration float64
	generationErrors   uint64

	// 会话指标
	sessionsCreated uint64

	// 索引指标
	documentsIndexed uint64
	chunksIndexed    uint64
	indexErrors      uint64

	durationMu sync.Mutex
	startTime  time.Time
}

var (
	globalChatMetrics *ChatMetrics
	chatMetricsOnce   sync.Once
)

// New 创建独立的指标实例。
func New() *ChatMetrics {
	return &ChatMetrics{startTime: time.Now()}
}

// GetChatMetrics 获取全局对话指标实例。
func GetChatMetrics() *ChatMetrics {
	chatMetricsOnce.Do(func() {
		globalChatMetrics = New()
	})
	return globalChatMetrics
}

// RecordTurn 记录一轮问答的结果。
func (m *ChatMetrics) RecordTurn(duration time.Duration, err error) {
	atomic.AddUint64(&m.turnsTotal, 1)
	if err != nil {
		atomic.AddUint64(&m.turnsFailed, 1)
		return
	}
	atomic.AddUint64(&m.turnsSucceeded, 1)

	m.durationMu.Lock()
	m.turnDuration += duration.Seconds()
	m.durationMu.Unlock()
}

// RecordRejected 记录因已有进行中的轮次而被拒绝的提问。
func (m *ChatMetrics) RecordRejected() {
	atomic.AddUint64(&m.turnsRejected, 1)
}

// RecordFallback 记录兜底回答。
func (m *ChatMetrics) RecordFallback() {
	atomic.AddUint64(&m.fallbackAnswer, 1)
}

// RecordRetrieval 记录检索操作。
func (m *ChatMetrics) RecordRetrieval(duration time.Duration, err error) {
	atomic.AddUint64(&m.retrievalTotal, 1)
	if err != nil {
		atomic.AddUint64(&m.retrievalErrors, 1)
		return
	}

	m.durationMu.Lock()
	m.retrievalDuration += duration.Seconds()
	m.durationMu.Unlock()
}

// RecordGeneration 记录生成调用。
func (m *ChatMetrics) RecordGeneration(duration time.Duration, err error) {
	atomic.AddUint64(&m.generationTotal, 1)
	if err != nil {
		atomic.AddUint64(&m.generationErrors, 1)
		return
	}

	m.durationMu.Lock()
	m.generationDuration += duration.Seconds()
	m.durationMu.Unlock()
}

// RecordSessionCreated 记录新会话。
func (m *ChatMetrics) RecordSessionCreated() {
	atomic.AddUint64(&m.sessionsCreated, 1)
}

// RecordIndexing 记录索引构建。
func (m *ChatMetrics) RecordIndexing(documents, chunks int, err error) {
	if err != nil {
		atomic.AddUint64(&m.indexErrors, 1)
		return
	}
	atomic.AddUint64(&m.documentsIndexed, uint64(documents))
	atomic.AddUint64(&m.chunksIndexed, uint64(chunks))
}

// Snapshot 是某一时刻的指标快照。
type Snapshot struct {
	Turns         TurnStats     `json:"turns"`
	Retrieval     StageStats    `json:"retrieval"`
	Generation    StageStats    `json:"generation"`
	Sessions      SessionStats  `json:"sessions"`
	Indexing      IndexingStats `json:"indexing"`
	UptimeSeconds float64       `json:"uptime_seconds"`
}

// TurnStats 轮次统计。
type TurnStats struct {
	Total           uint64  `json:"total"`
	Succeeded       uint64  `json:"succeeded"`
	Failed          uint64  `json:"failed"`
	Rejected        uint64  `json:"rejected"`
	Fallback        uint64  `json:"fallback"`
	AvgDurationSecs float64 `json:"avg_duration_secs"`
}

// StageStats 单个管线阶段的统计。
type StageStats struct {
	Total             uint64  `json:"total"`
	Errors            uint64  `json:"errors"`
	TotalDurationSecs float64 `json:"total_duration_secs"`
	AvgDurationSecs   float64 `json:"avg_duration_secs"`
}

// SessionStats 会话统计。Active 由调用方填写。
type SessionStats struct {
	Created uint64 `json:"created"`
	Active  int    `json:"active"`
}

// IndexingStats 索引统计。
type IndexingStats struct {
	DocumentsIndexed uint64 `json:"documents_indexed"`
	ChunksIndexed    uint64 `json:"chunks_indexed"`
	Errors           uint64 `json:"errors"`
}

// Snapshot 返回当前统计信息（用于 API）。
func (m *ChatMetrics) Snapshot() Snapshot {
	m.durationMu.Lock()
	turnDuration := m.turnDuration
	retrievalDuration := m.retrievalDuration
	generationDuration := m.generationDuration
	startTime := m.startTime
	m.durationMu.Unlock()

	succeeded := atomic.LoadUint64(&m.turnsSucceeded)
	retrievalTotal := atomic.LoadUint64(&m.retrievalTotal)
	retrievalErrors := atomic.LoadUint64(&m.retrievalErrors)
	generationTotal := atomic.LoadUint64(&m.generationTotal)
	generationErrors := atomic.LoadUint64(&m.generationErrors)

	return Snapshot{
		Turns: TurnStats{
			Total:           atomic.LoadUint64(&m.turnsTotal),
			Succeeded:       succeeded,
			Failed:          atomic.LoadUint64(&m.turnsFailed),
			Rejected:        atomic.LoadUint64(&m.turnsRejected),
			Fallback:        atomic.LoadUint64(&m.fallbackAnswer),
			AvgDurationSecs: average(turnDuration, succeeded),
		},
		Retrieval: StageStats{
			Total:             retrievalTotal,
			Errors:            retrievalErrors,
			TotalDurationSecs: retrievalDuration,
			AvgDurationSecs:   average(retrievalDuration, retrievalTotal-retrievalErrors),
		},
		Generation: StageStats{
			Total:             generationTotal,
			Errors:            generationErrors,
			TotalDurationSecs: generationDuration,
			AvgDurationSecs:   average(generationDuration, generationTotal-generationErrors),
		},
		Sessions: SessionStats{
			Created: atomic.LoadUint64(&m.sessionsCreated),
		},
		Indexing: IndexingStats{
			DocumentsIndexed: atomic.LoadUint64(&m.documentsIndexed),
			ChunksIndexed:    atomic.LoadUint64(&m.chunksIndexed),
			Errors:           atomic.LoadUint64(&m.indexErrors),
		},
		UptimeSeconds: time.Since(startTime).Seconds(),
	}
}

func average(total float64, n uint64) float64 {
	if n == 0 {
		return 0
	}
	return total / float64(n)
}

// Export 导出 Prometheus 文本格式指标。
func (m *ChatMetrics) Export(namespace, subsystem string) string {
	prefix := namespace
	if subsystem != "" {
		prefix = prefix + "_" + subsystem
	}
	s := m.Snapshot()

	var sb strings.Builder
	writeMetric(&sb, prefix, "turns_total", "counter", "Total number of chat turns.", s.Turns.Total)
	writeMetric(&sb, prefix, "turns_failed_total", "counter", "Number of failed chat turns.", s.Turns.Failed)
	writeMetric(&sb, prefix, "turns_rejected_total", "counter", "Number of turns rejected because one was already in flight.", s.Turns.Rejected)
	writeMetric(&sb, prefix, "turns_fallback_total", "counter", "Number of turns answered with the fallback answer.", s.Turns.Fallback)
	writeMetric(&sb, prefix, "retrieval_total", "counter", "Total number of retrievals.", s.Retrieval.Total)
	writeMetric(&sb, prefix, "retrieval_errors_total", "counter", "Number of retrieval errors.", s.Retrieval.Errors)
	writeMetric(&sb, prefix, "retrieval_duration_seconds_total", "counter", "Total retrieval duration.", s.Retrieval.TotalDurationSecs)
	writeMetric(&sb, prefix, "generation_total", "counter", "Total number of generation calls.", s.Generation.Total)
	writeMetric(&sb, prefix, "generation_errors_total", "counter", "Number of generation errors.", s.Generation.Errors)
	writeMetric(&sb, prefix, "generation_duration_seconds_total", "counter", "Total generation duration.", s.Generation.TotalDurationSecs)
	writeMetric(&sb, prefix, "sessions_created_total", "counter", "Total sessions created.", s.Sessions.Created)
	writeMetric(&sb, prefix, "chunks_indexed_total", "counter", "Total chunks indexed.", s.Indexing.ChunksIndexed)
	writeMetric(&sb, prefix, "uptime_seconds", "gauge", "Service uptime in seconds.", s.UptimeSeconds)
	return sb.String()
}

func writeMetric(sb *strings.Builder, prefix, name, kind, help string, value any) {
	full := prefix + "_" + name
	fmt.Fprintf(sb, "# HELP %s %s\n", full, help)
	fmt.Fprintf(sb, "# TYPE %s %s\n", full, kind)
	switch v := value.(type) {
	case float64:
		fmt.Fprintf(sb, "%s %.6f\n\n", full, v)
	default:
		fmt.Fprintf(sb, "%s %v\n\n", full, v)
	}
}

// Reset 重置所有指标（仅用于测试）。
func (m *ChatMetrics) Reset() {
	for _, p := range []*uint64{
		&m.turnsTotal, &m.turnsSucceeded, &m.turnsFailed, &m.turnsRejected, &m.fallbackAnswer,
		&m.retrievalTotal, &m.retrievalErrors, &m.generationTotal, &m.generationErrors,
		&m.sessionsCreated, &m.documentsIndexed, &m.chunksIndexed, &m.indexErrors,
	} {
		atomic.StoreUint64(p, 0)
	}

	m.durationMu.Lock()
	m.turnDuration = 0
	m.retrievalDuration = 0
	m.generationDuration = 0
	m.startTime = time.Now()
	m.durationMu.Unlock()
}
