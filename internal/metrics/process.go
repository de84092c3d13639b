package metrics

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/annel0/pilotsim/internal/logging"
)

// Process метрики процесса сервера: аптайм, CPU и память
type Process struct {
	StartTime time.Time

	proc       *process.Process
	cpuPercent prometheus.Gauge
	rssBytes   prometheus.Gauge
	goroutines prometheus.Gauge
}

// NewProcess создаёт метрики процесса и регистрирует их в reg
func NewProcess(reg prometheus.Registerer) *Process {
	p := &Process{
		StartTime: time.Now(),
		cpuPercent: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "process_cpu_percent",
			Help:      "Загрузка CPU процессом, %.",
		}),
		rssBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "process_rss_bytes",
			Help:      "Резидентная память процесса.",
		}),
		goroutines: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "goroutines",
			Help:      "Число горутин.",
		}),
	}
	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		p.proc = proc
	} else {
		logging.GetComponentLogger("metrics").Warn("метрики процесса недоступны: %v", err)
	}

	reg.MustRegister(p.cpuPercent, p.rssBytes, p.goroutines)
	return p
}

// Run обновляет метрики процесса с периодом interval до отмены ctx
func (p *Process) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.Collect()
		case <-ctx.Done():
			return
		}
	}
}

// Collect снимает текущие значения
func (p *Process) Collect() {
	if cpuPct, err := p.CPUUsage(); err == nil {
		p.cpuPercent.Set(cpuPct)
	}
	if p.proc != nil {
		if mem, err := p.proc.MemoryInfo(); err == nil {
			p.rssBytes.Set(float64(mem.RSS))
		}
	}
	p.goroutines.Set(float64(runtime.NumGoroutine()))
}

// Uptime возвращает время работы сервера
func (p *Process) Uptime() string {
	uptime := time.Since(p.StartTime)

	days := int(uptime.Hours()) / 24
	hours := int(uptime.Hours()) % 24
	minutes := int(uptime.Minutes()) % 60
	seconds := int(uptime.Seconds()) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dд %dч %dм %dс", days, hours, minutes, seconds)
	case hours > 0:
		return fmt.Sprintf("%dч %dм %dс", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dм %dс", minutes, seconds)
	default:
		return fmt.Sprintf("%dс", seconds)
	}
}

// CPUUsage использование CPU процессом в процентах,
// при недоступности процесса: системное
func (p *Process) CPUUsage() (float64, error) {
	if p.proc != nil {
		if pct, err := p.proc.CPUPercent(); err == nil {
			return pct, nil
		}
	}
	pcts, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		return 0, err
	}
	if len(pcts) == 0 {
		return 0, fmt.Errorf("нет данных о CPU")
	}
	return pcts[0], nil
}

// MemoryStats сводка памяти рантайма для /health
func (p *Process) MemoryStats() map[string]interface{} {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return map[string]interface{}{
		"alloc_mb":      float64(m.Alloc) / 1024 / 1024,
		"sys_mb":        float64(m.Sys) / 1024 / 1024,
		"heap_alloc_mb": float64(m.HeapAlloc) / 1024 / 1024,
		"num_gc":        m.NumGC,
		"goroutines":    runtime.NumGoroutine(),
	}
}
