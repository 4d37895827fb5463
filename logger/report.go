package logger

import (
	"context"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	gnet "github.com/shirou/gopsutil/v3/net"

	"github.com/aws/aws-sdk-go-v2/aws"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

type flowStat struct {
	messages int64
	bytes    int64
}

var (
	errorsFetch     int64
	errorsExport    int64
	warnsFetch      int64
	warnsExport     int64
	venueCalls      int64
	recordsEnriched int64
	exportWrites    int64
	flows           sync.Map // map[string]*flowStat
)

func recordWarn(component string) {
	if strings.Contains(component, "writer") {
		atomic.AddInt64(&warnsExport, 1)
	} else {
		atomic.AddInt64(&warnsFetch, 1)
	}
}

func recordError(component string) {
	if strings.Contains(component, "writer") {
		atomic.AddInt64(&errorsExport, 1)
	} else {
		atomic.AddInt64(&errorsFetch, 1)
	}
}

// IncrementVenueCall records one completed request/response exchange with
// the venue and the size of its response payload.
func IncrementVenueCall(size int) {
	atomic.AddInt64(&venueCalls, 1)
	recordFlow("venue_ws", size)
}

// AddRecordsEnriched records how many rows the enrichment pipeline produced.
func AddRecordsEnriched(count int) {
	atomic.AddInt64(&recordsEnriched, int64(count))
}

// IncrementExportWrite records one CSV or parquet export and its byte size.
func IncrementExportWrite(name string, size int) {
	atomic.AddInt64(&exportWrites, 1)
	recordFlow(name, size)
}

func recordFlow(name string, size int) {
	v, _ := flows.LoadOrStore(name, &flowStat{})
	fs := v.(*flowStat)
	atomic.AddInt64(&fs.messages, 1)
	atomic.AddInt64(&fs.bytes, int64(size))
}

func startReport(ctx context.Context, log *Log, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		for {
			select {
			case <-ctx.Done():
				ticker.Stop()
				return
			case <-ticker.C:
				logReport(ctx, log)
			}
		}
	}()
}

// StartReport begins periodic logging of system and flow statistics.
func StartReport(ctx context.Context, log *Log, interval time.Duration) {
	startReport(ctx, log, interval)
}

func logReport(ctx context.Context, log *Log) {
	cpuPercent, _ := cpu.Percent(0, false)
	memStats, _ := mem.VirtualMemory()
	diskStats, _ := disk.Usage("/")
	netStats, _ := gnet.IOCounters(false)
	flowData := map[string]map[string]int64{}
	flows.Range(func(k, v any) bool {
		name := k.(string)
		fs := v.(*flowStat)
		flowData[name] = map[string]int64{
			"messages": atomic.LoadInt64(&fs.messages),
			"bytes":    atomic.LoadInt64(&fs.bytes),
		}
		return true
	})

	cpuPct := 0.0
	if len(cpuPercent) > 0 {
		cpuPct = cpuPercent[0]
	}

	bytesSent := uint64(0)
	bytesRecv := uint64(0)
	if len(netStats) > 0 {
		bytesSent = netStats[0].BytesSent
		bytesRecv = netStats[0].BytesRecv
	}

	fields := Fields{
		"errors_fetch":     atomic.LoadInt64(&errorsFetch),
		"errors_export":    atomic.LoadInt64(&errorsExport),
		"warns_fetch":      atomic.LoadInt64(&warnsFetch),
		"warns_export":     atomic.LoadInt64(&warnsExport),
		"venue_calls":      atomic.LoadInt64(&venueCalls),
		"records_enriched": atomic.LoadInt64(&recordsEnriched),
		"export_writes":    atomic.LoadInt64(&exportWrites),
		"goroutines":       runtime.NumGoroutine(),
		"cpu_percent":      cpuPct,
		"memory_mb":        int64(memStats.Used) / 1024 / 1024,
		"disk_mb":          int64(diskStats.Used) / 1024 / 1024,
		"flows":            flowData,
		"net_bytes_sent":   int64(bytesSent),
		"net_bytes_recv":   int64(bytesRecv),
	}

	log.WithComponent("report").WithFields(fields).Info("runtime report")

	var data []cwtypes.MetricDatum
	data = append(data,
		cwtypes.MetricDatum{MetricName: aws.String("Flow-CPUPercent"), Unit: cwtypes.StandardUnitPercent, Value: aws.Float64(cpuPct)},
		cwtypes.MetricDatum{MetricName: aws.String("Flow-MemoryMB"), Unit: cwtypes.StandardUnitMegabytes, Value: aws.Float64(float64(memStats.Used) / 1024 / 1024)},
		cwtypes.MetricDatum{MetricName: aws.String("Flow-DiskMB"), Unit: cwtypes.StandardUnitMegabytes, Value: aws.Float64(float64(diskStats.Used) / 1024 / 1024)},
		cwtypes.MetricDatum{MetricName: aws.String("Flow-ErrorsFetch"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["errors_fetch"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("Flow-ErrorsExport"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["errors_export"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("Flow-WarnsFetch"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["warns_fetch"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("Flow-WarnsExport"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["warns_export"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("Flow-VenueCalls"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["venue_calls"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("Flow-RecordsEnriched"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["records_enriched"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("Flow-ExportWrites"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["export_writes"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("Flow-NetBytesSent"), Unit: cwtypes.StandardUnitBytes, Value: aws.Float64(float64(bytesSent))},
		cwtypes.MetricDatum{MetricName: aws.String("Flow-NetBytesRecv"), Unit: cwtypes.StandardUnitBytes, Value: aws.Float64(float64(bytesRecv))},
	)

	for name, stats := range flowData {
		data = append(data,
			cwtypes.MetricDatum{
				MetricName: aws.String("Flow-ChannelMessages"),
				Unit:       cwtypes.StandardUnitCount,
				Dimensions: []cwtypes.Dimension{{Name: aws.String("Flow"), Value: aws.String(name)}},
				Value:      aws.Float64(float64(stats["messages"])),
			},
			cwtypes.MetricDatum{
				MetricName: aws.String("Flow-ChannelBytes"),
				Unit:       cwtypes.StandardUnitBytes,
				Dimensions: []cwtypes.Dimension{{Name: aws.String("Flow"), Value: aws.String(name)}},
				Value:      aws.Float64(float64(stats["bytes"])),
			},
		)
	}

	publishMetrics(ctx, data)
}
