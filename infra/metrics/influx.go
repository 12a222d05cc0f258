package metrics

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/solarsim/core/metrics"
	"github.com/kilianp07/solarsim/infra/logger"
)

// InfluxSink writes run summaries and ledgers to InfluxDB using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordRun writes one run_summary point stamped with the run start.
func (s *InfluxSink) RecordRun(r coremetrics.RunSummary) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, summaryPoint(r))
}

func summaryPoint(r coremetrics.RunSummary) *write.Point {
	return write.NewPointWithMeasurement("run_summary").
		AddTag("run_id", r.RunID).
		AddTag("case", r.Case).
		AddField("steps", r.Steps).
		AddField("pv_kwh", round3(r.PVKWh)).
		AddField("load_kwh", round3(r.LoadKWh)).
		AddField("import_kwh", round3(r.ImportKWh)).
		AddField("export_kwh", round3(r.ExportKWh)).
		AddField("cost", round3(r.Cost)).
		AddField("revenue", round3(r.Revenue)).
		AddField("net", round3(r.Net)).
		AddField("final_soc_wh", round3(r.FinalSoC)).
		AddField("self_consumption", round3(r.Stats.SelfConsumption)).
		AddField("self_sufficiency", round3(r.Stats.SelfSufficiency)).
		SetTime(r.Start)
}

// RecordSteps writes one simulation_step point per interval.
func (s *InfluxSink) RecordSteps(runID, caseName string, steps []coremetrics.StepSample) error {
	if len(steps) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	points := make([]*write.Point, 0, len(steps))
	for _, st := range steps {
		points = append(points, stepPoint(runID, caseName, st))
	}
	return s.writeAPI.WritePoint(ctx, points...)
}

func stepPoint(runID, caseName string, st coremetrics.StepSample) *write.Point {
	return write.NewPointWithMeasurement("simulation_step").
		AddTag("run_id", runID).
		AddTag("case", caseName).
		AddTag("action", st.Action).
		AddField("pv_w", round3(st.PVW)).
		AddField("load_w", round3(st.LoadW)).
		AddField("battery_w", round3(st.BatteryW)).
		AddField("residual_w", round3(st.ResidualW)).
		AddField("soc_wh", round3(st.SoCWh)).
		SetTime(st.Time)
}

// Close releases the client.
func (s *InfluxSink) Close() error {
	s.client.Close()
	return nil
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
