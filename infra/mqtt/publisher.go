package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	coremetrics "github.com/kilianp07/solarsim/core/metrics"
	coremon "github.com/kilianp07/solarsim/core/monitoring"
	"github.com/kilianp07/solarsim/infra/logger"
)

// DefaultSummaryTopic is used when the configuration leaves it empty.
const DefaultSummaryTopic = "solarsim/runs"

// SummaryPublisher is a metrics sink that publishes each run summary as JSON
// on <summary_topic>/<case>. When step_topic is set the ledger follows on
// <step_topic>/<run id>, one message per step.
type SummaryPublisher struct {
	cli          pahoClient
	summaryTopic string
	stepTopic    string
	qos          byte
	retain       bool
	maxRetries   int
	backoff      time.Duration
	logger       logger.Logger
}

// NewSummaryPublisher connects to the broker.
func NewSummaryPublisher(cfg Config) (*SummaryPublisher, error) {
	if cfg.ClientID == "" {
		cfg.ClientID = "solarsim-" + uuid.NewString()[:8]
	}
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	log := logger.New("mqtt_publisher")
	opts.OnConnect = func(paho.Client) { log.Infof("MQTT connected to %s", cfg.Broker) }
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}

	p := &SummaryPublisher{
		summaryTopic: cfg.SummaryTopic,
		stepTopic:    cfg.StepTopic,
		qos:          cfg.QoS,
		retain:       cfg.Retain,
		maxRetries:   cfg.MaxRetries,
		backoff:      time.Duration(cfg.BackoffMS) * time.Millisecond,
		logger:       log,
	}
	if p.summaryTopic == "" {
		p.summaryTopic = DefaultSummaryTopic
	}
	if p.maxRetries <= 0 {
		p.maxRetries = 3
	}
	if p.backoff <= 0 {
		p.backoff = 100 * time.Millisecond
	}

	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	p.cli = c
	return p, nil
}

// RecordRun publishes the summary.
func (p *SummaryPublisher) RecordRun(s coremetrics.RunSummary) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return err
	}
	topic := fmt.Sprintf("%s/%s", p.summaryTopic, s.Case)
	if err := p.publish(topic, payload); err != nil {
		coremon.CaptureException(err, map[string]string{"module": "mqtt", "run_id": s.RunID})
		return err
	}
	p.logger.Infof("published run %s to %s", s.RunID, topic)
	return nil
}

// RecordSteps publishes the ledger when a step topic is configured.
func (p *SummaryPublisher) RecordSteps(runID, _ string, steps []coremetrics.StepSample) error {
	if p.stepTopic == "" {
		return nil
	}
	topic := fmt.Sprintf("%s/%s", p.stepTopic, runID)
	for _, st := range steps {
		payload, err := json.Marshal(st)
		if err != nil {
			return err
		}
		if err := p.publish(topic, payload); err != nil {
			coremon.CaptureException(err, map[string]string{"module": "mqtt", "run_id": runID})
			return err
		}
	}
	return nil
}

func (p *SummaryPublisher) publish(topic string, payload []byte) error {
	var publishErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		token := p.cli.Publish(topic, p.qos, p.retain, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			return nil
		}
		p.logger.Errorf("publish attempt %d to %s failed: %v", attempt+1, topic, publishErr)
		if attempt < p.maxRetries {
			time.Sleep(p.backoff * time.Duration(1<<attempt))
		}
	}
	return fmt.Errorf("publish %s: %w", topic, publishErr)
}

// Close gracefully closes the MQTT connection.
func (p *SummaryPublisher) Close() error {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
	return nil
}
