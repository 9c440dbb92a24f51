package publisher

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/jgoulah/redeemstat/internal/config"
	"github.com/jgoulah/redeemstat/pkg/models"
)

// Publisher sends analysis reports to MQTT and/or Home Assistant
type Publisher struct {
	client      mqtt.Client
	topicPrefix string
	haConfig    config.HAConfig
	http        *http.Client
	logger      *slog.Logger
}

// New creates a new publisher. At least one of MQTT or Home Assistant must be enabled.
func New(mqttCfg config.MQTTConfig, haCfg config.HAConfig, logger *slog.Logger) (*Publisher, error) {
	if !mqttCfg.Enabled && !haCfg.Enabled {
		return nil, fmt.Errorf("neither MQTT nor Home Assistant publishing is enabled in config")
	}
	if logger == nil {
		logger = slog.Default()
	}

	if haCfg.Enabled {
		if haCfg.URL == "" {
			return nil, fmt.Errorf("Home Assistant URL is required when enabled")
		}
		if haCfg.Token == "" {
			return nil, fmt.Errorf("Home Assistant token is required when enabled")
		}
		if haCfg.EntityID == "" {
			return nil, fmt.Errorf("Home Assistant entity_id is required when enabled")
		}
	}

	var client mqtt.Client
	if mqttCfg.Enabled {
		if mqttCfg.Broker == "" {
			return nil, fmt.Errorf("MQTT broker address is required when enabled")
		}

		opts := mqtt.NewClientOptions()
		opts.AddBroker(fmt.Sprintf("tcp://%s", mqttCfg.Broker))
		opts.SetClientID("redeemstat")
		opts.SetAutoReconnect(true)
		opts.SetConnectRetry(true)
		opts.SetConnectTimeout(10 * time.Second)

		if mqttCfg.Username != "" {
			opts.SetUsername(mqttCfg.Username)
		}
		if mqttCfg.Password != "" {
			opts.SetPassword(mqttCfg.Password)
		}

		client = mqtt.NewClient(opts)
		if token := client.Connect(); token.Wait() && token.Error() != nil {
			return nil, fmt.Errorf("connecting to MQTT broker: %w", token.Error())
		}
	}

	return &Publisher{
		client:      client,
		topicPrefix: mqttCfg.GetTopicPrefix(),
		haConfig:    haCfg,
		http:        &http.Client{Timeout: 10 * time.Second},
		logger:      logger,
	}, nil
}

// ReportTopic returns the MQTT topic a campaign's report is published on
func ReportTopic(prefix, campaign string) string {
	if campaign == "" {
		campaign = "all"
	}
	campaign = strings.NewReplacer("/", "_", "+", "_", "#", "_", " ", "_").Replace(campaign)
	return fmt.Sprintf("%s/%s/report", prefix, campaign)
}

// ReportPayload is the message body published for a report
type ReportPayload struct {
	ID          string                `json:"id"`
	Campaign    string                `json:"campaign"`
	GeneratedAt string                `json:"generated_at"`
	Report      models.AnalysisReport `json:"report"`
}

func newReportPayload(rep models.StoredReport) ReportPayload {
	return ReportPayload{
		ID:          rep.ID,
		Campaign:    rep.Campaign,
		GeneratedAt: rep.GeneratedAt.UTC().Format(time.RFC3339),
		Report:      rep.Report,
	}
}

// Publish sends a stored report to every enabled destination
func (p *Publisher) Publish(rep models.StoredReport) error {
	if p.client != nil {
		if err := p.publishMQTT(rep); err != nil {
			return err
		}
	}
	if p.haConfig.Enabled {
		if err := p.publishHA(rep); err != nil {
			return err
		}
	}
	return nil
}

func (p *Publisher) publishMQTT(rep models.StoredReport) error {
	body, err := json.Marshal(newReportPayload(rep))
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	topic := ReportTopic(p.topicPrefix, rep.Campaign)
	token := p.client.Publish(topic, 1, true, body)
	if !token.WaitTimeout(10*time.Second) {
		return fmt.Errorf("publishing to %s: timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publishing to %s: %w", topic, err)
	}

	p.logger.Debug("published report to MQTT", "topic", topic, "report_id", rep.ID)
	return nil
}

// HAState is the body of a Home Assistant state update
type HAState struct {
	State      string         `json:"state"`
	Attributes map[string]any `json:"attributes"`
}

func (p *Publisher) publishHA(rep models.StoredReport) error {
	apiURL := fmt.Sprintf("%s/api/states/%s", strings.TrimRight(p.haConfig.URL, "/"), p.haConfig.EntityID)

	payload := HAState{
		State: fmt.Sprintf("%d", rep.Report.ProjectedMonthlyUsage),
		Attributes: map[string]any{
			"friendly_name":       "Projected monthly redemptions",
			"unit_of_measurement": "codes",
			"campaign":            rep.Campaign,
			"report_id":           rep.ID,
			"generated_at":        rep.GeneratedAt.UTC().Format(time.RFC3339),
			"redemption_rate":     rep.Report.RedemptionRate,
			"peak_usage_days":     rep.Report.PeakUsageDays,
			"insights":            rep.Report.Insights,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, apiURL, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.haConfig.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return fmt.Errorf("request error: %w", err)
	}
	defer resp.Body.Close()

	// 200 updates an existing entity, 201 creates it
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("HTTP error: status %d, response: %s", resp.StatusCode, string(respBody))
	}

	p.logger.Debug("published report to Home Assistant", "entity_id", p.haConfig.EntityID, "report_id", rep.ID)
	return nil
}

// Close disconnects from the MQTT broker
func (p *Publisher) Close() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}
