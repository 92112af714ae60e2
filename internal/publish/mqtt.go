// Package publish mirrors the display slots to an MQTT broker using the
// Home Assistant discovery convention, so each history slot shows up as
// a sensor entity without any configuration on the Home Assistant side.
//
// Topic layout (prefix and object id come from configuration):
//
//	<discovery_prefix>/sensor/<object_id>_slot_<n>/config   retained discovery payload
//	kopiahook/<object_id>/slot_<n>/state                    slot label ("unknown" while empty)
//	kopiahook/<object_id>/slot_<n>/attributes               slot attributes as JSON
package publish

import (
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	jsoniter "github.com/json-iterator/go"
	"github.com/labstack/gommon/log"

	"github.com/spacefrags/kopiahook/internal/config"
	"github.com/spacefrags/kopiahook/internal/sensor"
)

// unknownState is published while a slot is empty; Home Assistant maps
// it onto its own unknown sentinel.
const unknownState = "unknown"

// Publisher keeps the slot sensors in sync with an MQTT broker.
type Publisher struct {
	cfg    config.MQTTConfig
	slots  []*sensor.Slot
	client mqtt.Client
	logger *log.Logger
}

// New creates a publisher for the given slots. Connect must be called
// before PublishAll.
func New(cfg config.MQTTConfig, slots []*sensor.Slot, logger *log.Logger) *Publisher {
	return &Publisher{cfg: cfg, slots: slots, logger: logger}
}

// Connect establishes the broker connection. Reconnects are handled by
// the MQTT library; every (re)connect republishes discovery and state so
// the broker's retained view is never stale.
func (p *Publisher) Connect() error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", p.cfg.Broker, p.cfg.Port))
	opts.SetClientID(fmt.Sprintf("kopiahook-%s-%d", p.cfg.ObjectID, time.Now().Unix()))
	if p.cfg.Username != "" {
		opts.SetUsername(p.cfg.Username)
		opts.SetPassword(p.cfg.Password)
	}

	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(1 * time.Minute)

	opts.SetOnConnectHandler(func(mqtt.Client) {
		p.logger.Infof("connected to MQTT broker %s:%d", p.cfg.Broker, p.cfg.Port)
		if err := p.publishDiscovery(); err != nil {
			p.logger.Errorf("publish discovery: %v", err)
		}
		p.PublishAll()
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		p.logger.Warnf("MQTT connection lost: %v", err)
	})

	p.client = mqtt.NewClient(opts)
	token := p.client.Connect()
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("connect to MQTT broker: %w", token.Error())
	}
	return nil
}

// PublishAll publishes every slot's current state and attributes. Wired
// as a history store subscriber, so each webhook callback refreshes all
// slots (every slot shifts on update).
func (p *Publisher) PublishAll() {
	if p.client == nil || !p.client.IsConnected() {
		return
	}
	for _, s := range p.slots {
		view := s.View()

		state := view.Label
		if view.State == sensor.StateEmpty || state == "" {
			state = unknownState
		}
		p.publish(p.stateTopic(s.Index()), state)

		attrs := "{}"
		if len(view.Attributes) > 0 {
			blob, err := jsoniter.MarshalToString(view.Attributes)
			if err != nil {
				p.logger.Errorf("marshal attributes for slot %d: %v", s.Index(), err)
				continue
			}
			attrs = blob
		}
		p.publish(p.attributesTopic(s.Index()), attrs)
	}
}

// Close publishes nothing further and disconnects from the broker.
func (p *Publisher) Close() {
	if p.client != nil {
		p.client.Disconnect(250)
	}
}

func (p *Publisher) publish(topic, payload string) {
	token := p.client.Publish(topic, 0, true, payload)
	go func() {
		if token.Wait() && token.Error() != nil {
			p.logger.Warnf("publish %s: %v", topic, token.Error())
		}
	}()
}

func (p *Publisher) publishDiscovery() error {
	for _, s := range p.slots {
		blob, err := jsoniter.MarshalToString(p.discoveryPayload(s.Index()))
		if err != nil {
			return fmt.Errorf("marshal discovery for slot %d: %w", s.Index(), err)
		}
		p.publish(p.discoveryTopic(s.Index()), blob)
	}
	return nil
}

func (p *Publisher) discoveryTopic(i int) string {
	return fmt.Sprintf("%s/sensor/%s_slot_%d/config", p.cfg.DiscoveryPrefix, p.cfg.ObjectID, i+1)
}

func (p *Publisher) stateTopic(i int) string {
	return fmt.Sprintf("kopiahook/%s/slot_%d/state", p.cfg.ObjectID, i+1)
}

func (p *Publisher) attributesTopic(i int) string {
	return fmt.Sprintf("kopiahook/%s/slot_%d/attributes", p.cfg.ObjectID, i+1)
}

// discoveryPayload builds the Home Assistant discovery config for one
// slot sensor. All slots share one device entry so they group together.
func (p *Publisher) discoveryPayload(i int) map[string]interface{} {
	return map[string]interface{}{
		"name":                  fmt.Sprintf("Snapshot Slot %d", i+1),
		"unique_id":             fmt.Sprintf("%s_snapshot_%d", p.cfg.ObjectID, i+1),
		"state_topic":           p.stateTopic(i),
		"json_attributes_topic": p.attributesTopic(i),
		"icon":                  "mdi:backup-restore",
		"device": map[string]interface{}{
			"identifiers":  []string{"kopiahook_" + p.cfg.ObjectID},
			"name":         "Kopia Status (" + p.cfg.ObjectID + ")",
			"manufacturer": "Kopia",
			"model":        "Webhook History Listener",
		},
	}
}
