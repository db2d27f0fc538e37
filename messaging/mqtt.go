package messaging

import (
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"tradecore/config"
)

const mqttQoS = 1

type mqttBackend struct {
	cfg    config.MQTTConfig
	client mqtt.Client
	log    *zap.SugaredLogger
}

func (b *mqttBackend) connect() error {
	broker := fmt.Sprintf("tcp://%s:%d", b.cfg.Broker, b.cfg.Port)
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(b.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			b.log.Warnf("mqtt connection lost: %v", err)
		})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		client.Disconnect(0)
		return fmt.Errorf("mqtt connect to %s: timed out", broker)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	b.client = client
	b.log.Infof("mqtt connected to %s", broker)
	return nil
}

func (b *mqttBackend) publish(topic string, payload []byte) error {
	if !b.client.IsConnected() {
		return fmt.Errorf("mqtt not connected")
	}
	token := b.client.Publish(topic, mqttQoS, false, payload)
	token.Wait()
	return token.Error()
}

func (b *mqttBackend) subscribe(topic string, handler func(payload []byte)) error {
	token := b.client.Subscribe(topic, mqttQoS, func(_ mqtt.Client, msg mqtt.Message) {
		handler(msg.Payload())
	})
	token.Wait()
	return token.Error()
}

func (b *mqttBackend) connected() bool { return b.client.IsConnected() }

func (b *mqttBackend) close() { b.client.Disconnect(1000) }
