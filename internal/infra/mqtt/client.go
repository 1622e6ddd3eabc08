package mqtt

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

const (
	_defaultQoS      = 0 // At most once
	_defaultRetained = false
	_publishTimeout  = 5 * time.Second
	_connectTimeout  = 5 * time.Second
)

type Client interface {
	Publish(topic string, msg any) error
	Disconnect()
}

type SimpleClientOpts struct {
	Broker   string
	ClientID string
	Username string
	Password string
}

func NewSimpleClient(opts SimpleClientOpts) (*SimpleClient, error) {
	onConnectHandler := func(client paho.Client) {
		slog.Info("connected to MQTT broker")
	}
	onConnectionLostHandler := func(_ paho.Client, err error) {
		slog.Error("connection lost to MQTT broker", slog.Any("error", err))
	}

	pahoOpts := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetUsername(opts.Username).
		SetPassword(opts.Password).
		SetOnConnectHandler(onConnectHandler).
		SetAutoReconnect(true).
		SetConnectionLostHandler(onConnectionLostHandler).
		SetKeepAlive(10 * time.Second).
		SetConnectTimeout(_connectTimeout)

	client := paho.NewClient(pahoOpts)
	token := client.Connect()
	token.WaitTimeout(_connectTimeout)
	if token.Error() != nil {
		return nil, fmt.Errorf("connecting to broker %s: %w", opts.Broker, token.Error())
	}

	return &SimpleClient{client: client}, nil
}

var _ Client = (*SimpleClient)(nil)

type SimpleClient struct {
	client paho.Client
}

func (c *SimpleClient) Publish(topic string, msg any) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshaling message: %w", err)
	}
	token := c.client.Publish(topic, _defaultQoS, _defaultRetained, payload)
	token.WaitTimeout(_publishTimeout)
	if token.Error() != nil {
		return fmt.Errorf("publishing to topic %s: %w", topic, token.Error())
	}

	return nil
}

func (c *SimpleClient) Disconnect() {
	waitForInMilliseconds := 5 * 1000
	c.client.Disconnect(uint(waitForInMilliseconds))
}
