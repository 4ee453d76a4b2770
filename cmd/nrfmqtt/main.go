package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"

	mqtt "github.com/soypat/natiu-mqtt"

	"github.com/soypat/nrf24"
	"github.com/soypat/nrf24/internal/hostbus"
)

var pubFlags, _ = mqtt.NewPublishFlags(mqtt.QoS0, false, false)

// update is a set request received on <prefix>/set/<setting>.
type update struct {
	setting string
	payload string
}

type message struct {
	topic   string
	payload string
}

type bridge struct {
	dev     *nrf24.Device
	prefix  string
	logger  *slog.Logger
	pending []update
}

func main() {
	broker := flag.String("broker", "127.0.0.1:1883", "MQTT broker address.")
	prefix := flag.String("prefix", "nrf24", "Topic prefix.")
	clientID := flag.String("id", "nrf24-bridge", "MQTT client identifier.")
	var opts hostbus.Options
	flag.StringVar(&opts.SPI, "spi", "", "SPI port name. Empty selects the first port found.")
	flag.StringVar(&opts.CE, "ce", "", "GPIO name of the CE line.")
	flag.BoolVar(&opts.Sim, "sim", false, "Run against a simulated chip.")
	verbose := flag.Bool("v", false, "Log driver calls.")
	flag.Parse()

	lvl := slog.LevelInfo
	if *verbose {
		lvl = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	if *verbose {
		opts.Logger = logger
	}
	radio, err := hostbus.Open(opts)
	if err != nil {
		logger.Error("radio:open-failed", slog.String("reason", err.Error()))
		os.Exit(1)
	}
	defer radio.Close()

	b := &bridge{dev: radio.Device, prefix: *prefix, logger: logger}
	cfg := mqtt.ClientConfig{
		Decoder: mqtt.DecoderNoAlloc{UserBuffer: make([]byte, 512)},
		OnPub: func(pubHead mqtt.Header, varPub mqtt.VariablesPublish, r io.Reader) error {
			payload, err := io.ReadAll(r)
			if err != nil {
				return err
			}
			b.receive(string(varPub.TopicName), string(payload))
			return nil
		},
	}
	var varconn mqtt.VariablesConnect
	varconn.SetDefaultMQTT([]byte(*clientID))
	// HandleNext blocks until the broker sends something; no keepalive pings.
	varconn.KeepAlive = 0
	client := mqtt.NewClient(cfg)

	// Connection loop for TCP+MQTT.
	for {
		err = b.session(client, &varconn, *broker)
		logger.Error("mqtt:disconnected", slog.Any("reason", err))
		time.Sleep(5 * time.Second)
	}
}

func (b *bridge) session(client *mqtt.Client, varconn *mqtt.VariablesConnect, broker string) error {
	b.logger.Info("mqtt:dial", slog.String("broker", broker))
	conn, err := net.Dial("tcp", broker)
	if err != nil {
		return err
	}
	defer conn.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = client.Connect(ctx, conn, varconn)
	if err != nil {
		return err
	}
	err = client.Subscribe(ctx, mqtt.VariablesSubscribe{
		PacketIdentifier: 1,
		TopicFilters: []mqtt.SubscribeRequest{
			{TopicFilter: []byte(b.prefix + "/set/+"), QoS: mqtt.QoS0},
		},
	})
	if err != nil {
		return err
	}
	b.logger.Info("mqtt:subscribed", slog.String("filter", b.prefix+"/set/+"))
	pubVar := mqtt.VariablesPublish{PacketIdentifier: 1}
	publish := func(msgs []message) error {
		for _, m := range msgs {
			pubVar.TopicName = []byte(m.topic)
			pubVar.PacketIdentifier++
			if err := client.PublishPayload(pubFlags, pubVar, []byte(m.payload)); err != nil {
				return err
			}
		}
		return nil
	}
	if err = publish(b.states()); err != nil {
		return err
	}
	for client.IsConnected() {
		err = client.HandleNext()
		if err != nil {
			return err
		}
		pending := b.pending
		b.pending = nil
		for _, u := range pending {
			if err = publish(b.handle(u)); err != nil {
				return err
			}
		}
	}
	return client.Err()
}

// receive queues set requests. Publishing from within the client callback is
// avoided, requests are handled after HandleNext returns.
func (b *bridge) receive(topic, payload string) {
	setting, ok := strings.CutPrefix(topic, b.prefix+"/set/")
	if !ok || setting == "" {
		b.logger.Warn("mqtt:unexpected-topic", slog.String("topic", topic))
		return
	}
	b.pending = append(b.pending, update{setting: setting, payload: payload})
}

// handle applies u and returns the resulting state or error message.
func (b *bridge) handle(u update) []message {
	err := apply(b.dev, u.setting, u.payload)
	if err != nil {
		b.logger.Error("set:failed", slog.String("setting", u.setting), slog.String("payload", u.payload), slog.String("reason", err.Error()))
		return []message{{topic: b.prefix + "/error", payload: u.setting + ": " + err.Error()}}
	}
	v, err := read(b.dev, u.setting)
	if err != nil {
		return []message{{topic: b.prefix + "/error", payload: u.setting + ": " + err.Error()}}
	}
	b.logger.Info("set", slog.String("setting", u.setting), slog.String("value", v))
	return []message{{topic: b.prefix + "/state/" + u.setting, payload: v}}
}

// states reads every setting for publishing on connect.
func (b *bridge) states() (msgs []message) {
	for _, s := range settings {
		v, err := read(b.dev, s)
		if err != nil {
			b.logger.Error("read:failed", slog.String("setting", s), slog.String("reason", err.Error()))
			continue
		}
		msgs = append(msgs, message{topic: b.prefix + "/state/" + s, payload: v})
	}
	return msgs
}
