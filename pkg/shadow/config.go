package shadow

import (
	"flag"
	"fmt"
	"os"

	"github.com/denisbrodbeck/machineid"

	"github.com/robotalks/nrf91.go/pkg/mqtt"
	"github.com/robotalks/nrf91.go/pkg/secfs"
)

// DefaultSecTag is the credential slot holding the broker CA on the device.
const DefaultSecTag secfs.SecTag = 16842753

// Config provides options to connect a shadow Client.
type Config struct {
	// BrokerURL e.g. mqtts://endpoint:8883/?ca=root.pem&cert=dev.pem&key=dev.key
	BrokerURL string
	Thing     string
	ClientID  string
}

var defaultConfig = Config{
	BrokerURL: "mqtts://localhost:8883/",
}

func init() {
	if val := os.Getenv("NRF_MQTT_URL"); val != "" {
		defaultConfig.BrokerURL = val
	}
	if val := os.Getenv("NRF_THING"); val != "" {
		defaultConfig.Thing = val
	}
	if val := os.Getenv("NRF_CLIENT_ID"); val != "" {
		defaultConfig.ClientID = val
	}
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.BrokerURL, "mqtt-url", defaultConfig.BrokerURL, "MQTT broker URL.")
	flag.StringVar(&defaultConfig.Thing, "thing", defaultConfig.Thing, "Thing name of the shadow.")
	flag.StringVar(&defaultConfig.ClientID, "client-id", defaultConfig.ClientID, "MQTT client ID, default derived from machine ID.")
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// DefaultClientID derives a stable client ID from the machine ID.
func DefaultClientID() (string, error) {
	id, err := machineid.ProtectedID("nrf91.go")
	if err != nil {
		return "", err
	}
	if len(id) > 12 {
		id = id[:12]
	}
	return "nrf-" + id, nil
}

// NewQueue creates the MQTT queue from BrokerURL.
func (c *Config) NewQueue() (*mqtt.Queue, error) {
	opts, topicPrefix, err := mqtt.ClientOptionsFromURL(c.BrokerURL)
	if err != nil {
		return nil, fmt.Errorf("invalid broker URL: %w", err)
	}
	clientID := c.ClientID
	if clientID == "" {
		clientID = opts.ClientID
	}
	if clientID == "" {
		if clientID, err = DefaultClientID(); err != nil {
			return nil, err
		}
	}
	opts.SetClientID(clientID)
	return mqtt.NewQueue(opts, topicPrefix), nil
}

// NewClient creates a shadow Client.
func (c *Config) NewClient() (*Client, error) {
	if c.Thing == "" {
		return nil, fmt.Errorf("thing name must be specified")
	}
	q, err := c.NewQueue()
	if err != nil {
		return nil, err
	}
	return NewClient(q, c.Thing), nil
}
