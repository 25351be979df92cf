package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// Default ports.
const (
	DefaultPort    = "1883"
	DefaultTLSPort = "8883"
)

// ErrNoCertificate indicates the CA file contains no PEM certificate.
var ErrNoCertificate = errors.New("no certificate found")

// TLSFiles are the PEM files for a TLS connection.
// All are optional, a client certificate requires both Cert and Key.
type TLSFiles struct {
	CA   string
	Cert string
	Key  string
}

// IsTLSScheme determines if the URL scheme requires TLS.
func IsTLSScheme(scheme string) bool {
	switch scheme {
	case "mqtts", "ssl", "tls", "tcps":
		return true
	}
	return false
}

// ClientOptionsFromURL creates ClientOptions from URL.
// The path of the URL is the topic prefix, query parameters:
//
//	client-id: client ID
//	ca, cert, key: PEM files for TLS (scheme mqtts or ssl)
//	insecure: skip server certificate verification
//	keepalive: keepalive duration, e.g. 30s
func ClientOptionsFromURL(serverURL string) (*paho.ClientOptions, string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, "", err
	}
	if u.Host == "" {
		return nil, "", fmt.Errorf("missing broker host in %q", serverURL)
	}
	secure := IsTLSScheme(u.Scheme)
	var server string
	switch {
	case secure:
		server = "ssl"
	case u.Scheme == "" || u.Scheme == "mqtt":
		server = "tcp"
	default:
		server = u.Scheme
	}
	host := u.Host
	if u.Port() == "" && (server == "tcp" || server == "ssl") {
		port := DefaultPort
		if secure {
			port = DefaultTLSPort
		}
		host = net.JoinHostPort(u.Hostname(), port)
	}
	server += "://" + host

	topicPrefix := strings.TrimPrefix(u.Path, "/")

	opts := paho.NewClientOptions()
	opts.AddBroker(server).
		SetAutoReconnect(true).
		SetCleanSession(true)
	if u.User != nil {
		opts.SetUsername(u.User.Username())
		if pwd, ok := u.User.Password(); ok {
			opts.SetPassword(pwd)
		}
	}

	query := u.Query()
	if clientID := query.Get("client-id"); clientID != "" {
		opts.SetClientID(clientID)
	}
	if str := query.Get("keepalive"); str != "" {
		d, err := time.ParseDuration(str)
		if err != nil {
			return nil, "", fmt.Errorf("invalid keepalive %q: %w", str, err)
		}
		opts.SetKeepAlive(d)
	}
	if secure {
		files := TLSFiles{CA: query.Get("ca"), Cert: query.Get("cert"), Key: query.Get("key")}
		conf, err := files.Config()
		if err != nil {
			return nil, "", err
		}
		conf.InsecureSkipVerify = query.Get("insecure") == "true"
		opts.SetTLSConfig(conf)
	}

	return opts, topicPrefix, nil
}

// Config loads the files into a tls.Config.
func (f TLSFiles) Config() (*tls.Config, error) {
	conf := &tls.Config{MinVersion: tls.VersionTLS12}
	if f.CA != "" {
		pem, err := os.ReadFile(f.CA)
		if err != nil {
			return nil, err
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("%s: %w", f.CA, ErrNoCertificate)
		}
		conf.RootCAs = pool
	}
	if f.Cert != "" || f.Key != "" {
		if f.Cert == "" || f.Key == "" {
			return nil, errors.New("client certificate requires both cert and key")
		}
		cert, err := tls.LoadX509KeyPair(f.Cert, f.Key)
		if err != nil {
			return nil, err
		}
		conf.Certificates = []tls.Certificate{cert}
	}
	return conf, nil
}
