// Package subconv converts base64-encoded VLESS subscription lists into the
// Clash proxy-provider YAML format.
package subconv

import (
	"encoding/base64"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"github.com/susaninz/geosite-manager/errors"
)

// XHTTPOpts are the transport options for xhttp proxies. The sc* and padding
// fields are passed through from the subscription's extra parameter and may be
// numbers or strings depending on the provider.
type XHTTPOpts struct {
	Mode                 string      `yaml:"mode"`
	ScMaxEachPostBytes   interface{} `yaml:"scMaxEachPostBytes,omitempty"`
	ScMaxConcurrentPosts interface{} `yaml:"scMaxConcurrentPosts,omitempty"`
	ScMinPostsIntervalMs interface{} `yaml:"scMinPostsIntervalMs,omitempty"`
	XPaddingBytes        interface{} `yaml:"xPaddingBytes,omitempty"`
	NoGRPCHeader         interface{} `yaml:"noGRPCHeader,omitempty"`
}

// RealityOpts are the reality TLS options.
type RealityOpts struct {
	PublicKey string `yaml:"public-key,omitempty"`
	ShortID   string `yaml:"short-id,omitempty"`
}

// Proxy is one Clash proxy entry.
type Proxy struct {
	Name              string       `yaml:"name"`
	Type              string       `yaml:"type"`
	Server            string       `yaml:"server"`
	Port              int          `yaml:"port"`
	UUID              string       `yaml:"uuid"`
	UDP               bool         `yaml:"udp"`
	TLS               bool         `yaml:"tls"`
	Flow              string       `yaml:"flow,omitempty"`
	Network           string       `yaml:"network,omitempty"`
	XHTTPOpts         *XHTTPOpts   `yaml:"xhttp-opts,omitempty"`
	RealityOpts       *RealityOpts `yaml:"reality-opts,omitempty"`
	ServerName        string       `yaml:"servername,omitempty"`
	ClientFingerprint string       `yaml:"client-fingerprint,omitempty"`
	PacketEncoding    string       `yaml:"packet-encoding"`
}

// Provider is the Clash proxy-provider document.
type Provider struct {
	Proxies []Proxy `yaml:"proxies"`
}

// ParseVlessURL parses one vless:// URL into a Proxy.
func ParseVlessURL(rawURL string) (Proxy, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return Proxy{}, errors.NewBadRequestError("parse url", errors.KindDecodeJSON,
			errors.Details{"was": rawURL})
	}
	if parsed.Scheme != "vless" {
		return Proxy{}, errors.NewBadRequestError("not a vless url", errors.KindDecodeJSON,
			errors.Details{"scheme": parsed.Scheme})
	}
	if parsed.User == nil || parsed.Hostname() == "" || parsed.Port() == "" {
		return Proxy{}, errors.NewBadRequestError("vless url without uuid@host:port", errors.KindDecodeJSON,
			errors.Details{"was": rawURL})
	}
	port, err := strconv.Atoi(parsed.Port())
	if err != nil {
		return Proxy{}, errors.NewBadRequestError("invalid port", errors.KindDecodeJSON,
			errors.Details{"was": parsed.Port()})
	}
	name := strings.TrimSpace(parsed.Fragment)
	if name == "" {
		name = "unnamed"
	}
	query := parsed.Query()
	security := query.Get("security")
	netType := query.Get("type")
	if netType == "" {
		netType = "tcp"
	}
	proxy := Proxy{
		Name:           name,
		Type:           "vless",
		Server:         parsed.Hostname(),
		Port:           port,
		UUID:           parsed.User.Username(),
		UDP:            true,
		TLS:            security == "reality" || security == "tls",
		PacketEncoding: "xudp",
	}
	if flow := query.Get("flow"); flow != "" {
		proxy.Flow = flow
		proxy.Network = "tcp"
	}
	switch netType {
	case "xhttp":
		proxy.Network = "xhttp"
		mode := query.Get("mode")
		if mode == "" {
			mode = "auto"
		}
		opts := &XHTTPOpts{Mode: mode}
		if extra := query.Get("extra"); extra != "" {
			applyExtra(opts, extra)
		}
		proxy.XHTTPOpts = opts
	case "tcp":
		proxy.Network = "tcp"
	}
	if security == "reality" {
		proxy.RealityOpts = &RealityOpts{
			PublicKey: query.Get("pbk"),
			ShortID:   query.Get("sid"),
		}
		proxy.ServerName = query.Get("sni")
	}
	proxy.ClientFingerprint = query.Get("fp")
	return proxy, nil
}

// applyExtra copies the known xhttp tuning keys from the extra JSON parameter.
// Malformed extra data is ignored.
func applyExtra(opts *XHTTPOpts, extra string) {
	var decoded map[string]interface{}
	if err := json.Unmarshal([]byte(extra), &decoded); err != nil {
		return
	}
	if v, ok := decoded["scMaxEachPostBytes"]; ok {
		opts.ScMaxEachPostBytes = v
	}
	if v, ok := decoded["scMaxConcurrentPosts"]; ok {
		opts.ScMaxConcurrentPosts = v
	}
	if v, ok := decoded["scMinPostsIntervalMs"]; ok {
		opts.ScMinPostsIntervalMs = v
	}
	if v, ok := decoded["xPaddingBytes"]; ok {
		opts.XPaddingBytes = v
	}
	if v, ok := decoded["noGRPCHeader"]; ok {
		opts.NoGRPCHeader = v
	}
}

// DecodeSubscription decodes a base64 subscription into its non-empty lines.
func DecodeSubscription(data string) ([]string, error) {
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(data))
	if err != nil {
		// Some providers omit the padding.
		decoded, err = base64.RawStdEncoding.DecodeString(strings.TrimSpace(data))
		if err != nil {
			return nil, errors.NewBadRequestError("decode base64 subscription", errors.KindDecodeJSON, nil)
		}
	}
	var lines []string
	for _, line := range strings.Split(string(decoded), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

// Convert converts a base64 subscription into the Clash proxy-provider
// format. Lines that are not vless URLs are skipped, malformed vless URLs
// fail the conversion.
func Convert(input string) (Provider, error) {
	lines, err := DecodeSubscription(input)
	if err != nil {
		return Provider{}, errors.Wrap(err, "decode subscription", nil)
	}
	provider := Provider{Proxies: make([]Proxy, 0, len(lines))}
	for _, line := range lines {
		if !strings.HasPrefix(line, "vless://") {
			continue
		}
		proxy, err := ParseVlessURL(line)
		if err != nil {
			return Provider{}, errors.Wrap(err, "parse vless url", errors.Details{"line": line})
		}
		provider.Proxies = append(provider.Proxies, proxy)
	}
	return provider, nil
}
