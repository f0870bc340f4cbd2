package parser

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"linkprobe/internal/model"

	"github.com/google/uuid"
)

// endpoint is the protocol-specific part of a decoded link. The label is
// handed to ParseLabel afterwards; server keeps whatever bracket form the
// link used so the prober can normalize it later.
type endpoint struct {
	server string
	port   int
	label  string
}

type decodeFunc func(rest string) (*endpoint, error)

// variants is the closed set of supported link encodings. Adding a protocol
// means adding exactly one entry here plus its decode function.
var variants = []struct {
	scheme   string
	protocol model.Protocol
	decode   decodeFunc
}{
	{"ss://", model.ProtocolShadowsocks, decodeShadowsocks},
	{"vless://", model.ProtocolVLESS, decodeHostForm},
	{"vmess://", model.ProtocolVMess, decodeVMess},
	{"trojan://", model.ProtocolTrojan, decodeHostForm},
}

// Decode turns one raw subscription line into a normalized config record.
// Malformed input of any kind yields an error and no record; nothing here
// panics out to the caller.
func Decode(raw string) (cfg *model.Config, err error) {
	defer func() {
		if r := recover(); r != nil {
			cfg = nil
			err = fmt.Errorf("decoder panic: %v", r)
		}
	}()

	raw = strings.TrimSpace(raw)
	for _, v := range variants {
		if !strings.HasPrefix(raw, v.scheme) {
			continue
		}
		ep, err := v.decode(raw[len(v.scheme):])
		if err != nil {
			return nil, fmt.Errorf("%s decode: %w", v.protocol, err)
		}
		return newConfig(raw, v.protocol, ep)
	}
	return nil, fmt.Errorf("unsupported scheme")
}

func newConfig(raw string, protocol model.Protocol, ep *endpoint) (*model.Config, error) {
	if ep.port < 1 || ep.port > 65535 {
		return nil, fmt.Errorf("port %d out of range", ep.port)
	}
	label := ParseLabel(ep.label)
	return &model.Config{
		ID:              uuid.NewString(),
		Raw:             raw,
		Protocol:        protocol,
		Server:          strings.TrimSpace(ep.server),
		Port:            ep.port,
		Name:            label.Name,
		Country:         label.Country,
		TelegramChannel: label.TelegramChannel,
		IsTelegram:      label.IsTelegram,
	}, nil
}

// splitFragment cuts the line at the first '#' into (body, fragment).
func splitFragment(rest string) (string, string) {
	if i := strings.Index(rest, "#"); i >= 0 {
		return rest[:i], rest[i+1:]
	}
	return rest, ""
}

// splitHostPort splits on the last ':' and requires a numeric port.
func splitHostPort(hostPart string) (string, int, error) {
	i := strings.LastIndex(hostPart, ":")
	if i < 0 {
		return "", 0, fmt.Errorf("missing port in %q", hostPart)
	}
	port, err := strconv.Atoi(strings.TrimSpace(hostPart[i+1:]))
	if err != nil {
		return "", 0, fmt.Errorf("invalid port: %w", err)
	}
	return hostPart[:i], port, nil
}

// decodeShadowsocks handles both ss:// body forms: the plain form with a
// cleartext host after the last '@', and the fully-encoded form where the
// whole body is base64 of "method:credential@host:port".
func decodeShadowsocks(rest string) (*endpoint, error) {
	body, fragment := splitFragment(rest)

	var hostPart string
	if i := strings.LastIndex(body, "@"); i >= 0 {
		hostPart = strings.TrimRight(body[i+1:], "/")
		if q := strings.Index(hostPart, "?"); q >= 0 {
			hostPart = hostPart[:q]
		}
	} else {
		decoded, err := DecodeBase64(body)
		if err != nil {
			return nil, fmt.Errorf("base64 body: %w", err)
		}
		decoded = strings.ToValidUTF8(decoded, "")
		at := strings.LastIndex(decoded, "@")
		if at < 0 {
			return nil, fmt.Errorf("no host separator in decoded body")
		}
		hostPart = decoded[at+1:]
	}

	server, port, err := splitHostPort(hostPart)
	if err != nil {
		return nil, err
	}
	return &endpoint{server: server, port: port, label: fragment}, nil
}

// decodeHostForm handles the vless/trojan shape: userinfo '@' host, with an
// optional bracketed IPv6 literal and a default port of 443.
func decodeHostForm(rest string) (*endpoint, error) {
	body, fragment := splitFragment(rest)

	at := strings.Index(body, "@")
	if at < 0 {
		return nil, fmt.Errorf("missing '@' separator")
	}
	hostPart := body[at+1:]
	if q := strings.Index(hostPart, "?"); q >= 0 {
		hostPart = hostPart[:q]
	}
	hostPart = strings.TrimRight(hostPart, "/")

	ep := &endpoint{port: 443, label: fragment}
	switch {
	case strings.HasPrefix(hostPart, "["):
		end := strings.Index(hostPart, "]")
		if end < 0 {
			return nil, fmt.Errorf("unterminated ipv6 literal")
		}
		ep.server = hostPart[:end+1]
		if portPart := hostPart[end+1:]; strings.HasPrefix(portPart, ":") {
			port, err := strconv.Atoi(portPart[1:])
			if err != nil {
				return nil, fmt.Errorf("invalid port: %w", err)
			}
			ep.port = port
		}
	case strings.Contains(hostPart, ":"):
		server, port, err := splitHostPort(hostPart)
		if err != nil {
			return nil, err
		}
		ep.server = server
		ep.port = port
	default:
		ep.server = hostPart
	}
	return ep, nil
}

type vmessJSON struct {
	Add  string      `json:"add"`
	Port interface{} `json:"port"`
	Ps   string      `json:"ps"`
}

// decodeVMess handles the legacy vmess form: the entire remainder is a
// base64 JSON blob. "add" and "ps" may be absent; "port" defaults to 443.
func decodeVMess(rest string) (*endpoint, error) {
	decoded, err := DecodeBase64(rest)
	if err != nil {
		return nil, fmt.Errorf("base64 body: %w", err)
	}

	var v vmessJSON
	if err := json.Unmarshal([]byte(decoded), &v); err != nil {
		return nil, fmt.Errorf("json body: %w", err)
	}

	port, err := vmessPort(v.Port)
	if err != nil {
		return nil, err
	}
	return &endpoint{server: v.Add, port: port, label: v.Ps}, nil
}

// vmessPort tolerates the port being a JSON number or a numeric string,
// which both occur in the wild.
func vmessPort(raw interface{}) (int, error) {
	switch p := raw.(type) {
	case nil:
		return 443, nil
	case float64:
		return int(p), nil
	case string:
		port, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return 0, fmt.Errorf("invalid port: %w", err)
		}
		return port, nil
	default:
		return 0, fmt.Errorf("invalid port type %T", raw)
	}
}
