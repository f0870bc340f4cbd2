package model

import (
	"time"
)

// Protocol is the closed set of link encodings this system understands.
type Protocol string

const (
	ProtocolShadowsocks Protocol = "shadowsocks"
	ProtocolVLESS       Protocol = "vless"
	ProtocolVMess       Protocol = "vmess"
	ProtocolTrojan      Protocol = "trojan"
)

// Config is a normalized proxy record decoded from a single subscription line.
// It is created once per decoded line and never mutated afterwards.
type Config struct {
	ID              string   `gorm:"primaryKey" json:"id"`
	Raw             string   `json:"raw"`
	Protocol        Protocol `json:"protocol"`
	Server          string   `json:"server"`
	Port            int      `json:"port"`
	Name            string   `json:"name"`
	Country         string   `json:"country"`
	TelegramChannel *string  `json:"telegram_channel"`
	IsTelegram      bool     `json:"is_telegram"`
}

// Result is the outcome of one connectivity probe against a Config.
// LatencyMs is meaningful only when Success is true; it is -1 otherwise.
type Result struct {
	ConfigID        string    `gorm:"primaryKey" json:"config_id"`
	Protocol        Protocol  `json:"protocol"`
	Server          string    `json:"server"`
	Port            int       `json:"port"`
	Name            string    `json:"name"`
	Country         string    `json:"country"`
	TelegramChannel *string   `json:"telegram_channel"`
	IsTelegram      bool      `json:"is_telegram"`
	Success         bool      `json:"success"`
	LatencyMs       float64   `json:"latency_ms"`
	TestedAt        time.Time `json:"tested_at"`
}
