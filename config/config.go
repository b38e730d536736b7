// Package config holds the process configuration: a read-only snapshot
// loaded once at startup and shared by every session.
//
// The file format is sconf; see the describeconf subcommand for an annotated
// example.
package config

import (
	"fmt"
	"net"
	"os"
	"time"
)

// Config is the parsed form of the configuration file. All fields are
// optional in the file; zero values are replaced by defaults in Prepare.
type Config struct {
	ListenIP         string   `sconf:"optional" sconf-doc:"IP address to listen on. Default: 127.0.0.1."`
	ListenPort       int      `sconf:"optional" sconf-doc:"TCP port to listen on. Default: 25."`
	ReceiveTimeoutMS int      `sconf:"optional" sconf-doc:"Timeout in milliseconds for each read from a client. Default: 30000. A value of 0 is replaced by the default; there is no setting for reads without a timeout."`
	HostName         string   `sconf:"optional" sconf-doc:"Host name used in the banner and in HELO spoof checks. Default: the system hostname."`
	MaxSessions      int      `sconf:"optional" sconf-doc:"Maximum concurrent sessions; a session over the cap is told 421 and closed. Default: 10."`
	MaxMessages      int      `sconf:"optional" sconf-doc:"Maximum messages accepted in one session. Default: 10."`
	MaxSMTPErr       int      `sconf:"optional" sconf-doc:"Maximum protocol errors in one session before the connection is dropped. Default: 3."`
	MaxSMTPNoop      int      `sconf:"optional" sconf-doc:"Maximum NOOP commands in one session. Default: 5."`
	MaxSMTPVrfy      int      `sconf:"optional" sconf-doc:"Maximum VRFY/EXPN commands in one session. Default: 5."`
	MaxSMTPRcpt      int      `sconf:"optional" sconf-doc:"Maximum recipients for one message. Default: 10."`
	BannerDelayMS    int      `sconf:"optional" sconf-doc:"Tarpit pause in milliseconds before the banner is sent. Default: 0."`
	ErrorDelayMS     int      `sconf:"optional" sconf-doc:"Tarpit pause in milliseconds after a reply, multiplied by the session error count. Default: 1000."`
	MaxDataSize      int64    `sconf:"optional" sconf-doc:"Bytes of message body kept; a larger body is drained but rejected. Default: 512000."`
	StoreData        bool     `sconf:"optional" sconf-doc:"Store envelope and body of each accepted message under StorePath."`
	StorePath        string   `sconf:"optional" sconf-doc:"Directory for stored messages and their index. Default: messages."`
	LogPath          string   `sconf:"optional" sconf-doc:"Path of the append-only session log. Empty logs session records to standard error."`
	LogVerbose       bool     `sconf:"optional" sconf-doc:"Log every SMTP line exchanged, tagged SND/RCV. Same as LogLevel trace."`
	LogLevel         string   `sconf:"optional" sconf-doc:"Log level: error, info, debug or trace. Default: info."`
	Logfmt           bool     `sconf:"optional" sconf-doc:"Write logfmt lines instead of plain text."`
	DoTempfail       bool     `sconf:"optional" sconf-doc:"Tempfail mode: answer DATA (or the stored body) with 421 and close, for nolisting setups."`
	CheckHeloFormat  bool     `sconf:"optional" sconf-doc:"Validate the HELO/EHLO argument lexically."`
	EarlyTalkers     bool     `sconf:"optional" sconf-doc:"Detect clients that send before reading our reply and drop them with 554."`
	Whitelists       []string `sconf:"optional" sconf-doc:"DNS allow list zones, checked in order before the block lists. A hit skips the block lists."`
	Blacklists       []string `sconf:"optional" sconf-doc:"DNS block list zones, checked in order. A hit is told 442 and closed, unless storing is enabled."`
	LocalDomains     []string `sconf:"optional" sconf-doc:"Domains accepted in RCPT TO. Empty accepts any domain; otherwise other domains are told 530."`
	LocalMailboxes   []string `sconf:"optional" sconf-doc:"Mailboxes accepted in RCPT TO, as local@domain. Empty accepts any mailbox; otherwise 553."`
	MetricsAddress   string   `sconf:"optional" sconf-doc:"Address for the prometheus metrics HTTP listener, e.g. localhost:8010. Empty disables."`
}

// Defaults returns the configuration used when no file is present.
func Defaults() Config {
	return Config{
		ListenIP:         "127.0.0.1",
		ListenPort:       25,
		ReceiveTimeoutMS: 30000,
		MaxSessions:      10,
		MaxMessages:      10,
		MaxSMTPErr:       3,
		MaxSMTPNoop:      5,
		MaxSMTPVrfy:      5,
		MaxSMTPRcpt:      10,
		ErrorDelayMS:     1000,
		MaxDataSize:      512000,
		StorePath:        "messages",
		LogLevel:         "info",
	}
}

// Prepare fills in defaults for fields left zero by the file.
func (c *Config) Prepare() error {
	d := Defaults()
	if c.ListenIP == "" {
		c.ListenIP = d.ListenIP
	}
	if c.ListenPort == 0 {
		c.ListenPort = d.ListenPort
	}
	if c.ReceiveTimeoutMS == 0 {
		c.ReceiveTimeoutMS = d.ReceiveTimeoutMS
	}
	if c.HostName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			return fmt.Errorf("hostname: %v", err)
		}
		c.HostName = hostname
	}
	if c.MaxSessions == 0 {
		c.MaxSessions = d.MaxSessions
	}
	if c.MaxMessages == 0 {
		c.MaxMessages = d.MaxMessages
	}
	if c.MaxSMTPErr == 0 {
		c.MaxSMTPErr = d.MaxSMTPErr
	}
	if c.MaxSMTPNoop == 0 {
		c.MaxSMTPNoop = d.MaxSMTPNoop
	}
	if c.MaxSMTPVrfy == 0 {
		c.MaxSMTPVrfy = d.MaxSMTPVrfy
	}
	if c.MaxSMTPRcpt == 0 {
		c.MaxSMTPRcpt = d.MaxSMTPRcpt
	}
	if c.ErrorDelayMS == 0 {
		c.ErrorDelayMS = d.ErrorDelayMS
	}
	if c.MaxDataSize == 0 {
		c.MaxDataSize = d.MaxDataSize
	}
	if c.StorePath == "" {
		c.StorePath = d.StorePath
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	return nil
}

// Check verifies the configuration is consistent.
func (c *Config) Check() error {
	if net.ParseIP(c.ListenIP) == nil {
		return fmt.Errorf("bad ListenIP %q", c.ListenIP)
	}
	if c.ListenPort <= 0 || c.ListenPort > 65535 {
		return fmt.Errorf("bad ListenPort %d", c.ListenPort)
	}
	if c.ReceiveTimeoutMS < 0 || c.BannerDelayMS < 0 || c.ErrorDelayMS < 0 {
		return fmt.Errorf("delays must not be negative")
	}
	if c.MaxDataSize < 0 {
		return fmt.Errorf("bad MaxDataSize %d", c.MaxDataSize)
	}
	if _, ok := map[string]bool{"error": true, "info": true, "debug": true, "trace": true}[c.LogLevel]; !ok {
		return fmt.Errorf("bad LogLevel %q", c.LogLevel)
	}
	if c.StoreData && c.StorePath == "" {
		return fmt.Errorf("StoreData requires StorePath")
	}
	return nil
}

// Addr returns the address to bind.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.ListenIP, fmt.Sprintf("%d", c.ListenPort))
}

func (c *Config) ReceiveTimeout() time.Duration {
	return time.Duration(c.ReceiveTimeoutMS) * time.Millisecond
}

func (c *Config) BannerDelay() time.Duration {
	return time.Duration(c.BannerDelayMS) * time.Millisecond
}

func (c *Config) ErrorDelay() time.Duration {
	return time.Duration(c.ErrorDelayMS) * time.Millisecond
}
