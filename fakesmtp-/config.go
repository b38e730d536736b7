package fakesmtp

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mjl-/sconf"

	"github.com/robhughadams/FakeSMTP/config"
	"github.com/robhughadams/FakeSMTP/mlog"
)

// Conf is the process configuration snapshot, set once by LoadConfig before
// the acceptor starts and read-only afterwards.
var Conf config.Config

// LoadConfig reads the configuration file at path, fills in defaults and
// checks it. A missing file yields the default configuration. On success the
// snapshot is published as Conf.
func LoadConfig(path string) (*config.Config, error) {
	c := config.Config{}
	f, err := os.Open(path)
	if err == nil {
		defer f.Close()
		if err := sconf.Parse(f, &c); err != nil {
			return nil, fmt.Errorf("parsing %s: %v", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("opening %s: %v", path, err)
	}
	if err := c.Prepare(); err != nil {
		return nil, fmt.Errorf("preparing config: %v", err)
	}
	if err := c.Check(); err != nil {
		return nil, fmt.Errorf("checking %s: %v", path, err)
	}
	Conf = c
	return &c, nil
}

// MustLoadConfig is LoadConfig, aborting the program on error.
func MustLoadConfig(log mlog.Log, path string) *config.Config {
	c, err := LoadConfig(path)
	if err != nil {
		log.Fatalx("loading config", err, slog.String("path", path))
	}
	return c
}

// SetLogLevels applies the configured log level, raised to trace when the
// verbose SMTP line log is enabled.
func SetLogLevels(c *config.Config) {
	mlog.Logfmt = c.Logfmt
	level, ok := mlog.Levels[c.LogLevel]
	if !ok {
		level = mlog.LevelInfo
	}
	if c.LogVerbose && level > mlog.LevelTrace {
		level = mlog.LevelTrace
	}
	mlog.SetConfig(map[string]slog.Level{"": level})
}

// DescribeConfig writes an annotated example configuration file.
func DescribeConfig(w io.Writer) error {
	c := config.Defaults()
	if err := c.Prepare(); err != nil {
		return err
	}
	return sconf.Describe(w, &c)
}
