// Package dns provides a strict DNS resolver interface used for the allow
// and block list probes, with a mock implementation for tests.
package dns

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mjl-/adns"

	"github.com/robhughadams/FakeSMTP/mlog"
)

var metricLookup = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "fakesmtp_dns_lookup_total",
		Help: "DNS lookups, by requesting package, record type and result.",
	},
	[]string{
		"pkg",
		"type",
		"result",
	},
)

// Resolver is the interface StrictResolver implements, the lookups needed
// for DNSxL probing.
type Resolver interface {
	LookupIP(ctx context.Context, network, host string) ([]net.IP, adns.Result, error)
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, adns.Result, error)
	LookupTXT(ctx context.Context, name string) ([]string, adns.Result, error)
}

// StrictResolver is a resolver that enforces that DNS names end with a dot,
// preventing "search"-relative lookups.
type StrictResolver struct {
	Pkg      string         // Name of subsystem making DNS requests, for metrics and logging.
	Resolver *adns.Resolver // If nil, adns.DefaultResolver is used.
	Log      *slog.Logger
}

var _ Resolver = StrictResolver{}

// ErrRelativeDNSName is returned for lookups of names without a trailing dot.
var ErrRelativeDNSName = errors.New("dns: host to lookup must be absolute, ending with a dot")

// WithPackage returns a copy of resolver with Pkg set to name, if resolver
// is a StrictResolver without a package.
func WithPackage(resolver Resolver, name string) Resolver {
	r, ok := resolver.(StrictResolver)
	if ok && r.Pkg == "" {
		r.Pkg = name
		return r
	}
	return resolver
}

func (r StrictResolver) log() mlog.Log {
	pkg := r.Pkg
	if pkg == "" {
		pkg = "dns"
	}
	return mlog.New(pkg, r.Log)
}

func (r StrictResolver) pkg() string {
	if r.Pkg == "" {
		return "dns"
	}
	return r.Pkg
}

func (r StrictResolver) resolver() *adns.Resolver {
	if r.Resolver == nil {
		return adns.DefaultResolver
	}
	return r.Resolver
}

func observe(pkg, typ string, err error, start time.Time) {
	var result string
	var dnsErr *adns.DNSError
	switch {
	case err == nil:
		result = "ok"
	case errors.As(err, &dnsErr) && dnsErr.IsNotFound:
		result = "nxdomain"
	case errors.As(err, &dnsErr) && dnsErr.IsTemporary:
		result = "temporary"
	case errors.Is(err, context.DeadlineExceeded) || errors.As(err, &dnsErr) && dnsErr.IsTimeout:
		result = "timeout"
	case errors.Is(err, context.Canceled):
		result = "canceled"
	default:
		result = "error"
	}
	metricLookup.WithLabelValues(pkg, typ, result).Inc()
}

// IsNotFound returns whether an error is an adns.DNSError with IsNotFound
// set: the name does not exist, an authoritative answer.
func IsNotFound(err error) bool {
	var dnsErr *adns.DNSError
	return err != nil && errors.As(err, &dnsErr) && dnsErr.IsNotFound
}

func (r StrictResolver) LookupIP(ctx context.Context, network, host string) (resp []net.IP, result adns.Result, err error) {
	start := time.Now()
	defer func() {
		observe(r.pkg(), "ip", err, start)
		r.log().WithContext(ctx).Debugx("dns lookup result", err,
			slog.String("type", "ip"),
			slog.String("host", host),
			slog.Any("res", resp),
			slog.Duration("duration", time.Since(start)))
	}()
	if !strings.HasSuffix(host, ".") {
		return nil, result, ErrRelativeDNSName
	}
	resp, result, err = r.resolver().LookupIP(ctx, network, host)
	if err != nil {
		err = fmt.Errorf("dns: lookup ip %s: %w", host, err)
	}
	return
}

func (r StrictResolver) LookupIPAddr(ctx context.Context, host string) (resp []net.IPAddr, result adns.Result, err error) {
	start := time.Now()
	defer func() {
		observe(r.pkg(), "ipaddr", err, start)
		r.log().WithContext(ctx).Debugx("dns lookup result", err,
			slog.String("type", "ipaddr"),
			slog.String("host", host),
			slog.Any("res", resp),
			slog.Duration("duration", time.Since(start)))
	}()
	if !strings.HasSuffix(host, ".") {
		return nil, result, ErrRelativeDNSName
	}
	resp, result, err = r.resolver().LookupIPAddr(ctx, host)
	if err != nil {
		err = fmt.Errorf("dns: lookup ipaddr %s: %w", host, err)
	}
	return
}

func (r StrictResolver) LookupTXT(ctx context.Context, name string) (resp []string, result adns.Result, err error) {
	start := time.Now()
	defer func() {
		observe(r.pkg(), "txt", err, start)
		r.log().WithContext(ctx).Debugx("dns lookup result", err,
			slog.String("type", "txt"),
			slog.String("name", name),
			slog.Duration("duration", time.Since(start)))
	}()
	if !strings.HasSuffix(name, ".") {
		return nil, result, ErrRelativeDNSName
	}
	resp, result, err = r.resolver().LookupTXT(ctx, name)
	if err != nil {
		err = fmt.Errorf("dns: lookup txt %s: %w", name, err)
	}
	return
}
