// Package dnsxl checks connecting IPs against DNS-based allow and block
// lists (DNSWL/DNSBL, RFC 5782).
//
// A list is queried with a DNS "A" lookup. The list starts at a "zone", e.g.
// "dnsbl.example". To look up whether an IP is listed, a name is composed
// from the IPv4 octets reversed: for 10.11.12.13 that name is
// "13.12.11.10.dnsbl.example". Any successful resolution is a listing; a
// "does not exist" answer means not listed.
package dnsxl

import (
	"context"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/robhughadams/FakeSMTP/dns"
	"github.com/robhughadams/FakeSMTP/mlog"
)

// ListType tells which kind of list produced a verdict.
type ListType string

const (
	TypeWhite ListType = "white"
	TypeBlack ListType = "black"
)

// Verdict is the result of a positive list hit.
type Verdict struct {
	Type  ListType
	Zone  string // List zone that answered.
	Value string // A record addresses returned, comma-joined.
}

// Check probes the allow lists and then the block lists for ip, in
// configured order, one lookup per (ip, zone) pair, returning at the first
// positive hit. An allow-list hit suppresses all block-list lookups. Lookup
// failures on a zone are treated as "not listed" and iteration continues.
//
// Private and reserved source addresses bypass all list checks.
func Check(ctx context.Context, elog *slog.Logger, resolver dns.Resolver, whitelists, blacklists []string, ip net.IP) (Verdict, bool) {
	log := mlog.New("dnsxl", elog)
	if ip == nil || ip.To4() == nil || isLocal(ip) {
		return Verdict{}, false
	}
	resolver = dns.WithPackage(resolver, "dnsxl")
	for _, zone := range whitelists {
		if value, ok := lookup(ctx, log, resolver, zone, ip); ok {
			return Verdict{TypeWhite, zone, value}, true
		}
	}
	for _, zone := range blacklists {
		if value, ok := lookup(ctx, log, resolver, zone, ip); ok {
			return Verdict{TypeBlack, zone, value}, true
		}
	}
	return Verdict{}, false
}

// lookup does a single list query for ip under zone.
func lookup(ctx context.Context, log mlog.Log, resolver dns.Resolver, zone string, ip net.IP) (value string, listed bool) {
	start := time.Now()
	addr := listAddr(ip, zone)
	ips, _, err := resolver.LookupIP(ctx, "ip4", addr)
	defer func() {
		log.Debugx("dnsxl lookup result", err,
			slog.String("zone", zone),
			slog.Any("ip", ip),
			slog.Bool("listed", listed),
			slog.Duration("duration", time.Since(start)))
	}()
	if err != nil {
		// NXDOMAIN means not listed; anything else is treated the same so a
		// broken list cannot block all mail.
		return "", false
	}
	l := make([]string, len(ips))
	for i, x := range ips {
		l[i] = x.String()
	}
	return strings.Join(l, ","), true
}

// listAddr composes the DNS name for a list query: reversed IPv4 octets,
// then the zone, as an absolute name.
func listAddr(ip net.IP, zone string) string {
	v4 := ip.To4()
	var b strings.Builder
	for i := len(v4) - 1; i >= 0; i-- {
		b.WriteString(strconv.Itoa(int(v4[i])))
		b.WriteByte('.')
	}
	b.WriteString(zone)
	if !strings.HasSuffix(zone, ".") {
		b.WriteByte('.')
	}
	return b.String()
}

var localNets = []string{
	"127.0.0.0/8",
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"169.254.0.0/16",
	"192.0.2.0/24",
}

var localNetsParsed []*net.IPNet

func init() {
	for _, s := range localNets {
		_, n, err := net.ParseCIDR(s)
		if err != nil {
			panic(err)
		}
		localNetsParsed = append(localNetsParsed, n)
	}
}

// isLocal returns whether ip is in a private or reserved range that no
// public list can meaningfully answer for.
func isLocal(ip net.IP) bool {
	for _, n := range localNetsParsed {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}
