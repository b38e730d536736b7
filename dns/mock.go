package dns

import (
	"context"
	"net"

	"golang.org/x/exp/slices"

	"github.com/mjl-/adns"
)

// MockResolver is a Resolver for testing. Set DNS records in the fields,
// mapping FQDNs (with trailing dot) to values. Names in Fail, of the form
// "type name", return a servfail.
type MockResolver struct {
	A    map[string][]string
	TXT  map[string][]string
	Fail []string
}

var _ Resolver = MockResolver{}

func (r MockResolver) nxdomain(s string) error {
	return &adns.DNSError{
		Err:        "no record",
		Name:       s,
		Server:     "mock",
		IsNotFound: true,
	}
}

func (r MockResolver) servfail(s string) error {
	return &adns.DNSError{
		Err:         "temp error",
		Name:        s,
		Server:      "mock",
		IsTemporary: true,
	}
}

func (r MockResolver) LookupIP(ctx context.Context, network, host string) ([]net.IP, adns.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, adns.Result{}, err
	}
	if slices.Contains(r.Fail, "ip "+host) {
		return nil, adns.Result{}, r.servfail(host)
	}
	var ips []net.IP
	for _, s := range r.A[host] {
		ips = append(ips, net.ParseIP(s))
	}
	if len(ips) == 0 {
		return nil, adns.Result{}, r.nxdomain(host)
	}
	return ips, adns.Result{}, nil
}

func (r MockResolver) LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, adns.Result, error) {
	ips, result, err := r.LookupIP(ctx, "ip", host)
	if err != nil {
		return nil, result, err
	}
	var addrs []net.IPAddr
	for _, ip := range ips {
		addrs = append(addrs, net.IPAddr{IP: ip})
	}
	return addrs, result, nil
}

func (r MockResolver) LookupTXT(ctx context.Context, name string) ([]string, adns.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, adns.Result{}, err
	}
	if slices.Contains(r.Fail, "txt "+name) {
		return nil, adns.Result{}, r.servfail(name)
	}
	txts := r.TXT[name]
	if len(txts) == 0 {
		return nil, adns.Result{}, r.nxdomain(name)
	}
	return txts, adns.Result{}, nil
}
