package dnsxl

import (
	"context"
	"net"
	"testing"

	"github.com/mjl-/adns"

	"github.com/robhughadams/FakeSMTP/dns"
)

var ctxbg = context.Background()

// recordingResolver counts the list queries done, for the short-circuit
// checks.
type recordingResolver struct {
	dns.MockResolver
	queries []string
}

func (r *recordingResolver) LookupIP(ctx context.Context, network, host string) ([]net.IP, adns.Result, error) {
	r.queries = append(r.queries, host)
	return r.MockResolver.LookupIP(ctx, network, host)
}

func TestListAddr(t *testing.T) {
	got := listAddr(net.ParseIP("10.11.12.13"), "dnsbl.example")
	if got != "13.12.11.10.dnsbl.example." {
		t.Fatalf("listAddr: got %q", got)
	}
}

func TestCheckBlack(t *testing.T) {
	resolver := &recordingResolver{
		MockResolver: dns.MockResolver{
			A: map[string][]string{
				"7.100.51.198.bl.example.": {"127.0.0.2", "127.0.0.3"},
			},
		},
	}
	v, found := Check(ctxbg, nil, resolver, nil, []string{"bl.example"}, net.ParseIP("198.51.100.7"))
	if !found || v.Type != TypeBlack || v.Zone != "bl.example" || v.Value != "127.0.0.2,127.0.0.3" {
		t.Fatalf("got %v %v, expected black hit", v, found)
	}
}

func TestCheckNotListed(t *testing.T) {
	resolver := &recordingResolver{}
	_, found := Check(ctxbg, nil, resolver, []string{"wl.example"}, []string{"bl.example"}, net.ParseIP("198.51.100.7"))
	if found {
		t.Fatalf("unexpected hit")
	}
	if len(resolver.queries) != 2 {
		t.Fatalf("got %d queries, expected 2: %v", len(resolver.queries), resolver.queries)
	}
}

func TestWhiteShortCircuitsBlack(t *testing.T) {
	resolver := &recordingResolver{
		MockResolver: dns.MockResolver{
			A: map[string][]string{
				"7.100.51.198.wl.example.": {"127.0.0.2"},
				"7.100.51.198.bl.example.": {"127.0.0.2"},
			},
		},
	}
	v, found := Check(ctxbg, nil, resolver, []string{"wl.example"}, []string{"bl.example"}, net.ParseIP("198.51.100.7"))
	if !found || v.Type != TypeWhite || v.Zone != "wl.example" {
		t.Fatalf("got %v %v, expected white hit", v, found)
	}
	for _, q := range resolver.queries {
		if q == "7.100.51.198.bl.example." {
			t.Fatalf("blacklist queried despite whitelist hit: %v", resolver.queries)
		}
	}
}

func TestFirstHitWins(t *testing.T) {
	resolver := &recordingResolver{
		MockResolver: dns.MockResolver{
			A: map[string][]string{
				"7.100.51.198.bl2.example.": {"127.0.0.2"},
			},
		},
	}
	v, found := Check(ctxbg, nil, resolver, nil, []string{"bl1.example", "bl2.example", "bl3.example"}, net.ParseIP("198.51.100.7"))
	if !found || v.Zone != "bl2.example" {
		t.Fatalf("got %v %v, expected hit on bl2", v, found)
	}
	if len(resolver.queries) != 2 {
		t.Fatalf("got queries %v, expected iteration to stop at the hit", resolver.queries)
	}
}

func TestServfailTreatedAsUnlisted(t *testing.T) {
	resolver := &recordingResolver{
		MockResolver: dns.MockResolver{
			Fail: []string{"ip 7.100.51.198.bl1.example."},
			A: map[string][]string{
				"7.100.51.198.bl2.example.": {"127.0.0.2"},
			},
		},
	}
	v, found := Check(ctxbg, nil, resolver, nil, []string{"bl1.example", "bl2.example"}, net.ParseIP("198.51.100.7"))
	if !found || v.Zone != "bl2.example" {
		t.Fatalf("got %v %v, expected failure on bl1 to continue to bl2", v, found)
	}
}

func TestLocalIPBypass(t *testing.T) {
	resolver := &recordingResolver{
		MockResolver: dns.MockResolver{
			A: map[string][]string{
				"1.0.0.127.bl.example.": {"127.0.0.2"},
			},
		},
	}
	for _, ip := range []string{"127.0.0.1", "10.1.2.3", "172.16.0.1", "192.168.1.1", "169.254.0.5", "192.0.2.99"} {
		_, found := Check(ctxbg, nil, resolver, nil, []string{"bl.example"}, net.ParseIP(ip))
		if found {
			t.Errorf("ip %s: unexpected hit", ip)
		}
	}
	if len(resolver.queries) != 0 {
		t.Fatalf("local ips caused queries: %v", resolver.queries)
	}
}
