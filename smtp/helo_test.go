package smtp

import (
	"testing"
)

func TestCheckHelo(t *testing.T) {
	const hostname = "mx.local.test"
	const listenAddr = "192.0.2.10"

	valid := []string{
		"client.example",
		"sub.client.example",
		"CLIENT.Example",
		"cl-ient_1.example",
		"[198.51.100.7]",
	}
	for _, helo := range valid {
		if err := CheckHelo(helo, hostname, listenAddr); err != nil {
			t.Errorf("CheckHelo(%q): unexpected error %v", helo, err)
		}
	}

	invalid := []string{
		"",
		".client.example",
		"-client.example",
		"client",
		"bad host.example",
		"bad!host.example",
		"client.example>",
		"[client.example]",
		"[198.51.100.7",
		"[2001:db8::1]",
		"[127.0.0.99]",
		"localhost",
		"mx.local.test",
		"MX.LOCAL.TEST",
		"192.0.2.10",
		"[192.0.2.10]",
	}
	for _, helo := range invalid {
		if err := CheckHelo(helo, hostname, listenAddr); err == nil {
			t.Errorf("CheckHelo(%q): expected error", helo)
		}
	}
}
