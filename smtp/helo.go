package smtp

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

var ErrBadHelo = errors.New("invalid helo")

// heloChars are the bytes allowed in a HELO/EHLO argument, checked
// case-insensitively.
const heloChars = "abcdefghijklmnopqrstuvwxyz0123456789.-_[]"

// CheckHelo runs the lexical checks on a HELO/EHLO argument: allowed
// character set, leading character, at least one dot, bracketed IPv4
// literals, and a few obvious spoofs of our own identity (localhost, our
// hostname, our listen address, 127.* literals).
//
// A bracketed literal is only checked for IPv4 syntax, it is not compared
// against the connecting IP.
func CheckHelo(helo, hostname, listenAddr string) error {
	if helo == "" {
		return fmt.Errorf("%w: empty hostname", ErrBadHelo)
	}
	if helo[0] == '.' || helo[0] == '-' {
		return fmt.Errorf("%w: starts with %q", ErrBadHelo, helo[0])
	}
	lower := strings.ToLower(helo)
	for _, c := range lower {
		if !strings.ContainsRune(heloChars, c) {
			return fmt.Errorf("%w: bad character %q", ErrBadHelo, c)
		}
	}
	if !strings.Contains(helo, ".") {
		return fmt.Errorf("%w: need at least one dot", ErrBadHelo)
	}

	if strings.HasPrefix(helo, "[") {
		if !strings.HasSuffix(helo, "]") {
			return fmt.Errorf("%w: unbalanced brackets", ErrBadHelo)
		}
		lit := helo[1 : len(helo)-1]
		ip := net.ParseIP(lit)
		if ip == nil || ip.To4() == nil || !strings.Contains(lit, ".") {
			return fmt.Errorf("%w: %q is not an IPv4 literal", ErrBadHelo, lit)
		}
	} else {
		if _, err := ParseAddress("postmaster@" + helo); err != nil {
			return fmt.Errorf("%w: %v", ErrBadHelo, err)
		}
	}

	if lower == "localhost" || strings.EqualFold(helo, hostname) || strings.EqualFold(helo, listenAddr) || strings.EqualFold(helo, "["+listenAddr+"]") {
		return fmt.Errorf("%w: %q claims to be us", ErrBadHelo, helo)
	}
	if strings.HasPrefix(helo, "[127.") {
		return fmt.Errorf("%w: loopback literal", ErrBadHelo)
	}
	return nil
}
