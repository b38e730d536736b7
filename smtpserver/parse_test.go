package smtpserver

import (
	"testing"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line string
		cmd  command
		args string
	}{
		{"", cmdCRLF, ""},
		{"HELO client.example", cmdHelo, "client.example"},
		{"helo  client.example ", cmdHelo, "client.example"},
		{"EHLO client.example", cmdEhlo, "client.example"},
		{"MAIL FROM:<a@b.example>", cmdMailFrom, "<a@b.example>"},
		{"mail from: <a@b.example>", cmdMailFrom, "<a@b.example>"},
		{"RCPT TO:<x@y.example>", cmdRcptTo, "<x@y.example>"},
		{"DATA", cmdData, ""},
		{"DATAX", cmdInvalid, ""},
		{"RSET", cmdRset, ""},
		{"QUIT", cmdQuit, ""},
		{"VRFY x@y.example", cmdVrfy, "x@y.example"},
		{"EXPN list", cmdExpn, "list"},
		{"HELP", cmdHelp, ""},
		{"NOOP", cmdNoop, ""},
		{"FOO bar", cmdInvalid, ""},
		{"MAIL", cmdInvalid, ""},
	}
	for _, tt := range tests {
		cmd, args := parseCommand(tt.line)
		if cmd != tt.cmd || args != tt.args {
			t.Errorf("parseCommand(%q): got %v %q, expected %v %q", tt.line, cmd, args, tt.cmd, tt.args)
		}
	}
}
