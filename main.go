// Command FakeSMTP is a fake SMTP receiver: it accepts mail like a real MX,
// convinces the sender the message was delivered and optionally stores
// envelope and body for offline inspection. It serves as the sink node in a
// nolisting (MX sandwich) setup and as a test double for software that
// sends mail.
package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"golang.org/x/exp/maps"

	"github.com/robhughadams/FakeSMTP/fakesmtp-"
	"github.com/robhughadams/FakeSMTP/mlog"
)

var xlog = mlog.New("main", nil)

func usage() {
	fmt.Fprint(os.Stderr, `usage: fakesmtp /d[ebug] [-config file]
       fakesmtp serve [-config file]
       fakesmtp describeconf
       fakesmtp loglevels
       fakesmtp version
`)
	os.Exit(2)
}

func main() {
	if len(os.Args) >= 2 && strings.HasPrefix(os.Args[1], "/d") {
		// Service-manager style invocation: run in the foreground and exit
		// with the server status.
		os.Exit(cmdServe(os.Args[2:]))
	}
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "serve":
			os.Exit(cmdServe(os.Args[2:]))
		case "describeconf":
			if err := fakesmtp.DescribeConfig(os.Stdout); err != nil {
				xlog.Fatalx("describing config", err)
			}
			return
		case "loglevels":
			names := maps.Keys(mlog.Levels)
			sort.Strings(names)
			for _, name := range names {
				fmt.Println(name)
			}
			return
		case "version":
			fmt.Println("fakesmtp " + fakesmtp.Version)
			return
		}
		usage()
	}

	// Without a mode we are being started for installation under the
	// external service supervisor.
	os.Exit(installService())
}
