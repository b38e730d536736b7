package main

import (
	"fmt"
	"os"
)

// installService hands the program over for installation under the external
// service supervisor. The supervisor integration itself is platform tooling
// outside this binary; we point the operator at the foreground mode the
// supervisor should run.
func installService() int {
	fmt.Fprintln(os.Stderr, "no mode given; service installation is handled by the external supervisor")
	fmt.Fprintln(os.Stderr, "configure the supervisor to run: fakesmtp /d -config /etc/fakesmtp.conf")
	return 2
}
