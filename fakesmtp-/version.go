// Package fakesmtp holds process-wide state shared by the other packages:
// the session counters, shutdown context, configuration snapshot and opaque
// session ids.
package fakesmtp

// Version as announced in the SMTP banner.
const Version = "0.1.2-b4"
