// Package smtpserver implements the fake SMTP receiver: an acceptor that
// hands each incoming connection to its own session, and the session engine
// that walks the SMTP dialogue far enough to convince a sender that mail was
// accepted, optionally persisting envelope and body.
package smtpserver

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/robhughadams/FakeSMTP/config"
	"github.com/robhughadams/FakeSMTP/dns"
	"github.com/robhughadams/FakeSMTP/dnsxl"
	"github.com/robhughadams/FakeSMTP/fakesmtp-"
	"github.com/robhughadams/FakeSMTP/metrics"
	"github.com/robhughadams/FakeSMTP/mlog"
	"github.com/robhughadams/FakeSMTP/netio"
	"github.com/robhughadams/FakeSMTP/sesslog"
	"github.com/robhughadams/FakeSMTP/smtp"
	"github.com/robhughadams/FakeSMTP/store"
)

// Errors signalling the connection must be closed.
var (
	errIO      = errors.New("io error")
	errTimeout = errors.New("read timeout")
)

// Sentinel value for panic/recover indicating clean close of connection.
var cleanClose struct{}

// Timing knobs. Variables because tests zero or raise them.
var (
	// Pause after a reply in an error-free session, to slow naive bulk
	// senders without bothering real ones.
	tarpitIdle = 25 * time.Millisecond

	// How long an early-talker poll waits for pending client bytes.
	earlyTalkerWait = 10 * time.Millisecond
)

var (
	metricConnection = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fakesmtp_smtpserver_connection_total",
			Help: "Incoming SMTP connections.",
		},
	)
	metricSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fakesmtp_smtpserver_sessions",
			Help: "Live SMTP sessions.",
		},
	)
	metricCommands = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fakesmtp_smtpserver_command_total",
			Help: "SMTP command replies, by command and reply code.",
		},
		[]string{
			"cmd",
			"code",
		},
	)
	metricMessage = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fakesmtp_smtpserver_message_total",
			Help: "Messages completing DATA, known values: stored, discarded, quota, writeerror.",
		},
		[]string{
			"result",
		},
	)
	metricEarlyTalker = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fakesmtp_smtpserver_earlytalker_total",
			Help: "Sessions dropped for talking before reading our reply.",
		},
	)
)

// Server owns the listening socket and hands accepted connections to
// sessions. Collaborators are injected: the resolver for the DNSxL probes,
// the message store (nil when storing is disabled) and the session log.
type Server struct {
	cfg      *config.Config
	resolver dns.Resolver
	store    store.Store
	sesslog  *sesslog.Logger
	log      mlog.Log

	mutex   sync.Mutex
	ln      net.Listener
	stopped bool
}

// New returns a Server ready to Start.
func New(cfg *config.Config, resolver dns.Resolver, st store.Store, sl *sesslog.Logger) *Server {
	return &Server{
		cfg:      cfg,
		resolver: resolver,
		store:    st,
		sesslog:  sl,
		log:      mlog.New("smtpserver", nil),
	}
}

// Start binds the listen socket and accepts connections until Stop is
// called, one goroutine per session. It returns 0 on clean shutdown, 1 when
// binding fails and 2 when accepting fails.
func (s *Server) Start() int {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		s.log.Errorx("listen for smtp", err, slog.String("address", s.cfg.Addr()))
		return 1
	}
	s.mutex.Lock()
	if s.stopped {
		s.mutex.Unlock()
		ln.Close()
		return 0
	}
	s.ln = ln
	s.mutex.Unlock()

	s.log.Print("listening for smtp", slog.String("address", s.cfg.Addr()), slog.String("hostname", s.cfg.HostName))
	for {
		nc, err := ln.Accept()
		if err != nil {
			if s.isStopped() {
				return 0
			}
			s.log.Errorx("accept", err)
			return 2
		}
		go s.serve(nc, fakesmtp.Cid())
	}
}

// Stop makes Start return. Asynchronous and idempotent. Running sessions
// are not interrupted; they end on their own terms.
func (s *Server) Stop() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	if s.ln != nil {
		s.ln.Close()
	}
}

func (s *Server) isStopped() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.stopped
}

type conn struct {
	cid       int64
	sessionID string
	cfg       *config.Config
	srv       *Server

	conn    net.Conn
	r       *bufio.Reader
	w       *bufio.Writer
	log     mlog.Log
	lastlog time.Time

	remoteIP net.IP
	start    time.Time

	cmd     string // Current command, for metrics and logging.
	peeking bool   // An early-talker poll is reading; timeouts are expected.

	lastCmd command
	helo    string
	ehlo    bool

	mailFrom string
	rcptTo   []string
	lastAddr smtp.Address // Last parsed mailbox, input to the locality checks.

	msgCount  int
	noopCount int
	vrfyCount int
	errCount  int

	timedOut    bool
	earlyTalker bool
	verdict     *dnsxl.Verdict
}

// Read reads from the connection, bounded by the configured receive
// timeout. It panics on i/o errors, which is handled by the session loop.
func (c *conn) Read(buf []byte) (int, error) {
	if c.peeking {
		// Early-talker poll: the caller set its own deadline and handles
		// errors itself.
		return c.conn.Read(buf)
	}
	if d := c.cfg.ReceiveTimeout(); d > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(d)); err != nil {
			c.log.Errorx("setting deadline for read", err)
		}
	} else {
		if err := c.conn.SetReadDeadline(time.Time{}); err != nil {
			c.log.Errorx("clearing deadline for read", err)
		}
	}
	n, err := c.conn.Read(buf)
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			c.timedOut = true
			c.errCount++
			panic(fmt.Errorf("read: %s (%w)", err, errTimeout))
		}
		panic(fmt.Errorf("read: %s (%w)", err, errIO))
	}
	return n, err
}

// Write writes to the connection. It panics on i/o errors, which is handled
// by the session loop.
func (c *conn) Write(buf []byte) (int, error) {
	if err := c.conn.SetWriteDeadline(time.Now().Add(30 * time.Second)); err != nil {
		c.log.Errorx("setting deadline for write", err)
	}
	n, err := c.conn.Write(buf)
	if err != nil {
		panic(fmt.Errorf("write: %s (%w)", err, errIO))
	}
	return n, err
}

// Cache of line buffers for reading commands and body lines.
var bufpool = netio.NewBufpool(8, 2*1024)

func (c *conn) readline() string {
	line, err := bufpool.Readline(c.log, c.r)
	if err != nil && errors.Is(err, netio.ErrLineTooLong) {
		c.writecodeline(smtp.C500BadSyntax, "Line too long", nil)
		panic(fmt.Errorf("%s (%w)", err, errIO))
	} else if err != nil {
		panic(fmt.Errorf("%s (%w)", err, errIO))
	}
	return line
}

// Buffered-write a reply line with code and msg. err is not sent to the
// remote but used for logging and can be nil.
func (c *conn) bwritecodeline(code int, msg string, err error) {
	metricCommands.WithLabelValues(c.cmd, fmt.Sprintf("%d", code)).Inc()
	c.log.Debugx("smtp command result", err,
		slog.String("cmd", c.cmd),
		slog.Int("code", code))
	c.bwritelinef("%d %s", code, msg)
}

func (c *conn) bwritelinef(format string, args ...any) {
	fmt.Fprint(c.w, fmt.Sprintf(format, args...)+"\r\n")
}

// Flush pending buffered writes to the connection.
func (c *conn) xflush() {
	c.w.Flush() // Errors will have caused a panic in Write.
}

func (c *conn) writecodeline(code int, msg string, err error) {
	c.bwritecodeline(code, msg, err)
	c.xflush()
}

func (c *conn) writelinef(format string, args ...any) {
	c.bwritelinef(format, args...)
	c.xflush()
}

// serve runs one session, from pre-banner checks to close.
func (s *Server) serve(nc net.Conn, cid int64) {
	var remoteIP net.IP
	if a, ok := nc.RemoteAddr().(*net.TCPAddr); ok {
		remoteIP = a.IP
	} else {
		// For net.Pipe, during tests.
		remoteIP = net.ParseIP("127.0.0.10")
	}

	c := &conn{
		cid:       cid,
		sessionID: fakesmtp.SessionID(cid),
		cfg:       s.cfg,
		srv:       s,
		conn:      nc,
		lastlog:   time.Now(),
		remoteIP:  remoteIP,
		start:     time.Now().UTC(),
		cmd:       "(connect)",
	}
	var logmutex sync.Mutex
	c.log = mlog.New("smtpserver", nil).WithFunc(func() []slog.Attr {
		logmutex.Lock()
		defer logmutex.Unlock()
		now := time.Now()
		l := []slog.Attr{
			slog.Int64("cid", c.cid),
			slog.String("session", c.sessionID),
			slog.Duration("delta", now.Sub(c.lastlog)),
			slog.String("remote", c.remoteIP.String()),
		}
		c.lastlog = now
		return l
	})
	c.r = bufio.NewReader(netio.NewTraceReader(c.log, "RCV: ", c))
	c.w = bufio.NewWriter(netio.NewTraceWriter(c.log, "SND: ", c))

	live := fakesmtp.SessionAdd()
	metricConnection.Inc()
	metricSessions.Inc()
	c.log.Info("new connection",
		slog.Any("remote", nc.RemoteAddr()),
		slog.Any("local", nc.LocalAddr()))

	defer func() {
		x := recover()
		if x == nil || x == cleanClose {
			c.log.Info("connection closed")
		} else if err, ok := x.(error); ok && errors.Is(err, errTimeout) {
			// Best effort: tell the remote we gave up waiting before closing.
			c.writeBestEffort(smtp.C442ConnError, "Connection timed out")
			c.log.Infox("connection closed", err, slog.Bool("timedout", c.timedOut))
		} else if err, ok := x.(error); ok && (errors.Is(err, errIO) || netio.IsClosed(err)) {
			c.log.Infox("connection closed", err)
		} else {
			c.log.Error("unhandled panic", slog.Any("err", x))
			debug.PrintStack()
			metrics.PanicInc("smtpserver")
		}

		// One session record for sessions that never completed a message.
		if c.msgCount == 0 {
			c.writeSessionRecord("")
		}

		c.conn.Close()
		metricSessions.Dec()
		fakesmtp.SessionDone()
	}()

	// Admission. The gauge was incremented at construction; over the cap the
	// client is told to come back later.
	if live > int64(s.cfg.MaxSessions) {
		c.writecodeline(smtp.C421ServiceUnavail, "Too many sessions, try again later", nil)
		return
	}

	// DNS allow/block lists, before the banner. With storing enabled a
	// listed client is let in so its messages can be inspected.
	if len(s.cfg.Whitelists) > 0 || len(s.cfg.Blacklists) > 0 {
		cidctx := context.WithValue(fakesmtp.Shutdown, mlog.CidKey, c.cid)
		ctx, cancel := context.WithTimeout(cidctx, time.Minute)
		v, found := dnsxl.Check(ctx, c.log.Logger, s.resolver, s.cfg.Whitelists, s.cfg.Blacklists, c.remoteIP)
		cancel()
		if found {
			c.verdict = &v
			c.log.Info("dns list verdict",
				slog.String("type", string(v.Type)),
				slog.String("zone", v.Zone),
				slog.String("value", v.Value))
			if v.Type == dnsxl.TypeBlack && !s.cfg.StoreData {
				c.writecodeline(smtp.C442ConnError, fmt.Sprintf("Connection refused (%s)", v.Zone), nil)
				return
			}
		}
	}

	if d := s.cfg.BannerDelay(); d > 0 {
		fakesmtp.Sleep(fakesmtp.Shutdown, d)
	}

	// A client with bytes on the wire before our banner is not a mail
	// server worth talking to.
	if s.cfg.EarlyTalkers && c.hasPendingInput() {
		c.markEarlyTalker()
		c.writecodeline(smtp.C554TransactionFailed, "Misbehaved SMTP session (EarlyTalker)", nil)
		return
	}

	c.writelinef("%d %s MailRecv %s; %s", smtp.C220ServiceReady, s.cfg.HostName, fakesmtp.Version, time.Now().UTC().Format(time.RFC1123))

	for {
		c.command()
	}
}

// command reads a single command line and processes it, writing the reply
// and applying the tarpit and early-talker checks. Protocol errors are
// panics caught here; i/o errors propagate and close the connection.
func (c *conn) command() {
	defer func() {
		x := recover()
		if x == nil {
			return
		}
		err, ok := x.(error)
		if !ok {
			panic(x)
		}
		if errors.Is(err, errIO) || errors.Is(err, errTimeout) || netio.IsClosed(err) {
			panic(err)
		}
		var serr smtpError
		if !errors.As(err, &serr) {
			c.log.Errorx("command panic", err)
			panic(err)
		}
		if serr.userError {
			c.errCount++
			if c.errCount > c.cfg.MaxSMTPErr {
				c.writecodeline(smtp.C550MailboxUnavail, "Max errors exceeded", serr.err)
				panic(cleanClose)
			}
		}
		c.writecodeline(serr.code, serr.err.Error(), serr.err)
		c.tarpit()
		c.xcheckEarlyTalker()
	}()

	line := c.readline()
	cmd, args := parseCommand(line)
	c.lastCmd = cmd
	c.cmd = cmd.String()

	switch cmd {
	case cmdHelo:
		c.cmdHello(args, false)
	case cmdEhlo:
		c.cmdHello(args, true)
	case cmdMailFrom:
		c.cmdMail(args)
	case cmdRcptTo:
		c.cmdRcpt(args)
	case cmdData:
		c.cmdData()
	case cmdRset:
		c.cmdRset()
	case cmdQuit:
		// No tarpit after the goodbye.
		c.writecodeline(smtp.C221Closing, "Closing connection.", nil)
		panic(cleanClose)
	case cmdVrfy, cmdExpn:
		c.cmdVrfy()
	case cmdHelp:
		c.cmdHelp()
	case cmdNoop:
		c.cmdNoop()
	default:
		xsmtpUserErrorf(smtp.C500BadSyntax, "Command not recognized")
	}

	c.tarpit()
	c.xcheckEarlyTalker()
}

// tarpit pauses after a reply: the configured error delay times the session
// error count when errors occurred, a token pause otherwise.
func (c *conn) tarpit() {
	if c.errCount > 0 {
		fakesmtp.Sleep(fakesmtp.Shutdown, time.Duration(c.errCount)*c.cfg.ErrorDelay())
	} else if tarpitIdle > 0 {
		fakesmtp.Sleep(fakesmtp.Shutdown, tarpitIdle)
	}
}

// hasPendingInput polls whether the client sent bytes we have not asked for.
func (c *conn) hasPendingInput() bool {
	if c.r.Buffered() > 0 {
		return true
	}
	if earlyTalkerWait <= 0 {
		return false
	}
	c.peeking = true
	defer func() { c.peeking = false }()
	if err := c.conn.SetReadDeadline(time.Now().Add(earlyTalkerWait)); err != nil {
		return false
	}
	_, err := c.r.Peek(1)
	return err == nil
}

func (c *conn) markEarlyTalker() {
	c.earlyTalker = true
	c.errCount++
	metricEarlyTalker.Inc()
	c.log.Info("early talker detected")
}

// xcheckEarlyTalker runs the post-reply early-talker poll and force-closes
// the session when the client is already talking again.
func (c *conn) xcheckEarlyTalker() {
	if !c.cfg.EarlyTalkers || c.earlyTalker {
		return
	}
	if !c.hasPendingInput() {
		return
	}
	c.markEarlyTalker()
	c.writecodeline(smtp.C554TransactionFailed, "Misbehaved SMTP session (EarlyTalker)", nil)
	panic(cleanClose)
}

// rset clears the mail transaction, as after a new HELO.
func (c *conn) rset() {
	c.mailFrom = ""
	c.rcptTo = nil
	c.lastAddr = smtp.Address{}
}

// resetMessage is the per-message reset, applied on the terminal dot, on a
// quota reject and on RSET. The HELO string and the session message counter
// are preserved.
func (c *conn) resetMessage() {
	c.rset()
	c.noopCount = 0
	c.vrfyCount = 0
	c.errCount = 0
}

func (c *conn) cmdHello(args string, ehlo bool) {
	if args == "" {
		xsmtpUserErrorf(smtp.C501BadParamSyntax, "Hostname required")
	}
	if c.cfg.CheckHeloFormat {
		if err := smtp.CheckHelo(args, c.cfg.HostName, c.cfg.ListenIP); err != nil {
			c.log.Debugx("helo check failed", err, slog.String("helo", args))
			xsmtpUserErrorf(smtp.C501BadParamSyntax, "Bad hostname")
		}
	}
	// A new hello resets the transaction.
	c.rset()
	c.helo = args
	c.ehlo = ehlo

	if ehlo {
		c.bwritelinef("250-%s", c.cfg.HostName)
		c.bwritelinef("250-HELP")
		c.bwritelinef("250-VRFY")
		c.bwritelinef("250-EXPN")
		c.bwritecodeline(smtp.C250Completed, "NOOP", nil)
		c.xflush()
	} else {
		c.writecodeline(smtp.C250Completed, c.cfg.HostName, nil)
	}
}

func (c *conn) cmdMail(args string) {
	if c.helo == "" {
		xsmtpUserErrorf(smtp.C503BadCmdSeq, "Polite people say HELO first")
	}
	if c.mailFrom != "" {
		xsmtpUserErrorf(smtp.C503BadCmdSeq, "Sender already given")
	}
	if c.msgCount >= c.cfg.MaxMessages {
		c.writecodeline(smtp.C451LocalErr, "Too many messages in one session", nil)
		panic(cleanClose)
	}
	a, err := smtp.ParseAddress(args)
	if err != nil {
		xsmtpUserErrorf(smtp.C501BadParamSyntax, "Bad sender address")
	}
	c.lastAddr = a
	c.mailFrom = a.String()
	c.writecodeline(smtp.C250Completed, "Sender ok", nil)
}

func (c *conn) cmdRcpt(args string) {
	if c.mailFrom == "" {
		xsmtpUserErrorf(smtp.C503BadCmdSeq, "Need MAIL before RCPT")
	}
	if len(c.rcptTo) >= c.cfg.MaxSMTPRcpt {
		c.writecodeline(smtp.C452TooManyRcpts, "Too many recipients", nil)
		panic(cleanClose)
	}
	a, err := smtp.ParseAddress(args)
	if err != nil {
		xsmtpUserErrorf(smtp.C501BadParamSyntax, "Bad recipient address")
	}
	c.lastAddr = a

	if len(c.cfg.LocalDomains) > 0 && !containsFold(c.cfg.LocalDomains, a.Domain) {
		xsmtpUserErrorf(smtp.C530RelayDenied, "Relaying not allowed for policy reasons")
	}
	if len(c.cfg.LocalMailboxes) > 0 && !containsFold(c.cfg.LocalMailboxes, a.String()) {
		xsmtpUserErrorf(smtp.C553BadMailbox, "No such mailbox here")
	}

	c.rcptTo = append(c.rcptTo, a.String())
	c.writecodeline(smtp.C250Completed, "Recipient ok", nil)
}

func (c *conn) cmdData() {
	if c.mailFrom == "" {
		xsmtpUserErrorf(smtp.C503BadCmdSeq, "Need MAIL before DATA")
	}
	if len(c.rcptTo) == 0 {
		xsmtpUserErrorf(smtp.C471NoRecipients, "No recipients given")
	}

	// Tempfail mode without storage: refuse the message before it is sent,
	// for nolisting setups where a well-behaved sender retries on the real MX.
	if c.cfg.DoTempfail && !c.cfg.StoreData {
		c.writecodeline(smtp.C421ServiceUnavail, "Service temporarily unavailable, closing transmission channel", nil)
		panic(cleanClose)
	}

	c.writecodeline(smtp.C354Continue, "Start mail input; end with <CRLF>.<CRLF>", nil)

	// Body lines are stored verbatim, no dot-unstuffing. With storing
	// disabled the client is drained but nothing is kept. Past the size
	// quota we keep draining up to the dot, then reject the whole message.
	var body bytes.Buffer
	var size int64
	overflow := false
	for {
		line := c.readline()
		if line == "." {
			break
		}
		if !c.cfg.StoreData {
			continue
		}
		size += int64(len(line)) + 2
		if size > c.cfg.MaxDataSize {
			overflow = true
			continue
		}
		body.WriteString(line)
		body.WriteString("\r\n")
	}

	if overflow {
		metricMessage.WithLabelValues("quota").Inc()
		c.log.Info("message rejected for size", slog.Int64("size", size), slog.Int64("max", c.cfg.MaxDataSize))
		c.resetMessage()
		c.writecodeline(smtp.C422QuotaExceeded, "Recipient mailbox exceeded quota limit.", nil)
		return
	}

	c.msgCount++
	var msgFile string
	if c.cfg.StoreData && c.srv.store != nil {
		cidctx := context.WithValue(fakesmtp.Shutdown, mlog.CidKey, c.cid)
		name, err := c.srv.store.Deliver(cidctx, c.log, c.envelope(), body.Bytes())
		if err != nil {
			c.log.Errorx("storing message", err)
			metricMessage.WithLabelValues("writeerror").Inc()
			msgFile = "write_error"
		} else {
			metricMessage.WithLabelValues("stored").Inc()
			msgFile = name
		}
	} else {
		metricMessage.WithLabelValues("discarded").Inc()
	}
	c.writeSessionRecord(msgFile)
	c.resetMessage()

	// Tempfail mode with storage: the body and log are kept, but the sender
	// is told to retry elsewhere.
	if c.cfg.DoTempfail {
		c.writecodeline(smtp.C421ServiceUnavail, "Service temporarily unavailable, closing transmission channel", nil)
		panic(cleanClose)
	}

	c.writecodeline(smtp.C250Completed, "Queued mail for delivery", nil)
}

func (c *conn) cmdRset() {
	c.resetMessage()
	c.writecodeline(smtp.C250Completed, "State reset", nil)
}

func (c *conn) cmdNoop() {
	c.noopCount++
	if c.noopCount > c.cfg.MaxSMTPNoop {
		c.writecodeline(smtp.C550MailboxUnavail, "Too many noops", nil)
		panic(cleanClose)
	}
	c.writecodeline(smtp.C250Completed, "Ok", nil)
}

func (c *conn) cmdVrfy() {
	c.vrfyCount++
	if c.vrfyCount > c.cfg.MaxSMTPVrfy {
		c.writecodeline(smtp.C550MailboxUnavail, "Too many verification requests", nil)
		panic(cleanClose)
	}
	c.writecodeline(smtp.C252WithoutVrfy, "Cannot VRFY user, but will accept message and attempt delivery", nil)
}

func (c *conn) cmdHelp() {
	c.writecodeline(smtp.C211SystemStatus, "Commands: HELO EHLO MAIL RCPT DATA RSET NOOP VRFY EXPN HELP QUIT", nil)
}

func (c *conn) envelope() store.Envelope {
	env := store.Envelope{
		SessionIndex: c.cid,
		SessionID:    c.sessionID,
		Start:        c.start,
		ClientIP:     c.remoteIP.String(),
		Helo:         c.helo,
		MailFrom:     c.mailFrom,
		RcptTo:       append([]string{}, c.rcptTo...),
		MsgCount:     c.msgCount,
		NoopCount:    c.noopCount,
		VrfyCount:    c.vrfyCount,
		ErrCount:     c.errCount,
	}
	if c.verdict != nil {
		env.ListType = string(c.verdict.Type)
		env.ListName = c.verdict.Zone
		env.ListValue = c.verdict.Value
	}
	return env
}

// writeSessionRecord appends one record to the session log, at end of
// message (msgFile set or empty) and at close of a session without
// messages.
func (c *conn) writeSessionRecord(msgFile string) {
	if c.srv.sesslog == nil {
		return
	}
	r := sesslog.Record{
		Now:         time.Now(),
		Start:       c.start,
		SessionID:   c.sessionID,
		ClientIP:    c.remoteIP.String(),
		Helo:        c.helo,
		MailFrom:    c.mailFrom,
		RcptTo:      c.rcptTo,
		MsgCount:    c.msgCount,
		MsgFile:     msgFile,
		EarlyTalker: c.earlyTalker,
		NoopCount:   c.noopCount,
		VrfyCount:   c.vrfyCount,
		ErrCount:    c.errCount,
	}
	if c.verdict != nil {
		r.ListType = string(c.verdict.Type)
		r.ListName = c.verdict.Zone
		r.ListValue = c.verdict.Value
	}
	if err := c.srv.sesslog.Write(r); err != nil {
		c.log.Errorx("writing session record", err)
	}
}

// writeBestEffort writes a final reply line, swallowing the write panic: the
// connection may already be gone.
func (c *conn) writeBestEffort(code int, msg string) {
	defer func() {
		recover()
	}()
	c.writecodeline(code, msg, nil)
}

func containsFold(l []string, s string) bool {
	for _, e := range l {
		if strings.EqualFold(e, s) {
			return true
		}
	}
	return false
}
