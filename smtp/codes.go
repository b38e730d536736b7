package smtp

// Reply codes used on this wire. 422, 442 and 471 are not registered SMTP
// codes but are part of this server's dialogue contract.
var (
	C211SystemStatus = 211
	C220ServiceReady = 220
	C221Closing      = 221

	C250Completed   = 250
	C252WithoutVrfy = 252

	C354Continue = 354

	C421ServiceUnavail = 421
	C422QuotaExceeded  = 422
	C442ConnError      = 442
	C451LocalErr       = 451
	C452TooManyRcpts   = 452
	C471NoRecipients   = 471

	C500BadSyntax         = 500
	C501BadParamSyntax    = 501
	C503BadCmdSeq         = 503
	C530RelayDenied       = 530
	C550MailboxUnavail    = 550
	C553BadMailbox        = 553
	C554TransactionFailed = 554
)
