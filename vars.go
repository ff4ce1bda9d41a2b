package minastate

// SHARDS is the number of lock shards of the ledger registry.
const SHARDS = 256

// MAX_LEDGER_HASH bounds the ledger hash carried in an account envelope.
const MAX_LEDGER_HASH = 1<<16 - 1

const REGISTRY_PREFIX = "minastate-ledger-"
const METRICS_PREFIX = "minastate/"
const DOWNLOAD_DESCRIPTION = "Downloading proof"

type EventKind string

const (
	LEDGER_ACCEPTED  EventKind = "LedgerProofValidationAccepted"
	LEDGER_FAILED    EventKind = "LedgerProofValidationFailed"
	ACCOUNT_ACCEPTED EventKind = "AccountProofValidationAccepted"
	ACCOUNT_FAILED   EventKind = "AccountProofValidationFailed"
	INVALID_LEDGER   EventKind = "InvalidLedgerHash"
)
