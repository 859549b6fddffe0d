package ports

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 50

	DefaultCurrency = "USD"

	// Solana explorer used in payment responses.
	ExplorerBase = "https://solscan.io"
)
