package storage

// KeyPrefix namespaces every item the wallet writes.
const KeyPrefix = "atomik-wallet-"

// Item keys.
const (
	KeyPin            = "pin"
	KeyAccounts       = "accounts"
	KeyPrimaryAccount = "account-primary"
	KeyUseBiometric   = "use-biometric"
	KeyUserOnboarded  = "user-onboarded"
)

// KV is the item store the ledger and preferences persist through.
type KV interface {
	// Init unlocks the store with secret. Items are unreadable before Init.
	Init(secret []byte) error
	// GetItem returns ErrNotFound when key was never set.
	GetItem(key string) ([]byte, error)
	SetItem(key string, value []byte) error
	// SetItems writes all items together. It is atomic when the backing DB
	// supports batches.
	SetItems(items map[string][]byte) error
	RemoveItem(key string) error
	// Clear removes every item and locks the store.
	Clear() error
}
