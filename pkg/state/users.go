package state

import (
	"encoding/json"
	"fmt"

	"github.com/harrisonrobin/daypilot/pkg/model"
)

// Key prefixes, namespaced per user as "<prefix>_<userID>". The bare
// (un-namespaced) forms are the legacy single-user keys; they are migrated
// to the namespaced form on first access and then removed, so state from one
// user can never bleed into another account on a shared machine.
const (
	keySyncedEvents        = "syncedCalendarEvents"
	keyLastSync            = "lastCalendarSync"
	keyCustomCategories    = "customCategories"
	keyGeneratedCategories = "aiGeneratedCategories"
	keyCategoriesDate      = "categoriesGeneratedDate"
	keyAccounts            = "connectedCalendars"
)

var allKeyPrefixes = []string{
	keySyncedEvents, keyLastSync, keyCustomCategories,
	keyGeneratedCategories, keyCategoriesDate, keyAccounts,
}

// Users exposes the per-user persisted state the sync engine and category
// features depend on: the imported-event dedup set, the last auto-sync
// marker, category caches, and connected calendar accounts.
type Users struct {
	kv KV
}

func NewUsers(kv KV) *Users {
	return &Users{kv: kv}
}

func userKey(prefix, userID string) string {
	return prefix + "_" + userID
}

// get reads the namespaced key for the user, migrating a legacy bare key if
// present. Returns false when neither exists.
func (u *Users) get(prefix, userID string, v interface{}) (bool, error) {
	raw, ok, err := u.kv.Get(userKey(prefix, userID))
	if err != nil {
		return false, fmt.Errorf("failed to read state %s: %w", prefix, err)
	}
	if !ok {
		raw, ok, err = u.kv.Get(prefix)
		if err != nil {
			return false, fmt.Errorf("failed to read legacy state %s: %w", prefix, err)
		}
		if !ok {
			return false, nil
		}
		// Migrate to the namespaced key and drop the legacy one.
		if err := u.kv.Set(userKey(prefix, userID), raw); err != nil {
			return false, fmt.Errorf("failed to migrate state %s: %w", prefix, err)
		}
		if err := u.kv.Delete(prefix); err != nil {
			return false, fmt.Errorf("failed to remove legacy state %s: %w", prefix, err)
		}
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("failed to decode state %s: %w", prefix, err)
	}
	return true, nil
}

func (u *Users) set(prefix, userID string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode state %s: %w", prefix, err)
	}
	if err := u.kv.Set(userKey(prefix, userID), raw); err != nil {
		return fmt.Errorf("failed to write state %s: %w", prefix, err)
	}
	return nil
}

// SyncedEventIDs returns the user's dedup set of already-imported calendar
// event identifiers.
func (u *Users) SyncedEventIDs(userID string) (map[string]bool, error) {
	var ids []string
	if _, err := u.get(keySyncedEvents, userID, &ids); err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

// SaveSyncedEventIDs persists the dedup set. The set only ever grows in
// normal operation.
func (u *Users) SaveSyncedEventIDs(userID string, set map[string]bool) error {
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	return u.set(keySyncedEvents, userID, ids)
}

// LastSyncDate returns the civil date of the last auto-sync, or "" if the
// user has never synced.
func (u *Users) LastSyncDate(userID string) (string, error) {
	var date string
	if _, err := u.get(keyLastSync, userID, &date); err != nil {
		return "", err
	}
	return date, nil
}

func (u *Users) SetLastSyncDate(userID, date string) error {
	return u.set(keyLastSync, userID, date)
}

// CustomCategories returns the user's hand-added category names.
func (u *Users) CustomCategories(userID string) ([]string, error) {
	var cats []string
	if _, err := u.get(keyCustomCategories, userID, &cats); err != nil {
		return nil, err
	}
	return cats, nil
}

func (u *Users) AddCustomCategory(userID, name string) error {
	cats, err := u.CustomCategories(userID)
	if err != nil {
		return err
	}
	for _, c := range cats {
		if c == name {
			return nil
		}
	}
	return u.set(keyCustomCategories, userID, append(cats, name))
}

// GeneratedCategories returns the cached AI-derived categories and the civil
// date they were generated on.
func (u *Users) GeneratedCategories(userID string) ([]string, string, error) {
	var cats []string
	if _, err := u.get(keyGeneratedCategories, userID, &cats); err != nil {
		return nil, "", err
	}
	var date string
	if _, err := u.get(keyCategoriesDate, userID, &date); err != nil {
		return nil, "", err
	}
	return cats, date, nil
}

func (u *Users) SaveGeneratedCategories(userID string, cats []string, date string) error {
	if err := u.set(keyGeneratedCategories, userID, cats); err != nil {
		return err
	}
	return u.set(keyCategoriesDate, userID, date)
}

// Accounts returns the user's connected calendar accounts.
func (u *Users) Accounts(userID string) ([]model.ConnectedAccount, error) {
	var accounts []model.ConnectedAccount
	if _, err := u.get(keyAccounts, userID, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

// AddAccount appends a connected account, rejecting duplicate emails.
func (u *Users) AddAccount(userID string, account model.ConnectedAccount) error {
	accounts, err := u.Accounts(userID)
	if err != nil {
		return err
	}
	for _, a := range accounts {
		if a.Email == account.Email {
			return fmt.Errorf("account %s is already connected", account.Email)
		}
	}
	return u.set(keyAccounts, userID, append(accounts, account))
}

// RemoveAccount drops the account with the given email. Removing an unknown
// email is a no-op.
func (u *Users) RemoveAccount(userID, email string) error {
	accounts, err := u.Accounts(userID)
	if err != nil {
		return err
	}
	kept := accounts[:0]
	for _, a := range accounts {
		if a.Email != email {
			kept = append(kept, a)
		}
	}
	return u.set(keyAccounts, userID, kept)
}

// ClearUser removes every piece of per-user state. Used by data reset.
func (u *Users) ClearUser(userID string) error {
	for _, prefix := range allKeyPrefixes {
		if err := u.kv.Delete(userKey(prefix, userID)); err != nil {
			return fmt.Errorf("failed to clear state %s: %w", prefix, err)
		}
	}
	return nil
}
