// Package iocache persists parsed coverage documents and run history.
package iocache

import (
	"sync"

	"github.com/huangsam/covmap/internal/contract"
)

// CacheStoreManager manages the document cache and the run history stores.
type CacheStoreManager struct {
	sync.RWMutex // Protects the store pointers during initialization
	document     contract.CacheStore
	history      contract.HistoryStore
}

var _ contract.CacheManager = &CacheStoreManager{} // Compile-time check

// GetDocumentStore returns the document CacheStore, or nil when caching is disabled.
func (mgr *CacheStoreManager) GetDocumentStore() contract.CacheStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.document
}

// GetHistoryStore returns the HistoryStore, or nil when run tracking is disabled.
func (mgr *CacheStoreManager) GetHistoryStore() contract.HistoryStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.history
}
