package repository

import (
	"sync"

	"gorm.io/gorm"
)

var (
	globalRepos *Repositories
	reposMu     sync.RWMutex
)

// InitializeFactory builds the process-wide repositories on db. Later calls
// replace them, which tests use to swap databases.
func InitializeFactory(db *gorm.DB) {
	reposMu.Lock()
	defer reposMu.Unlock()
	globalRepos = NewRepositories(db)
}

// GetGlobalRepositories returns the repositories built by InitializeFactory.
func GetGlobalRepositories() *Repositories {
	reposMu.RLock()
	defer reposMu.RUnlock()
	if globalRepos == nil {
		panic("repositories not initialized, call InitializeFactory first")
	}
	return globalRepos
}
