// main is the entry point for the covmap CLI.
package main

import (
	"github.com/huangsam/covmap/cmd"
	"github.com/huangsam/covmap/internal/contract"
	"github.com/huangsam/covmap/internal/iocache"
)

func main() {
	cmd.SetCacheManager(iocache.Manager)

	err := cmd.Execute()

	// LogFatal exits immediately, so release resources first
	iocache.CloseStores()
	if stopErr := cmd.StopProfiling(); stopErr != nil {
		contract.LogWarn("Failed to stop profiling", stopErr)
	}
	if err != nil {
		contract.LogFatal("covmap failed", err)
	}
}
