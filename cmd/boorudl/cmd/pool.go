package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"booru-dl/internal/config"
	"booru-dl/internal/model"
	"booru-dl/internal/pipeline"
	"booru-dl/internal/poolcache"
)

var poolCmd = &cobra.Command{
	Use:   "pool <ID>",
	Short: "Resolve a pool and download every post in it",
	Args:  cobra.ExactArgs(1),
	RunE:  runPool,
}

func runPool(cmd *cobra.Command, args []string) error {
	poolID, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("%w: invalid pool id %q: %v", model.ErrConfig, args[0], err)
	}

	site, err := resolveSite()
	if err != nil {
		return err
	}

	client, err := newHTTPClient()
	if err != nil {
		return err
	}

	blacklist, creds, err := loadBlacklistAndAuth()
	if err != nil {
		return err
	}

	cacheDir, err := config.DefaultConfigDir()
	if err != nil {
		return err
	}
	cache, err := poolcache.Open(filepath.Join(cacheDir, "pools.bitcask"))
	if err != nil {
		return err
	}
	defer cache.Close()

	opts := pipeline.Options{
		Site:             site,
		Mode:             pipeline.ModePool,
		PoolID:           poolID,
		OutputDir:        outputDir(),
		Concurrency:      runConcurrency(),
		SafeMode:         globalConfig.SafeMode || safeModeFlag,
		DisableBlacklist: globalConfig.DisableBlacklist || disableBlacklist,
		CBZ:              globalConfig.CBZ || cbzFlag,
		Annotate:         annotateFlag,
		Credential:       creds[site],
		Blacklist:        blacklist,
		PoolCache:        cache,
		Progress:         true,
	}

	result, err := pipeline.Run(context.Background(), client, opts)
	if err != nil {
		return err
	}

	log.Infof("done: %d posts accepted from pool %d", result.Accepted, poolID)
	fmt.Printf("Accepted %d posts from pool %d\n", result.Accepted, poolID)
	return nil
}
