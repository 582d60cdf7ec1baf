package cmd

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"booru-dl/internal/pipeline"
)

var searchCmd = &cobra.Command{
	Use:   "search <TAGS...>",
	Short: "Search a site by tag and download matching posts",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
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

	opts := pipeline.Options{
		Site:             site,
		Mode:             pipeline.ModeSearch,
		Tags:             args,
		OutputDir:        outputDir(),
		Concurrency:      runConcurrency(),
		Limit:            limitFlag,
		StartPage:        startPageFlag,
		SafeMode:         globalConfig.SafeMode || safeModeFlag,
		DisableBlacklist: globalConfig.DisableBlacklist || disableBlacklist,
		Update:           globalConfig.Update || updateFlag,
		CBZ:              globalConfig.CBZ || cbzFlag,
		Annotate:         annotateFlag,
		Credential:       creds[site],
		Blacklist:        blacklist,
		Progress:         true,
	}

	result, err := pipeline.Run(context.Background(), client, opts)
	if err != nil {
		return err
	}

	log.Infof("done: %d posts accepted, highest id %d", result.Accepted, result.Summary.HighestID)
	fmt.Printf("Accepted %d posts (site=%s, highest id=%d)\n", result.Accepted, site, result.Summary.HighestID)
	return nil
}
