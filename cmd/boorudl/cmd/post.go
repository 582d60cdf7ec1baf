package cmd

import (
	"context"
	"fmt"
	"strconv"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"booru-dl/internal/model"
	"booru-dl/internal/pipeline"
)

var postCmd = &cobra.Command{
	Use:   "post <IDS...>",
	Short: "Fetch specific posts by id",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runPost,
}

func runPost(cmd *cobra.Command, args []string) error {
	ids := make([]uint64, 0, len(args))
	for _, a := range args {
		id, err := strconv.ParseUint(a, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: invalid post id %q: %v", model.ErrConfig, a, err)
		}
		ids = append(ids, id)
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

	opts := pipeline.Options{
		Site:             site,
		Mode:             pipeline.ModePost,
		PostIDs:          ids,
		OutputDir:        outputDir(),
		Concurrency:      runConcurrency(),
		SafeMode:         globalConfig.SafeMode || safeModeFlag,
		DisableBlacklist: globalConfig.DisableBlacklist || disableBlacklist,
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

	log.Infof("done: %d posts accepted", result.Accepted)
	fmt.Printf("Accepted %d of %d requested posts\n", result.Accepted, len(ids))
	return nil
}
