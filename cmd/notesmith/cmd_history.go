// Copyright (C) 2026 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/notesmith/cmd/notesmith/config"
	"github.com/AleutianAI/notesmith/pkg/ux"
	"github.com/AleutianAI/notesmith/services/enhancer/fileio"
	"github.com/AleutianAI/notesmith/services/enhancer/history"
	"github.com/AleutianAI/notesmith/services/enhancer/pathutil"
)

// openHistory resolves the target and opens the configured store.
func openHistory(args []string) (pathutil.Target, *history.Store, error) {
	target, err := pathutil.Resolve(strings.Join(args, " "))
	if err != nil {
		return pathutil.Target{}, nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return pathutil.Target{}, nil, err
	}
	if !cfg.History.Enabled {
		return pathutil.Target{}, nil, fmt.Errorf("revision history is disabled in the config")
	}
	store, err := history.Open(history.Config{
		Dir:  expandHome(cfg.History.Dir),
		Keep: cfg.History.Keep,
	})
	if err != nil {
		return pathutil.Target{}, nil, fmt.Errorf("could not open the revision store: %w", err)
	}
	return target, store, nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	target, store, err := openHistory(args)
	if err != nil {
		return err
	}
	defer store.Close()

	revs, err := store.List(target.Path)
	if err != nil {
		return err
	}
	if len(revs) == 0 {
		fmt.Println(ux.Styles.Muted.Render("no saved revisions for ") + target.Path)
		return nil
	}

	fmt.Println(ux.Styles.Title.Render("revisions for ") + target.Path)
	for _, rev := range revs {
		fmt.Printf("  %s  %s  %s\n",
			ux.Styles.Success.Render(rev.ID),
			rev.SavedAt.Local().Format(time.DateTime),
			ux.Styles.Muted.Render(rev.Fingerprint[:12]))
	}
	return nil
}

func runRestore(cmd *cobra.Command, args []string) error {
	revisionID := ""
	pathArgs := args
	// The id is only taken from an explicit trailing argument; a bare
	// path restores the latest revision.
	if len(args) >= 2 {
		revisionID = args[len(args)-1]
		pathArgs = args[:len(args)-1]
	}

	target, store, err := openHistory(pathArgs)
	if err != nil {
		return err
	}
	defer store.Close()

	rev, err := store.Get(target.Path, revisionID)
	if err != nil {
		return err
	}

	if err := fileio.WriteAtomic(target.Path, rev.Content, 0644); err != nil {
		return err
	}
	fmt.Printf("%s restored %s to revision %s (%s)\n",
		ux.Styles.Success.Render("✔"), target.Path, rev.ID,
		rev.SavedAt.Local().Format(time.DateTime))
	return nil
}
