package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	devenv "mhrs-tracker/dev/env"
	journaldb "mhrs-tracker/services/journal/db"

	"github.com/tcnksm/go-input"
	_ "modernc.org/sqlite"
)

func CreateJournalDB() error {
	path, err := devenv.ResolvePath(devenv.StateMarker + "/journal.db")
	if err != nil {
		return err
	}

	_, err = os.Stat(path)
	if err == nil {
		fmt.Println("database already created at", path)
		return nil
	}

	fmt.Println("creating database at", path)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return err
	}
	defer db.Close()
	return journaldb.Migrate(context.Background(), db)
}

func SetupLiveTests() error {
	path, err := devenv.StatePath(devenv.LiveTestConfigFile)
	if err != nil {
		return err
	}
	_, err = os.Stat(path)
	if !os.IsNotExist(err) {
		slog.Info("mhrs credentials have already been provided")
		return err
	}

	ui := input.DefaultUI()
	opts := &input.Options{Required: true, Loop: true}

	identity, err := ui.Ask("TC identity number:", opts)
	if err != nil {
		return err
	}
	secret, err := ui.Ask("MHRS password:", &input.Options{Required: true, Loop: true, Mask: true})
	if err != nil {
		return err
	}
	region, err := ui.Ask("region (plate code):", &input.Options{
		Default: "6",
		Loop:    true,
		ValidateFunc: func(s string) error {
			_, err := strconv.ParseInt(s, 10, 64)
			return err
		},
	})
	if err != nil {
		return err
	}
	regionId, _ := strconv.ParseInt(region, 10, 64)

	config := devenv.LiveTestConfig{
		Identity: identity,
		Secret:   secret,
		RegionId: regionId,
	}
	cached, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, cached, 0600)
}

func PrintConfigLocations() {
	slog.Info("tests that talk to the real MHRS servers read dev/.state/" + devenv.LiveTestConfigFile + " and skip themselves when it is missing, run with -live to create it.")
	slog.Info("the tracker reads config.json5 (and config.local.json5) from the working directory, secrets can also come from .env.")
}
