package main

import (
	"os"

	"libdb.so/modeglow"
	"libdb.so/modeglow/internal/store"
)

func daemonOptions() []modeglow.Option {
	if !dryRun {
		return nil
	}
	return []modeglow.Option{
		modeglow.WithStore(store.NewMemory(0)),
		modeglow.WithStdio(os.Stdin, os.Stdout),
	}
}
