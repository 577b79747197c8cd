package main

import (
	"context"
)

func (cli *commandLine) seed() error {
	seeded, err := cli.seeder.Run(context.Background())
	if err != nil {
		return err
	}
	if seeded {
		logger.Println("demo data loaded")
	} else {
		logger.Println("database not empty: nothing to do")
	}
	return nil
}
