package main

import (
	"context"
	"fmt"

	"github.com/spf13/afero"

	"github.com/kwang-arcfusion/askchat/src/export"
)

// ExportCmd writes a message's asset payload to a file.
type ExportCmd struct {
	MessageID string `arg:"" help:"Backend message id to export"`
	Out       string `arg:"" help:"Output file path"`
}

func (c *ExportCmd) Run(cli *CLI) error {
	a, err := newApp(cli)
	if err != nil {
		return err
	}
	defer a.close()

	exporter := export.New(afero.NewOsFs(), a.client, a.logger)
	if err := exporter.ToFile(context.Background(), c.MessageID, c.Out); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", c.Out)
	return nil
}
