package main

import (
	"context"
	"fmt"

	"github.com/kwang-arcfusion/askchat/src/chatapi"
)

// FeedbackCmd submits feedback for a reconciled message.
type FeedbackCmd struct {
	MessageID string `arg:"" help:"Backend message id"`
	Rating    string `arg:"" enum:"up,down" help:"Rating (up or down)"`
	Comment   string `help:"Optional comment"`
}

func (c *FeedbackCmd) Run(cli *CLI) error {
	a, err := newApp(cli)
	if err != nil {
		return err
	}
	defer a.close()

	err = a.client.SubmitFeedback(context.Background(), chatapi.FeedbackRequest{
		MessageID: c.MessageID,
		Rating:    c.Rating,
		Comment:   c.Comment,
	})
	if err != nil {
		return err
	}
	fmt.Println("feedback submitted")
	return nil
}
