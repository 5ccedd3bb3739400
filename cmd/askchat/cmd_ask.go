package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kwang-arcfusion/askchat/src/chatsession"
	"github.com/kwang-arcfusion/askchat/src/render"
	"github.com/kwang-arcfusion/askchat/src/transcript"
)

// AskCmd streams one question/answer turn to the terminal.
type AskCmd struct {
	Query  []string `arg:"" help:"The question to ask"`
	Thread string   `help:"Continue an existing thread"`
	Story  string   `help:"Story context id"`
}

func (c *AskCmd) Run(cli *CLI) error {
	a, err := newApp(cli)
	if err != nil {
		return err
	}
	defer a.close()

	session, err := chatsession.New(chatsession.Config{
		API:         a.client,
		History:     a.cache,
		Logger:      a.logger,
		IdleTimeout: time.Duration(a.cfg.IdleTimeoutSeconds) * time.Second,
	})
	if err != nil {
		return err
	}
	defer session.Close()

	// Print answer text as it streams; asset blocks are rendered whole once
	// they appear.
	printer := &streamPrinter{}
	unsubscribe := session.Subscribe(printer.observe)
	defer unsubscribe()

	query := strings.Join(c.Query, " ")
	threadID, err := session.Send(context.Background(), query, chatsession.SendOptions{
		ThreadID: c.Thread,
		StoryID:  c.Story,
	})
	if err != nil {
		return err
	}

	fmt.Println()
	if c.Thread == "" {
		fmt.Printf("thread: %s\n", threadID)
	}
	return nil
}

// streamPrinter renders snapshots incrementally: new blocks fully, the
// growing AI tail as a diff of its content.
type streamPrinter struct {
	rendered    int
	tailID      int64
	tailPrinted int
}

func (p *streamPrinter) observe(snap chatsession.Snapshot) {
	blocks := snap.Blocks

	for i := p.rendered; i < len(blocks); i++ {
		b := blocks[i]
		tb, isText := b.(*transcript.TextBlock)

		// A streaming AI tail grows in place; print only the new suffix and
		// revisit it on the next notification.
		if isText && tb.Sender == transcript.SenderAI &&
			i == len(blocks)-1 && snap.Status == chatsession.StatusStreaming {
			if tb.ID != p.tailID {
				p.tailID = tb.ID
				p.tailPrinted = 0
			}
			fmt.Print(tb.Content[p.tailPrinted:])
			p.tailPrinted = len(tb.Content)
			return
		}

		if isText && tb.ID == p.tailID {
			// The tail we were printing incrementally is now final.
			fmt.Print(tb.Content[p.tailPrinted:])
			fmt.Println()
			fmt.Println()
			p.tailID = 0
		} else {
			render.Block(os.Stdout, b)
		}
		p.rendered = i + 1
	}
}
