package main

import (
	"context"
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

var (
	historyTitleStyle = lipgloss.NewStyle().Bold(true)
	historyMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	unreadStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

// HistoryCmd lists past conversations.
type HistoryCmd struct {
	Limit int `default:"20" help:"Maximum number of conversations to show"`
}

func (c *HistoryCmd) Run(cli *CLI) error {
	a, err := newApp(cli)
	if err != nil {
		return err
	}
	defer a.close()

	summaries, err := a.cache.Fetch(context.Background())
	if err != nil {
		return err
	}

	if len(summaries) == 0 {
		fmt.Println("no conversations yet")
		return nil
	}

	streamingThread, task := a.cache.StreamingThread()
	for i, s := range summaries {
		if i >= c.Limit {
			break
		}
		marker := "  "
		if a.cache.Unread(s.ThreadID) {
			marker = unreadStyle.Render("* ")
		}
		suffix := ""
		if s.ThreadID == streamingThread && task != "" {
			suffix = " " + historyMutedStyle.Render(fmt.Sprintf("(%s…)", task))
		}
		fmt.Printf("%s%s%s\n", marker, historyTitleStyle.Render(s.Title), suffix)
		fmt.Printf("  %s\n", historyMutedStyle.Render(fmt.Sprintf("%s  %s", s.ThreadID, s.UpdatedAt.Format("2006-01-02 15:04"))))
	}
	return nil
}
