package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/wanqianwin-jpg/aimp/hub"
	"github.com/wanqianwin-jpg/aimp/protocol"
	"github.com/wanqianwin-jpg/aimp/store"
)

// statusCmd prints every open Session and Room so an operator can see
// negotiation state without reading the database directly.
func statusCmd(args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", "aimphub.yaml", "path to the hub configuration file")
	fs.Parse(args)

	cfg, err := hub.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	db, err := store.Open(cfg.DatabasePath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to open store:", err)
		os.Exit(1)
	}
	defer db.Close()

	sessions, err := db.LoadOpenSessions()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load sessions:", err)
		os.Exit(1)
	}
	rooms, err := db.LoadOpenRooms()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load rooms:", err)
		os.Exit(1)
	}

	printSessionTable(sessions)
	fmt.Println()
	printRoomTable(rooms)
}

type column struct {
	header string
	width  int
}

func printTable(columns []column, rows [][]string) {
	for i, c := range columns {
		fmt.Print(padCell(c.header, c.width))
		if i < len(columns)-1 {
			fmt.Print("  ")
		}
	}
	fmt.Println()
	total := 0
	for _, c := range columns {
		total += c.width + 2
	}
	fmt.Println(strings.Repeat("-", total))
	for _, row := range rows {
		for i, cell := range row {
			fmt.Print(padCell(cell, columns[i].width))
			if i < len(row)-1 {
				fmt.Print("  ")
			}
		}
		fmt.Println()
	}
}

// padCell right-pads s to width columns, measuring display width rather than
// byte length so wide-rune topics (e.g. CJK) still line up.
func padCell(s string, width int) string {
	w := runewidth.StringWidth(s)
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}

func printSessionTable(sessions []*protocol.Session) {
	fmt.Printf("Sessions (%d open)\n", len(sessions))
	if len(sessions) == 0 {
		return
	}
	columns := []column{
		{"SESSION ID", 36}, {"TOPIC", 24}, {"STATUS", 12}, {"ROUND", 6}, {"PARTICIPANTS", 10},
	}
	var rows [][]string
	for _, s := range sessions {
		rows = append(rows, []string{
			s.SessionID, truncate(s.Topic, 24), s.Status,
			fmt.Sprintf("%d", s.CurrentRound), fmt.Sprintf("%d", len(s.Participants)),
		})
	}
	printTable(columns, rows)
}

func printRoomTable(rooms []*protocol.Room) {
	fmt.Printf("Rooms (%d open)\n", len(rooms))
	if len(rooms) == 0 {
		return
	}
	columns := []column{
		{"ROOM ID", 36}, {"TOPIC", 24}, {"DEADLINE", 20}, {"ROUND", 6}, {"ACCEPTED", 10},
	}
	var rows [][]string
	for _, r := range rooms {
		rows = append(rows, []string{
			r.RoomID, truncate(r.Topic, 24), time.Unix(r.Deadline, 0).Format(time.RFC3339),
			fmt.Sprintf("%d", r.CurrentRound), fmt.Sprintf("%d/%d", len(r.AcceptedBy), len(r.Participants)),
		})
	}
	printTable(columns, rows)
}

func truncate(s string, width int) string {
	if runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width-1, "") + "…"
}
