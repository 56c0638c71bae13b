package ui

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dkeye/Interview/internal/core"
	"github.com/dkeye/Interview/internal/domain"
)

func newTable(headers []string, rows [][]string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Primary)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return TableHeaderStyle
			case row%2 == 0:
				return TableRowStyle
			default:
				return TableRowAltStyle
			}
		})
}

func RoomsView(rooms []core.RoomInfo) string {
	if len(rooms) == 0 {
		return MutedStyle.Render("No open rooms")
	}
	rows := make([][]string, 0, len(rooms))
	for _, r := range rooms {
		rows = append(rows, []string{string(r.ID), fmt.Sprintf("%d/%d", r.Participants, r.Capacity)})
	}
	return newTable([]string{"Room", "Occupancy"}, rows).Render()
}

func ProblemsView(problems []domain.Problem, current int64) string {
	if len(problems) == 0 {
		return MutedStyle.Render("No problems")
	}
	rows := make([][]string, 0, len(problems))
	for _, p := range problems {
		mark := ""
		if p.ID == current {
			mark = "*"
		}
		rows = append(rows, []string{mark, strconv.FormatInt(p.ID, 10), p.Title})
	}
	return newTable([]string{"", "ID", "Title"}, rows).Render()
}

// TrackRow is one received media track.
type TrackRow struct {
	ID      string
	Kind    string
	Packets uint64
	Bytes   uint64
}

func TracksView(tracks []TrackRow) string {
	if len(tracks) == 0 {
		return MutedStyle.Render("No remote media")
	}
	rows := make([][]string, 0, len(tracks))
	for _, t := range tracks {
		rows = append(rows, []string{t.Kind, t.ID, strconv.FormatUint(t.Packets, 10), strconv.FormatUint(t.Bytes, 10)})
	}
	return newTable([]string{"Kind", "Track", "Packets", "Bytes"}, rows).Render()
}

// SessionInfo is the status box printed by /state.
type SessionInfo struct {
	Room   string
	Sender string
	State  string
	Peer   string
	Online bool
}

func SessionView(info SessionInfo) string {
	link := ErrorStyle.Render("offline")
	if info.Online {
		link = SuccessStyle.Render("online")
	}
	content := fmt.Sprintf("%s Room:    %s\n%s Sender:  %s\n   State:   %s\n   Peer:    %s\n   Channel: %s",
		IconRoom, BoldStyle.Foreground(Primary).Render(info.Room),
		IconPeer, MutedStyle.Render(info.Sender),
		info.State, info.Peer, link,
	)
	return SessionBoxStyle.Render(content)
}

func CodeView(code string) string {
	if code == "" {
		return MutedStyle.Render("(empty buffer)")
	}
	return CodeBoxStyle.Render(code)
}

// VerdictView renders a judge response. Unknown shapes are shown raw.
func VerdictView(raw json.RawMessage) string {
	if len(raw) == 0 {
		return MutedStyle.Render("No result yet")
	}
	var r domain.EvaluationResult
	if err := json.Unmarshal(raw, &r); err != nil || r.Status == "" {
		return MutedStyle.Render(string(raw))
	}
	status := ErrorStyle.Render(IconError + " " + r.Status)
	if r.Accepted() {
		status = SuccessStyle.Render(IconSuccess + " " + r.Status)
	}
	return newTable([]string{"Metric", "Value"}, [][]string{
		{"Status", status},
		{"Tests", fmt.Sprintf("%d/%d", r.PassCount, r.TotalTestCases)},
		{"Runtime", fmt.Sprintf("%d ms", r.RuntimeMs)},
	}).Render()
}
